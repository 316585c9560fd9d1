package middleware

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"log"
	"sort"

	"github.com/chatspire/susanoo/app/dto"
	businessflow "github.com/chatspire/susanoo/business_flow"
	"github.com/chatspire/susanoo/config"
	"github.com/chatspire/susanoo/utils"
	"github.com/gofiber/fiber/v3"
)

// SignatureHeader is the provider header carrying the request signature
const SignatureHeader = "X-Twilio-Signature"

// ComputeTwilioSignature implements Twilio's request signing scheme: the full
// callable URL, followed by the form parameters sorted by key with key and
// value concatenated, HMAC-SHA1 signed with the auth token, base64 encoded.
func ComputeTwilioSignature(authToken, callableURL string, form map[string]string) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	data := callableURL
	for _, k := range keys {
		data += k + form[k]
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// ValidateTwilioSignature checks a received signature in constant time
func ValidateTwilioSignature(authToken, callableURL string, form map[string]string, signature string) bool {
	expected := ComputeTwilioSignature(authToken, callableURL, form)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// BuildCallableURL reconstructs the URL the provider signed. Behind a proxy
// the externally visible scheme and host arrive in forwarding headers.
func BuildCallableURL(c fiber.Ctx) string {
	scheme := c.Get("X-Forwarded-Proto")
	if scheme == "" {
		scheme = c.Scheme()
	}
	host := c.Get("X-Forwarded-Host")
	if host == "" {
		host = c.Hostname()
	}
	return scheme + "://" + host + c.OriginalURL()
}

// FormParams flattens the request's form body into a plain map
func FormParams(c fiber.Ctx) map[string]string {
	form := make(map[string]string)
	c.Request().PostArgs().VisitAll(func(key, value []byte) {
		form[string(key)] = string(value)
	})
	return form
}

// TwilioSignature returns a middleware guarding webhook routes with Twilio's
// signature scheme. With enforcement off it only warns about unsigned
// requests; with enforcement on, a missing token, missing header, or
// mismatched signature denies the request before anything is persisted.
func TwilioSignature(cfg *config.WebhookConfig, logger *log.Logger) fiber.Handler {
	if logger == nil {
		logger = log.Default()
	}

	return func(c fiber.Ctx) error {
		signature := c.Get(SignatureHeader)

		if !cfg.EnforceSignature {
			if signature == "" {
				logger.Printf("webhook guard: unsigned request to %s (enforcement disabled)", c.Path())
			}
			return c.Next()
		}

		if cfg.TwilioAuthToken == "" {
			logger.Printf("webhook guard: enforcement enabled without auth token, denying")
			return denySignature(c, businessflow.ErrAuthTokenMissing.Error())
		}
		if signature == "" {
			return denySignature(c, businessflow.ErrSignatureMissing.Error())
		}

		if !ValidateTwilioSignature(cfg.TwilioAuthToken, BuildCallableURL(c), FormParams(c), signature) {
			return denySignature(c, businessflow.ErrSignatureInvalid.Error())
		}

		return c.Next()
	}
}

func denySignature(c fiber.Ctx, detail string) error {
	RecordWebhookOutcome("rejected")
	return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
		Success: false,
		Message: "Webhook signature verification failed",
		Error: dto.ErrorDetail{
			Code: businessflow.CodeAuthenticationError,
			Details: map[string]any{
				"reason":    detail,
				"path":      c.Path(),
				"timestamp": utils.UTCNowRFC3339(),
			},
		},
	})
}
