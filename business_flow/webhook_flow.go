package businessflow

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/chatspire/susanoo/models"
	"github.com/chatspire/susanoo/repository"
	"github.com/chatspire/susanoo/utils"
	"github.com/redis/go-redis/v9"
)

// sessionWindow bounds how far back chat history counts toward the current
// conversation session.
const sessionWindow = 24 * time.Hour

// dedupTTL is how long an inbound provider message id is remembered in cache.
const dedupTTL = 24 * time.Hour

// ChatSessionStats summarizes the state of the conversation session that an
// inbound message belongs to. It travels with the auto-reply task so the
// answering service sees conversational context.
type ChatSessionStats struct {
	MessagesInSession           int    `json:"messages_in_session"`
	ConversationDurationMinutes int    `json:"conversation_duration_minutes"`
	UserResponseTimeAvgSeconds  int    `json:"user_response_time_avg_seconds"`
	UserInitiatedConversation   bool   `json:"user_initiated_conversation"`
	TimeOfDay                   string `json:"time_of_day"`
}

// IngestResult reports what the ingestion pipeline persisted for one webhook
// delivery. A nil result with a nil error means the payload was dropped in
// lenient mode.
type IngestResult struct {
	Normalized *NormalizedInboundMessage
	Lead       *models.Lead
	Chat       *models.Chat
	Message    *models.Message
	Duplicate  bool
}

// ReplySubmitter accepts fire-and-forget auto-reply work. Submission never
// blocks and never fails the caller.
type ReplySubmitter interface {
	Submit(task AutoReplyTask)
}

// WebhookFlow handles inbound webhook ingestion
type WebhookFlow interface {
	ProcessIncoming(ctx context.Context, form map[string]string) (*IngestResult, error)
}

// WebhookFlowImpl implements the inbound conversation ingestion pipeline
type WebhookFlowImpl struct {
	leadRepo    repository.LeadRepository
	mappingRepo repository.BusinessSocialMediaRepository
	chatRepo    repository.ChatRepository
	messageRepo repository.MessageRepository
	txRunner    repository.TxRunner
	rc          *redis.Client
	replies     ReplySubmitter
	strictMode  bool
	logger      *log.Logger
}

// NewWebhookFlow creates a new webhook flow instance
func NewWebhookFlow(
	leadRepo repository.LeadRepository,
	mappingRepo repository.BusinessSocialMediaRepository,
	chatRepo repository.ChatRepository,
	messageRepo repository.MessageRepository,
	txRunner repository.TxRunner,
	rc *redis.Client,
	replies ReplySubmitter,
	strictMode bool,
	logger *log.Logger,
) WebhookFlow {
	if logger == nil {
		logger = log.Default()
	}
	return &WebhookFlowImpl{
		leadRepo:    leadRepo,
		mappingRepo: mappingRepo,
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		txRunner:    txRunner,
		rc:          rc,
		replies:     replies,
		strictMode:  strictMode,
		logger:      logger,
	}
}

// ProcessIncoming normalizes and persists one inbound webhook delivery. In
// lenient mode malformed or unattributable payloads are dropped with a nil
// result; in strict mode they surface as errors.
func (s *WebhookFlowImpl) ProcessIncoming(ctx context.Context, form map[string]string) (*IngestResult, error) {
	normalized := NormalizeWhatsAppPayload(form)
	if normalized == nil {
		if s.strictMode {
			return nil, NewValidationError("Payload is missing MessageSid or From", ErrEmptyPayload)
		}
		s.logger.Printf("webhook: dropping payload without message sid or sender")
		return nil, nil
	}

	if s.alreadySeen(ctx, normalized.MessageSid) {
		s.logger.Printf("webhook: duplicate message sid %s, skipping", normalized.MessageSid)
		return &IngestResult{Normalized: normalized, Duplicate: true}, nil
	}

	result := &IngestResult{Normalized: normalized}
	err := s.txRunner.Run(ctx, func(txCtx context.Context) error {
		return s.persistInbound(txCtx, normalized, result)
	})
	if err != nil {
		if IsUnattributableChat(err) && !s.strictMode {
			s.logger.Printf("webhook: no active mapping for destination %s, dropping", normalized.To)
			return nil, nil
		}
		if _, ok := err.(*BusinessError); ok {
			return nil, err
		}
		return nil, NewInfrastructureError("Failed to persist inbound message", err)
	}

	s.submitAutoReply(ctx, normalized, result)

	return result, nil
}

// alreadySeen checks both the cache and the store for the provider message id.
// The cache is a best-effort accelerator; the store check is authoritative.
func (s *WebhookFlowImpl) alreadySeen(ctx context.Context, messageSid string) bool {
	if s.rc != nil {
		key := "webhook:sid:" + messageSid
		set, err := s.rc.SetNX(ctx, key, 1, dedupTTL).Result()
		if err == nil && !set {
			return true
		}
		if err != nil {
			s.logger.Printf("webhook: dedup cache unavailable: %v", err)
		}
	}

	existing, err := s.messageRepo.ByProviderMessageID(ctx, messageSid)
	if err != nil {
		s.logger.Printf("webhook: dedup lookup failed: %v", err)
		return false
	}
	return existing != nil
}

func (s *WebhookFlowImpl) persistInbound(ctx context.Context, normalized *NormalizedInboundMessage, result *IngestResult) error {
	mapping, err := s.resolveMapping(ctx, normalized.To)
	if err != nil {
		return err
	}

	lead, err := s.upsertLead(ctx, mapping.BusinessID, normalized)
	if err != nil {
		return err
	}
	result.Lead = lead

	chat, err := s.findOrCreateChat(ctx, lead.ID, mapping.ID)
	if err != nil {
		return err
	}
	result.Chat = chat

	msgType := models.MessageTypeText
	if normalized.HasMedia() {
		msgType = models.MessageTypeFromContentType(normalized.Media[0].ContentType)
	}

	payload := make(models.MessagePayload, len(normalized.Raw))
	for k, v := range normalized.Raw {
		payload[k] = v
	}

	message := &models.Message{
		ChatID:            chat.ID,
		Direction:         models.MessageDirectionInbound,
		MsgType:           msgType,
		Text:              utils.ToPtr(normalized.Body),
		Payload:           payload,
		ProviderMessageID: utils.ToPtr(normalized.MessageSid),
		CreatedAt:         normalized.ReceivedAt,
	}
	if err := s.messageRepo.Save(ctx, message); err != nil {
		return fmt.Errorf("failed to append inbound message: %w", err)
	}
	result.Message = message

	if err := s.chatRepo.RecordInbound(ctx, chat.ID, normalized.ReceivedAt); err != nil {
		return fmt.Errorf("failed to update chat counters: %w", err)
	}

	return nil
}

// resolveMapping finds the active channel mapping whose page id matches the
// destination address. The provider sometimes delivers the address with a
// "whatsapp:" prefix or without the leading plus, so all spellings are tried.
func (s *WebhookFlowImpl) resolveMapping(ctx context.Context, to string) (*models.BusinessSocialMedia, error) {
	if to == "" {
		return nil, ErrUnattributableChat
	}

	candidates := []string{to, "whatsapp:" + to}
	if strings.HasPrefix(to, "+") {
		trimmed := strings.TrimPrefix(to, "+")
		candidates = append(candidates, trimmed, "whatsapp:"+trimmed)
	} else {
		candidates = append(candidates, "+"+to, "whatsapp:+"+to)
	}

	mapping, err := s.mappingRepo.ActiveByPlatformAndPageIDs(ctx, models.SocialPlatformWhatsApp, candidates)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve channel mapping: %w", err)
	}
	if mapping == nil {
		if s.strictMode {
			return nil, NewNotFoundError("No active channel mapping for destination", ErrUnattributableChat)
		}
		return nil, ErrUnattributableChat
	}
	return mapping, nil
}

// upsertLead finds or creates the lead for the sender. Existing leads only
// get their display name refreshed; score and phone are never overwritten here.
func (s *WebhookFlowImpl) upsertLead(ctx context.Context, businessID uint, normalized *NormalizedInboundMessage) (*models.Lead, error) {
	// The WhatsApp account id is the stable identity; the phone is a fallback.
	providerUserID := normalized.From.WaID
	if providerUserID == "" {
		providerUserID = normalized.From.Phone
	}

	lead, err := s.leadRepo.ByProviderUser(ctx, businessID, normalized.Provider, providerUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup lead: %w", err)
	}

	if lead == nil {
		lead = &models.Lead{
			BusinessID:     businessID,
			Provider:       normalized.Provider,
			ProviderUserID: providerUserID,
			Phone:          utils.ToPtr(normalized.From.Phone),
		}
		if normalized.From.Name != "" {
			lead.DisplayName = utils.ToPtr(normalized.From.Name)
		}
		if err := s.leadRepo.Save(ctx, lead); err != nil {
			return nil, fmt.Errorf("failed to create lead: %w", err)
		}
		return lead, nil
	}

	if normalized.From.Name != "" && (lead.DisplayName == nil || *lead.DisplayName != normalized.From.Name) {
		lead.DisplayName = utils.ToPtr(normalized.From.Name)
		if err := s.leadRepo.Update(ctx, *lead); err != nil {
			return nil, fmt.Errorf("failed to refresh lead display name: %w", err)
		}
	}

	return lead, nil
}

func (s *WebhookFlowImpl) findOrCreateChat(ctx context.Context, leadID, mappingID uint) (*models.Chat, error) {
	chat, err := s.chatRepo.OpenByLeadAndMapping(ctx, leadID, mappingID)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup open chat: %w", err)
	}
	if chat != nil {
		return chat, nil
	}

	chat = &models.Chat{
		LeadID:                leadID,
		BusinessSocialMediaID: mappingID,
		Status:                models.ChatStatusOpen,
	}
	if err := s.chatRepo.Save(ctx, chat); err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}
	return chat, nil
}

// submitAutoReply hands the persisted message to the reply dispatcher. The
// webhook response never waits on this.
func (s *WebhookFlowImpl) submitAutoReply(ctx context.Context, normalized *NormalizedInboundMessage, result *IngestResult) {
	if s.replies == nil || result.Chat == nil || result.Lead == nil {
		return
	}

	stats := s.sessionStats(ctx, result.Chat, normalized.ReceivedAt)
	s.replies.Submit(AutoReplyTask{
		ChatID:      result.Chat.ID,
		LeadPhone:   normalized.From.Phone,
		PageAddress: normalized.To,
		Provider:    normalized.Provider,
		Channel:     normalized.Channel,
		Body:        normalized.Body,
		Stats:       stats,
	})
}

// sessionStats derives conversation session context from recent chat history.
// Failures degrade to zeroed stats; they never block the reply.
func (s *WebhookFlowImpl) sessionStats(ctx context.Context, chat *models.Chat, receivedAt time.Time) ChatSessionStats {
	stats := ChatSessionStats{TimeOfDay: timeOfDay(receivedAt)}

	messages, err := s.messageRepo.ListByChatSince(ctx, chat.ID, receivedAt.Add(-sessionWindow))
	if err != nil {
		s.logger.Printf("webhook: session stats lookup failed: %v", err)
		return stats
	}

	stats.MessagesInSession = len(messages)
	if len(messages) > 0 {
		first := messages[0]
		stats.ConversationDurationMinutes = int(receivedAt.Sub(first.CreatedAt).Minutes())
		stats.UserInitiatedConversation = first.Direction == models.MessageDirectionInbound
	}
	stats.UserResponseTimeAvgSeconds = userResponseAvgSeconds(messages)
	return stats
}

// userResponseAvgSeconds averages how long the user took to answer across the
// session: each gap between an outbound message and the next inbound one.
func userResponseAvgSeconds(messages []*models.Message) int {
	var total time.Duration
	var count int
	for i := 1; i < len(messages); i++ {
		prev, cur := messages[i-1], messages[i]
		if prev.Direction == models.MessageDirectionOutbound && cur.Direction == models.MessageDirectionInbound {
			total += cur.CreatedAt.Sub(prev.CreatedAt)
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return int(total.Seconds()) / count
}

func timeOfDay(t time.Time) string {
	hour := t.UTC().Hour()
	if hour >= 9 && hour < 18 {
		return "business_hours"
	}
	return "after_hours"
}
