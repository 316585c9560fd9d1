package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/chatspire/susanoo/models"
	fakes "github.com/chatspire/susanoo/testing"
	"github.com/chatspire/susanoo/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type replyRecorder struct {
	tasks []AutoReplyTask
}

func (r *replyRecorder) Submit(task AutoReplyTask) {
	r.tasks = append(r.tasks, task)
}

type webhookFixture struct {
	leads    *fakes.FakeLeadRepository
	mappings *fakes.FakeBusinessSocialMediaRepository
	chats    *fakes.FakeChatRepository
	messages *fakes.FakeMessageRepository
	replies  *replyRecorder
	flow     WebhookFlow
}

func newWebhookFixture(t *testing.T, strictMode bool) *webhookFixture {
	t.Helper()
	f := &webhookFixture{
		leads:    fakes.NewFakeLeadRepository(),
		mappings: fakes.NewFakeBusinessSocialMediaRepository(),
		chats:    fakes.NewFakeChatRepository(),
		messages: fakes.NewFakeMessageRepository(),
		replies:  &replyRecorder{},
	}
	f.flow = NewWebhookFlow(f.leads, f.mappings, f.chats, f.messages, fakes.SequentialTxRunner{}, nil, f.replies, strictMode, nil)
	return f
}

func (f *webhookFixture) addMapping(businessID uint, pageID string) {
	_ = f.mappings.Save(context.Background(), &models.BusinessSocialMedia{
		BusinessID: businessID,
		Platform:   models.SocialPlatformWhatsApp,
		PageID:     pageID,
		IsActive:   true,
	})
}

func inboundForm(sid, body string) map[string]string {
	return map[string]string{
		"MessageSid":  sid,
		"AccountSid":  "AC1",
		"From":        "whatsapp:+15551234567",
		"To":          "whatsapp:+15559876543",
		"Body":        body,
		"ProfileName": "Alice",
		"NumMedia":    "0",
	}
}

func TestProcessIncomingCreatesLeadChatAndMessage(t *testing.T) {
	f := newWebhookFixture(t, false)
	f.addMapping(7, "+15559876543")

	result, err := f.flow.ProcessIncoming(context.Background(), inboundForm("SM1", "hi"))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Duplicate)

	require.NotNil(t, result.Lead)
	assert.Equal(t, uint(7), result.Lead.BusinessID)
	assert.Equal(t, ProviderTwilio, result.Lead.Provider)
	assert.Equal(t, "+15551234567", result.Lead.ProviderUserID)
	require.NotNil(t, result.Lead.DisplayName)
	assert.Equal(t, "Alice", *result.Lead.DisplayName)

	require.NotNil(t, result.Chat)
	assert.Equal(t, models.ChatStatusOpen, result.Chat.Status)

	require.NotNil(t, result.Message)
	assert.Equal(t, models.MessageDirectionInbound, result.Message.Direction)
	assert.Equal(t, models.MessageTypeText, result.Message.MsgType)
	require.NotNil(t, result.Message.ProviderMessageID)
	assert.Equal(t, "SM1", *result.Message.ProviderMessageID)

	// chat counters updated
	chat, err := f.chats.ByID(context.Background(), result.Chat.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, chat.MessageCount)
	assert.NotNil(t, chat.LastInboundAt)

	// reply worker got the task
	require.Len(t, f.replies.tasks, 1)
	assert.Equal(t, result.Chat.ID, f.replies.tasks[0].ChatID)
	assert.Equal(t, "+15551234567", f.replies.tasks[0].LeadPhone)
	assert.Equal(t, "hi", f.replies.tasks[0].Body)
}

func TestProcessIncomingTagsUnrecognizedProvider(t *testing.T) {
	f := newWebhookFixture(t, false)
	f.addMapping(7, "+15559876543")

	// Plain addresses without whatsapp markers cannot be attributed to Twilio.
	form := map[string]string{
		"MessageSid": "SM1",
		"From":       "+15551234567",
		"To":         "+15559876543",
		"Body":       "hi",
	}
	result, err := f.flow.ProcessIncoming(context.Background(), form)
	require.NoError(t, err)
	require.NotNil(t, result.Lead)
	assert.Equal(t, "unknown", result.Normalized.Provider)
	assert.Equal(t, "unknown", result.Lead.Provider)

	stored, err := f.leads.ByID(context.Background(), result.Lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "unknown", stored.Provider)
}

func TestProcessIncomingPrefersWaIDForLeadIdentity(t *testing.T) {
	f := newWebhookFixture(t, false)
	f.addMapping(7, "+15559876543")

	form := inboundForm("SM1", "hi")
	form["WaId"] = "15551234567"

	result, err := f.flow.ProcessIncoming(context.Background(), form)
	require.NoError(t, err)
	require.NotNil(t, result.Lead)
	assert.Equal(t, "15551234567", result.Lead.ProviderUserID)
	require.NotNil(t, result.Lead.Phone)
	assert.Equal(t, "+15551234567", *result.Lead.Phone)

	// A second delivery keyed by the same account id reuses the lead.
	form2 := inboundForm("SM2", "again")
	form2["WaId"] = "15551234567"
	second, err := f.flow.ProcessIncoming(context.Background(), form2)
	require.NoError(t, err)
	assert.Equal(t, result.Lead.ID, second.Lead.ID)
}

func TestProcessIncomingSecondDeliveryIsDuplicate(t *testing.T) {
	f := newWebhookFixture(t, false)
	f.addMapping(7, "+15559876543")

	first, err := f.flow.ProcessIncoming(context.Background(), inboundForm("SM42", "hello"))
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.False(t, first.Duplicate)

	second, err := f.flow.ProcessIncoming(context.Background(), inboundForm("SM42", "hello"))
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.True(t, second.Duplicate)
	assert.Nil(t, second.Message)

	// only one message persisted and one reply submitted
	count, err := f.messages.CountByChat(context.Background(), first.Chat.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Len(t, f.replies.tasks, 1)
}

func TestProcessIncomingReusesOpenChat(t *testing.T) {
	f := newWebhookFixture(t, false)
	f.addMapping(7, "+15559876543")

	first, err := f.flow.ProcessIncoming(context.Background(), inboundForm("SM1", "one"))
	require.NoError(t, err)
	second, err := f.flow.ProcessIncoming(context.Background(), inboundForm("SM2", "two"))
	require.NoError(t, err)

	assert.Equal(t, first.Chat.ID, second.Chat.ID)
	assert.Equal(t, first.Lead.ID, second.Lead.ID)

	chat, err := f.chats.ByID(context.Background(), first.Chat.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, chat.MessageCount)
}

func TestProcessIncomingMalformedPayloadLenient(t *testing.T) {
	f := newWebhookFixture(t, false)

	result, err := f.flow.ProcessIncoming(context.Background(), map[string]string{"Body": "no sid"})
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestProcessIncomingMalformedPayloadStrict(t *testing.T) {
	f := newWebhookFixture(t, true)

	result, err := f.flow.ProcessIncoming(context.Background(), map[string]string{"Body": "no sid"})
	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, IsEmptyPayload(err))
}

func TestProcessIncomingUnattributableLenient(t *testing.T) {
	f := newWebhookFixture(t, false)
	// no mapping registered

	result, err := f.flow.ProcessIncoming(context.Background(), inboundForm("SM1", "hi"))
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.Empty(t, f.replies.tasks)
}

func TestProcessIncomingUnattributableStrict(t *testing.T) {
	f := newWebhookFixture(t, true)

	result, err := f.flow.ProcessIncoming(context.Background(), inboundForm("SM1", "hi"))
	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, IsUnattributableChat(err))
}

func TestProcessIncomingRefreshesDisplayName(t *testing.T) {
	f := newWebhookFixture(t, false)
	f.addMapping(7, "+15559876543")

	lead := &models.Lead{
		BusinessID:     7,
		Provider:       ProviderTwilio,
		ProviderUserID: "+15551234567",
		Phone:          utils.ToPtr("+15551234567"),
		DisplayName:    utils.ToPtr("Old Name"),
	}
	require.NoError(t, f.leads.Save(context.Background(), lead))

	result, err := f.flow.ProcessIncoming(context.Background(), inboundForm("SM1", "hi"))
	require.NoError(t, err)

	assert.Equal(t, lead.ID, result.Lead.ID)
	refreshed, err := f.leads.ByID(context.Background(), lead.ID)
	require.NoError(t, err)
	require.NotNil(t, refreshed.DisplayName)
	assert.Equal(t, "Alice", *refreshed.DisplayName)
}

func TestProcessIncomingMediaMessageType(t *testing.T) {
	f := newWebhookFixture(t, false)
	f.addMapping(7, "+15559876543")

	form := inboundForm("SM9", "")
	form["NumMedia"] = "1"
	form["MediaUrl0"] = "https://api.twilio.com/media/0"
	form["MediaContentType0"] = "image/png"

	result, err := f.flow.ProcessIncoming(context.Background(), form)
	require.NoError(t, err)
	require.NotNil(t, result.Message)
	assert.Equal(t, models.MessageTypeImage, result.Message.MsgType)
}

func TestUserResponseAvgSeconds(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	msg := func(direction models.MessageDirection, offset time.Duration) *models.Message {
		return &models.Message{Direction: direction, CreatedAt: base.Add(offset)}
	}

	// Two outbound-to-inbound gaps of 30s and 90s average to 60s.
	messages := []*models.Message{
		msg(models.MessageDirectionInbound, 0),
		msg(models.MessageDirectionOutbound, 10*time.Second),
		msg(models.MessageDirectionInbound, 40*time.Second),
		msg(models.MessageDirectionOutbound, 60*time.Second),
		msg(models.MessageDirectionInbound, 150*time.Second),
	}
	assert.Equal(t, 60, userResponseAvgSeconds(messages))

	// No outbound messages means there is nothing to respond to.
	assert.Equal(t, 0, userResponseAvgSeconds([]*models.Message{
		msg(models.MessageDirectionInbound, 0),
		msg(models.MessageDirectionInbound, 30*time.Second),
	}))
	assert.Equal(t, 0, userResponseAvgSeconds(nil))
}

func TestProcessIncomingReportsUserResponseTime(t *testing.T) {
	f := newWebhookFixture(t, false)
	f.addMapping(7, "+15559876543")

	first, err := f.flow.ProcessIncoming(context.Background(), inboundForm("SM1", "hi"))
	require.NoError(t, err)

	// The business answered 90 seconds before the follow-up arrives.
	outbound := &models.Message{
		ChatID:    first.Chat.ID,
		Direction: models.MessageDirectionOutbound,
		Text:      utils.ToPtr("how can we help?"),
		CreatedAt: utils.UTCNowAdd(-90 * time.Second),
	}
	require.NoError(t, f.messages.Save(context.Background(), outbound))

	_, err = f.flow.ProcessIncoming(context.Background(), inboundForm("SM2", "question"))
	require.NoError(t, err)

	require.Len(t, f.replies.tasks, 2)
	stats := f.replies.tasks[1].Stats
	assert.InDelta(t, 90, stats.UserResponseTimeAvgSeconds, 2)
	assert.Equal(t, 3, stats.MessagesInSession)
}

func TestTimeOfDay(t *testing.T) {
	assert.Equal(t, "business_hours", timeOfDay(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, "business_hours", timeOfDay(time.Date(2026, 3, 1, 17, 59, 0, 0, time.UTC)))
	assert.Equal(t, "after_hours", timeOfDay(time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)))
	assert.Equal(t, "after_hours", timeOfDay(time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)))
}
