package businessflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chatspire/susanoo/app/services"
	"github.com/chatspire/susanoo/models"
	fakes "github.com/chatspire/susanoo/testing"
	"github.com/chatspire/susanoo/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type answerStub struct {
	result   *services.AnswerResult
	err      error
	requests []services.AnswerRequest
}

func (a *answerStub) Answer(ctx context.Context, req services.AnswerRequest) (*services.AnswerResult, error) {
	a.requests = append(a.requests, req)
	return a.result, a.err
}

func runDispatcher(t *testing.T, answers services.AnswerClient, sender services.OutboundSender, messages *fakes.FakeMessageRepository, chats *fakes.FakeChatRepository, task AutoReplyTask) {
	t.Helper()
	d := NewAutoReplyDispatcher(answers, sender, messages, chats, time.Second, 4, nil)
	d.Start()
	d.Submit(task)
	d.Stop()
}

func TestAutoReplyDispatcherSendsReply(t *testing.T) {
	answers := &answerStub{result: &services.AnswerResult{
		Answer:     "We close at 6pm.",
		Model:      utils.ToPtr("assistant-v2"),
		Confidence: utils.ToPtr(0.92),
	}}
	sender := services.NewMockOutboundSender()
	messages := fakes.NewFakeMessageRepository()
	chats := fakes.NewFakeChatRepository()

	chat := &models.Chat{LeadID: 1, BusinessSocialMediaID: 1, Status: models.ChatStatusOpen}
	require.NoError(t, chats.Save(context.Background(), chat))

	runDispatcher(t, answers, sender, messages, chats, AutoReplyTask{
		ChatID:      chat.ID,
		LeadPhone:   "+15551234567",
		PageAddress: "+15559876543",
		Provider:    ProviderTwilio,
		Channel:     "whatsapp",
		Body:        "When do you close?",
		Stats:       ChatSessionStats{MessagesInSession: 3, UserResponseTimeAvgSeconds: 45, TimeOfDay: "business_hours"},
	})

	require.Len(t, answers.requests, 1)
	assert.Equal(t, "When do you close?", answers.requests[0].Message)
	assert.Equal(t, chat.ID, answers.requests[0].Context.ChatID)
	assert.Equal(t, 3, answers.requests[0].Context.MessagesInSession)
	assert.Equal(t, 45, answers.requests[0].Context.UserResponseTimeAvgSeconds)

	count, err := messages.CountByChat(context.Background(), chat.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	persisted, err := messages.ListByChatSince(context.Background(), chat.ID, utils.UTCNowAdd(-time.Minute))
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, models.MessageDirectionOutbound, persisted[0].Direction)
	assert.True(t, persisted[0].AIReply)
	require.NotNil(t, persisted[0].AIModel)
	assert.Equal(t, "assistant-v2", *persisted[0].AIModel)
	require.NotNil(t, persisted[0].Text)
	assert.Equal(t, "We close at 6pm.", *persisted[0].Text)

	sent := sender.GetSentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "+15551234567", sent[0].To)
	assert.Equal(t, "We close at 6pm.", sent[0].Body)

	updated, err := chats.ByID(context.Background(), chat.ID)
	require.NoError(t, err)
	assert.NotNil(t, updated.LastOutboundAt)
}

func TestAutoReplyDispatcherDisabledWithoutAnswerClient(t *testing.T) {
	sender := services.NewMockOutboundSender()
	messages := fakes.NewFakeMessageRepository()
	chats := fakes.NewFakeChatRepository()

	runDispatcher(t, nil, sender, messages, chats, AutoReplyTask{ChatID: 1, Body: "hi"})

	assert.Empty(t, sender.GetSentMessages())
	count, err := messages.CountByChat(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAutoReplyDispatcherSwallowsAnswerFailure(t *testing.T) {
	answers := &answerStub{err: errors.New("answering service down")}
	sender := services.NewMockOutboundSender()
	messages := fakes.NewFakeMessageRepository()
	chats := fakes.NewFakeChatRepository()

	runDispatcher(t, answers, sender, messages, chats, AutoReplyTask{ChatID: 1, Body: "hi"})

	assert.Empty(t, sender.GetSentMessages())
	count, err := messages.CountByChat(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAutoReplyDispatcherSkipsEmptyAnswer(t *testing.T) {
	answers := &answerStub{result: &services.AnswerResult{Answer: ""}}
	sender := services.NewMockOutboundSender()
	messages := fakes.NewFakeMessageRepository()
	chats := fakes.NewFakeChatRepository()

	runDispatcher(t, answers, sender, messages, chats, AutoReplyTask{ChatID: 1, Body: "hi"})

	assert.Empty(t, sender.GetSentMessages())
	count, err := messages.CountByChat(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, count)
}
