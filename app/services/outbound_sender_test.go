package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhatsAppAddress(t *testing.T) {
	assert.Equal(t, "whatsapp:+15551234567", whatsappAddress("+15551234567"))
	assert.Equal(t, "whatsapp:+15551234567", whatsappAddress("whatsapp:+15551234567"))
	assert.Equal(t, "WHATSAPP:+15551234567", whatsappAddress("WHATSAPP:+15551234567"))
}

func TestMockOutboundSenderRecordsDeliveries(t *testing.T) {
	sender := NewMockOutboundSender()

	first, err := sender.Send(context.Background(), OutboundMessage{From: "+1555000", To: "+1555111", Body: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "MM0000000001", first.MessageSid)

	second, err := sender.Send(context.Background(), OutboundMessage{From: "+1555000", To: "+1555222", Body: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "MM0000000002", second.MessageSid)

	sent := sender.GetSentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, "+1555111", sent[0].To)
	assert.Equal(t, "hello", sent[0].Body)
	assert.False(t, sent[0].SentAt.IsZero())

	sender.ClearSentMessages()
	assert.Empty(t, sender.GetSentMessages())
}

func TestMockOutboundSenderFailFor(t *testing.T) {
	sender := NewMockOutboundSender()
	boom := errors.New("blocked recipient")
	sender.FailFor["+1555111"] = boom

	receipt, err := sender.Send(context.Background(), OutboundMessage{To: "+1555111", Body: "hello"})
	assert.Nil(t, receipt)
	assert.ErrorIs(t, err, boom)

	receipt, err = sender.Send(context.Background(), OutboundMessage{To: "+1555222", Body: "hello"})
	require.NoError(t, err)
	assert.NotNil(t, receipt)
	assert.Len(t, sender.GetSentMessages(), 1)
}
