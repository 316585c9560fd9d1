package businessflow

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/chatspire/susanoo/app/services"
	"github.com/chatspire/susanoo/models"
	"github.com/chatspire/susanoo/repository"
	"github.com/chatspire/susanoo/utils"
)

// AutoReplyTask is one unit of fire-and-forget reply work produced by the
// ingestion pipeline.
type AutoReplyTask struct {
	ChatID      uint
	LeadPhone   string
	PageAddress string
	Provider    string
	Channel     string
	Body        string
	Stats       ChatSessionStats
}

// AutoReplyDispatcher consumes reply tasks on a background worker. A failed
// or empty answer just logs; nothing propagates back to the webhook path,
// and the outbound message is written only after the answering service
// produced a reply.
type AutoReplyDispatcher struct {
	answers     services.AnswerClient
	sender      services.OutboundSender
	messageRepo repository.MessageRepository
	chatRepo    repository.ChatRepository
	timeout     time.Duration
	logger      *log.Logger

	tasks    chan AutoReplyTask
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewAutoReplyDispatcher creates a dispatcher. A nil answer client disables
// auto replies entirely; submitted tasks are silently discarded.
func NewAutoReplyDispatcher(
	answers services.AnswerClient,
	sender services.OutboundSender,
	messageRepo repository.MessageRepository,
	chatRepo repository.ChatRepository,
	timeout time.Duration,
	queueSize int,
	logger *log.Logger,
) *AutoReplyDispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	return &AutoReplyDispatcher{
		answers:     answers,
		sender:      sender,
		messageRepo: messageRepo,
		chatRepo:    chatRepo,
		timeout:     timeout,
		logger:      logger,
		tasks:       make(chan AutoReplyTask, queueSize),
	}
}

// Start launches the background worker
func (d *AutoReplyDispatcher) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for task := range d.tasks {
			d.process(task)
		}
	}()
}

// Stop drains the queue and waits for in-flight work to finish
func (d *AutoReplyDispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.tasks)
	})
	d.wg.Wait()
}

// Submit enqueues a task without blocking. When the queue is full the task
// is dropped; an auto reply is best effort.
func (d *AutoReplyDispatcher) Submit(task AutoReplyTask) {
	if d.answers == nil {
		return
	}
	select {
	case d.tasks <- task:
	default:
		d.logger.Printf("auto-reply: queue full, dropping task for chat %d", task.ChatID)
	}
}

func (d *AutoReplyDispatcher) process(task AutoReplyTask) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Printf("auto-reply: panic processing chat %d: %v", task.ChatID, r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	result, err := d.answers.Answer(ctx, services.AnswerRequest{
		Message:  task.Body,
		Provider: task.Provider,
		Channel:  task.Channel,
		From:     task.LeadPhone,
		To:       task.PageAddress,
		Context: services.AnswerContext{
			ChatID:                      task.ChatID,
			MessagesInSession:           task.Stats.MessagesInSession,
			ConversationDurationMinutes: task.Stats.ConversationDurationMinutes,
			UserResponseTimeAvgSeconds:  task.Stats.UserResponseTimeAvgSeconds,
			UserInitiatedConversation:   task.Stats.UserInitiatedConversation,
			TimeOfDay:                   task.Stats.TimeOfDay,
		},
	})
	if err != nil {
		d.logger.Printf("auto-reply: answering service failed for chat %d: %v", task.ChatID, err)
		return
	}
	if result == nil || result.Answer == "" {
		d.logger.Printf("auto-reply: empty answer for chat %d, skipping", task.ChatID)
		return
	}

	now := utils.UTCNow()
	message := &models.Message{
		ChatID:       task.ChatID,
		Direction:    models.MessageDirectionOutbound,
		MsgType:      models.MessageTypeText,
		Text:         utils.ToPtr(result.Answer),
		AIReply:      true,
		AIModel:      result.Model,
		AIConfidence: result.Confidence,
		CreatedAt:    now,
	}
	if err := d.messageRepo.Save(ctx, message); err != nil {
		d.logger.Printf("auto-reply: failed to persist reply for chat %d: %v", task.ChatID, err)
		return
	}
	if err := d.chatRepo.RecordOutbound(ctx, task.ChatID, now); err != nil {
		d.logger.Printf("auto-reply: failed to update chat counters for chat %d: %v", task.ChatID, err)
	}

	if d.sender != nil {
		if _, err := d.sender.Send(ctx, services.OutboundMessage{
			From: task.PageAddress,
			To:   task.LeadPhone,
			Body: result.Answer,
		}); err != nil {
			d.logger.Printf("auto-reply: delivery failed for chat %d: %v", task.ChatID, err)
		}
	}
}
