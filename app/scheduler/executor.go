// Package scheduler
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/chatspire/susanoo/app/services"
	businessflow "github.com/chatspire/susanoo/business_flow"
	"github.com/chatspire/susanoo/models"
	"github.com/chatspire/susanoo/repository"
	"github.com/chatspire/susanoo/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	campaignMessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campaign_messages_sent_total",
		Help: "Total campaign messages handed to the provider",
	})
	campaignMessagesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campaign_messages_failed_total",
		Help: "Total campaign messages that failed delivery",
	})
	campaignExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campaign_executions_total",
		Help: "Campaign drain outcomes",
	}, []string{"outcome"})
)

// Executor drains prepared campaigns: it walks the pending recipient logs
// sequentially and records per-recipient outcomes. A recipient failure never
// aborts the drain; only campaign-level preconditions fail the whole job.
type Executor struct {
	campaignRepo repository.CampaignRepository
	logRepo      repository.CampaignLogRepository
	messageRepo  repository.MessageRepository
	chatRepo     repository.ChatRepository
	mappingRepo  repository.BusinessSocialMediaRepository
	sender       services.OutboundSender
	sendDelay    time.Duration
	logger       *log.Logger
}

// NewExecutor creates a campaign executor
func NewExecutor(
	campaignRepo repository.CampaignRepository,
	logRepo repository.CampaignLogRepository,
	messageRepo repository.MessageRepository,
	chatRepo repository.ChatRepository,
	mappingRepo repository.BusinessSocialMediaRepository,
	sender services.OutboundSender,
	sendDelay time.Duration,
	logger *log.Logger,
) *Executor {
	if sendDelay < 0 {
		sendDelay = 0
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Executor{
		campaignRepo: campaignRepo,
		logRepo:      logRepo,
		messageRepo:  messageRepo,
		chatRepo:     chatRepo,
		mappingRepo:  mappingRepo,
		sender:       sender,
		sendDelay:    sendDelay,
		logger:       logger,
	}
}

// Execute drains one campaign to completion. Calling it again on a drained
// campaign finds no pending logs and leaves the counters untouched.
func (e *Executor) Execute(ctx context.Context, campaignID uint) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = businessflow.NewFatalJobError(fmt.Sprintf("panic draining campaign %d", campaignID), fmt.Errorf("%v", r))
			e.failCampaign(campaignID)
		}
	}()

	campaign, err := e.campaignRepo.ByID(ctx, campaignID)
	if err != nil {
		return businessflow.NewInfrastructureError("Failed to load campaign", err)
	}
	if campaign == nil {
		return businessflow.NewFatalJobError("Campaign does not exist", businessflow.ErrCampaignNotFound)
	}

	// Recurring campaigns are re-driven by their timer; anything else that
	// already finished stays finished.
	if campaign.Status.IsTerminal() && campaign.ScheduleType != models.ScheduleTypeRecurring {
		e.logger.Printf("executor: campaign %d already %s, skipping", campaignID, campaign.Status)
		return nil
	}

	if err := e.campaignRepo.UpdateStatus(ctx, campaignID, models.CampaignStatusRunning); err != nil {
		return businessflow.NewInfrastructureError("Failed to mark campaign running", err)
	}

	mapping, err := e.mappingRepo.ActiveByBusinessAndPlatform(ctx, campaign.BusinessID, models.SocialPlatformWhatsApp)
	if err != nil {
		e.failCampaign(campaignID)
		return businessflow.NewInfrastructureError("Failed to resolve channel mapping", err)
	}
	if mapping == nil {
		e.failCampaign(campaignID)
		return businessflow.NewFatalJobError("Campaign business has no active channel", businessflow.ErrMappingNotFound)
	}

	pending, err := e.logRepo.ListPendingByCampaign(ctx, campaignID)
	if err != nil {
		e.failCampaign(campaignID)
		return businessflow.NewInfrastructureError("Failed to load pending recipients", err)
	}

	sent, failed := e.drain(ctx, campaign, mapping, pending)

	if sent > 0 || failed > 0 {
		if err := e.campaignRepo.IncrementCounters(ctx, campaignID, sent, failed); err != nil {
			e.failCampaign(campaignID)
			return businessflow.NewInfrastructureError("Failed to update campaign counters", err)
		}
	}

	if err := e.campaignRepo.UpdateStatus(ctx, campaignID, models.CampaignStatusCompleted); err != nil {
		return businessflow.NewInfrastructureError("Failed to mark campaign completed", err)
	}

	campaignExecutions.WithLabelValues("completed").Inc()
	e.logger.Printf("executor: campaign %d drained, sent=%d failed=%d", campaignID, sent, failed)
	return nil
}

// drain walks the pending logs in order with the configured inter-send delay
func (e *Executor) drain(ctx context.Context, campaign *models.Campaign, mapping *models.BusinessSocialMedia, pending []*models.CampaignLog) (sent, failed int) {
	for i, logRow := range pending {
		if i > 0 && e.sendDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(e.sendDelay):
			}
		}

		if err := e.deliver(ctx, campaign, mapping, logRow); err != nil {
			failed++
			campaignMessagesFailed.Inc()
			e.logger.Printf("executor: campaign %d recipient %s failed: %v", campaign.ID, logRow.Recipient, err)
			if markErr := e.logRepo.MarkFailed(ctx, logRow.ID, err.Error()); markErr != nil {
				e.logger.Printf("executor: campaign %d failed to record failure for log %d: %v", campaign.ID, logRow.ID, markErr)
			}
			continue
		}

		sent++
		campaignMessagesSent.Inc()
	}
	return sent, failed
}

// deliver sends one pre-rendered message and records it in the conversation
func (e *Executor) deliver(ctx context.Context, campaign *models.Campaign, mapping *models.BusinessSocialMedia, logRow *models.CampaignLog) error {
	receipt, err := e.sender.Send(ctx, services.OutboundMessage{
		From: mapping.PageID,
		To:   logRow.Recipient,
		Body: logRow.MessageContent,
	})
	if err != nil {
		return businessflow.NewTransientDeliveryError("delivery failed", err)
	}

	now := utils.UTCNow()
	message := &models.Message{
		ChatID:            logRow.ChatID,
		Direction:         models.MessageDirectionOutbound,
		MsgType:           models.MessageTypeText,
		Text:              utils.ToPtr(logRow.MessageContent),
		ProviderMessageID: utils.ToPtr(receipt.MessageSid),
		CampaignID:        &campaign.ID,
		CreatedAt:         now,
	}
	if err := e.messageRepo.Save(ctx, message); err != nil {
		return fmt.Errorf("failed to persist outbound message: %w", err)
	}
	if err := e.chatRepo.RecordOutbound(ctx, logRow.ChatID, now); err != nil {
		e.logger.Printf("executor: campaign %d failed to update chat %d counters: %v", campaign.ID, logRow.ChatID, err)
	}

	if err := e.logRepo.MarkSent(ctx, logRow.ID, receipt.MessageSid, now); err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}
	return nil
}

func (e *Executor) failCampaign(campaignID uint) {
	campaignExecutions.WithLabelValues("failed").Inc()
	if err := e.campaignRepo.UpdateStatus(context.Background(), campaignID, models.CampaignStatusFailed); err != nil {
		e.logger.Printf("executor: failed to mark campaign %d failed: %v", campaignID, err)
	}
}
