// Package businessflow contains the core business logic and use cases for campaign workflows
package businessflow

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/chatspire/susanoo/app/dto"
	"github.com/chatspire/susanoo/models"
	"github.com/chatspire/susanoo/repository"
	"github.com/chatspire/susanoo/utils"
	"github.com/xuri/excelize/v2"
)

// CampaignExecutor drains a prepared campaign. Implemented by the scheduler
// package; injected here to keep campaign commands free of timer concerns.
type CampaignExecutor interface {
	Execute(ctx context.Context, campaignID uint) error
}

// RecurringRegistry owns the cron timers of recurring campaigns
type RecurringRegistry interface {
	Register(campaignID uint, cronExpression string) error
	Cancel(campaignID uint)
}

// CampaignFlow handles the campaign lifecycle commands
type CampaignFlow interface {
	CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest) (*dto.CreateCampaignResponse, error)
	ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest) (*dto.ListCampaignsResponse, error)
	GetCampaign(ctx context.Context, req *dto.GetCampaignRequest) (*dto.GetCampaignResponse, error)
	ExecuteCampaign(ctx context.Context, req *dto.ExecuteCampaignRequest) (*dto.ExecuteCampaignResponse, error)
	CancelCampaign(ctx context.Context, req *dto.CancelCampaignRequest) (*dto.CancelCampaignResponse, error)
	ListCampaignLogs(ctx context.Context, req *dto.ListCampaignLogsRequest) (*dto.ListCampaignLogsResponse, error)
	ExportCampaignLogs(ctx context.Context, req *dto.ListCampaignLogsRequest) ([]byte, string, error)
}

// CampaignFlowImpl implements the campaign business flow
type CampaignFlowImpl struct {
	campaignRepo repository.CampaignRepository
	logRepo      repository.CampaignLogRepository
	templateRepo repository.MessageTemplateRepository
	leadRepo     repository.LeadRepository
	chatRepo     repository.ChatRepository
	mappingRepo  repository.BusinessSocialMediaRepository
	txRunner     repository.TxRunner
	executor     CampaignExecutor
	registry     RecurringRegistry
	logger       *log.Logger
}

// NewCampaignFlow creates a new campaign flow instance
func NewCampaignFlow(
	campaignRepo repository.CampaignRepository,
	logRepo repository.CampaignLogRepository,
	templateRepo repository.MessageTemplateRepository,
	leadRepo repository.LeadRepository,
	chatRepo repository.ChatRepository,
	mappingRepo repository.BusinessSocialMediaRepository,
	txRunner repository.TxRunner,
	executor CampaignExecutor,
	registry RecurringRegistry,
	logger *log.Logger,
) CampaignFlow {
	if logger == nil {
		logger = log.Default()
	}
	return &CampaignFlowImpl{
		campaignRepo: campaignRepo,
		logRepo:      logRepo,
		templateRepo: templateRepo,
		leadRepo:     leadRepo,
		chatRepo:     chatRepo,
		mappingRepo:  mappingRepo,
		txRunner:     txRunner,
		executor:     executor,
		registry:     registry,
		logger:       logger,
	}
}

// CreateCampaign validates the command, prepares the audience, and arms the
// campaign trigger. Preparation fixes the recipient set: audience selection,
// rendering, and total_recipients all happen here and never again.
func (s *CampaignFlowImpl) CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest) (*dto.CreateCampaignResponse, error) {
	if err := s.validateCreateCampaignRequest(req); err != nil {
		return nil, NewValidationError("Campaign validation failed", err)
	}

	template, err := s.templateRepo.ByUUID(ctx, req.TemplateUUID)
	if err != nil {
		return nil, NewInfrastructureError("Failed to lookup template", err)
	}
	if template == nil || template.BusinessID != req.BusinessID || !template.IsActive {
		return nil, NewNotFoundError("Message template not found", ErrTemplateNotFound)
	}

	var campaign *models.Campaign
	var prep *preparationResult

	err = s.txRunner.Run(ctx, func(txCtx context.Context) error {
		var err error
		campaign, prep, err = s.prepareCampaign(txCtx, req, template)
		return err
	})
	if err != nil {
		if _, ok := err.(*BusinessError); ok {
			return nil, err
		}
		return nil, NewInfrastructureError("Campaign creation failed", err)
	}

	s.armTrigger(campaign)

	return &dto.CreateCampaignResponse{
		Message:         "Campaign created successfully",
		ID:              campaign.ID,
		UUID:            campaign.UUID.String(),
		Status:          string(campaign.Status),
		CreatedAt:       campaign.CreatedAt.Format(time.RFC3339),
		ValidRecipients: len(prep.logs),
		SkippedLeads:    len(prep.skipped),
		SkippedDetails:  prep.skipped,
	}, nil
}

type preparationResult struct {
	logs    []*models.CampaignLog
	skipped []dto.SkippedLeadDTO
}

// prepareCampaign persists the campaign and its fully rendered recipient logs
func (s *CampaignFlowImpl) prepareCampaign(ctx context.Context, req *dto.CreateCampaignRequest, template *models.MessageTemplate) (*models.Campaign, *preparationResult, error) {
	campaign := &models.Campaign{
		BusinessID:     req.BusinessID,
		TemplateID:     template.ID,
		Name:           req.Name,
		ScheduleType:   models.CampaignScheduleType(req.ScheduleType),
		ScheduledAt:    req.ScheduledAt,
		CronExpression: req.CronExpression,
		TargetScores:   req.TargetScores,
		Status:         models.CampaignStatusScheduled,
	}
	if err := s.campaignRepo.Save(ctx, campaign); err != nil {
		return nil, nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	scores := campaign.TargetScoreList()
	leads, err := s.leadRepo.ListByBusinessAndScores(ctx, req.BusinessID, scores)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to select audience: %w", err)
	}

	mapping, err := s.mappingRepo.ActiveByBusinessAndPlatform(ctx, req.BusinessID, models.SocialPlatformWhatsApp)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve channel mapping: %w", err)
	}

	prep := &preparationResult{}
	for _, lead := range leads {
		var chat *models.Chat
		if mapping != nil {
			chat, err = s.chatRepo.OpenByLeadAndMapping(ctx, lead.ID, mapping.ID)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to lookup open chat for lead %d: %w", lead.ID, err)
			}
		}
		if chat == nil {
			prep.skipped = append(prep.skipped, dto.SkippedLeadDTO{
				LeadUUID: lead.UUID.String(),
				Reason:   SkipReasonNoActiveChat,
			})
			continue
		}

		prep.logs = append(prep.logs, &models.CampaignLog{
			CampaignID:     campaign.ID,
			LeadID:         lead.ID,
			ChatID:         chat.ID,
			Recipient:      leadRecipient(lead),
			MessageContent: RenderTemplate(template.Content, template.Variables, leadVariables(lead, req.Variables)),
			Status:         models.CampaignLogStatusPending,
		})
	}

	if err := s.logRepo.SaveBatch(ctx, prep.logs); err != nil {
		return nil, nil, fmt.Errorf("failed to create campaign logs: %w", err)
	}
	if err := s.campaignRepo.SetTotalRecipients(ctx, campaign.ID, len(prep.logs)); err != nil {
		return nil, nil, fmt.Errorf("failed to fix recipient count: %w", err)
	}
	campaign.TotalRecipients = len(prep.logs)

	if err := s.templateRepo.IncrementUsage(ctx, template.ID); err != nil {
		return nil, nil, fmt.Errorf("failed to record template usage: %w", err)
	}

	return campaign, prep, nil
}

// armTrigger starts whatever fires the campaign: an async drain for immediate
// campaigns, a cron timer for recurring ones. Scheduled campaigns wait for
// the scheduler scan.
func (s *CampaignFlowImpl) armTrigger(campaign *models.Campaign) {
	switch campaign.ScheduleType {
	case models.ScheduleTypeImmediate:
		if s.executor == nil {
			return
		}
		go func(id uint) {
			if err := s.executor.Execute(context.Background(), id); err != nil {
				s.logger.Printf("campaign %d: immediate execution failed: %v", id, err)
			}
		}(campaign.ID)
	case models.ScheduleTypeRecurring:
		if s.registry == nil || campaign.CronExpression == nil {
			return
		}
		if err := s.registry.Register(campaign.ID, *campaign.CronExpression); err != nil {
			s.logger.Printf("campaign %d: failed to register recurring timer: %v", campaign.ID, err)
		}
	}
}

func (s *CampaignFlowImpl) validateCreateCampaignRequest(req *dto.CreateCampaignRequest) error {
	if req.BusinessID == 0 {
		return ErrBusinessContextRequired
	}
	if req.Name == "" {
		return ErrCampaignNameRequired
	}
	if req.TemplateUUID == "" {
		return ErrTemplateUUIDRequired
	}
	if len(req.TargetScores) == 0 {
		return ErrTargetScoresRequired
	}

	switch models.CampaignScheduleType(req.ScheduleType) {
	case models.ScheduleTypeImmediate:
	case models.ScheduleTypeScheduled:
		if req.ScheduledAt == nil {
			return ErrScheduleTimeNotPresent
		}
	case models.ScheduleTypeRecurring:
		if req.CronExpression == nil || *req.CronExpression == "" {
			return ErrCronExpressionRequired
		}
	default:
		return ErrInvalidScheduleType
	}

	return nil
}

// ListCampaigns returns a page of the business's campaigns, newest first
func (s *CampaignFlowImpl) ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest) (*dto.ListCampaignsResponse, error) {
	page, pageSize, err := normalizePaging(req.Page, req.PageSize)
	if err != nil {
		return nil, NewValidationError("Invalid pagination", err)
	}

	campaigns, err := s.campaignRepo.ListByBusiness(ctx, req.BusinessID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewInfrastructureError("Failed to list campaigns", err)
	}
	total, err := s.campaignRepo.Count(ctx, models.CampaignFilter{BusinessID: &req.BusinessID})
	if err != nil {
		return nil, NewInfrastructureError("Failed to count campaigns", err)
	}

	items := make([]dto.CampaignDTO, 0, len(campaigns))
	for _, c := range campaigns {
		items = append(items, ToCampaignDTO(*c))
	}

	return &dto.ListCampaignsResponse{
		Message:    "Campaigns retrieved successfully",
		Items:      items,
		Pagination: dto.PaginationDTO{Page: page, PageSize: pageSize, Total: total},
	}, nil
}

// GetCampaign returns a single campaign owned by the business
func (s *CampaignFlowImpl) GetCampaign(ctx context.Context, req *dto.GetCampaignRequest) (*dto.GetCampaignResponse, error) {
	campaign, err := s.ownedCampaign(ctx, req.UUID, req.BusinessID)
	if err != nil {
		return nil, err
	}
	return &dto.GetCampaignResponse{
		Message:  "Campaign retrieved successfully",
		Campaign: ToCampaignDTO(*campaign),
	}, nil
}

// ExecuteCampaign triggers a manual drain. The drain itself runs async; this
// only verifies the campaign can still run.
func (s *CampaignFlowImpl) ExecuteCampaign(ctx context.Context, req *dto.ExecuteCampaignRequest) (*dto.ExecuteCampaignResponse, error) {
	campaign, err := s.ownedCampaign(ctx, req.UUID, req.BusinessID)
	if err != nil {
		return nil, err
	}
	if campaign.Status.IsTerminal() {
		return nil, NewValidationError("Campaign has already finished", ErrCampaignAlreadyDrained)
	}
	if s.executor == nil {
		return nil, NewInfrastructureError("Campaign execution is not available", ErrInfrastructure)
	}

	go func(id uint) {
		if err := s.executor.Execute(context.Background(), id); err != nil {
			s.logger.Printf("campaign %d: manual execution failed: %v", id, err)
		}
	}(campaign.ID)

	return &dto.ExecuteCampaignResponse{
		Message: "Campaign execution started",
		UUID:    campaign.UUID.String(),
		Status:  string(models.CampaignStatusRunning),
	}, nil
}

// CancelCampaign stops a campaign. Completed campaigns cannot be cancelled;
// everything else stops its timer and lands in failed.
func (s *CampaignFlowImpl) CancelCampaign(ctx context.Context, req *dto.CancelCampaignRequest) (*dto.CancelCampaignResponse, error) {
	campaign, err := s.ownedCampaign(ctx, req.UUID, req.BusinessID)
	if err != nil {
		return nil, err
	}
	if !campaign.IsCancellable() {
		return nil, NewValidationError("Completed campaigns cannot be cancelled", ErrCampaignNotCancellable)
	}

	if s.registry != nil {
		s.registry.Cancel(campaign.ID)
	}
	if err := s.campaignRepo.UpdateStatus(ctx, campaign.ID, models.CampaignStatusFailed); err != nil {
		return nil, NewInfrastructureError("Failed to cancel campaign", err)
	}

	return &dto.CancelCampaignResponse{
		Message: "Campaign cancelled",
		UUID:    campaign.UUID.String(),
		Status:  string(models.CampaignStatusFailed),
	}, nil
}

// ListCampaignLogs returns a page of per-recipient delivery records
func (s *CampaignFlowImpl) ListCampaignLogs(ctx context.Context, req *dto.ListCampaignLogsRequest) (*dto.ListCampaignLogsResponse, error) {
	campaign, err := s.ownedCampaign(ctx, req.UUID, req.BusinessID)
	if err != nil {
		return nil, err
	}

	page, pageSize, err := normalizePaging(req.Page, req.PageSize)
	if err != nil {
		return nil, NewValidationError("Invalid pagination", err)
	}

	logs, err := s.logRepo.ListByCampaign(ctx, campaign.ID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewInfrastructureError("Failed to list campaign logs", err)
	}
	total, err := s.logRepo.Count(ctx, models.CampaignLogFilter{CampaignID: &campaign.ID})
	if err != nil {
		return nil, NewInfrastructureError("Failed to count campaign logs", err)
	}

	items := make([]dto.CampaignLogDTO, 0, len(logs))
	for _, l := range logs {
		items = append(items, ToCampaignLogDTO(*l))
	}

	return &dto.ListCampaignLogsResponse{
		Message:    "Campaign logs retrieved successfully",
		Items:      items,
		Pagination: dto.PaginationDTO{Page: page, PageSize: pageSize, Total: total},
	}, nil
}

// ExportCampaignLogs renders the full log set of a campaign as an xlsx sheet
func (s *CampaignFlowImpl) ExportCampaignLogs(ctx context.Context, req *dto.ListCampaignLogsRequest) ([]byte, string, error) {
	campaign, err := s.ownedCampaign(ctx, req.UUID, req.BusinessID)
	if err != nil {
		return nil, "", err
	}

	logs, err := s.logRepo.ListByCampaign(ctx, campaign.ID, 0, 0)
	if err != nil {
		return nil, "", NewInfrastructureError("Failed to load campaign logs", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	headers := []string{"Recipient", "Status", "Message", "Message ID", "Error", "Sent At", "Created At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for row, l := range logs {
		values := []any{
			l.Recipient,
			string(l.Status),
			l.MessageContent,
			strPtrValue(l.MessageID),
			strPtrValue(l.ErrorMessage),
			timePtrValue(l.SentAt),
			l.CreatedAt.Format(time.RFC3339),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", NewInfrastructureError("Failed to build export file", err)
	}

	filename := fmt.Sprintf("campaign-%s-logs.xlsx", campaign.UUID.String())
	return buf.Bytes(), filename, nil
}

// ownedCampaign resolves a campaign UUID and enforces tenant ownership
func (s *CampaignFlowImpl) ownedCampaign(ctx context.Context, uuid string, businessID uint) (*models.Campaign, error) {
	if uuid == "" {
		return nil, NewValidationError("Campaign UUID is required", ErrCampaignUUIDRequired)
	}
	campaign, err := s.campaignRepo.ByUUID(ctx, uuid)
	if err != nil {
		return nil, NewInfrastructureError("Failed to lookup campaign", err)
	}
	if campaign == nil || campaign.BusinessID != businessID {
		return nil, NewNotFoundError("Campaign not found", ErrCampaignNotFound)
	}
	return campaign, nil
}

func normalizePaging(page, pageSize int) (int, int, error) {
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = utils.DefaultPageSize
	}
	if page < 1 {
		return 0, 0, ErrInvalidPage
	}
	if pageSize < 1 || pageSize > utils.MaxPageSize {
		return 0, 0, ErrInvalidPageSize
	}
	return page, pageSize, nil
}

// leadRecipient picks the deliverable address of a lead
func leadRecipient(lead *models.Lead) string {
	if lead.Phone != nil && *lead.Phone != "" {
		return *lead.Phone
	}
	return lead.ProviderUserID
}

// leadVariables builds the substitution map for one recipient. Request-level
// variables win over derived ones.
func leadVariables(lead *models.Lead, extra map[string]string) map[string]string {
	vars := map[string]string{
		"phone": leadRecipient(lead),
	}
	if lead.DisplayName != nil {
		vars["name"] = *lead.DisplayName
	}
	for k, v := range extra {
		vars[k] = v
	}
	return vars
}

func strPtrValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func timePtrValue(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
