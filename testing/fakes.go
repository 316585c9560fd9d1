// Package testing provides in-memory repository fakes for exercising business flows without a database
package testing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/chatspire/susanoo/models"
	"github.com/chatspire/susanoo/repository"
	"github.com/chatspire/susanoo/utils"
	"github.com/google/uuid"
)

// SequentialTxRunner runs the function directly without a transaction. Flows
// only care that the unit of work executes, which keeps these fakes free of
// gorm entirely.
type SequentialTxRunner struct{}

func (SequentialTxRunner) Run(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func (SequentialTxRunner) Capability() repository.TxCapability {
	return repository.TxCapabilityUnsupported
}

// FakeLeadRepository is an in-memory LeadRepository
type FakeLeadRepository struct {
	mu     sync.Mutex
	nextID uint
	Leads  map[uint]*models.Lead
}

func NewFakeLeadRepository() *FakeLeadRepository {
	return &FakeLeadRepository{Leads: make(map[uint]*models.Lead)}
}

func (r *FakeLeadRepository) ByID(ctx context.Context, id uint) (*models.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lead, ok := r.Leads[id]; ok {
		copied := *lead
		return &copied, nil
	}
	return nil, nil
}

func (r *FakeLeadRepository) ByFilter(ctx context.Context, filter models.LeadFilter, orderBy string, limit, offset int) ([]*models.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*models.Lead
	for _, lead := range r.Leads {
		if filter.BusinessID != nil && lead.BusinessID != *filter.BusinessID {
			continue
		}
		if filter.Provider != nil && lead.Provider != *filter.Provider {
			continue
		}
		if filter.ProviderUserID != nil && lead.ProviderUserID != *filter.ProviderUserID {
			continue
		}
		copied := *lead
		result = append(result, &copied)
	}
	return result, nil
}

func (r *FakeLeadRepository) Save(ctx context.Context, lead *models.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lead.ID == 0 {
		r.nextID++
		lead.ID = r.nextID
	} else if lead.ID > r.nextID {
		r.nextID = lead.ID
	}
	if lead.UUID == uuid.Nil {
		lead.UUID = uuid.New()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = utils.UTCNow()
	}
	copied := *lead
	r.Leads[lead.ID] = &copied
	return nil
}

func (r *FakeLeadRepository) SaveBatch(ctx context.Context, leads []*models.Lead) error {
	for _, lead := range leads {
		if err := r.Save(ctx, lead); err != nil {
			return err
		}
	}
	return nil
}

func (r *FakeLeadRepository) Count(ctx context.Context, filter models.LeadFilter) (int64, error) {
	leads, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(leads)), err
}

func (r *FakeLeadRepository) Exists(ctx context.Context, filter models.LeadFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	return count > 0, err
}

func (r *FakeLeadRepository) ByProviderUser(ctx context.Context, businessID uint, provider, providerUserID string) (*models.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, lead := range r.Leads {
		if lead.BusinessID == businessID && lead.Provider == provider && lead.ProviderUserID == providerUserID {
			copied := *lead
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *FakeLeadRepository) ListByBusinessAndScores(ctx context.Context, businessID uint, scores []models.LeadScore) ([]*models.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*models.Lead
	for _, lead := range r.Leads {
		if lead.BusinessID != businessID {
			continue
		}
		if len(scores) > 0 {
			if lead.Score == nil {
				continue
			}
			matched := false
			for _, score := range scores {
				if *lead.Score == score {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		copied := *lead
		result = append(result, &copied)
	}
	return result, nil
}

func (r *FakeLeadRepository) Update(ctx context.Context, lead models.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := lead
	r.Leads[lead.ID] = &copied
	return nil
}

// FakeBusinessSocialMediaRepository is an in-memory BusinessSocialMediaRepository
type FakeBusinessSocialMediaRepository struct {
	mu       sync.Mutex
	nextID   uint
	Mappings map[uint]*models.BusinessSocialMedia
}

func NewFakeBusinessSocialMediaRepository() *FakeBusinessSocialMediaRepository {
	return &FakeBusinessSocialMediaRepository{Mappings: make(map[uint]*models.BusinessSocialMedia)}
}

func (r *FakeBusinessSocialMediaRepository) ByID(ctx context.Context, id uint) (*models.BusinessSocialMedia, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if mapping, ok := r.Mappings[id]; ok {
		copied := *mapping
		return &copied, nil
	}
	return nil, nil
}

func (r *FakeBusinessSocialMediaRepository) ByFilter(ctx context.Context, filter models.BusinessSocialMediaFilter, orderBy string, limit, offset int) ([]*models.BusinessSocialMedia, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*models.BusinessSocialMedia
	for _, mapping := range r.Mappings {
		if filter.BusinessID != nil && mapping.BusinessID != *filter.BusinessID {
			continue
		}
		if filter.Platform != nil && mapping.Platform != *filter.Platform {
			continue
		}
		if filter.PageID != nil && mapping.PageID != *filter.PageID {
			continue
		}
		if filter.IsActive != nil && mapping.IsActive != *filter.IsActive {
			continue
		}
		copied := *mapping
		result = append(result, &copied)
	}
	return result, nil
}

func (r *FakeBusinessSocialMediaRepository) Save(ctx context.Context, mapping *models.BusinessSocialMedia) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if mapping.ID == 0 {
		r.nextID++
		mapping.ID = r.nextID
	} else if mapping.ID > r.nextID {
		r.nextID = mapping.ID
	}
	if mapping.UUID == uuid.Nil {
		mapping.UUID = uuid.New()
	}
	copied := *mapping
	r.Mappings[mapping.ID] = &copied
	return nil
}

func (r *FakeBusinessSocialMediaRepository) SaveBatch(ctx context.Context, mappings []*models.BusinessSocialMedia) error {
	for _, mapping := range mappings {
		if err := r.Save(ctx, mapping); err != nil {
			return err
		}
	}
	return nil
}

func (r *FakeBusinessSocialMediaRepository) Count(ctx context.Context, filter models.BusinessSocialMediaFilter) (int64, error) {
	mappings, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(mappings)), err
}

func (r *FakeBusinessSocialMediaRepository) Exists(ctx context.Context, filter models.BusinessSocialMediaFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	return count > 0, err
}

func (r *FakeBusinessSocialMediaRepository) ActiveByPlatformAndPageIDs(ctx context.Context, platform models.SocialPlatform, pageIDs []string) (*models.BusinessSocialMedia, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, mapping := range r.Mappings {
		if mapping.Platform != platform || !mapping.IsActive {
			continue
		}
		for _, pageID := range pageIDs {
			if mapping.PageID == pageID {
				copied := *mapping
				return &copied, nil
			}
		}
	}
	return nil, nil
}

func (r *FakeBusinessSocialMediaRepository) ActiveByBusinessAndPlatform(ctx context.Context, businessID uint, platform models.SocialPlatform) (*models.BusinessSocialMedia, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, mapping := range r.Mappings {
		if mapping.BusinessID == businessID && mapping.Platform == platform && mapping.IsActive {
			copied := *mapping
			return &copied, nil
		}
	}
	return nil, nil
}

// FakeChatRepository is an in-memory ChatRepository
type FakeChatRepository struct {
	mu     sync.Mutex
	nextID uint
	Chats  map[uint]*models.Chat
}

func NewFakeChatRepository() *FakeChatRepository {
	return &FakeChatRepository{Chats: make(map[uint]*models.Chat)}
}

func (r *FakeChatRepository) ByID(ctx context.Context, id uint) (*models.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if chat, ok := r.Chats[id]; ok {
		copied := *chat
		return &copied, nil
	}
	return nil, nil
}

func (r *FakeChatRepository) ByFilter(ctx context.Context, filter models.ChatFilter, orderBy string, limit, offset int) ([]*models.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*models.Chat
	for _, chat := range r.Chats {
		if filter.LeadID != nil && chat.LeadID != *filter.LeadID {
			continue
		}
		if filter.BusinessSocialMediaID != nil && chat.BusinessSocialMediaID != *filter.BusinessSocialMediaID {
			continue
		}
		if filter.Status != nil && chat.Status != *filter.Status {
			continue
		}
		copied := *chat
		result = append(result, &copied)
	}
	return result, nil
}

func (r *FakeChatRepository) Save(ctx context.Context, chat *models.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if chat.ID == 0 {
		r.nextID++
		chat.ID = r.nextID
	} else if chat.ID > r.nextID {
		r.nextID = chat.ID
	}
	if chat.UUID == uuid.Nil {
		chat.UUID = uuid.New()
	}
	if chat.Status == "" {
		chat.Status = models.ChatStatusOpen
	}
	if chat.CreatedAt.IsZero() {
		chat.CreatedAt = utils.UTCNow()
	}
	copied := *chat
	r.Chats[chat.ID] = &copied
	return nil
}

func (r *FakeChatRepository) SaveBatch(ctx context.Context, chats []*models.Chat) error {
	for _, chat := range chats {
		if err := r.Save(ctx, chat); err != nil {
			return err
		}
	}
	return nil
}

func (r *FakeChatRepository) Count(ctx context.Context, filter models.ChatFilter) (int64, error) {
	chats, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(chats)), err
}

func (r *FakeChatRepository) Exists(ctx context.Context, filter models.ChatFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	return count > 0, err
}

func (r *FakeChatRepository) OpenByLeadAndMapping(ctx context.Context, leadID, businessSocialMediaID uint) (*models.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, chat := range r.Chats {
		if chat.LeadID == leadID && chat.BusinessSocialMediaID == businessSocialMediaID && chat.Status == models.ChatStatusOpen {
			copied := *chat
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *FakeChatRepository) RecordInbound(ctx context.Context, chatID uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if chat, ok := r.Chats[chatID]; ok {
		chat.MessageCount++
		chat.LastInboundAt = &at
		chat.UpdatedAt = &at
	}
	return nil
}

func (r *FakeChatRepository) RecordOutbound(ctx context.Context, chatID uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if chat, ok := r.Chats[chatID]; ok {
		chat.MessageCount++
		chat.LastOutboundAt = &at
		chat.UpdatedAt = &at
	}
	return nil
}

// FakeMessageRepository is an in-memory MessageRepository
type FakeMessageRepository struct {
	mu       sync.Mutex
	nextID   uint
	Messages map[uint]*models.Message
}

func NewFakeMessageRepository() *FakeMessageRepository {
	return &FakeMessageRepository{Messages: make(map[uint]*models.Message)}
}

func (r *FakeMessageRepository) ByID(ctx context.Context, id uint) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if message, ok := r.Messages[id]; ok {
		copied := *message
		return &copied, nil
	}
	return nil, nil
}

func (r *FakeMessageRepository) ByFilter(ctx context.Context, filter models.MessageFilter, orderBy string, limit, offset int) ([]*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*models.Message
	for _, message := range r.Messages {
		if filter.ChatID != nil && message.ChatID != *filter.ChatID {
			continue
		}
		if filter.Direction != nil && message.Direction != *filter.Direction {
			continue
		}
		if filter.CampaignID != nil && (message.CampaignID == nil || *message.CampaignID != *filter.CampaignID) {
			continue
		}
		if filter.AIReply != nil && message.AIReply != *filter.AIReply {
			continue
		}
		copied := *message
		result = append(result, &copied)
	}
	return result, nil
}

func (r *FakeMessageRepository) Save(ctx context.Context, message *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if message.ID == 0 {
		r.nextID++
		message.ID = r.nextID
	} else if message.ID > r.nextID {
		r.nextID = message.ID
	}
	if message.UUID == uuid.Nil {
		message.UUID = uuid.New()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = utils.UTCNow()
	}
	copied := *message
	r.Messages[message.ID] = &copied
	return nil
}

func (r *FakeMessageRepository) SaveBatch(ctx context.Context, messages []*models.Message) error {
	for _, message := range messages {
		if err := r.Save(ctx, message); err != nil {
			return err
		}
	}
	return nil
}

func (r *FakeMessageRepository) Count(ctx context.Context, filter models.MessageFilter) (int64, error) {
	messages, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(messages)), err
}

func (r *FakeMessageRepository) Exists(ctx context.Context, filter models.MessageFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	return count > 0, err
}

func (r *FakeMessageRepository) ByProviderMessageID(ctx context.Context, providerMessageID string) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, message := range r.Messages {
		if message.ProviderMessageID != nil && *message.ProviderMessageID == providerMessageID {
			copied := *message
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *FakeMessageRepository) ListByChatSince(ctx context.Context, chatID uint, since time.Time) ([]*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*models.Message
	for _, message := range r.Messages {
		if message.ChatID == chatID && !message.CreatedAt.Before(since) {
			copied := *message
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *FakeMessageRepository) CountByChat(ctx context.Context, chatID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, message := range r.Messages {
		if message.ChatID == chatID {
			count++
		}
	}
	return count, nil
}

// FakeMessageTemplateRepository is an in-memory MessageTemplateRepository
type FakeMessageTemplateRepository struct {
	mu        sync.Mutex
	nextID    uint
	Templates map[uint]*models.MessageTemplate
}

func NewFakeMessageTemplateRepository() *FakeMessageTemplateRepository {
	return &FakeMessageTemplateRepository{Templates: make(map[uint]*models.MessageTemplate)}
}

func (r *FakeMessageTemplateRepository) ByID(ctx context.Context, id uint) (*models.MessageTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if template, ok := r.Templates[id]; ok {
		copied := *template
		return &copied, nil
	}
	return nil, nil
}

func (r *FakeMessageTemplateRepository) ByFilter(ctx context.Context, filter models.MessageTemplateFilter, orderBy string, limit, offset int) ([]*models.MessageTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*models.MessageTemplate
	for _, template := range r.Templates {
		if filter.BusinessID != nil && template.BusinessID != *filter.BusinessID {
			continue
		}
		if filter.IsActive != nil && template.IsActive != *filter.IsActive {
			continue
		}
		copied := *template
		result = append(result, &copied)
	}
	return result, nil
}

func (r *FakeMessageTemplateRepository) Save(ctx context.Context, template *models.MessageTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if template.ID == 0 {
		r.nextID++
		template.ID = r.nextID
	} else if template.ID > r.nextID {
		r.nextID = template.ID
	}
	if template.UUID == uuid.Nil {
		template.UUID = uuid.New()
	}
	copied := *template
	r.Templates[template.ID] = &copied
	return nil
}

func (r *FakeMessageTemplateRepository) SaveBatch(ctx context.Context, templates []*models.MessageTemplate) error {
	for _, template := range templates {
		if err := r.Save(ctx, template); err != nil {
			return err
		}
	}
	return nil
}

func (r *FakeMessageTemplateRepository) Count(ctx context.Context, filter models.MessageTemplateFilter) (int64, error) {
	templates, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(templates)), err
}

func (r *FakeMessageTemplateRepository) Exists(ctx context.Context, filter models.MessageTemplateFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	return count > 0, err
}

func (r *FakeMessageTemplateRepository) ByUUID(ctx context.Context, templateUUID string) (*models.MessageTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, template := range r.Templates {
		if template.UUID.String() == templateUUID {
			copied := *template
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *FakeMessageTemplateRepository) IncrementUsage(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if template, ok := r.Templates[id]; ok {
		template.UsageCount++
		template.LastUsedAt = utils.UTCNowPtr()
	}
	return nil
}

// FakeCampaignRepository is an in-memory CampaignRepository
type FakeCampaignRepository struct {
	mu        sync.Mutex
	nextID    uint
	Campaigns map[uint]*models.Campaign
}

func NewFakeCampaignRepository() *FakeCampaignRepository {
	return &FakeCampaignRepository{Campaigns: make(map[uint]*models.Campaign)}
}

func (r *FakeCampaignRepository) ByID(ctx context.Context, id uint) (*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if campaign, ok := r.Campaigns[id]; ok {
		copied := *campaign
		return &copied, nil
	}
	return nil, nil
}

func (r *FakeCampaignRepository) ByFilter(ctx context.Context, filter models.CampaignFilter, orderBy string, limit, offset int) ([]*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*models.Campaign
	for _, campaign := range r.Campaigns {
		if filter.BusinessID != nil && campaign.BusinessID != *filter.BusinessID {
			continue
		}
		if filter.Status != nil && campaign.Status != *filter.Status {
			continue
		}
		if filter.ScheduleType != nil && campaign.ScheduleType != *filter.ScheduleType {
			continue
		}
		copied := *campaign
		result = append(result, &copied)
	}
	return result, nil
}

func (r *FakeCampaignRepository) Save(ctx context.Context, campaign *models.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if campaign.ID == 0 {
		r.nextID++
		campaign.ID = r.nextID
	} else if campaign.ID > r.nextID {
		r.nextID = campaign.ID
	}
	if campaign.UUID == uuid.Nil {
		campaign.UUID = uuid.New()
	}
	if campaign.CreatedAt.IsZero() {
		campaign.CreatedAt = utils.UTCNow()
	}
	copied := *campaign
	r.Campaigns[campaign.ID] = &copied
	return nil
}

func (r *FakeCampaignRepository) SaveBatch(ctx context.Context, campaigns []*models.Campaign) error {
	for _, campaign := range campaigns {
		if err := r.Save(ctx, campaign); err != nil {
			return err
		}
	}
	return nil
}

func (r *FakeCampaignRepository) Count(ctx context.Context, filter models.CampaignFilter) (int64, error) {
	campaigns, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(campaigns)), err
}

func (r *FakeCampaignRepository) Exists(ctx context.Context, filter models.CampaignFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	return count > 0, err
}

func (r *FakeCampaignRepository) ByUUID(ctx context.Context, campaignUUID string) (*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, campaign := range r.Campaigns {
		if campaign.UUID.String() == campaignUUID {
			copied := *campaign
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *FakeCampaignRepository) ListByBusiness(ctx context.Context, businessID uint, limit, offset int) ([]*models.Campaign, error) {
	campaigns, err := r.ByFilter(ctx, models.CampaignFilter{BusinessID: &businessID}, "", 0, 0)
	if err != nil {
		return nil, err
	}
	if offset >= len(campaigns) {
		return nil, nil
	}
	campaigns = campaigns[offset:]
	if limit > 0 && limit < len(campaigns) {
		campaigns = campaigns[:limit]
	}
	return campaigns, nil
}

func (r *FakeCampaignRepository) DueScheduled(ctx context.Context, from, to time.Time) ([]*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*models.Campaign
	for _, campaign := range r.Campaigns {
		if campaign.ScheduleType != models.ScheduleTypeScheduled || campaign.Status != models.CampaignStatusScheduled {
			continue
		}
		if campaign.ScheduledAt == nil {
			continue
		}
		if campaign.ScheduledAt.After(from) && !campaign.ScheduledAt.After(to) {
			copied := *campaign
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (r *FakeCampaignRepository) Update(ctx context.Context, campaign models.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := campaign
	r.Campaigns[campaign.ID] = &copied
	return nil
}

func (r *FakeCampaignRepository) UpdateStatus(ctx context.Context, id uint, status models.CampaignStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if campaign, ok := r.Campaigns[id]; ok {
		campaign.Status = status
		campaign.UpdatedAt = utils.UTCNowPtr()
	}
	return nil
}

func (r *FakeCampaignRepository) SetTotalRecipients(ctx context.Context, id uint, total int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if campaign, ok := r.Campaigns[id]; ok {
		campaign.TotalRecipients = total
	}
	return nil
}

func (r *FakeCampaignRepository) IncrementCounters(ctx context.Context, id uint, sentDelta, failedDelta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if campaign, ok := r.Campaigns[id]; ok {
		campaign.SentCount += sentDelta
		campaign.FailedCount += failedDelta
	}
	return nil
}

// FakeCampaignLogRepository is an in-memory CampaignLogRepository
type FakeCampaignLogRepository struct {
	mu     sync.Mutex
	nextID uint
	Logs   map[uint]*models.CampaignLog
}

func NewFakeCampaignLogRepository() *FakeCampaignLogRepository {
	return &FakeCampaignLogRepository{Logs: make(map[uint]*models.CampaignLog)}
}

func (r *FakeCampaignLogRepository) ByID(ctx context.Context, id uint) (*models.CampaignLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if logRow, ok := r.Logs[id]; ok {
		copied := *logRow
		return &copied, nil
	}
	return nil, nil
}

func (r *FakeCampaignLogRepository) ByFilter(ctx context.Context, filter models.CampaignLogFilter, orderBy string, limit, offset int) ([]*models.CampaignLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*models.CampaignLog
	for _, logRow := range r.Logs {
		if filter.CampaignID != nil && logRow.CampaignID != *filter.CampaignID {
			continue
		}
		if filter.LeadID != nil && logRow.LeadID != *filter.LeadID {
			continue
		}
		if filter.Status != nil && logRow.Status != *filter.Status {
			continue
		}
		copied := *logRow
		result = append(result, &copied)
	}
	return result, nil
}

func (r *FakeCampaignLogRepository) Save(ctx context.Context, logRow *models.CampaignLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if logRow.ID == 0 {
		r.nextID++
		logRow.ID = r.nextID
	} else if logRow.ID > r.nextID {
		r.nextID = logRow.ID
	}
	if logRow.Status == "" {
		logRow.Status = models.CampaignLogStatusPending
	}
	if logRow.CreatedAt.IsZero() {
		logRow.CreatedAt = utils.UTCNow()
	}
	copied := *logRow
	r.Logs[logRow.ID] = &copied
	return nil
}

func (r *FakeCampaignLogRepository) SaveBatch(ctx context.Context, logRows []*models.CampaignLog) error {
	for _, logRow := range logRows {
		if err := r.Save(ctx, logRow); err != nil {
			return err
		}
	}
	return nil
}

func (r *FakeCampaignLogRepository) Count(ctx context.Context, filter models.CampaignLogFilter) (int64, error) {
	logRows, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(logRows)), err
}

func (r *FakeCampaignLogRepository) Exists(ctx context.Context, filter models.CampaignLogFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	return count > 0, err
}

func (r *FakeCampaignLogRepository) ListPendingByCampaign(ctx context.Context, campaignID uint) ([]*models.CampaignLog, error) {
	pending := models.CampaignLogStatusPending
	return r.ByFilter(ctx, models.CampaignLogFilter{CampaignID: &campaignID, Status: &pending}, "", 0, 0)
}

func (r *FakeCampaignLogRepository) ListByCampaign(ctx context.Context, campaignID uint, limit, offset int) ([]*models.CampaignLog, error) {
	logRows, err := r.ByFilter(ctx, models.CampaignLogFilter{CampaignID: &campaignID}, "", 0, 0)
	if err != nil {
		return nil, err
	}
	if offset >= len(logRows) {
		return nil, nil
	}
	logRows = logRows[offset:]
	if limit > 0 && limit < len(logRows) {
		logRows = logRows[:limit]
	}
	return logRows, nil
}

func (r *FakeCampaignLogRepository) MarkSent(ctx context.Context, id uint, messageID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if logRow, ok := r.Logs[id]; ok {
		logRow.Status = models.CampaignLogStatusSent
		logRow.MessageID = &messageID
		logRow.SentAt = &at
		logRow.UpdatedAt = at
	}
	return nil
}

func (r *FakeCampaignLogRepository) MarkFailed(ctx context.Context, id uint, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if logRow, ok := r.Logs[id]; ok {
		logRow.Status = models.CampaignLogStatusFailed
		logRow.ErrorMessage = &errorMessage
		logRow.UpdatedAt = utils.UTCNow()
	}
	return nil
}
