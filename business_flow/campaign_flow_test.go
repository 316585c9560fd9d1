package businessflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chatspire/susanoo/app/dto"
	"github.com/chatspire/susanoo/models"
	fakes "github.com/chatspire/susanoo/testing"
	"github.com/chatspire/susanoo/utils"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type executorStub struct {
	mu       sync.Mutex
	executed []uint
	done     chan uint
}

func newExecutorStub() *executorStub {
	return &executorStub{done: make(chan uint, 8)}
}

func (e *executorStub) Execute(ctx context.Context, campaignID uint) error {
	e.mu.Lock()
	e.executed = append(e.executed, campaignID)
	e.mu.Unlock()
	e.done <- campaignID
	return nil
}

func (e *executorStub) waitForExecution(t *testing.T) uint {
	t.Helper()
	select {
	case id := <-e.done:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("campaign execution was never triggered")
		return 0
	}
}

type registryStub struct {
	mu         sync.Mutex
	registered map[uint]string
	cancelled  []uint
}

func newRegistryStub() *registryStub {
	return &registryStub{registered: make(map[uint]string)}
}

func (r *registryStub) Register(campaignID uint, cronExpression string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registered[campaignID] = cronExpression
	return nil
}

func (r *registryStub) Cancel(campaignID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.registered, campaignID)
	r.cancelled = append(r.cancelled, campaignID)
}

type campaignFixture struct {
	campaigns *fakes.FakeCampaignRepository
	logs      *fakes.FakeCampaignLogRepository
	templates *fakes.FakeMessageTemplateRepository
	leads     *fakes.FakeLeadRepository
	chats     *fakes.FakeChatRepository
	mappings  *fakes.FakeBusinessSocialMediaRepository
	executor  *executorStub
	registry  *registryStub
	flow      CampaignFlow
}

func newCampaignFixture(t *testing.T) *campaignFixture {
	t.Helper()
	f := &campaignFixture{
		campaigns: fakes.NewFakeCampaignRepository(),
		logs:      fakes.NewFakeCampaignLogRepository(),
		templates: fakes.NewFakeMessageTemplateRepository(),
		leads:     fakes.NewFakeLeadRepository(),
		chats:     fakes.NewFakeChatRepository(),
		mappings:  fakes.NewFakeBusinessSocialMediaRepository(),
		executor:  newExecutorStub(),
		registry:  newRegistryStub(),
	}
	f.flow = NewCampaignFlow(f.campaigns, f.logs, f.templates, f.leads, f.chats, f.mappings, fakes.SequentialTxRunner{}, f.executor, f.registry, nil)
	return f
}

func (f *campaignFixture) seedTemplate(t *testing.T, businessID uint, content string, variables []string) *models.MessageTemplate {
	t.Helper()
	template := &models.MessageTemplate{
		BusinessID: businessID,
		Name:       "greeting",
		Content:    content,
		Variables:  pq.StringArray(variables),
		IsActive:   true,
	}
	require.NoError(t, f.templates.Save(context.Background(), template))
	return template
}

// seedLead creates a lead and, when withChat is set, an open chat bound to the
// business's channel mapping.
func (f *campaignFixture) seedLead(t *testing.T, businessID uint, name, phone string, score models.LeadScore, withChat bool) *models.Lead {
	t.Helper()
	ctx := context.Background()

	mapping, err := f.mappings.ActiveByBusinessAndPlatform(ctx, businessID, models.SocialPlatformWhatsApp)
	require.NoError(t, err)
	if mapping == nil {
		mapping = &models.BusinessSocialMedia{
			BusinessID: businessID,
			Platform:   models.SocialPlatformWhatsApp,
			PageID:     "+15559876543",
			IsActive:   true,
		}
		require.NoError(t, f.mappings.Save(ctx, mapping))
	}

	lead := &models.Lead{
		BusinessID:     businessID,
		Provider:       ProviderTwilio,
		ProviderUserID: phone,
		Phone:          utils.ToPtr(phone),
		DisplayName:    utils.ToPtr(name),
		Score:          utils.ToPtr(score),
	}
	require.NoError(t, f.leads.Save(ctx, lead))

	if withChat {
		chat := &models.Chat{
			LeadID:                lead.ID,
			BusinessSocialMediaID: mapping.ID,
			Status:                models.ChatStatusOpen,
		}
		require.NoError(t, f.chats.Save(ctx, chat))
	}
	return lead
}

func scheduledCreateRequest(businessID uint, templateUUID string) *dto.CreateCampaignRequest {
	return &dto.CreateCampaignRequest{
		BusinessID:   businessID,
		Name:         "Spring promo",
		TemplateUUID: templateUUID,
		ScheduleType: string(models.ScheduleTypeScheduled),
		ScheduledAt:  utils.UTCNowAddPtr(time.Hour),
		TargetScores: []string{"hot", "warm"},
	}
}

func TestCreateCampaignPreparesAudience(t *testing.T) {
	f := newCampaignFixture(t)
	template := f.seedTemplate(t, 7, "Hello {{name}}!", []string{"name"})
	f.seedLead(t, 7, "Alice", "+15551230001", models.LeadScoreHot, true)
	skipped := f.seedLead(t, 7, "Bob", "+15551230002", models.LeadScoreWarm, false)
	f.seedLead(t, 7, "Carol", "+15551230003", models.LeadScoreCold, true)

	resp, err := f.flow.CreateCampaign(context.Background(), scheduledCreateRequest(7, template.UUID.String()))
	require.NoError(t, err)

	assert.Equal(t, string(models.CampaignStatusScheduled), resp.Status)
	assert.Equal(t, 1, resp.ValidRecipients)
	assert.Equal(t, 1, resp.SkippedLeads)
	require.Len(t, resp.SkippedDetails, 1)
	assert.Equal(t, skipped.UUID.String(), resp.SkippedDetails[0].LeadUUID)
	assert.Equal(t, SkipReasonNoActiveChat, resp.SkippedDetails[0].Reason)

	campaign, err := f.campaigns.ByID(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, campaign.TotalRecipients)

	logs, err := f.logs.ListPendingByCampaign(context.Background(), resp.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "+15551230001", logs[0].Recipient)
	assert.Equal(t, "Hello Alice!", logs[0].MessageContent)
	assert.Equal(t, models.CampaignLogStatusPending, logs[0].Status)

	refreshed, err := f.templates.ByID(context.Background(), template.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, refreshed.UsageCount)
}

func TestCreateCampaignRequestVariablesWin(t *testing.T) {
	f := newCampaignFixture(t)
	template := f.seedTemplate(t, 7, "Hi {{name}}, use code {{code}}", []string{"name", "code"})
	f.seedLead(t, 7, "Alice", "+15551230001", models.LeadScoreHot, true)

	req := scheduledCreateRequest(7, template.UUID.String())
	req.Variables = map[string]string{"name": "friend", "code": "SPRING24"}

	resp, err := f.flow.CreateCampaign(context.Background(), req)
	require.NoError(t, err)

	logs, err := f.logs.ListPendingByCampaign(context.Background(), resp.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "Hi friend, use code SPRING24", logs[0].MessageContent)
}

func TestCreateCampaignImmediateTriggersExecution(t *testing.T) {
	f := newCampaignFixture(t)
	template := f.seedTemplate(t, 7, "Hello {{name}}!", []string{"name"})
	f.seedLead(t, 7, "Alice", "+15551230001", models.LeadScoreHot, true)

	req := scheduledCreateRequest(7, template.UUID.String())
	req.ScheduleType = string(models.ScheduleTypeImmediate)
	req.ScheduledAt = nil

	resp, err := f.flow.CreateCampaign(context.Background(), req)
	require.NoError(t, err)

	executed := f.executor.waitForExecution(t)
	assert.Equal(t, resp.ID, executed)
}

func TestCreateCampaignRecurringRegistersTimer(t *testing.T) {
	f := newCampaignFixture(t)
	template := f.seedTemplate(t, 7, "Hello {{name}}!", []string{"name"})
	f.seedLead(t, 7, "Alice", "+15551230001", models.LeadScoreHot, true)

	req := scheduledCreateRequest(7, template.UUID.String())
	req.ScheduleType = string(models.ScheduleTypeRecurring)
	req.ScheduledAt = nil
	req.CronExpression = utils.ToPtr("0 9 * * 1")

	resp, err := f.flow.CreateCampaign(context.Background(), req)
	require.NoError(t, err)

	f.registry.mu.Lock()
	defer f.registry.mu.Unlock()
	assert.Equal(t, "0 9 * * 1", f.registry.registered[resp.ID])
}

func TestCreateCampaignValidation(t *testing.T) {
	f := newCampaignFixture(t)
	template := f.seedTemplate(t, 7, "Hello", nil)

	cases := []struct {
		name    string
		mutate  func(*dto.CreateCampaignRequest)
		wantErr error
	}{
		{"missing name", func(r *dto.CreateCampaignRequest) { r.Name = "" }, ErrCampaignNameRequired},
		{"missing template", func(r *dto.CreateCampaignRequest) { r.TemplateUUID = "" }, ErrTemplateUUIDRequired},
		{"missing scores", func(r *dto.CreateCampaignRequest) { r.TargetScores = nil }, ErrTargetScoresRequired},
		{"scheduled without time", func(r *dto.CreateCampaignRequest) { r.ScheduledAt = nil }, ErrScheduleTimeNotPresent},
		{"recurring without cron", func(r *dto.CreateCampaignRequest) {
			r.ScheduleType = string(models.ScheduleTypeRecurring)
			r.CronExpression = nil
		}, ErrCronExpressionRequired},
		{"unknown schedule type", func(r *dto.CreateCampaignRequest) { r.ScheduleType = "hourly" }, ErrInvalidScheduleType},
		{"missing business", func(r *dto.CreateCampaignRequest) { r.BusinessID = 0 }, ErrBusinessContextRequired},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := scheduledCreateRequest(7, template.UUID.String())
			tc.mutate(req)

			resp, err := f.flow.CreateCampaign(context.Background(), req)
			assert.Nil(t, resp)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.wantErr))

			var bizErr *BusinessError
			require.ErrorAs(t, err, &bizErr)
			assert.Equal(t, CodeValidationError, bizErr.Code)
		})
	}
}

func TestCreateCampaignForeignTemplateNotFound(t *testing.T) {
	f := newCampaignFixture(t)
	template := f.seedTemplate(t, 99, "Hello", nil)

	resp, err := f.flow.CreateCampaign(context.Background(), scheduledCreateRequest(7, template.UUID.String()))
	assert.Nil(t, resp)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTemplateNotFound))
}

func TestCreateCampaignInactiveTemplateNotFound(t *testing.T) {
	f := newCampaignFixture(t)
	template := f.seedTemplate(t, 7, "Hello", nil)
	template.IsActive = false
	require.NoError(t, f.templates.Save(context.Background(), template))

	resp, err := f.flow.CreateCampaign(context.Background(), scheduledCreateRequest(7, template.UUID.String()))
	assert.Nil(t, resp)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTemplateNotFound))
}

func (f *campaignFixture) createCampaign(t *testing.T) *dto.CreateCampaignResponse {
	t.Helper()
	template := f.seedTemplate(t, 7, "Hello {{name}}!", []string{"name"})
	f.seedLead(t, 7, "Alice", "+15551230001", models.LeadScoreHot, true)
	resp, err := f.flow.CreateCampaign(context.Background(), scheduledCreateRequest(7, template.UUID.String()))
	require.NoError(t, err)
	return resp
}

func TestGetCampaignEnforcesOwnership(t *testing.T) {
	f := newCampaignFixture(t)
	created := f.createCampaign(t)

	got, err := f.flow.GetCampaign(context.Background(), &dto.GetCampaignRequest{BusinessID: 7, UUID: created.UUID})
	require.NoError(t, err)
	assert.Equal(t, created.UUID, got.Campaign.UUID)

	_, err = f.flow.GetCampaign(context.Background(), &dto.GetCampaignRequest{BusinessID: 8, UUID: created.UUID})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCampaignNotFound))
}

func TestExecuteCampaignTriggersDrain(t *testing.T) {
	f := newCampaignFixture(t)
	created := f.createCampaign(t)

	resp, err := f.flow.ExecuteCampaign(context.Background(), &dto.ExecuteCampaignRequest{BusinessID: 7, UUID: created.UUID})
	require.NoError(t, err)
	assert.Equal(t, string(models.CampaignStatusRunning), resp.Status)

	executed := f.executor.waitForExecution(t)
	assert.Equal(t, created.ID, executed)
}

func TestExecuteCampaignRejectsTerminal(t *testing.T) {
	f := newCampaignFixture(t)
	created := f.createCampaign(t)
	require.NoError(t, f.campaigns.UpdateStatus(context.Background(), created.ID, models.CampaignStatusCompleted))

	resp, err := f.flow.ExecuteCampaign(context.Background(), &dto.ExecuteCampaignRequest{BusinessID: 7, UUID: created.UUID})
	assert.Nil(t, resp)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCampaignAlreadyDrained))
}

func TestCancelCampaignStopsTimerAndFails(t *testing.T) {
	f := newCampaignFixture(t)
	created := f.createCampaign(t)

	resp, err := f.flow.CancelCampaign(context.Background(), &dto.CancelCampaignRequest{BusinessID: 7, UUID: created.UUID})
	require.NoError(t, err)
	assert.Equal(t, string(models.CampaignStatusFailed), resp.Status)

	campaign, err := f.campaigns.ByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusFailed, campaign.Status)

	f.registry.mu.Lock()
	defer f.registry.mu.Unlock()
	assert.Contains(t, f.registry.cancelled, created.ID)
}

func TestCancelCampaignRejectsCompleted(t *testing.T) {
	f := newCampaignFixture(t)
	created := f.createCampaign(t)
	require.NoError(t, f.campaigns.UpdateStatus(context.Background(), created.ID, models.CampaignStatusCompleted))

	resp, err := f.flow.CancelCampaign(context.Background(), &dto.CancelCampaignRequest{BusinessID: 7, UUID: created.UUID})
	assert.Nil(t, resp)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCampaignNotCancellable))
}

func TestListCampaignsPaging(t *testing.T) {
	f := newCampaignFixture(t)
	template := f.seedTemplate(t, 7, "Hello {{name}}!", []string{"name"})
	f.seedLead(t, 7, "Alice", "+15551230001", models.LeadScoreHot, true)

	for i := 0; i < 3; i++ {
		_, err := f.flow.CreateCampaign(context.Background(), scheduledCreateRequest(7, template.UUID.String()))
		require.NoError(t, err)
	}

	resp, err := f.flow.ListCampaigns(context.Background(), &dto.ListCampaignsRequest{BusinessID: 7, Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, resp.Items, 2)
	assert.Equal(t, int64(3), resp.Pagination.Total)

	resp, err = f.flow.ListCampaigns(context.Background(), &dto.ListCampaignsRequest{BusinessID: 7, Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, resp.Items, 1)

	_, err = f.flow.ListCampaigns(context.Background(), &dto.ListCampaignsRequest{BusinessID: 7, Page: -1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidPage))
}

func TestListCampaignLogs(t *testing.T) {
	f := newCampaignFixture(t)
	created := f.createCampaign(t)

	resp, err := f.flow.ListCampaignLogs(context.Background(), &dto.ListCampaignLogsRequest{BusinessID: 7, UUID: created.UUID})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Hello Alice!", resp.Items[0].MessageContent)
	assert.Equal(t, string(models.CampaignLogStatusPending), resp.Items[0].Status)
	assert.Equal(t, int64(1), resp.Pagination.Total)
}

func TestExportCampaignLogsProducesWorkbook(t *testing.T) {
	f := newCampaignFixture(t)
	created := f.createCampaign(t)

	content, filename, err := f.flow.ExportCampaignLogs(context.Background(), &dto.ListCampaignLogsRequest{BusinessID: 7, UUID: created.UUID})
	require.NoError(t, err)
	assert.NotEmpty(t, content)
	assert.Equal(t, "campaign-"+created.UUID+"-logs.xlsx", filename)
}
