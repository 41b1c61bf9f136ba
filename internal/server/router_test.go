package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cold-outreach-go/internal/config"
	"cold-outreach-go/internal/database"
	"cold-outreach-go/internal/drafts"
	"cold-outreach-go/internal/events"
	"cold-outreach-go/internal/gateway"
	"cold-outreach-go/internal/handler"
	"cold-outreach-go/internal/mailer"
	"cold-outreach-go/internal/metrics"
	"cold-outreach-go/internal/model"
	"cold-outreach-go/internal/poller"
	"cold-outreach-go/internal/repository"
	"cold-outreach-go/internal/scheduler"
)

type testEnv struct {
	router    *gin.Engine
	emails    *repository.EmailRepository
	leads     *repository.LeadRepository
	campaigns *repository.CampaignRepository
	replies   *repository.ReplyRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Init(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)

	emailRepo := repository.NewEmailRepository(db)
	replyRepo := repository.NewReplyRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	portfolioRepo := repository.NewPortfolioRepository(db)
	sendLogRepo := repository.NewSendLogRepository(db)

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)
	emitter := events.NewEmitter()
	gw := gateway.New(nil, gateway.Options{})
	transport := mailer.Disconnected{}

	sched := scheduler.New(scheduler.Config{
		DailyLimit: 100,
		MinDelay:   time.Millisecond,
		MaxDelay:   2 * time.Millisecond,
		Cooldown:   10 * time.Millisecond,
	}, transport, emailRepo, sendLogRepo, campaignRepo, emitter, m)

	inboxPoller := poller.New(transport, transport.IsConnected, gw, emailRepo, replyRepo, leadRepo, campaignRepo, emitter, m, poller.Config{
		Interval: time.Minute,
		Lookback: 24 * time.Hour,
		PageSize: 50,
	}, "me@example.com")

	generator := drafts.New(gw, campaignRepo, leadRepo, templateRepo, portfolioRepo, emailRepo, emitter, m, drafts.Config{Workers: 2})

	router := NewRouter(Handlers{
		Queue:     handler.NewQueueHandler(sched, emailRepo),
		Campaigns: handler.NewCampaignHandler(campaignRepo, emailRepo, generator),
		Emails:    handler.NewEmailHandler(emailRepo),
		Replies:   handler.NewReplyHandler(replyRepo),
		Poller:    handler.NewPollerHandler(inboxPoller),
		Leads:     handler.NewLeadHandler(leadRepo),
		Templates: handler.NewTemplateHandler(templateRepo),
		Portfolio: handler.NewPortfolioHandler(portfolioRepo),
		Events:    handler.NewEventsHandler(emitter),
	}, registry)

	return &testEnv{router: router, emails: emailRepo, leads: leadRepo, campaigns: campaignRepo, replies: replyRepo}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestQueueStatusAndStartDisconnected(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/queue/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status scheduler.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, scheduler.StateIdle, status.State)
	assert.Equal(t, 100, status.DailyLimit)

	// No mail transport: start is rejected.
	w = env.do(t, http.MethodPost, "/api/queue/start", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLeadValidation(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/leads", map[string]string{"first_name": "Ada"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/leads", map[string]string{
		"first_name": "Ada",
		"email":      "ada@example.com",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, "/api/leads", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var leads []model.Lead
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &leads))
	require.Len(t, leads, 1)
	assert.Equal(t, model.LeadNew, leads[0].Status)
}

func TestCampaignLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/leads", map[string]string{
		"first_name": "Ada",
		"email":      "ada@example.com",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var lead model.Lead
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &lead))

	w = env.do(t, http.MethodPost, "/api/campaigns", map[string]any{
		"name":     "Spring push",
		"lead_ids": []string{lead.ID},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var campaign model.Campaign
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &campaign))
	assert.Equal(t, model.CampaignDraft, campaign.Status)
	assert.Equal(t, 1, campaign.TotalLeads)

	w = env.do(t, http.MethodGet, "/api/campaigns/"+campaign.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/campaigns/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEmailApprovalFlow(t *testing.T) {
	env := newTestEnv(t)

	lead := &model.Lead{ID: "l1", FirstName: "Ada", Email: "ada@example.com"}
	require.NoError(t, env.leads.Create(lead))
	email := &model.Email{ID: "e1", CampaignID: "c1", LeadID: "l1", Subject: "s", Body: "b", Status: model.StatusDraft}
	require.NoError(t, env.emails.Create(email))

	w := env.do(t, http.MethodPost, "/api/emails/e1/approve", nil)
	require.Equal(t, http.StatusOK, w.Code)

	got, err := env.emails.ByID("e1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, got.Status)

	// Approving twice is rejected.
	w = env.do(t, http.MethodPost, "/api/emails/e1/approve", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Queue the approved email through the campaign endpoint.
	w = env.do(t, http.MethodPost, "/api/campaigns/c1/queue", nil)
	require.Equal(t, http.StatusOK, w.Code)

	got, err = env.emails.ByID("e1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusQueued, got.Status)
}

func TestReplyReclassify(t *testing.T) {
	env := newTestEnv(t)

	reply := &model.Reply{
		ID:                       "r1",
		EmailID:                  "e1",
		LeadID:                   "l1",
		ProviderMessageID:        "msg-1",
		FromEmail:                "ada@example.com",
		Classification:           model.ClassFollowUp,
		ClassificationConfidence: 0.5,
		ClassificationReasoning:  "automatic classification unavailable",
		ReceivedAt:               time.Now(),
	}
	require.NoError(t, env.replies.Create(reply))

	w := env.do(t, http.MethodPost, "/api/replies/r1/classify", map[string]any{
		"classification": "interested",
	})
	require.Equal(t, http.StatusOK, w.Code)

	got, err := env.replies.List(0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.ClassInterested, got[0].Classification)
	assert.Equal(t, 1.0, got[0].ClassificationConfidence)
	assert.Equal(t, "manually reclassified", got[0].ClassificationReasoning)

	// Labels outside the known set are rejected.
	w = env.do(t, http.MethodPost, "/api/replies/r1/classify", map[string]any{
		"classification": "maybe",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Missing label fails binding.
	w = env.do(t, http.MethodPost, "/api/replies/r1/classify", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPollerStatusEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/poller/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status poller.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.False(t, status.Scheduled)
	assert.False(t, status.Polling)
}
