package drafts

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"cold-outreach-go/internal/events"
	"cold-outreach-go/internal/gateway"
	"cold-outreach-go/internal/metrics"
	"cold-outreach-go/internal/model"
)

// maxWorkers caps the pool regardless of what the caller asks for. More
// concurrency than this just queues on the shared AI rate limiter.
const maxWorkers = 20

// CampaignStore is the campaign surface draft generation needs.
type CampaignStore interface {
	ByID(id string) (*model.Campaign, error)
	LeadIDs(campaignID string) ([]string, error)
	UpdateStatus(id, status string) error
}

// LeadStore loads the leads to draft for.
type LeadStore interface {
	ListByIDs(ids []string) ([]model.Lead, error)
}

// TemplateStore loads the campaign template used as the AI fallback.
type TemplateStore interface {
	ByID(id string) (*model.Template, error)
}

// PortfolioStore loads the portfolio examples offered to the prompts.
type PortfolioStore interface {
	List() ([]model.PortfolioExample, error)
}

// EmailStore persists generated drafts and reports which leads already have
// one.
type EmailStore interface {
	Create(email *model.Email) error
	LeadIDsWithEmail(campaignID string) ([]string, error)
}

// Config holds draft generation tuning.
type Config struct {
	// Workers is the default pool size when a request does not specify one.
	Workers int
	// Brief enables the one-shot campaign brief phase before per-lead drafts.
	Brief bool
	// ExtraContext is free-form sender context appended to every prompt.
	ExtraContext string
}

// ProgressPayload is emitted on campaigns:draft-progress.
type ProgressPayload struct {
	CampaignID string `json:"campaign_id"`
	Generated  int    `json:"generated"`
	Total      int    `json:"total"`
	Workers    int    `json:"workers"`
	Phase      string `json:"phase"`
}

// Result summarizes one generation run.
type Result struct {
	Generated int      `json:"generated"`
	Total     int      `json:"total"`
	Workers   int      `json:"workers"`
	Errors    []string `json:"errors,omitempty"`
}

// draft is the JSON shape the model must return per lead.
type draft struct {
	Subject              string `json:"subject"`
	Body                 string `json:"body"`
	PersonalizationNotes string `json:"personalization_notes"`
}

// Generator runs per-lead draft generation over a bounded worker pool.
// Generation is resumable: leads that already have an email row in the
// campaign are skipped, so re-running after a partial failure only drafts
// the remainder.
type Generator struct {
	gw        *gateway.Gateway
	campaigns CampaignStore
	leads     LeadStore
	templates TemplateStore
	portfolio PortfolioStore
	emails    EmailStore
	emitter   *events.Emitter
	metrics   *metrics.Metrics
	cfg       Config
}

func New(gw *gateway.Gateway, campaigns CampaignStore, leads LeadStore, templates TemplateStore, portfolio PortfolioStore, emails EmailStore, emitter *events.Emitter, m *metrics.Metrics, cfg Config) *Generator {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &Generator{
		gw:        gw,
		campaigns: campaigns,
		leads:     leads,
		templates: templates,
		portfolio: portfolio,
		emails:    emails,
		emitter:   emitter,
		metrics:   m,
		cfg:       cfg,
	}
}

// Generate drafts an email for every campaign lead that does not have one
// yet. requestedWorkers <= 0 means use the configured default.
func (g *Generator) Generate(ctx context.Context, campaignID string, requestedWorkers int) (*Result, error) {
	campaign, err := g.campaigns.ByID(campaignID)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, fmt.Errorf("campaign %s not found", campaignID)
	}

	var template *model.Template
	if campaign.TemplateID != "" {
		template, err = g.templates.ByID(campaign.TemplateID)
		if err != nil {
			return nil, err
		}
	}

	leadIDs, err := g.campaigns.LeadIDs(campaignID)
	if err != nil {
		return nil, err
	}
	drafted, err := g.emails.LeadIDsWithEmail(campaignID)
	if err != nil {
		return nil, err
	}
	pending := pendingLeadIDs(leadIDs, drafted)

	total := len(leadIDs)
	run := &runState{
		campaignID: campaignID,
		generated:  total - len(pending),
		total:      total,
	}

	if len(pending) == 0 {
		if err := g.campaigns.UpdateStatus(campaignID, model.CampaignDraftsReady); err != nil {
			logrus.Errorf("Failed to mark campaign %s drafts_ready: %v", campaignID, err)
		}
		return run.result(0), nil
	}

	leads, err := g.leads.ListByIDs(pending)
	if err != nil {
		return nil, err
	}

	workers := requestedWorkers
	if workers <= 0 {
		workers = g.cfg.Workers
	}
	if workers > len(pending) {
		workers = len(pending)
	}
	if workers > maxWorkers {
		workers = maxWorkers
	}
	run.workers = workers

	portfolio, err := g.portfolio.List()
	if err != nil {
		logrus.Warnf("Failed to load portfolio examples: %v", err)
	}

	brief := ""
	if g.cfg.Brief && g.gw.Configured() {
		g.emitProgress(run, "briefing")
		brief = g.campaignBrief(ctx, campaign, portfolio)
	}

	g.emitProgress(run, "generating")
	logrus.Infof("Drafting %d emails for campaign %s with %d workers", len(leads), campaignID, workers)

	work := make(chan model.Lead)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for lead := range work {
				g.draftOne(ctx, run, campaign, template, lead, brief, portfolio)
			}
		}()
	}
	for _, lead := range leads {
		work <- lead
	}
	close(work)
	wg.Wait()

	// The campaign advances even on partial errors; re-invoking generation
	// picks up the failed leads.
	if err := g.campaigns.UpdateStatus(campaignID, model.CampaignDraftsReady); err != nil {
		logrus.Errorf("Failed to mark campaign %s drafts_ready: %v", campaignID, err)
	}

	return run.result(workers), nil
}

// draftOne generates and persists one draft, falling back to the campaign
// template when the AI path is unavailable or fails.
func (g *Generator) draftOne(ctx context.Context, run *runState, campaign *model.Campaign, template *model.Template, lead model.Lead, brief string, portfolio []model.PortfolioExample) {
	d, err := g.aiDraft(ctx, campaign, template, lead, brief, portfolio)
	if err != nil {
		// Template substitution only replaces a missing AI configuration.
		// A configured gateway that fails for this lead is a recorded
		// failure, never a silent template send.
		if !gateway.IsKind(err, gateway.KindUnconfigured) || template == nil {
			logrus.Warnf("AI draft for lead %s failed: %v", lead.ID, err)
			run.fail(fmt.Sprintf("lead %s: %v", lead.ID, err))
			if g.metrics != nil {
				g.metrics.DraftFailures.Inc()
			}
			return
		}
		d = renderTemplate(template, lead)
	}

	email := &model.Email{
		ID:                   uuid.NewString(),
		CampaignID:           campaign.ID,
		LeadID:               lead.ID,
		TemplateID:           campaign.TemplateID,
		Subject:              d.Subject,
		Body:                 d.Body,
		PersonalizationNotes: d.PersonalizationNotes,
		Status:               model.StatusDraft,
	}
	if err := g.emails.Create(email); err != nil {
		logrus.Errorf("Failed to save draft for lead %s: %v", lead.ID, err)
		run.fail(fmt.Sprintf("lead %s: %v", lead.ID, err))
		if g.metrics != nil {
			g.metrics.DraftFailures.Inc()
		}
		return
	}

	run.success()
	if g.metrics != nil {
		g.metrics.DraftsGenerated.Inc()
	}
	g.emitProgress(run, "generating")
}

// aiDraft asks the model for one personalized draft.
func (g *Generator) aiDraft(ctx context.Context, campaign *model.Campaign, template *model.Template, lead model.Lead, brief string, portfolio []model.PortfolioExample) (*draft, error) {
	prompt := buildDraftPrompt(campaign, template, lead, brief, portfolio, g.cfg.ExtraContext)
	text, _, err := g.gw.Generate(ctx, "draft_email", prompt)
	if err != nil {
		return nil, err
	}
	var d draft
	if err := gateway.Decode(text, &d); err != nil {
		return nil, err
	}
	if d.Subject == "" || d.Body == "" {
		return nil, fmt.Errorf("model returned empty subject or body")
	}
	return &d, nil
}

// campaignBrief generates the one-shot campaign angle shared by every draft
// prompt. Failures degrade to no brief.
func (g *Generator) campaignBrief(ctx context.Context, campaign *model.Campaign, portfolio []model.PortfolioExample) string {
	text, _, err := g.gw.Generate(ctx, "campaign_brief", buildBriefPrompt(campaign, portfolio, g.cfg.ExtraContext))
	if err != nil {
		logrus.Warnf("Campaign brief generation failed: %v", err)
		return ""
	}
	var out struct {
		Brief string `json:"brief"`
	}
	if err := gateway.Decode(text, &out); err != nil {
		logrus.Warnf("Campaign brief response malformed: %v", err)
		return ""
	}
	return out.Brief
}

func (g *Generator) emitProgress(run *runState, phase string) {
	g.emitter.Emit(events.DraftProgress, ProgressPayload{
		CampaignID: run.campaignID,
		Generated:  run.generatedCount(),
		Total:      run.total,
		Workers:    run.workers,
		Phase:      phase,
	})
}

// runState is the shared counter block for one generation run.
type runState struct {
	mu         sync.Mutex
	campaignID string
	generated  int
	total      int
	workers    int
	errors     []string
}

func (r *runState) success() {
	r.mu.Lock()
	r.generated++
	r.mu.Unlock()
}

func (r *runState) fail(msg string) {
	r.mu.Lock()
	r.errors = append(r.errors, msg)
	r.mu.Unlock()
}

func (r *runState) generatedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generated
}

func (r *runState) result(workers int) *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &Result{
		Generated: r.generated,
		Total:     r.total,
		Workers:   workers,
		Errors:    r.errors,
	}
}

// pendingLeadIDs returns ids minus drafted, preserving order.
func pendingLeadIDs(ids, drafted []string) []string {
	seen := make(map[string]bool, len(drafted))
	for _, id := range drafted {
		seen[id] = true
	}
	var pending []string
	for _, id := range ids {
		if !seen[id] {
			pending = append(pending, id)
		}
	}
	return pending
}

var placeholderRe = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// renderTemplate fills {{variable}} placeholders from the lead. Unknown
// placeholders render empty rather than leaking braces into the email.
func renderTemplate(template *model.Template, lead model.Lead) *draft {
	vars := map[string]string{
		"first_name": lead.FirstName,
		"last_name":  lead.LastName,
		"email":      lead.Email,
		"company":    lead.Company,
		"website":    lead.Website,
		"niche":      lead.Niche,
	}
	fill := func(s string) string {
		return placeholderRe.ReplaceAllStringFunc(s, func(m string) string {
			key := placeholderRe.FindStringSubmatch(m)[1]
			return vars[key]
		})
	}
	return &draft{
		Subject: fill(template.Subject),
		Body:    fill(template.Body),
	}
}
