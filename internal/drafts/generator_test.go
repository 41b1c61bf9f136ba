package drafts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cold-outreach-go/internal/events"
	"cold-outreach-go/internal/gateway"
	"cold-outreach-go/internal/model"
)

// memStores bundles in-memory implementations of every store the generator
// needs.
type memStores struct {
	mu        sync.Mutex
	campaign  *model.Campaign
	template  *model.Template
	leads     map[string]model.Lead
	leadOrder []string
	emails    []model.Email
	status    string
	portfolio []model.PortfolioExample
}

func newMemStores(leadCount int) *memStores {
	s := &memStores{
		campaign: &model.Campaign{ID: "c1", Name: "Test", Niche: "plumbers", Status: model.CampaignDraft},
		leads:    map[string]model.Lead{},
	}
	for i := 0; i < leadCount; i++ {
		id := fmt.Sprintf("l%d", i)
		s.leads[id] = model.Lead{ID: id, FirstName: fmt.Sprintf("Lead%d", i), Email: fmt.Sprintf("l%d@example.com", i)}
		s.leadOrder = append(s.leadOrder, id)
	}
	return s
}

func (s *memStores) ByID(id string) (*model.Campaign, error) {
	if s.campaign != nil && s.campaign.ID == id {
		c := *s.campaign
		return &c, nil
	}
	return nil, nil
}

func (s *memStores) LeadIDs(campaignID string) ([]string, error) {
	return append([]string(nil), s.leadOrder...), nil
}

func (s *memStores) UpdateStatus(id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	return nil
}

func (s *memStores) ListByIDs(ids []string) ([]model.Lead, error) {
	var out []model.Lead
	for _, id := range ids {
		if lead, ok := s.leads[id]; ok {
			out = append(out, lead)
		}
	}
	return out, nil
}

func (s *memStores) List() ([]model.PortfolioExample, error) {
	return s.portfolio, nil
}

func (s *memStores) Create(email *model.Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emails = append(s.emails, *email)
	return nil
}

func (s *memStores) LeadIDsWithEmail(campaignID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, e := range s.emails {
		ids = append(ids, e.LeadID)
	}
	return ids, nil
}

func (s *memStores) emailCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.emails)
}

func (s *memStores) campaignStatus() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// templateStore satisfies TemplateStore separately so tests can vary it.
type templateStore struct {
	template *model.Template
}

func (s *templateStore) ByID(id string) (*model.Template, error) {
	return s.template, nil
}

// constGenerator always answers with the same text. Safe for concurrent
// workers.
type constGenerator struct {
	text string
	err  error
}

func (g *constGenerator) GenerateContent(ctx context.Context, model, prompt string) (*gateway.GenerationResult, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &gateway.GenerationResult{Text: g.text}, nil
}

// seqGenerator answers with a scripted sequence.
type seqGenerator struct {
	mu    sync.Mutex
	texts []string
}

func (g *seqGenerator) GenerateContent(ctx context.Context, model, prompt string) (*gateway.GenerationResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.texts) == 0 {
		return nil, errors.New("unexpected call")
	}
	text := g.texts[0]
	g.texts = g.texts[1:]
	return &gateway.GenerationResult{Text: text}, nil
}

const draftJSON = `{"subject": "Quick question", "body": "Hi there", "personalization_notes": "mentioned their site"}`

func testGateway(gen gateway.ContentGenerator) *gateway.Gateway {
	return gateway.New(gen, gateway.Options{
		Models:     []string{"model-a"},
		Limiter:    gateway.NewWindowLimiter(1000, time.Minute),
		MaxRetries: 1,
		RetryBase:  time.Millisecond,
	})
}

func phases(emitted []events.Event) []string {
	var out []string
	for _, ev := range emitted {
		if ev.Name != events.DraftProgress {
			continue
		}
		out = append(out, ev.Payload.(ProgressPayload).Phase)
	}
	return out
}

func waitForPhase(t *testing.T, snapshot func() []events.Event, phase string) {
	t.Helper()
	require.Eventually(t, func() bool {
		for _, p := range phases(snapshot()) {
			if p == phase {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func collectEvents(emitter *events.Emitter) func() []events.Event {
	ch, _ := emitter.Subscribe()
	var mu sync.Mutex
	var collected []events.Event
	go func() {
		for ev := range ch {
			mu.Lock()
			collected = append(collected, ev)
			mu.Unlock()
		}
	}()
	return func() []events.Event {
		mu.Lock()
		defer mu.Unlock()
		return append([]events.Event(nil), collected...)
	}
}

func TestGenerateDraftsForAllLeads(t *testing.T) {
	stores := newMemStores(5)
	emitter := events.NewEmitter()
	snapshot := collectEvents(emitter)

	g := New(testGateway(&constGenerator{text: draftJSON}), stores, stores, &templateStore{}, stores, stores, emitter, nil, Config{Workers: 3})

	res, err := g.Generate(context.Background(), "c1", 0)
	require.NoError(t, err)

	assert.Equal(t, 5, res.Generated)
	assert.Equal(t, 5, res.Total)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 5, stores.emailCount())
	assert.Equal(t, model.CampaignDraftsReady, stores.campaignStatus())

	for _, e := range stores.emails {
		assert.Equal(t, "Quick question", e.Subject)
		assert.Equal(t, model.StatusDraft, e.Status)
	}
	waitForPhase(t, snapshot, "generating")
}

func TestGenerateDraftsIsResumable(t *testing.T) {
	stores := newMemStores(10)
	// Three leads already have drafts from an earlier partial run.
	for _, id := range []string{"l0", "l1", "l2"} {
		stores.emails = append(stores.emails, model.Email{ID: "prior-" + id, LeadID: id, CampaignID: "c1"})
	}
	emitter := events.NewEmitter()

	g := New(testGateway(&constGenerator{text: draftJSON}), stores, stores, &templateStore{}, stores, stores, emitter, nil, Config{Workers: 2})

	res, err := g.Generate(context.Background(), "c1", 0)
	require.NoError(t, err)

	// Exactly the seven missing drafts were generated.
	assert.Equal(t, 10, res.Generated)
	assert.Equal(t, 10, res.Total)
	assert.Equal(t, 10, stores.emailCount())

	seen := map[string]int{}
	for _, e := range stores.emails {
		seen[e.LeadID]++
	}
	for id, n := range seen {
		assert.Equalf(t, 1, n, "lead %s has %d emails", id, n)
	}
}

func TestGenerateDraftsNothingPending(t *testing.T) {
	stores := newMemStores(2)
	stores.emails = []model.Email{
		{ID: "p0", LeadID: "l0", CampaignID: "c1"},
		{ID: "p1", LeadID: "l1", CampaignID: "c1"},
	}
	emitter := events.NewEmitter()

	g := New(testGateway(&constGenerator{text: draftJSON}), stores, stores, &templateStore{}, stores, stores, emitter, nil, Config{})

	res, err := g.Generate(context.Background(), "c1", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Generated)
	assert.Equal(t, 2, stores.emailCount())
	assert.Equal(t, model.CampaignDraftsReady, stores.campaignStatus())
}

func TestGenerateDraftsWorkerCap(t *testing.T) {
	stores := newMemStores(30)
	emitter := events.NewEmitter()

	g := New(testGateway(&constGenerator{text: draftJSON}), stores, stores, &templateStore{}, stores, stores, emitter, nil, Config{Workers: 4})

	res, err := g.Generate(context.Background(), "c1", 50)
	require.NoError(t, err)
	assert.Equal(t, 20, res.Workers)

	stores2 := newMemStores(3)
	g2 := New(testGateway(&constGenerator{text: draftJSON}), stores2, stores2, &templateStore{}, stores2, stores2, events.NewEmitter(), nil, Config{Workers: 8})
	res2, err := g2.Generate(context.Background(), "c1", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, res2.Workers)
}

func TestGenerateDraftsTemplateFallback(t *testing.T) {
	stores := newMemStores(1)
	stores.leads["l0"] = model.Lead{ID: "l0", FirstName: "Ada", Company: "Lovelace Ltd", Email: "ada@example.com"}
	templates := &templateStore{template: &model.Template{
		ID:      "t1",
		Subject: "Hi {{first_name}}",
		Body:    "I saw {{company}} and {{ missing }} thought of you.",
	}}
	stores.campaign.TemplateID = "t1"
	emitter := events.NewEmitter()

	// Unconfigured gateway: every AI draft fails, the template fills in.
	g := New(testGateway(nil), stores, stores, templates, stores, stores, emitter, nil, Config{Workers: 1})

	res, err := g.Generate(context.Background(), "c1", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Generated)
	assert.Empty(t, res.Errors)

	require.Equal(t, 1, stores.emailCount())
	email := stores.emails[0]
	assert.Equal(t, "Hi Ada", email.Subject)
	assert.Equal(t, "I saw Lovelace Ltd and  thought of you.", email.Body)
}

func TestGenerateDraftsConfiguredFailureDoesNotUseTemplate(t *testing.T) {
	stores := newMemStores(1)
	templates := &templateStore{template: &model.Template{
		ID:      "t1",
		Subject: "Hi {{first_name}}",
		Body:    "Template body",
	}}
	stores.campaign.TemplateID = "t1"
	emitter := events.NewEmitter()

	// The gateway answers, but with a payload that fails the draft decode.
	g := New(testGateway(&constGenerator{text: `{"wrong": true}`}), stores, stores, templates, stores, stores, emitter, nil, Config{Workers: 1})

	res, err := g.Generate(context.Background(), "c1", 0)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Generated)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "l0")
	// No template-rendered email sneaks in for a failed lead.
	assert.Equal(t, 0, stores.emailCount())
}

func TestGenerateDraftsRecordsErrorsWithoutTemplate(t *testing.T) {
	stores := newMemStores(3)
	emitter := events.NewEmitter()

	g := New(testGateway(&constGenerator{err: errors.New("boom")}), stores, stores, &templateStore{}, stores, stores, emitter, nil, Config{Workers: 2})

	res, err := g.Generate(context.Background(), "c1", 0)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Generated)
	assert.Len(t, res.Errors, 3)
	assert.Equal(t, 0, stores.emailCount())
	// The campaign still advances; re-invoking generation retries the
	// failed leads.
	assert.Equal(t, model.CampaignDraftsReady, stores.campaignStatus())
}

func TestGenerateDraftsBriefPhase(t *testing.T) {
	stores := newMemStores(1)
	emitter := events.NewEmitter()
	snapshot := collectEvents(emitter)

	gen := &seqGenerator{texts: []string{
		`{"brief": "lead with a compliment about their reviews"}`,
		draftJSON,
	}}
	g := New(testGateway(gen), stores, stores, &templateStore{}, stores, stores, emitter, nil, Config{Workers: 1, Brief: true})

	res, err := g.Generate(context.Background(), "c1", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Generated)

	waitForPhase(t, snapshot, "briefing")
	waitForPhase(t, snapshot, "generating")
}

func TestGenerateDraftsUnknownCampaign(t *testing.T) {
	stores := newMemStores(0)
	g := New(testGateway(nil), stores, stores, &templateStore{}, stores, stores, events.NewEmitter(), nil, Config{})

	_, err := g.Generate(context.Background(), "nope", 0)
	assert.Error(t, err)
}

func TestRenderTemplate(t *testing.T) {
	tpl := &model.Template{
		Subject: "For {{company}}",
		Body:    "Hi {{first_name}} {{last_name}}, visit {{website}} about {{niche}}. {{unknown}} end.",
	}
	lead := model.Lead{FirstName: "Ada", LastName: "Lovelace", Company: "ACME", Website: "acme.io", Niche: "analytics"}

	d := renderTemplate(tpl, lead)
	assert.Equal(t, "For ACME", d.Subject)
	assert.Equal(t, "Hi Ada Lovelace, visit acme.io about analytics.  end.", d.Body)
}
