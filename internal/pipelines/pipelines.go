// Package pipelines assembles sources, loaders, and engines into the named
// pipelines the orchestrator runs. Each pipeline constructs a fresh store
// and engine per run, so a registry can be executed repeatedly (for example
// on a cron schedule) without shared connection state.
package pipelines

import (
	"context"
	"time"

	"github.com/civicsync/civicsync/internal/embeddings"
	"github.com/civicsync/civicsync/internal/engine"
	"github.com/civicsync/civicsync/internal/loaders"
	"github.com/civicsync/civicsync/internal/orchestrator"
	"github.com/civicsync/civicsync/internal/sources/congress"
	"github.com/civicsync/civicsync/internal/sources/contacts"
	"github.com/civicsync/civicsync/internal/sources/fec"
	"github.com/civicsync/civicsync/internal/transport"
	"github.com/civicsync/civicsync/pkg/logging"
	"github.com/civicsync/civicsync/pkg/models"
	"github.com/civicsync/civicsync/pkg/store"
)

// Per-source request pacing. The congressional API tolerates a brisk pace;
// the clerk and FEC endpoints throttle aggressively and get longer delays.
const (
	congressDelay = 200 * time.Millisecond
	billsDelay    = 300 * time.Millisecond
	clerkDelay    = 500 * time.Millisecond
	fecDelay      = 500 * time.Millisecond
)

// defaultBillTypes are the bill types a full sync covers. Resolutions are
// fetched only when asked for explicitly.
var defaultBillTypes = []models.BillType{models.BillTypeHR, models.BillTypeS}

// Config carries everything the pipeline registry needs. NewStore must
// return a fresh unconnected store; each pipeline run owns the one it opens.
type Config struct {
	CongressAPIKey string
	FECAPIKey      string
	GeminiAPIKey   string
	EmbedModel     string

	Congress int
	Cycle    int

	// Scope narrowing, all optional.
	State    string
	Chamber  models.Chamber
	BillType models.BillType
	MaxItems int
	MaxPages int

	// Endpoint and pacing overrides. Zero values keep the real endpoints
	// and the per-source default delays.
	CongressBaseURL string
	FECBaseURL      string
	ContactsFeedURL string
	RequestDelay    time.Duration

	NewStore func() store.Store
}

// delay returns the per-source default unless an override is configured.
func (c Config) delay(def time.Duration) time.Duration {
	if c.RequestDelay != 0 {
		return c.RequestDelay
	}
	return def
}

func (c Config) congressClient(def time.Duration) *transport.Client {
	opts := []transport.Option{transport.WithDelay(c.delay(def))}
	if c.CongressBaseURL != "" {
		opts = append(opts, transport.WithBaseURL(c.CongressBaseURL))
	}
	return congress.NewClient(c.CongressAPIKey, opts...)
}

func (c Config) fecClient() *transport.Client {
	opts := []transport.Option{transport.WithDelay(c.delay(fecDelay))}
	if c.FECBaseURL != "" {
		opts = append(opts, transport.WithBaseURL(c.FECBaseURL))
	}
	return fec.NewClient(c.FECAPIKey, opts...)
}

// billTypes returns the configured bill type, or the defaults.
func (c Config) billTypes() []models.BillType {
	if c.BillType != "" {
		return []models.BillType{c.BillType}
	}
	return defaultBillTypes
}

// pipeline adapts a run function to the orchestrator's Pipeline interface.
type pipeline struct {
	name string
	deps []string
	run  func(ctx context.Context) (engine.Stats, error)
}

func (p *pipeline) Name() string   { return p.name }
func (p *pipeline) Deps() []string { return p.deps }
func (p *pipeline) Run(ctx context.Context) (engine.Stats, error) {
	return p.run(ctx)
}

// NewRegistry builds the full pipeline registry over the given configuration.
func NewRegistry(cfg Config) (*orchestrator.Orchestrator, error) {
	o := orchestrator.New()

	all := []*pipeline{
		{name: "members", run: cfg.runMembers},
		{name: "bills", deps: []string{"members"}, run: cfg.runBills},
		{name: "committees", deps: []string{"members"}, run: cfg.runCommittees},
		{name: "contacts", deps: []string{"members"}, run: cfg.runContacts},
		{name: "contributions", deps: []string{"members"}, run: cfg.runContributions},
		{name: "votes", deps: []string{"members", "bills"}, run: cfg.runVotes},
		{name: "embeddings", deps: []string{"bills"}, run: cfg.runEmbeddings},
		{name: "link-contributions", deps: []string{"members", "contributions"}, run: cfg.runLinkContributions},
	}
	for _, p := range all {
		if err := o.Register(p); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (c Config) runMembers(ctx context.Context) (engine.Stats, error) {
	st := c.NewStore()
	client := c.congressClient(congressDelay)

	var opts []congress.MembersOption
	if c.State != "" {
		opts = append(opts, congress.WithStateFilter(c.State))
	}
	if c.Chamber != "" {
		opts = append(opts, congress.WithChamberFilter(c.Chamber))
	}

	fetcher := congress.NewMembers(client, c.Congress, opts...)
	eng := engine.New("members", st, fetcher.Fetch, congress.TransformMember, loaders.NewPoliticians(st).Load)
	return eng.Run(ctx)
}

func (c Config) runBills(ctx context.Context) (engine.Stats, error) {
	client := c.congressClient(billsDelay)

	total := engine.Stats{Pipeline: "bills", StartedAt: time.Now().UTC()}
	for _, billType := range c.billTypes() {
		st := c.NewStore()

		var opts []congress.BillsOption
		if c.MaxItems > 0 {
			opts = append(opts, congress.WithBillsMaxItems(c.MaxItems))
		}

		fetcher := congress.NewBills(client, c.Congress, billType, opts...)
		eng := engine.New("bills", st, fetcher.Fetch, congress.TransformBill, loaders.NewBills(st).Load)

		stats, err := eng.Run(ctx)
		accumulate(&total, stats)
		if err != nil {
			return total, err
		}
	}
	total.CompletedAt = time.Now().UTC()
	return total, nil
}

func (c Config) runVotes(ctx context.Context) (engine.Stats, error) {
	st := c.NewStore()
	api := c.congressClient(billsDelay)
	// The clerk feed is unauthenticated; a separate client keeps the API
	// key out of its URLs.
	clerk := transport.New("clerk", transport.WithDelay(c.delay(clerkDelay)))

	var opts []congress.VotesOption
	if c.Chamber != "" {
		opts = append(opts, congress.WithVotesChamber(c.Chamber))
	}
	if c.MaxItems > 0 {
		opts = append(opts, congress.WithVotesMaxItems(c.MaxItems))
	}

	fetcher := congress.NewVotes(api, clerk, c.Congress, opts...)
	eng := engine.New("votes", st, fetcher.Fetch, congress.TransformRollCall, loaders.NewVotes(st).Load)
	return eng.Run(ctx)
}

func (c Config) runCommittees(ctx context.Context) (engine.Stats, error) {
	st := c.NewStore()
	client := c.congressClient(congressDelay)

	fetcher := congress.NewCommittees(client, c.Congress)
	eng := engine.New("committees", st, fetcher.Fetch, congress.TransformCommittee, loaders.NewCommittees(st).Load)
	return eng.Run(ctx)
}

func (c Config) runContacts(ctx context.Context) (engine.Stats, error) {
	st := c.NewStore()
	client := transport.New("legislators", transport.WithDelay(c.delay(0)))

	fetcher := contacts.NewLegislators(client, c.ContactsFeedURL)
	eng := engine.New("contacts", st, fetcher.Fetch, contacts.TransformLegislator, loaders.NewContacts(st).Load)
	return eng.Run(ctx)
}

// runContributions resolves FEC candidate ids for in-office politicians
// first, then pulls each resolved candidate's receipts. Resolution is
// idempotent (already-resolved politicians are skipped), so re-runs only
// pay for new members.
func (c Config) runContributions(ctx context.Context) (engine.Stats, error) {
	total := engine.Stats{Pipeline: "contributions", StartedAt: time.Now().UTC()}

	resolveStats, err := c.resolveCandidates(ctx)
	if err != nil {
		accumulate(&total, resolveStats)
		return total, err
	}

	candidateIDs, err := c.resolvedCandidateIDs(ctx)
	if err != nil {
		return total, err
	}
	logging.Ctx(ctx).Info().Int("candidates", len(candidateIDs)).Msg("fetching receipts per candidate")

	client := c.fecClient()
	for _, candidateID := range candidateIDs {
		st := c.NewStore()

		opts := []fec.ContributionsOption{fec.ForCandidate(candidateID)}
		if c.MaxPages > 0 {
			opts = append(opts, fec.WithMaxPages(c.MaxPages))
		}

		fetcher := fec.NewContributions(client, c.Cycle, opts...)
		eng := engine.New("contributions", st, fetcher.Fetch, fec.TransformReceipt, loaders.NewContributions(st).Load)

		stats, err := eng.Run(ctx)
		accumulate(&total, stats)
		if err != nil {
			return total, err
		}
	}
	total.CompletedAt = time.Now().UTC()
	return total, nil
}

func (c Config) runEmbeddings(ctx context.Context) (engine.Stats, error) {
	embedder, err := embeddings.NewGeminiEmbedder(ctx, c.GeminiAPIKey, c.EmbedModel)
	if err != nil {
		return engine.Stats{Pipeline: "embeddings"}, err
	}

	st := c.NewStore()
	fetcher := embeddings.NewBills(st)
	eng := engine.New("embeddings", st, fetcher.Fetch, embeddings.Transform(embedder), embeddings.Loader(st))
	return eng.Run(ctx)
}

// runLinkContributions re-runs candidate resolution to catch politicians the
// contributions run could not resolve, then stamps bioguide ids onto stored
// contributions whose candidate id now matches a politician.
func (c Config) runLinkContributions(ctx context.Context) (engine.Stats, error) {
	stats, err := c.resolveCandidates(ctx)
	stats.Pipeline = "link-contributions"
	if err != nil {
		return stats, err
	}

	st := c.NewStore()
	if err := st.Connect(ctx); err != nil {
		return stats, err
	}
	defer func() { _ = st.Close(ctx) }()

	linked, err := st.LinkContributionsByCandidateID(ctx)
	if err != nil {
		return stats, err
	}
	logging.Ctx(ctx).Info().Int64("linked", linked).Msg("contributions linked to politicians")
	return stats, nil
}

// resolveCandidates runs the candidate-resolution engine: politicians still
// missing an FEC candidate id are searched in the candidate registry and the
// matches recorded.
func (c Config) resolveCandidates(ctx context.Context) (engine.Stats, error) {
	st := c.NewStore()
	client := c.fecClient()

	fetcher := fec.NewCandidates(client, st)
	eng := engine.New("fec-candidates", st, fetcher.Fetch, passthroughMatch, loaders.NewCandidates(st).Load)
	return eng.Run(ctx)
}

// resolvedCandidateIDs lists the FEC candidate ids of in-office politicians.
func (c Config) resolvedCandidateIDs(ctx context.Context) ([]string, error) {
	st := c.NewStore()
	if err := st.Connect(ctx); err != nil {
		return nil, err
	}
	defer func() { _ = st.Close(ctx) }()

	inOffice := true
	politicians, err := st.ListPoliticians(ctx, store.PoliticianFilter{InOffice: &inOffice})
	if err != nil {
		return nil, err
	}

	var ids []string
	for i := range politicians {
		if politicians[i].FECCandidateID != "" {
			ids = append(ids, politicians[i].FECCandidateID)
		}
	}
	return ids, nil
}

// passthroughMatch is the identity transform for the candidate-resolution
// engine; the fetcher already emits canonical matches.
func passthroughMatch(_ context.Context, m *loaders.CandidateMatch) (*loaders.CandidateMatch, error) {
	return m, nil
}

// accumulate folds one engine run's counters into a multi-run total.
func accumulate(total *engine.Stats, s engine.Stats) {
	total.Processed += s.Processed
	total.Inserted += s.Inserted
	total.Updated += s.Updated
	total.Skipped += s.Skipped
	total.Errors += s.Errors
	if s.CompletedAt.After(total.CompletedAt) {
		total.CompletedAt = s.CompletedAt
	}
}
