package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/civicsync/civicsync/cmd/civicsync/app"
	"github.com/civicsync/civicsync/internal/orchestrator"
	"github.com/civicsync/civicsync/internal/pipelines"
	"github.com/civicsync/civicsync/pkg/errors"
	"github.com/civicsync/civicsync/pkg/logging"
	"github.com/civicsync/civicsync/pkg/models"
	"github.com/civicsync/civicsync/pkg/normalize"
	"github.com/civicsync/civicsync/pkg/store"
	"github.com/civicsync/civicsync/pkg/store/memory"
	"github.com/civicsync/civicsync/pkg/store/mongo"
)

// syncFlags are the scope flags of the sync command.
type syncFlags struct {
	congress int
	cycle    int
	state    string
	chamber  string
	billType string
	maxItems int
	maxPages int

	only   []string
	skip   []string
	dryRun bool
	every  string
	store  string
}

func newSyncCommand(a *app.App) *cobra.Command {
	flags := &syncFlags{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run the sync pipelines",
		Long: `Sync runs the data pipelines in dependency order. By default every
pipeline runs; --only restricts the run to the named pipelines (plus
whatever they depend on) and --skip drops pipelines from the default
selection. A pipeline whose dependency failed is skipped, independent
pipelines still run.

The command exits non-zero when any pipeline fails or any item-level
error was counted, so schedulers notice degraded runs.`,
		Example: `  civicsync sync                             # full run
  civicsync sync --only members,votes        # members, bills, votes
  civicsync sync --state UT --max-items 50   # small scoped run
  civicsync sync --dry-run                   # print the plan only
  civicsync sync --every "0 6 * * *"         # run daily at 06:00`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd.Context(), a, flags)
		},
	}

	cmd.Flags().IntVar(&flags.congress, "congress", 0, "congress number (default: the sitting one)")
	cmd.Flags().IntVar(&flags.cycle, "cycle", 0, "election cycle for contributions (default: the current one)")
	cmd.Flags().StringVar(&flags.state, "state", "", "restrict member sync to one state code")
	cmd.Flags().StringVar(&flags.chamber, "chamber", "", "restrict to one chamber: house or senate")
	cmd.Flags().StringVar(&flags.billType, "bill-type", "", "restrict bill sync to one type (hr, s, hres, ...)")
	cmd.Flags().IntVar(&flags.maxItems, "max-items", 0, "cap items per fetch (0 = no cap)")
	cmd.Flags().IntVar(&flags.maxPages, "max-pages", 0, "cap FEC receipt pages per candidate (0 = follow pagination)")
	cmd.Flags().StringSliceVar(&flags.only, "only", nil, "run only these pipelines (dependencies are added automatically)")
	cmd.Flags().StringSliceVar(&flags.skip, "skip", nil, "drop these pipelines from the default selection")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "print the resolved run plan without running")
	cmd.Flags().StringVar(&flags.every, "every", "", "cron schedule; keeps running the sync on it")
	cmd.Flags().StringVar(&flags.store, "store", "", "store backend: mongo or memory")

	return cmd
}

func runSync(ctx context.Context, a *app.App, flags *syncFlags) error {
	cfg := a.Config()
	if flags.store != "" {
		cfg.Store = flags.store
	}
	if flags.congress != 0 {
		cfg.Congress = flags.congress
	}
	if flags.cycle != 0 {
		cfg.Cycle = flags.cycle
	}

	pcfg, err := buildPipelineConfig(cfg, flags)
	if err != nil {
		return err
	}

	registry, err := pipelines.NewRegistry(pcfg)
	if err != nil {
		return err
	}

	requested, err := selectPipelines(registry, flags.only, flags.skip)
	if err != nil {
		return err
	}

	plan, err := registry.Resolve(requested)
	if err != nil {
		return err
	}
	if err := cfg.ValidateFor(plan); err != nil {
		return err
	}

	if flags.dryRun {
		fmt.Fprintf(os.Stdout, "Run plan (%d pipelines):\n", len(plan))
		for i, name := range plan {
			fmt.Fprintf(os.Stdout, "  %d. %s\n", i+1, name)
		}
		return nil
	}

	ctx = logging.WithLogger(ctx, a.Logger())

	if flags.every != "" {
		return runOnSchedule(ctx, a, registry, requested, flags.every)
	}
	return runOnce(ctx, a, registry, requested)
}

// runOnce executes the plan and reports the outcome. A failed pipeline or
// any item-level error makes the command fail.
func runOnce(ctx context.Context, a *app.App, registry *orchestrator.Orchestrator, requested []string) error {
	report, err := registry.Run(ctx, requested)
	if err != nil {
		return err
	}

	for _, outcome := range report.Outcomes {
		writeOutcome(os.Stderr, outcome)
	}

	if report.Failed() {
		return errors.New("sync finished with failed pipelines")
	}
	if n := report.ItemErrors(); n > 0 {
		return fmt.Errorf("sync finished with %d item errors", n)
	}
	a.Logger().Info().Msg("sync finished clean")
	return nil
}

// writeOutcome prints one pipeline result. A failed pipeline still produced
// stats for the items it got through, so its summary is printed before the
// failure line.
func writeOutcome(w io.Writer, outcome orchestrator.Outcome) {
	switch outcome.Status {
	case orchestrator.StatusCompleted:
		fmt.Fprintln(w, outcome.Stats.Summary())
	case orchestrator.StatusFailed:
		fmt.Fprintln(w, outcome.Stats.Summary())
		fmt.Fprintf(w, "%s: FAILED: %v\n", outcome.Pipeline, outcome.Err)
	case orchestrator.StatusSkipped:
		fmt.Fprintf(w, "%s: skipped (%v)\n", outcome.Pipeline, outcome.Err)
	}
}

// runOnSchedule runs the plan immediately, then again on every cron tick
// until the context is cancelled. Scheduled-run failures are logged, not
// fatal: the schedule keeps going.
func runOnSchedule(ctx context.Context, a *app.App, registry *orchestrator.Orchestrator, requested []string, schedule string) error {
	log := a.Logger()

	runAndLog := func() {
		if err := runOnce(ctx, a, registry, requested); err != nil {
			log.Error().Err(err).Msg("scheduled sync degraded")
		}
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, runAndLog); err != nil {
		return errors.NewConfigError("sync", fmt.Sprintf("invalid cron schedule %q", schedule), err)
	}

	runAndLog()
	c.Start()
	log.Info().Str("schedule", schedule).Msg("sync scheduled")

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	return nil
}

// buildPipelineConfig translates app config plus flags into the pipeline
// registry configuration, validating the scope flags.
func buildPipelineConfig(cfg *app.Config, flags *syncFlags) (pipelines.Config, error) {
	pcfg := pipelines.Config{
		CongressAPIKey: cfg.CongressAPIKey,
		FECAPIKey:      cfg.FECAPIKey,
		GeminiAPIKey:   cfg.GeminiAPIKey,
		EmbedModel:     cfg.EmbedModel,
		Congress:       cfg.Congress,
		Cycle:          cfg.Cycle,
		MaxItems:       flags.maxItems,
		MaxPages:       flags.maxPages,
	}

	if flags.state != "" {
		code, ok := normalize.State(flags.state)
		if !ok {
			return pcfg, errors.NewConfigError("sync", fmt.Sprintf("unknown state %q", flags.state), nil)
		}
		pcfg.State = code
	}
	if flags.chamber != "" {
		chamber, ok := normalize.Chamber(flags.chamber)
		if !ok {
			return pcfg, errors.NewConfigError("sync", fmt.Sprintf("unknown chamber %q", flags.chamber), nil)
		}
		pcfg.Chamber = chamber
	}
	if flags.billType != "" {
		billType := models.BillType(strings.ToLower(flags.billType))
		if !billType.IsValid() {
			return pcfg, errors.NewConfigError("sync", fmt.Sprintf("unknown bill type %q", flags.billType), nil)
		}
		pcfg.BillType = billType
	}

	switch cfg.Store {
	case app.StoreMemory:
		// One shared instance: pipelines in a run see each other's writes.
		shared := memory.New()
		pcfg.NewStore = func() store.Store { return shared }
	default:
		uri, database := cfg.MongoURI, cfg.MongoDatabase
		pcfg.NewStore = func() store.Store { return mongo.New(uri, database) }
	}

	return pcfg, nil
}

// selectPipelines computes the requested set from --only/--skip. Skipped
// names still run when a surviving pipeline depends on them.
func selectPipelines(registry *orchestrator.Orchestrator, only, skip []string) ([]string, error) {
	if len(only) > 0 && len(skip) > 0 {
		return nil, errors.NewConfigError("sync", "--only and --skip are mutually exclusive", nil)
	}
	if len(only) > 0 {
		return only, nil
	}
	if len(skip) == 0 {
		return nil, nil
	}

	skipped := make(map[string]bool, len(skip))
	for _, name := range skip {
		skipped[name] = true
	}

	var requested []string
	for _, name := range registry.Names() {
		if !skipped[name] {
			requested = append(requested, name)
			continue
		}
		delete(skipped, name)
	}
	for name := range skipped {
		return nil, errors.NewConfigError("sync", fmt.Sprintf("unknown pipeline %q in --skip", name), nil)
	}
	return requested, nil
}
