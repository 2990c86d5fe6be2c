// Package orchestrator runs named sync pipelines in dependency order. Each
// pipeline declares what it depends on (votes need members and bills to exist
// first, contact enrichment needs members, and so on); the orchestrator
// resolves the requested set to its dependency closure, orders it
// deterministically, and runs the pipelines one at a time. A failed pipeline
// skips its dependents but never an independent pipeline.
package orchestrator

import (
	"context"
	"fmt"
	"sort"

	"github.com/civicsync/civicsync/internal/engine"
	"github.com/civicsync/civicsync/pkg/errors"
	"github.com/civicsync/civicsync/pkg/logging"
)

// Pipeline is one runnable sync unit. Run is expected to construct a fresh
// engine internally; the orchestrator may be asked to execute the same
// registry more than once.
type Pipeline interface {
	// Name is the registry key, unique within an orchestrator.
	Name() string
	// Deps lists the names of pipelines that must complete successfully
	// before this one runs.
	Deps() []string
	// Run executes the pipeline and reports its stats. Stats are valid
	// even on error.
	Run(ctx context.Context) (engine.Stats, error)
}

// Status records how a pipeline ended within one orchestrator run.
type Status string

// Pipeline outcomes.
const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Outcome is the per-pipeline entry of a run report.
type Outcome struct {
	Pipeline string       `json:"pipeline"`
	Status   Status       `json:"status"`
	Stats    engine.Stats `json:"stats"`
	Err      error        `json:"-"`
}

// Report aggregates one orchestrator run.
type Report struct {
	Order    []string  `json:"order"`
	Outcomes []Outcome `json:"outcomes"`
}

// Failed reports whether any pipeline failed or was skipped.
func (r *Report) Failed() bool {
	for _, o := range r.Outcomes {
		if o.Status != StatusCompleted {
			return true
		}
	}
	return false
}

// ItemErrors sums the per-item error counters across all pipelines that ran.
func (r *Report) ItemErrors() int {
	var n int
	for _, o := range r.Outcomes {
		n += o.Stats.Errors
	}
	return n
}

// Orchestrator holds the pipeline registry.
type Orchestrator struct {
	pipelines map[string]Pipeline
}

// New creates an empty orchestrator.
func New() *Orchestrator {
	return &Orchestrator{pipelines: make(map[string]Pipeline)}
}

// Register adds a pipeline to the registry. Registering two pipelines under
// the same name is a programming error.
func (o *Orchestrator) Register(p Pipeline) error {
	name := p.Name()
	if name == "" {
		return errors.NewConfigError("orchestrator", "pipeline has no name", nil)
	}
	if _, exists := o.pipelines[name]; exists {
		return errors.NewConfigError("orchestrator", fmt.Sprintf("pipeline %q registered twice", name), nil)
	}
	o.pipelines[name] = p
	return nil
}

// Pipeline returns the registered pipeline with the given name.
func (o *Orchestrator) Pipeline(name string) (Pipeline, bool) {
	p, ok := o.pipelines[name]
	return p, ok
}

// Names returns all registered pipeline names, sorted.
func (o *Orchestrator) Names() []string {
	names := make([]string, 0, len(o.pipelines))
	for name := range o.pipelines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve expands the requested pipelines to their dependency closure and
// returns them in execution order. An empty request selects every registered
// pipeline. The order is deterministic: when several pipelines are ready at
// the same time they run alphabetically.
func (o *Orchestrator) Resolve(requested []string) ([]string, error) {
	selected, err := o.closure(requested)
	if err != nil {
		return nil, err
	}
	return o.sortTopologically(selected)
}

// Run resolves and executes the requested pipelines sequentially. A pipeline
// whose dependency failed (or was itself skipped) is skipped and recorded as
// such. Run only returns an error when resolution fails; execution failures
// live in the report.
func (o *Orchestrator) Run(ctx context.Context, requested []string) (*Report, error) {
	order, err := o.Resolve(requested)
	if err != nil {
		return nil, err
	}

	log := logging.Ctx(ctx)
	log.Info().Strs("order", order).Msg("run plan resolved")

	report := &Report{Order: order}
	completed := make(map[string]bool, len(order))

	for _, name := range order {
		p := o.pipelines[name]

		if blocked := o.blockedBy(p, completed); blocked != "" {
			log.Warn().Str("pipeline", name).Str("blocked_by", blocked).Msg("skipping pipeline")
			report.Outcomes = append(report.Outcomes, Outcome{
				Pipeline: name,
				Status:   StatusSkipped,
				Err:      errors.NewPipelineError(name, fmt.Errorf("dependency %s did not complete", blocked)),
			})
			continue
		}

		stats, err := p.Run(ctx)
		outcome := Outcome{Pipeline: name, Stats: stats, Err: err}
		if err != nil {
			outcome.Status = StatusFailed
			log.Error().Err(err).Str("pipeline", name).Msg("pipeline failed")
		} else {
			outcome.Status = StatusCompleted
			completed[name] = true
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	return report, nil
}

// closure returns the requested names plus every transitive dependency.
func (o *Orchestrator) closure(requested []string) (map[string]bool, error) {
	if len(requested) == 0 {
		requested = o.Names()
	}

	selected := make(map[string]bool)
	queue := append([]string(nil), requested...)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if selected[name] {
			continue
		}
		p, ok := o.pipelines[name]
		if !ok {
			return nil, errors.NewConfigError("orchestrator", fmt.Sprintf("unknown pipeline %q", name), nil)
		}
		selected[name] = true
		queue = append(queue, p.Deps()...)
	}
	return selected, nil
}

// sortTopologically orders the selected pipelines with Kahn's algorithm,
// breaking ties alphabetically so runs are reproducible.
func (o *Orchestrator) sortTopologically(selected map[string]bool) ([]string, error) {
	indegree := make(map[string]int, len(selected))
	dependents := make(map[string][]string, len(selected))
	for name := range selected {
		indegree[name] = 0
	}
	for name := range selected {
		for _, dep := range o.pipelines[name].Deps() {
			if !selected[dep] {
				continue
			}
			indegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var ready []string
	for name, deg := range indegree {
		if deg == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(selected))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)

		var unlocked []string
		for _, dependent := range dependents[name] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				unlocked = append(unlocked, dependent)
			}
		}
		if len(unlocked) > 0 {
			ready = append(ready, unlocked...)
			sort.Strings(ready)
		}
	}

	if len(order) != len(selected) {
		var stuck []string
		for name := range selected {
			if indegree[name] > 0 {
				stuck = append(stuck, name)
			}
		}
		sort.Strings(stuck)
		return nil, errors.NewConfigError("orchestrator", fmt.Sprintf("dependency cycle involving %v", stuck), nil)
	}
	return order, nil
}

// blockedBy returns the name of the first dependency that did not complete,
// or "" when the pipeline may run. Resolution always pulls dependencies into
// the plan, so every dependency has an outcome by the time its dependent is
// considered.
func (o *Orchestrator) blockedBy(p Pipeline, completed map[string]bool) string {
	deps := append([]string(nil), p.Deps()...)
	sort.Strings(deps)
	for _, dep := range deps {
		if !completed[dep] {
			return dep
		}
	}
	return ""
}
