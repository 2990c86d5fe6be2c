package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicsync/civicsync/pkg/errors"
	"github.com/civicsync/civicsync/pkg/models"
	"github.com/civicsync/civicsync/pkg/store"
	"github.com/civicsync/civicsync/pkg/store/memory"
)

type rawMember struct {
	Bioguide string
	Name     string
	State    string
	District int
}

// sliceFetcher emits a fixed slice, standing in for a paginated source.
func sliceFetcher(items []rawMember) FetchFunc[rawMember] {
	return func(_ context.Context, emit func(rawMember) error) error {
		for _, item := range items {
			if err := emit(item); err != nil {
				return err
			}
		}
		return nil
	}
}

func memberTransform(_ context.Context, raw rawMember) (*models.Politician, error) {
	if raw.Bioguide == "" {
		return nil, errors.NewTransformError("test", "missing bioguide id", nil)
	}
	district := raw.District
	return &models.Politician{
		BioguideID: raw.Bioguide,
		FullName:   raw.Name,
		State:      raw.State,
		Party:      models.PartyRepublican,
		Chamber:    models.ChamberHouse,
		District:   &district,
		InOffice:   true,
	}, nil
}

func politicianLoad(st store.Store) LoadFunc[*models.Politician] {
	return func(ctx context.Context, p *models.Politician) (store.Result, error) {
		return st.UpsertPolitician(ctx, p)
	}
}

func batch(n int) []rawMember {
	items := make([]rawMember, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, rawMember{
			Bioguide: fmt.Sprintf("A%06d", i),
			Name:     fmt.Sprintf("Member %d", i),
			State:    "UT",
			District: i + 1,
		})
	}
	return items
}

func TestRunCompletesAndCounts(t *testing.T) {
	st := memory.New()
	e := New("members", st, sliceFetcher(batch(5)), memberTransform, politicianLoad(st))

	stats, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, e.State())
	assert.Equal(t, 5, stats.Processed)
	assert.Equal(t, 5, stats.Inserted)
	assert.Zero(t, stats.Updated)
	assert.Zero(t, stats.Errors)
	assert.False(t, stats.StartedAt.IsZero())
	assert.False(t, stats.CompletedAt.IsZero())
}

func TestMalformedItemDoesNotAbortBatch(t *testing.T) {
	items := batch(100)
	items[37].Bioguide = "" // one malformed record in the middle

	st := memory.New()
	e := New("members", st, sliceFetcher(items), memberTransform, politicianLoad(st))

	stats, err := e.Run(context.Background())
	require.NoError(t, err, "item errors never abort the run")

	assert.Equal(t, 100, stats.Processed)
	assert.Equal(t, 99, stats.Inserted)
	assert.Equal(t, 1, stats.Errors)
}

func TestRerunIsIdempotent(t *testing.T) {
	st := memory.New()
	items := batch(5)

	first := New("members", st, sliceFetcher(items), memberTransform, politicianLoad(st))
	_, err := first.Run(context.Background())
	require.NoError(t, err)

	second := New("members", st, sliceFetcher(items), memberTransform, politicianLoad(st))
	stats, err := second.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Processed)
	assert.Zero(t, stats.Inserted, "re-run must not create documents")
	assert.Equal(t, 5, stats.Updated)

	require.NoError(t, st.Connect(context.Background()))
	assert.Equal(t, 5, st.Counts()["politicians"])
}

func TestFetchErrorAbortsRun(t *testing.T) {
	st := memory.New()
	fetch := func(_ context.Context, emit func(rawMember) error) error {
		for _, item := range batch(3) {
			if err := emit(item); err != nil {
				return err
			}
		}
		return errors.NewAPIError("congress", 503, "/member", "upstream down")
	}

	e := New("members", st, fetch, memberTransform, politicianLoad(st))
	stats, err := e.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrSourceUnavailable)

	var pipeErr *errors.PipelineError
	require.ErrorAs(t, err, &pipeErr)
	assert.Equal(t, "members", pipeErr.Pipeline)

	assert.Equal(t, StateFailed, e.State())
	assert.Equal(t, 3, stats.Processed, "items before the abort are kept")
}

func TestLoadErrorsAreCountedPerItem(t *testing.T) {
	st := memory.New()
	var calls int
	load := func(ctx context.Context, p *models.Politician) (store.Result, error) {
		calls++
		if calls == 2 {
			return store.ResultSkipped, errors.NewLoadError("politicians", p.BioguideID, errors.New("write rejected"))
		}
		return st.UpsertPolitician(ctx, p)
	}

	e := New("members", st, sliceFetcher(batch(4)), memberTransform, load)
	stats, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Processed)
	assert.Equal(t, 3, stats.Inserted)
	assert.Equal(t, 1, stats.Errors)
}

func TestSkippedResultsAreCountedSeparately(t *testing.T) {
	st := memory.New()
	load := func(_ context.Context, _ *models.Politician) (store.Result, error) {
		return store.ResultSkipped, nil
	}

	e := New("contacts", st, sliceFetcher(batch(3)), memberTransform, load)
	stats, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Skipped)
	assert.Zero(t, stats.Errors, "a skip is not an error")
}

func TestEngineRunsOnlyOnce(t *testing.T) {
	st := memory.New()
	e := New("members", st, sliceFetcher(batch(1)), memberTransform, politicianLoad(st))

	_, err := e.Run(context.Background())
	require.NoError(t, err)

	_, err = e.Run(context.Background())
	assert.Error(t, err)
}

func TestStoreClosedAfterRun(t *testing.T) {
	st := memory.New()
	e := New("members", st, sliceFetcher(batch(1)), memberTransform, politicianLoad(st))

	_, err := e.Run(context.Background())
	require.NoError(t, err)

	_, err = st.GetPolitician(context.Background(), "A000000")
	assert.ErrorIs(t, err, errors.ErrNotConnected)
}

func TestCancellationStopsStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	st := memory.New()
	fetch := func(ctx context.Context, emit func(rawMember) error) error {
		for i, item := range batch(10) {
			if i == 4 {
				cancel()
			}
			if err := emit(item); err != nil {
				return err
			}
		}
		return nil
	}

	e := New("members", st, fetch, memberTransform, politicianLoad(st))
	stats, err := e.Run(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrCanceled)
	assert.Equal(t, StateFailed, e.State())
	assert.Equal(t, 4, stats.Processed)
}

func TestStatsSummary(t *testing.T) {
	s := Stats{Pipeline: "bills", Processed: 10, Inserted: 7, Updated: 2, Errors: 1}
	s.CompletedAt = s.StartedAt
	assert.Contains(t, s.Summary(), "bills: 10 processed, 7 inserted, 2 updated, 0 skipped, 1 errors")
}
