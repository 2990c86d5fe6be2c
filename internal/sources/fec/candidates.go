package fec

import (
	"context"
	"net/url"
	"strings"

	"github.com/civicsync/civicsync/internal/loaders"
	"github.com/civicsync/civicsync/internal/transport"
	"github.com/civicsync/civicsync/pkg/errors"
	"github.com/civicsync/civicsync/pkg/logging"
	"github.com/civicsync/civicsync/pkg/models"
	"github.com/civicsync/civicsync/pkg/store"
)

// Candidates resolves FEC candidate ids for politicians already in the
// store by searching the candidate registry on name, state, and office.
// The matches feed the contribution-linking step.
type Candidates struct {
	client *transport.Client
	store  store.Store
}

// NewCandidates creates a candidate resolver.
func NewCandidates(client *transport.Client, st store.Store) *Candidates {
	return &Candidates{client: client, store: st}
}

// Fetch lists in-office politicians without a recorded FEC candidate id and
// emits a match for each one the registry resolves unambiguously. Lookup
// misses are skipped quietly; they are expected for members who predate the
// API's coverage.
func (c *Candidates) Fetch(ctx context.Context, emit func(*loaders.CandidateMatch) error) error {
	inOffice := true
	politicians, err := c.store.ListPoliticians(ctx, store.PoliticianFilter{InOffice: &inOffice})
	if err != nil {
		return err
	}

	log := logging.Ctx(ctx)
	for i := range politicians {
		p := &politicians[i]
		if p.FECCandidateID != "" {
			continue
		}

		candidateID, err := c.search(ctx, p)
		if err != nil {
			if errors.Is(err, errors.ErrCanceled) {
				return err
			}
			log.Warn().Err(err).Str("bioguide_id", p.BioguideID).Msg("candidate search failed")
			continue
		}
		if candidateID == "" {
			log.Debug().Str("bioguide_id", p.BioguideID).Msg("no candidate match")
			continue
		}

		match := &loaders.CandidateMatch{BioguideID: p.BioguideID, FECCandidateID: candidateID}
		if err := emit(match); err != nil {
			return err
		}
	}
	return nil
}

// search queries the candidate registry for one politician. Only the first
// result is trusted, and only when its state agrees.
func (c *Candidates) search(ctx context.Context, p *models.Politician) (string, error) {
	office := "H"
	if p.Chamber == models.ChamberSenate {
		office = "S"
	}

	query := url.Values{
		"q":      {p.LastName + ", " + p.FirstName},
		"state":  {p.State},
		"office": {office},
		"sort":   {"-election_years"},
	}

	var envelope struct {
		Results []struct {
			CandidateID string `json:"candidate_id"`
			State       string `json:"state"`
		} `json:"results"`
	}
	if err := c.client.GetJSON(ctx, "/candidates/search/", query, &envelope); err != nil {
		return "", err
	}

	for _, result := range envelope.Results {
		if strings.EqualFold(result.State, p.State) {
			return result.CandidateID, nil
		}
	}
	return "", nil
}
