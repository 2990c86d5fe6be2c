// Package loaders contains the per-type load functions the engine plugs in.
// Each loader validates its record, applies any write-ordering rules (House
// seat conflict resolution runs before the member upsert), and performs the
// idempotent natural-key upsert. Loaders return errors per item; the engine
// counts them and moves on.
package loaders

import (
	"context"

	"github.com/civicsync/civicsync/pkg/errors"
	"github.com/civicsync/civicsync/pkg/logging"
	"github.com/civicsync/civicsync/pkg/models"
	"github.com/civicsync/civicsync/pkg/normalize"
	"github.com/civicsync/civicsync/pkg/store"
)

// Politicians loads legislator records with seat conflict resolution.
type Politicians struct {
	store store.Store
}

// NewPoliticians creates a politician loader over the given store.
func NewPoliticians(st store.Store) *Politicians {
	return &Politicians{store: st}
}

// Load vacates the incoming member's House seat before upserting, so a seat
// change observed mid-sync leaves exactly one active occupant per (state,
// district). Ordering matters: vacate-then-upsert makes a repeated sync of
// the same member a no-op. Senate seats are never auto-vacated — a state has
// two of them and the source does not say which one changed hands.
func (l *Politicians) Load(ctx context.Context, p *models.Politician) (store.Result, error) {
	if err := p.Validate(); err != nil {
		return store.ResultSkipped, errors.WrapLoad("politicians", p.BioguideID, err)
	}
	// Validate only checks the shape; an unmapped code like "ZZ" is still
	// two letters and must not reach the store.
	if !normalize.IsStateCode(p.State) {
		return store.ResultSkipped, errors.WrapLoad("politicians", p.BioguideID,
			errors.NewValidationError("state", p.State, "unknown state code"))
	}

	log := logging.Ctx(ctx)
	if p.Chamber == models.ChamberHouse && p.InOffice {
		flipped, err := l.store.VacateHouseSeat(ctx, p.State, *p.District, p.BioguideID)
		if err != nil {
			return store.ResultSkipped, errors.WrapLoad("politicians", p.BioguideID, err)
		}
		if flipped > 0 {
			log.Info().
				Str("bioguide_id", p.BioguideID).
				Str("seat", p.Seat()).
				Int64("vacated", flipped).
				Msg("house seat changed hands")
		}
	} else if p.Chamber == models.ChamberSenate && p.InOffice {
		log.Debug().
			Str("bioguide_id", p.BioguideID).
			Str("state", p.State).
			Msg("senate seat is ambiguous between a state's two senators; no automatic invalidation")
	}

	result, err := l.store.UpsertPolitician(ctx, p)
	if err != nil {
		return store.ResultSkipped, errors.WrapLoad("politicians", p.BioguideID, err)
	}
	return result, nil
}

// Bills loads legislation records.
type Bills struct {
	store store.Store
}

// NewBills creates a bill loader over the given store.
func NewBills(st store.Store) *Bills {
	return &Bills{store: st}
}

// Load upserts a bill by its composite natural key. Identity fields never
// change across re-ingestion; status and metadata do.
func (l *Bills) Load(ctx context.Context, b *models.Bill) (store.Result, error) {
	if err := b.Validate(); err != nil {
		return store.ResultSkipped, errors.WrapLoad("legislation", b.BillID, err)
	}
	result, err := l.store.UpsertBill(ctx, b)
	if err != nil {
		return store.ResultSkipped, errors.WrapLoad("legislation", b.BillID, err)
	}
	return result, nil
}

// VoteRecord is the unit the votes pipeline loads: one roll call plus every
// member position recorded on it.
type VoteRecord struct {
	Vote      models.Vote
	Positions []models.MemberVote
}

// Votes loads roll calls and their per-member positions.
type Votes struct {
	store store.Store
}

// NewVotes creates a vote loader over the given store.
func NewVotes(st store.Store) *Votes {
	return &Votes{store: st}
}

// Load upserts the vote document and then each member position under the
// composite (vote_id, bioguide_id) key. A rejected position does not stop
// the remaining positions from loading; the first failure is reported after
// the loop so the roll call is counted as one errored item.
func (l *Votes) Load(ctx context.Context, rec *VoteRecord) (store.Result, error) {
	if err := rec.Vote.Validate(); err != nil {
		return store.ResultSkipped, errors.WrapLoad("votes", rec.Vote.VoteID, err)
	}

	result, err := l.store.UpsertVote(ctx, &rec.Vote)
	if err != nil {
		return store.ResultSkipped, errors.WrapLoad("votes", rec.Vote.VoteID, err)
	}

	log := logging.Ctx(ctx)
	var firstErr error
	for i := range rec.Positions {
		mv := &rec.Positions[i]
		if err := mv.Validate(); err == nil {
			_, err = l.store.UpsertMemberVote(ctx, mv)
		}
		if err != nil {
			log.Warn().Err(err).
				Str("vote_id", mv.VoteID).
				Str("bioguide_id", mv.BioguideID).
				Msg("member position rejected")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return result, errors.WrapLoad("politician_votes", rec.Vote.VoteID, firstErr)
	}
	return result, nil
}

// Contributions loads itemized campaign receipts.
type Contributions struct {
	store store.Store
}

// NewContributions creates a contribution loader over the given store.
func NewContributions(st store.Store) *Contributions {
	return &Contributions{store: st}
}

// Load upserts a contribution by its derived natural key. The bioguide weak
// reference stays empty here; the linking step resolves it later.
func (l *Contributions) Load(ctx context.Context, c *models.Contribution) (store.Result, error) {
	if err := c.Validate(); err != nil {
		return store.ResultSkipped, errors.WrapLoad("contributions", c.ID, err)
	}
	result, err := l.store.UpsertContribution(ctx, c)
	if err != nil {
		return store.ResultSkipped, errors.WrapLoad("contributions", c.ID, err)
	}
	return result, nil
}

// Contacts applies enrichment-only contact updates.
type Contacts struct {
	store store.Store
}

// NewContacts creates a contact loader over the given store.
func NewContacts(st store.Store) *Contacts {
	return &Contacts{store: st}
}

// Load updates contact fields on an existing politician. A politician not
// yet synced is skipped, never created: the bulk feed covers people outside
// the configured scope and enrichment must not widen it.
func (l *Contacts) Load(ctx context.Context, c *models.ContactUpdate) (store.Result, error) {
	if err := c.Validate(); err != nil {
		return store.ResultSkipped, errors.WrapLoad("politicians", c.BioguideID, err)
	}
	if !c.HasFields() {
		return store.ResultSkipped, nil
	}

	result, err := l.store.UpdatePoliticianContact(ctx, c)
	if err != nil {
		return store.ResultSkipped, errors.WrapLoad("politicians", c.BioguideID, err)
	}
	if result == store.ResultSkipped {
		logging.Ctx(ctx).Debug().
			Str("bioguide_id", c.BioguideID).
			Msg("contact update for unknown politician skipped")
	}
	return result, nil
}

// Committees loads committee records.
type Committees struct {
	store store.Store
}

// NewCommittees creates a committee loader over the given store.
func NewCommittees(st store.Store) *Committees {
	return &Committees{store: st}
}

// Load upserts a committee by its system code.
func (l *Committees) Load(ctx context.Context, c *models.Committee) (store.Result, error) {
	if err := c.Validate(); err != nil {
		return store.ResultSkipped, errors.WrapLoad("committees", c.Code, err)
	}
	result, err := l.store.UpsertCommittee(ctx, c)
	if err != nil {
		return store.ResultSkipped, errors.WrapLoad("committees", c.Code, err)
	}
	return result, nil
}

// CandidateMatch pairs a politician with the FEC candidate id resolved for
// them by the candidate search.
type CandidateMatch struct {
	BioguideID     string
	FECCandidateID string
}

// Candidates records resolved FEC candidate ids on politicians.
type Candidates struct {
	store store.Store
}

// NewCandidates creates a candidate-match loader over the given store.
func NewCandidates(st store.Store) *Candidates {
	return &Candidates{store: st}
}

// Load stores the FEC candidate id on the matched politician. Enrichment
// semantics: a missing politician is a skip, not an error.
func (l *Candidates) Load(ctx context.Context, m *CandidateMatch) (store.Result, error) {
	if m.BioguideID == "" || m.FECCandidateID == "" {
		return store.ResultSkipped, errors.WrapLoad("politicians", m.BioguideID,
			errors.NewValidationError("fec_candidate_id", m.FECCandidateID, "both ids required"))
	}
	result, err := l.store.SetPoliticianFECID(ctx, m.BioguideID, m.FECCandidateID)
	if err != nil {
		return store.ResultSkipped, errors.WrapLoad("politicians", m.BioguideID, err)
	}
	return result, nil
}
