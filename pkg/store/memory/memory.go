// Package memory provides an in-memory Store used by tests and offline
// runs. Semantics mirror the mongo store exactly: upsert by natural key,
// atomic per-document writes, enrichment no-ops on missing targets.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/civicsync/civicsync/pkg/errors"
	"github.com/civicsync/civicsync/pkg/models"
	"github.com/civicsync/civicsync/pkg/store"
)

// Store is a mutex-guarded map-backed document store.
type Store struct {
	mu        sync.RWMutex
	connected bool

	politicians   map[string]models.Politician
	bills         map[string]models.Bill
	votes         map[string]models.Vote
	memberVotes   map[string]models.MemberVote // keyed vote_id + "|" + bioguide_id
	contributions map[string]models.Contribution
	committees    map[string]models.Committee
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		politicians:   make(map[string]models.Politician),
		bills:         make(map[string]models.Bill),
		votes:         make(map[string]models.Vote),
		memberVotes:   make(map[string]models.MemberVote),
		contributions: make(map[string]models.Contribution),
		committees:    make(map[string]models.Committee),
	}
}

// Connect marks the store connected. Idempotent.
func (s *Store) Connect(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

// Close marks the store disconnected. Data is retained so a re-run within
// the same process observes previous upserts, matching a real database.
func (s *Store) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

func (s *Store) check() error {
	if !s.connected {
		return errors.ErrNotConnected
	}
	return nil
}

// UpsertPolitician inserts or replaces a politician by bioguide ID.
func (s *Store) UpsertPolitician(_ context.Context, p *models.Politician) (store.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return store.ResultSkipped, err
	}

	_, existed := s.politicians[p.BioguideID]
	s.politicians[p.BioguideID] = *p
	if existed {
		return store.ResultUpdated, nil
	}
	return store.ResultInserted, nil
}

// GetPolitician returns a politician by bioguide ID.
func (s *Store) GetPolitician(_ context.Context, bioguideID string) (*models.Politician, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(); err != nil {
		return nil, err
	}

	p, found := s.politicians[bioguideID]
	if !found {
		return nil, errors.ErrNotFound
	}
	return &p, nil
}

// ListPoliticians returns politicians matching the filter, ordered by
// bioguide ID for determinism.
func (s *Store) ListPoliticians(_ context.Context, filter store.PoliticianFilter) ([]models.Politician, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(); err != nil {
		return nil, err
	}

	var out []models.Politician
	for _, p := range s.politicians {
		if filter.State != "" && p.State != filter.State {
			continue
		}
		if filter.Chamber != "" && p.Chamber != filter.Chamber {
			continue
		}
		if filter.District != nil && (p.District == nil || *p.District != *filter.District) {
			continue
		}
		if filter.InOffice != nil && p.InOffice != *filter.InOffice {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BioguideID < out[j].BioguideID })
	return out, nil
}

// VacateHouseSeat flips other active occupants of the exact seat.
func (s *Store) VacateHouseSeat(_ context.Context, state string, district int, excludeBioguideID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return 0, err
	}

	var flipped int64
	for id, p := range s.politicians {
		if id == excludeBioguideID {
			continue
		}
		if p.Chamber != models.ChamberHouse || !p.InOffice {
			continue
		}
		if p.State != state || p.District == nil || *p.District != district {
			continue
		}
		p.InOffice = false
		p.LastUpdated = time.Now().UTC()
		s.politicians[id] = p
		flipped++
	}
	return flipped, nil
}

// UpdatePoliticianContact applies contact enrichment, skipping when the
// politician does not exist. Enrichment never creates a record.
func (s *Store) UpdatePoliticianContact(_ context.Context, c *models.ContactUpdate) (store.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return store.ResultSkipped, err
	}

	p, found := s.politicians[c.BioguideID]
	if !found {
		return store.ResultSkipped, nil
	}
	if !c.HasFields() {
		return store.ResultSkipped, nil
	}

	if c.Office != "" {
		p.Office = c.Office
	}
	if c.Phone != "" {
		p.Phone = c.Phone
	}
	if c.Website != "" {
		p.Website = c.Website
	}
	p.LastUpdated = time.Now().UTC()
	s.politicians[c.BioguideID] = p
	return store.ResultUpdated, nil
}

// SetPoliticianFECID records the FEC candidate id on an existing politician.
func (s *Store) SetPoliticianFECID(_ context.Context, bioguideID, fecCandidateID string) (store.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return store.ResultSkipped, err
	}

	p, found := s.politicians[bioguideID]
	if !found {
		return store.ResultSkipped, nil
	}
	p.FECCandidateID = fecCandidateID
	p.LastUpdated = time.Now().UTC()
	s.politicians[bioguideID] = p
	return store.ResultUpdated, nil
}

// UpsertBill inserts or replaces a bill by bill ID, preserving any
// previously computed summary embedding when the incoming record lacks one.
func (s *Store) UpsertBill(_ context.Context, b *models.Bill) (store.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return store.ResultSkipped, err
	}

	prev, existed := s.bills[b.BillID]
	doc := *b
	if existed && doc.SummaryEmbedding == nil {
		doc.SummaryEmbedding = prev.SummaryEmbedding
	}
	s.bills[b.BillID] = doc
	if existed {
		return store.ResultUpdated, nil
	}
	return store.ResultInserted, nil
}

// SetBillEmbedding stores the semantic-search vector for a bill.
func (s *Store) SetBillEmbedding(_ context.Context, billID string, embedding []float32) (store.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return store.ResultSkipped, err
	}

	b, found := s.bills[billID]
	if !found {
		return store.ResultSkipped, nil
	}
	b.SummaryEmbedding = embedding
	b.LastUpdated = time.Now().UTC()
	s.bills[billID] = b
	return store.ResultUpdated, nil
}

// BillsMissingEmbeddings returns up to limit bills that have a summary but
// no embedding yet, ordered by bill ID.
func (s *Store) BillsMissingEmbeddings(_ context.Context, limit int) ([]models.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(); err != nil {
		return nil, err
	}

	var out []models.Bill
	for _, b := range s.bills {
		if b.Summary != "" && b.SummaryEmbedding == nil {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BillID < out[j].BillID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpsertVote inserts or replaces a vote by vote ID.
func (s *Store) UpsertVote(_ context.Context, v *models.Vote) (store.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return store.ResultSkipped, err
	}

	_, existed := s.votes[v.VoteID]
	s.votes[v.VoteID] = *v
	if existed {
		return store.ResultUpdated, nil
	}
	return store.ResultInserted, nil
}

// UpsertMemberVote inserts or replaces a member's position by the composite
// (vote_id, bioguide_id) key.
func (s *Store) UpsertMemberVote(_ context.Context, mv *models.MemberVote) (store.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return store.ResultSkipped, err
	}

	key := mv.VoteID + "|" + mv.BioguideID
	_, existed := s.memberVotes[key]
	s.memberVotes[key] = *mv
	if existed {
		return store.ResultUpdated, nil
	}
	return store.ResultInserted, nil
}

// UpsertContribution inserts or replaces a contribution by derived ID.
func (s *Store) UpsertContribution(_ context.Context, c *models.Contribution) (store.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return store.ResultSkipped, err
	}

	_, existed := s.contributions[c.ID]
	s.contributions[c.ID] = *c
	if existed {
		return store.ResultUpdated, nil
	}
	return store.ResultInserted, nil
}

// LinkContributionsByCandidateID resolves bioguide weak references from
// recorded FEC candidate ids.
func (s *Store) LinkContributionsByCandidateID(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return 0, err
	}

	byFECID := make(map[string]string)
	for _, p := range s.politicians {
		if p.FECCandidateID != "" {
			byFECID[p.FECCandidateID] = p.BioguideID
		}
	}

	var linked int64
	for id, c := range s.contributions {
		if c.BioguideID != "" || c.CandidateID == "" {
			continue
		}
		bioguideID, found := byFECID[c.CandidateID]
		if !found {
			continue
		}
		c.BioguideID = bioguideID
		c.LastUpdated = time.Now().UTC()
		s.contributions[id] = c
		linked++
	}
	return linked, nil
}

// UpsertCommittee inserts or replaces a committee by code.
func (s *Store) UpsertCommittee(_ context.Context, c *models.Committee) (store.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return store.ResultSkipped, err
	}

	_, existed := s.committees[c.Code]
	s.committees[c.Code] = *c
	if existed {
		return store.ResultUpdated, nil
	}
	return store.ResultInserted, nil
}

// Counts returns per-collection document counts. Test helper.
func (s *Store) Counts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]int{
		"politicians":   len(s.politicians),
		"bills":         len(s.bills),
		"votes":         len(s.votes),
		"member_votes":  len(s.memberVotes),
		"contributions": len(s.contributions),
		"committees":    len(s.committees),
	}
}

// GetBill returns a bill by ID. Test helper.
func (s *Store) GetBill(billID string) (models.Bill, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, found := s.bills[billID]
	return b, found
}

// GetContribution returns a contribution by ID. Test helper.
func (s *Store) GetContribution(id string) (models.Contribution, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, found := s.contributions[id]
	return c, found
}

// GetMemberVote returns a member vote by composite key. Test helper.
func (s *Store) GetMemberVote(voteID, bioguideID string) (models.MemberVote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mv, found := s.memberVotes[voteID+"|"+bioguideID]
	return mv, found
}

var _ store.Store = (*Store)(nil)
