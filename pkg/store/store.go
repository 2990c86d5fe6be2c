// Package store defines the document-store interface the ingestion engine
// writes through. Every write is an upsert keyed by the record's natural
// identifier and is a single atomic document operation, so re-running any
// sync is safe and no partial-write state is ever observable.
//
// Two implementations exist: store/mongo for production and store/memory for
// tests and offline runs. Each engine run owns its own connection — stores
// are never shared as ambient global state.
package store

import (
	"context"

	"github.com/civicsync/civicsync/pkg/models"
)

// Result reports the effect of a load operation.
type Result string

// Result values.
const (
	// ResultInserted means the upsert created a new document.
	ResultInserted Result = "inserted"
	// ResultUpdated means the upsert replaced an existing document.
	ResultUpdated Result = "updated"
	// ResultSkipped means nothing was written. Enrichment loads report it
	// when the target record does not exist.
	ResultSkipped Result = "skipped"
)

// PoliticianFilter narrows ListPoliticians. Zero values mean "any".
type PoliticianFilter struct {
	State    string
	Chamber  models.Chamber
	District *int
	InOffice *bool
}

// Store is the persistence boundary for the five canonical record types.
// Connect is idempotent and lazy; Close releases the connection and is safe
// to call after a failed Connect.
type Store interface {
	Connect(ctx context.Context) error
	Close(ctx context.Context) error

	// Politicians.
	UpsertPolitician(ctx context.Context, p *models.Politician) (Result, error)
	GetPolitician(ctx context.Context, bioguideID string) (*models.Politician, error)
	ListPoliticians(ctx context.Context, filter PoliticianFilter) ([]models.Politician, error)

	// VacateHouseSeat flips every other currently-active occupant of the
	// exact (state, district) House seat to in_office=false, stamping
	// last_updated. Returns the number of records flipped. The excluded
	// bioguide ID keeps a repeated sync of the same member from
	// self-invalidating.
	VacateHouseSeat(ctx context.Context, state string, district int, excludeBioguideID string) (int64, error)

	// UpdatePoliticianContact applies enrichment-only contact fields.
	// It reports ResultSkipped — and writes nothing — when no politician
	// with the given bioguide ID exists.
	UpdatePoliticianContact(ctx context.Context, c *models.ContactUpdate) (Result, error)

	// SetPoliticianFECID records the FEC candidate id external reference.
	SetPoliticianFECID(ctx context.Context, bioguideID, fecCandidateID string) (Result, error)

	// Bills.
	UpsertBill(ctx context.Context, b *models.Bill) (Result, error)
	SetBillEmbedding(ctx context.Context, billID string, embedding []float32) (Result, error)
	BillsMissingEmbeddings(ctx context.Context, limit int) ([]models.Bill, error)

	// Votes.
	UpsertVote(ctx context.Context, v *models.Vote) (Result, error)
	UpsertMemberVote(ctx context.Context, mv *models.MemberVote) (Result, error)

	// Contributions.
	UpsertContribution(ctx context.Context, c *models.Contribution) (Result, error)

	// LinkContributionsByCandidateID populates the bioguide_id weak
	// reference on contributions whose FEC candidate id matches a
	// politician's recorded fec_candidate_id. Returns the number linked.
	LinkContributionsByCandidateID(ctx context.Context) (int64, error)

	// Committees.
	UpsertCommittee(ctx context.Context, c *models.Committee) (Result, error)
}
