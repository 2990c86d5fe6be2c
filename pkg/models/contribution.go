package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/civicsync/civicsync/pkg/errors"
)

// ContributionType classifies the contributing entity.
type ContributionType string

// ContributionType values.
const (
	ContributorIndividual ContributionType = "individual"
	ContributorPAC        ContributionType = "pac"
	ContributorParty      ContributionType = "party"
	ContributorCandidate  ContributionType = "candidate"
	ContributorOther      ContributionType = "other"
)

// IsValid returns true if the contribution type is a known value.
func (c ContributionType) IsValid() bool {
	switch c {
	case ContributorIndividual, ContributorPAC, ContributorParty, ContributorCandidate, ContributorOther:
		return true
	}
	return false
}

// String returns the string representation of the contribution type.
func (c ContributionType) String() string { return string(c) }

// Contribution is an itemized campaign receipt, keyed by an ID derived from
// the source transaction id ("fec_{sub_id}"). The BioguideID weak reference
// is populated by a separate linking step once the recipient's FEC candidate
// id is known; the contributions pipeline itself does not resolve it.
type Contribution struct {
	// ID is the natural key derived from the source transaction id.
	ID string `bson:"id" json:"id"`

	RecipientName string `bson:"recipient_name" json:"recipient_name"`
	// BioguideID is a weak reference to the recipient politician.
	BioguideID  string `bson:"bioguide_id,omitempty" json:"bioguide_id,omitempty"`
	CandidateID string `bson:"candidate_id,omitempty" json:"candidate_id,omitempty"` // FEC candidate id
	CommitteeID string `bson:"committee_id,omitempty" json:"committee_id,omitempty"`

	ContributorName       string           `bson:"contributor_name" json:"contributor_name"`
	ContributorType       ContributionType `bson:"contributor_type" json:"contributor_type"`
	ContributorEmployer   string           `bson:"contributor_employer,omitempty" json:"contributor_employer,omitempty"`
	ContributorOccupation string           `bson:"contributor_occupation,omitempty" json:"contributor_occupation,omitempty"`
	ContributorCity       string           `bson:"contributor_city,omitempty" json:"contributor_city,omitempty"`
	ContributorState      string           `bson:"contributor_state,omitempty" json:"contributor_state,omitempty"`
	ContributorZip        string           `bson:"contributor_zip,omitempty" json:"contributor_zip,omitempty"`

	// Amount is a non-negative decimal number of dollars.
	Amount decimal.Decimal `bson:"amount" json:"amount"`
	Date   *time.Time      `bson:"contribution_date,omitempty" json:"contribution_date,omitempty"`

	Cycle  string `bson:"cycle" json:"cycle"`   // election cycle, e.g. "2024"
	Source string `bson:"source" json:"source"` // "fec"

	FECTransactionID string `bson:"fec_transaction_id,omitempty" json:"fec_transaction_id,omitempty"`

	LastUpdated time.Time `bson:"last_updated" json:"last_updated"`
}

// Validate checks that required fields are present and the amount is
// non-negative.
func (c *Contribution) Validate() error {
	if c.ID == "" {
		return errors.NewValidationError("id", c.ID, "required")
	}
	if c.RecipientName == "" {
		return errors.NewValidationError("recipient_name", c.RecipientName, "required")
	}
	if c.ContributorName == "" {
		return errors.NewValidationError("contributor_name", c.ContributorName, "required")
	}
	if !c.ContributorType.IsValid() {
		return errors.NewValidationError("contributor_type", c.ContributorType, "unknown contributor type")
	}
	if c.Amount.IsNegative() {
		return errors.NewValidationError("amount", c.Amount.String(), "must be non-negative")
	}
	if c.Source == "" {
		return errors.NewValidationError("source", c.Source, "required")
	}
	return nil
}
