package models

import (
	"fmt"
	"time"

	"github.com/civicsync/civicsync/pkg/errors"
)

// BillType identifies the kind of legislation.
type BillType string

// BillType values.
const (
	BillTypeHR      BillType = "hr"      // House Bill
	BillTypeS       BillType = "s"       // Senate Bill
	BillTypeHRes    BillType = "hres"    // House Resolution
	BillTypeSRes    BillType = "sres"    // Senate Resolution
	BillTypeHJRes   BillType = "hjres"   // House Joint Resolution
	BillTypeSJRes   BillType = "sjres"   // Senate Joint Resolution
	BillTypeHConRes BillType = "hconres" // House Concurrent Resolution
	BillTypeSConRes BillType = "sconres" // Senate Concurrent Resolution
)

// IsValid returns true if the bill type is a known value.
func (b BillType) IsValid() bool {
	switch b {
	case BillTypeHR, BillTypeS, BillTypeHRes, BillTypeSRes,
		BillTypeHJRes, BillTypeSJRes, BillTypeHConRes, BillTypeSConRes:
		return true
	}
	return false
}

// String returns the string representation of the bill type.
func (b BillType) String() string { return string(b) }

// BillStatus is the normalized progress of a bill. Unrecognized upstream
// vocabulary is deliberately passed through lower-cased and underscored
// rather than rejected, so a new status string never drops bills.
type BillStatus string

// Canonical BillStatus values.
const (
	StatusIntroduced   BillStatus = "introduced"
	StatusInCommittee  BillStatus = "in_committee"
	StatusPassedHouse  BillStatus = "passed_house"
	StatusPassedSenate BillStatus = "passed_senate"
	StatusToPresident  BillStatus = "to_president"
	StatusBecameLaw    BillStatus = "became_law"
	StatusVetoed       BillStatus = "vetoed"
	StatusFailed       BillStatus = "failed"
)

// IsCanonical returns true if the status is one of the fixed enum values.
// Lenient passthrough values return false but are still persisted.
func (s BillStatus) IsCanonical() bool {
	switch s {
	case StatusIntroduced, StatusInCommittee, StatusPassedHouse, StatusPassedSenate,
		StatusToPresident, StatusBecameLaw, StatusVetoed, StatusFailed:
		return true
	}
	return false
}

// String returns the string representation of the status.
func (s BillStatus) String() string { return string(s) }

// Bill is a piece of federal legislation, keyed by
// "{type}-{number}-{congress}". Identity is immutable; status and metadata
// are updated on re-ingestion.
type Bill struct {
	// BillID is the natural key, e.g. "hr-1234-119".
	BillID string `bson:"bill_id" json:"bill_id"`

	BillType BillType `bson:"bill_type" json:"bill_type"`
	Number   int      `bson:"number" json:"number"`
	Congress int      `bson:"congress" json:"congress"`

	Title      string `bson:"title" json:"title"`
	ShortTitle string `bson:"short_title,omitempty" json:"short_title,omitempty"`
	Summary    string `bson:"summary,omitempty" json:"summary,omitempty"`

	Status BillStatus `bson:"status" json:"status"`

	IntroducedDate   *time.Time `bson:"introduced_date,omitempty" json:"introduced_date,omitempty"`
	LatestActionDate *time.Time `bson:"latest_action_date,omitempty" json:"latest_action_date,omitempty"`
	LatestActionText string     `bson:"latest_action_text,omitempty" json:"latest_action_text,omitempty"`

	// SponsorBioguideID is a weak reference to a Politician, not enforced.
	SponsorBioguideID    string   `bson:"sponsor_bioguide_id,omitempty" json:"sponsor_bioguide_id,omitempty"`
	CosponsorBioguideIDs []string `bson:"cosponsor_bioguide_ids,omitempty" json:"cosponsor_bioguide_ids,omitempty"`

	PolicyArea string   `bson:"policy_area,omitempty" json:"policy_area,omitempty"`
	Subjects   []string `bson:"subjects,omitempty" json:"subjects,omitempty"`

	CongressGovURL string `bson:"congress_gov_url,omitempty" json:"congress_gov_url,omitempty"`
	FullTextURL    string `bson:"full_text_url,omitempty" json:"full_text_url,omitempty"`

	// SummaryEmbedding holds the optional semantic-search vector computed
	// by the embeddings enrichment pipeline, never by the core ETL path.
	SummaryEmbedding []float32 `bson:"summary_embedding,omitempty" json:"summary_embedding,omitempty"`

	LastUpdated time.Time `bson:"last_updated" json:"last_updated"`
}

// BillID builds the composite natural key for a bill.
func BillID(billType BillType, number, congress int) string {
	return fmt.Sprintf("%s-%d-%d", billType, number, congress)
}

// Validate checks that required fields are present.
func (b *Bill) Validate() error {
	if b.BillID == "" {
		return errors.NewValidationError("bill_id", b.BillID, "required")
	}
	if !b.BillType.IsValid() {
		return errors.NewValidationError("bill_type", b.BillType, "unknown bill type")
	}
	if b.Number <= 0 {
		return errors.NewValidationError("number", b.Number, "must be positive")
	}
	if b.Congress <= 0 {
		return errors.NewValidationError("congress", b.Congress, "must be positive")
	}
	if b.Title == "" {
		return errors.NewValidationError("title", b.Title, "required")
	}
	if b.Status == "" {
		return errors.NewValidationError("status", b.Status, "required")
	}
	return nil
}

// String returns a human-readable representation.
func (b *Bill) String() string {
	title := b.Title
	if len(title) > 60 {
		title = title[:60] + "..."
	}
	return fmt.Sprintf("%s %d (%dth Congress): %s", b.BillType, b.Number, b.Congress, title)
}
