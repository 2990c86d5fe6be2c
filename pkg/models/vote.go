package models

import (
	"fmt"
	"time"

	"github.com/civicsync/civicsync/pkg/errors"
)

// VotePosition is a member's recorded position on a roll call. The clerk
// feed uses free-text values ("Aye", "No", …); the normalizer maps them to
// these canonical forms and passes unrecognized values through.
type VotePosition string

// Canonical VotePosition values.
const (
	PositionYea       VotePosition = "Yea"
	PositionNay       VotePosition = "Nay"
	PositionPresent   VotePosition = "Present"
	PositionNotVoting VotePosition = "Not Voting"
)

// IsCanonical returns true for one of the four recognized positions.
func (v VotePosition) IsCanonical() bool {
	switch v {
	case PositionYea, PositionNay, PositionPresent, PositionNotVoting:
		return true
	}
	return false
}

// String returns the string representation of the position.
func (v VotePosition) String() string { return string(v) }

// Vote is a recorded roll call, keyed by "{chamber}-roll-{roll}-{congress}".
// Created once per roll call and updated only on re-ingestion.
type Vote struct {
	// VoteID is the natural key, e.g. "house-roll-123-119".
	VoteID string `bson:"vote_id" json:"vote_id"`

	// BillID is a weak reference to the bill voted on, when known.
	BillID string `bson:"bill_id,omitempty" json:"bill_id,omitempty"`

	Chamber    Chamber `bson:"chamber" json:"chamber"`
	Congress   int     `bson:"congress" json:"congress"`
	Session    int     `bson:"session" json:"session"`
	RollNumber int     `bson:"roll_number" json:"roll_number"`

	Question string     `bson:"question" json:"question"` // "On Passage", "On the Motion", ...
	Result   string     `bson:"result" json:"result"`     // "Passed", "Failed", "Agreed to"
	VoteDate *time.Time `bson:"vote_date,omitempty" json:"vote_date,omitempty"`

	// Counts default to zero when the feed omits its totals block.
	YeaCount       int `bson:"yea_count" json:"yea_count"`
	NayCount       int `bson:"nay_count" json:"nay_count"`
	PresentCount   int `bson:"present_count" json:"present_count"`
	NotVotingCount int `bson:"not_voting_count" json:"not_voting_count"`

	CongressGovURL string `bson:"congress_gov_url,omitempty" json:"congress_gov_url,omitempty"`

	LastUpdated time.Time `bson:"last_updated" json:"last_updated"`
}

// VoteID builds the composite natural key for a roll call.
func VoteID(chamber Chamber, rollNumber, congress int) string {
	return fmt.Sprintf("%s-roll-%d-%d", chamber, rollNumber, congress)
}

// Validate checks that required fields are present.
func (v *Vote) Validate() error {
	if v.VoteID == "" {
		return errors.NewValidationError("vote_id", v.VoteID, "required")
	}
	if !v.Chamber.IsValid() {
		return errors.NewValidationError("chamber", v.Chamber, "must be senate or house")
	}
	if v.Congress <= 0 {
		return errors.NewValidationError("congress", v.Congress, "must be positive")
	}
	if v.RollNumber <= 0 {
		return errors.NewValidationError("roll_number", v.RollNumber, "must be positive")
	}
	return nil
}

// MemberVote joins a politician to a roll call. At most one position exists
// per (vote, politician); the pair is the upsert key, so no separate
// uniqueness check is needed.
type MemberVote struct {
	VoteID     string       `bson:"vote_id" json:"vote_id"`
	BioguideID string       `bson:"bioguide_id" json:"bioguide_id"`
	Position   VotePosition `bson:"position" json:"position"`
}

// Validate checks that the composite key and position are present.
func (m *MemberVote) Validate() error {
	if m.VoteID == "" {
		return errors.NewValidationError("vote_id", m.VoteID, "required")
	}
	if m.BioguideID == "" {
		return errors.NewValidationError("bioguide_id", m.BioguideID, "required")
	}
	if m.Position == "" {
		return errors.NewValidationError("position", m.Position, "required")
	}
	return nil
}
