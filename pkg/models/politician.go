// Package models defines the canonical record types persisted by the sync
// engine: politicians, bills, roll-call votes, per-member vote positions,
// campaign contributions, and committees. Every record carries a natural key
// used for idempotent upserts; surrogate keys are never generated.
package models

import (
	"fmt"
	"time"

	"github.com/civicsync/civicsync/pkg/errors"
)

// Chamber identifies a legislative chamber.
type Chamber string

// Chamber values.
const (
	ChamberSenate Chamber = "senate"
	ChamberHouse  Chamber = "house"
)

// IsValid returns true if the chamber is one of the two known values.
func (c Chamber) IsValid() bool {
	return c == ChamberSenate || c == ChamberHouse
}

// String returns the string representation of the chamber.
func (c Chamber) String() string { return string(c) }

// Party is a single-letter party code.
type Party string

// Party values.
const (
	PartyRepublican  Party = "R"
	PartyDemocrat    Party = "D"
	PartyIndependent Party = "I"
	PartyLibertarian Party = "L"
	PartyGreen       Party = "G"
	PartyOther       Party = "O"
)

// IsValid returns true if the party is one of the known single-letter codes.
func (p Party) IsValid() bool {
	switch p {
	case PartyRepublican, PartyDemocrat, PartyIndependent, PartyLibertarian, PartyGreen, PartyOther:
		return true
	}
	return false
}

// String returns the string representation of the party.
func (p Party) String() string { return string(p) }

// Politician is a federal legislator (Senator or Representative), keyed by
// bioguide ID. Records are created and updated by the members pipeline,
// enriched by the contacts pipeline, and flipped out of office by the
// House-seat conflict resolution loader. They are never hard-deleted.
type Politician struct {
	// BioguideID is the natural key, assigned by the Biographical
	// Directory of Congress.
	BioguideID string `bson:"bioguide_id" json:"bioguide_id"`

	FirstName string `bson:"first_name" json:"first_name"`
	LastName  string `bson:"last_name" json:"last_name"`
	FullName  string `bson:"full_name" json:"full_name"`

	Party   Party   `bson:"party" json:"party"`
	State   string  `bson:"state" json:"state"` // two-letter uppercase code
	Chamber Chamber `bson:"chamber" json:"chamber"`

	// District is set iff Chamber is house. The bson tag deliberately
	// lacks omitempty: a $set upsert must write an explicit null so a
	// member moving to the Senate does not keep a stale district.
	District *int `bson:"district" json:"district,omitempty"`

	InOffice bool `bson:"in_office" json:"in_office"`

	// External identifiers.
	FECCandidateID string `bson:"fec_candidate_id,omitempty" json:"fec_candidate_id,omitempty"`

	// Contact details, populated by the detail fetch or the contacts
	// enrichment pipeline.
	Title   string `bson:"title,omitempty" json:"title,omitempty"`
	Website string `bson:"website,omitempty" json:"website,omitempty"`
	Phone   string `bson:"phone,omitempty" json:"phone,omitempty"`
	Office  string `bson:"office,omitempty" json:"office,omitempty"`

	Committees []CommitteeMembership `bson:"committees,omitempty" json:"committees,omitempty"`

	LastUpdated time.Time `bson:"last_updated" json:"last_updated"`
}

// Validate checks that required fields are present and enum-like fields hold
// known values. A failed validation fails only the item being ingested.
func (p *Politician) Validate() error {
	if p.BioguideID == "" {
		return errors.NewValidationError("bioguide_id", p.BioguideID, "required")
	}
	if p.FullName == "" {
		return errors.NewValidationError("full_name", p.FullName, "required")
	}
	if len(p.State) != 2 {
		return errors.NewValidationError("state", p.State, "must be a two-letter code")
	}
	if !p.Party.IsValid() {
		return errors.NewValidationError("party", p.Party, "unknown party code")
	}
	if !p.Chamber.IsValid() {
		return errors.NewValidationError("chamber", p.Chamber, "must be senate or house")
	}
	if p.Chamber == ChamberHouse && p.District == nil {
		return errors.NewValidationError("district", nil, "required for house members")
	}
	if p.Chamber == ChamberSenate && p.District != nil {
		return errors.NewValidationError("district", *p.District, "must be absent for senators")
	}
	return nil
}

// Seat describes the elected position this politician holds. House seats are
// unique per (state, district); Senate seats are ambiguous between a state's
// two senators.
func (p *Politician) Seat() string {
	if p.Chamber == ChamberHouse && p.District != nil {
		return fmt.Sprintf("%s-%d", p.State, *p.District)
	}
	return p.State
}

// String returns a human-readable representation.
func (p *Politician) String() string {
	title := "Rep."
	if p.Chamber == ChamberSenate {
		title = "Sen."
	}
	if p.District != nil {
		return fmt.Sprintf("%s %s (%s-%s) District %d", title, p.FullName, p.Party, p.State, *p.District)
	}
	return fmt.Sprintf("%s %s (%s-%s)", title, p.FullName, p.Party, p.State)
}

// CommitteeMembership records a politician's assignment to a committee.
type CommitteeMembership struct {
	CommitteeCode string `bson:"committee_code" json:"committee_code"`
	CommitteeName string `bson:"committee_name" json:"committee_name"`
	Role          string `bson:"role,omitempty" json:"role,omitempty"`
}

// ContactUpdate carries the enrichment-only contact fields applied to an
// existing politician record. Empty fields are not written, so stale data is
// never overwritten with blanks.
type ContactUpdate struct {
	BioguideID string
	Office     string
	Phone      string
	Website    string
}

// HasFields reports whether the update carries anything worth writing.
func (c *ContactUpdate) HasFields() bool {
	return c.Office != "" || c.Phone != "" || c.Website != ""
}

// Validate checks the update target key.
func (c *ContactUpdate) Validate() error {
	if c.BioguideID == "" {
		return errors.NewValidationError("bioguide_id", c.BioguideID, "required")
	}
	return nil
}
