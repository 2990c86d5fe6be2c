package models

import (
	"time"

	"github.com/civicsync/civicsync/pkg/errors"
)

// Committee is a congressional committee, keyed by its system code.
type Committee struct {
	// Code is the natural key, e.g. "hsag00".
	Code string `bson:"code" json:"code"`

	Name    string  `bson:"name" json:"name"`
	Chamber Chamber `bson:"chamber" json:"chamber"`

	// ParentCode links a subcommittee to its parent, when present.
	ParentCode string `bson:"parent_code,omitempty" json:"parent_code,omitempty"`

	// MemberBioguideIDs are weak references to member politicians.
	MemberBioguideIDs []string `bson:"member_bioguide_ids,omitempty" json:"member_bioguide_ids,omitempty"`

	URL string `bson:"url,omitempty" json:"url,omitempty"`

	LastUpdated time.Time `bson:"last_updated" json:"last_updated"`
}

// Validate checks that required fields are present.
func (c *Committee) Validate() error {
	if c.Code == "" {
		return errors.NewValidationError("code", c.Code, "required")
	}
	if c.Name == "" {
		return errors.NewValidationError("name", c.Name, "required")
	}
	if !c.Chamber.IsValid() {
		return errors.NewValidationError("chamber", c.Chamber, "must be senate or house")
	}
	return nil
}
