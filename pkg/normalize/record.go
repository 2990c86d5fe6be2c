package normalize

import (
	"time"

	"github.com/civicsync/civicsync/pkg/models"
)

// nowFunc is swapped out by tests that assert LastUpdated stamping.
var nowFunc = time.Now

// Politician applies the field normalizers to a full politician record and
// stamps LastUpdated if absent. Fields not covered by a normalization rule
// are left untouched. Returns ok=false when the party fell back to the
// default, so callers can surface the data-quality gap.
func Politician(p *models.Politician) (partyOK bool) {
	if code, ok := State(p.State); ok {
		p.State = code
	}

	var party models.Party
	party, partyOK = Party(string(p.Party), DefaultParty)
	p.Party = party

	if chamber, ok := Chamber(string(p.Chamber)); ok {
		p.Chamber = chamber
	}

	if p.LastUpdated.IsZero() {
		p.LastUpdated = nowFunc().UTC()
	}
	return partyOK
}

// Contribution normalizes the contributor state and stamps LastUpdated if
// absent. An unrecognized contributor state is cleared rather than persisted
// raw, matching the two-letter invariant on the field.
func Contribution(c *models.Contribution) {
	if c.ContributorState != "" {
		if code, ok := State(c.ContributorState); ok {
			c.ContributorState = code
		} else {
			c.ContributorState = ""
		}
	}

	if c.LastUpdated.IsZero() {
		c.LastUpdated = nowFunc().UTC()
	}
}

// Legislation normalizes a bill's status and stamps LastUpdated if absent.
func Legislation(b *models.Bill) {
	b.Status = BillStatus(string(b.Status))

	if b.LastUpdated.IsZero() {
		b.LastUpdated = nowFunc().UTC()
	}
}
