package normalize

import (
	"strings"

	"github.com/civicsync/civicsync/pkg/models"
)

// statusSynonyms maps already-slugged source phrases to canonical statuses.
var statusSynonyms = map[string]models.BillStatus{
	"intro":      models.StatusIntroduced,
	"introduced": models.StatusIntroduced,
	"enacted":    models.StatusBecameLaw,
	"became_law": models.StatusBecameLaw,
	"signed":     models.StatusBecameLaw,
}

// BillStatus normalizes a bill-status phrase: lower-cased, spaces and
// hyphens replaced with underscores, then mapped through a small synonym
// table. Unmapped values pass through verbatim — rejecting unmapped source
// vocabulary would silently drop legitimate bills whenever the upstream
// source introduces a new status string. Empty input returns "".
func BillStatus(s string) models.BillStatus {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	slug := strings.ToLower(s)
	slug = strings.ReplaceAll(slug, " ", "_")
	slug = strings.ReplaceAll(slug, "-", "_")

	if canonical, found := statusSynonyms[slug]; found {
		return canonical
	}
	return models.BillStatus(slug)
}

// VotePosition maps the clerk feed's free-text cast positions onto the
// canonical four. "Aye"/"Yea" and "No"/"Nay" are chamber dialects of the
// same positions. Unmapped values pass through verbatim (lenient, like
// BillStatus).
func VotePosition(s string) models.VotePosition {
	switch folder.String(strings.TrimSpace(s)) {
	case "yea", "aye", "yes":
		return models.PositionYea
	case "nay", "no":
		return models.PositionNay
	case "present":
		return models.PositionPresent
	case "not voting":
		return models.PositionNotVoting
	}
	return models.VotePosition(strings.TrimSpace(s))
}
