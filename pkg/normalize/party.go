package normalize

import (
	"strings"

	"github.com/civicsync/civicsync/pkg/models"
)

// partyMappings maps long-form party names and single letters to codes.
var partyMappings = map[string]models.Party{
	"republican":  models.PartyRepublican,
	"democrat":    models.PartyDemocrat,
	"democratic":  models.PartyDemocrat,
	"independent": models.PartyIndependent,
	"libertarian": models.PartyLibertarian,
	"green":       models.PartyGreen,
	"r":           models.PartyRepublican,
	"d":           models.PartyDemocrat,
	"i":           models.PartyIndependent,
	"l":           models.PartyLibertarian,
	"g":           models.PartyGreen,
}

// DefaultParty is used when a source reports no usable affiliation.
const DefaultParty = models.PartyIndependent

// Party normalizes a party affiliation to its single-letter code. Unknown,
// empty, or explicitly "unknown"/"other"/"none" input returns def with
// ok=false — a data-quality signal for the caller to log, never an error,
// so ingestion is not halted by unexpected upstream vocabulary.
func Party(s string, def models.Party) (code models.Party, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, false
	}

	if code, found := partyMappings[folder.String(s)]; found {
		return code, true
	}

	// "Democratic-Farmer-Labor" and similar hyphenated affiliations map to
	// their leading component.
	if lead, _, found := strings.Cut(s, "-"); found {
		if code, found := partyMappings[folder.String(strings.TrimSpace(lead))]; found {
			return code, true
		}
	}

	return def, false
}
