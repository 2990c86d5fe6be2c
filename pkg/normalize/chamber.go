package normalize

import (
	"strings"

	"github.com/civicsync/civicsync/pkg/models"
)

// Chamber normalizes a chamber name to its lowercase canonical token.
// "Senate", "House", and "House of Representatives" are accepted in any
// case. ok is false for unrecognized input.
func Chamber(s string) (models.Chamber, bool) {
	switch folder.String(strings.TrimSpace(s)) {
	case "senate":
		return models.ChamberSenate, true
	case "house", "house of representatives":
		return models.ChamberHouse, true
	}
	return "", false
}
