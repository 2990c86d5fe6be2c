package congress

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/civicsync/civicsync/internal/transport"
	"github.com/civicsync/civicsync/pkg/errors"
	"github.com/civicsync/civicsync/pkg/logging"
	"github.com/civicsync/civicsync/pkg/models"
	"github.com/civicsync/civicsync/pkg/normalize"
)

// MemberRecord is the raw member payload from the member list endpoint,
// annotated by the fetcher with the state it was requested under and the
// detail payload when detail fetching is on.
type MemberRecord struct {
	BioguideID         string `json:"bioguideId"`
	Name               string `json:"name"` // "Last, First Middle"
	PartyName          string `json:"partyName"`
	State              string `json:"state"`
	District           *int   `json:"district"`
	OfficialWebsiteURL string `json:"officialWebsiteUrl"`
	Terms              struct {
		Item []struct {
			Chamber string `json:"chamber"`
		} `json:"item"`
	} `json:"terms"`

	// StateCode is the two-letter code the list request was made for.
	StateCode string `json:"-"`
	// Detail is the per-member payload, nil when detail fetching is off or
	// the detail request failed.
	Detail *MemberDetail `json:"-"`
}

// MemberDetail is the per-member payload carrying contact information.
type MemberDetail struct {
	AddressInformation struct {
		OfficeAddress string `json:"officeAddress"`
		City          string `json:"city"`
		District      string `json:"district"`
		ZipCode       int    `json:"zipCode"`
		PhoneNumber   string `json:"phoneNumber"`
	} `json:"addressInformation"`
}

// chamber returns the chamber of the member's most recent term.
func (m *MemberRecord) chamber() (models.Chamber, bool) {
	items := m.Terms.Item
	if len(items) == 0 {
		return "", false
	}
	return normalize.Chamber(items[len(items)-1].Chamber)
}

// Members streams current members of a Congress, one list request per state.
type Members struct {
	client        *transport.Client
	congress      int
	stateFilter   string
	chamberFilter models.Chamber
	fetchDetails  bool
}

// MembersOption configures a Members fetcher.
type MembersOption func(*Members)

// WithStateFilter restricts the fetch to a single two-letter state code.
func WithStateFilter(state string) MembersOption {
	return func(m *Members) { m.stateFilter = strings.ToUpper(strings.TrimSpace(state)) }
}

// WithChamberFilter drops members of the other chamber during the fetch.
func WithChamberFilter(chamber models.Chamber) MembersOption {
	return func(m *Members) { m.chamberFilter = chamber }
}

// WithMemberDetails toggles the per-member detail fetch that carries contact
// information. On by default; slower by one request per member.
func WithMemberDetails(on bool) MembersOption {
	return func(m *Members) { m.fetchDetails = on }
}

// NewMembers creates a members fetcher for the given Congress.
func NewMembers(client *transport.Client, congress int, opts ...MembersOption) *Members {
	m := &Members{client: client, congress: congress, fetchDetails: true}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Fetch requests each state's current members and emits them one at a time.
// A 404 for a state means the territory has no data and is skipped; any
// other source error aborts the fetch.
func (m *Members) Fetch(ctx context.Context, emit func(*MemberRecord) error) error {
	states := normalize.StateCodes()
	if m.stateFilter != "" {
		if !normalize.IsStateCode(m.stateFilter) {
			return errors.NewConfigError("members", fmt.Sprintf("unknown state code %q", m.stateFilter), nil)
		}
		states = []string{m.stateFilter}
	}

	log := logging.Ctx(ctx)
	for _, state := range states {
		var envelope struct {
			Members []MemberRecord `json:"members"`
		}

		path := fmt.Sprintf("/member/congress/%d/%s", m.congress, state)
		query := baseQuery(defaultPageLimit)
		query.Set("currentMember", "true")

		err := m.client.GetJSON(ctx, path, query, &envelope)
		if errors.IsNotFound(err) {
			log.Debug().Str("state", state).Msg("no member data for state")
			continue
		}
		if err != nil {
			return err
		}

		log.Debug().Str("state", state).Int("members", len(envelope.Members)).Msg("fetched state members")

		for i := range envelope.Members {
			member := &envelope.Members[i]
			member.StateCode = state

			if m.chamberFilter != "" {
				chamber, ok := member.chamber()
				if !ok || chamber != m.chamberFilter {
					continue
				}
			}

			if m.fetchDetails && member.BioguideID != "" {
				member.Detail = m.fetchDetail(ctx, member.BioguideID)
			}

			if err := emit(member); err != nil {
				return err
			}
		}
	}
	return nil
}

// fetchDetail requests the member detail payload. Detail failures degrade
// the record (no contact fields) rather than failing the member.
func (m *Members) fetchDetail(ctx context.Context, bioguideID string) *MemberDetail {
	var envelope struct {
		Member MemberDetail `json:"member"`
	}
	err := m.client.GetJSON(ctx, "/member/"+bioguideID, url.Values{"format": {"json"}}, &envelope)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("bioguide_id", bioguideID).Msg("member detail fetch failed")
		return nil
	}
	return &envelope.Member
}

// TransformMember converts a raw member payload into a canonical politician
// record. An unmapped party is not an error: the record defaults to
// independent and a data-quality warning is logged.
func TransformMember(ctx context.Context, raw *MemberRecord) (*models.Politician, error) {
	if raw.BioguideID == "" {
		return nil, errors.NewTransformError("congress", "member record missing bioguideId", nil)
	}

	chamber, ok := raw.chamber()
	if !ok {
		return nil, errors.NewTransformError("congress",
			fmt.Sprintf("member %s has no recognizable chamber", raw.BioguideID), nil)
	}

	firstName, lastName, fullName := splitName(raw.Name)

	p := &models.Politician{
		BioguideID: raw.BioguideID,
		FirstName:  firstName,
		LastName:   lastName,
		FullName:   fullName,
		Party:      models.Party(raw.PartyName),
		State:      raw.StateCode,
		Chamber:    chamber,
		InOffice:   true,
		Website:    raw.OfficialWebsiteURL,
	}

	if chamber == models.ChamberHouse {
		if raw.District == nil {
			return nil, errors.NewTransformError("congress",
				fmt.Sprintf("house member %s missing district", raw.BioguideID), nil)
		}
		district := *raw.District
		p.District = &district
		p.Title = "Representative"
	} else {
		p.Title = "Senator"
	}

	if raw.Detail != nil {
		addr := raw.Detail.AddressInformation
		p.Phone = addr.PhoneNumber
		if addr.OfficeAddress != "" {
			office := addr.OfficeAddress
			if addr.City != "" {
				office += ", " + addr.City
				if addr.District != "" {
					office += ", " + addr.District
				}
				if addr.ZipCode != 0 {
					office += fmt.Sprintf(" %d", addr.ZipCode)
				}
			}
			p.Office = office
		}
	}

	if partyOK := normalize.Politician(p); !partyOK {
		logging.Ctx(ctx).Warn().
			Str("bioguide_id", p.BioguideID).
			Str("party", raw.PartyName).
			Msg("unrecognized party, defaulting to independent")
	}
	return p, nil
}

// splitName parses the API's "Last, First Middle" form, falling back to the
// raw string when the comma convention is absent.
func splitName(name string) (first, last, full string) {
	if before, after, found := strings.Cut(name, ", "); found {
		last = strings.TrimSpace(before)
		first = strings.TrimSpace(after)
		return first, last, first + " " + last
	}

	full = strings.TrimSpace(name)
	parts := strings.Fields(full)
	if len(parts) > 0 {
		first = parts[0]
	}
	if len(parts) > 1 {
		last = parts[len(parts)-1]
	}
	return first, last, full
}
