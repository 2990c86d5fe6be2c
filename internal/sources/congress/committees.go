package congress

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/civicsync/civicsync/internal/transport"
	"github.com/civicsync/civicsync/pkg/errors"
	"github.com/civicsync/civicsync/pkg/logging"
	"github.com/civicsync/civicsync/pkg/models"
)

// CommitteeRecord is the raw payload for one committee, merged from the list
// entry and its detail fetch.
type CommitteeRecord struct {
	SystemCode string `json:"systemCode"`
	Name       string `json:"name"`
	URL        string `json:"url"`
	Parent     struct {
		SystemCode string `json:"systemCode"`
	} `json:"parent"`

	// Chamber is the chamber the list request was made for.
	Chamber models.Chamber `json:"-"`
	// MemberBioguideIDs come from the detail fetch.
	MemberBioguideIDs []string `json:"-"`
}

// Committees streams committees of both chambers with their memberships.
type Committees struct {
	client   *transport.Client
	congress int
	chambers []models.Chamber
}

// NewCommittees creates a committees fetcher for the given Congress.
func NewCommittees(client *transport.Client, congress int) *Committees {
	return &Committees{
		client:   client,
		congress: congress,
		chambers: []models.Chamber{models.ChamberHouse, models.ChamberSenate},
	}
}

// Fetch lists each chamber's committees and follows each detail URL for the
// membership roster. A failed detail fetch emits the committee without
// members rather than dropping it.
func (c *Committees) Fetch(ctx context.Context, emit func(*CommitteeRecord) error) error {
	log := logging.Ctx(ctx)

	for _, chamber := range c.chambers {
		var envelope struct {
			Committees []CommitteeRecord `json:"committees"`
		}

		err := c.client.GetJSON(ctx, fmt.Sprintf("/committee/%s", chamber), baseQuery(defaultPageLimit), &envelope)
		if err != nil {
			return err
		}

		log.Debug().Str("chamber", chamber.String()).
			Int("committees", len(envelope.Committees)).Msg("fetched committees")

		for i := range envelope.Committees {
			committee := &envelope.Committees[i]
			if committee.SystemCode == "" {
				continue
			}
			committee.Chamber = chamber

			if committee.URL != "" {
				members, err := c.fetchMembers(ctx, committee.URL)
				if err != nil {
					if errors.Is(err, errors.ErrCanceled) {
						return err
					}
					log.Warn().Err(err).Str("committee", committee.SystemCode).
						Msg("committee membership fetch failed")
				} else {
					committee.MemberBioguideIDs = members
				}
			}

			if err := emit(committee); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Committees) fetchMembers(ctx context.Context, detailURL string) ([]string, error) {
	var detail struct {
		Committee struct {
			Members []struct {
				BioguideID string `json:"bioguideId"`
			} `json:"members"`
		} `json:"committee"`
	}
	if err := c.client.GetJSON(ctx, detailURL, url.Values{"format": {"json"}}, &detail); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(detail.Committee.Members))
	for _, m := range detail.Committee.Members {
		if m.BioguideID != "" {
			ids = append(ids, m.BioguideID)
		}
	}
	return ids, nil
}

// TransformCommittee converts a raw committee payload into a canonical
// committee record.
func TransformCommittee(_ context.Context, raw *CommitteeRecord) (*models.Committee, error) {
	if raw.SystemCode == "" {
		return nil, errors.NewTransformError("congress", "committee missing systemCode", nil)
	}

	return &models.Committee{
		Code:              raw.SystemCode,
		Name:              raw.Name,
		Chamber:           raw.Chamber,
		ParentCode:        raw.Parent.SystemCode,
		MemberBioguideIDs: raw.MemberBioguideIDs,
		URL:               raw.URL,
		LastUpdated:       time.Now().UTC(),
	}, nil
}
