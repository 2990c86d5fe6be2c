package congress

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/civicsync/civicsync/internal/transport"
	"github.com/civicsync/civicsync/pkg/errors"
	"github.com/civicsync/civicsync/pkg/logging"
	"github.com/civicsync/civicsync/pkg/models"
	"github.com/civicsync/civicsync/pkg/normalize"
)

// BillRecord is the raw detail payload for one bill. The API is loose with
// numeric types — bill numbers arrive as strings in some envelopes and
// numbers in others — so json.Number absorbs both.
type BillRecord struct {
	Type     string      `json:"type"`
	Number   json.Number `json:"number"`
	Congress int         `json:"congress"`

	Title          string `json:"title"`
	IntroducedDate string `json:"introducedDate"`

	LatestAction struct {
		ActionDate string `json:"actionDate"`
		Text       string `json:"text"`
	} `json:"latestAction"`

	Sponsors []struct {
		BioguideID string `json:"bioguideId"`
	} `json:"sponsors"`

	PolicyArea struct {
		Name string `json:"name"`
	} `json:"policyArea"`

	Subjects struct {
		LegislativeSubjects []struct {
			Name string `json:"name"`
		} `json:"legislativeSubjects"`
	} `json:"subjects"`

	Summaries struct {
		BillSummaries []struct {
			Text string `json:"text"`
		} `json:"billSummaries"`
	} `json:"summaries"`

	TextVersions struct {
		URL string `json:"url"`
	} `json:"textVersions"`

	URL string `json:"url"`
}

// Bills streams bills of one type for a Congress through offset pagination,
// following each list entry's detail URL for the full payload.
type Bills struct {
	client    *transport.Client
	congress  int
	billType  models.BillType
	pageLimit int
	maxItems  int
}

// BillsOption configures a Bills fetcher.
type BillsOption func(*Bills)

// WithBillsMaxItems caps the total number of bills emitted. Zero means all.
func WithBillsMaxItems(n int) BillsOption {
	return func(b *Bills) { b.maxItems = n }
}

// WithBillsPageLimit overrides the list page size. Test hook.
func WithBillsPageLimit(n int) BillsOption {
	return func(b *Bills) { b.pageLimit = n }
}

// NewBills creates a bills fetcher for the given Congress and bill type.
func NewBills(client *transport.Client, congress int, billType models.BillType, opts ...BillsOption) *Bills {
	b := &Bills{client: client, congress: congress, billType: billType, pageLimit: defaultPageLimit}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Fetch pages through the bill list and emits one detail payload per bill.
// A 404 or an empty page ends pagination; a failed detail fetch drops that
// bill with a warning and moves on.
func (b *Bills) Fetch(ctx context.Context, emit func(*BillRecord) error) error {
	if !b.billType.IsValid() {
		return errors.NewConfigError("bills", fmt.Sprintf("unknown bill type %q", b.billType), nil)
	}

	log := logging.Ctx(ctx)
	path := fmt.Sprintf("/bill/%d/%s", b.congress, b.billType)

	offset := 0
	emitted := 0
	for {
		var envelope struct {
			Bills []struct {
				URL string `json:"url"`
			} `json:"bills"`
		}

		query := baseQuery(b.pageLimit)
		query.Set("offset", strconv.Itoa(offset))

		err := b.client.GetJSON(ctx, path, query, &envelope)
		if errors.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if len(envelope.Bills) == 0 {
			return nil
		}

		log.Debug().Int("offset", offset).Int("bills", len(envelope.Bills)).Msg("fetched bill page")

		for _, summary := range envelope.Bills {
			if summary.URL == "" {
				continue
			}

			var detail struct {
				Bill BillRecord `json:"bill"`
			}
			if err := b.client.GetJSON(ctx, summary.URL, url.Values{"format": {"json"}}, &detail); err != nil {
				if errors.Is(err, errors.ErrCanceled) {
					return err
				}
				log.Warn().Err(err).Str("url", summary.URL).Msg("bill detail fetch failed")
				continue
			}

			if err := emit(&detail.Bill); err != nil {
				return err
			}
			emitted++
			if b.maxItems > 0 && emitted >= b.maxItems {
				log.Info().Int("max_items", b.maxItems).Msg("bill fetch reached max items")
				return nil
			}
		}

		offset += b.pageLimit
	}
}

// TransformBill converts a raw bill payload into a canonical bill record.
// Status is derived from the latest action text; the normalizer's lenient
// passthrough keeps unrecognized phrasings from dropping bills.
func TransformBill(_ context.Context, raw *BillRecord) (*models.Bill, error) {
	billType := models.BillType(strings.ToLower(raw.Type))
	if !billType.IsValid() {
		return nil, errors.NewTransformError("congress",
			fmt.Sprintf("unknown bill type %q", raw.Type), nil)
	}

	number, err := strconv.Atoi(raw.Number.String())
	if err != nil || number <= 0 {
		return nil, errors.NewTransformError("congress",
			fmt.Sprintf("bad bill number %q", raw.Number), err)
	}
	if raw.Congress <= 0 {
		return nil, errors.NewTransformError("congress", "bill missing congress", nil)
	}

	bill := &models.Bill{
		BillID:           models.BillID(billType, number, raw.Congress),
		BillType:         billType,
		Number:           number,
		Congress:         raw.Congress,
		Title:            raw.Title,
		Status:           deriveStatus(raw.LatestAction.Text),
		IntroducedDate:   parseDate(raw.IntroducedDate),
		LatestActionDate: parseDate(raw.LatestAction.ActionDate),
		LatestActionText: raw.LatestAction.Text,
		PolicyArea:       raw.PolicyArea.Name,
		CongressGovURL:   raw.URL,
		FullTextURL:      raw.TextVersions.URL,
	}

	if len(raw.Sponsors) > 0 {
		bill.SponsorBioguideID = raw.Sponsors[0].BioguideID
	}
	for _, s := range raw.Subjects.LegislativeSubjects {
		if s.Name != "" {
			bill.Subjects = append(bill.Subjects, s.Name)
		}
	}
	if len(raw.Summaries.BillSummaries) > 0 {
		bill.Summary = raw.Summaries.BillSummaries[0].Text
	}

	normalize.Legislation(bill)
	return bill, nil
}

// deriveStatus maps the latest action text onto the canonical status enum.
// The phrase checks mirror how congress.gov words chamber actions.
func deriveStatus(latestAction string) models.BillStatus {
	text := strings.ToLower(latestAction)
	switch {
	case strings.Contains(text, "became public law"), strings.Contains(text, "signed by president"):
		return models.StatusBecameLaw
	case strings.Contains(text, "passed senate") && strings.Contains(text, "passed house"):
		return models.StatusToPresident
	case strings.Contains(text, "passed senate"):
		return models.StatusPassedSenate
	case strings.Contains(text, "passed house"):
		return models.StatusPassedHouse
	case strings.Contains(text, "vetoed"):
		return models.StatusVetoed
	case strings.Contains(text, "referred to"), strings.Contains(text, "committee"):
		return models.StatusInCommittee
	default:
		return models.StatusIntroduced
	}
}

// parseDate accepts both bare dates and RFC 3339 timestamps.
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	if len(s) > 10 {
		s = s[:10]
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
