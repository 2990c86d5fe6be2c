// Package fec fetches itemized campaign contributions (Schedule A receipts)
// and candidate records from the FEC API. Pagination is page-numbered and
// bounded by the pagination.pages field the API reports.
package fec

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/civicsync/civicsync/internal/transport"
	"github.com/civicsync/civicsync/pkg/errors"
	"github.com/civicsync/civicsync/pkg/logging"
	"github.com/civicsync/civicsync/pkg/models"
	"github.com/civicsync/civicsync/pkg/normalize"
)

// DefaultBaseURL is the FEC API root.
const DefaultBaseURL = "https://api.open.fec.gov/v1"

// defaultPerPage is the largest page size the API accepts.
const defaultPerPage = 100

// NewClient builds a transport client for the FEC API. Like the
// congressional API, the key travels as the api_key query parameter.
func NewClient(apiKey string, opts ...transport.Option) *transport.Client {
	base := []transport.Option{
		transport.WithBaseURL(DefaultBaseURL),
		transport.WithAuth(&transport.QueryAuth{Param: "api_key"}, apiKey),
	}
	return transport.New("fec", append(base, opts...)...)
}

// ReceiptRecord is one raw Schedule A receipt. Amounts arrive as JSON
// numbers; json.Number keeps them exact until the decimal conversion.
type ReceiptRecord struct {
	SubID                     json.Number `json:"sub_id"`
	LineNumber                string      `json:"line_number"`
	FileNumber                json.Number `json:"file_number"`
	CommitteeID               string      `json:"committee_id"`
	CandidateID               string      `json:"candidate_id"`
	CandidateName             string      `json:"candidate_name"`
	EntityType                string      `json:"entity_type"`
	ContributorName           string      `json:"contributor_name"`
	ContributorEmployer       string      `json:"contributor_employer"`
	ContributorOccupation     string      `json:"contributor_occupation"`
	ContributorCity           string      `json:"contributor_city"`
	ContributorState          string      `json:"contributor_state"`
	ContributorZip            string      `json:"contributor_zip"`
	ContributionReceiptDate   string      `json:"contribution_receipt_date"`
	ContributionReceiptAmount json.Number `json:"contribution_receipt_amount"`
	TwoYearTransactionPeriod  int         `json:"two_year_transaction_period"`
	TransactionID             string      `json:"transaction_id"`
}

// Contributions streams Schedule A receipts for one candidate or committee.
type Contributions struct {
	client      *transport.Client
	candidateID string
	committeeID string
	cycle       int
	perPage     int
	maxPages    int

	candidateName string
}

// ContributionsOption configures a Contributions fetcher.
type ContributionsOption func(*Contributions)

// ForCandidate scopes the fetch to one FEC candidate id.
func ForCandidate(candidateID string) ContributionsOption {
	return func(c *Contributions) { c.candidateID = candidateID }
}

// ForCommittee scopes the fetch to one FEC committee id.
func ForCommittee(committeeID string) ContributionsOption {
	return func(c *Contributions) { c.committeeID = committeeID }
}

// WithMaxPages bounds the page loop independently of what the API reports.
// Zero means follow pagination.pages to the end.
func WithMaxPages(n int) ContributionsOption {
	return func(c *Contributions) { c.maxPages = n }
}

// WithPerPage overrides the page size. Test hook.
func WithPerPage(n int) ContributionsOption {
	return func(c *Contributions) { c.perPage = n }
}

// NewContributions creates a receipts fetcher for the given election cycle.
func NewContributions(client *transport.Client, cycle int, opts ...ContributionsOption) *Contributions {
	c := &Contributions{client: client, cycle: cycle, perPage: defaultPerPage}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch pages through the receipts, newest first. The loop ends at the page
// count the API reports, at an empty page, or at the configured max.
func (c *Contributions) Fetch(ctx context.Context, emit func(*ReceiptRecord) error) error {
	if c.candidateID == "" && c.committeeID == "" {
		return errors.NewConfigError("fec", "a candidate or committee id is required", nil)
	}

	log := logging.Ctx(ctx)
	if c.candidateID != "" && c.candidateName == "" {
		c.candidateName = c.lookupCandidateName(ctx, c.candidateID)
	}

	page := 1
	for {
		if c.maxPages > 0 && page > c.maxPages {
			log.Info().Int("max_pages", c.maxPages).Msg("receipt fetch reached page limit")
			return nil
		}

		query := url.Values{
			"two_year_transaction_period": {strconv.Itoa(c.cycle)},
			"per_page":                    {strconv.Itoa(c.perPage)},
			"page":                        {strconv.Itoa(page)},
			"sort":                        {"-contribution_receipt_date"},
		}
		if c.candidateID != "" {
			query.Set("candidate_id", c.candidateID)
		} else {
			query.Set("committee_id", c.committeeID)
		}

		var envelope struct {
			Results    []ReceiptRecord `json:"results"`
			Pagination struct {
				Pages int `json:"pages"`
			} `json:"pagination"`
		}
		if err := c.client.GetJSON(ctx, "/schedules/schedule_a/", query, &envelope); err != nil {
			return err
		}
		if len(envelope.Results) == 0 {
			return nil
		}

		log.Debug().Int("page", page).Int("receipts", len(envelope.Results)).Msg("fetched receipt page")

		for i := range envelope.Results {
			if envelope.Results[i].CandidateName == "" {
				envelope.Results[i].CandidateName = c.candidateName
			}
			if err := emit(&envelope.Results[i]); err != nil {
				return err
			}
		}

		if page >= envelope.Pagination.Pages {
			return nil
		}
		page++
	}
}

// lookupCandidateName resolves the recipient name once, so receipts missing
// candidate_name still carry a usable recipient. Failures degrade to the
// placeholder name.
func (c *Contributions) lookupCandidateName(ctx context.Context, candidateID string) string {
	var envelope struct {
		Results []struct {
			Name string `json:"name"`
		} `json:"results"`
	}
	err := c.client.GetJSON(ctx, fmt.Sprintf("/candidate/%s/", candidateID), nil, &envelope)
	if err != nil || len(envelope.Results) == 0 {
		logging.Ctx(ctx).Warn().Err(err).Str("candidate_id", candidateID).Msg("candidate name lookup failed")
		return "Unknown Candidate"
	}
	return envelope.Results[0].Name
}

// TransformReceipt converts one Schedule A receipt into a canonical
// contribution. A missing or malformed amount becomes zero with a warning —
// FEC exports contain them and dropping the receipt would lose the
// transaction's existence.
func TransformReceipt(ctx context.Context, raw *ReceiptRecord) (*models.Contribution, error) {
	id := contributionID(raw)
	if id == "" {
		return nil, errors.NewTransformError("fec", "receipt has no usable identifier", nil)
	}

	amount := decimal.Zero
	if s := raw.ContributionReceiptAmount.String(); s != "" {
		parsed, err := decimal.NewFromString(s)
		if err != nil {
			logging.Ctx(ctx).Warn().Str("amount", s).Str("id", id).Msg("invalid receipt amount, using zero")
		} else {
			amount = parsed
		}
	}

	contributorName := raw.ContributorName
	if contributorName == "" {
		contributorName = "Unknown"
	}
	recipientName := raw.CandidateName
	if recipientName == "" {
		recipientName = "Unknown Candidate"
	}

	c := &models.Contribution{
		ID:                    id,
		RecipientName:         recipientName,
		CandidateID:           raw.CandidateID,
		CommitteeID:           raw.CommitteeID,
		ContributorName:       contributorName,
		ContributorType:       contributionType(raw.EntityType),
		ContributorEmployer:   raw.ContributorEmployer,
		ContributorOccupation: raw.ContributorOccupation,
		ContributorCity:       raw.ContributorCity,
		ContributorState:      raw.ContributorState,
		ContributorZip:        raw.ContributorZip,
		Amount:                amount,
		Date:                  parseReceiptDate(raw.ContributionReceiptDate),
		Cycle:                 strconv.Itoa(raw.TwoYearTransactionPeriod),
		Source:                "fec",
		FECTransactionID:      raw.TransactionID,
	}

	normalize.Contribution(c)
	return c, nil
}

// contributionID derives the natural key: "fec_{sub_id}", falling back to
// line and file numbers for legacy rows without a sub_id.
func contributionID(raw *ReceiptRecord) string {
	if s := raw.SubID.String(); s != "" {
		return "fec_" + s
	}
	if raw.LineNumber != "" && raw.FileNumber.String() != "" {
		return fmt.Sprintf("fec_%s_%s", raw.LineNumber, raw.FileNumber)
	}
	return ""
}

// contributionType maps FEC entity type codes onto the canonical enum.
func contributionType(entityType string) models.ContributionType {
	switch entityType {
	case "IND":
		return models.ContributorIndividual
	case "PAC", "COM":
		return models.ContributorPAC
	case "PTY":
		return models.ContributorParty
	case "CAN":
		return models.ContributorCandidate
	default:
		return models.ContributorOther
	}
}

// parseReceiptDate accepts the API's ISO timestamps with or without zone.
func parseReceiptDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
