package congress

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/civicsync/civicsync/internal/loaders"
	"github.com/civicsync/civicsync/internal/transport"
	"github.com/civicsync/civicsync/pkg/errors"
	"github.com/civicsync/civicsync/pkg/logging"
	"github.com/civicsync/civicsync/pkg/models"
	"github.com/civicsync/civicsync/pkg/normalize"
)

// RollCall is the raw detail payload for one House roll call, annotated by
// the fetcher with the member positions parsed from the clerk XML feed.
type RollCall struct {
	Congress          int         `json:"congress"`
	SessionNumber     int         `json:"sessionNumber"`
	RollCallNumber    int         `json:"rollCallNumber"`
	VoteQuestion      string      `json:"voteQuestion"`
	Result            string      `json:"result"`
	StartDate         string      `json:"startDate"`
	LegislationType   string      `json:"legislationType"`
	LegislationNumber json.Number `json:"legislationNumber"`
	LegislationURL    string      `json:"legislationUrl"`
	SourceDataURL     string      `json:"sourceDataURL"`

	VotePartyTotal []struct {
		YeaTotal       int `json:"yeaTotal"`
		NayTotal       int `json:"nayTotal"`
		PresentTotal   int `json:"presentTotal"`
		NotVotingTotal int `json:"notVotingTotal"`
	} `json:"votePartyTotal"`

	// Positions come from the clerk XML, not the JSON API.
	Positions []ClerkPosition `json:"-"`
	// ClerkTotals holds the XML count block when present, used as a
	// fallback when the JSON party totals are absent.
	ClerkTotals *ClerkTotals `json:"-"`
}

// ClerkPosition is one member's recorded position from the clerk XML.
type ClerkPosition struct {
	BioguideID string
	VoteCast   string // "Aye", "No", "Present", "Not Voting"
}

// ClerkTotals is the optional count block of the clerk XML.
type ClerkTotals struct {
	Yea       int
	Nay       int
	Present   int
	NotVoting int
}

// clerkVoteXML mirrors the clerk.house.gov roll-call document. Only the
// recorded votes and the optional totals block are consumed.
type clerkVoteXML struct {
	XMLName       xml.Name `xml:"rollcall-vote"`
	RecordedVotes []struct {
		Legislator struct {
			NameID string `xml:"name-id,attr"`
		} `xml:"legislator"`
		Vote string `xml:"vote"`
	} `xml:"vote-data>recorded-vote"`
	Totals *struct {
		Yea       int `xml:"yea-total"`
		Nay       int `xml:"nay-total"`
		Present   int `xml:"present-total"`
		NotVoting int `xml:"not-voting-total"`
	} `xml:"vote-totals>totals-by-vote"`
}

// Votes streams House roll calls for a Congress: offset pagination per
// session, a detail fetch per roll call, then the clerk XML for member
// positions. Senate roll calls are not served by the source.
type Votes struct {
	api      *transport.Client
	clerk    *transport.Client
	congress int
	chamber  models.Chamber
	sessions []int
	maxItems int
}

// VotesOption configures a Votes fetcher.
type VotesOption func(*Votes)

// WithVotesMaxItems caps the total number of roll calls emitted.
func WithVotesMaxItems(n int) VotesOption {
	return func(v *Votes) { v.maxItems = n }
}

// WithVotesSession restricts the fetch to one session (1 or 2).
func WithVotesSession(session int) VotesOption {
	return func(v *Votes) { v.sessions = []int{session} }
}

// WithVotesChamber sets the requested chamber. Only house is served.
func WithVotesChamber(chamber models.Chamber) VotesOption {
	return func(v *Votes) { v.chamber = chamber }
}

// NewVotes creates a votes fetcher. The clerk client carries no credentials;
// the XML feed is open and must not receive the API key.
func NewVotes(api, clerk *transport.Client, congress int, opts ...VotesOption) *Votes {
	v := &Votes{
		api:      api,
		clerk:    clerk,
		congress: congress,
		chamber:  models.ChamberHouse,
		sessions: []int{1, 2},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Fetch pages through each session's roll calls. A requested Senate fetch
// is a warned no-op, not an error: the upstream API simply has no Senate
// roll-call resource yet.
func (v *Votes) Fetch(ctx context.Context, emit func(*RollCall) error) error {
	log := logging.Ctx(ctx)
	if v.chamber != models.ChamberHouse {
		log.Warn().Str("chamber", v.chamber.String()).Msg("roll calls are only served for the house; skipping")
		return nil
	}

	emitted := 0
	for _, session := range v.sessions {
		path := fmt.Sprintf("/house-vote/%d/%d", v.congress, session)

		offset := 0
		for {
			var envelope struct {
				Votes []struct {
					URL string `json:"url"`
				} `json:"houseRollCallVotes"`
			}

			query := baseQuery(defaultPageLimit)
			query.Set("offset", strconv.Itoa(offset))

			err := v.api.GetJSON(ctx, path, query, &envelope)
			if errors.IsNotFound(err) {
				break // session exhausted (or not started)
			}
			if err != nil {
				return err
			}
			if len(envelope.Votes) == 0 {
				break
			}

			log.Debug().Int("session", session).Int("offset", offset).
				Int("votes", len(envelope.Votes)).Msg("fetched roll call page")

			for _, summary := range envelope.Votes {
				if summary.URL == "" {
					continue
				}

				rollCall, err := v.fetchDetail(ctx, summary.URL)
				if err != nil {
					if errors.Is(err, errors.ErrCanceled) {
						return err
					}
					log.Warn().Err(err).Str("url", summary.URL).Msg("roll call detail fetch failed")
					continue
				}

				if err := emit(rollCall); err != nil {
					return err
				}
				emitted++
				if v.maxItems > 0 && emitted >= v.maxItems {
					log.Info().Int("max_items", v.maxItems).Msg("vote fetch reached max items")
					return nil
				}
			}

			offset += defaultPageLimit
		}
	}
	return nil
}

func (v *Votes) fetchDetail(ctx context.Context, detailURL string) (*RollCall, error) {
	var detail struct {
		RollCall RollCall `json:"houseRollCallVote"`
	}
	if err := v.api.GetJSON(ctx, detailURL, url.Values{"format": {"json"}}, &detail); err != nil {
		return nil, err
	}

	rollCall := detail.RollCall
	if rollCall.SourceDataURL != "" {
		positions, totals, err := v.fetchClerkXML(ctx, rollCall.SourceDataURL)
		if err != nil {
			// Positions are an enrichment of the roll call; the vote
			// document still loads without them.
			logging.Ctx(ctx).Warn().Err(err).
				Str("url", rollCall.SourceDataURL).
				Msg("clerk xml fetch failed, roll call carries no member positions")
		} else {
			rollCall.Positions = positions
			rollCall.ClerkTotals = totals
		}
	}
	return &rollCall, nil
}

func (v *Votes) fetchClerkXML(ctx context.Context, xmlURL string) ([]ClerkPosition, *ClerkTotals, error) {
	body, err := v.clerk.GetRaw(ctx, xmlURL, nil)
	if err != nil {
		return nil, nil, err
	}
	return ParseClerkXML(xmlURL, body)
}

// ParseClerkXML extracts member positions and the optional totals block
// from a clerk roll-call document. A document without a totals block is
// valid; counts then default to zero.
func ParseClerkXML(subject string, body []byte) ([]ClerkPosition, *ClerkTotals, error) {
	var doc clerkVoteXML
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, nil, errors.NewParseError("xml", subject, "decoding roll-call document", err)
	}

	positions := make([]ClerkPosition, 0, len(doc.RecordedVotes))
	for _, rv := range doc.RecordedVotes {
		if rv.Legislator.NameID == "" || rv.Vote == "" {
			continue
		}
		positions = append(positions, ClerkPosition{
			BioguideID: rv.Legislator.NameID,
			VoteCast:   rv.Vote,
		})
	}

	var totals *ClerkTotals
	if doc.Totals != nil {
		totals = &ClerkTotals{
			Yea:       doc.Totals.Yea,
			Nay:       doc.Totals.Nay,
			Present:   doc.Totals.Present,
			NotVoting: doc.Totals.NotVoting,
		}
	}
	return positions, totals, nil
}

// TransformRollCall converts a raw roll call into the vote record the loader
// writes: the vote document plus every member position, with positions
// normalized ("Aye"→Yea, "No"→Nay) and unmapped values passed through.
func TransformRollCall(_ context.Context, raw *RollCall) (*loaders.VoteRecord, error) {
	if raw.RollCallNumber <= 0 {
		return nil, errors.NewTransformError("congress", "roll call missing rollCallNumber", nil)
	}
	if raw.Congress <= 0 {
		return nil, errors.NewTransformError("congress", "roll call missing congress", nil)
	}

	session := raw.SessionNumber
	if session == 0 {
		session = 1
	}

	voteID := models.VoteID(models.ChamberHouse, raw.RollCallNumber, raw.Congress)
	vote := models.Vote{
		VoteID:         voteID,
		Chamber:        models.ChamberHouse,
		Congress:       raw.Congress,
		Session:        session,
		RollNumber:     raw.RollCallNumber,
		Question:       raw.VoteQuestion,
		Result:         raw.Result,
		VoteDate:       parseDate(raw.StartDate),
		CongressGovURL: raw.LegislationURL,
		LastUpdated:    time.Now().UTC(),
	}

	// Counts: JSON party totals first, clerk XML block second, zero when
	// both are absent.
	for _, pt := range raw.VotePartyTotal {
		vote.YeaCount += pt.YeaTotal
		vote.NayCount += pt.NayTotal
		vote.PresentCount += pt.PresentTotal
		vote.NotVotingCount += pt.NotVotingTotal
	}
	if len(raw.VotePartyTotal) == 0 && raw.ClerkTotals != nil {
		vote.YeaCount = raw.ClerkTotals.Yea
		vote.NayCount = raw.ClerkTotals.Nay
		vote.PresentCount = raw.ClerkTotals.Present
		vote.NotVotingCount = raw.ClerkTotals.NotVoting
	}

	// Weak bill reference when the roll call names its legislation.
	if raw.LegislationType != "" && raw.LegislationNumber.String() != "" {
		billType := models.BillType(normalizeBillType(raw.LegislationType))
		if number, err := strconv.Atoi(raw.LegislationNumber.String()); err == nil && billType.IsValid() {
			vote.BillID = models.BillID(billType, number, raw.Congress)
		}
	}

	positions := make([]models.MemberVote, 0, len(raw.Positions))
	for _, pos := range raw.Positions {
		positions = append(positions, models.MemberVote{
			VoteID:     voteID,
			BioguideID: pos.BioguideID,
			Position:   normalize.VotePosition(pos.VoteCast),
		})
	}

	return &loaders.VoteRecord{Vote: vote, Positions: positions}, nil
}

// normalizeBillType lowers the API's legislation type ("HR", "HJRES").
func normalizeBillType(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != ' ' && c != '.' {
			out = append(out, c)
		}
	}
	return string(out)
}
