// Package contacts fetches the community-maintained legislator bulk feed
// (unitedstates/congress-legislators) and extracts contact information from
// each person's most recent term. The pipeline built on it is enrichment
// only: it updates politicians the member sync already created and never
// creates records.
package contacts

import (
	"context"

	"github.com/goccy/go-yaml"

	"github.com/civicsync/civicsync/internal/transport"
	"github.com/civicsync/civicsync/pkg/errors"
	"github.com/civicsync/civicsync/pkg/logging"
	"github.com/civicsync/civicsync/pkg/models"
)

// DefaultFeedURL is the raw YAML document of current legislators.
const DefaultFeedURL = "https://raw.githubusercontent.com/unitedstates/congress-legislators/main/legislators-current.yaml"

// Legislator is one raw entry of the bulk feed. The document carries far
// more than contact data; only the identifier and terms are consumed.
type Legislator struct {
	ID struct {
		Bioguide string `yaml:"bioguide"`
	} `yaml:"id"`
	Terms []Term `yaml:"terms"`
}

// Term is one term of service. Contact fields live on the term, and only
// the most recent term's values are current.
type Term struct {
	Address     string `yaml:"address"`
	Phone       string `yaml:"phone"`
	URL         string `yaml:"url"`
	ContactForm string `yaml:"contact_form"`
}

// Legislators streams the bulk feed, one legislator at a time. The whole
// document is a single request; there is no pagination to resume, so any
// fetch or parse failure aborts the run.
type Legislators struct {
	client  *transport.Client
	feedURL string
}

// NewLegislators creates a bulk-feed fetcher. An empty feedURL selects the
// default upstream document.
func NewLegislators(client *transport.Client, feedURL string) *Legislators {
	if feedURL == "" {
		feedURL = DefaultFeedURL
	}
	return &Legislators{client: client, feedURL: feedURL}
}

// Fetch downloads and parses the YAML document, emitting each legislator.
func (l *Legislators) Fetch(ctx context.Context, emit func(*Legislator) error) error {
	body, err := l.client.GetRaw(ctx, l.feedURL, nil)
	if err != nil {
		return err
	}

	var legislators []Legislator
	if err := yaml.Unmarshal(body, &legislators); err != nil {
		return errors.NewParseError("yaml", l.feedURL, "decoding legislators document", err)
	}

	logging.Ctx(ctx).Info().Int("legislators", len(legislators)).Msg("loaded legislator bulk feed")

	for i := range legislators {
		if err := emit(&legislators[i]); err != nil {
			return err
		}
	}
	return nil
}

// TransformLegislator extracts the contact update from a legislator's most
// recent term. The contact form URL is preferred over the general site URL
// because it is the actionable one.
func TransformLegislator(_ context.Context, raw *Legislator) (*models.ContactUpdate, error) {
	if raw.ID.Bioguide == "" {
		return nil, errors.NewTransformError("contacts", "legislator record missing bioguide id", nil)
	}

	update := &models.ContactUpdate{BioguideID: raw.ID.Bioguide}
	if len(raw.Terms) == 0 {
		return update, nil
	}

	term := raw.Terms[len(raw.Terms)-1]
	update.Office = term.Address
	update.Phone = term.Phone
	if term.ContactForm != "" {
		update.Website = term.ContactForm
	} else {
		update.Website = term.URL
	}
	return update, nil
}
