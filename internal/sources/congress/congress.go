// Package congress fetches members, bills, committees, and roll-call votes
// from the congress.gov API. All requests go through the shared throttled
// transport client; the fixed post-request delay keeps a sequential fetch
// loop inside the source's rate ceiling.
//
// Pagination follows the API's conventions: offset windows for bills and
// votes, one request per state for members. A 404 terminates a pagination
// loop; it is how the API signals "no more data" for sparse resources.
package congress

import (
	"net/url"
	"strconv"

	"github.com/civicsync/civicsync/internal/transport"
)

// DefaultBaseURL is the congress.gov API root.
const DefaultBaseURL = "https://api.congress.gov/v3"

// defaultPageLimit is the largest page size the API accepts.
const defaultPageLimit = 250

// NewClient builds a transport client for the congress.gov API. The key is
// carried as the api_key query parameter.
func NewClient(apiKey string, opts ...transport.Option) *transport.Client {
	base := []transport.Option{
		transport.WithBaseURL(DefaultBaseURL),
		transport.WithAuth(&transport.QueryAuth{Param: "api_key"}, apiKey),
	}
	return transport.New("congress", append(base, opts...)...)
}

// baseQuery returns the query parameters common to every list request.
func baseQuery(limit int) url.Values {
	return url.Values{
		"format": {"json"},
		"limit":  {strconv.Itoa(limit)},
	}
}
