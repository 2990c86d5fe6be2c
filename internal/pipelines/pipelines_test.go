package pipelines

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicsync/civicsync/pkg/models"
	"github.com/civicsync/civicsync/pkg/store"
	"github.com/civicsync/civicsync/pkg/store/memory"
)

// sharedStore returns a factory that hands out the same memory store, the
// way every pipeline in a run shares one database.
func sharedStore(st *memory.Store) func() store.Store {
	return func() store.Store { return st }
}

func congressHandler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/member/congress/119/UT":
			_, _ = fmt.Fprint(w, `{"members":[
				{"bioguideId":"L000577","name":"Lee, Mike","partyName":"Republican",
				 "officialWebsiteUrl":"https://www.lee.senate.gov",
				 "terms":{"item":[{"chamber":"Senate"}]}},
				{"bioguideId":"M001213","name":"Maloy, Celeste","partyName":"Republican","district":2,
				 "officialWebsiteUrl":"https://maloy.house.gov",
				 "terms":{"item":[{"chamber":"House of Representatives"}]}}]}`)
		case "/member/L000577", "/member/M001213":
			_, _ = fmt.Fprint(w, `{"member":{"addressInformation":{
				"officeAddress":"363 Russell Senate Office Building","city":"Washington",
				"district":"DC","zipCode":20510,"phoneNumber":"202-224-5444"}}}`)
		default:
			http.NotFound(w, r)
		}
	})
}

const contactsFeed = `- id:
    bioguide: L000577
  terms:
    - address: 363 Russell Senate Office Building Washington DC 20510
      phone: 202-224-5444
      url: https://www.lee.senate.gov
      contact_form: https://www.lee.senate.gov/contact
- id:
    bioguide: M001213
  terms:
    - address: 1207 Longworth House Office Building Washington DC 20515
      phone: 202-225-9730
      url: https://maloy.house.gov
`

func TestMembersThenContactsEndToEnd(t *testing.T) {
	congressSrv := httptest.NewServer(congressHandler(t))
	t.Cleanup(congressSrv.Close)

	contactsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(contactsFeed))
	}))
	t.Cleanup(contactsSrv.Close)

	st := memory.New()
	cfg := Config{
		CongressAPIKey:  "test-key",
		Congress:        119,
		State:           "UT",
		CongressBaseURL: congressSrv.URL,
		ContactsFeedURL: contactsSrv.URL + "/legislators-current.yaml",
		RequestDelay:    -1,
		NewStore:        sharedStore(st),
	}

	registry, err := NewRegistry(cfg)
	require.NoError(t, err)

	report, err := registry.Run(context.Background(), []string{"contacts"})
	require.NoError(t, err)
	require.False(t, report.Failed())
	assert.Equal(t, []string{"members", "contacts"}, report.Order)

	require.NoError(t, st.Connect(context.Background()))
	lee, err := st.GetPolitician(context.Background(), "L000577")
	require.NoError(t, err)
	assert.Equal(t, models.ChamberSenate, lee.Chamber)
	assert.True(t, lee.InOffice)
	assert.Equal(t, "https://www.lee.senate.gov/contact", lee.Website, "contact feed refines the website")
	assert.Equal(t, "202-224-5444", lee.Phone)
}

func TestContributionsThenLinking(t *testing.T) {
	fecSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/candidates/search/":
			_, _ = fmt.Fprint(w, `{"results":[{"candidate_id":"H2UT02133","state":"UT"}]}`)
		case "/candidate/H2UT02133/":
			_, _ = fmt.Fprint(w, `{"results":[{"name":"MALOY, CELESTE"}]}`)
		case "/schedules/schedule_a/":
			require.Equal(t, "H2UT02133", r.URL.Query().Get("candidate_id"))
			_, _ = fmt.Fprint(w, `{"results":[
				{"sub_id":"777","candidate_id":"H2UT02133","entity_type":"IND",
				 "contributor_name":"SMITH, JOHN","contributor_state":"UT",
				 "contribution_receipt_date":"2024-03-15T00:00:00",
				 "contribution_receipt_amount":100.50,
				 "two_year_transaction_period":2024,"transaction_id":"SA11AI.777"}],
				"pagination":{"pages":1}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(fecSrv.Close)

	ctx := context.Background()
	st := memory.New()
	require.NoError(t, st.Connect(ctx))

	district := 2
	_, err := st.UpsertPolitician(ctx, &models.Politician{
		BioguideID: "M001213", FirstName: "Celeste", LastName: "Maloy",
		FullName: "Celeste Maloy", State: "UT", Party: models.PartyRepublican,
		Chamber: models.ChamberHouse, District: &district, InOffice: true,
	})
	require.NoError(t, err)

	cfg := Config{
		FECAPIKey:    "test-key",
		Cycle:        2024,
		FECBaseURL:   fecSrv.URL,
		RequestDelay: -1,
		NewStore:     sharedStore(st),
	}

	stats, err := cfg.runContributions(ctx)
	require.NoError(t, err)
	assert.Equal(t, "contributions", stats.Pipeline)
	assert.Equal(t, 1, stats.Inserted, "one receipt loaded")

	require.NoError(t, st.Connect(ctx))
	maloy, err := st.GetPolitician(ctx, "M001213")
	require.NoError(t, err)
	assert.Equal(t, "H2UT02133", maloy.FECCandidateID, "resolution ran before the receipt fetch")

	contribution, found := st.GetContribution("fec_777")
	require.True(t, found)
	assert.Empty(t, contribution.BioguideID, "linking has not run yet")

	_, err = cfg.runLinkContributions(ctx)
	require.NoError(t, err)

	contribution, found = st.GetContribution("fec_777")
	require.True(t, found)
	assert.Equal(t, "M001213", contribution.BioguideID)
}

func TestRegistryResolvesFullOrder(t *testing.T) {
	registry, err := NewRegistry(Config{NewStore: sharedStore(memory.New())})
	require.NoError(t, err)

	order, err := registry.Resolve(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"members",
		"bills", "committees", "contacts", "contributions",
		"embeddings", "link-contributions", "votes",
	}, order)
}

func TestBillTypeScope(t *testing.T) {
	assert.Equal(t, defaultBillTypes, Config{}.billTypes())
	assert.Equal(t, []models.BillType{models.BillTypeHRes}, Config{BillType: models.BillTypeHRes}.billTypes())
}
