package fec

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicsync/civicsync/internal/loaders"
	"github.com/civicsync/civicsync/internal/transport"
	"github.com/civicsync/civicsync/pkg/errors"
	"github.com/civicsync/civicsync/pkg/models"
	"github.com/civicsync/civicsync/pkg/store/memory"
)

func testClient(t *testing.T, handler http.Handler) *transport.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return transport.New("fec",
		transport.WithBaseURL(srv.URL),
		transport.WithAuth(&transport.QueryAuth{Param: "api_key"}, "test-key"),
	)
}

func receipt(subID string, amount float64) map[string]any {
	return map[string]any{
		"sub_id":                      json.Number(subID),
		"committee_id":                "C00999",
		"candidate_id":                "S2UT00106",
		"entity_type":                 "IND",
		"contributor_name":            "SMITH, JOHN",
		"contributor_state":           "utah",
		"contribution_receipt_date":   "2024-03-15T00:00:00",
		"contribution_receipt_amount": amount,
		"two_year_transaction_period": 2024,
		"transaction_id":              "SA11AI.1234",
	}
}

func TestContributionsFetchFollowsPagination(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/schedules/schedule_a/", r.URL.Path)
		assert.Equal(t, "S2UT00106", r.URL.Query().Get("candidate_id"))
		assert.Equal(t, "2024", r.URL.Query().Get("two_year_transaction_period"))

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results":    []map[string]any{receipt(strconv.Itoa(1000+page), 250)},
			"pagination": map[string]any{"pages": 3},
		})
	})

	c := NewContributions(testClient(t, handler), 2024,
		ForCandidate("S2UT00106"),
	)
	c.candidateName = "LEE, MIKE" // skip the lookup request

	var got []*ReceiptRecord
	err := c.Fetch(context.Background(), func(r *ReceiptRecord) error {
		got = append(got, r)
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, got, 3, "stops at pagination.pages")
	assert.Equal(t, "LEE, MIKE", got[0].CandidateName, "cached candidate name fills the gap")
}

func TestContributionsFetchMaxPages(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results":    []map[string]any{receipt("1", 10)},
			"pagination": map[string]any{"pages": 100},
		})
	})

	c := NewContributions(testClient(t, handler), 2024,
		ForCommittee("C00999"),
		WithMaxPages(2),
	)

	var count int
	err := c.Fetch(context.Background(), func(_ *ReceiptRecord) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestContributionsFetchRequiresScope(t *testing.T) {
	c := NewContributions(testClient(t, http.NotFoundHandler()), 2024)
	err := c.Fetch(context.Background(), func(_ *ReceiptRecord) error { return nil })
	assert.True(t, errors.IsConfig(err))
}

func TestTransformReceipt(t *testing.T) {
	raw := &ReceiptRecord{
		SubID:                     json.Number("4032220241234567890"),
		CommitteeID:               "C00999",
		CandidateID:               "S2UT00106",
		CandidateName:             "LEE, MIKE",
		EntityType:                "IND",
		ContributorName:           "SMITH, JOHN",
		ContributorEmployer:       "ACME",
		ContributorOccupation:     "ENGINEER",
		ContributorCity:           "PROVO",
		ContributorState:          "utah",
		ContributorZip:            "84601",
		ContributionReceiptDate:   "2024-03-15T00:00:00",
		ContributionReceiptAmount: json.Number("250.75"),
		TwoYearTransactionPeriod:  2024,
		TransactionID:             "SA11AI.1234",
	}

	c, err := TransformReceipt(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, "fec_4032220241234567890", c.ID)
	assert.Equal(t, models.ContributorIndividual, c.ContributorType)
	assert.True(t, c.Amount.Equal(decimal.RequireFromString("250.75")))
	assert.Equal(t, "UT", c.ContributorState, "contributor state is normalized")
	assert.Equal(t, "2024", c.Cycle)
	assert.Equal(t, "fec", c.Source)
	require.NotNil(t, c.Date)
	assert.Equal(t, "2024-03-15", c.Date.Format("2006-01-02"))
	require.NoError(t, c.Validate())
}

func TestTransformReceiptMissingAmountBecomesZero(t *testing.T) {
	raw := &ReceiptRecord{
		SubID:           json.Number("99"),
		CandidateName:   "LEE, MIKE",
		ContributorName: "DOE, JANE",
		EntityType:      "IND",
	}

	c, err := TransformReceipt(context.Background(), raw)
	require.NoError(t, err)
	assert.True(t, c.Amount.IsZero())
}

func TestTransformReceiptFallbackID(t *testing.T) {
	raw := &ReceiptRecord{
		LineNumber:      "11AI",
		FileNumber:      json.Number("1711606"),
		ContributorName: "DOE, JANE",
		EntityType:      "IND",
	}

	c, err := TransformReceipt(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "fec_11AI_1711606", c.ID)

	_, err = TransformReceipt(context.Background(), &ReceiptRecord{ContributorName: "X"})
	assert.Error(t, err, "a receipt without any identifier cannot be keyed")
}

func TestContributionTypeMapping(t *testing.T) {
	tests := []struct {
		entity string
		want   models.ContributionType
	}{
		{"IND", models.ContributorIndividual},
		{"PAC", models.ContributorPAC},
		{"COM", models.ContributorPAC},
		{"PTY", models.ContributorParty},
		{"CAN", models.ContributorCandidate},
		{"ORG", models.ContributorOther},
		{"", models.ContributorOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, contributionType(tt.entity), tt.entity)
	}
}

func TestCandidatesResolveInOfficePoliticians(t *testing.T) {
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

	// Already-resolved politicians are not searched again.
	_, err = st.UpsertPolitician(ctx, &models.Politician{
		BioguideID: "L000577", FirstName: "Mike", LastName: "Lee",
		FullName: "Mike Lee", State: "UT", Party: models.PartyRepublican,
		Chamber: models.ChamberSenate, InOffice: true, FECCandidateID: "S2UT00106",
	})
	require.NoError(t, err)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/candidates/search/", r.URL.Path)
		assert.Equal(t, "Maloy, Celeste", r.URL.Query().Get("q"))
		assert.Equal(t, "H", r.URL.Query().Get("office"))
		_, _ = w.Write([]byte(`{"results":[
			{"candidate_id":"H2TX00000","state":"TX"},
			{"candidate_id":"H2UT02133","state":"UT"}]}`))
	})

	c := NewCandidates(testClient(t, handler), st)

	var matches []*loaders.CandidateMatch
	err = c.Fetch(ctx, func(m *loaders.CandidateMatch) error {
		matches = append(matches, m)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "M001213", matches[0].BioguideID)
	assert.Equal(t, "H2UT02133", matches[0].FECCandidateID, "state must agree")
}
