package congress

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicsync/civicsync/pkg/models"
)

func TestBillsFetchPaginatesUntil404(t *testing.T) {
	// Two pages of one bill each, then a 404 terminator.
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bill/119/hr":
			offset := r.URL.Query().Get("offset")
			switch offset {
			case "0":
				_, _ = fmt.Fprintf(w, `{"bills":[{"url":"%s"}]}`, "http://"+r.Host+"/detail/1")
			case "1":
				_, _ = fmt.Fprintf(w, `{"bills":[{"url":"%s"}]}`, "http://"+r.Host+"/detail/2")
			default:
				http.NotFound(w, r)
			}
		case "/detail/1", "/detail/2":
			number := r.URL.Path[len("/detail/"):]
			_, _ = fmt.Fprintf(w, `{"bill":{"type":"HR","number":"%s","congress":119,
				"title":"An Act %s","latestAction":{"actionDate":"2025-03-01","text":"Referred to committee."}}}`,
				number, number)
		default:
			http.NotFound(w, r)
		}
	})

	b := NewBills(testClient(t, handler), 119, models.BillTypeHR, WithBillsPageLimit(1))

	var got []*BillRecord
	err := b.Fetch(context.Background(), func(r *BillRecord) error {
		got = append(got, r)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "An Act 1", got[0].Title)
	assert.Equal(t, "An Act 2", got[1].Title)
}

func TestBillsFetchRespectsMaxItems(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bill/119/s" {
			var bills []map[string]string
			for i := 1; i <= 5; i++ {
				bills = append(bills, map[string]string{"url": fmt.Sprintf("http://%s/detail/%d", r.Host, i)})
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"bills": bills})
			return
		}
		_, _ = fmt.Fprint(w, `{"bill":{"type":"S","number":1,"congress":119,"title":"T",
			"latestAction":{"text":"Introduced in Senate"}}}`)
	})

	b := NewBills(testClient(t, handler), 119, models.BillTypeS, WithBillsMaxItems(2))

	var count int
	err := b.Fetch(context.Background(), func(_ *BillRecord) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestBillsFetchSkipsFailedDetail(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bill/119/hr":
			if r.URL.Query().Get("offset") != "0" {
				http.NotFound(w, r)
				return
			}
			_, _ = fmt.Fprintf(w, `{"bills":[{"url":"http://%s/broken"},{"url":"http://%s/ok"}]}`, r.Host, r.Host)
		case "/ok":
			_, _ = fmt.Fprint(w, `{"bill":{"type":"HR","number":"7","congress":119,"title":"Works",
				"latestAction":{"text":"Introduced in House"}}}`)
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	})

	b := NewBills(testClient(t, handler), 119, models.BillTypeHR)

	var got []*BillRecord
	err := b.Fetch(context.Background(), func(r *BillRecord) error {
		got = append(got, r)
		return nil
	})
	require.NoError(t, err, "a failed detail drops one bill, not the batch")
	require.Len(t, got, 1)
	assert.Equal(t, "Works", got[0].Title)
}

func TestTransformBill(t *testing.T) {
	raw := &BillRecord{
		Type:           "HR",
		Number:         json.Number("1234"),
		Congress:       119,
		Title:          "Example Act",
		IntroducedDate: "2025-01-15",
		URL:            "https://api.congress.gov/v3/bill/119/hr/1234",
	}
	raw.LatestAction.ActionDate = "2025-02-20"
	raw.LatestAction.Text = "Passed House by voice vote."
	raw.Sponsors = []struct {
		BioguideID string `json:"bioguideId"`
	}{{BioguideID: "M001213"}}
	raw.Summaries.BillSummaries = []struct {
		Text string `json:"text"`
	}{{Text: "A bill to do examples."}}

	bill, err := TransformBill(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, "hr-1234-119", bill.BillID)
	assert.Equal(t, models.BillTypeHR, bill.BillType)
	assert.Equal(t, 1234, bill.Number)
	assert.Equal(t, models.StatusPassedHouse, bill.Status)
	assert.Equal(t, "M001213", bill.SponsorBioguideID)
	assert.Equal(t, "A bill to do examples.", bill.Summary)
	require.NotNil(t, bill.IntroducedDate)
	assert.Equal(t, "2025-01-15", bill.IntroducedDate.Format("2006-01-02"))
	require.NoError(t, bill.Validate())
}

func TestTransformBillRejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name string
		raw  *BillRecord
	}{
		{"unknown type", &BillRecord{Type: "treaty", Number: "1", Congress: 119}},
		{"bad number", &BillRecord{Type: "hr", Number: "abc", Congress: 119}},
		{"missing congress", &BillRecord{Type: "hr", Number: "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TransformBill(context.Background(), tt.raw)
			assert.Error(t, err)
		})
	}
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		action string
		want   models.BillStatus
	}{
		{"Became Public Law No: 119-21.", models.StatusBecameLaw},
		{"Signed by President.", models.StatusBecameLaw},
		{"Passed Senate after having Passed House.", models.StatusToPresident},
		{"Passed Senate with an amendment by Yea-Nay Vote.", models.StatusPassedSenate},
		{"On passage Passed House by recorded vote.", models.StatusPassedHouse},
		{"Vetoed by President.", models.StatusVetoed},
		{"Referred to the Committee on the Judiciary.", models.StatusInCommittee},
		{"Read twice.", models.StatusIntroduced},
		{"", models.StatusIntroduced},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			assert.Equal(t, tt.want, deriveStatus(tt.action))
		})
	}
}
