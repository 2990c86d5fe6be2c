package loaders

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicsync/civicsync/pkg/errors"
	"github.com/civicsync/civicsync/pkg/models"
	"github.com/civicsync/civicsync/pkg/store"
	"github.com/civicsync/civicsync/pkg/store/memory"
)

func newStore(t *testing.T) *memory.Store {
	t.Helper()
	st := memory.New()
	require.NoError(t, st.Connect(context.Background()))
	return st
}

func houseMember(bioguide, state string, district int) *models.Politician {
	return &models.Politician{
		BioguideID: bioguide,
		FullName:   "Member " + bioguide,
		State:      state,
		Party:      models.PartyDemocrat,
		Chamber:    models.ChamberHouse,
		District:   &district,
		InOffice:   true,
	}
}

func TestSuccessiveHouseMembersLeaveOneActiveOccupant(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	l := NewPoliticians(st)

	// The incumbent wins the seat first.
	res, err := l.Load(ctx, houseMember("A000001", "UT", 1))
	require.NoError(t, err)
	assert.Equal(t, store.ResultInserted, res)

	// Then a successor is synced for the same seat.
	res, err = l.Load(ctx, houseMember("B000002", "UT", 1))
	require.NoError(t, err)
	assert.Equal(t, store.ResultInserted, res)

	inOffice := true
	active, err := st.ListPoliticians(ctx, store.PoliticianFilter{State: "UT", InOffice: &inOffice})
	require.NoError(t, err)
	require.Len(t, active, 1, "exactly one active occupant per House seat")
	assert.Equal(t, "B000002", active[0].BioguideID)

	// The predecessor is retained, flipped out of office.
	prev, err := st.GetPolitician(ctx, "A000001")
	require.NoError(t, err)
	assert.False(t, prev.InOffice)
}

func TestRepeatedSyncOfSameMemberIsStable(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	l := NewPoliticians(st)

	member := houseMember("A000001", "UT", 1)

	res, err := l.Load(ctx, member)
	require.NoError(t, err)
	assert.Equal(t, store.ResultInserted, res)

	res, err = l.Load(ctx, member)
	require.NoError(t, err)
	assert.Equal(t, store.ResultUpdated, res)

	got, err := st.GetPolitician(ctx, "A000001")
	require.NoError(t, err)
	assert.True(t, got.InOffice, "a member must not vacate their own seat")
}

func TestSenateSeatsAreNeverAutoVacated(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	l := NewPoliticians(st)

	first := &models.Politician{
		BioguideID: "S000001", FullName: "Senator One", State: "UT",
		Party: models.PartyRepublican, Chamber: models.ChamberSenate, InOffice: true,
	}
	second := &models.Politician{
		BioguideID: "S000002", FullName: "Senator Two", State: "UT",
		Party: models.PartyRepublican, Chamber: models.ChamberSenate, InOffice: true,
	}

	_, err := l.Load(ctx, first)
	require.NoError(t, err)
	_, err = l.Load(ctx, second)
	require.NoError(t, err)

	inOffice := true
	active, err := st.ListPoliticians(ctx, store.PoliticianFilter{State: "UT", InOffice: &inOffice})
	require.NoError(t, err)
	assert.Len(t, active, 2, "a state seats two senators")
}

func TestPoliticianValidationFailureIsLoadError(t *testing.T) {
	st := newStore(t)
	l := NewPoliticians(st)

	invalid := houseMember("A000001", "UT", 1)
	invalid.District = nil // house member without a district

	res, err := l.Load(context.Background(), invalid)
	assert.Error(t, err)
	assert.Equal(t, store.ResultSkipped, res)
	assert.Zero(t, st.Counts()["politicians"])
}

func TestPoliticianUnknownStateCodeIsRejected(t *testing.T) {
	st := newStore(t)
	l := NewPoliticians(st)

	// Shaped like a code but not a jurisdiction.
	bogus := houseMember("A000001", "ZZ", 1)

	res, err := l.Load(context.Background(), bogus)
	assert.True(t, errors.IsValidationError(err))
	assert.Equal(t, store.ResultSkipped, res)
	assert.Zero(t, st.Counts()["politicians"])
}

func TestVoteLoaderWritesVoteAndPositions(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	l := NewVotes(st)

	rec := &VoteRecord{
		Vote: models.Vote{
			VoteID:     models.VoteID(models.ChamberHouse, 17, 119),
			Chamber:    models.ChamberHouse,
			Congress:   119,
			Session:    1,
			RollNumber: 17,
			Question:   "On Passage",
			Result:     "Passed",
			YeaCount:   220,
			NayCount:   210,
		},
		Positions: []models.MemberVote{
			{VoteID: "house-roll-17-119", BioguideID: "A000001", Position: models.PositionYea},
			{VoteID: "house-roll-17-119", BioguideID: "B000002", Position: models.PositionNay},
		},
	}

	res, err := l.Load(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, store.ResultInserted, res)
	assert.Equal(t, 1, st.Counts()["votes"])
	assert.Equal(t, 2, st.Counts()["member_votes"])

	mv, found := st.GetMemberVote("house-roll-17-119", "B000002")
	require.True(t, found)
	assert.Equal(t, models.PositionNay, mv.Position)
}

func TestVoteLoaderRejectedPositionDoesNotDropOthers(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	l := NewVotes(st)

	rec := &VoteRecord{
		Vote: models.Vote{
			VoteID: "house-roll-18-119", Chamber: models.ChamberHouse,
			Congress: 119, Session: 1, RollNumber: 18,
		},
		Positions: []models.MemberVote{
			{VoteID: "house-roll-18-119", BioguideID: "", Position: models.PositionYea}, // rejected
			{VoteID: "house-roll-18-119", BioguideID: "B000002", Position: models.PositionYea},
		},
	}

	_, err := l.Load(ctx, rec)
	assert.Error(t, err, "the roll call counts as one errored item")

	_, found := st.GetMemberVote("house-roll-18-119", "B000002")
	assert.True(t, found, "valid positions still load")
}

func TestContactLoaderEnrichmentOnly(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	l := NewContacts(st)

	// Unknown politician: skip, never create.
	res, err := l.Load(ctx, &models.ContactUpdate{BioguideID: "Z999999", Phone: "202-225-0001"})
	require.NoError(t, err)
	assert.Equal(t, store.ResultSkipped, res)
	assert.Zero(t, st.Counts()["politicians"])

	// Known politician: fields applied.
	_, err = st.UpsertPolitician(ctx, houseMember("A000001", "UT", 1))
	require.NoError(t, err)

	res, err = l.Load(ctx, &models.ContactUpdate{BioguideID: "A000001", Phone: "202-225-0001"})
	require.NoError(t, err)
	assert.Equal(t, store.ResultUpdated, res)

	got, err := st.GetPolitician(ctx, "A000001")
	require.NoError(t, err)
	assert.Equal(t, "202-225-0001", got.Phone)
}

func TestContactLoaderEmptyUpdateSkips(t *testing.T) {
	st := newStore(t)
	l := NewContacts(st)

	res, err := l.Load(context.Background(), &models.ContactUpdate{BioguideID: "A000001"})
	require.NoError(t, err)
	assert.Equal(t, store.ResultSkipped, res)
}

func TestCandidateLoaderSetsFECID(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	l := NewCandidates(st)

	_, err := st.UpsertPolitician(ctx, houseMember("A000001", "UT", 1))
	require.NoError(t, err)

	res, err := l.Load(ctx, &CandidateMatch{BioguideID: "A000001", FECCandidateID: "H2UT01234"})
	require.NoError(t, err)
	assert.Equal(t, store.ResultUpdated, res)

	got, err := st.GetPolitician(ctx, "A000001")
	require.NoError(t, err)
	assert.Equal(t, "H2UT01234", got.FECCandidateID)

	// Unknown politician skips.
	res, err = l.Load(ctx, &CandidateMatch{BioguideID: "Z999999", FECCandidateID: "H2UT09999"})
	require.NoError(t, err)
	assert.Equal(t, store.ResultSkipped, res)
}
