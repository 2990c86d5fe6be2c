// Package mongo implements the document store on MongoDB. Every write is a
// single atomic UpdateOne/UpdateMany with $set and upsert, keyed by each
// record's natural identifier. The text index on politician/bill name fields
// and the vector index on bill summary embeddings are expected to exist
// server-side; the engine never creates indexes.
package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/civicsync/civicsync/pkg/errors"
	"github.com/civicsync/civicsync/pkg/models"
	"github.com/civicsync/civicsync/pkg/store"
)

// Collection names.
const (
	collPoliticians   = "politicians"
	collLegislation   = "legislation"
	collVotes         = "votes"
	collMemberVotes   = "politician_votes"
	collContributions = "contributions"
	collCommittees    = "committees"
)

// Store is a MongoDB-backed document store. Each Store owns its own client:
// it is created on Connect and released on Close, never shared as ambient
// global state.
type Store struct {
	uri      string
	database string

	client *mongo.Client
	db     *mongo.Database
}

// New creates an unconnected store for the given URI and database name.
func New(uri, database string) *Store {
	return &Store{uri: uri, database: database}
}

// Connect establishes the client connection. Idempotent: a connected store
// is left untouched.
func (s *Store) Connect(ctx context.Context) error {
	if s.client != nil {
		return nil
	}
	if s.uri == "" {
		return errors.NewConfigError("mongo", "MONGODB_URI is not set", nil)
	}
	if s.database == "" {
		return errors.NewConfigError("mongo", "MONGODB_DATABASE is not set", nil)
	}

	client, err := mongo.Connect(options.Client().ApplyURI(s.uri))
	if err != nil {
		return errors.NewConfigError("mongo", "failed to create client", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return errors.NewConfigError("mongo", "failed to reach server", err)
	}

	s.client = client
	s.db = client.Database(s.database)
	return nil
}

// Close releases the client connection. Safe to call when never connected.
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	err := s.client.Disconnect(ctx)
	s.client = nil
	s.db = nil
	return err
}

func (s *Store) collection(name string) (*mongo.Collection, error) {
	if s.db == nil {
		return nil, errors.ErrNotConnected
	}
	return s.db.Collection(name), nil
}

// upsert performs the standard upsert-by-natural-key write and classifies
// the outcome.
func upsert(ctx context.Context, coll *mongo.Collection, filter, doc any) (store.Result, error) {
	res, err := coll.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return store.ResultSkipped, err
	}
	if res.UpsertedCount > 0 {
		return store.ResultInserted, nil
	}
	return store.ResultUpdated, nil
}

// UpsertPolitician inserts or replaces a politician by bioguide ID.
func (s *Store) UpsertPolitician(ctx context.Context, p *models.Politician) (store.Result, error) {
	coll, err := s.collection(collPoliticians)
	if err != nil {
		return store.ResultSkipped, err
	}
	return upsert(ctx, coll, bson.M{"bioguide_id": p.BioguideID}, p)
}

// GetPolitician returns a politician by bioguide ID.
func (s *Store) GetPolitician(ctx context.Context, bioguideID string) (*models.Politician, error) {
	coll, err := s.collection(collPoliticians)
	if err != nil {
		return nil, err
	}

	var p models.Politician
	err = coll.FindOne(ctx, bson.M{"bioguide_id": bioguideID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPoliticians returns politicians matching the filter.
func (s *Store) ListPoliticians(ctx context.Context, filter store.PoliticianFilter) ([]models.Politician, error) {
	coll, err := s.collection(collPoliticians)
	if err != nil {
		return nil, err
	}

	query := bson.M{}
	if filter.State != "" {
		query["state"] = filter.State
	}
	if filter.Chamber != "" {
		query["chamber"] = filter.Chamber
	}
	if filter.District != nil {
		query["district"] = *filter.District
	}
	if filter.InOffice != nil {
		query["in_office"] = *filter.InOffice
	}

	cursor, err := coll.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "bioguide_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []models.Politician
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// VacateHouseSeat flips every other active occupant of the exact House seat
// to in_office=false. A single atomic UpdateMany, issued before the new
// occupant's upsert.
func (s *Store) VacateHouseSeat(ctx context.Context, state string, district int, excludeBioguideID string) (int64, error) {
	coll, err := s.collection(collPoliticians)
	if err != nil {
		return 0, err
	}

	res, err := coll.UpdateMany(ctx,
		bson.M{
			"state":       state,
			"district":    district,
			"chamber":     models.ChamberHouse,
			"in_office":   true,
			"bioguide_id": bson.M{"$ne": excludeBioguideID},
		},
		bson.M{"$set": bson.M{"in_office": false, "last_updated": time.Now().UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// UpdatePoliticianContact applies enrichment-only contact fields, skipping
// (no upsert) when the politician does not exist.
func (s *Store) UpdatePoliticianContact(ctx context.Context, c *models.ContactUpdate) (store.Result, error) {
	coll, err := s.collection(collPoliticians)
	if err != nil {
		return store.ResultSkipped, err
	}

	fields := bson.M{}
	if c.Office != "" {
		fields["office"] = c.Office
	}
	if c.Phone != "" {
		fields["phone"] = c.Phone
	}
	if c.Website != "" {
		fields["website"] = c.Website
	}
	if len(fields) == 0 {
		return store.ResultSkipped, nil
	}
	fields["last_updated"] = time.Now().UTC()

	res, err := coll.UpdateOne(ctx, bson.M{"bioguide_id": c.BioguideID}, bson.M{"$set": fields})
	if err != nil {
		return store.ResultSkipped, err
	}
	if res.MatchedCount == 0 {
		return store.ResultSkipped, nil
	}
	return store.ResultUpdated, nil
}

// SetPoliticianFECID records the FEC candidate id on an existing politician.
func (s *Store) SetPoliticianFECID(ctx context.Context, bioguideID, fecCandidateID string) (store.Result, error) {
	coll, err := s.collection(collPoliticians)
	if err != nil {
		return store.ResultSkipped, err
	}

	res, err := coll.UpdateOne(ctx,
		bson.M{"bioguide_id": bioguideID},
		bson.M{"$set": bson.M{"fec_candidate_id": fecCandidateID, "last_updated": time.Now().UTC()}},
	)
	if err != nil {
		return store.ResultSkipped, err
	}
	if res.MatchedCount == 0 {
		return store.ResultSkipped, nil
	}
	return store.ResultUpdated, nil
}

// UpsertBill inserts or replaces a bill by bill ID. The summary embedding is
// deliberately excluded from $set so a re-ingested bill keeps its computed
// vector.
func (s *Store) UpsertBill(ctx context.Context, b *models.Bill) (store.Result, error) {
	coll, err := s.collection(collLegislation)
	if err != nil {
		return store.ResultSkipped, err
	}

	doc := *b
	doc.SummaryEmbedding = nil
	return upsert(ctx, coll, bson.M{"bill_id": b.BillID}, &doc)
}

// SetBillEmbedding stores the semantic-search vector for a bill.
func (s *Store) SetBillEmbedding(ctx context.Context, billID string, embedding []float32) (store.Result, error) {
	coll, err := s.collection(collLegislation)
	if err != nil {
		return store.ResultSkipped, err
	}

	res, err := coll.UpdateOne(ctx,
		bson.M{"bill_id": billID},
		bson.M{"$set": bson.M{"summary_embedding": embedding, "last_updated": time.Now().UTC()}},
	)
	if err != nil {
		return store.ResultSkipped, err
	}
	if res.MatchedCount == 0 {
		return store.ResultSkipped, nil
	}
	return store.ResultUpdated, nil
}

// BillsMissingEmbeddings returns up to limit bills that have a summary but
// no embedding yet.
func (s *Store) BillsMissingEmbeddings(ctx context.Context, limit int) ([]models.Bill, error) {
	coll, err := s.collection(collLegislation)
	if err != nil {
		return nil, err
	}

	query := bson.M{
		"summary":           bson.M{"$exists": true, "$ne": ""},
		"summary_embedding": bson.M{"$exists": false},
	}
	opts := options.Find().SetSort(bson.D{{Key: "bill_id", Value: 1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}

	cursor, err := coll.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	var out []models.Bill
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertVote inserts or replaces a vote by vote ID.
func (s *Store) UpsertVote(ctx context.Context, v *models.Vote) (store.Result, error) {
	coll, err := s.collection(collVotes)
	if err != nil {
		return store.ResultSkipped, err
	}
	return upsert(ctx, coll, bson.M{"vote_id": v.VoteID}, v)
}

// UpsertMemberVote inserts or replaces a member's position by the composite
// (vote_id, bioguide_id) key.
func (s *Store) UpsertMemberVote(ctx context.Context, mv *models.MemberVote) (store.Result, error) {
	coll, err := s.collection(collMemberVotes)
	if err != nil {
		return store.ResultSkipped, err
	}
	return upsert(ctx, coll, bson.M{"vote_id": mv.VoteID, "bioguide_id": mv.BioguideID}, mv)
}

// UpsertContribution inserts or replaces a contribution by derived ID. The
// decimal amount is stored as a float64 document field.
func (s *Store) UpsertContribution(ctx context.Context, c *models.Contribution) (store.Result, error) {
	coll, err := s.collection(collContributions)
	if err != nil {
		return store.ResultSkipped, err
	}

	doc := bson.M{
		"id":                 c.ID,
		"recipient_name":     c.RecipientName,
		"bioguide_id":        c.BioguideID,
		"candidate_id":       c.CandidateID,
		"committee_id":       c.CommitteeID,
		"contributor_name":   c.ContributorName,
		"contributor_type":   c.ContributorType,
		"contributor_state":  c.ContributorState,
		"contributor_city":   c.ContributorCity,
		"contributor_zip":    c.ContributorZip,
		"amount":             c.Amount.InexactFloat64(),
		"cycle":              c.Cycle,
		"source":             c.Source,
		"fec_transaction_id": c.FECTransactionID,
		"last_updated":       c.LastUpdated,
	}
	if c.ContributorEmployer != "" {
		doc["contributor_employer"] = c.ContributorEmployer
	}
	if c.ContributorOccupation != "" {
		doc["contributor_occupation"] = c.ContributorOccupation
	}
	if c.Date != nil {
		doc["contribution_date"] = *c.Date
	}

	return upsert(ctx, coll, bson.M{"id": c.ID}, doc)
}

// LinkContributionsByCandidateID populates the bioguide weak reference on
// contributions whose FEC candidate id matches a politician's recorded one.
func (s *Store) LinkContributionsByCandidateID(ctx context.Context) (int64, error) {
	politicians, err := s.collection(collPoliticians)
	if err != nil {
		return 0, err
	}
	contributions, err := s.collection(collContributions)
	if err != nil {
		return 0, err
	}

	cursor, err := politicians.Find(ctx,
		bson.M{"fec_candidate_id": bson.M{"$exists": true, "$ne": ""}},
		options.Find().SetProjection(bson.M{"bioguide_id": 1, "fec_candidate_id": 1}),
	)
	if err != nil {
		return 0, err
	}

	var refs []struct {
		BioguideID     string `bson:"bioguide_id"`
		FECCandidateID string `bson:"fec_candidate_id"`
	}
	if err := cursor.All(ctx, &refs); err != nil {
		return 0, err
	}

	var linked int64
	for _, ref := range refs {
		res, err := contributions.UpdateMany(ctx,
			bson.M{
				"candidate_id": ref.FECCandidateID,
				"$or": bson.A{
					bson.M{"bioguide_id": ""},
					bson.M{"bioguide_id": bson.M{"$exists": false}},
				},
			},
			bson.M{"$set": bson.M{"bioguide_id": ref.BioguideID, "last_updated": time.Now().UTC()}},
		)
		if err != nil {
			return linked, err
		}
		linked += res.ModifiedCount
	}
	return linked, nil
}

// UpsertCommittee inserts or replaces a committee by code.
func (s *Store) UpsertCommittee(ctx context.Context, c *models.Committee) (store.Result, error) {
	coll, err := s.collection(collCommittees)
	if err != nil {
		return store.ResultSkipped, err
	}
	return upsert(ctx, coll, bson.M{"code": c.Code}, c)
}

var _ store.Store = (*Store)(nil)
