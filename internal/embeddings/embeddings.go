// Package embeddings enriches stored bills with semantic-search vectors
// computed from their summaries. It runs after the bill sync and only
// touches bills that have a summary but no vector yet, so re-running it is
// cheap and a re-ingested bill keeps its vector until the summary changes.
package embeddings

import (
	"context"

	"google.golang.org/genai"

	"github.com/civicsync/civicsync/pkg/errors"
	"github.com/civicsync/civicsync/pkg/logging"
	"github.com/civicsync/civicsync/pkg/models"
	"github.com/civicsync/civicsync/pkg/store"
)

// DefaultModel is the Gemini embedding model used when none is configured.
const DefaultModel = "text-embedding-004"

// defaultBatchLimit bounds how many bills one run embeds.
const defaultBatchLimit = 100

// Embedder computes an embedding vector for one text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GeminiEmbedder computes embeddings through the Gemini API.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
}

// NewGeminiEmbedder creates an embedder backed by the Gemini API. An empty
// model selects DefaultModel.
func NewGeminiEmbedder(ctx context.Context, apiKey, model string) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, errors.NewConfigError("embeddings", "GEMINI_API_KEY is required", nil)
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  apiKey,
	})
	if err != nil {
		return nil, errors.NewConfigError("embeddings", "creating gemini client", err)
	}
	return &GeminiEmbedder{client: client, model: model}, nil
}

// Embed computes the vector for one text.
func (g *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := g.client.Models.EmbedContent(ctx, g.model, genai.Text(text), nil)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, errors.New("embedding response is empty")
	}
	return resp.Embeddings[0].Values, nil
}

// BillVector pairs a bill with its computed embedding.
type BillVector struct {
	BillID string
	Vector []float32
}

// Bills streams stored bills that still need an embedding.
type Bills struct {
	store store.Store
	limit int
}

// BillsOption configures a Bills fetcher.
type BillsOption func(*Bills)

// WithBatchLimit overrides how many bills one run embeds.
func WithBatchLimit(n int) BillsOption {
	return func(b *Bills) {
		if n > 0 {
			b.limit = n
		}
	}
}

// NewBills creates a fetcher over the store's embedding backlog.
func NewBills(st store.Store, opts ...BillsOption) *Bills {
	b := &Bills{store: st, limit: defaultBatchLimit}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Fetch emits each bill with a summary and no vector, up to the batch limit.
func (b *Bills) Fetch(ctx context.Context, emit func(*models.Bill) error) error {
	bills, err := b.store.BillsMissingEmbeddings(ctx, b.limit)
	if err != nil {
		return err
	}
	logging.Ctx(ctx).Info().Int("bills", len(bills)).Msg("embedding backlog loaded")

	for i := range bills {
		if err := emit(&bills[i]); err != nil {
			return err
		}
	}
	return nil
}

// Transform computes one bill's summary vector. Failures are per-item: one
// quota rejection costs that bill, not the batch. Cancellation still aborts.
func Transform(embedder Embedder) func(ctx context.Context, bill *models.Bill) (*BillVector, error) {
	return func(ctx context.Context, bill *models.Bill) (*BillVector, error) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.ErrCanceled
		}

		vector, err := embedder.Embed(ctx, bill.Summary)
		if err != nil {
			return nil, errors.NewTransformError("embeddings", "embedding bill "+bill.BillID, err)
		}
		return &BillVector{BillID: bill.BillID, Vector: vector}, nil
	}
}

// Loader writes computed vectors back to the store.
func Loader(st store.Store) func(ctx context.Context, v *BillVector) (store.Result, error) {
	return func(ctx context.Context, v *BillVector) (store.Result, error) {
		return st.SetBillEmbedding(ctx, v.BillID, v.Vector)
	}
}
