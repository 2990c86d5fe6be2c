package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/civicsync/civicsync/pkg/errors"
)

func validConfig() *Config {
	return &Config{
		CongressAPIKey: "congress-key",
		FECAPIKey:      "fec-key",
		GeminiAPIKey:   "gemini-key",
		Store:          StoreMongo,
		MongoURI:       "mongodb://localhost:27017",
		MongoDatabase:  "civicsync",
	}
}

func TestValidateFor(t *testing.T) {
	allPipelines := []string{
		"members", "bills", "committees", "contacts",
		"contributions", "votes", "embeddings", "link-contributions",
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		pipelines []string
		wantErr   string
	}{
		{
			name:      "complete config passes",
			mutate:    func(_ *Config) {},
			pipelines: allPipelines,
		},
		{
			name:      "congress key required for members",
			mutate:    func(c *Config) { c.CongressAPIKey = "" },
			pipelines: []string{"members"},
			wantErr:   "CONGRESS_GOV_API_KEY",
		},
		{
			name:      "congress key not required for contacts-only run",
			mutate:    func(c *Config) { c.CongressAPIKey = "" },
			pipelines: []string{"contacts"},
		},
		{
			name:      "fec key required for contributions",
			mutate:    func(c *Config) { c.FECAPIKey = "" },
			pipelines: []string{"contributions"},
			wantErr:   "FEC_API_KEY",
		},
		{
			name:      "fec key required for linking",
			mutate:    func(c *Config) { c.FECAPIKey = "" },
			pipelines: []string{"link-contributions"},
			wantErr:   "FEC_API_KEY",
		},
		{
			name:      "gemini key required for embeddings",
			mutate:    func(c *Config) { c.GeminiAPIKey = "" },
			pipelines: []string{"embeddings"},
			wantErr:   "GEMINI_API_KEY",
		},
		{
			name:      "mongo uri required for mongo store",
			mutate:    func(c *Config) { c.MongoURI = "" },
			pipelines: []string{"contacts"},
			wantErr:   "MONGODB_URI",
		},
		{
			name: "memory store needs no uri",
			mutate: func(c *Config) {
				c.Store = StoreMemory
				c.MongoURI = ""
			},
			pipelines: allPipelines,
		},
		{
			name:      "unknown store rejected",
			mutate:    func(c *Config) { c.Store = "postgres" },
			pipelines: []string{"members"},
			wantErr:   "unknown store",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateFor(tt.pipelines)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.IsConfig(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCurrentCongress(t *testing.T) {
	tests := []struct {
		date string
		want int
	}{
		{"2025-06-01", 119},
		{"2026-08-23", 119},
		{"2027-01-02", 119}, // new Congress convenes January 3
		{"2027-01-03", 120},
		{"2028-06-01", 120},
	}
	for _, tt := range tests {
		now, err := time.Parse("2006-01-02", tt.date)
		assert.NoError(t, err)
		assert.Equal(t, tt.want, currentCongress(now), tt.date)
	}
}

func TestCurrentCycle(t *testing.T) {
	tests := []struct {
		date string
		want int
	}{
		{"2024-03-01", 2024},
		{"2025-03-01", 2026},
		{"2026-08-23", 2026},
	}
	for _, tt := range tests {
		now, err := time.Parse("2006-01-02", tt.date)
		assert.NoError(t, err)
		assert.Equal(t, tt.want, currentCycle(now), tt.date)
	}
}
