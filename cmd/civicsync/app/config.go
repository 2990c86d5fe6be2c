package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/civicsync/civicsync/pkg/errors"
)

// Store backends.
const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// Config holds the application configuration loaded from flags, environment
// variables, .env files, and an optional config file.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool

	// Config file
	ConfigFile string

	// Source credentials
	CongressAPIKey string
	FECAPIKey      string
	GeminiAPIKey   string

	// Store
	Store         string
	MongoURI      string
	MongoDatabase string

	// Sync scope defaults (overridable per command)
	Congress   int
	Cycle      int
	EmbedModel string

	// Logging
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// command-line flags (applied later by cobra), environment variables, .env
// files, the config file (~/.civicsync.yaml), and defaults.
func LoadConfig() (*Config, error) {
	loadEnvFiles()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	bindAPIKeys()

	configFile := viper.GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.AddConfigPath(".")
			viper.SetConfigType("yaml")
			viper.SetConfigName(".civicsync")
		}
	}

	// Missing config file is fine; env and flags cover everything.
	_ = viper.ReadInConfig()

	config := &Config{
		Verbose: viper.GetBool("verbose"),
		Quiet:   viper.GetBool("quiet"),
		NoColor: viper.GetBool("no-color"),

		ConfigFile: viper.ConfigFileUsed(),

		CongressAPIKey: viper.GetString("CONGRESS_GOV_API_KEY"),
		FECAPIKey:      viper.GetString("FEC_API_KEY"),
		GeminiAPIKey:   viper.GetString("GEMINI_API_KEY"),

		Store:         getEnvOrDefault("CIVICSYNC_STORE", StoreMongo),
		MongoURI:      viper.GetString("MONGODB_URI"),
		MongoDatabase: getEnvOrDefault("MONGODB_DATABASE", "civicsync"),

		Congress:   viper.GetInt("congress"),
		Cycle:      viper.GetInt("cycle"),
		EmbedModel: viper.GetString("embed_model"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", ""),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}

	if config.Congress == 0 {
		config.Congress = currentCongress(time.Now())
	}
	if config.Cycle == 0 {
		config.Cycle = currentCycle(time.Now())
	}

	return config, nil
}

// ValidateFor checks that the credentials the given pipelines need are
// present. Called after the run plan is resolved so a scoped run never
// demands keys it will not use.
func (c *Config) ValidateFor(pipelines []string) error {
	needs := make(map[string]bool, len(pipelines))
	for _, name := range pipelines {
		needs[name] = true
	}

	if c.CongressAPIKey == "" &&
		(needs["members"] || needs["bills"] || needs["committees"] || needs["votes"]) {
		return errors.NewConfigError("config", "CONGRESS_GOV_API_KEY is required", nil)
	}
	if c.FECAPIKey == "" && (needs["contributions"] || needs["link-contributions"]) {
		return errors.NewConfigError("config", "FEC_API_KEY is required for contribution pipelines", nil)
	}
	if c.GeminiAPIKey == "" && needs["embeddings"] {
		return errors.NewConfigError("config", "GEMINI_API_KEY is required for the embeddings pipeline", nil)
	}

	switch c.Store {
	case StoreMongo:
		if c.MongoURI == "" {
			return errors.NewConfigError("config", "MONGODB_URI is required for the mongo store", nil)
		}
	case StoreMemory:
	default:
		return errors.NewConfigError("config", fmt.Sprintf("unknown store backend %q", c.Store), nil)
	}
	return nil
}

// currentCongress derives the Congress number from a date. The 119th
// Congress convened January 3, 2025; a new one convenes every two years.
func currentCongress(now time.Time) int {
	year := now.Year()
	if year%2 == 1 && now.Month() == time.January && now.Day() < 3 {
		year--
	}
	return (year-1789)/2 + 1
}

// currentCycle returns the two-year election cycle containing the date.
func currentCycle(now time.Time) int {
	year := now.Year()
	if year%2 != 0 {
		year++
	}
	return year
}

// loadEnvFiles loads environment variables from .env files. .env.local
// overrides .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}

// bindAPIKeys explicitly binds credential environment variables to Viper.
func bindAPIKeys() {
	keys := []string{
		"CONGRESS_GOV_API_KEY",
		"FEC_API_KEY",
		"GEMINI_API_KEY",
		"MONGODB_URI",
	}
	for _, key := range keys {
		if err := viper.BindEnv(key); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind environment variable %s: %v\n", key, err)
		}
	}
}

// getEnvOrDefault returns the environment variable value or the default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
