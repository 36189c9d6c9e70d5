// Package config holds the tool's settings: a JSON file layered over
// built-in defaults, overridden by the environment, validated on load and
// written back atomically on save.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/letmevibethatforyou/kwsearch/google"
)

// ErrInvalid marks configuration values that fail validation.
var ErrInvalid = errors.New("invalid configuration")

// Search providers.
const (
	ProviderGoogle   = "google"
	ProviderAlgolia  = "algolia"
	ProviderInMemory = "inmemory"
)

// Output formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Config is the complete set of settings.
type Config struct {
	GoogleAPI GoogleAPI `json:"google_api"`
	Algolia   Algolia   `json:"algolia"`
	Output    Output    `json:"output"`
	Logging   Logging   `json:"logging"`
	Search    Search    `json:"search"`
	Metrics   Metrics   `json:"metrics"`
}

type GoogleAPI struct {
	APIKey               string `json:"api_key"`
	CustomSearchEngineID string `json:"custom_search_engine_id"`
	// SecretARN names an AWS Secrets Manager secret holding the credentials.
	// It takes precedence over the inline values.
	SecretARN string `json:"secret_arn,omitempty"`
	// Endpoint overrides the API base URL.
	Endpoint string `json:"endpoint,omitempty" validate:"omitempty,url"`
}

type Algolia struct {
	AppID  string `json:"app_id,omitempty"`
	APIKey string `json:"api_key,omitempty"`
	// Index is searched when the algolia provider is selected.
	Index string `json:"index,omitempty"`
}

type Output struct {
	Directory      string `json:"directory" validate:"required"`
	FilenamePrefix string `json:"filename_prefix" validate:"required"`
	Format         string `json:"format" validate:"oneof=csv json"`
	// DynamoDBTable, when set, receives every result as an item.
	DynamoDBTable string `json:"dynamodb_table,omitempty"`
	// AlgoliaIndex, when set, receives every result as an object.
	AlgoliaIndex string `json:"algolia_index,omitempty"`
}

type Logging struct {
	Level         string `json:"level"`
	FilePath      string `json:"file_path"`
	ConsoleOutput bool   `json:"console_output"`
}

type Search struct {
	Provider   string  `json:"provider" validate:"oneof=google algolia inmemory"`
	RetryCount int     `json:"retry_count" validate:"min=0,max=10"`
	RetryDelay float64 `json:"retry_delay" validate:"gte=0.1,lte=60"`
	Timeout    int     `json:"timeout" validate:"min=1,max=60"`
	// Num is the number of results requested per keyword.
	Num int `json:"num" validate:"min=1,max=10"`
	// Delay is the pause between keywords in seconds.
	Delay        float64 `json:"delay" validate:"gte=0,lte=60"`
	LR           string  `json:"lr"`
	Safe         string  `json:"safe" validate:"omitempty,oneof=active off"`
	GL           string  `json:"gl"`
	HL           string  `json:"hl"`
	DateRestrict string  `json:"dateRestrict,omitempty"`
}

type Metrics struct {
	// PushgatewayURL, when set, receives batch metrics after each run.
	PushgatewayURL string `json:"pushgateway_url,omitempty" validate:"omitempty,url"`
	Job            string `json:"job,omitempty"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Output: Output{
			Directory:      "output",
			FilenamePrefix: "search_results",
			Format:         FormatCSV,
		},
		Logging: Logging{
			Level:         "INFO",
			FilePath:      "logs/search.log",
			ConsoleOutput: true,
		},
		Search: Search{
			Provider:   ProviderGoogle,
			RetryCount: 3,
			RetryDelay: 1.0,
			Timeout:    10,
			Num:        1,
			Delay:      1.0,
			LR:         "lang_ja",
			Safe:       "off",
			GL:         "jp",
			HL:         "ja",
		},
		Metrics: Metrics{
			Job: "kwsearch",
		},
	}
}

// DefaultPath returns <user config dir>/kwsearch/config.json, or
// config.json in the working directory when no user config dir is known.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.json"
	}
	return filepath.Join(dir, "kwsearch", "config.json")
}

// Load reads the file at path over the defaults, applies .env and
// environment overrides and validates the result. A missing file is not an
// error.
func Load(path string) (*Config, error) {
	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}

	loadDotEnv(filepath.Join(filepath.Dir(path), ".env"), ".env")

	return withEnv(cfg)
}

// loadFile returns the defaults overlaid with the file contents. Keys absent
// from the file keep their default values.
func loadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	}

	if err := sonic.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config file %s", path)
	}

	return cfg, nil
}

// loadDotEnv loads the first files that exist. Variables already present in
// the environment win.
func loadDotEnv(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

type envBinding struct {
	name string
	set  func(c *Config, v string) error
}

func str(dst func(c *Config) *string) func(c *Config, v string) error {
	return func(c *Config, v string) error {
		*dst(c) = v
		return nil
	}
}

func integer(name string, dst func(c *Config) *int) func(c *Config, v string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return errors.Mark(errors.Newf("%s must be an integer, got %q", name, v), ErrInvalid)
		}
		*dst(c) = n
		return nil
	}
}

func float(name string, dst func(c *Config) *float64) func(c *Config, v string) error {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return errors.Mark(errors.Newf("%s must be a number, got %q", name, v), ErrInvalid)
		}
		*dst(c) = f
		return nil
	}
}

func boolean(dst func(c *Config) *bool) func(c *Config, v string) error {
	return func(c *Config, v string) error {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "on":
			*dst(c) = true
		default:
			*dst(c) = false
		}
		return nil
	}
}

var envBindings = []envBinding{
	{"GOOGLE_API_KEY", str(func(c *Config) *string { return &c.GoogleAPI.APIKey })},
	{"GOOGLE_CUSTOM_SEARCH_ENGINE_ID", str(func(c *Config) *string { return &c.GoogleAPI.CustomSearchEngineID })},
	{"GOOGLE_SECRET_ARN", str(func(c *Config) *string { return &c.GoogleAPI.SecretARN })},
	{"ALGOLIA_APP_ID", str(func(c *Config) *string { return &c.Algolia.AppID })},
	{"ALGOLIA_API_KEY", str(func(c *Config) *string { return &c.Algolia.APIKey })},
	{"ALGOLIA_INDEX", str(func(c *Config) *string { return &c.Algolia.Index })},
	{"OUTPUT_DIRECTORY", str(func(c *Config) *string { return &c.Output.Directory })},
	{"OUTPUT_FILENAME_PREFIX", str(func(c *Config) *string { return &c.Output.FilenamePrefix })},
	{"OUTPUT_FORMAT", str(func(c *Config) *string { return &c.Output.Format })},
	{"LOG_LEVEL", str(func(c *Config) *string { return &c.Logging.Level })},
	{"LOG_FILE_PATH", str(func(c *Config) *string { return &c.Logging.FilePath })},
	{"LOG_CONSOLE_OUTPUT", boolean(func(c *Config) *bool { return &c.Logging.ConsoleOutput })},
	{"SEARCH_PROVIDER", str(func(c *Config) *string { return &c.Search.Provider })},
	{"SEARCH_RETRY_COUNT", integer("SEARCH_RETRY_COUNT", func(c *Config) *int { return &c.Search.RetryCount })},
	{"SEARCH_RETRY_DELAY", float("SEARCH_RETRY_DELAY", func(c *Config) *float64 { return &c.Search.RetryDelay })},
	{"SEARCH_TIMEOUT", integer("SEARCH_TIMEOUT", func(c *Config) *int { return &c.Search.Timeout })},
	{"SEARCH_NUM", integer("SEARCH_NUM", func(c *Config) *int { return &c.Search.Num })},
	{"SEARCH_DELAY", float("SEARCH_DELAY", func(c *Config) *float64 { return &c.Search.Delay })},
	{"SEARCH_LR", str(func(c *Config) *string { return &c.Search.LR })},
	{"SEARCH_SAFE", str(func(c *Config) *string { return &c.Search.Safe })},
	{"SEARCH_GL", str(func(c *Config) *string { return &c.Search.GL })},
	{"SEARCH_HL", str(func(c *Config) *string { return &c.Search.HL })},
	{"PUSHGATEWAY_URL", str(func(c *Config) *string { return &c.Metrics.PushgatewayURL })},
}

// applyEnv overrides settings from environment variables that are set.
func (c *Config) applyEnv() error {
	for _, b := range envBindings {
		v, ok := os.LookupEnv(b.name)
		if !ok {
			continue
		}
		if err := b.set(c, v); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the configuration as indented JSON. The file is written to a
// temporary sibling and renamed into place.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	data, err := sonic.ConfigStd.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode config")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create config directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.json")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary config file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to write config")
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to set config permissions")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close config")
	}

	if err := os.Rename(tmpName, path); err != nil {
		return errors.Wrapf(err, "failed to move config into %s", path)
	}

	return nil
}

// WriteSample writes the defaults with placeholder credentials to path. An
// existing file is left alone.
func WriteSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return errors.Newf("config file %s already exists", path)
	}

	cfg := Default()
	cfg.GoogleAPI.APIKey = google.PlaceholderAPIKey
	cfg.GoogleAPI.CustomSearchEngineID = google.PlaceholderSearchEngineID
	return cfg.Save(path)
}

// HasCredentials reports whether usable Google credentials are configured,
// either inline or through a secret ARN.
func (c *Config) HasCredentials() bool {
	if c.GoogleAPI.SecretARN != "" {
		return true
	}
	return google.Secrets{
		APIKey:         c.GoogleAPI.APIKey,
		SearchEngineID: c.GoogleAPI.CustomSearchEngineID,
	}.Usable()
}
