package common

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
)

// EnvPrefix namespaces environment overrides, e.g. PAYSTUB_OCR_PRIMARY.
const EnvPrefix = "PAYSTUB"

// Config holds all application configuration. It is a plain value: callers
// take a snapshot from Manager.Get and pass it down explicitly.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	OCR      OCRConfig      `mapstructure:"ocr"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json | text
}

// ServerConfig holds listener configuration.
type ServerConfig struct {
	HTTPAddr     string        `mapstructure:"http_addr"`
	GRPCAddr     string        `mapstructure:"grpc_addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds the report archive connection. Driver is "pgx",
// "sqlite" or empty (archive disabled).
type DatabaseConfig struct {
	Driver           string        `mapstructure:"driver"`
	DSN              string        `mapstructure:"dsn"`
	MaxConns         int32         `mapstructure:"max_conns"`
	MinConns         int32         `mapstructure:"min_conns"`
	MaxConnLifetime  time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `mapstructure:"max_conn_idle_time"`
	DialTimeout      time.Duration `mapstructure:"dial_timeout"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
}

// RedisConfig holds the analysis-state cache connection. Empty URL keeps
// state in memory.
type RedisConfig struct {
	URL       string        `mapstructure:"url"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// QueueConfig selects the analysis queue backend ("memory" or "asynq").
type QueueConfig struct {
	Backend        string        `mapstructure:"backend"`
	Workers        int           `mapstructure:"workers"`
	Size           int           `mapstructure:"size"`
	ProcessTimeout time.Duration `mapstructure:"process_timeout"`
	Name           string        `mapstructure:"name"`
	MaxRetry       int           `mapstructure:"max_retry"`
}

// OCRConfig holds the provider policy and per-provider settings.
type OCRConfig struct {
	Primary            string          `mapstructure:"primary"`
	Fallbacks          []string        `mapstructure:"fallbacks"`
	Priority           []string        `mapstructure:"priority"`
	TryAllConcurrently bool            `mapstructure:"try_all_concurrently"`
	ConfidenceFloor    float64         `mapstructure:"confidence_floor"`
	ProviderTimeout    time.Duration   `mapstructure:"provider_timeout"`
	MaxDocumentBytes   int64           `mapstructure:"max_document_bytes"`
	DocIntel           DocIntelConfig  `mapstructure:"docintel"`
	Vision             VisionConfig    `mapstructure:"vision"`
	Tesseract          TesseractConfig `mapstructure:"tesseract"`
	PDFText            PDFTextConfig   `mapstructure:"pdftext"`
}

// DocIntelConfig configures the Azure Document Intelligence adapter.
type DocIntelConfig struct {
	Endpoint     string        `mapstructure:"endpoint"`
	APIKey       string        `mapstructure:"api_key"`
	Model        string        `mapstructure:"model"`
	APIVersion   string        `mapstructure:"api_version"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

// VisionConfig configures the OpenAI vision adapter.
type VisionConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	Model      string        `mapstructure:"model"`
	MaxRetries int           `mapstructure:"max_retries"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// TesseractConfig configures the local Tesseract adapter.
type TesseractConfig struct {
	Languages   []string `mapstructure:"languages"`
	TessdataDir string   `mapstructure:"tessdata_dir"`
}

// PDFTextConfig configures the pdftotext adapter.
type PDFTextConfig struct {
	Binary string `mapstructure:"binary"`
}

// AnalysisConfig holds the defaults applied to penalty and score requests.
type AnalysisConfig struct {
	PeriodMonths    int     `mapstructure:"period_months"`
	PenaltyMethod   string  `mapstructure:"penalty_method"`
	EmployerSize    string  `mapstructure:"employer_size"`
	Industry        string  `mapstructure:"industry"`
	HistoricalScore float64 `mapstructure:"historical_score"`
}

// defaultSettings is the single source of default values. Durations are
// written as strings so the same map renders cleanly as YAML.
func defaultSettings() map[string]any {
	return map[string]any{
		"log": map[string]any{
			"level":  "info",
			"format": "json",
		},
		"server": map[string]any{
			"http_addr":     ":8080",
			"grpc_addr":     ":9090",
			"read_timeout":  "30s",
			"write_timeout": "60s",
		},
		"database": map[string]any{
			"driver":             "",
			"dsn":                "",
			"max_conns":          10,
			"min_conns":          1,
			"max_conn_lifetime":  "30m",
			"max_conn_idle_time": "5m",
			"dial_timeout":       "3s",
			"statement_timeout":  "0s",
		},
		"redis": map[string]any{
			"url":        "",
			"key_prefix": "paystub:analysis:",
			"ttl":        "1h",
		},
		"queue": map[string]any{
			"backend":         "memory",
			"workers":         4,
			"size":            256,
			"process_timeout": "3m",
			"name":            "paystub",
			"max_retry":       0,
		},
		"ocr": map[string]any{
			"primary":              constants.ProviderDocIntel,
			"fallbacks":            []string{constants.ProviderVision, constants.ProviderPDFText, constants.ProviderTesseract},
			"priority":             constants.DefaultProviderPriority,
			"try_all_concurrently": false,
			"confidence_floor":     60.0,
			"provider_timeout":     "30s",
			"max_document_bytes":   constants.MaxDocumentBytes,
			"docintel": map[string]any{
				"endpoint":      "${AZURE_DOCUMENT_INTELLIGENCE_ENDPOINT}",
				"api_key":       "${AZURE_DOCUMENT_INTELLIGENCE_KEY}",
				"model":         "prebuilt-document",
				"api_version":   "2023-07-31",
				"poll_interval": "1s",
				"max_retries":   3,
			},
			"vision": map[string]any{
				"api_key":     "${OPENAI_API_KEY}",
				"base_url":    "",
				"model":       "gpt-4o-mini",
				"max_retries": 2,
				"timeout":     "45s",
			},
			"tesseract": map[string]any{
				"languages":    []string{"eng"},
				"tessdata_dir": "",
			},
			"pdftext": map[string]any{
				"binary": "pdftotext",
			},
		},
		"analysis": map[string]any{
			"period_months":    12,
			"penalty_method":   string(constants.MethodModerate),
			"employer_size":    string(constants.EmployerMedium),
			"industry":         "",
			"historical_score": 75.0,
		},
	}
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() Config {
	v := viper.New()
	applyDefaults(v, "", defaultSettings())
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("default config does not decode: %v", err))
	}
	return cfg
}

func applyDefaults(v *viper.Viper, prefix string, m map[string]any) {
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			applyDefaults(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

// Manager loads configuration and hot-reloads it when the file changes.
type Manager struct {
	v      *viper.Viper
	logger *slog.Logger

	mu        sync.RWMutex
	config    Config
	callbacks []func(Config)
}

// NewManager creates a config manager and loads the initial config. An
// empty cfgFile searches ./paystub.yaml and $HOME/.paystub/paystub.yaml;
// a missing file is not an error. A .env file in the working directory is
// loaded into the process environment first.
func NewManager(cfgFile string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("config.dotenv.load_failed", "error", err)
	}

	m := &Manager{v: viper.New(), logger: logger}
	applyDefaults(m.v, "", defaultSettings())
	m.v.SetEnvPrefix(EnvPrefix)
	m.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.v.AutomaticEnv()

	if cfgFile != "" {
		m.v.SetConfigFile(cfgFile)
	} else {
		m.v.SetConfigName("paystub")
		m.v.SetConfigType("yaml")
		m.v.AddConfigPath(".")
		m.v.AddConfigPath("$HOME/.paystub")
	}
	if err := m.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, NewAppError(CodeConfig, "read config file", err)
		}
	}

	cfg, err := m.load()
	if err != nil {
		return nil, err
	}
	m.config = cfg
	return m, nil
}

func (m *Manager) load() (Config, error) {
	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return Config{}, NewAppError(CodeConfig, "decode config", err)
	}
	cfg.ResolveSecrets()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Get returns a snapshot of the current configuration.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// OnChange registers a callback invoked with each reloaded snapshot.
func (m *Manager) OnChange(fn func(Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// WatchConfig enables hot reload. Invalid edits are logged and ignored;
// the previous snapshot stays active.
func (m *Manager) WatchConfig() {
	m.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := m.load()
		if err != nil {
			m.logger.Error("config.reload.failed", "file", e.Name, "op", e.Op.String(), "error", err)
			return
		}
		m.mu.Lock()
		m.config = cfg
		callbacks := make([]func(Config), len(m.callbacks))
		copy(callbacks, m.callbacks)
		m.mu.Unlock()

		m.logger.Info("config.reload.ok", "file", e.Name)
		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	m.v.WatchConfig()
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envRef.ReplaceAllStringFunc(value, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// ResolveSecrets expands ${ENV_VAR} references in credential fields.
func (c *Config) ResolveSecrets() {
	c.Database.DSN = ResolveEnvVars(c.Database.DSN)
	c.Redis.URL = ResolveEnvVars(c.Redis.URL)
	c.OCR.DocIntel.Endpoint = ResolveEnvVars(c.OCR.DocIntel.Endpoint)
	c.OCR.DocIntel.APIKey = ResolveEnvVars(c.OCR.DocIntel.APIKey)
	c.OCR.Vision.APIKey = ResolveEnvVars(c.OCR.Vision.APIKey)
}

var knownProviders = map[string]struct{}{
	constants.ProviderDocIntel:  {},
	constants.ProviderVision:    {},
	constants.ProviderTesseract: {},
	constants.ProviderPDFText:   {},
}

// Validate checks the configuration for contract errors.
func (c Config) Validate() error {
	v := NewValidator()
	if c.OCR.Primary == "" && len(c.OCR.Fallbacks) == 0 {
		return NewAppError(CodeConfig, "ocr.primary or ocr.fallbacks is required", ErrInvalidInput)
	}
	if c.OCR.Primary != "" {
		v.Field("ocr.primary", c.OCR.Primary, OneOf(keys(knownProviders)...))
	}
	for _, fb := range c.OCR.Fallbacks {
		v.Field("ocr.fallbacks", fb, OneOf(keys(knownProviders)...))
	}
	v.Field("ocr.confidence_floor", c.OCR.ConfidenceFloor, Between(0, 100))
	v.Field("ocr.max_document_bytes", float64(c.OCR.MaxDocumentBytes), Between(1, 64<<20))
	v.Field("database.driver", c.Database.Driver, OneOf("", "pgx", "sqlite"))
	v.Field("queue.backend", c.Queue.Backend, OneOf("memory", "asynq"))
	v.Field("analysis.period_months", float64(c.Analysis.PeriodMonths), Between(1, 120))
	v.Field("analysis.historical_score", c.Analysis.HistoricalScore, Between(0, 100))
	if _, ok := constants.ParsePenaltyMethod(c.Analysis.PenaltyMethod); !ok {
		v.Field("analysis.penalty_method", c.Analysis.PenaltyMethod, Invalid("must be conservative, moderate or maximum"))
	}
	if _, ok := constants.ParseEmployerSize(c.Analysis.EmployerSize); !ok {
		v.Field("analysis.employer_size", c.Analysis.EmployerSize, Invalid("must be small, medium, large or enterprise"))
	}
	if c.Queue.Backend == "asynq" && c.Redis.URL == "" {
		v.Field("redis.url", c.Redis.URL, Invalid("is required when queue.backend is asynq"))
	}
	if c.Database.Driver != "" && c.Database.DSN == "" {
		v.Field("database.dsn", c.Database.DSN, Required)
	}
	if v.HasErrors() {
		return NewAppError(CodeConfig, v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// WriteDefault writes the default configuration to path as YAML.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(defaultSettings())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	header := []byte(`# paystub analyzer configuration
# Credentials use ${ENV_VAR} syntax; every key can also be overridden with
# PAYSTUB_<SECTION>_<KEY>, e.g. PAYSTUB_OCR_PRIMARY=tesseract.

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
