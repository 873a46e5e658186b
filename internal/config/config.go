// Package config centralizes how Omnigo reads environment variables and
// exposes them as strongly typed Go values.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents runtime configuration for the service. Struct fields in Go
// begin with capital letters when they must be exported (visible to other
// packages), while lower-case fields remain private.
type Config struct {
	Address        string
	MaxFileSize    int64
	SigningSecret  []byte
	SignedURLTTL   time.Duration
	ProcessingPool int

	LogLevel  string
	LogFormat string

	// AuthSecret verifies identity provider tokens. Empty leaves the API open.
	AuthSecret string
	SignInURL  string

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3Region       string
	S3UseSSL       bool
	ArtifactBucket string

	Workflow WorkflowConfig
	Pricing  PricingConfig
}

// WorkflowConfig tunes the staging and upload simulation.
type WorkflowConfig struct {
	// EntryPoints maps an upload entry point to its extension allow-list.
	EntryPoints      map[string][]string `yaml:"entry_points"`
	DefaultEntry     string              `yaml:"default_entry"`
	WarningTTL       time.Duration       `yaml:"warning_ttl"`
	UploadStep       time.Duration       `yaml:"upload_step"`
	UploadJitter     time.Duration       `yaml:"upload_jitter"`
	UploadFailure    float64             `yaml:"upload_failure_rate"`
	SettleDelay      time.Duration       `yaml:"settle_delay"`
	DeliveryFailure  float64             `yaml:"delivery_failure_rate"`
	DeliveryDelay    time.Duration       `yaml:"delivery_delay"`
	RandomSeed       int64               `yaml:"random_seed"`
	SessionIdleLimit time.Duration       `yaml:"session_idle_limit"`
}

// PricingConfig is the per-document cost of each channel. Savings are measured
// against sending every approved document by post.
type PricingConfig struct {
	Currency string             `yaml:"currency"`
	Channels map[string]float64 `yaml:"channels"`
}

const (
	// const declares compile-time constants; shifts work on integers so
	// 25 << 20 equals 25 * 2^20 bytes.
	defaultAddress     = ":8080"
	defaultMaxFileSize = 25 << 20 // 25 MiB
	defaultSignedTTL   = 5 * time.Minute
	defaultWorkerCount = 2
	defaultBucket      = "omnigo-artifacts"
)

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Address:        defaultAddress,
		MaxFileSize:    defaultMaxFileSize,
		SignedURLTTL:   defaultSignedTTL,
		ProcessingPool: defaultWorkerCount,
		LogLevel:       "info",
		LogFormat:      "text",
		SignInURL:      "/sign-in",
		S3Region:       "us-east-1",
		ArtifactBucket: defaultBucket,
		Workflow: WorkflowConfig{
			EntryPoints: map[string][]string{
				"multi": {"pdf", "docx", "xlsx", "csv", "xml"},
				"pdf":   {"pdf"},
			},
			DefaultEntry:     "multi",
			WarningTTL:       3 * time.Second,
			UploadStep:       time.Second,
			UploadJitter:     2 * time.Second,
			UploadFailure:    0.2,
			SettleDelay:      500 * time.Millisecond,
			DeliveryFailure:  0.2,
			DeliveryDelay:    2 * time.Second,
			SessionIdleLimit: 2 * time.Hour,
		},
		Pricing: PricingConfig{
			Currency: "SEK",
			Channels: map[string]float64{
				"post":  12.00,
				"email": 0.50,
				"kivra": 3.00,
			},
		},
	}
}

// Load reads configuration from an optional .env file, an optional YAML file
// named by OMNIGO_CONFIG and environment variables, in that order of
// precedence from lowest to highest. It follows Go's convention of returning
// (value, error) so callers can handle failures rather than panicking.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := Default()
	if path := readEnv("OMNIGO_CONFIG", ""); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Address = readEnv("OMNIGO_ADDRESS", cfg.Address)
	cfg.MaxFileSize = parseInt64("OMNIGO_MAX_FILE_BYTES", cfg.MaxFileSize)
	cfg.SigningSecret = parseSecret("OMNIGO_SIGNING_SECRET")
	cfg.SignedURLTTL = parseDuration("OMNIGO_SIGNED_TTL", cfg.SignedURLTTL)
	cfg.ProcessingPool = parseInt("OMNIGO_WORKERS", cfg.ProcessingPool)
	cfg.LogLevel = readEnv("OMNIGO_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = readEnv("OMNIGO_LOG_FORMAT", cfg.LogFormat)
	cfg.AuthSecret = readEnv("OMNIGO_AUTH_SECRET", cfg.AuthSecret)
	cfg.SignInURL = readEnv("OMNIGO_SIGN_IN_URL", cfg.SignInURL)
	cfg.DatabaseURL = readEnv("OMNIGO_DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisAddr = readEnv("OMNIGO_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = readEnv("OMNIGO_REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = parseInt("OMNIGO_REDIS_DB", cfg.RedisDB)
	cfg.S3Endpoint = readEnv("OMNIGO_S3_ENDPOINT", cfg.S3Endpoint)
	cfg.S3AccessKey = readEnv("OMNIGO_S3_ACCESS_KEY", cfg.S3AccessKey)
	cfg.S3SecretKey = readEnv("OMNIGO_S3_SECRET_KEY", cfg.S3SecretKey)
	cfg.S3Region = readEnv("OMNIGO_S3_REGION", cfg.S3Region)
	cfg.S3UseSSL = parseBool("OMNIGO_S3_USE_SSL", cfg.S3UseSSL)
	cfg.ArtifactBucket = readEnv("OMNIGO_ARTIFACT_BUCKET", cfg.ArtifactBucket)
	cfg.Workflow.RandomSeed = parseInt64("OMNIGO_RANDOM_SEED", cfg.Workflow.RandomSeed)
	cfg.Workflow.DeliveryDelay = parseDuration("OMNIGO_DELIVERY_DELAY", cfg.Workflow.DeliveryDelay)

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fileConfig is the YAML shape of an OMNIGO_CONFIG file. Only the workflow and
// pricing sections live in YAML; deployment settings stay in the environment.
type fileConfig struct {
	Workflow WorkflowConfig `yaml:"workflow"`
	Pricing  PricingConfig  `yaml:"pricing"`
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	return c.mergeYAML(data)
}

func (c *Config) mergeYAML(data []byte) error {
	// Decoding into copies of the current values keeps every default the file
	// does not mention.
	fc := fileConfig{Workflow: c.Workflow, Pricing: c.Pricing}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	c.Workflow = fc.Workflow
	c.Pricing = fc.Pricing
	return nil
}

func (c *Config) normalize() {
	if c.SigningSecret == nil {
		// If no secret was supplied we generate one using crypto/rand.
		c.SigningSecret = randomSecret()
	}
	if c.ProcessingPool <= 0 {
		c.ProcessingPool = defaultWorkerCount
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = defaultMaxFileSize
	}
	if c.SignedURLTTL <= 0 {
		c.SignedURLTTL = defaultSignedTTL
	}
	if c.Workflow.RandomSeed == 0 {
		c.Workflow.RandomSeed = time.Now().UnixNano()
	}
	if _, ok := c.Workflow.EntryPoints[c.Workflow.DefaultEntry]; !ok {
		c.Workflow.DefaultEntry = "multi"
	}
	for name, exts := range c.Workflow.EntryPoints {
		for i := range exts {
			exts[i] = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(exts[i]), "."))
		}
		c.Workflow.EntryPoints[name] = exts
	}
}

// validate rejects combinations the binaries cannot run with.
func (c *Config) validate() error {
	// Queued deliveries are finished by cmd/worker, which only writes to
	// Postgres. With an in-memory archive they would never leave pending.
	if c.QueueEnabled() && c.DatabaseURL == "" {
		return fmt.Errorf("OMNIGO_REDIS_ADDR requires OMNIGO_DATABASE_URL")
	}
	return nil
}

// QueueEnabled reports whether delivery tasks go through Redis.
func (c *Config) QueueEnabled() bool { return c.RedisAddr != "" }

// ObjectStoreEnabled reports whether generated documents go to S3/MinIO.
func (c *Config) ObjectStoreEnabled() bool { return c.S3Endpoint != "" }

func readEnv(key, def string) string {
	// LookupEnv returns (value, true) when the variable is present, mirroring
	// Go's pattern of providing extra information via multiple return values.
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseInt64(key string, def int64) int64 {
	// strconv.ParseInt converts strings to integers; Go treats errors as values
	// so we simply ignore invalid input and return the default.
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	// time.ParseDuration understands inputs like "5m" or "30s".
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseSecret(key string) []byte {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return []byte(v)
	}
	return nil
}

func randomSecret() []byte {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return []byte(hex.EncodeToString([]byte("fallbacksecret")))
	}
	return buf
}
