// Package config defines all configuration structures for the longevity-map
// platform. No I/O or parsing logic lives here, only plain data types and
// validation.
package config

import (
	"fmt"
	"time"

	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds Kafka producer/consumer parameters.
type KafkaConfig struct {
	Brokers         []string      `mapstructure:"brokers"`
	GroupID         string        `mapstructure:"group_id"`
	AutoOffsetReset string        `mapstructure:"auto_offset_reset"` // "earliest" | "latest"
	ProducerRetries int           `mapstructure:"producer_retries"`
	BatchTimeout    time.Duration `mapstructure:"batch_timeout"`
}

// MilvusConfig holds Milvus vector-store connection parameters.
type MilvusConfig struct {
	Addr             string `mapstructure:"addr"`
	DBName           string `mapstructure:"db_name"`
	EmbeddingDim     int    `mapstructure:"embedding_dim"`
	CollectionPrefix string `mapstructure:"collection_prefix"`
	DefaultTopK      int    `mapstructure:"default_top_k"`
}

// MinIOConfig holds MinIO / S3-compatible object-storage parameters for the
// raw source-payload archive.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// EmbeddingConfig holds parameters for the external text-embedding provider.
// The provider is optional: when Enabled is false, or a call fails, resource
// matching falls back to token-overlap similarity.
type EmbeddingConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// AnalysisConfig holds the tunables of the gap-scoring pipeline. Every field
// has a default so the analysis core runs unconfigured.
type AnalysisConfig struct {
	// SimilarityThreshold is the minimum capability-resource match score.
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`

	// DuplicateThreshold is the minimum pairwise similarity for two
	// resources to be clustered as duplicated effort.
	DuplicateThreshold float64 `mapstructure:"duplicate_threshold"`

	// CostWeight, TimeWeight, and ImpactWeight drive the gap impact score.
	CostWeight   float64 `mapstructure:"cost_weight"`
	TimeWeight   float64 `mapstructure:"time_weight"`
	ImpactWeight float64 `mapstructure:"impact_weight"`
}

// SourceConfig holds the settings of one literature source poller.
type SourceConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	Terms      []string `mapstructure:"terms"`
	MaxResults int      `mapstructure:"max_results"`
	APIKey     string   `mapstructure:"api_key"`
}

// SourcesConfig groups the literature source pollers.
type SourcesConfig struct {
	PubMed         SourceConfig `mapstructure:"pubmed"`
	ClinicalTrials SourceConfig `mapstructure:"clinical_trials"`
	BioRxiv        SourceConfig `mapstructure:"biorxiv"`
}

// WorkerConfig holds background-worker execution parameters.
type WorkerConfig struct {
	// Schedule is a cron expression controlling ingestion runs.
	Schedule string `mapstructure:"schedule"`

	// DaysBack is the lookback window for source fetches.
	DaysBack int `mapstructure:"days_back"`

	// Concurrency bounds parallel source fetches.
	Concurrency int `mapstructure:"concurrency"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure for the platform. Every
// infrastructure component and application service reads its settings from
// the relevant sub-struct.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Milvus    MilvusConfig    `mapstructure:"milvus"`
	MinIO     MinIOConfig     `mapstructure:"minio"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Log       logging.Config  `mapstructure:"log"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config. It
// returns the first error encountered; callers should treat any error as
// fatal and refuse to start the application.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("config: database.host is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("config: database.db_name is required")
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("config: database.max_conns must be ≥ 1, got %d", c.Database.MaxConns)
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
	}

	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
	}
	if c.Kafka.GroupID == "" {
		return fmt.Errorf("config: kafka.group_id is required")
	}

	if c.Milvus.Addr == "" {
		return fmt.Errorf("config: milvus.addr is required")
	}
	if c.Milvus.EmbeddingDim < 1 {
		return fmt.Errorf("config: milvus.embedding_dim must be ≥ 1, got %d", c.Milvus.EmbeddingDim)
	}

	if c.Embedding.Enabled && c.Embedding.BaseURL == "" {
		return fmt.Errorf("config: embedding.base_url is required when embedding.enabled is true")
	}

	if err := validateThreshold("analysis.similarity_threshold", c.Analysis.SimilarityThreshold); err != nil {
		return err
	}
	if err := validateThreshold("analysis.duplicate_threshold", c.Analysis.DuplicateThreshold); err != nil {
		return err
	}
	weightSum := c.Analysis.CostWeight + c.Analysis.TimeWeight + c.Analysis.ImpactWeight
	if weightSum <= 0 {
		return fmt.Errorf("config: analysis weights must sum to a positive value, got %g", weightSum)
	}

	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("config: worker.concurrency must be ≥ 1, got %d", c.Worker.Concurrency)
	}
	if c.Worker.DaysBack < 1 {
		return fmt.Errorf("config: worker.days_back must be ≥ 1, got %d", c.Worker.DaysBack)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}

	return nil
}

func validateThreshold(name string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("config: %s %g is out of range [0, 1]", name, v)
	}
	return nil
}
