package config

import "time"

// Default value constants.
const (
	DefaultServerPort = 8080
	DefaultServerMode = "release"

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "longmap"
	DefaultDBMaxConns = 25

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "longmap:"

	DefaultKafkaBroker  = "localhost:9092"
	DefaultKafkaGroupID = "longmap-workers"

	DefaultMilvusAddr         = "localhost:19530"
	DefaultMilvusEmbeddingDim = 384
	DefaultMilvusTopK         = 10

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "longmap-raw"

	DefaultEmbeddingModel   = "all-MiniLM-L6-v2"
	DefaultEmbeddingTimeout = 10 * time.Second

	DefaultSimilarityThreshold = 0.7
	DefaultDuplicateThreshold  = 0.9
	DefaultCostWeight          = 0.3
	DefaultTimeWeight          = 0.3
	DefaultImpactWeight        = 0.4

	DefaultWorkerSchedule    = "0 3 * * *" // daily at 03:00
	DefaultWorkerDaysBack    = 30
	DefaultWorkerConcurrency = 4

	DefaultSourceMaxResults = 100

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills every zero-value field in cfg with the platform
// default. Fields already set by the caller are left unchanged so explicit
// configuration always wins. Must be called after unmarshalling and before
// Validate so optional-but-defaulted fields are never seen as missing.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "longmap"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = time.Hour
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = "migrations"
	}

	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = 15 * time.Minute
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}

	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = time.Second
	}

	if cfg.Milvus.Addr == "" {
		cfg.Milvus.Addr = DefaultMilvusAddr
	}
	if cfg.Milvus.EmbeddingDim == 0 {
		cfg.Milvus.EmbeddingDim = DefaultMilvusEmbeddingDim
	}
	if cfg.Milvus.DefaultTopK == 0 {
		cfg.Milvus.DefaultTopK = DefaultMilvusTopK
	}
	if cfg.Milvus.CollectionPrefix == "" {
		cfg.Milvus.CollectionPrefix = "longmap_"
	}

	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}

	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = DefaultEmbeddingModel
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = DefaultEmbeddingTimeout
	}

	if cfg.Analysis.SimilarityThreshold == 0 {
		cfg.Analysis.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if cfg.Analysis.DuplicateThreshold == 0 {
		cfg.Analysis.DuplicateThreshold = DefaultDuplicateThreshold
	}
	if cfg.Analysis.CostWeight == 0 && cfg.Analysis.TimeWeight == 0 && cfg.Analysis.ImpactWeight == 0 {
		cfg.Analysis.CostWeight = DefaultCostWeight
		cfg.Analysis.TimeWeight = DefaultTimeWeight
		cfg.Analysis.ImpactWeight = DefaultImpactWeight
	}

	applySourceDefaults(&cfg.Sources.PubMed)
	applySourceDefaults(&cfg.Sources.ClinicalTrials)
	applySourceDefaults(&cfg.Sources.BioRxiv)

	if cfg.Worker.Schedule == "" {
		cfg.Worker.Schedule = DefaultWorkerSchedule
	}
	if cfg.Worker.DaysBack == 0 {
		cfg.Worker.DaysBack = DefaultWorkerDaysBack
	}
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

func applySourceDefaults(sc *SourceConfig) {
	if sc.MaxResults == 0 {
		sc.MaxResults = DefaultSourceMaxResults
	}
	if len(sc.Terms) == 0 {
		sc.Terms = []string{"aging", "longevity", "senescence"}
	}
}
