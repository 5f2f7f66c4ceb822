package rulesource

import (
	"context"
	"time"
)

// Source kinds accepted by Config.Kind.
const (
	KindEmbedded    = "embedded"
	KindFile        = "file"
	KindObjectStore = "minio"
	KindPostgres    = "postgres"
	KindMySQL       = "mysql"
)

// Default values for configuration
const (
	DefaultLoadTimeout   = 10 * time.Second
	DefaultTableName     = "default"
	DefaultDatabaseTable = "rule_tables"
	DefaultKafkaMinBytes = 1
	DefaultKafkaMaxBytes = 1e6 // 1MB
	DefaultKafkaMaxWait  = 5 * time.Second
)

// Config selects where the rule table is read from and how updates arrive.
type Config struct {
	// Kind is the source of the initial table: embedded, file, minio, postgres or mysql.
	// Empty means embedded.
	Kind string `yaml:"kind" envconfig:"RULES_SOURCE"`

	// LoadTimeout bounds the initial fetch and every poll.
	LoadTimeout time.Duration `yaml:"load_timeout" envconfig:"RULES_LOAD_TIMEOUT"`

	// PollInterval re-reads the source periodically when positive.
	PollInterval time.Duration `yaml:"poll_interval" envconfig:"RULES_POLL_INTERVAL"`

	// FallbackToDefault serves the embedded table when the initial fetch fails
	// instead of failing startup.
	FallbackToDefault bool `yaml:"fallback_to_default" envconfig:"RULES_FALLBACK_TO_DEFAULT"`

	File        FileConfig        `yaml:"file"`
	ObjectStore ObjectStoreConfig `yaml:"object_store"`
	Database    DatabaseConfig    `yaml:"database"`
	Kafka       KafkaConfig       `yaml:"kafka"`
}

// FileConfig locates a rule table on disk.
type FileConfig struct {
	Path string `yaml:"path" envconfig:"RULES_FILE_PATH"`
}

// ObjectStoreConfig locates a rule table object in MinIO or any S3 compatible store.
type ObjectStoreConfig struct {
	Endpoint        string `yaml:"endpoint" envconfig:"RULES_S3_ENDPOINT"`
	AccessKeyID     string `yaml:"access_key_id" envconfig:"RULES_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" envconfig:"RULES_S3_SECRET_ACCESS_KEY" json:"-"` //nolint:gosec
	UseSSL          bool   `yaml:"use_ssl" envconfig:"RULES_S3_USE_SSL"`
	Region          string `yaml:"region" envconfig:"RULES_S3_REGION"`
	Bucket          string `yaml:"bucket" envconfig:"RULES_S3_BUCKET"`
	Key             string `yaml:"key" envconfig:"RULES_S3_KEY"`
}

// DatabaseConfig locates rule tables stored as rows of a SQL table. The newest row
// for Name wins.
type DatabaseConfig struct {
	Host     string `yaml:"host" envconfig:"RULES_DB_HOST"`
	Port     string `yaml:"port" envconfig:"RULES_DB_PORT"`
	User     string `yaml:"user" envconfig:"RULES_DB_USER"`
	Password string `yaml:"password" envconfig:"RULES_DB_PASSWORD" json:"-"` //nolint:gosec
	DbName   string `yaml:"db_name" envconfig:"RULES_DB_NAME"`

	// SSLMode applies to postgres; TLS to mysql.
	SSLMode string `yaml:"ssl_mode" envconfig:"RULES_DB_SSL_MODE"`
	TLS     string `yaml:"tls" envconfig:"RULES_DB_TLS"`

	// Table holds the rule table rows. Defaults to rule_tables.
	Table string `yaml:"table" envconfig:"RULES_DB_TABLE"`

	// Name selects the rule table among the rows. Defaults to "default".
	Name string `yaml:"name" envconfig:"RULES_DB_TABLE_NAME"`

	// AutoMigrate creates the table when it does not exist.
	AutoMigrate bool `yaml:"auto_migrate" envconfig:"RULES_DB_AUTO_MIGRATE"`
}

// KafkaConfig configures the update topic. Every message value is a complete rule
// table document.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled" envconfig:"RULES_KAFKA_ENABLED"`
	Brokers []string `yaml:"brokers" envconfig:"RULES_KAFKA_BROKERS"`
	Topic   string   `yaml:"topic" envconfig:"RULES_KAFKA_TOPIC"`

	// GroupID enables committed offsets. Without it every instance reads the topic
	// from StartOffset.
	GroupID string `yaml:"group_id" envconfig:"RULES_KAFKA_GROUP_ID"`

	MinBytes int           `yaml:"min_bytes" envconfig:"RULES_KAFKA_MIN_BYTES"`
	MaxBytes int           `yaml:"max_bytes" envconfig:"RULES_KAFKA_MAX_BYTES"`
	MaxWait  time.Duration `yaml:"max_wait" envconfig:"RULES_KAFKA_MAX_WAIT"`

	// StartOffset is FirstOffset (-2) or LastOffset (-1). 0 means LastOffset: a new
	// instance starts from its configured source, not from old updates.
	StartOffset int64 `yaml:"start_offset" envconfig:"RULES_KAFKA_START_OFFSET"`

	TLS  TLSConfig  `yaml:"tls"`
	SASL SASLConfig `yaml:"sasl"`
}

// TLSConfig contains TLS/SSL configuration parameters.
type TLSConfig struct {
	Enabled            bool   `yaml:"enabled" envconfig:"RULES_KAFKA_TLS_ENABLED"`
	CACertPath         string `yaml:"ca_cert_path" envconfig:"RULES_KAFKA_TLS_CA_CERT"`
	ClientCertPath     string `yaml:"client_cert_path" envconfig:"RULES_KAFKA_TLS_CLIENT_CERT"`
	ClientKeyPath      string `yaml:"client_key_path" envconfig:"RULES_KAFKA_TLS_CLIENT_KEY"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify" envconfig:"RULES_KAFKA_TLS_INSECURE"`
}

// SASLConfig contains SASL authentication configuration parameters.
type SASLConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"RULES_KAFKA_SASL_ENABLED"`

	// Mechanism is PLAIN, SCRAM-SHA-256 or SCRAM-SHA-512.
	Mechanism string `yaml:"mechanism" envconfig:"RULES_KAFKA_SASL_MECHANISM"`
	Username  string `yaml:"username" envconfig:"RULES_KAFKA_SASL_USERNAME"`
	Password  string `yaml:"password" envconfig:"RULES_KAFKA_SASL_PASSWORD" json:"-"` //nolint:gosec
}

// Consumer offset modes
const (
	FirstOffset = -2
	LastOffset  = -1
)

// Logger is the logging surface rule sources need. *logger.LoggerClient satisfies it.
type Logger interface {
	// InfoWithContext logs an informational message with trace context.
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})

	// WarnWithContext logs a warning message with trace context.
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})

	// ErrorWithContext logs an error message with trace context.
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}
