package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the fraud risk service
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Elasticsearch ElasticsearchConfig
	Kafka         KafkaConfig
	S3            S3Config
	Scoring       ScoringConfig
	Features      FeaturesConfig
	Geo           GeoConfig
	Risk          RiskConfig
	Geocoding     GeocodingConfig
	Signing       SigningConfig
	Auth          AuthConfig
	Logging       LoggingConfig
	Archive       ArchiveConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN returns the database connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// ElasticsearchConfig holds Elasticsearch configuration
type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Brokers          []string `mapstructure:"brokers"`
	ConsumerGroup    string   `mapstructure:"consumer_group"`
	SubmissionTopic  string   `mapstructure:"submission_topic"`
	AlertTopic       string   `mapstructure:"alert_topic"`
	EnableIdempotent bool     `mapstructure:"enable_idempotent"`
}

// S3Config holds AWS S3 configuration for archival storage
type S3Config struct {
	Region        string `mapstructure:"region"`
	ArchiveBucket string `mapstructure:"archive_bucket"`
	Endpoint      string `mapstructure:"endpoint"` // For local testing with MinIO
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	UseSSL        bool   `mapstructure:"use_ssl"`
}

// ScoringConfig holds model paths and blend policy constants. The blend
// weights are fixed configuration, never re-derived per call.
type ScoringConfig struct {
	RegionalModelPath      string        `mapstructure:"regional_model_path"`
	GlobalModelPath        string        `mapstructure:"global_model_path"`
	InferenceTimeout       time.Duration `mapstructure:"inference_timeout"`
	LocalDistanceThreshold float64       `mapstructure:"local_distance_threshold"`
	LocalOverrideDelta     float64       `mapstructure:"local_override_delta"`
	LocalRegionalWeight    float64       `mapstructure:"local_regional_weight"`
	MixedRegionalWeight    float64       `mapstructure:"mixed_regional_weight"`
	ForeignRegionalWeight  float64       `mapstructure:"foreign_regional_weight"`
}

// FeaturesConfig holds the feature-vector scaling constants. Center/spread
// are frozen at training time, not re-estimated at request time.
type FeaturesConfig struct {
	AmountCenter  float64 `mapstructure:"amount_center"`
	AmountSpread  float64 `mapstructure:"amount_spread"`
	HighRiskHours []int   `mapstructure:"high_risk_hours"`
}

// GeoConfig holds the home-region bounding box and the default centroid
// used when an account or merchant has no coordinates.
type GeoConfig struct {
	HomeMinLat  float64 `mapstructure:"home_min_lat"`
	HomeMaxLat  float64 `mapstructure:"home_max_lat"`
	HomeMinLon  float64 `mapstructure:"home_min_lon"`
	HomeMaxLon  float64 `mapstructure:"home_max_lon"`
	CentroidLat float64 `mapstructure:"centroid_lat"`
	CentroidLon float64 `mapstructure:"centroid_lon"`
}

// RiskConfig holds the tier thresholds
type RiskConfig struct {
	LowThreshold    float64 `mapstructure:"low_threshold"`
	MediumThreshold float64 `mapstructure:"medium_threshold"`
}

// GeocodingConfig holds the external geocoder settings
type GeocodingConfig struct {
	Endpoint        string        `mapstructure:"endpoint"`
	UserAgent       string        `mapstructure:"user_agent"`
	Timeout         time.Duration `mapstructure:"timeout"`
	BreakerInterval time.Duration `mapstructure:"breaker_interval"`
	BreakerTimeout  time.Duration `mapstructure:"breaker_timeout"`
}

// SigningConfig holds decision signing and field encryption settings
type SigningConfig struct {
	EncryptionKeysBase64 []string `mapstructure:"keys"`
	CurrentKeyVersion    int      `mapstructure:"current_key_version"`
	DecisionHMACSecret   string   `mapstructure:"decision_hmac_secret"`
}

// AuthConfig holds authentication settings for the admin surface
type AuthConfig struct {
	JWTPublicKeyPath string `mapstructure:"jwt_public_key_path"`
	JWTIssuer        string `mapstructure:"jwt_issuer"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ArchiveConfig holds resolved-record archival settings
type ArchiveConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Interval  time.Duration `mapstructure:"interval"`
	RetainFor time.Duration `mapstructure:"retain_for"`
}

// Load loads configuration from environment and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("FRAUD")
	v.AutomaticEnv()

	// Read config file if exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8086)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "fraud_risk_db")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.conn_max_idle_time", "5m")

	// Elasticsearch
	v.SetDefault("elasticsearch.addresses", []string{"http://localhost:9200"})
	v.SetDefault("elasticsearch.username", "elastic")
	v.SetDefault("elasticsearch.password", "changeme")
	v.SetDefault("elasticsearch.index", "resolved-transactions")

	// Kafka
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.consumer_group", "fraud-risk-service")
	v.SetDefault("kafka.submission_topic", "banking.transaction.submissions")
	v.SetDefault("kafka.alert_topic", "banking.fraud.alerts")
	v.SetDefault("kafka.enable_idempotent", true)

	// S3
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.archive_bucket", "banking-fraud-archive")
	v.SetDefault("s3.use_ssl", true)

	// Scoring: blend policy tuned against the coarse region definition
	v.SetDefault("scoring.regional_model_path", "./models/regional_model.json")
	v.SetDefault("scoring.global_model_path", "./models/global_model.json")
	v.SetDefault("scoring.inference_timeout", "2s")
	v.SetDefault("scoring.local_distance_threshold", 0.1)
	v.SetDefault("scoring.local_override_delta", 0.3)
	v.SetDefault("scoring.local_regional_weight", 0.7)
	v.SetDefault("scoring.mixed_regional_weight", 0.5)
	v.SetDefault("scoring.foreign_regional_weight", 0.2)

	// Features: scaling frozen at model training time
	v.SetDefault("features.amount_center", 70.0)
	v.SetDefault("features.amount_spread", 200.0)
	v.SetDefault("features.high_risk_hours", []int{0, 2, 3, 4, 22, 23})

	// Geo: home-region outer bounding box. Membership is granted anywhere
	// inside the box - the models were trained against this coarse
	// definition, so it must not be upgraded to polygon containment.
	v.SetDefault("geo.home_min_lat", 5.5)
	v.SetDefault("geo.home_max_lat", 10.0)
	v.SetDefault("geo.home_min_lon", 79.0)
	v.SetDefault("geo.home_max_lon", 82.0)
	v.SetDefault("geo.centroid_lat", 6.9271)
	v.SetDefault("geo.centroid_lon", 79.8612)

	// Risk tiers
	v.SetDefault("risk.low_threshold", 0.1)
	v.SetDefault("risk.medium_threshold", 0.3)

	// Geocoding
	v.SetDefault("geocoding.endpoint", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoding.user_agent", "banking-fraud-risk/1.0")
	v.SetDefault("geocoding.timeout", "5s")
	v.SetDefault("geocoding.breaker_interval", "60s")
	v.SetDefault("geocoding.breaker_timeout", "30s")

	// Signing
	v.SetDefault("signing.current_key_version", 1)

	// Auth
	v.SetDefault("auth.jwt_public_key_path", "./keys/jwt_public.pem")
	v.SetDefault("auth.jwt_issuer", "banking-auth-service")

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Archive
	v.SetDefault("archive.enabled", true)
	v.SetDefault("archive.interval", "24h")
	v.SetDefault("archive.retain_for", "720h")
}
