package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/platform/validator"
	"github.com/spf13/viper"
)

type Config struct {
	ServiceName string              `mapstructure:"service_name" validate:"required"`
	Backend     string              `mapstructure:"backend" validate:"oneof=mongo sqlite"`
	HTTP        HTTPConfig          `mapstructure:"http"`
	GRPC        GRPCConfig          `mapstructure:"grpc"`
	Metrics     MetricsConfig       `mapstructure:"metrics"`
	Mongo       MongoConfig         `mapstructure:"mongo"`
	SQLite      SQLiteConfig        `mapstructure:"sqlite"`
	Redis       RedisConfig         `mapstructure:"redis"`
	NATS        NATSConfig          `mapstructure:"nats"`
	MinIO       MinIOConfig         `mapstructure:"minio"`
	Auth        AuthConfig          `mapstructure:"auth"`
	Log         logger.LoggerConfig `mapstructure:"log"`
	Tracing     TracingConfig       `mapstructure:"tracing"`
	Discovery   DiscoveryConfig     `mapstructure:"discovery"`
}

type HTTPConfig struct {
	Port            string        `mapstructure:"port" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type GRPCConfig struct {
	Port string `mapstructure:"port" validate:"required"`
}

type MetricsConfig struct {
	Port string `mapstructure:"port"`
}

type MongoConfig struct {
	URI                       string        `mapstructure:"uri" validate:"required_if=Enabled true"`
	Database                  string        `mapstructure:"database"`
	ListingsCollection        string        `mapstructure:"listings_collection"`
	RecommendationsCollection string        `mapstructure:"recommendations_collection"`
	ConnectTimeout            time.Duration `mapstructure:"connect_timeout"`
	Enabled                   bool          `mapstructure:"-"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Address  string        `mapstructure:"address" validate:"required_if=Enabled true"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	PageTTL  time.Duration `mapstructure:"page_ttl"`
}

type NATSConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	URL            string        `mapstructure:"url" validate:"required_if=Enabled true"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type MinIOConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Endpoint   string        `mapstructure:"endpoint" validate:"required_if=Enabled true"`
	AccessKey  string        `mapstructure:"access_key"`
	SecretKey  string        `mapstructure:"secret_key"`
	Bucket     string        `mapstructure:"bucket" validate:"required_if=Enabled true"`
	UseSSL     bool          `mapstructure:"use_ssl"`
	PresignTTL time.Duration `mapstructure:"presign_ttl"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=8"`
}

type TracingConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

type DiscoveryConfig struct {
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout" validate:"gt=0"`
	RecommendTimeout time.Duration `mapstructure:"recommend_timeout" validate:"gt=0"`
	MaxZoom          int           `mapstructure:"max_zoom" validate:"gte=1,lte=22"`
	ViewportWidthPx  int           `mapstructure:"viewport_width_px" validate:"gt=0"`
	ViewportHeightPx int           `mapstructure:"viewport_height_px" validate:"gt=0"`
	ClusterCellPx    int           `mapstructure:"cluster_cell_px" validate:"gt=0"`
	RateLimitRPS     float64       `mapstructure:"rate_limit_rps" validate:"gte=0"`
	RateLimitBurst   int           `mapstructure:"rate_limit_burst" validate:"gte=0"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "discovery-service")
	v.SetDefault("backend", "mongo")

	v.SetDefault("http.port", "8080")
	v.SetDefault("http.read_timeout", "10s")
	v.SetDefault("http.write_timeout", "15s")
	v.SetDefault("http.shutdown_timeout", "10s")
	v.SetDefault("grpc.port", "50056")
	v.SetDefault("metrics.port", "9096")

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "discovery_db")
	v.SetDefault("mongo.listings_collection", "listings")
	v.SetDefault("mongo.recommendations_collection", "recommendations")
	v.SetDefault("mongo.connect_timeout", "10s")

	v.SetDefault("sqlite.path", "discovery.db")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.page_ttl", "30s")

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.connect_timeout", "5s")

	v.SetDefault("minio.enabled", false)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.bucket", "listing-media")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.presign_ttl", "15m")

	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_file", "stdout")

	v.SetDefault("tracing.otlp_endpoint", "")

	v.SetDefault("discovery.fetch_timeout", "10s")
	v.SetDefault("discovery.recommend_timeout", "2s")
	v.SetDefault("discovery.max_zoom", 15)
	v.SetDefault("discovery.viewport_width_px", 1024)
	v.SetDefault("discovery.viewport_height_px", 768)
	v.SetDefault("discovery.cluster_cell_px", 60)
	v.SetDefault("discovery.rate_limit_rps", 20)
	v.SetDefault("discovery.rate_limit_burst", 40)
}

// Load reads configuration from defaults, an optional YAML file at path
// (a file or a directory holding config.yaml) and DISCOVERY_* environment
// variables, in increasing priority.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
			v.SetConfigFile(path)
		} else {
			v.AddConfigPath(path)
			v.SetConfigName("config")
			v.SetConfigType("yaml")
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("DISCOVERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config.Load: reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: unmarshal: %w", err)
	}
	cfg.Mongo.Enabled = cfg.Backend == "mongo"

	if err := validator.New().ValidateStruct(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}
