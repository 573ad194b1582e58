package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/edgeflare/etlm/pkg/kafka"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Version is overridden at build time with -ldflags "-X github.com/edgeflare/etlm/pkg/config.Version=..."
var Version = "dev"

const EnvPrefix = "ETLM"

// EnvFile is read from the working directory, when present, before the environment is consulted.
const EnvFile = ".env"

// Config holds application-wide configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Store    StoreConfig    `mapstructure:"store"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Kafka    kafka.Config   `mapstructure:"kafka"`
}

type ServerConfig struct {
	ListenAddr  string   `mapstructure:"listenAddr"`
	APIPrefix   string   `mapstructure:"apiPrefix"`
	TLSCert     string   `mapstructure:"tlsCert"`
	TLSKey      string   `mapstructure:"tlsKey"`
	CORSOrigins []string `mapstructure:"corsOrigins"`
}

type PostgresConfig struct {
	ConnString     string        `mapstructure:"connString"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	Host           string        `mapstructure:"host"`
	DB             string        `mapstructure:"db"`
	Port           int           `mapstructure:"port"`
	ConnectTimeout time.Duration `mapstructure:"connectTimeout"`
	Migrate        bool          `mapstructure:"migrate"`
}

// ConnectionString returns ConnString when set, otherwise builds a URL from the parts.
func (p PostgresConfig) ConnectionString() string {
	if p.ConnString != "" {
		return p.ConnString
	}
	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(p.User, p.Password),
		Host:   net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:   "/" + p.DB,
	}
	return u.String()
}

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

type UpstreamConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	PingTimeout time.Duration `mapstructure:"pingTimeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type MetricsConfig struct {
	Addr    string `mapstructure:"addr"`
	Enabled bool   `mapstructure:"enabled"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listenAddr", ":8000")
	v.SetDefault("server.apiPrefix", "/api/v1")
	v.SetDefault("server.corsOrigins", []string{"http://localhost:5173", "http://localhost:3000"})
	v.SetDefault("server.tlsCert", "")
	v.SetDefault("server.tlsKey", "")

	v.SetDefault("postgres.connString", "")
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "password")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.db", "etl_manager")
	v.SetDefault("postgres.connectTimeout", 30*time.Second)
	v.SetDefault("postgres.migrate", true)

	v.SetDefault("store.driver", StoreDriverPostgres)

	v.SetDefault("upstream.timeout", 30*time.Second)
	v.SetDefault("upstream.pingTimeout", 5*time.Second)

	k := kafka.DefaultConfig()
	v.SetDefault("kafka.version", k.Version)
	v.SetDefault("kafka.clientID", k.ClientID)
	v.SetDefault("kafka.timeout", k.Timeout)
	v.SetDefault("kafka.partitions", k.Partitions)
	v.SetDefault("kafka.replicas", k.Replicas)
	v.SetDefault("kafka.retentionMs", k.RetentionMS)
	v.SetDefault("kafka.ensureTopics", true)
	v.SetDefault("kafka.sasl.enable", false)
	v.SetDefault("kafka.sasl.algorithm", "sha512")
	v.SetDefault("kafka.sasl.username", "")
	v.SetDefault("kafka.sasl.password", "")
	v.SetDefault("kafka.tls.enable", false)
	v.SetDefault("kafka.tls.skipVerify", false)
	v.SetDefault("kafka.tls.certFile", "")
	v.SetDefault("kafka.tls.keyFile", "")
	v.SetDefault("kafka.tls.caFile", "")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9100")

	v.SetDefault("log.level", "info")
}

// Load reads config from file, environment (ETLM_SERVER_LISTENADDR etc.) and flags, in
// increasing order of precedence. flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// variables already in the environment take precedence over .env
	if err := godotenv.Load(EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading %s: %w", EnvFile, err)
	}

	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("etlm")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config"))
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values that would fail later at startup.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("invalid store.driver %q: want %s or %s", c.Store.Driver, StoreDriverPostgres, StoreDriverMemory)
	}
	if c.Server.APIPrefix != "" && !strings.HasPrefix(c.Server.APIPrefix, "/") {
		return fmt.Errorf("server.apiPrefix must start with /: %q", c.Server.APIPrefix)
	}
	if _, err := c.Log.ZapLevel(); err != nil {
		return err
	}
	return nil
}

// ZapLevel parses the configured level. "none" is reported as a level above fatal.
func (l LogConfig) ZapLevel() (zapcore.Level, error) {
	if strings.EqualFold(l.Level, "none") {
		return zapcore.InvalidLevel, nil
	}
	lvl, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return lvl, fmt.Errorf("invalid log.level: %w", err)
	}
	return lvl, nil
}

// NewLogger builds a production JSON logger at the configured level, or a no-op logger for "none".
func (l LogConfig) NewLogger() (*zap.Logger, error) {
	lvl, err := l.ZapLevel()
	if err != nil {
		return nil, err
	}
	if lvl == zapcore.InvalidLevel {
		return zap.NewNop(), nil
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}
