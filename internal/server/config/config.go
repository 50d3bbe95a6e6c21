// Package config contains all knobs and defaults used to configure the record service
// and its command line tools.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/dbcdk/rawrepo-record-service/pkg/agency"
)

const (
	DefaultDumpWorkers    = 4
	DefaultDumpMaxWorkers = 64

	DefaultHintsTimeout   = 5 * time.Second
	DefaultHintsRetryMax  = 3
	DefaultHintsCacheTTL  = 5 * time.Minute
	DefaultHintsCacheSize = 10_000

	HintsSourceStatic = "static"
	HintsSourceHTTP   = "http"
)

type DatastoreMetricsConfig struct {
	// Enabled enables export of the Datastore metrics.
	Enabled bool
}

// DatastoreConfig defines the connection to the record store.
type DatastoreConfig struct {
	// Engine is the datastore engine to use (e.g. 'memory', 'postgres', 'mysql', 'sqlite')
	Engine   string
	URI      string
	Username string
	Password string

	// MaxOpenConns is the maximum number of open connections to the database. Dumps hold
	// one connection per agency cursor on top of the record reads of the workers.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of connections to the datastore in the idle connection
	// pool.
	MaxIdleConns int

	// ConnMaxIdleTime is the maximum amount of time a connection to the datastore may be idle.
	ConnMaxIdleTime time.Duration

	// ConnMaxLifetime is the maximum amount of time a connection to the datastore may be reused.
	ConnMaxLifetime time.Duration

	// Metrics is configuration for the Datastore metrics.
	Metrics DatastoreMetricsConfig
}

// LogConfig defines log specific settings. For production we recommend using the 'json'
// log format.
type LogConfig struct {
	// Format is the log format to use in the log output (e.g. 'text' or 'json')
	Format string

	// Level is the log level to use in the log output (e.g. 'none', 'debug', or 'info')
	Level string
}

// HintsConfig defines where the per agency relation hints come from.
type HintsConfig struct {
	// Source is 'static' (derived from the agency table) or 'http' (the rule service).
	Source string
	URL    string

	Timeout  time.Duration
	RetryMax int

	// CacheTTL and CacheSize bound the cache in front of the rule service. A zero TTL
	// disables the cache.
	CacheTTL  time.Duration
	CacheSize int64

	// EnrichmentAgencies are the agencies using enrichments when Source is 'static'.
	EnrichmentAgencies []int
}

type DumpConfig struct {
	// Workers is the number of workers per agency cursor.
	Workers    int
	MaxWorkers int

	// Location is the default output: '-' for stdout, a file path or s3://bucket/key.
	Location string
}

// MetricConfig defines configurations for serving prometheus metrics.
type MetricConfig struct {
	Enabled bool
	Addr    string
}

type TraceConfig struct {
	Enabled     bool
	OTLP        OTLPTraceConfig `mapstructure:"otlp"`
	SampleRatio float64
	ServiceName string
}

type OTLPTraceConfig struct {
	Endpoint string
	TLS      OTLPTraceTLSConfig
}

type OTLPTraceTLSConfig struct {
	Enabled bool
}

type S3Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
}

type OutputConfig struct {
	S3 S3Config
}

type Config struct {
	Datastore DatastoreConfig
	Log       LogConfig
	Hints     HintsConfig
	Dump      DumpConfig
	Metrics   MetricConfig
	Trace     TraceConfig
	Output    OutputConfig
}

func (cfg *Config) Verify() error {
	switch cfg.Datastore.Engine {
	case "memory", "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("config 'datastore.engine' must be one of ['memory', 'postgres', 'mysql', 'sqlite']")
	}

	if cfg.Datastore.Engine != "memory" && cfg.Datastore.URI == "" {
		return errors.New("config 'datastore.uri' must be set for the '" + cfg.Datastore.Engine + "' engine")
	}

	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		return fmt.Errorf("config 'log.format' must be one of ['text', 'json']")
	}

	if cfg.Log.Level != "none" &&
		cfg.Log.Level != "debug" &&
		cfg.Log.Level != "info" &&
		cfg.Log.Level != "warn" &&
		cfg.Log.Level != "error" &&
		cfg.Log.Level != "panic" &&
		cfg.Log.Level != "fatal" {
		return fmt.Errorf(
			"config 'log.level' must be one of ['none', 'debug', 'info', 'warn', 'error', 'panic', 'fatal']",
		)
	}

	switch cfg.Hints.Source {
	case HintsSourceStatic:
	case HintsSourceHTTP:
		if cfg.Hints.URL == "" {
			return errors.New("config 'hints.url' must be set when 'hints.source' is 'http'")
		}
	default:
		return fmt.Errorf("config 'hints.source' must be one of ['static', 'http']")
	}
	if cfg.Hints.CacheTTL < 0 {
		return errors.New("config 'hints.cacheTTL' must not be negative")
	}
	if cfg.Hints.CacheTTL > 0 && cfg.Hints.CacheSize <= 0 {
		return errors.New("config 'hints.cacheSize' must be positive when the hints cache is enabled")
	}
	for _, a := range cfg.Hints.EnrichmentAgencies {
		if !agency.ValidID(a) {
			return fmt.Errorf("config 'hints.enrichmentAgencies' entry %s is not a six digit agency", strconv.Itoa(a))
		}
	}

	if cfg.Dump.Workers <= 0 {
		return errors.New("config 'dump.workers' must be positive")
	}
	if cfg.Dump.Workers > cfg.Dump.MaxWorkers {
		return fmt.Errorf(
			"config 'dump.workers' (%d) cannot be higher than 'dump.maxWorkers' config (%d)",
			cfg.Dump.Workers,
			cfg.Dump.MaxWorkers,
		)
	}
	if cfg.Datastore.Engine != "memory" && cfg.Datastore.MaxOpenConns > 0 && cfg.Datastore.MaxOpenConns <= cfg.Dump.Workers {
		return fmt.Errorf(
			"config 'datastore.maxOpenConns' (%d) must be higher than 'dump.workers' (%d)",
			cfg.Datastore.MaxOpenConns,
			cfg.Dump.Workers,
		)
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		return errors.New("config 'metrics.addr' must be set when metrics are enabled")
	}

	if cfg.Trace.Enabled && cfg.Trace.OTLP.Endpoint == "" {
		return errors.New("config 'trace.otlp.endpoint' must be set when tracing is enabled")
	}
	if cfg.Trace.SampleRatio < 0 || cfg.Trace.SampleRatio > 1 {
		return errors.New("config 'trace.sampleRatio' must be between 0 and 1")
	}

	return nil
}

// DefaultConfig is the configuration used when nothing else is given.
func DefaultConfig() *Config {
	return &Config{
		Datastore: DatastoreConfig{
			Engine:       "memory",
			MaxIdleConns: 10,
			MaxOpenConns: 30,
		},
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
		Hints: HintsConfig{
			Source:    HintsSourceStatic,
			Timeout:   DefaultHintsTimeout,
			RetryMax:  DefaultHintsRetryMax,
			CacheTTL:  DefaultHintsCacheTTL,
			CacheSize: DefaultHintsCacheSize,
		},
		Dump: DumpConfig{
			Workers:    DefaultDumpWorkers,
			MaxWorkers: DefaultDumpMaxWorkers,
			Location:   "-",
		},
		Metrics: MetricConfig{
			Enabled: false,
			Addr:    "0.0.0.0:2112",
		},
		Trace: TraceConfig{
			Enabled: false,
			OTLP: OTLPTraceConfig{
				Endpoint: "0.0.0.0:4317",
			},
			SampleRatio: 0.2,
			ServiceName: "rawrepo-record-service",
		},
		Output: OutputConfig{
			S3: S3Config{Region: "us-east-1"},
		},
	}
}

// MustDefaultConfig returns default config with metrics turned off and logging silenced.
func MustDefaultConfig() *Config {
	config := DefaultConfig()

	config.Metrics.Enabled = false
	config.Trace.Enabled = false
	config.Log.Level = "none"

	return config
}

// MustDefaultConfigWithRandomPorts returns MustDefaultConfig with a random metrics address.
// This function may panic if somehow a random port cannot be chosen.
func MustDefaultConfigWithRandomPorts() *Config {
	config := MustDefaultConfig()

	port, release := TCPRandomPort()
	defer release()
	config.Metrics.Addr = fmt.Sprintf("127.0.0.1:%d", port)

	return config
}

// TCPRandomPort tries to find a random TCP Port. If it can't find one, it panics. Else, it returns the port and a function that releases the port.
// It is the responsibility of the caller to call the release function right before trying to listen on the given port.
func TCPRandomPort() (int, func()) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		panic(err)
	}
	return l.Addr().(*net.TCPAddr).Port, func() {
		l.Close()
	}
}
