// Package service contains the commands that read records through the record service:
// dump, record and relations. They share the datastore, hints and logging configuration.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/dbcdk/rawrepo-record-service/cmd/util"
	serverconfig "github.com/dbcdk/rawrepo-record-service/internal/server/config"
	"github.com/dbcdk/rawrepo-record-service/pkg/agency"
	"github.com/dbcdk/rawrepo-record-service/pkg/hints"
	"github.com/dbcdk/rawrepo-record-service/pkg/logger"
	"github.com/dbcdk/rawrepo-record-service/pkg/server"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage/memory"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage/mysql"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage/postgres"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage/sqlcommon"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage/sqlite"
	"github.com/dbcdk/rawrepo-record-service/pkg/telemetry"
)

// addConfigFlags adds the flags every service command shares.
func addConfigFlags(flags *pflag.FlagSet) {
	defaultConfig := serverconfig.DefaultConfig()

	flags.String("datastore-engine", defaultConfig.Datastore.Engine, "the datastore engine that will be used for persistence")
	flags.String("datastore-uri", defaultConfig.Datastore.URI, "the connection uri to use to connect to the datastore (for any engine other than 'memory')")
	flags.String("datastore-username", "", "the connection username to use to connect to the datastore (overwrites any username provided in the connection uri)")
	flags.String("datastore-password", "", "the connection password to use to connect to the datastore (overwrites any password provided in the connection uri)")
	flags.Int("datastore-max-open-conns", defaultConfig.Datastore.MaxOpenConns, "the maximum number of open connections to the datastore")
	flags.Int("datastore-max-idle-conns", defaultConfig.Datastore.MaxIdleConns, "the maximum number of connections to the datastore in the idle connection pool")
	flags.Duration("datastore-conn-max-idle-time", 0, "the maximum amount of time a connection to the datastore may be idle")
	flags.Duration("datastore-conn-max-lifetime", 0, "the maximum amount of time a connection to the datastore may be reused")
	flags.Bool("datastore-metrics-enabled", defaultConfig.Datastore.Metrics.Enabled, "enable/disable sql metrics")

	flags.String("log-format", defaultConfig.Log.Format, "the log format to output logs in. For production we recommend 'json' format")
	flags.String("log-level", defaultConfig.Log.Level, "the log level to use")

	flags.String("hints-source", defaultConfig.Hints.Source, "where agency relation hints come from: 'static' or 'http'")
	flags.String("hints-url", defaultConfig.Hints.URL, "the base url of the rule service when hints-source is 'http'")
	flags.Duration("hints-timeout", defaultConfig.Hints.Timeout, "the timeout of a single rule service request")
	flags.Duration("hints-cache-ttl", defaultConfig.Hints.CacheTTL, "how long rule service answers are cached. 0 disables the cache")
	flags.IntSlice("hints-enrichment-agencies", defaultConfig.Hints.EnrichmentAgencies, "the agencies that use enrichments when hints-source is 'static'")

	flags.Bool("trace-enabled", defaultConfig.Trace.Enabled, "enable tracing")
	flags.String("trace-otlp-endpoint", defaultConfig.Trace.OTLP.Endpoint, "the endpoint of the trace collector")
	flags.Bool("trace-otlp-tls-enabled", defaultConfig.Trace.OTLP.TLS.Enabled, "use TLS connection for trace collector")
	flags.Float64("trace-sample-ratio", defaultConfig.Trace.SampleRatio, "the fraction of traces to sample. 1 means all, 0 means none")
	flags.String("trace-service-name", defaultConfig.Trace.ServiceName, "the service name included in sampled traces")
}

// bindConfigFlags binds the cobra cmd flags to the equivalent config value being managed
// by viper. This bridges the config between cobra flags and viper flags.
func bindConfigFlags(command *cobra.Command) {
	flags := command.Flags()

	util.MustBindFlagAndEnv(flags, "datastore.engine", "datastore-engine")
	util.MustBindFlagAndEnv(flags, "datastore.uri", "datastore-uri")
	util.MustBindFlagAndEnv(flags, "datastore.username", "datastore-username")
	util.MustBindFlagAndEnv(flags, "datastore.password", "datastore-password")
	util.MustBindFlagAndEnv(flags, "datastore.maxOpenConns", "datastore-max-open-conns")
	util.MustBindFlagAndEnv(flags, "datastore.maxIdleConns", "datastore-max-idle-conns")
	util.MustBindFlagAndEnv(flags, "datastore.connMaxIdleTime", "datastore-conn-max-idle-time")
	util.MustBindFlagAndEnv(flags, "datastore.connMaxLifetime", "datastore-conn-max-lifetime")
	util.MustBindFlagAndEnv(flags, "datastore.metrics.enabled", "datastore-metrics-enabled")

	util.MustBindFlagAndEnv(flags, "log.format", "log-format")
	util.MustBindFlagAndEnv(flags, "log.level", "log-level")

	util.MustBindFlagAndEnv(flags, "hints.source", "hints-source")
	util.MustBindFlagAndEnv(flags, "hints.url", "hints-url")
	util.MustBindFlagAndEnv(flags, "hints.timeout", "hints-timeout")
	util.MustBindFlagAndEnv(flags, "hints.cacheTTL", "hints-cache-ttl")
	util.MustBindFlagAndEnv(flags, "hints.enrichmentAgencies", "hints-enrichment-agencies")

	util.MustBindFlagAndEnv(flags, "trace.enabled", "trace-enabled")
	util.MustBindFlagAndEnv(flags, "trace.otlp.endpoint", "trace-otlp-endpoint")
	util.MustBindFlagAndEnv(flags, "trace.otlp.tls.enabled", "trace-otlp-tls-enabled")
	util.MustBindFlagAndEnv(flags, "trace.sampleRatio", "trace-sample-ratio")
	util.MustBindFlagAndEnv(flags, "trace.serviceName", "trace-service-name")
}

// ReadConfig returns the record service configuration based on the values provided in the
// 'config.yaml' file, the environment and the flags. If no configuration file is present,
// the default values are used.
func ReadConfig() (*serverconfig.Config, error) {
	config := serverconfig.DefaultConfig()

	viper.SetTypeByDefaultValue(true)
	err := viper.ReadInConfig()
	if err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return config, nil
}

// ServerContext builds the record service from a configuration.
type ServerContext struct {
	Logger logger.Logger
}

// NewServerContext reads and verifies the configuration and creates the logger it names.
func NewServerContext() (*ServerContext, *serverconfig.Config, error) {
	config, err := ReadConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := config.Verify(); err != nil {
		return nil, nil, err
	}

	log, err := logger.NewLogger(config.Log.Format, config.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	return &ServerContext{Logger: log}, config, nil
}

func (s *ServerContext) datastoreConfig(config *serverconfig.Config) (storage.RawRepoDatastore, error) {
	datastoreOptions := []sqlcommon.DatastoreOption{
		sqlcommon.WithUsername(config.Datastore.Username),
		sqlcommon.WithPassword(config.Datastore.Password),
		sqlcommon.WithLogger(s.Logger),
		sqlcommon.WithMaxOpenConns(config.Datastore.MaxOpenConns),
		sqlcommon.WithMaxIdleConns(config.Datastore.MaxIdleConns),
		sqlcommon.WithConnMaxIdleTime(config.Datastore.ConnMaxIdleTime),
		sqlcommon.WithConnMaxLifetime(config.Datastore.ConnMaxLifetime),
	}

	if config.Datastore.Metrics.Enabled {
		datastoreOptions = append(datastoreOptions, sqlcommon.WithMetrics())
	}

	dsCfg := sqlcommon.NewConfig(datastoreOptions...)

	var datastore storage.RawRepoDatastore
	var err error
	switch config.Datastore.Engine {
	case "memory":
		datastore = memory.New()
	case "mysql":
		datastore, err = mysql.New(config.Datastore.URI, dsCfg)
		if err != nil {
			return nil, fmt.Errorf("initialize mysql datastore: %w", err)
		}
	case "postgres":
		datastore, err = postgres.New(config.Datastore.URI, dsCfg)
		if err != nil {
			return nil, fmt.Errorf("initialize postgres datastore: %w", err)
		}
	case "sqlite":
		datastore, err = sqlite.New(config.Datastore.URI, dsCfg)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite datastore: %w", err)
		}
	default:
		return nil, fmt.Errorf("storage engine '%s' is unsupported", config.Datastore.Engine)
	}

	s.Logger.Debug(fmt.Sprintf("using '%v' storage engine", config.Datastore.Engine))

	return datastore, nil
}

func (s *ServerContext) hintsConfig(config *serverconfig.Config) (hints.Provider, error) {
	if config.Hints.Source == serverconfig.HintsSourceStatic {
		return hints.NewStaticProvider(
			hints.WithPolicy(agency.Default),
			hints.WithEnrichmentAgencies(config.Hints.EnrichmentAgencies...),
		), nil
	}

	client := hints.NewClient(config.Hints.URL,
		hints.WithTimeout(config.Hints.Timeout),
		hints.WithRetryMax(config.Hints.RetryMax),
		hints.WithLogger(s.Logger))
	if config.Hints.CacheTTL == 0 {
		return client, nil
	}
	return hints.NewCachedProvider(client, config.Hints.CacheSize, config.Hints.CacheTTL)
}

// NewServer opens the datastore and hints provider of config. The caller closes the server.
func (s *ServerContext) NewServer(ctx context.Context, config *serverconfig.Config) (*server.Server, error) {
	datastore, err := s.datastoreConfig(config)
	if err != nil {
		return nil, err
	}

	hintsProvider, err := s.hintsConfig(config)
	if err != nil {
		datastore.Close()
		return nil, err
	}

	// leave one connection for the dump cursor
	var maxConcurrentReads uint32
	if config.Datastore.Engine != "memory" && config.Datastore.MaxOpenConns > 1 {
		maxConcurrentReads = uint32(config.Datastore.MaxOpenConns - 1)
	}

	srv := server.New(&server.Dependencies{
		Datastore: datastore,
		Hints:     hintsProvider,
		Logger:    s.Logger,
	}, &server.Config{
		Policy:             agency.Default,
		DumpWorkers:        config.Dump.Workers,
		MaxConcurrentReads: maxConcurrentReads,
	})

	ready, err := srv.IsReady(ctx)
	if err != nil {
		srv.Close()
		return nil, err
	}
	if !ready {
		srv.Close()
		return nil, fmt.Errorf("datastore '%s' is not ready", config.Datastore.Engine)
	}
	return srv, nil
}

// startTracing installs the OTLP tracer provider when tracing is enabled. The returned
// function flushes the buffered spans.
func (s *ServerContext) startTracing(config *serverconfig.Config) func() {
	if !config.Trace.Enabled {
		return func() {}
	}

	s.Logger.Info(fmt.Sprintf("🕵 tracing enabled: sampling ratio is %v and sending traces to '%s', tls: %t",
		config.Trace.SampleRatio, config.Trace.OTLP.Endpoint, config.Trace.OTLP.TLS.Enabled))

	options := []telemetry.TracerOption{
		telemetry.WithOTLPEndpoint(config.Trace.OTLP.Endpoint),
		telemetry.WithServiceName(config.Trace.ServiceName),
		telemetry.WithSamplingRatio(config.Trace.SampleRatio),
	}
	if !config.Trace.OTLP.TLS.Enabled {
		options = append(options, telemetry.WithOTLPInsecure())
	}
	tp := telemetry.MustNewTracerProvider(options...)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.ForceFlush(ctx); err != nil {
			s.Logger.Warn("failed to flush traces", zap.Error(err))
		}
		if err := tp.Shutdown(ctx); err != nil {
			s.Logger.Warn("failed to shutdown the tracer provider", zap.Error(err))
		}
	}
}

// startMetricsServer serves the prometheus metrics on addr until the returned function is called.
func (s *ServerContext) startMetricsServer(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	metricsServer := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		s.Logger.Info(fmt.Sprintf("📈 starting prometheus metrics server on '%s'", addr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Error("failed to start prometheus metrics server", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(ctx); err != nil {
			s.Logger.Info("failed to shutdown the prometheus metrics server", zap.Error(err))
		}
	}
}
