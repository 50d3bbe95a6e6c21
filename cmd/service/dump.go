package service

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dbcdk/rawrepo-record-service/cmd/util"
	"github.com/dbcdk/rawrepo-record-service/internal/dump"
	serverconfig "github.com/dbcdk/rawrepo-record-service/internal/server/config"
)

const (
	agenciesFlag     = "agencies"
	modeFlag         = "mode"
	recordTypeFlag   = "record-type"
	recordStatusFlag = "record-status"
	createdFromFlag  = "created-from"
	createdToFlag    = "created-to"
	modifiedFromFlag = "modified-from"
	modifiedToFlag   = "modified-to"
	limitFlag        = "limit"
	formatFlag       = "format"
	encodingFlag     = "encoding"
	keepAutFlag      = "keep-aut-fields"
	workersFlag      = "workers"
	outputFlag       = "output"
	metricsAddrFlag  = "metrics-addr"
)

func NewDumpCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Dump every record of one or more agencies",
		Long: `Dump every record of one or more agencies to standard output, a file or an s3://bucket/key object.

Agencies are dumped one after the other. The rows of an agency are read through a single
datastore cursor and merged, serialized and written by a number of concurrent workers.`,
		Example: `rawrepo dump --agencies 870970 --format LINE --output dump.txt
rawrepo dump --agencies 710100 --record-type LOCAL,ENRICHMENT --mode expanded --output s3://dumps/710100.xml`,
		RunE: runDump,
		Args: cobra.NoArgs,
	}

	defaultConfig := serverconfig.DefaultConfig()
	flags := cmd.Flags()
	addConfigFlags(flags)

	flags.IntSlice(agenciesFlag, nil, "(required) the agencies to dump. The DBC enrichment agency 191919 must be dumped alone")
	flags.String(modeFlag, string(dump.ModeMerged), "'raw', 'merged' or 'expanded'")
	flags.StringSlice(recordTypeFlag, nil, "the record types of FBS agencies to dump: LOCAL, ENRICHMENT and/or HOLDINGS")
	flags.String(recordStatusFlag, "ACTIVE", "ACTIVE, DELETED or ALL")
	flags.String(createdFromFlag, "", "only records created at or after this date (yyyy-mm-dd[ hh:mm:ss])")
	flags.String(createdToFlag, "", "only records created at or before this date (yyyy-mm-dd[ hh:mm:ss])")
	flags.String(modifiedFromFlag, "", "only records modified at or after this date (yyyy-mm-dd[ hh:mm:ss])")
	flags.String(modifiedToFlag, "", "only records modified at or before this date (yyyy-mm-dd[ hh:mm:ss])")
	flags.Int(limitFlag, 0, "the maximum number of rows per agency. 0 means no limit")
	flags.String(formatFlag, string(dump.FormatXML), "XML, LINE, JSON, ISO or LINE_XML")
	flags.String(encodingFlag, "UTF-8", "the output charset: any IANA name or DANMARC2")
	flags.Bool(keepAutFlag, false, "keep the authority link subfields of expanded records")

	flags.Int(workersFlag, defaultConfig.Dump.Workers, "the number of workers per agency")
	flags.String(outputFlag, defaultConfig.Dump.Location, "'-' for standard output, a file path or s3://bucket/key")
	flags.String(metricsAddrFlag, defaultConfig.Metrics.Addr, "serve prometheus metrics on this host:port while the dump runs")

	cmd.MarkFlagRequired(agenciesFlag) //nolint:errcheck

	// NOTE: if you add a new flag here, update the function below, too

	cmd.PreRun = bindDumpFlags

	return cmd
}

func bindDumpFlags(command *cobra.Command, _ []string) {
	bindConfigFlags(command)
	flags := command.Flags()

	util.MustBindFlagAndEnv(flags, "dump.workers", workersFlag)
	util.MustBindFlagAndEnv(flags, "dump.location", outputFlag)
	util.MustBindFlagAndEnv(flags, "metrics.addr", metricsAddrFlag)
	util.MustBindEnv("metrics.enabled", "RAWREPO_METRICS_ENABLED")

	util.MustBindEnv("output.s3.region", "RAWREPO_OUTPUT_S3_REGION", "AWS_REGION")
	util.MustBindEnv("output.s3.endpoint", "RAWREPO_OUTPUT_S3_ENDPOINT")
	util.MustBindEnv("output.s3.accessKeyID", "RAWREPO_OUTPUT_S3_ACCESS_KEY_ID")
	util.MustBindEnv("output.s3.secretAccessKey", "RAWREPO_OUTPUT_S3_SECRET_ACCESS_KEY")
	util.MustBindEnv("output.s3.pathStyle", "RAWREPO_OUTPUT_S3_PATH_STYLE")
}

func dumpParams(cmd *cobra.Command) dump.Params {
	flags := cmd.Flags()
	// the flags are registered by NewDumpCommand, so lookups cannot fail
	agencies, _ := flags.GetIntSlice(agenciesFlag)
	recordTypes, _ := flags.GetStringSlice(recordTypeFlag)
	mode, _ := flags.GetString(modeFlag)
	status, _ := flags.GetString(recordStatusFlag)
	createdFrom, _ := flags.GetString(createdFromFlag)
	createdTo, _ := flags.GetString(createdToFlag)
	modifiedFrom, _ := flags.GetString(modifiedFromFlag)
	modifiedTo, _ := flags.GetString(modifiedToFlag)
	limit, _ := flags.GetInt(limitFlag)
	format, _ := flags.GetString(formatFlag)
	encoding, _ := flags.GetString(encodingFlag)
	keepAut, _ := flags.GetBool(keepAutFlag)

	return dump.Params{
		Agencies:            agencies,
		Mode:                mode,
		RecordTypes:         recordTypes,
		RecordStatus:        status,
		CreatedFrom:         createdFrom,
		CreatedTo:           createdTo,
		ModifiedFrom:        modifiedFrom,
		ModifiedTo:          modifiedTo,
		Limit:               limit,
		Format:              format,
		Encoding:            encoding,
		KeepAuthorityFields: keepAut,
	}
}

func runDump(cmd *cobra.Command, _ []string) error {
	s, config, err := NewServerContext()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed(metricsAddrFlag) {
		config.Metrics.Enabled = true
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if config.Metrics.Enabled {
		stopMetrics := s.startMetricsServer(config.Metrics.Addr)
		defer stopMetrics()
	}
	stopTracing := s.startTracing(config)
	defer stopTracing()

	srv, err := s.NewServer(ctx, config)
	if err != nil {
		return err
	}
	defer srv.Close()

	params := dumpParams(cmd)
	if err := srv.ValidateDump(ctx, params); err != nil {
		return err
	}

	sink, err := dump.OpenSink(ctx, config.Dump.Location,
		dump.WithStdout(cmd.OutOrStdout()),
		dump.WithS3Config(dump.S3Config{
			Region:          config.Output.S3.Region,
			Endpoint:        config.Output.S3.Endpoint,
			AccessKeyID:     config.Output.S3.AccessKeyID,
			SecretAccessKey: config.Output.S3.SecretAccessKey,
			PathStyle:       config.Output.S3.PathStyle,
		}))
	if err != nil {
		return err
	}

	result, err := srv.Dump(ctx, params, sink)
	if closeErr := sink.Close(ctx); closeErr != nil {
		err = errors.Join(err, closeErr)
	}
	if err != nil {
		return err
	}

	s.Logger.Info("dump written",
		zap.String("location", sink.Location()),
		zap.String("dump_id", result.DumpID),
		zap.Int64("records", result.Records),
		zap.Duration("duration", result.Duration))
	return nil
}
