// Package dump streams every record of one or more agencies to a single output. Each
// agency is read through one datastore cursor shared by a fixed number of workers
// that merge, serialize and write the rows concurrently.
package dump

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dbcdk/rawrepo-record-service/internal/build"
	"github.com/dbcdk/rawrepo-record-service/internal/expand"
	"github.com/dbcdk/rawrepo-record-service/internal/merger"
	"github.com/dbcdk/rawrepo-record-service/pkg/agency"
	"github.com/dbcdk/rawrepo-record-service/pkg/hints"
	"github.com/dbcdk/rawrepo-record-service/pkg/id"
	"github.com/dbcdk/rawrepo-record-service/pkg/logger"
	"github.com/dbcdk/rawrepo-record-service/pkg/record"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage"
	"github.com/dbcdk/rawrepo-record-service/pkg/telemetry"
)

var tracer = otel.Tracer("rawrepo/internal/dump")

var (
	dumpRecordsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "dump_records_total",
		Help:      "The total number of dumped rows, by agency type and outcome.",
	}, []string{"agency_type", "outcome"})

	dumpWorkerExitsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "dump_worker_exits_total",
		Help:      "The total number of dump workers that stopped, by reason.",
	}, []string{"reason"})

	dumpDurationHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: build.ProjectName,
		Name:      "dump_duration_seconds",
		Help:      "Duration of complete dump requests.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 14),
	})
)

const (
	DefaultWorkers = 4

	exitDone  = "done"
	exitError = "error"
)

// Dumper runs dump requests. It is safe for concurrent use.
type Dumper struct {
	store    storage.DumpReader
	engine   *merger.Engine
	expander *expand.Expander
	hints    hints.Provider
	policy   agency.Policy
	workers  int
	logger   logger.Logger
}

type DumperOption func(*Dumper)

// WithWorkers sets the number of workers per agency. Values below one are ignored.
func WithWorkers(n int) DumperOption {
	return func(d *Dumper) {
		if n > 0 {
			d.workers = n
		}
	}
}

func WithLogger(l logger.Logger) DumperOption {
	return func(d *Dumper) {
		d.logger = l
	}
}

func NewDumper(store storage.DumpReader, engine *merger.Engine, expander *expand.Expander, opts ...DumperOption) *Dumper {
	d := &Dumper{
		store:    store,
		engine:   engine,
		expander: expander,
		hints:    engine.Resolver().Hints(),
		policy:   engine.Resolver().Policy(),
		workers:  DefaultWorkers,
		logger:   logger.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AgencyResult counts the rows of one agency.
type AgencyResult struct {
	AgencyID    int
	Type        agency.Type
	Processed   int64
	Skipped     int64
	Failed      int64
	WorkerExits map[string]int64
}

// Result summarizes a dump.
type Result struct {
	DumpID   string
	Agencies []*AgencyResult
	Records  int64
	Duration time.Duration
}

// Validate checks params without touching the datastore.
func (d *Dumper) Validate(ctx context.Context, params Params) (*Request, error) {
	return params.Validate(ctx, d.hints, d.policy)
}

// Run validates params and dumps every requested agency to out. Validation errors are
// returned before the datastore is used. A worker that fails logs the error and stops;
// the remaining workers carry on and the failure only shows in the result.
func (d *Dumper) Run(ctx context.Context, params Params, out io.Writer) (*Result, error) {
	req, err := d.Validate(ctx, params)
	if err != nil {
		return nil, err
	}

	dumpID, err := id.NewDumpID()
	if err != nil {
		return nil, err
	}
	ctx = logger.ContextWithFields(ctx, zap.String("dump_id", dumpID))
	ctx, span := tracer.Start(ctx, "dump.Run", trace.WithAttributes(attribute.String("dump_id", dumpID)))
	defer span.End()

	start := time.Now()
	result := &Result{DumpID: dumpID}
	w := NewWriter(out, req.Format, req.Charset)

	if err := w.WriteHeader(); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	var runErr error
	for _, a := range req.Agencies {
		ar, err := d.dumpAgency(ctx, req, a, w)
		if ar != nil {
			result.Agencies = append(result.Agencies, ar)
		}
		if err != nil {
			runErr = err
			break
		}
	}

	if err := w.WriteFooter(); err != nil && runErr == nil {
		runErr = fmt.Errorf("write footer: %w", err)
	}

	result.Records = w.Records()
	result.Duration = time.Since(start)
	dumpDurationHistogram.Observe(result.Duration.Seconds())

	d.logger.InfoWithContext(ctx, "dump finished",
		zap.Int64("records", result.Records),
		zap.Duration("duration", result.Duration),
		zap.Any("agencies", result.Agencies))

	if runErr != nil {
		telemetry.TraceError(span, runErr)
	}
	return result, runErr
}

func (d *Dumper) dumpAgency(ctx context.Context, req *Request, a AgencyRequest, w *Writer) (*AgencyResult, error) {
	ctx = logger.ContextWithFields(ctx, zap.Int("agency_id", a.AgencyID))
	ctx, span := tracer.Start(ctx, "dump.dumpAgency", trace.WithAttributes(
		attribute.Int("agency_id", a.AgencyID),
		attribute.String("agency_type", a.Type.String()),
	))
	defer span.End()

	iter, err := d.store.ReadDump(ctx, req.Query(a))
	if err != nil {
		return nil, fmt.Errorf("open cursor for agency %d: %w", a.AgencyID, err)
	}
	defer iter.Stop()

	stats := &workerStats{}

	p := pool.New().WithMaxGoroutines(d.workers)
	for i := 0; i < d.workers; i++ {
		worker := i
		p.Go(func() {
			wctx := logger.ContextWithFields(ctx, zap.Int("worker", worker))
			if reason := d.work(wctx, req, a, iter, w, stats); reason == exitError {
				stats.exitsError.Add(1)
			} else {
				stats.exitsDone.Add(1)
			}
		})
	}
	p.Wait()

	return &AgencyResult{
		AgencyID:  a.AgencyID,
		Type:      a.Type,
		Processed: stats.processed.Load(),
		Skipped:   stats.skipped.Load(),
		Failed:    stats.failed.Load(),
		WorkerExits: map[string]int64{
			exitDone:  stats.exitsDone.Load(),
			exitError: stats.exitsError.Load(),
		},
	}, nil
}

type workerStats struct {
	processed  atomic.Int64
	skipped    atomic.Int64
	failed     atomic.Int64
	exitsDone  atomic.Int64
	exitsError atomic.Int64
}

// work pulls rows until the cursor is exhausted or a row fails. It returns why it stopped.
func (d *Dumper) work(ctx context.Context, req *Request, a AgencyRequest, iter storage.DumpIterator, w *Writer, stats *workerStats) string {
	agencyType := a.Type.String()
	for {
		row, err := iter.Next(ctx)
		if err != nil {
			if errors.Is(err, storage.ErrIteratorDone) {
				dumpWorkerExitsCounter.WithLabelValues(exitDone).Inc()
				return exitDone
			}
			d.logger.ErrorWithContext(ctx, "reading dump cursor failed", zap.Error(err))
			dumpWorkerExitsCounter.WithLabelValues(exitError).Inc()
			return exitError
		}

		rec, err := d.process(ctx, req, a, row)
		if err == nil && rec != nil {
			err = w.WriteRecord(rec)
		}
		if err != nil {
			stats.failed.Add(1)
			dumpRecordsCounter.WithLabelValues(agencyType, "failed").Inc()
			d.logger.ErrorWithContext(ctx, "dumping record failed",
				zap.String("record_id", row.BibliographicRecordID+":"+strconv.Itoa(row.AgencyID)),
				zap.Error(err))
			dumpWorkerExitsCounter.WithLabelValues(exitError).Inc()
			return exitError
		}
		if rec == nil {
			stats.skipped.Add(1)
			dumpRecordsCounter.WithLabelValues(agencyType, "skipped").Inc()
			continue
		}
		stats.processed.Add(1)
		dumpRecordsCounter.WithLabelValues(agencyType, "written").Inc()
	}
}

// process turns a cursor row into the record to write. A nil record is skipped.
func (d *Dumper) process(ctx context.Context, req *Request, a AgencyRequest, row *storage.DumpRow) (*record.Record, error) {
	if req.Mode == ModeRaw {
		return rawRecord(a, row), nil
	}

	var (
		rec *record.Record
		err error
	)
	switch a.Type {
	case agency.TypeDBC:
		rec, err = d.merge(row.AgencyID, row.Common, row.Local)
	case agency.TypeFBS:
		switch {
		case row.Common != nil && row.Local != nil:
			rec, err = d.merge(row.AgencyID, row.Common, row.Local)
		case row.Local != nil:
			rec = row.Local
		default:
			rec = row.Common
		}
	default:
		rec = row.Local
	}
	if err != nil || rec == nil {
		return nil, err
	}

	if req.Mode == ModeExpanded {
		return d.expander.Expand(ctx, rec, req.KeepAuthorityFields)
	}
	return rec, nil
}

// merge folds local onto base. The result carries the dumped agency's id.
func (d *Dumper) merge(agencyID int, base, local *record.Record) (*record.Record, error) {
	if base == nil {
		return local, nil
	}
	chain := []*record.Record{base}
	if local != nil {
		chain = append(chain, local)
	}
	merged, err := d.engine.DefaultPolicy().Fold(chain, agencyID)
	if err != nil {
		return nil, err
	}
	merged.ID = record.NewRecordID(base.ID.BibliographicRecordID, agencyID)
	return merged, nil
}

// rawRecord is the stored record the row is about: the agency's own record when it has
// one, otherwise the common record it holds.
func rawRecord(a AgencyRequest, row *storage.DumpRow) *record.Record {
	if a.Type == agency.TypeDBC {
		return row.Common
	}
	if row.Local != nil {
		return row.Local
	}
	return row.Common
}
