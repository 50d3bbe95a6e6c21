package storagewrappers

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dbcdk/rawrepo-record-service/internal/build"
	"github.com/dbcdk/rawrepo-record-service/pkg/record"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage"
)

var _ storage.RecordReader = (*BoundedConcurrencyRecordReader)(nil)

var timeWaitingHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: build.ProjectName,
	Name:      "time_waiting_for_record_reads",
	Help:      "Time (in ms) spent waiting for a free slot before reading records from the datastore",
	Buckets:   []float64{1, 10, 25, 50, 100, 1000, 5000}, // milliseconds
})

type BoundedConcurrencyRecordReader struct {
	storage.RecordReader
	limiter chan struct{}
}

// NewBoundedConcurrencyRecordReader returns a wrapper over a datastore that makes sure that there are, at most,
// n concurrent record reads. Dump workers and resolvers then share the connection pool
// instead of one of them hoarding it.
func NewBoundedConcurrencyRecordReader(wrapped storage.RecordReader, n uint32) *BoundedConcurrencyRecordReader {
	return &BoundedConcurrencyRecordReader{
		RecordReader: wrapped,
		limiter:      make(chan struct{}, n),
	}
}

func (b *BoundedConcurrencyRecordReader) acquire(ctx context.Context) error {
	start := time.Now()

	select {
	case b.limiter <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	timeWaiting := time.Since(start).Milliseconds()
	timeWaitingHistogram.Observe(float64(timeWaiting))
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.Int64("time_waiting", timeWaiting))
	return nil
}

func (b *BoundedConcurrencyRecordReader) release() {
	<-b.limiter
}

// RecordExists see [storage.RecordReader].RecordExists.
func (b *BoundedConcurrencyRecordReader) RecordExists(ctx context.Context, id record.RecordID, includeDeleted bool) (bool, error) {
	if err := b.acquire(ctx); err != nil {
		return false, err
	}
	defer b.release()

	return b.RecordReader.RecordExists(ctx, id, includeDeleted)
}

// ReadRecord see [storage.RecordReader].ReadRecord.
func (b *BoundedConcurrencyRecordReader) ReadRecord(ctx context.Context, id record.RecordID) (*record.Record, error) {
	if err := b.acquire(ctx); err != nil {
		return nil, err
	}
	defer b.release()

	return b.RecordReader.ReadRecord(ctx, id)
}

// ReadRecords see [storage.RecordReader].ReadRecords.
func (b *BoundedConcurrencyRecordReader) ReadRecords(ctx context.Context, ids []record.RecordID) (map[record.RecordID]*record.Record, error) {
	if err := b.acquire(ctx); err != nil {
		return nil, err
	}
	defer b.release()

	return b.RecordReader.ReadRecords(ctx, ids)
}

// ReadAgenciesFor see [storage.RecordReader].ReadAgenciesFor.
func (b *BoundedConcurrencyRecordReader) ReadAgenciesFor(ctx context.Context, bibliographicRecordID string) ([]int, error) {
	if err := b.acquire(ctx); err != nil {
		return nil, err
	}
	defer b.release()

	return b.RecordReader.ReadAgenciesFor(ctx, bibliographicRecordID)
}
