package storagewrappers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dbcdk/rawrepo-record-service/pkg/record"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage/memory"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage/mocks"
)

func TestBoundedConcurrencyWrapper(t *testing.T) {
	ctx := context.Background()
	id := record.NewRecordID("11111111", 870970)

	t.Logf("create a slow backend that takes 100ms per record read")
	slowBackend := mocks.NewMockSlowDataStorage(memory.New(), 100*time.Millisecond)

	t.Logf("write a record")
	err := slowBackend.WriteRecord(ctx, &record.Record{ID: id, MimeType: record.MimeTypeMarcXchange})
	require.NoError(t, err)

	t.Logf("create a limited record reader that allows 1 concurrent read a time")
	limited := NewBoundedConcurrencyRecordReader(slowBackend, 1)

	t.Logf("read the record from 3 goroutines: each should be run serially")
	var wg sync.WaitGroup
	wg.Add(3)

	start := time.Now()

	go func() {
		defer wg.Done()
		_, err := limited.ReadRecord(ctx, id)
		require.NoError(t, err)
	}()

	go func() {
		defer wg.Done()
		exists, err := limited.RecordExists(ctx, id, false)
		require.NoError(t, err)
		require.True(t, exists)
	}()

	go func() {
		defer wg.Done()
		agencies, err := limited.ReadAgenciesFor(ctx, id.BibliographicRecordID)
		require.NoError(t, err)
		require.Equal(t, []int{870970}, agencies)
	}()

	wg.Wait()

	require.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond, "expected all reads to run one at a time")
}

func TestBoundedConcurrencyWrapperHonoursContext(t *testing.T) {
	slowBackend := mocks.NewMockSlowDataStorage(memory.New(), 200*time.Millisecond)
	limited := NewBoundedConcurrencyRecordReader(slowBackend, 1)

	id := record.NewRecordID("11111111", 870970)
	go func() {
		_, _ = limited.ReadRecords(context.Background(), []record.RecordID{id})
	}()
	// let the first read take the only slot
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := limited.ReadRecord(ctx, id)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
