package storagewrappers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dbcdk/rawrepo-record-service/internal/mocks"
	"github.com/dbcdk/rawrepo-record-service/pkg/record"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage"
)

func TestInstrumentedStorage(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	id := record.NewRecordID("11111111", 870970)
	ds := mocks.NewMockRawRepoDatastore(ctrl)
	ds.EXPECT().ReadRecord(gomock.Any(), id).Return(nil, storage.ErrNotFound)
	ds.EXPECT().RecordExists(gomock.Any(), id, true).Return(false, nil)
	ds.EXPECT().ReadRecords(gomock.Any(), gomock.Any()).Return(nil, nil)
	ds.EXPECT().ReadAgenciesFor(gomock.Any(), id.BibliographicRecordID).Return(nil, nil)
	ds.EXPECT().ReadRelationsFrom(gomock.Any(), id).Return(nil, nil)
	ds.EXPECT().ReadRelationsTo(gomock.Any(), id).Return(nil, nil)

	instrumented := NewInstrumentedStorage(ds)
	require.Zero(t, instrumented.GetMetrics().DatastoreQueryCount)

	_, err := instrumented.ReadRecord(ctx, id)
	require.ErrorIs(t, err, storage.ErrNotFound)
	_, _ = instrumented.RecordExists(ctx, id, true)
	_, _ = instrumented.ReadRecords(ctx, []record.RecordID{id})
	_, _ = instrumented.ReadAgenciesFor(ctx, id.BibliographicRecordID)
	_, _ = instrumented.ReadRelationsFrom(ctx, id)
	_, _ = instrumented.ReadRelationsTo(ctx, id)

	require.Equal(t, uint32(6), instrumented.GetMetrics().DatastoreQueryCount)
}
