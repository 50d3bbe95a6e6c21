package service

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/dbcdk/rawrepo-record-service/cmd"
	"github.com/dbcdk/rawrepo-record-service/cmd/util"
	"github.com/dbcdk/rawrepo-record-service/internal/dump"
	serverconfig "github.com/dbcdk/rawrepo-record-service/internal/server/config"
	"github.com/dbcdk/rawrepo-record-service/pkg/agency"
	"github.com/dbcdk/rawrepo-record-service/pkg/marcx"
	"github.com/dbcdk/rawrepo-record-service/pkg/record"
	serverErrors "github.com/dbcdk/rawrepo-record-service/pkg/server/errors"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage/sqlcommon"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage/sqlite"
	storagefixtures "github.com/dbcdk/rawrepo-record-service/pkg/testfixtures/storage"
)

// seedDatastore creates a migrated sqlite database holding a common record, its DBC
// enrichment and the authority record the common record links to.
func seedDatastore(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	uri := storagefixtures.RunDatastoreTestContainer(t, "sqlite").GetConnectionURI(true)

	ds, err := sqlite.New(uri, sqlcommon.NewConfig())
	require.NoError(t, err)
	defer ds.Close()

	write := func(bibID string, agencyID int, mimeType string, fields ...marcx.DataField) record.RecordID {
		rec := &record.Record{
			ID:       record.NewRecordID(bibID, agencyID),
			Content:  marcx.Encode(marcx.NewRecord(bibID, agencyID, fields...), ""),
			MimeType: mimeType,
			Created:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			Modified: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		}
		require.NoError(t, ds.WriteRecord(ctx, rec))
		return rec.ID
	}

	aut := write("69208045", agency.AuthorityAgency, record.MimeTypeAuthority, marcx.NewField("100", "a", "Hansen"))
	common := write("50938409", agency.CommonAgency, record.MimeTypeMarcXchange,
		marcx.NewField("100", "5", "870979", "6", "69208045"),
		marcx.NewField("245", "a", "Titel"))
	enrichment := write("50938409", agency.DBCEnrichmentAgency, record.MimeTypeEnrichment,
		marcx.NewField("504", "a", "Note"))
	require.NoError(t, ds.WriteRelations(ctx, common, []record.RecordID{aut}))
	require.NoError(t, ds.WriteRelations(ctx, enrichment, []record.RecordID{common}))

	return uri
}

func execute(t *testing.T, sub *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := cmd.NewRootCommand()
	root.AddCommand(sub)
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append(args, "--log-level", "none"))
	err := root.Execute()
	return out.String(), err
}

func TestRecordCommand(t *testing.T) {
	util.PrepareTempConfigDir(t)
	uri := seedDatastore(t)
	datastore := []string{"--datastore-engine", "sqlite", "--datastore-uri", uri}

	t.Run("raw", func(t *testing.T) {
		out, err := execute(t, NewRecordCommand(), append([]string{"record", "50938409", "191919", "--mode", "raw"}, datastore...)...)
		require.NoError(t, err)
		require.Contains(t, out, "*aNote")
		require.NotContains(t, out, "*aTitel")
	})

	t.Run("merged", func(t *testing.T) {
		out, err := execute(t, NewRecordCommand(), append([]string{"record", "50938409", "191919"}, datastore...)...)
		require.NoError(t, err)
		require.Contains(t, out, "*aNote")
		require.Contains(t, out, "*aTitel")
	})

	t.Run("expanded_xml", func(t *testing.T) {
		out, err := execute(t, NewRecordCommand(), append([]string{"record", "50938409", "191919", "--mode", "expanded", "--format", "xml"}, datastore...)...)
		require.NoError(t, err)
		require.Contains(t, out, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>")
		require.Contains(t, out, "Hansen")
	})

	t.Run("not_found", func(t *testing.T) {
		_, err := execute(t, NewRecordCommand(), append([]string{"record", "missing", "870970"}, datastore...)...)
		require.Equal(t, serverErrors.NotFound, serverErrors.Classify(err))
	})

	t.Run("invalid_arguments", func(t *testing.T) {
		_, err := execute(t, NewRecordCommand(), append([]string{"record", "50938409", "dbc"}, datastore...)...)
		require.Equal(t, serverErrors.Validation, serverErrors.Classify(err))

		_, err = execute(t, NewRecordCommand(), append([]string{"record", "50938409", "870970", "--format", "pdf"}, datastore...)...)
		require.Equal(t, serverErrors.Validation, serverErrors.Classify(err))
	})
}

func TestRecordCommandMemoryEngine(t *testing.T) {
	util.PrepareTempConfigDir(t)

	_, err := execute(t, NewRecordCommand(), "record", "50938409", "870970", "--datastore-engine", "memory")
	require.Equal(t, serverErrors.NotFound, serverErrors.Classify(err))
}

func TestRelationsCommand(t *testing.T) {
	util.PrepareTempConfigDir(t)
	uri := seedDatastore(t)

	out, err := execute(t, NewRelationsCommand(), "relations", "50938409", "870970", "--datastore-engine", "sqlite", "--datastore-uri", uri)
	require.NoError(t, err)
	require.Contains(t, out, "parent")
	require.Contains(t, out, "69208045")
	require.Contains(t, out, "sibling to")
	require.Contains(t, out, "191919")
}

func TestDumpCommand(t *testing.T) {
	util.PrepareTempConfigDir(t)
	uri := seedDatastore(t)
	datastore := []string{"--datastore-engine", "sqlite", "--datastore-uri", uri}

	t.Run("stdout", func(t *testing.T) {
		out, err := execute(t, NewDumpCommand(), append([]string{"dump", "--agencies", "870970", "--format", "LINE"}, datastore...)...)
		require.NoError(t, err)
		require.Contains(t, out, "*aTitel")
		require.Contains(t, out, "*aNote")
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dump.xml")
		_, err := execute(t, NewDumpCommand(), append([]string{"dump", "--agencies", "870970", "--workers", "2", "--output", path}, datastore...)...)
		require.NoError(t, err)

		b, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Contains(t, string(b), "<marcx:collection")
		require.Contains(t, string(b), "</marcx:collection>")
	})

	t.Run("with_metrics_server", func(t *testing.T) {
		port, release := serverconfig.TCPRandomPort()
		release()

		out, err := execute(t, NewDumpCommand(), append([]string{"dump", "--agencies", "870970", "--format", "LINE",
			"--metrics-addr", fmt.Sprintf("127.0.0.1:%d", port)}, datastore...)...)
		require.NoError(t, err)
		require.Contains(t, out, "*aTitel")
	})

	t.Run("invalid_request_creates_no_output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dump.xml")
		_, err := execute(t, NewDumpCommand(), append([]string{"dump", "--agencies", "191919,870970", "--output", path}, datastore...)...)
		require.Equal(t, serverErrors.Validation, serverErrors.Classify(err))

		var verr *dump.ValidationError
		require.ErrorAs(t, err, &verr)
		_, err = os.Stat(path)
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestDumpCommandConfigFile(t *testing.T) {
	util.PrepareTempConfigFile(t, `datastore:
  engine: memory
dump:
  workers: 7
hints:
  source: static
  enrichmentAgencies: [710100]
`)

	dumpCmd := NewDumpCommand()
	dumpCmd.RunE = func(_ *cobra.Command, _ []string) error {
		config, err := ReadConfig()
		require.NoError(t, err)
		require.NoError(t, config.Verify())
		require.Equal(t, "memory", config.Datastore.Engine)
		require.Equal(t, 7, config.Dump.Workers)
		require.Equal(t, serverconfig.HintsSourceStatic, config.Hints.Source)
		require.Equal(t, "-", config.Dump.Location)
		return nil
	}

	_, err := execute(t, dumpCmd, "dump", "--agencies", "710100")
	require.NoError(t, err)
}

func TestDumpCommandRejectsBadConfig(t *testing.T) {
	util.PrepareTempConfigDir(t)
	t.Setenv("RAWREPO_HINTS_SOURCE", "http")

	_, err := execute(t, NewDumpCommand(), "dump", "--agencies", "870970")
	require.EqualError(t, err, "config 'hints.url' must be set when 'hints.source' is 'http'")
}
