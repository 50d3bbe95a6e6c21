package marcx

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dbcdk/rawrepo-record-service/pkg/record"
)

func codes(f *DataField) []string {
	var out []string
	for _, sf := range f.Subfields {
		out = append(out, sf.Code+sf.Value)
	}
	return out
}

func TestExpandAuthorities(t *testing.T) {
	autID := record.NewRecordID("69208045", 870979)
	authorities := map[record.RecordID][]byte{
		autID: Encode(NewRecord("69208045", 870979, NewField("100", "a", "Hansen", "h", "Peter")), ""),
		record.NewRecordID("68000000", 870979): Encode(NewRecord("68000000", 870979, NewField("110", "a", "DBC")), ""),
		record.NewRecordID("67000000", 870979): Encode(NewRecord("67000000", 870979, NewField("245", "a", "No heading")), ""),
	}

	content := Encode(NewRecord("50938409", 870970,
		NewField("100", "5", "870979", "6", "69208045", "4", "aut"),
		NewField("710", "5", "870979", "6", "68000000"),
		NewField("700", "5", "870979", "6", "99999999"),
		NewField("600", "5", "870979", "6", "67000000"),
		NewField("245", "a", "Titel")), "")

	t.Run("links_are_replaced_by_headings", func(t *testing.T) {
		expanded, err := ExpandAuthorities(content, authorities, false)
		require.NoError(t, err)

		rec, err := Decode(expanded)
		require.NoError(t, err)
		require.Equal(t, []string{"aHansen", "hPeter", "4aut"}, codes(rec.Fields("100")[0]))
		require.Equal(t, []string{"aDBC"}, codes(rec.Fields("710")[0]))
		require.Equal(t, []string{"5870979", "699999999"}, codes(rec.Fields("700")[0]), "missing authority is left alone")
		require.Equal(t, []string{"5870979", "667000000"}, codes(rec.Fields("600")[0]), "authority without heading is left alone")
	})

	t.Run("keep_links", func(t *testing.T) {
		expanded, err := ExpandAuthorities(content, authorities, true)
		require.NoError(t, err)

		rec, err := Decode(expanded)
		require.NoError(t, err)
		require.Equal(t, []string{"aHansen", "hPeter", "5870979", "669208045", "4aut"}, codes(rec.Fields("100")[0]))
	})

	t.Run("broken_authority", func(t *testing.T) {
		_, err := ExpandAuthorities(content, map[record.RecordID][]byte{autID: []byte("broken")}, false)
		require.ErrorContains(t, err, "decode authority 69208045:870979")
	})
}
