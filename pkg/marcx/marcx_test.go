package marcx

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	rec := NewRecord("50938409", 870970,
		NewField("245", "a", "Krig & fred"),
		NewField("504", "a", "<note>"))

	t.Run("default_namespace", func(t *testing.T) {
		content := Encode(rec, "")
		require.True(t, strings.HasPrefix(string(content), `<record xmlns="info:lc/xmlns/marcxchange-v1">`))
		require.Contains(t, string(content), "Krig &amp; fred")

		decoded, err := Decode(content)
		require.NoError(t, err)
		if diff := cmp.Diff(rec.DataFields, decoded.DataFields); diff != "" {
			t.Fatalf("mismatch (-want +got):\n%s", diff)
		}
		require.Equal(t, rec.Leader, decoded.Leader)
	})

	t.Run("prefixed", func(t *testing.T) {
		content := Encode(rec, "marcx")
		require.True(t, strings.HasPrefix(string(content), `<marcx:record xmlns:marcx="info:lc/xmlns/marcxchange-v1">`))
		require.Contains(t, string(content), `<marcx:subfield code="a">&lt;note&gt;</marcx:subfield>`)

		decoded, err := Decode(content)
		require.NoError(t, err)
		require.Len(t, decoded.DataFields, 3)
	})

	t.Run("collection_with_one_record", func(t *testing.T) {
		content := `<collection xmlns="info:lc/xmlns/marcxchange-v1">` + string(Encode(rec, "")) + `</collection>`
		decoded, err := Decode([]byte(content))
		require.NoError(t, err)
		bibID, agencyID, err := decoded.ID()
		require.NoError(t, err)
		require.Equal(t, "50938409", bibID)
		require.Equal(t, 870970, agencyID)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := Decode([]byte("not marc"))
		require.ErrorContains(t, err, "decode marcxchange")
	})
}

func TestID(t *testing.T) {
	t.Run("missing_001", func(t *testing.T) {
		rec := &Record{DataFields: []DataField{NewField("245", "a", "Titel")}}
		_, _, err := rec.ID()
		require.ErrorIs(t, err, ErrMissingID)
	})

	t.Run("invalid_agency", func(t *testing.T) {
		rec := &Record{DataFields: []DataField{NewField("001", "a", "1", "b", "dbc")}}
		_, _, err := rec.ID()
		require.ErrorContains(t, err, "invalid agency 'dbc' in 001")
	})

	t.Run("set_id_creates_and_updates_001", func(t *testing.T) {
		rec := &Record{DataFields: []DataField{NewField("245", "a", "Titel")}}
		rec.SetID("1", 870970)
		require.Equal(t, "001", rec.DataFields[0].Tag)

		rec.SetID("1", 191919)
		require.Len(t, rec.Fields("001"), 1)
		_, agencyID, err := rec.ID()
		require.NoError(t, err)
		require.Equal(t, 191919, agencyID)
	})
}

func TestStripPrivateFields(t *testing.T) {
	require.True(t, IsPrivateTag("s10"))
	require.True(t, IsPrivateTag("z99"))
	require.False(t, IsPrivateTag("245"))

	rec := NewRecord("1", 870970,
		NewField("245", "a", "Titel"),
		NewField("s10", "a", "DBC"),
		NewField("z98", "a", "Minus"))
	rec.StripPrivateFields()

	var tags []string
	for _, f := range rec.DataFields {
		tags = append(tags, f.Tag)
	}
	require.Equal(t, []string{"001", "245"}, tags)
}

func TestCloneIsDeep(t *testing.T) {
	rec := NewRecord("1", 870970, NewField("245", "a", "Titel"))
	clone := rec.Clone()

	clone.Fields("245")[0].Subfields[0].Value = "Changed"
	clone.DataFields = append(clone.DataFields, NewField("504", "a", "Note"))

	title, _ := rec.Fields("245")[0].Subfield("a")
	require.Equal(t, "Titel", title)
	require.Len(t, rec.DataFields, 2)
}
