package marcx

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dbcdk/rawrepo-record-service/pkg/record"
)

func TestCanMerge(t *testing.T) {
	m := NewFieldMerger()

	tests := []struct {
		name       string
		original   string
		enrichment string
		expected   bool
	}{
		{"marcxchange_with_enrichment", record.MimeTypeMarcXchange, record.MimeTypeEnrichment, true},
		{"article_with_enrichment", record.MimeTypeArticle, record.MimeTypeEnrichment, true},
		{"authority_with_enrichment", record.MimeTypeAuthority, record.MimeTypeEnrichment, true},
		{"two_marcxchange_records", record.MimeTypeMarcXchange, record.MimeTypeMarcXchange, false},
		{"enrichment_as_base", record.MimeTypeEnrichment, record.MimeTypeEnrichment, false},
		{"unknown_base", "text/plain", record.MimeTypeEnrichment, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, m.CanMerge(test.original, test.enrichment))
		})
	}

	require.Equal(t, record.MimeTypeArticle, m.MergedMimeType(record.MimeTypeArticle, record.MimeTypeEnrichment))
	require.Equal(t, record.MimeTypeArticle, m.MergedMimeType(record.MimeTypeEnrichment, record.MimeTypeArticle))
}

func TestMerge(t *testing.T) {
	m := NewFieldMerger()
	common := Encode(NewRecord("50938409", 870970,
		NewField("245", "a", "Titel"),
		NewField("504", "a", "Old")), "")
	local := Encode(NewRecord("50938409", 191919,
		NewField("666", "a", "Emne"),
		NewField("504", "a", "New"),
		NewField("504", "a", "Newer")), "")

	tags := func(r *Record) []string {
		var out []string
		for _, f := range r.DataFields {
			out = append(out, f.Tag)
		}
		return out
	}

	t.Run("enrichment_tags_replace_common_tags", func(t *testing.T) {
		merged, err := m.Merge(common, local, false)
		require.NoError(t, err)

		rec, err := Decode(merged)
		require.NoError(t, err)
		require.Equal(t, []string{"001", "245", "504", "504", "666"}, tags(rec))

		notes := rec.Fields("504")
		first, _ := notes[0].Subfield("a")
		second, _ := notes[1].Subfield("a")
		require.Equal(t, []string{"New", "Newer"}, []string{first, second})

		_, agencyID, err := rec.ID()
		require.NoError(t, err)
		require.Equal(t, 870970, agencyID)
	})

	t.Run("overwrite_own_id", func(t *testing.T) {
		merged, err := m.Merge(common, local, true)
		require.NoError(t, err)

		rec, err := Decode(merged)
		require.NoError(t, err)
		_, agencyID, err := rec.ID()
		require.NoError(t, err)
		require.Equal(t, 191919, agencyID)
	})

	t.Run("inputs_are_not_modified", func(t *testing.T) {
		before := string(common)
		_, err := m.Merge(common, local, false)
		require.NoError(t, err)
		require.Equal(t, before, string(common))
	})

	t.Run("undecodable_input", func(t *testing.T) {
		_, err := m.Merge([]byte("x"), local, false)
		require.ErrorContains(t, err, "merge common")

		_, err = m.Merge(common, []byte("x"), false)
		require.ErrorContains(t, err, "merge enrichment")
	})
}
