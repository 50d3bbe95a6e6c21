package marcx

import (
	"fmt"
	"sort"

	"github.com/dbcdk/rawrepo-record-service/pkg/record"
)

// FieldMerger overlays an enrichment on a common record tag by tag: every tag present
// in the enrichment replaces all fields with that tag in the common record.
// It is immutable and safe for concurrent use.
type FieldMerger struct {
	// tags never taken from the enrichment
	keepCommon map[string]struct{}
}

func NewFieldMerger() *FieldMerger {
	return &FieldMerger{
		keepCommon: map[string]struct{}{"001": {}, "004": {}},
	}
}

// CanMerge reports whether an enrichment of type enrichmentMimeType can be merged on top
// of a record of type originalMimeType.
func (m *FieldMerger) CanMerge(originalMimeType, enrichmentMimeType string) bool {
	switch originalMimeType {
	case record.MimeTypeMarcXchange,
		record.MimeTypeArticle,
		record.MimeTypeAuthority,
		record.MimeTypeLitAnalysis,
		record.MimeTypeMatVurd,
		record.MimeTypeHostPub,
		record.MimeTypeSimple:
		return enrichmentMimeType == record.MimeTypeEnrichment
	default:
		return false
	}
}

// MergedMimeType is the type of the result, which is the type of the base record.
func (m *FieldMerger) MergedMimeType(originalMimeType, enrichmentMimeType string) string {
	if originalMimeType == record.MimeTypeEnrichment {
		return enrichmentMimeType
	}
	return originalMimeType
}

// Merge overlays local on common. With overwriteOwnID the 001 of local wins.
func (m *FieldMerger) Merge(common, local []byte, overwriteOwnID bool) ([]byte, error) {
	c, err := Decode(common)
	if err != nil {
		return nil, fmt.Errorf("merge common: %w", err)
	}
	l, err := Decode(local)
	if err != nil {
		return nil, fmt.Errorf("merge enrichment: %w", err)
	}

	overlay := map[string][]DataField{}
	var order []string
	for _, f := range l.DataFields {
		if _, keep := m.keepCommon[f.Tag]; keep && !(overwriteOwnID && f.Tag == "001") {
			continue
		}
		if _, seen := overlay[f.Tag]; !seen {
			order = append(order, f.Tag)
		}
		overlay[f.Tag] = append(overlay[f.Tag], f)
	}

	result := c.Clone()
	fields := result.DataFields[:0]
	for _, f := range result.DataFields {
		if _, replaced := overlay[f.Tag]; !replaced {
			fields = append(fields, f)
		}
	}
	for _, tag := range order {
		fields = append(fields, overlay[tag]...)
	}
	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].Tag < fields[j].Tag
	})
	result.DataFields = fields

	return Encode(result, ""), nil
}
