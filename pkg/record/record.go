// Package record holds the value types shared by the resolver, the merge engine and the datastores.
package record

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Mime types of stored records. The type decides which records can be merged.
const (
	MimeTypeMarcXchange = "text/marcxchange"
	MimeTypeArticle     = "text/article+marcxchange"
	MimeTypeAuthority   = "text/authority+marcxchange"
	MimeTypeEnrichment  = "text/enrichment+marcxchange"
	MimeTypeLitAnalysis = "text/litanalysis+marcxchange"
	MimeTypeMatVurd     = "text/matvurd+marcxchange"
	MimeTypeHostPub     = "text/hostpub+marcxchange"
	MimeTypeSimple      = "text/simple+marcxchange"
)

// RecordID identifies one agency's copy of a bibliographic record.
type RecordID struct {
	BibliographicRecordID string
	AgencyID              int
}

func NewRecordID(bibliographicRecordID string, agencyID int) RecordID {
	return RecordID{BibliographicRecordID: bibliographicRecordID, AgencyID: agencyID}
}

func (r RecordID) String() string {
	return r.BibliographicRecordID + ":" + strconv.Itoa(r.AgencyID)
}

// ParseRecordID parses the "bibliographicrecordid:agencyid" form produced by String.
func ParseRecordID(s string) (RecordID, error) {
	i := strings.LastIndex(s, ":")
	if i <= 0 || i == len(s)-1 {
		return RecordID{}, fmt.Errorf("invalid record id '%s'", s)
	}
	agencyID, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return RecordID{}, fmt.Errorf("invalid agency in record id '%s': %w", s, err)
	}
	return NewRecordID(s[:i], agencyID), nil
}

// Compare orders record ids by agency first, then bibliographic id.
func Compare(a, b RecordID) int {
	switch {
	case a.AgencyID < b.AgencyID:
		return -1
	case a.AgencyID > b.AgencyID:
		return 1
	}
	return strings.Compare(a.BibliographicRecordID, b.BibliographicRecordID)
}

// Record is a stored record, or a merge result derived from stored records.
type Record struct {
	ID              RecordID
	Content         []byte
	MimeType        string
	Deleted         bool
	Created         time.Time
	Modified        time.Time
	TrackingID      string
	EnrichmentTrail string
}

// Clone returns a deep copy so merge results never alias stored content.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Content = append([]byte(nil), r.Content...)
	return &c
}

// TrailLength is the number of agencies listed in the enrichment trail.
func (r *Record) TrailLength() int {
	if r.EnrichmentTrail == "" {
		return 0
	}
	return strings.Count(r.EnrichmentTrail, ",") + 1
}

// AppendTrail appends agencyID to a comma separated enrichment trail.
func AppendTrail(trail string, agencyID int) string {
	if trail == "" {
		return strconv.Itoa(agencyID)
	}
	return trail + "," + strconv.Itoa(agencyID)
}

// TrailAgencies parses the enrichment trail. Entries that are not numbers are skipped.
func (r *Record) TrailAgencies() []int {
	if r.EnrichmentTrail == "" {
		return nil
	}
	var agencies []int
	for _, s := range strings.Split(r.EnrichmentTrail, ",") {
		if a, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			agencies = append(agencies, a)
		}
	}
	return agencies
}

// NewTrackingID returns a tracking id for a write that did not come with one.
func NewTrackingID() string {
	return uuid.NewString()
}

// TrackingIDOrNew returns the record's tracking id, or a new one when it has none.
func (r *Record) TrackingIDOrNew() string {
	if r.TrackingID != "" {
		return r.TrackingID
	}
	return NewTrackingID()
}
