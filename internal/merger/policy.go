package merger

import (
	"strconv"

	"github.com/dbcdk/rawrepo-record-service/pkg/agency"
	"github.com/dbcdk/rawrepo-record-service/pkg/marcx"
	"github.com/dbcdk/rawrepo-record-service/pkg/record"
)

//go:generate mockgen -source policy.go -destination ../mocks/mock_merge_port.go -package mocks Port

// Port is the field level merge of two marcxchange records.
type Port interface {
	CanMerge(originalMimeType, enrichmentMimeType string) bool
	MergedMimeType(originalMimeType, enrichmentMimeType string) string
	Merge(common, local []byte, overwriteOwnID bool) ([]byte, error)
}

var _ Port = (*marcx.FieldMerger)(nil)

// Policy folds a chain of records into one. Policies are immutable and shared by all
// callers.
type Policy struct {
	name           string
	port           Port
	overwriteOwnID bool
}

// NewDefaultPolicy keeps the base record's id in the merged content.
func NewDefaultPolicy(port Port) *Policy {
	return &Policy{name: "default", port: port}
}

// NewOverwriteOwnIDPolicy lets the requested agency's record keep its own 001.
func NewOverwriteOwnIDPolicy(port Port) *Policy {
	return &Policy{name: "overwrite-own-id", port: port, overwriteOwnID: true}
}

func (p *Policy) String() string {
	return p.name
}

// OverwritesOwnID reports whether the policy keeps the requested agency's own 001.
func (p *Policy) OverwritesOwnID() bool {
	return p.overwriteOwnID
}

// Fold merges chain left to right, base first. The own id overwrite is only applied
// when the requested agency's record is folded in. The stored records are not modified.
func (p *Policy) Fold(chain []*record.Record, requestedAgency int) (*record.Record, error) {
	if len(chain) == 0 {
		return nil, ErrEmptyChain
	}

	acc := chain[0].Clone()
	acc.EnrichmentTrail = strconv.Itoa(acc.ID.AgencyID)
	for _, next := range chain[1:] {
		merged, err := p.step(acc, next, p.overwriteOwnID && next.ID.AgencyID == requestedAgency)
		if err != nil {
			return nil, err
		}
		acc = merged
	}
	return acc, nil
}

func (p *Policy) step(base, enrichment *record.Record, overwriteOwnID bool) (*record.Record, error) {
	if !p.port.CanMerge(base.MimeType, enrichment.MimeType) {
		return nil, &MergeIncompatibleError{
			Base:               base.ID,
			Enrichment:         enrichment.ID,
			BaseMimeType:       base.MimeType,
			EnrichmentMimeType: enrichment.MimeType,
		}
	}

	content, err := p.port.Merge(base.Content, enrichment.Content, overwriteOwnID)
	if err != nil {
		return nil, &MergeError{Base: base.ID, Enrichment: enrichment.ID, Err: err}
	}

	merged := &record.Record{
		ID:              enrichment.ID,
		Content:         content,
		MimeType:        p.port.MergedMimeType(base.MimeType, enrichment.MimeType),
		Deleted:         enrichment.Deleted,
		Created:         base.Created,
		Modified:        base.Modified,
		TrackingID:      base.TrackingID,
		EnrichmentTrail: record.AppendTrail(base.EnrichmentTrail, enrichment.ID.AgencyID),
	}
	if enrichment.Created.After(merged.Created) {
		merged.Created = enrichment.Created
	}
	if !base.Modified.After(enrichment.Modified) {
		merged.Modified = enrichment.Modified
		merged.TrackingID = enrichment.TrackingID
	}
	return merged, nil
}

// policies holds the two policies built once at startup.
type policies struct {
	defaultPolicy *Policy
	ownIDPolicy   *Policy
}

// selectPolicy is a pure function of the keep own id flag and the agency type. Local
// agencies always use the default policy.
func (ps policies) selectPolicy(keepOwnID bool, t agency.Type) *Policy {
	if keepOwnID && t != agency.TypeLocal {
		return ps.ownIDPolicy
	}
	return ps.defaultPolicy
}
