package hints

import (
	"context"

	"github.com/dbcdk/rawrepo-record-service/pkg/agency"
)

// StaticProvider derives hints from the agency policy table and a fixed list of
// agencies that use enrichments.
type StaticProvider struct {
	policy             agency.Policy
	enrichmentAgencies map[int]struct{}
}

type StaticProviderOption func(*StaticProvider)

func WithPolicy(policy agency.Policy) StaticProviderOption {
	return func(p *StaticProvider) {
		p.policy = policy
	}
}

// WithEnrichmentAgencies marks agencies whose local records enrich the common record.
func WithEnrichmentAgencies(agencies ...int) StaticProviderOption {
	return func(p *StaticProvider) {
		for _, a := range agencies {
			p.enrichmentAgencies[a] = struct{}{}
		}
	}
}

var _ Provider = (*StaticProvider)(nil)

func NewStaticProvider(opts ...StaticProviderOption) *StaticProvider {
	p := &StaticProvider{
		policy:             agency.Default,
		enrichmentAgencies: map[int]struct{}{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *StaticProvider) Get(_ context.Context, agencyID int) (AgencyHints, error) {
	h := AgencyHints{AgencyID: agencyID}
	_, usesEnrichments := p.enrichmentAgencies[agencyID]

	switch {
	case agencyID == agency.DBCEnrichmentAgency || usesEnrichments:
		// own record first, then the DBC agencies in priority order
		ordered := append([]int{agencyID}, p.policy.DBCPriority...)
		h.UsesCommonAgency = true
		h.CandidateCommonAgencies = ordered
		h.AgencyPriority = append([]int(nil), ordered...)
		h.UsesEnrichments = true
	case p.policy.IsDBC(agencyID):
		h.UsesCommonAgency = true
		h.CandidateCommonAgencies = []int{agencyID}
		h.AgencyPriority = []int{agencyID}
	default:
		h.AgencyPriority = []int{agencyID}
	}

	return h, nil
}
