// Package hints provides the per agency relation hints: whether an agency layers its
// records on a common record, which common agencies to try, and the agency priority
// used for sibling discovery.
//
//go:generate mockgen -source hints.go -destination ../../internal/mocks/mock_hints.go -package mocks Provider
package hints

import (
	"context"

	"github.com/dbcdk/rawrepo-record-service/pkg/agency"
)

// AgencyHints is an immutable snapshot of the hints for one agency. Providers hand out
// copies, so callers may keep a value for the lifetime of a request.
type AgencyHints struct {
	AgencyID                int
	UsesCommonAgency        bool
	CandidateCommonAgencies []int
	AgencyPriority          []int
	UsesEnrichments         bool
}

func (h AgencyHints) clone() AgencyHints {
	h.CandidateCommonAgencies = append([]int(nil), h.CandidateCommonAgencies...)
	h.AgencyPriority = append([]int(nil), h.AgencyPriority...)
	return h
}

// Provider returns the hints for an agency.
type Provider interface {
	Get(ctx context.Context, agencyID int) (AgencyHints, error)
}

// Classify resolves the agency type using the "uses enrichments" hint.
func Classify(ctx context.Context, p Provider, policy agency.Policy, agencyID int) (agency.Type, error) {
	h, err := p.Get(ctx, agencyID)
	if err != nil {
		return agency.TypeLocal, err
	}
	return policy.Classify(agencyID, h.UsesEnrichments), nil
}
