// Package agency centralises the agency ids and agency lists that drive relation
// resolution, merging and dumping.
package agency

import (
	"fmt"
	"strings"
)

const (
	CommonAgency        = 870970
	ArticleAgency       = 870971
	LittolkAgency       = 870974
	AuthorityAgency     = 870979
	DBCEnrichmentAgency = 191919
	SchoolCommonAgency  = 300000
)

// Type classifies how an agency's records are dumped and merged.
type Type int

const (
	TypeLocal Type = iota
	TypeDBC
	TypeFBS
)

func (t Type) String() string {
	switch t {
	case TypeDBC:
		return "DBC"
	case TypeFBS:
		return "FBS"
	default:
		return "LOCAL"
	}
}

// ParseType parses the upper case name returned by String.
func ParseType(s string) (Type, error) {
	switch strings.ToUpper(s) {
	case "DBC":
		return TypeDBC, nil
	case "FBS":
		return TypeFBS, nil
	case "LOCAL":
		return TypeLocal, nil
	}
	return TypeLocal, fmt.Errorf("unknown agency type '%s'", s)
}

// Policy is the table of agency lists. The zero value is empty; use Default.
type Policy struct {
	// DBCAgencies are agencies owned by DBC.
	DBCAgencies []int
	// AuthorityParentAgencies may have parents in the authority agency.
	AuthorityParentAgencies []int
	// CommonAgencies compute siblings pointing to them when their record is deleted.
	CommonAgencies []int
	// DBCPriority is the order DBC agencies are tried when resolving a common record.
	DBCPriority []int
	// AuthorityTags link an authority record through *5 agency and *6 id.
	AuthorityTags []string
	// HierarchyAlternateQualifiers in 014 *x pin the parent to CommonAgency.
	HierarchyAlternateQualifiers []string
	// LitAnalysisAgency reads parents from 016 and 017 as well.
	LitAnalysisAgency int
}

var Default = Policy{
	DBCAgencies: []int{
		CommonAgency, ArticleAgency, LittolkAgency, 870975, 870976, AuthorityAgency,
		190002, 190004, 190007, 190008, DBCEnrichmentAgency,
	},
	AuthorityParentAgencies: []int{CommonAgency, ArticleAgency, LittolkAgency, 190002},
	CommonAgencies:          []int{CommonAgency, ArticleAgency, LittolkAgency, AuthorityAgency, 190002, 190004},
	DBCPriority: []int{
		CommonAgency, ArticleAgency, LittolkAgency, 870975, 870976, AuthorityAgency,
		190002, 190004, 190007, 190008,
	},
	AuthorityTags: []string{
		"100", "110", "600", "610", "700", "710", "770", "780", "845", "846", "900", "910", "945",
	},
	HierarchyAlternateQualifiers: []string{"ANM", "DEB"},
	LitAnalysisAgency:            LittolkAgency,
}

func contains[E comparable](s []E, v E) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}

func (p Policy) IsDBC(agencyID int) bool {
	return contains(p.DBCAgencies, agencyID)
}

func (p Policy) MayHaveAuthorityParents(agencyID int) bool {
	return contains(p.AuthorityParentAgencies, agencyID)
}

func (p Policy) IsCommon(agencyID int) bool {
	return contains(p.CommonAgencies, agencyID)
}

func (p Policy) IsAuthorityTag(tag string) bool {
	return contains(p.AuthorityTags, tag)
}

func (p Policy) IsHierarchyAlternate(qualifier string) bool {
	return contains(p.HierarchyAlternateQualifiers, strings.ToUpper(qualifier))
}

// Classify derives the agency type. The enrichment-only DBC agency is LOCAL even
// though it is owned by DBC.
func (p Policy) Classify(agencyID int, usesEnrichments bool) Type {
	switch {
	case agencyID == DBCEnrichmentAgency:
		return TypeLocal
	case p.IsDBC(agencyID):
		return TypeDBC
	case usesEnrichments:
		return TypeFBS
	default:
		return TypeLocal
	}
}

// ValidID reports whether agencyID has exactly six digits.
func ValidID(agencyID int) bool {
	return agencyID >= 100000 && agencyID <= 999999
}
