package relations

import (
	"strconv"

	"github.com/dbcdk/rawrepo-record-service/pkg/agency"
	"github.com/dbcdk/rawrepo-record-service/pkg/marcx"
	"github.com/dbcdk/rawrepo-record-service/pkg/record"
)

// extractionRule derives parent links from the fields carrying one tag.
type extractionRule struct {
	tags []string
	// applies reports whether the rule is evaluated for records owned by agencyID.
	applies func(p agency.Policy, agencyID int) bool
	parent  func(p agency.Policy, f *marcx.DataField, current record.RecordID) (record.RecordID, bool)
}

// Extractor reconstructs the parent links of a deleted record from its own content.
// Persisted relations are removed when a record is deleted, so the embedded links are
// the only source left.
type Extractor struct {
	policy agency.Policy
	rules  []extractionRule
}

func NewExtractor(policy agency.Policy) *Extractor {
	return &Extractor{
		policy: policy,
		rules: []extractionRule{
			{
				tags:    []string{"014"},
				applies: always,
				parent:  hierarchyParent,
			},
			{
				tags: []string{"016", "017"},
				applies: func(p agency.Policy, agencyID int) bool {
					return p.LitAnalysisAgency != 0 && agencyID == p.LitAnalysisAgency
				},
				parent: analysisParent,
			},
			{
				tags:    policy.AuthorityTags,
				applies: always,
				parent:  authorityParent,
			},
		},
	}
}

func always(agency.Policy, int) bool { return true }

// 014 *a links head, section and volume records. *x marks an alternate relation
// that always points into the common agency.
func hierarchyParent(p agency.Policy, f *marcx.DataField, current record.RecordID) (record.RecordID, bool) {
	bibID, ok := f.Subfield("a")
	if !ok || bibID == "" {
		return record.RecordID{}, false
	}
	if qualifier, ok := f.Subfield("x"); ok && p.IsHierarchyAlternate(qualifier) {
		return record.NewRecordID(bibID, agency.CommonAgency), true
	}
	return record.NewRecordID(bibID, current.AgencyID), true
}

func analysisParent(_ agency.Policy, f *marcx.DataField, current record.RecordID) (record.RecordID, bool) {
	bibID, ok := f.Subfield("a")
	if !ok || bibID == "" {
		return record.RecordID{}, false
	}
	agencyID := current.AgencyID
	if s, ok := f.Subfield("5"); ok {
		parsed, err := strconv.Atoi(s)
		if err != nil {
			return record.RecordID{}, false
		}
		agencyID = parsed
	}
	return record.NewRecordID(bibID, agencyID), true
}

func authorityParent(_ agency.Policy, f *marcx.DataField, _ record.RecordID) (record.RecordID, bool) {
	agencyStr, okAgency := f.Subfield("5")
	bibID, okID := f.Subfield("6")
	if !okAgency || !okID || bibID == "" {
		return record.RecordID{}, false
	}
	agencyID, err := strconv.Atoi(agencyStr)
	if err != nil {
		return record.RecordID{}, false
	}
	return record.NewRecordID(bibID, agencyID), true
}

// Parents evaluates every rule against content, in rule order and then field order.
func (e *Extractor) Parents(current record.RecordID, content []byte) (*record.Set, error) {
	parents := record.NewSet()
	if current.AgencyID == agency.DBCEnrichmentAgency {
		return parents, nil
	}

	rec, err := marcx.Decode(content)
	if err != nil {
		return nil, err
	}

	for _, rule := range e.rules {
		if !rule.applies(e.policy, current.AgencyID) {
			continue
		}
		for _, tag := range rule.tags {
			for _, f := range rec.Fields(tag) {
				if id, ok := rule.parent(e.policy, f, current); ok {
					parents.Add(id)
				}
			}
		}
	}
	return parents, nil
}
