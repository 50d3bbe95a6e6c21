package agency

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name            string
		agencyID        int
		usesEnrichments bool
		expected        Type
	}{
		{name: "common_agency", agencyID: CommonAgency, expected: TypeDBC},
		{name: "authority_agency", agencyID: AuthorityAgency, expected: TypeDBC},
		{name: "enrichment_only_agency_is_local", agencyID: DBCEnrichmentAgency, usesEnrichments: true, expected: TypeLocal},
		{name: "fbs_library", agencyID: 710100, usesEnrichments: true, expected: TypeFBS},
		{name: "plain_local", agencyID: 820010, expected: TypeLocal},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, Default.Classify(test.agencyID, test.usesEnrichments))
		})
	}
}

func TestPolicyLists(t *testing.T) {
	require.True(t, Default.MayHaveAuthorityParents(870970))
	require.True(t, Default.MayHaveAuthorityParents(190002))
	require.False(t, Default.MayHaveAuthorityParents(AuthorityAgency))
	require.True(t, Default.IsCommon(870979))
	require.False(t, Default.IsCommon(710100))
	require.True(t, Default.IsAuthorityTag("700"))
	require.False(t, Default.IsAuthorityTag("245"))
	require.True(t, Default.IsHierarchyAlternate("anm"))
}

func TestValidID(t *testing.T) {
	require.True(t, ValidID(870970))
	require.False(t, ValidID(87097))
	require.False(t, ValidID(1870970))
}

func TestParseType(t *testing.T) {
	for _, typ := range []Type{TypeDBC, TypeFBS, TypeLocal} {
		parsed, err := ParseType(typ.String())
		require.NoError(t, err)
		require.Equal(t, typ, parsed)
	}
	_, err := ParseType("SCHOOL")
	require.EqualError(t, err, "unknown agency type 'SCHOOL'")
}
