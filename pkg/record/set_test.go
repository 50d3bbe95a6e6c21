package record

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetKeepsInsertionOrder(t *testing.T) {
	s := NewSet(
		NewRecordID("1", 870971),
		NewRecordID("1", 870970),
		NewRecordID("1", 870971),
	)

	require.Equal(t, 2, s.Len())
	first, ok := s.First()
	require.True(t, ok)
	require.Equal(t, NewRecordID("1", 870971), first)
	require.Equal(t, []RecordID{NewRecordID("1", 870971), NewRecordID("1", 870970)}, s.Values())
	require.Equal(t, []RecordID{NewRecordID("1", 870970), NewRecordID("1", 870971)}, s.Sorted())
}

func TestSetFilter(t *testing.T) {
	s := NewSet(NewRecordID("a", 870979), NewRecordID("b", 870970), NewRecordID("c", 870979))
	aut := s.Filter(func(id RecordID) bool { return id.AgencyID == 870979 })
	require.Equal(t, []RecordID{NewRecordID("a", 870979), NewRecordID("c", 870979)}, aut.Values())

	_, ok := NewSet().First()
	require.False(t, ok)
}

func TestAgencySet(t *testing.T) {
	s := NewAgencySet(870970, 191919, 710100, 870970)
	require.Equal(t, []int{191919, 710100, 870970}, s.Values())
	require.True(t, s.Contains(710100))
	require.False(t, s.Contains(820010))
}

func TestRecordIDRoundTrip(t *testing.T) {
	id, err := ParseRecordID("00199087:870970")
	require.NoError(t, err)
	require.Equal(t, NewRecordID("00199087", 870970), id)
	require.Equal(t, "00199087:870970", id.String())

	_, err = ParseRecordID("00199087")
	require.Error(t, err)
}

func TestTrail(t *testing.T) {
	trail := AppendTrail("", 870970)
	trail = AppendTrail(trail, 191919)
	require.Equal(t, "870970,191919", trail)

	r := &Record{EnrichmentTrail: trail}
	require.Equal(t, 2, r.TrailLength())

	c := (&Record{Content: []byte("x")}).Clone()
	c.Content[0] = 'y'
	require.Equal(t, []byte("y"), c.Content)
}
