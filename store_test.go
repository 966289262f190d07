package swathio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQInfoDistinguishesCoincidentFromDuplicate(t *testing.T) {
	s := NewStoreModel()
	s.AddPing(&Ping{PingNumber: 1, Serial: 0, BeamCount: 5})
	s.AddPing(&Ping{PingNumber: 1, Serial: 1, BeamCount: 5}) // dual-head: coincident
	s.AddPing(&Ping{PingNumber: 2, Serial: 0, BeamCount: 4})
	s.AddPing(&Ping{PingNumber: 2, Serial: 0, BeamCount: 4}) // genuine duplicate

	info := s.QInfo()
	require.Equal(t, 4, info.MinBeams)
	require.Equal(t, 5, info.MaxBeams)
	require.False(t, info.ConsistentBeams)
	require.ElementsMatch(t, []uint32{1}, info.CoincidentPings)
	require.ElementsMatch(t, []uint32{2}, info.DuplicatePings)
}

func TestQInfoEmptyStore(t *testing.T) {
	s := NewStoreModel()
	require.Equal(t, QualityInfo{}, s.QInfo())
}

func TestAddPingAndCommentUpdateKindCounts(t *testing.T) {
	s := NewStoreModel()
	s.AddPing(&Ping{PingNumber: 1})
	s.AddComment(CommentRecord{Value: "note"})

	require.Equal(t, 1, s.KindCounts[Bathymetry])
	require.Equal(t, 1, s.KindCounts[Comment])
	require.Len(t, s.Pings, 1)
	require.Len(t, s.Comments, 1)
}
