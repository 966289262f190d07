package swathio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPingAssemblerSingleHeadNoSidescan(t *testing.T) {
	a := NewPingAssembler(SonarRequirements{})
	completed := a.FeedBathyHeader(1, 0, 1000, 0, 5)
	require.Empty(t, completed)

	p := a.Pending(1, 0)
	require.NotNil(t, p)
	require.Equal(t, uint32(1), p.PingNumber)

	done := a.CompleteNoSidescan(1)
	require.NotNil(t, done)
	require.Nil(t, done.SidescanPort)
}

func TestPingAssemblerBathyThenMatchingSidescanCompletes(t *testing.T) {
	a := NewPingAssembler(SonarRequirements{})
	a.FeedBathyHeader(1, 0, 1000, 500, 4)

	completed := a.FeedSidescan(1, 1000, 500, []uint16{1, 2}, []uint16{3, 4}, 9600)
	require.Len(t, completed, 1)
	require.Equal(t, uint32(1), completed[0].PingNumber)
	require.Equal(t, []uint16{1, 2}, completed[0].SidescanPort)
	require.True(t, completed[0].DataAvailable.Has(HasSidescan))
}

func TestPingAssemblerOrphanSidescanThenBathyPairs(t *testing.T) {
	a := NewPingAssembler(SonarRequirements{})

	completed := a.FeedSidescan(1, 2000, 0, []uint16{7}, []uint16{8}, 9600)
	require.Empty(t, completed)

	completed = a.FeedBathyHeader(1, 0, 2000, 0, 3)
	require.Empty(t, completed)

	p := a.Pending(1, 0)
	require.NotNil(t, p)
	require.True(t, p.DataAvailable.Has(HasSidescan))
}

func TestPingAssemblerOrphanSidescanTimestampMismatchWarns(t *testing.T) {
	a := NewPingAssembler(SonarRequirements{})
	a.FeedSidescan(1, 2000, 0, []uint16{7}, []uint16{8}, 9600)
	a.FeedBathyHeader(2, 0, 3000, 0, 3)

	warnings := a.Warnings()
	require.NotEmpty(t, warnings)
}

func TestPingAssemblerSidescanMismatchEmitsPendingAndReorphans(t *testing.T) {
	a := NewPingAssembler(SonarRequirements{})
	a.FeedBathyHeader(1, 0, 1000, 0, 2)

	completed := a.FeedSidescan(1, 9999, 0, []uint16{1}, []uint16{2}, 9600)
	require.Len(t, completed, 1)
	require.Nil(t, completed[0].SidescanPort)

	warnings := a.Warnings()
	require.NotEmpty(t, warnings)
}

func TestPingAssemblerDualHeadFoldsBothSerials(t *testing.T) {
	a := NewPingAssembler(SonarRequirements{DualHead: true})

	completed := a.FeedBathyHeader(5, 0, 1000, 0, 2)
	require.Empty(t, completed)

	completed = a.FeedBathyHeader(5, 1, 1000, 0, 2)
	require.Len(t, completed, 2)

	serials := []uint16{completed[0].Serial, completed[1].Serial}
	require.ElementsMatch(t, []uint16{0, 1}, serials)
}

func TestPingAssemblerDualHeadOrphansStaleHead(t *testing.T) {
	a := NewPingAssembler(SonarRequirements{DualHead: true})

	a.FeedBathyHeader(5, 0, 1000, 0, 2)
	// A new ping number arrives on head 1 before head 0's twin shows up:
	// the stale head-0 builder for ping 5 must be orphaned out, not lost.
	completed := a.FeedBathyHeader(6, 1, 1001, 0, 2)
	require.Len(t, completed, 1)
	require.Equal(t, uint32(5), completed[0].PingNumber)
}

func TestPingAssemblerFlushEmitsInProgressPing(t *testing.T) {
	a := NewPingAssembler(SonarRequirements{})
	a.FeedBathyHeader(9, 0, 1000, 0, 1)
	out := a.Flush()
	require.Len(t, out, 1)
	require.Equal(t, uint32(9), out[0].PingNumber)
}

func TestPingAssemblerNewHeaderOrphansPreviousPartialBathy(t *testing.T) {
	a := NewPingAssembler(SonarRequirements{})
	a.FeedBathyHeader(1, 0, 1000, 0, 2)
	completed := a.FeedBathyHeader(2, 0, 2000, 0, 2)
	require.Len(t, completed, 1)
	require.Equal(t, uint32(1), completed[0].PingNumber)
}
