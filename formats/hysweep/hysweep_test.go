package hysweep

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dwcaress/swathio"
)

func newSession() (*swathio.SessionState, *swathio.StoreModel, *swathio.PingAssembler, *swathio.SensorInterpolators) {
	return swathio.NewSessionState(swathio.BigEndian), swathio.NewStoreModel(), swathio.NewPingAssembler(swathio.SonarRequirements{}), swathio.NewSensorInterpolators()
}

func TestRMBWithoutSidescanCompletesImmediately(t *testing.T) {
	stream := "RMB 1 1000.500 0 0x0 0x1 3 1500 55\r\n1.0 2.0 3.0\r\n"
	f := swathio.NewFramer(bytes.NewReader([]byte(stream)), 2, func([]byte) bool { return true })
	sess, store, assembler, interp := newSession()
	dec := NewDecoder(0)

	rec, err := dec.DecodeNext(f, sess, store, assembler, interp)
	require.NoError(t, err)
	require.Equal(t, swathio.Bathymetry, rec.Kind)
	require.NotNil(t, rec.Ping)
	require.Equal(t, uint32(55), rec.Ping.PingNumber)
	require.InDelta(t, 1.0, rec.Ping.Range[0], 1e-9)
	require.InDelta(t, 3.0, rec.Ping.Range[2], 1e-9)
}

func TestRMBWithSidescanBitWaitsForRSS(t *testing.T) {
	stream := "RMB 1 2000.000 0 0x0 0x21 2 1500 1\r\n1.0 1.0\r\nRSS 2000.000 9600 2 10 20 30 40\r\n"
	f := swathio.NewFramer(bytes.NewReader([]byte(stream)), 2, func([]byte) bool { return true })
	sess, store, assembler, interp := newSession()
	dec := NewDecoder(0)

	rec, err := dec.DecodeNext(f, sess, store, assembler, interp)
	require.NoError(t, err)
	require.Equal(t, swathio.Bathymetry, rec.Kind)
	require.Nil(t, rec.Ping, "ping not complete until the paired RSS arrives")

	rec2, err := dec.DecodeNext(f, sess, store, assembler, interp)
	require.NoError(t, err)
	require.Equal(t, swathio.Sidescan, rec2.Kind)
	require.NotNil(t, rec2.Ping)
	require.Equal(t, []uint16{10, 20}, rec2.Ping.SidescanPort)
	require.Equal(t, []uint16{30, 40}, rec2.Ping.SidescanStarboard)
}

func TestUnrecognizedLinesAreSkippedDuringResync(t *testing.T) {
	stream := "GARBAGE LINE HERE\r\nCOM a note\r\n"
	f := swathio.NewFramer(bytes.NewReader([]byte(stream)), 2, func([]byte) bool { return true })
	sess, store, assembler, interp := newSession()
	dec := NewDecoder(0)

	rec, err := dec.DecodeNext(f, sess, store, assembler, interp)
	require.NotNil(t, rec)
	require.Equal(t, swathio.Comment, rec.Kind)
	require.Equal(t, "a note", rec.Comment.Value)
	_, ok := swathio.IsDataSkipped(err)
	require.True(t, ok)
}

func TestAttitudeAndHeadingFeedInterpolators(t *testing.T) {
	stream := "HCP 10.0 0.5 1.0 2.0\r\nGYR 10.0 45.0\r\n"
	f := swathio.NewFramer(bytes.NewReader([]byte(stream)), 2, func([]byte) bool { return true })
	sess, store, assembler, interp := newSession()
	dec := NewDecoder(0)

	_, err := dec.DecodeNext(f, sess, store, assembler, interp)
	require.NoError(t, err)
	_, err = dec.DecodeNext(f, sess, store, assembler, interp)
	require.NoError(t, err)

	v, ok := interp.Attitude.Interp(10.0)
	require.True(t, ok)
	require.InDelta(t, 1.0, v[0], 1e-9)

	hv, ok := interp.Heading.Interp(10.0)
	require.True(t, ok)
	require.InDelta(t, 45.0, hv[0], 1e-9)
}

// TestSessionReadNextDerivesContextWithoutClobberingWireDepth exercises
// read_next() through the real Session wiring: the RMB-carried depth/range
// arrays must come back with interpolated sensor context attached, and the
// wire depth must not be overwritten by BathymetryDeriver recomputing it
// from range and the format's absent beam angles.
func TestSessionReadNextDerivesContextWithoutClobberingWireDepth(t *testing.T) {
	stream := "HCP 1000.000 0.5 1.0 2.0\r\nRMB 1 1000.000 0 0x0 0x5 2 1500 7\r\n1.0 2.0\r\n9.0 8.0\r\n"
	f := swathio.NewFramer(bytes.NewReader([]byte(stream)), 2, func([]byte) bool { return true })
	s := swathio.NewSession(f, NewDecoder(0), Encoder{}, swathio.BigEndian, swathio.SonarRequirements{})

	_, err := s.ReadNext()
	require.NoError(t, err)

	rec, err := s.ReadNext()
	require.NoError(t, err)
	require.Equal(t, swathio.Bathymetry, rec.Kind)
	require.NotNil(t, rec.Ping)
	require.InDelta(t, 9.0, rec.Ping.Depth[0], 1e-9, "wire-supplied depth must survive Derive unchanged")
	require.InDelta(t, 1.0, rec.Ping.Pitch, 1e-9, "ping time context must be interpolated from the attitude channel")
	require.Len(t, s.Store.Pings, 1)
}

func TestMBIRunParameterRecorded(t *testing.T) {
	stream := "MBI 3 256 -60.0 0.5\r\n"
	f := swathio.NewFramer(bytes.NewReader([]byte(stream)), 2, func([]byte) bool { return true })
	sess, store, assembler, interp := newSession()
	dec := NewDecoder(0)

	rec, err := dec.DecodeNext(f, sess, store, assembler, interp)
	require.NoError(t, err)
	require.Equal(t, swathio.RunParameter, rec.Kind)
	require.Equal(t, 3, rec.Run.SonarType)
	require.Equal(t, 256, rec.Run.BeamCount)
	require.Len(t, store.RunParams, 1)
}
