package wasspenl

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dwcaress/swathio"
)

func newSession() (*swathio.SessionState, *swathio.StoreModel, *swathio.PingAssembler, *swathio.SensorInterpolators) {
	return swathio.NewSessionState(swathio.LittleEndian), swathio.NewStoreModel(), swathio.NewPingAssembler(swathio.SonarRequirements{}), swathio.NewSensorInterpolators()
}

func TestBathyRoundTrip(t *testing.T) {
	p := &swathio.Ping{PingNumber: 7, Range: []float64{5, 6}, TakeoffAngle: []float64{1, 2}, Quality: []uint8{9, 9}}
	rec := &swathio.Record{Kind: swathio.Bathymetry, Ping: p}

	var buf bytes.Buffer
	sess, store, assembler, interp := newSession()
	enc := Encoder{}
	require.NoError(t, enc.Encode(rec, &buf, sess))

	f := swathio.NewFramer(&buf, 16, func([]byte) bool { return true })
	dec := NewDecoder(0)
	out, err := dec.DecodeNext(f, sess, store, assembler, interp)
	require.NoError(t, err)
	require.Equal(t, swathio.Bathymetry, out.Kind)
	require.NotNil(t, out.Ping)
	require.Equal(t, uint32(7), out.Ping.PingNumber)
	require.InDelta(t, 5.0, out.Ping.Range[0], 1e-4)
}

func TestChecksumPlaceholderMismatchReportsChecksumError(t *testing.T) {
	p := &swathio.Ping{PingNumber: 1, Range: []float64{1}, TakeoffAngle: []float64{0}, Quality: []uint8{1}}
	rec := &swathio.Record{Kind: swathio.Bathymetry, Ping: p}

	var buf bytes.Buffer
	sess, store, assembler, interp := newSession()
	enc := Encoder{}
	require.NoError(t, enc.Encode(rec, &buf, sess))

	raw := buf.Bytes()
	// Flip a byte inside the checksum trailer: must now be reported as a
	// ChecksumError.
	raw[len(raw)-1] ^= 0xFF

	f := swathio.NewFramer(bytes.NewReader(raw), 16, func([]byte) bool { return true })
	dec := NewDecoder(0)
	_, err := dec.DecodeNext(f, sess, store, assembler, interp)
	require.True(t, swathio.IsChecksumError(err))
}

func TestCommentRoundTrip(t *testing.T) {
	rec := &swathio.Record{Kind: swathio.Comment, Comment: &swathio.CommentRecord{Value: "depth check"}}

	var buf bytes.Buffer
	sess, store, assembler, interp := newSession()
	enc := Encoder{}
	require.NoError(t, enc.Encode(rec, &buf, sess))

	f := swathio.NewFramer(&buf, 16, func([]byte) bool { return true })
	dec := NewDecoder(0)
	out, err := dec.DecodeNext(f, sess, store, assembler, interp)
	require.NoError(t, err)
	require.Equal(t, swathio.Comment, out.Kind)
	require.Equal(t, "depth check", out.Comment.Value)
}

// TestCorbathyDecodedDirectlyWithoutDeriving builds a CORBATHY record by
// hand: its per-beam payload is already-corrected depth/across, not
// range/take-off-angle, so decodeBathy must store it directly and mark the
// ping so BathymetryDeriver.Derive (wired in by Session.ReadNext) leaves it
// alone rather than treating zero Range as a missing beam.
func TestCorbathyDecodedDirectlyWithoutDeriving(t *testing.T) {
	var bc swathio.ByteCodec
	var body bytes.Buffer

	hdr := make([]byte, 16)
	bc.PutU32(hdr, 0, 0, swathio.LittleEndian)
	bc.PutU32(hdr, 4, 0, swathio.LittleEndian)
	bc.PutU32(hdr, 8, 5, swathio.LittleEndian)
	bc.PutU16(hdr, 12, 1, swathio.LittleEndian)
	bc.PutU16(hdr, 14, 1, swathio.LittleEndian)
	body.Write(hdr)

	beam := make([]byte, 10)
	bc.PutF32(beam, 0, 12.5, swathio.LittleEndian)
	bc.PutF32(beam, 4, 3.25, swathio.LittleEndian)
	beam[8] = 7
	body.Write(beam)

	header := make([]byte, 16)
	bc.PutU32(header, 0, syncWord, swathio.LittleEndian)
	bc.PutU32(header, 4, uint32(16+body.Len()+4), swathio.LittleEndian)
	copy(header[8:16], "CORBATHY")

	var buf bytes.Buffer
	buf.Write(header)
	buf.Write(body.Bytes())
	trailer := make([]byte, 4)
	bc.PutU32(trailer, 0, checksumPlaceholder, swathio.LittleEndian)
	buf.Write(trailer)

	f := swathio.NewFramer(&buf, 16, func([]byte) bool { return true })
	sess, store, assembler, interp := newSession()
	dec := NewDecoder(0)
	out, err := dec.DecodeNext(f, sess, store, assembler, interp)
	require.NoError(t, err)
	require.Equal(t, swathio.Bathymetry, out.Kind)
	require.NotNil(t, out.Ping)
	require.InDelta(t, 12.5, out.Ping.Depth[0], 1e-4)
	require.InDelta(t, 3.25, out.Ping.Across[0], 1e-4)
	require.True(t, out.Ping.BathymetryDerived())
}

func TestUnknownTagPreservedAsRawLine(t *testing.T) {
	var buf bytes.Buffer
	sess, store, assembler, interp := newSession()

	header := make([]byte, 16)
	var bc swathio.ByteCodec
	bc.PutU32(header, 0, syncWord, swathio.LittleEndian)
	body := []byte("hello")
	bc.PutU32(header, 4, uint32(16+len(body)+4), swathio.LittleEndian)
	copy(header[8:16], "UNKNOWN1")
	buf.Write(header)
	buf.Write(body)
	trailer := make([]byte, 4)
	bc.PutU32(trailer, 0, checksumPlaceholder, swathio.LittleEndian)
	buf.Write(trailer)

	f := swathio.NewFramer(&buf, 16, func([]byte) bool { return true })
	dec := NewDecoder(0)
	out, err := dec.DecodeNext(f, sess, store, assembler, interp)
	require.NoError(t, err)
	require.Equal(t, swathio.RawLine, out.Kind)
	require.Equal(t, "hello", string(out.Raw.Payload))
}
