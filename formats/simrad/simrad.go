// Package simrad implements the SIMRAD-class representative format: a
// byte-swapped binary datagram stream with ASCII-tagged parameter blocks.
// Record layout (§6.1): record_size_u32 | type_u16 | sonar_u16 | payload |
// end_byte_u8(=0x03) | checksum_u16.
package simrad

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/dwcaress/swathio"
)

// Datagram type codes. Values are representative, not drawn from a real
// vendor table (SIMRAD-class is a distilled stand-in per spec.md §1).
const (
	typeStart      uint16 = 0x0153 // 'S'
	typeStop       uint16 = 0x0050 // 'P'
	typeRunParam   uint16 = 0x0052 // 'R'
	typeBathymetry uint16 = 0x0044 // 'D'
	typeComment    uint16 = 0x0043 // 'C'
)

const endMarker byte = 0x03

// knownSonarModels is the set a 2-byte sonar-model identifier is checked
// against for endian negotiation (§4.1).
var knownSonarModels = map[uint16]bool{
	710: true, 302: true, 122: true, 2040: true, 3000: true,
}

const maxResyncScan = 1 << 20

var bc swathio.ByteCodec

// Decoder decodes SIMRAD-class records.
type Decoder struct {
	MaxBeams int
}

func NewDecoder(maxBeams int) *Decoder {
	if maxBeams <= 0 {
		maxBeams = 512
	}
	return &Decoder{MaxBeams: maxBeams}
}

func (d *Decoder) DecodeNext(f *swathio.Framer, sess *swathio.SessionState, store *swathio.StoreModel, assembler *swathio.PingAssembler, interp *swathio.SensorInterpolators) (*swathio.Record, error) {
	skipped := 0
	var header []byte

	for {
		peek, err := f.Peek(8)
		if len(peek) < 8 {
			if skipped > 0 {
				return nil, swathio.NewCodecError(swathio.UnexpectedEof, f.Offset(), swathio.RawLine, nil)
			}
			if err != nil {
				return nil, swathio.ErrEndOfInput
			}
		}
		if len(peek) >= 8 {
			order := sess.ByteOrder
			typeCode := bc.GetU16(peek, 4, order)
			if isKnownType(typeCode) {
				header = make([]byte, len(peek))
				copy(header, peek)
				break
			}
		}
		if skipped > maxResyncScan {
			return nil, swathio.NewCodecError(swathio.BadSync, f.Offset(), swathio.RawLine, nil)
		}
		if err := f.SkipByte(); err != nil {
			return nil, err
		}
		skipped++
	}

	order := sess.ByteOrder
	length := bc.GetU32(header, 0, order)
	typeCode := bc.GetU16(header, 4, order)
	sonarModel := bc.GetU16(header, 6, order)

	resolved := swathio.ResolveEndian(sonarModel, knownSonarModels, order)
	swappedModel := sonarModel<<8 | sonarModel>>8
	if knownSonarModels[sonarModel] != knownSonarModels[swappedModel] {
		sess.FreezeByteOrder(resolved)
	}
	order = sess.ByteOrder

	if err := f.Discard(len(header)); err != nil {
		return nil, err
	}

	payloadLen := int(length) - 6
	if payloadLen < 0 {
		return nil, swathio.NewCodecError(swathio.Malformed, f.Offset(), swathio.RawLine, nil)
	}
	payload, err := f.ReadPayload(payloadLen)
	if err != nil {
		return nil, err
	}
	// Consume the end_byte and checksum trailer so the next record starts
	// at its own length prefix.
	if _, err := f.ReadPayload(3); err != nil {
		return nil, err
	}

	var rec *swathio.Record
	var decodeErr error

	switch typeCode {
	case typeStart, typeRunParam:
		rec, decodeErr = decodeParameterBlock(typeCode, payload, order)
	case typeBathymetry:
		rec, decodeErr = decodeBathymetry(payload, order, d.MaxBeams, assembler)
	case typeComment:
		rec, decodeErr = decodeComment(payload)
	case typeStop:
		rec = &swathio.Record{Kind: swathio.Stop, Time: time.Now()}
	default:
		rec = &swathio.Record{Kind: swathio.RawLine, Raw: &swathio.RawLineRecord{Label: strconv.Itoa(int(typeCode)), Payload: payload}}
	}

	if decodeErr != nil {
		return nil, decodeErr
	}

	if skipped > 0 {
		return rec, swathio.NewCodecError(swathio.DataSkipped, f.Offset(), rec.Kind, nil).WithCount(skipped)
	}
	return rec, nil
}

func isKnownType(t uint16) bool {
	switch t {
	case typeStart, typeStop, typeRunParam, typeBathymetry, typeComment:
		return true
	}
	return false
}

// decodeBathymetry implements the representative decode from §4.3.
func decodeBathymetry(payload []byte, order swathio.Endian, maxBeams int, assembler *swathio.PingAssembler) (*swathio.Record, error) {
	const hdrLen = 20
	if len(payload) < hdrLen {
		return nil, swathio.NewCodecError(swathio.UnexpectedEof, 0, swathio.Bathymetry, nil)
	}

	date := bc.GetU32(payload, 0, order)
	msec := bc.GetU32(payload, 4, order)
	pingNumber := uint32(bc.GetU16(payload, 8, order))
	serial := bc.GetU16(payload, 10, order)
	beamsMax := payload[16]
	beams := payload[17]

	if beams > beamsMax || int(beamsMax) > maxBeams {
		return nil, swathio.NewCodecError(swathio.Malformed, 0, swathio.Bathymetry, nil)
	}

	off := hdrLen
	const perBeam = 13
	if len(payload) < off+int(beams)*perBeam {
		return nil, swathio.NewCodecError(swathio.UnexpectedEof, 0, swathio.Bathymetry, nil)
	}

	beamNums := make([]uint8, beams)
	assembler.FeedBathyHeader(pingNumber, serial, date, msec, uint16(beams))

	// The ping this payload's beams belong to is always the newly-opened
	// pending builder; any orphaned predecessor FeedBathyHeader may have
	// flushed is a dual-head twin, surfaced through CompleteNoSidescan /
	// Pending below rather than threaded through here.
	ping := assembler.Pending(pingNumber, serial)

	// This datagram carries the sonar's own depth/across/along directly
	// (the depression/azimuth/range fields below are the raw beam geometry,
	// unused by this representative decode), so the beams are already
	// corrected bathymetry rather than raw angles for BathymetryDeriver.
	if ping != nil {
		ping.SonarFlags |= swathio.SonarFlagBathymetryDerived
	}

	for i := 0; i < int(beams); i++ {
		b := payload[off+i*perBeam:]
		depth := bc.GetI16(b, 0, order)
		across := bc.GetI16(b, 2, order)
		along := bc.GetI16(b, 4, order)
		_ = bc.GetI16(b, 6, order) // depression angle, representative field only
		_ = bc.GetU16(b, 8, order) // azimuth
		_ = bc.GetU16(b, 10, order) // range
		beamNums[i] = b[12]
		if ping != nil && i < len(ping.Depth) {
			ping.Depth[i] = float64(depth) / 100.0
			ping.Across[i] = float64(across) / 100.0
			ping.Along[i] = float64(along) / 100.0
		}
	}

	if !swathio.MonotoneBeamNumbers(beamNums, beamsMax) {
		return nil, swathio.NewCodecError(swathio.Malformed, 0, swathio.Bathymetry, nil)
	}

	// This representative SIMRAD-class datagram carries no separate
	// sidescan sub-record, so completion is known at decode time rather
	// than needing the sidescan timestamp cross-check — the ping is
	// emitted as soon as its beams are filled.
	complete := assembler.CompleteNoSidescan(pingNumber)
	if complete == nil {
		complete = ping // dual-head: emitted once the twin arrives instead
	}
	if complete == nil {
		return &swathio.Record{Kind: swathio.Bathymetry}, nil
	}

	return &swathio.Record{Kind: swathio.Bathymetry, Ping: complete, Time: epochToTime(date, msec)}, nil
}

func decodeComment(payload []byte) (*swathio.Record, error) {
	if len(payload) < 8 {
		return nil, swathio.NewCodecError(swathio.UnexpectedEof, 0, swathio.Comment, nil)
	}
	seconds := bc.GetI32(payload, 0, swathio.BigEndian)
	nanos := bc.GetI32(payload, 4, swathio.BigEndian)
	value := strings.TrimRight(string(payload[8:]), "\x00")
	return &swathio.Record{
		Kind:    swathio.Comment,
		Comment: &swathio.CommentRecord{Seconds: int64(seconds), Nanoseconds: int64(nanos), Value: value},
	}, nil
}

// decodeParameterBlock parses the mixed binary-header-then-ASCII
// KEY=VALUE,KEY=VALUE,... block described in §4.3, reversing the
// comma/caret escape used to protect literal commas inside a comment
// value.
func decodeParameterBlock(typeCode uint16, payload []byte, order swathio.Endian) (*swathio.Record, error) {
	text := string(bytes.TrimRight(payload, "\x00"))
	params := make(map[string]string)
	for _, kv := range strings.Split(text, ",") {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			continue // unknown/malformed token: silently skipped per §4.3
		}
		key := parts[0]
		if len(key) > 3 {
			key = key[:3]
		}
		params[key] = unescapeCommas(parts[1])
	}

	kind := swathio.Start
	if typeCode == typeRunParam {
		kind = swathio.RunParameter
	}

	run := &swathio.RunParameter_{}
	if v, ok := params["SON"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			run.SonarType = n
		}
	}
	if v, ok := params["BMC"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			run.BeamCount = n
		}
	}

	return &swathio.Record{Kind: kind, Run: run}, nil
}

// unescapeCommas reverses the '^' escape the encoder substitutes for
// literal commas inside a comment field (§4.3, §8 scenario 6).
func unescapeCommas(s string) string {
	return strings.ReplaceAll(s, "^", ",")
}

// escapeCommas protects literal commas in a field value before it is
// embedded in a KEY=VALUE,... block.
func escapeCommas(s string) string {
	return strings.ReplaceAll(s, ",", "^")
}

func epochToTime(date, msec uint32) time.Time {
	return time.Unix(int64(date), 0).Add(time.Duration(msec) * time.Millisecond)
}

// Encoder writes SIMRAD-class records.
type Encoder struct{}

func (Encoder) Encode(rec *swathio.Record, sink swathio.Sink, sess *swathio.SessionState) error {
	order := sess.ByteOrder
	var payload []byte

	switch rec.Kind {
	case swathio.Comment:
		payload = encodeComment(rec.Comment)
		return writeFramed(sink, typeComment, 0, payload, order)
	case swathio.Start, swathio.RunParameter:
		payload = encodeParameterBlock(rec.Run)
		t := typeStart
		if rec.Kind == swathio.RunParameter {
			t = typeRunParam
		}
		return writeFramed(sink, t, 0, payload, order)
	case swathio.Stop:
		return writeFramed(sink, typeStop, 0, nil, order)
	case swathio.Bathymetry:
		payload = encodeBathymetry(rec.Ping, order)
		return writeFramed(sink, typeBathymetry, rec.Ping.SonarKind, payload, order)
	default:
		return swathio.NewCodecError(swathio.BadKind, -1, rec.Kind, nil)
	}
}

func encodeComment(c *swathio.CommentRecord) []byte {
	buf := make([]byte, 8+len(c.Value))
	bc.PutI32(buf, 0, int32(c.Seconds), swathio.BigEndian)
	bc.PutI32(buf, 4, int32(c.Nanoseconds), swathio.BigEndian)
	copy(buf[8:], c.Value)
	return buf
}

func encodeParameterBlock(r *swathio.RunParameter_) []byte {
	if r == nil {
		r = &swathio.RunParameter_{}
	}
	s := "SON=" + escapeCommas(strconv.Itoa(r.SonarType)) + ",BMC=" + escapeCommas(strconv.Itoa(r.BeamCount))
	return []byte(s)
}

func encodeBathymetry(p *swathio.Ping, order swathio.Endian) []byte {
	n := len(p.Depth)
	buf := make([]byte, 20+n*13)
	bc.PutU32(buf, 0, 0, order) // date placeholder; caller fills via Time
	bc.PutU32(buf, 4, 0, order)
	bc.PutU16(buf, 8, uint16(p.PingNumber), order)
	bc.PutU16(buf, 10, p.Serial, order)
	buf[16] = byte(n)
	buf[17] = byte(n)
	off := 20
	for i := 0; i < n; i++ {
		b := buf[off+i*13:]
		bc.PutI16(b, 0, int16(p.Depth[i]*100), order)
		bc.PutI16(b, 2, int16(p.Across[i]*100), order)
		bc.PutI16(b, 4, int16(p.Along[i]*100), order)
		b[12] = byte(i + 1)
	}
	return buf
}

func writeFramed(sink swathio.Sink, typeCode, sonarModel uint16, payload []byte, order swathio.Endian) error {
	header := make([]byte, 8)
	bc.PutU32(header, 0, uint32(6+len(payload)), order)
	bc.PutU16(header, 4, typeCode, order)
	bc.PutU16(header, 6, sonarModel, order)

	trailer := make([]byte, 3)
	trailer[0] = endMarker
	checksum := checksum16(payload)
	bc.PutU16(trailer, 1, checksum, order)

	if _, err := sink.Write(header); err != nil {
		return swathio.NewCodecError(swathio.WriteFailed, -1, swathio.RawLine, err)
	}
	if _, err := sink.Write(payload); err != nil {
		return swathio.NewCodecError(swathio.WriteFailed, -1, swathio.RawLine, err)
	}
	if _, err := sink.Write(trailer); err != nil {
		return swathio.NewCodecError(swathio.WriteFailed, -1, swathio.RawLine, err)
	}
	return nil
}

func checksum16(payload []byte) uint16 {
	var sum uint16
	for _, b := range payload {
		sum += uint16(b)
	}
	return sum
}
