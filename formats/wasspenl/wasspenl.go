// Package wasspenl implements the WASSP-class representative format: a
// tagged little-endian binary stream with variable-sized trailing arrays
// (§6.3). Grounded in mbr_wasspenl.c: MBSYS_WASSP_SYNC, 8-byte ASCII tags
// (GENBATHY, CORBATHY, RAWSONAR, NVUPDATE, MCOMMENT), and the fixed
// checksum placeholder the original writer emits instead of computing one.
package wasspenl

import (
	"strings"
	"time"

	"github.com/dwcaress/swathio"
)

const syncWord uint32 = 0x77AA0011

// checksumPlaceholder mirrors mbr_wasspenl.c: the original writer never
// computes a real checksum over the record; it always writes this
// constant. Preserved here rather than "fixed" — faithfully reproducing a
// quirk of the format, not a bug in this codec.
const checksumPlaceholder uint32 = 0x8806CBA5

var knownTags = map[string]bool{
	"GENBATHY": true, "CORBATHY": true, "RAWSONAR": true,
	"NVUPDATE": true, "MCOMMENT": true,
}

var bc swathio.ByteCodec

const order = swathio.LittleEndian

// Decoder decodes WASSP-class tagged binary records.
type Decoder struct {
	MaxBeams int
}

func NewDecoder(maxBeams int) *Decoder {
	if maxBeams <= 0 {
		maxBeams = 256
	}
	return &Decoder{MaxBeams: maxBeams}
}

func (d *Decoder) DecodeNext(f *swathio.Framer, sess *swathio.SessionState, store *swathio.StoreModel, assembler *swathio.PingAssembler, interp *swathio.SensorInterpolators) (*swathio.Record, error) {
	skipped := 0

	for {
		peek, err := f.Peek(16)
		if len(peek) < 16 {
			if skipped > 0 {
				return nil, swathio.NewCodecError(swathio.UnexpectedEof, f.Offset(), swathio.RawLine, nil)
			}
			if err != nil {
				return nil, swathio.ErrEndOfInput
			}
		}

		if len(peek) == 16 {
			sync := bc.GetU32(peek, 0, order)
			// A valid sync word is enough to accept the frame even for a
			// tag this decoder doesn't know: unknown tags still round-trip
			// as RawLine rather than forcing a resync (§4.3 WASSP-class).
			if sync == syncWord {
				break
			}
		}

		if skipped >= 4096 {
			return nil, swathio.NewCodecError(swathio.BadSync, f.Offset(), swathio.RawLine, nil)
		}
		if err := f.SkipByte(); err != nil {
			return nil, err
		}
		skipped++
	}

	header, err := f.ReadPayload(16)
	if err != nil {
		return nil, err
	}
	size := bc.GetU32(header, 4, order)
	tag := strings.TrimRight(string(header[8:16]), "\x00")

	bodyLen := int(size) - 16 - 4 // total size minus header minus trailing checksum
	if bodyLen < 0 {
		return nil, swathio.NewCodecError(swathio.Malformed, f.Offset(), swathio.RawLine, nil)
	}
	body, err := f.ReadPayload(bodyLen)
	if err != nil {
		return nil, err
	}
	trailer, err := f.ReadPayload(4)
	if err != nil {
		return nil, err
	}
	checksum := bc.GetU32(trailer, 0, order)

	var rec *swathio.Record
	var decodeErr error

	switch tag {
	case "GENBATHY", "CORBATHY":
		rec, decodeErr = decodeBathy(tag, body, d.MaxBeams, assembler)
	case "RAWSONAR":
		rec = &swathio.Record{Kind: swathio.RawBeam1}
	case "NVUPDATE":
		rec, decodeErr = decodeNavUpdate(body, interp)
	case "MCOMMENT":
		rec = &swathio.Record{Kind: swathio.Comment, Comment: &swathio.CommentRecord{Value: strings.TrimRight(string(body), "\x00")}}
	default:
		rec = &swathio.Record{Kind: swathio.RawLine, Raw: &swathio.RawLineRecord{Label: tag, Payload: body}}
	}

	if decodeErr != nil {
		return nil, decodeErr
	}

	if checksum != checksumPlaceholder {
		return rec, swathio.NewCodecError(swathio.ChecksumError, f.Offset(), rec.Kind, nil)
	}
	if skipped > 0 {
		return rec, swathio.NewCodecError(swathio.DataSkipped, f.Offset(), rec.Kind, nil).WithCount(skipped)
	}
	return rec, nil
}

// decodeBathy decodes the GENBATHY/CORBATHY body: a 16-byte header (date,
// msec, pingNumber, beams, beamsMax) followed by a fixed-width per-beam
// array whose columns differ by tag (mbr_wasspenl.c): GENBATHY carries raw
// range/take-off-angle/quality for BathymetryDeriver to resolve; CORBATHY
// carries already-corrected depth/across/quality, so it's stored directly
// and marked SonarFlagBathymetryDerived to keep the deriver from
// reprocessing it.
func decodeBathy(tag string, body []byte, maxBeams int, assembler *swathio.PingAssembler) (*swathio.Record, error) {
	const hdrLen = 16
	if len(body) < hdrLen {
		return nil, swathio.NewCodecError(swathio.UnexpectedEof, 0, swathio.Bathymetry, nil)
	}
	date := bc.GetU32(body, 0, order)
	msec := bc.GetU32(body, 4, order)
	pingNumber := bc.GetU32(body, 8, order)
	beams := bc.GetU16(body, 12, order)
	beamsMax := bc.GetU16(body, 14, order)

	if beams > beamsMax || int(beamsMax) > maxBeams {
		return nil, swathio.NewCodecError(swathio.Malformed, 0, swathio.Bathymetry, nil)
	}

	const perBeam = 10
	off := hdrLen
	if len(body) < off+int(beams)*perBeam {
		return nil, swathio.NewCodecError(swathio.UnexpectedEof, 0, swathio.Bathymetry, nil)
	}

	assembler.FeedBathyHeader(pingNumber, 0, date, msec, beams)
	ping := assembler.Pending(pingNumber, 0)

	corrected := tag == "CORBATHY"
	if ping != nil && corrected {
		ping.SonarFlags |= swathio.SonarFlagBathymetryDerived
	}

	for i := 0; i < int(beams); i++ {
		b := body[off+i*perBeam:]
		a := bc.GetF32(b, 0, order)
		c := bc.GetF32(b, 4, order)
		quality := b[8]
		if ping == nil || i >= len(ping.Range) {
			continue
		}
		ping.Quality[i] = quality
		if corrected {
			ping.Depth[i] = float64(a)
			ping.Across[i] = float64(c)
			if ping.Depth[i] == 0 {
				ping.Flags[i] = swathio.NullFlag()
			} else {
				ping.Flags[i] = swathio.NoFlag
			}
		} else {
			ping.Range[i] = float64(a)
			ping.TakeoffAngle[i] = float64(c)
		}
	}

	complete := assembler.CompleteNoSidescan(pingNumber)
	if complete == nil {
		complete = ping
	}
	if complete == nil {
		return &swathio.Record{Kind: swathio.Bathymetry}, nil
	}
	return &swathio.Record{Kind: swathio.Bathymetry, Ping: complete, Time: time.Unix(int64(date), 0).Add(time.Duration(msec) * time.Millisecond)}, nil
}

// decodeNavUpdate decodes the NVUPDATE navigation-fix record into the nav
// interpolator channel.
func decodeNavUpdate(body []byte, interp *swathio.SensorInterpolators) (*swathio.Record, error) {
	if len(body) < 24 {
		return nil, swathio.NewCodecError(swathio.UnexpectedEof, 0, swathio.Navigation1, nil)
	}
	t := bc.GetF64(body, 0, order)
	lon := bc.GetF64(body, 8, order)
	lat := bc.GetF64(body, 16, order)
	interp.Nav.Add(t, lon, lat, 0)
	return &swathio.Record{Kind: swathio.Navigation1}, nil
}

// Encoder writes WASSP-class tagged binary records.
type Encoder struct{}

func (Encoder) Encode(rec *swathio.Record, sink swathio.Sink, sess *swathio.SessionState) error {
	var tag string
	var body []byte

	switch rec.Kind {
	case swathio.Comment:
		tag = "MCOMMENT"
		body = []byte(rec.Comment.Value)
	case swathio.Bathymetry:
		tag = "GENBATHY"
		body = encodeBathy(rec.Ping)
	case swathio.Navigation1:
		tag = "NVUPDATE"
		body = make([]byte, 24)
	case swathio.RawLine:
		tag = rec.Raw.Label
		body = rec.Raw.Payload
	default:
		return swathio.NewCodecError(swathio.BadKind, -1, rec.Kind, nil)
	}

	total := 16 + len(body) + 4
	header := make([]byte, 16)
	bc.PutU32(header, 0, syncWord, order)
	bc.PutU32(header, 4, uint32(total), order)
	copy(header[8:16], padTag(tag))

	trailer := make([]byte, 4)
	bc.PutU32(trailer, 0, checksumPlaceholder, order)

	if _, err := sink.Write(header); err != nil {
		return swathio.NewCodecError(swathio.WriteFailed, -1, rec.Kind, err)
	}
	if _, err := sink.Write(body); err != nil {
		return swathio.NewCodecError(swathio.WriteFailed, -1, rec.Kind, err)
	}
	if _, err := sink.Write(trailer); err != nil {
		return swathio.NewCodecError(swathio.WriteFailed, -1, rec.Kind, err)
	}
	return nil
}

func encodeBathy(p *swathio.Ping) []byte {
	n := len(p.Range)
	buf := make([]byte, 16+n*10)
	bc.PutU32(buf, 0, 0, order)
	bc.PutU32(buf, 4, 0, order)
	bc.PutU32(buf, 8, p.PingNumber, order)
	bc.PutU16(buf, 12, uint16(n), order)
	bc.PutU16(buf, 14, uint16(n), order)
	off := 16
	for i := 0; i < n; i++ {
		b := buf[off+i*10:]
		bc.PutF32(b, 0, float32(p.Range[i]), order)
		bc.PutF32(b, 4, float32(p.TakeoffAngle[i]), order)
		b[8] = p.Quality[i]
	}
	return buf
}

func padTag(tag string) []byte {
	out := make([]byte, 8)
	copy(out, tag)
	return out
}
