// Package hysweep implements the HYSWEEP-class representative format: an
// ASCII line-oriented stream with tokenized multi-line records (§6.2).
// Grounded in MB-System's mbr_hysweep1_rd_data: RMB carries the bathymetry
// header and beam-availability bitmask, the lines right after it carry the
// per-beam arrays the bitmask declares present, and RSS lines carry the
// sidescan that pairs with an RMB ping.
package hysweep

import (
	"strconv"
	"strings"
	"time"

	"github.com/dwcaress/swathio"
)

// Known 3-character line tags (§6.2).
var knownTags = map[string]bool{
	"RMB": true, "RSS": true, "MSS": true, "HCP": true, "GYR": true,
	"POS": true, "DFT": true, "EC1": true, "TID": true, "COM": true,
	"DEV": true, "DV2": true, "OF2": true, "PRI": true, "MBI": true,
	"SSI": true, "HVF": true, "INF": true, "TND": true, "PRJ": true,
	"FTP": true, "VER": true, "HSP": true, "HSX": true, "EOH": true,
	"EOL": true,
}

// beamDataAvailable bits, mirroring store->RMB_beam_data_available in
// mbr_hysweep1_rd_data: each set bit means one more trailing beam-array
// line follows the RMB header line.
const (
	bitRanges uint32 = 1 << iota
	bitAcrossTrack
	bitDepth
	bitIntensity
	bitQuality
	// bitSidescan marks that a paired RSS line is expected to follow this
	// RMB before the ping is complete, rather than completing on RMB alone.
	bitSidescan
)

// Decoder decodes HYSWEEP-class line records.
type Decoder struct {
	MaxBeams int
}

func NewDecoder(maxBeams int) *Decoder {
	if maxBeams <= 0 {
		maxBeams = 1024
	}
	return &Decoder{MaxBeams: maxBeams}
}

func (d *Decoder) DecodeNext(f *swathio.Framer, sess *swathio.SessionState, store *swathio.StoreModel, assembler *swathio.PingAssembler, interp *swathio.SensorInterpolators) (*swathio.Record, error) {
	skipped := 0
	skippedBytes := 0

	for {
		start := f.Offset()
		line, err := f.NextLine()
		if err != nil {
			if err == swathio.ErrEndOfInput {
				if skipped > 0 {
					return nil, swathio.NewCodecError(swathio.UnexpectedEof, f.Offset(), swathio.RawLine, nil)
				}
				return nil, swathio.ErrEndOfInput
			}
			return nil, err
		}
		if len(line) == 0 {
			continue
		}

		tag := strings.ToUpper(strings.TrimSpace(line))
		if len(tag) >= 3 {
			tag = tag[:3]
		}

		if !knownTags[tag] {
			if skipped >= 4096 {
				return nil, swathio.NewCodecError(swathio.BadSync, f.Offset(), swathio.RawLine, nil)
			}
			skipped++
			skippedBytes += int(f.Offset() - start)
			continue
		}

		rec, err := d.dispatch(tag, line, f, sess, store, assembler, interp)
		if err != nil {
			return nil, err
		}
		if skipped > 0 {
			return rec, swathio.NewCodecError(swathio.DataSkipped, f.Offset(), rec.Kind, nil).WithCount(skippedBytes)
		}
		return rec, nil
	}
}

func (d *Decoder) dispatch(tag, line string, f *swathio.Framer, sess *swathio.SessionState, store *swathio.StoreModel, assembler *swathio.PingAssembler, interp *swathio.SensorInterpolators) (*swathio.Record, error) {
	switch tag {
	case "RMB":
		return d.decodeRMB(line, f, assembler)
	case "RSS":
		return decodeRSS(line, assembler)
	case "HCP":
		return decodeHCP(line, interp)
	case "GYR":
		return decodeGYR(line, interp)
	case "POS":
		return decodePOS(line, interp)
	case "DFT":
		return decodeDFT(line, interp)
	case "COM":
		return decodeCOM(line)
	case "MBI":
		return decodeMBI(line, store)
	case "EOH", "EOL":
		return &swathio.Record{Kind: swathio.Stop, Time: time.Now()}, nil
	default:
		return &swathio.Record{Kind: swathio.RawLine, Raw: &swathio.RawLineRecord{Label: tag, Payload: []byte(line)}}, nil
	}
}

// decodeRMB parses the RMB header line — device_number, time, sonar_type,
// sonar_flags, beam_data_available, num_beams, sound_velocity, ping_number
// — exactly the sscanf token order in mbr_hysweep1_rd_data, then reads one
// trailing line per set bit in beam_data_available.
func (d *Decoder) decodeRMB(line string, f *swathio.Framer, assembler *swathio.PingAssembler) (*swathio.Record, error) {
	fields := strings.Fields(line)
	if len(fields) < 9 {
		return nil, swathio.NewCodecError(swathio.Malformed, f.Offset(), swathio.Bathymetry, nil)
	}

	deviceNumber, _ := strconv.Atoi(fields[1])
	timeVal, _ := strconv.ParseFloat(fields[2], 64)
	sonarFlags, _ := strconv.ParseUint(strings.TrimPrefix(fields[4], "0x"), 16, 32)
	beamAvail, _ := strconv.ParseUint(strings.TrimPrefix(fields[5], "0x"), 16, 32)
	numBeams, err := strconv.Atoi(fields[6])
	if err != nil || numBeams < 0 || numBeams > d.MaxBeams {
		return nil, swathio.NewCodecError(swathio.Malformed, f.Offset(), swathio.Bathymetry, nil)
	}
	pingNumber, _ := strconv.Atoi(fields[8])

	date := uint32(timeVal)
	msec := uint32((timeVal - float64(date)) * 1000)

	assembler.FeedBathyHeader(uint32(pingNumber), uint16(deviceNumber), date, msec, uint16(numBeams))
	ping := assembler.Pending(uint32(pingNumber), uint16(deviceNumber))
	if ping != nil {
		ping.DeviceId = uint16(deviceNumber)
		// The wire's own sonar_flags bits don't include take-off/azimuth
		// angle data for this representative line format — whatever of
		// depth/across/range the beam-availability bitmask declares is
		// already final, so the deriver must not reprocess these beams.
		ping.SonarFlags = uint32(sonarFlags) | swathio.SonarFlagBathymetryDerived
	}

	for _, bit := range []uint32{bitRanges, bitAcrossTrack, bitDepth, bitIntensity, bitQuality} {
		if uint32(beamAvail)&bit == 0 {
			continue
		}
		arrLine, err := f.NextLine()
		if err != nil {
			return nil, err
		}
		applyBeamLine(ping, bit, arrLine)
	}

	recTime := time.Unix(int64(date), 0).Add(time.Duration(msec) * time.Millisecond)

	// A set bitSidescan means a paired RSS line follows before this ping is
	// complete; leave it pending for decodeRSS to finish via FeedSidescan
	// rather than completing here (§4.5 PartialBathy/PartialSidescan pairing).
	if uint32(beamAvail)&bitSidescan != 0 {
		return &swathio.Record{Kind: swathio.Bathymetry, Time: recTime}, nil
	}

	complete := assembler.CompleteNoSidescan(uint32(pingNumber))
	if complete == nil {
		complete = ping
	}
	if complete == nil {
		return &swathio.Record{Kind: swathio.Bathymetry}, nil
	}
	return &swathio.Record{Kind: swathio.Bathymetry, Ping: complete, Time: recTime}, nil
}

// decodeRSS parses a trailing-sidescan line — time, sample_rate, sample
// count, port samples, starboard samples — and feeds it to the assembler,
// completing whichever bathymetry ping it pairs with.
func decodeRSS(line string, assembler *swathio.PingAssembler) (*swathio.Record, error) {
	f := strings.Fields(line)
	if len(f) < 5 {
		return nil, swathio.NewCodecError(swathio.Malformed, 0, swathio.Sidescan, nil)
	}
	timeVal, _ := strconv.ParseFloat(f[1], 64)
	sampleRate, _ := strconv.ParseFloat(f[2], 64)
	n, _ := strconv.Atoi(f[3])
	if n < 0 || 4+2*n > len(f) {
		n = (len(f) - 4) / 2
	}
	port := make([]uint16, n)
	starboard := make([]uint16, n)
	for i := 0; i < n; i++ {
		v, _ := strconv.Atoi(f[4+i])
		port[i] = uint16(v)
	}
	for i := 0; i < n; i++ {
		v, _ := strconv.Atoi(f[4+n+i])
		starboard[i] = uint16(v)
	}

	date := uint32(timeVal)
	msec := uint32((timeVal - float64(date)) * 1000)

	completed := assembler.FeedSidescan(0, date, msec, port, starboard, sampleRate)
	rec := &swathio.Record{Kind: swathio.Sidescan, Time: time.Unix(int64(date), 0).Add(time.Duration(msec) * time.Millisecond)}
	if len(completed) > 0 {
		rec.Ping = completed[0]
	}
	return rec, nil
}

// applyBeamLine tokenizes one trailing beam-array line (space-separated
// values, as strtok_r does in the original) and stores it into the arrays
// the set bit names.
func applyBeamLine(p *swathio.Ping, bit uint32, line string) {
	if p == nil {
		return
	}
	tokens := strings.Fields(line)
	n := len(tokens)
	if n > len(p.Range) {
		n = len(p.Range)
	}
	for i := 0; i < n; i++ {
		v, err := strconv.ParseFloat(tokens[i], 64)
		if err != nil {
			continue
		}
		switch bit {
		case bitRanges:
			p.Range[i] = v
		case bitAcrossTrack:
			p.Across[i] = v
		case bitDepth:
			p.Depth[i] = v
		case bitIntensity:
			p.Amplitude[i] = int16(v)
		case bitQuality:
			p.Quality[i] = uint8(v)
		}
	}
}

// decodeHCP parses an attitude line (time, heave, pitch, roll, in that
// order) into the attitude interpolator channel.
func decodeHCP(line string, interp *swathio.SensorInterpolators) (*swathio.Record, error) {
	f := strings.Fields(line)
	if len(f) < 5 {
		return nil, swathio.NewCodecError(swathio.Malformed, 0, swathio.Attitude, nil)
	}
	t, _ := strconv.ParseFloat(f[1], 64)
	heave, _ := strconv.ParseFloat(f[2], 64)
	pitch, _ := strconv.ParseFloat(f[3], 64)
	roll, _ := strconv.ParseFloat(f[4], 64)
	interp.Attitude.Add(t, pitch, roll, heave)
	return &swathio.Record{Kind: swathio.Attitude}, nil
}

func decodeGYR(line string, interp *swathio.SensorInterpolators) (*swathio.Record, error) {
	f := strings.Fields(line)
	if len(f) < 3 {
		return nil, swathio.NewCodecError(swathio.Malformed, 0, swathio.Heading, nil)
	}
	t, _ := strconv.ParseFloat(f[1], 64)
	heading, _ := strconv.ParseFloat(f[2], 64)
	interp.Heading.Add(t, heading)
	return &swathio.Record{Kind: swathio.Heading}, nil
}

func decodePOS(line string, interp *swathio.SensorInterpolators) (*swathio.Record, error) {
	f := strings.Fields(line)
	if len(f) < 5 {
		return nil, swathio.NewCodecError(swathio.Malformed, 0, swathio.Navigation1, nil)
	}
	t, _ := strconv.ParseFloat(f[1], 64)
	lon, _ := strconv.ParseFloat(f[2], 64)
	lat, _ := strconv.ParseFloat(f[3], 64)
	speed, _ := strconv.ParseFloat(f[4], 64)
	interp.Nav.Add(t, lon, lat, speed)
	return &swathio.Record{Kind: swathio.Navigation1}, nil
}

func decodeDFT(line string, interp *swathio.SensorInterpolators) (*swathio.Record, error) {
	f := strings.Fields(line)
	if len(f) < 3 {
		return nil, swathio.NewCodecError(swathio.Malformed, 0, swathio.Tide, nil)
	}
	t, _ := strconv.ParseFloat(f[1], 64)
	draft, _ := strconv.ParseFloat(f[2], 64)
	interp.Depth.Add(t, draft)
	return &swathio.Record{Kind: swathio.Tide}, nil
}

func decodeCOM(line string) (*swathio.Record, error) {
	value := strings.TrimSpace(strings.TrimPrefix(line, "COM"))
	return &swathio.Record{Kind: swathio.Comment, Comment: &swathio.CommentRecord{Value: value}}, nil
}

// decodeMBI parses the run-time instrument parameters line (§3.1
// supplemented fields): sonar type, beam count, first-beam angle, angle
// increment, in that order. The SonarFlags and BeamDataAvailable fields of
// RunParameter_ are not read from this line and stay zero.
func decodeMBI(line string, store *swathio.StoreModel) (*swathio.Record, error) {
	f := strings.Fields(line)
	run := &swathio.RunParameter_{}
	if len(f) > 1 {
		run.SonarType, _ = strconv.Atoi(f[1])
	}
	if len(f) > 2 {
		beamCount, _ := strconv.Atoi(f[2])
		run.BeamCount = beamCount
	}
	if len(f) > 3 {
		run.FirstBeamAngle, _ = strconv.ParseFloat(f[3], 64)
	}
	if len(f) > 4 {
		run.AngleIncrement, _ = strconv.ParseFloat(f[4], 64)
	}
	store.RunParams = append(store.RunParams, *run)
	return &swathio.Record{Kind: swathio.RunParameter, Run: run}, nil
}

// Encoder writes HYSWEEP-class line records.
type Encoder struct{}

func (Encoder) Encode(rec *swathio.Record, sink swathio.Sink, sess *swathio.SessionState) error {
	var line string
	switch rec.Kind {
	case swathio.Comment:
		line = "COM " + rec.Comment.Value
	case swathio.Bathymetry:
		line = encodeRMB(rec.Ping)
	case swathio.RunParameter:
		line = encodeMBI(rec.Run)
	case swathio.RawLine:
		line = string(rec.Raw.Payload)
	default:
		return swathio.NewCodecError(swathio.BadKind, -1, rec.Kind, nil)
	}
	if _, err := sink.Write([]byte(line + "\r\n")); err != nil {
		return swathio.NewCodecError(swathio.WriteFailed, -1, rec.Kind, err)
	}
	return nil
}

func encodeRMB(p *swathio.Ping) string {
	var b strings.Builder
	b.WriteString("RMB ")
	b.WriteString(strconv.Itoa(int(p.DeviceId)))
	b.WriteString(" 0 0 0x0 0x7 ")
	b.WriteString(strconv.Itoa(len(p.Range)))
	b.WriteString(" 1500 ")
	b.WriteString(strconv.Itoa(int(p.PingNumber)))
	b.WriteString("\r\n")
	b.WriteString(joinFloats(p.Range))
	b.WriteString("\r\n")
	b.WriteString(joinFloats(p.Across))
	b.WriteString("\r\n")
	b.WriteString(joinFloats(p.Depth))
	return b.String()
}

func encodeMBI(r *swathio.RunParameter_) string {
	if r == nil {
		r = &swathio.RunParameter_{}
	}
	return "MBI " + strconv.Itoa(r.SonarType) + " " + strconv.Itoa(r.BeamCount) + " " +
		strconv.FormatFloat(r.FirstBeamAngle, 'f', -1, 64) + " " +
		strconv.FormatFloat(r.AngleIncrement, 'f', -1, 64)
}

func joinFloats(vals []float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatFloat(v, 'f', 3, 64)
	}
	return strings.Join(parts, " ")
}
