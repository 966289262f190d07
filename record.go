package swathio

import "time"

// Record is the tagged union a reader yields: at most one of the pointer
// fields, the one matching Kind, is populated; kinds with no body (Stop and
// the sensor records) carry none. A Bathymetry or Sidescan record carries a
// Ping when its sub-record completed one, and a nil Ping when it only opened
// or fed a pending ping. Records are yielded as soon as their RecordCodec
// decodes them.
type Record struct {
	Kind    RecordKind
	Time    time.Time
	Ping    *Ping
	Comment *CommentRecord
	SVP     *SoundVelocityProfile
	Device  *Device
	Run     *RunParameter_
	Raw     *RawLineRecord
}

// Decoder decodes one record from the framed byte stream, given the
// session's sticky state. It returns (nil, err) on a failure; for the
// warning-shaped kinds (ChecksumError, DataSkipped) it returns the decoded
// record together with the error, and the caller (Session.ReadNext) decides
// whether to use it.
type Decoder interface {
	DecodeNext(f *Framer, sess *SessionState, store *StoreModel, assembler *PingAssembler, interp *SensorInterpolators) (*Record, error)
}

// Encoder writes one record to the sink in the format's wire layout.
type Encoder interface {
	Encode(rec *Record, sink Sink, sess *SessionState) error
}

// Session binds a Framer, a format's Decoder/Encoder, and the shared
// engine state (StoreModel, PingAssembler, SensorInterpolators) into the
// single read_next/write_record surface exposed to callers (§6.5).
type Session struct {
	Framer    *Framer
	Decoder   Decoder
	Encoder   Encoder
	State     *SessionState
	Store     *StoreModel
	Assembler *PingAssembler
	Interp    *SensorInterpolators
	Deriver   BathymetryDeriver
	PostSynth MakeProcessedSidescan
}

func NewSession(framer *Framer, dec Decoder, enc Encoder, fallback Endian, reqs SonarRequirements) *Session {
	return &Session{
		Framer:    framer,
		Decoder:   dec,
		Encoder:   enc,
		State:     NewSessionState(fallback),
		Store:     NewStoreModel(),
		Assembler: NewPingAssembler(reqs),
		Interp:    NewSensorInterpolators(),
		Deriver:   BathymetryDeriver{},
	}
}

// ReadNext decodes and returns the next record, or (nil, ErrEndOfInput) at
// a clean end of stream. ChecksumError and DataSkipped are returned
// alongside a valid record (callers choose abort-on-first-error or
// skip-and-continue per §7).
//
// Every time a sub-record completes a ping, ReadNext interpolates the
// ancillary sensor context at the ping's time, derives corrected
// across/along/depth/flags, and appends the finished ping to Store, per the
// read_next() contract in §2, regardless of which format's Decoder
// produced the completed record.
func (s *Session) ReadNext() (*Record, error) {
	rec, err := s.Decoder.DecodeNext(s.Framer, s.State, s.Store, s.Assembler, s.Interp)
	if rec == nil {
		return rec, err
	}

	switch rec.Kind {
	case Bathymetry, Sidescan:
		if rec.Ping != nil {
			t := epochSeconds(rec.Time)
			s.Interp.Context(rec.Ping, t)
			if !rec.Ping.BathymetryDerived() {
				s.Deriver.Derive(rec.Ping, rec.Ping.Draft, rec.Ping.Heave, rec.Ping.AnglesCorrected(), s.Interp)
			}
			if s.PostSynth != nil {
				s.PostSynth(rec.Ping)
			}
			s.Store.AddPing(rec.Ping)
		}
	case Comment:
		if rec.Comment != nil {
			s.Store.AddComment(*rec.Comment)
		}
	}
	return rec, err
}

// epochSeconds converts a decoded record's timestamp into the session-epoch
// float64 seconds domain SensorInterpolators channels are keyed on (§4.4),
// recovering the same whole-seconds-plus-fraction value every format's
// channel-feeding decoders derive from the identical wire time field.
func epochSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

// WriteRecord encodes rec to sink via the format's Encoder.
func (s *Session) WriteRecord(rec *Record, sink Sink) error {
	if err := s.Encoder.Encode(rec, sink, s.State); err != nil {
		return err
	}
	return nil
}
