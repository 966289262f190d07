package swathio

import "github.com/samber/lo"

// StoreModel holds the typed, growable containers for one session: the
// emitted pings plus the raw records of every other kind the format
// carries, grounded in the teacher's FileInfo/Metadata/Index accumulation
// in file.go but built incrementally (append-as-decoded) rather than in one
// whole-file scan.
type StoreModel struct {
	Pings      []*Ping
	Comments   []CommentRecord
	SVP        []SoundVelocityProfile
	Devices    []Device
	RunParams  []RunParameter_
	RawLines   []RawLineRecord

	KindCounts map[RecordKind]int
}

func NewStoreModel() *StoreModel {
	return &StoreModel{KindCounts: make(map[RecordKind]int)}
}

// CommentRecord is a free-text annotation record, common to every format
// class (SIMRAD "comment" parameter, HYSWEEP COM line, WASSP MCOMMENT tag).
type CommentRecord struct {
	Seconds     int64
	Nanoseconds int64
	Value       string
}

// SoundVelocityProfile is a depth/sound-speed observation pair series at a
// fixed position and time, grounded on the teacher's svp.go layout.
type SoundVelocityProfile struct {
	ObservationSeconds int64
	AppliedSeconds     int64
	Longitude          float64
	Latitude           float64
	Depth              []float64
	SoundVelocity      []float64
}

// Device is a sensor/transducer registration — HYSWEEP's DEV/DV2/OF2
// records supplied the grounding for this (§3.1 supplemented fields):
// device number, capability bitmask, name, and mounting offsets.
type Device struct {
	Number       int
	Capabilities uint32
	Name         string
	OffsetFwd    float64
	OffsetStbd   float64
	OffsetVert   float64
	OffsetYaw    float64
	OffsetRoll   float64
	OffsetPitch  float64
	OffsetTime   float64
}

// RunParameter_ is the run-time instrument configuration record (HYSWEEP
// MBI: sonar type/flags, beam-data-available bitmask, beam counts,
// first-beam angle, angle increment).
type RunParameter_ struct {
	SonarType           int
	SonarFlags          uint32
	BeamDataAvailable   uint32
	BeamCount           int
	FirstBeamAngle      float64
	AngleIncrement      float64
}

// RawLineRecord preserves an unrecognized tag/line verbatim so that
// round-tripping an unknown payload through decode+encode is lossless
// (§4.3 WASSP-class: "unknown tags are preserved verbatim as RawLine").
type RawLineRecord struct {
	Label   string
	Payload []byte
}

func (s *StoreModel) AddPing(p *Ping) {
	s.Pings = append(s.Pings, p)
	s.KindCounts[Bathymetry]++
}

func (s *StoreModel) AddComment(c CommentRecord) {
	s.Comments = append(s.Comments, c)
	s.KindCounts[Comment]++
}

// QualityInfo summarizes cross-ping consistency, grounded in the teacher's
// qa.go QInfo — Min/Max beam counts via lo.Min/lo.Max, and duplicate
// detection keyed on (ping number, serial) through a seen-map, which
// distinguishes legitimate dual-head/dual-swath coincidence from genuine
// duplication (§3.1).
type QualityInfo struct {
	MinBeams         int
	MaxBeams         int
	ConsistentBeams  bool
	CoincidentPings  []uint32 // same ping_number, different Serial: dual-head
	DuplicatePings   []uint32 // same ping_number AND Serial: genuine duplicate
}

func (s *StoreModel) QInfo() QualityInfo {
	if len(s.Pings) == 0 {
		return QualityInfo{}
	}

	counts := lo.Map(s.Pings, func(p *Ping, _ int) int { return int(p.BeamCount) })
	minB, maxB := lo.Min(counts), lo.Max(counts)

	type key struct {
		num    uint32
		serial uint16
	}
	seen := make(map[key]bool)
	numOnly := make(map[uint32]int)
	var coincident, duplicate []uint32

	for _, p := range s.Pings {
		k := key{p.PingNumber, p.Serial}
		if seen[k] {
			duplicate = append(duplicate, p.PingNumber)
		}
		seen[k] = true
		numOnly[p.PingNumber]++
	}
	for num, n := range numOnly {
		if n > 1 && !lo.Contains(duplicate, num) {
			coincident = append(coincident, num)
		}
	}

	return QualityInfo{
		MinBeams:        minB,
		MaxBeams:        maxB,
		ConsistentBeams: minB == maxB,
		CoincidentPings: coincident,
		DuplicatePings:  lo.Uniq(duplicate),
	}
}
