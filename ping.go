package swathio

import "time"

const MaxBeams = 1024

// SonarFlagAnglesCorrected is the sonar_flags bit (§4.2) a format decoder
// sets when the wire record's per-beam pitch/roll angles are already
// roll-pitch corrected, so BathymetryDeriver.Derive skips the attitude
// subtraction step (§4.6 step 2). Decoders that don't carry this
// distinction leave the bit clear, the conservative default.
const SonarFlagAnglesCorrected uint32 = 1 << 0

// AnglesCorrected reports whether p's per-beam angles are already
// roll-pitch corrected per SonarFlagAnglesCorrected.
func (p *Ping) AnglesCorrected() bool {
	return p.SonarFlags&SonarFlagAnglesCorrected != 0
}

// SonarFlagBathymetryDerived marks a ping whose Depth/Across/Along were
// decoded directly off the wire already corrected (e.g. a sonar family's
// "corrected bathymetry" record variant), so BathymetryDeriver.Derive must
// not reprocess it from Range/TakeoffAngle.
const SonarFlagBathymetryDerived uint32 = 1 << 1

// BathymetryDerived reports whether p's geometry was decoded pre-corrected
// per SonarFlagBathymetryDerived.
func (p *Ping) BathymetryDerived() bool {
	return p.SonarFlags&SonarFlagBathymetryDerived != 0
}

// Ping is the central aggregate: one sonar transmission with its beams,
// sidescan, and the sensor context interpolated at the ping's time.
type Ping struct {
	PingNumber    uint32
	Time          time.Time
	DeviceId      uint16
	SonarKind     uint16
	SonarFlags    uint32
	DataAvailable DataAvailable
	BeamCount     uint16
	PixelCount    uint32

	Range           []float64
	TakeoffAngle    []float64
	AzimuthalAngle  []float64
	PitchAngle      []float64
	RollAngle       []float64
	Depth           []float64
	Across          []float64
	Along           []float64
	Amplitude       []int16
	Quality         []uint8
	Flags           []BeamFlag

	SidescanPort       []uint16
	SidescanStarboard  []uint16
	SidescanSampleRate float64
	SidescanPingNumber uint32

	Longitude float64
	Latitude  float64
	Heading   float64
	Roll      float64
	Pitch     float64
	Heave     float64
	Draft     float64
	Speed     float64

	// Serial distinguishes the two halves of a dual-head ping; zero value
	// means single-head.
	Serial uint16
}

// newPing allocates fresh beam arrays sized to beamCount. The assembler
// calls it for every bathymetry header, so each emitted Ping owns its own
// arrays; arrays are not reused from one ping to the next.
func newPing(beamCount uint16) *Ping {
	n := int(beamCount)
	return &Ping{
		BeamCount:      beamCount,
		Range:          make([]float64, n),
		TakeoffAngle:   make([]float64, n),
		AzimuthalAngle: make([]float64, n),
		PitchAngle:     make([]float64, n),
		RollAngle:      make([]float64, n),
		Depth:          make([]float64, n),
		Across:         make([]float64, n),
		Along:          make([]float64, n),
		Amplitude:      make([]int16, n),
		Quality:        make([]uint8, n),
		Flags:          make([]BeamFlag, n),
	}
}

// growBeams extends a Ping's per-beam arrays to beamCount in place if it
// currently holds fewer, reusing backing storage otherwise — mirrors the
// teacher's newBeamArray/appendPingData preallocate-once discipline.
func (p *Ping) growBeams(beamCount uint16) {
	if int(beamCount) <= len(p.Range) {
		p.BeamCount = beamCount
		return
	}
	fresh := newPing(beamCount)
	copy(fresh.Range, p.Range)
	copy(fresh.TakeoffAngle, p.TakeoffAngle)
	copy(fresh.AzimuthalAngle, p.AzimuthalAngle)
	copy(fresh.PitchAngle, p.PitchAngle)
	copy(fresh.RollAngle, p.RollAngle)
	copy(fresh.Depth, p.Depth)
	copy(fresh.Across, p.Across)
	copy(fresh.Along, p.Along)
	copy(fresh.Amplitude, p.Amplitude)
	copy(fresh.Quality, p.Quality)
	copy(fresh.Flags, p.Flags)
	*p = *fresh
}

// MonotoneBeamNumbers checks the invariant that beam numbers (index order
// here, since Ping's arrays are beam-number-indexed) are non-decreasing —
// always true by construction, but format decoders validate the wire
// sequence against it before accepting a record (§4.3 post-check).
func MonotoneBeamNumbers(beamNum []uint8, beamsMax uint8) bool {
	for i := 1; i < len(beamNum); i++ {
		if beamNum[i] < beamNum[i-1] || beamNum[i] > beamsMax {
			return false
		}
	}
	return true
}
