package swathio

import "math"

// AttitudeAt supplies the interpolated attitude at a query time; satisfied
// by *SensorInterpolators (its InterpAttitude method) in the normal path,
// and by a fixed stub in tests.
type AttitudeAt interface {
	InterpAttitude(t float64) (pitch, roll float64, ok bool)
}

// BathymetryDeriver turns raw per-beam angle/range observations into
// corrected across/along/depth, following the teacher's geo.go style of
// precomputing trig once and looping per beam — generalized here from
// lon/lat-from-across/along (BeamsLonLat) to across/along/depth-from-angle.
type BathymetryDeriver struct {
	SoundVelocity float64 // m/s, one value for every beam; zero means 1500
}

// Derive fills Across, Along, Depth and Flags for every beam of p in place.
// anglesCorrected reports whether the wire record's per-beam angles are
// already roll/pitch corrected (sonar flag bit, §4.6 step 2); when false,
// attitude interpolated at each beam's two-way travel time is subtracted
// before angle resolution.
func (d BathymetryDeriver) Derive(p *Ping, draft, heave float64, anglesCorrected bool, att AttitudeAt) {
	for i := range p.Range {
		r := p.Range[i]
		if r == 0 {
			p.Flags[i] = NullFlag()
			p.Across[i], p.Along[i], p.Depth[i] = 0, 0, 0
			continue
		}

		theta := degToRad(p.TakeoffAngle[i])
		phi := degToRad(p.AzimuthalAngle[i])

		if p.PitchAngle[i] != 0 || p.RollAngle[i] != 0 {
			alpha := degToRad(p.PitchAngle[i])
			beta := degToRad(90 - p.RollAngle[i])

			if !anglesCorrected && att != nil {
				ttime := 2 * r / d.soundVelocity()
				if pitch, roll, ok := att.InterpAttitude(ttime); ok {
					alpha -= degToRad(pitch)
					beta -= degToRad(roll)
				}
			}

			theta, phi = resolveAngles(alpha, beta)
		}

		xx := r * math.Sin(theta)
		zz := r * math.Cos(theta)

		// Azimuth is measured from the across-track direction (beam
		// pointing abeam => phi=90 deg => full across, zero along — see
		// the worked bathymetry-derivation scenario), so across takes the
		// sine term and along the cosine term.
		p.Across[i] = xx * math.Sin(phi)
		p.Along[i] = xx * math.Cos(phi)
		p.Depth[i] = zz + draft + heave

		if p.Flags[i] == (BeamFlag{}) {
			p.Flags[i] = NoFlag
		}
	}
}

// ApplyQualityThreshold flags every beam whose quality byte is below min
// with ReasonSonar, per the format-specific quality-threshold rule in §4.6
// step 4 ("quality < 2 on one sonar family").
func (d BathymetryDeriver) ApplyQualityThreshold(p *Ping, min uint8) {
	for i, q := range p.Quality {
		if p.Flags[i].Null {
			continue
		}
		if q < min {
			p.Flags[i] = FlaggedFlag(ReasonSonar)
		}
	}
}

func (d BathymetryDeriver) soundVelocity() float64 {
	if d.SoundVelocity == 0 {
		return 1500.0
	}
	return d.SoundVelocity
}

// resolveAngles converts pitch/roll-frame (alpha, beta) to (take-off,
// azimuth) via standard spherical geometry (§4.6 step 1).
func resolveAngles(alpha, beta float64) (theta, phi float64) {
	sa, ca := math.Sin(alpha), math.Cos(alpha)
	sb, cb := math.Sin(beta), math.Cos(beta)

	x := ca * sb
	y := sa
	z := ca * cb

	theta = math.Acos(z)
	phi = math.Atan2(y, x)
	return theta, phi
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180.0
}
