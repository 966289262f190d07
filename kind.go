package swathio

import "github.com/samber/lo"

// RecordKind is the closed set of record variants a format module may
// implement. A format need not implement every kind; an encoder rejects a
// kind it doesn't carry with a BadKind error.
type RecordKind int

const (
	Start RecordKind = iota
	Stop
	RunParameter
	Clock
	Tide
	Height
	Heading
	SoundSpeed
	Tilt
	Attitude
	Navigation1
	Navigation2
	Navigation3
	SoundSpeedProfile
	Bathymetry
	RawBeam1
	RawBeam2
	RawBeam3
	Sidescan
	WaterColumn
	SensorParameters
	Installation
	Parameter
	Comment
	RawLine
)

// KindNames maps every RecordKind to its canonical label, used in log-shaped
// diagnostics and format-module dispatch tables.
var KindNames = map[RecordKind]string{
	Start:             "Start",
	Stop:              "Stop",
	RunParameter:      "RunParameter",
	Clock:             "Clock",
	Tide:              "Tide",
	Height:            "Height",
	Heading:           "Heading",
	SoundSpeed:        "SoundSpeed",
	Tilt:              "Tilt",
	Attitude:          "Attitude",
	Navigation1:       "Navigation1",
	Navigation2:       "Navigation2",
	Navigation3:       "Navigation3",
	SoundSpeedProfile: "SoundSpeedProfile",
	Bathymetry:        "Bathymetry",
	RawBeam1:          "RawBeam1",
	RawBeam2:          "RawBeam2",
	RawBeam3:          "RawBeam3",
	Sidescan:          "Sidescan",
	WaterColumn:       "WaterColumn",
	SensorParameters:  "SensorParameters",
	Installation:      "Installation",
	Parameter:         "Parameter",
	Comment:           "Comment",
	RawLine:           "RawLine",
}

// InvKindNames is the label-to-kind lookup, the inverse of KindNames: it
// resolves a canonical kind label back to a RecordKind. The format packages
// dispatch on their own wire tags and do not use it.
var InvKindNames = lo.Invert(KindNames)

func (k RecordKind) String() string {
	if name, ok := KindNames[k]; ok {
		return name
	}
	return "Unknown"
}
