package swathio

// FormatInfo describes a format module's capabilities, supplied once at
// registration time (§6.5 register_format).
type FormatInfo struct {
	Name                string
	MaxBeams            int
	MaxAmplitudeBeams   int
	MaxSidescanPixels   int
	VariableBeamCount   bool
	CarriesTravelTime   bool
	DefaultBeamwidthAlong float64
	DefaultBeamwidthAcross float64

	// AuthoritativeFor names, per ancillary channel, which RecordKind this
	// format treats as the source of truth (a format may carry navigation
	// fixes in more than one record kind; only one is authoritative).
	AuthoritativeFor map[string]RecordKind
}

// FormatHandle is returned by RegisterFormat and threaded through
// subsequent Framer/RecordCodec calls for that format.
type FormatHandle struct {
	Info FormatInfo
}

func RegisterFormat(info FormatInfo) *FormatHandle {
	return &FormatHandle{Info: info}
}

// ProjectionContext is the opaque external-projection handle the core
// threads through without interpreting (§3 ProjectionContext, §6.4
// consumed contracts). Geodetic math lives entirely outside this package.
type ProjectionContext struct {
	Identifier string
	Forward    func(lon, lat float64) (x, y float64)
	Inverse    func(x, y float64) (lon, lat float64)
}

// MakeProcessedSidescan is the opaque, externally-supplied sidescan
// synthesis hook invoked after ping emission (§6.4). The core never
// implements it; a caller-supplied function is invoked if non-nil.
type MakeProcessedSidescan func(p *Ping)
