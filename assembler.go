package swathio

// PingBuilder accumulates the sub-records of one in-progress ping. It
// replaces the hidden state the original interleaved into the framer
// (mb_io_ptr->save* slots plus inline dispatch) with an explicit, owned
// aggregate that the assembler mutates and finally emits.
type PingBuilder struct {
	Ping          *Ping
	Date          uint32
	Msec          uint32
	HasBathy      bool
	HasRawBeams   bool
	HasSidescan   bool
	SidescanDate  uint32
	SidescanMsec  uint32
	PendingSS     *ssEvent
}

type ssEvent struct {
	PingNumber uint32
	Date       uint32
	Msec       uint32
	Port       []uint16
	Starboard  []uint16
	SampleRate float64
}

// AssemblerState is the PingAssembler's state, per §4.5.
type AssemblerState int

const (
	Idle AssemblerState = iota
	PartialBathy
	PartialSidescan
	Mixed
	DualHeadWaiting
)

// SonarRequirements is supplied per format/sonar-kind and tells the
// assembler which sub-records are mandatory for a ping to be considered
// complete (§4.5 completion rule: "the format-module declares which
// sub-records are mandatory for its sonar kinds").
type SonarRequirements struct {
	RequireRawBeams bool
	DualHead        bool
}

// PingAssembler gathers bathymetry, raw-beam, and sidescan sub-records into
// completed Pings, in strict stream order, reconciling dual-head sonars and
// orphaned sidescan per the decision table in §4.5.
type PingAssembler struct {
	state    AssemblerState
	reqs     SonarRequirements
	current  *PingBuilder
	heads    map[uint16]*PingBuilder // keyed by Serial, dual-head only
	orphanSS *ssEvent
	warnings []string
}

func NewPingAssembler(reqs SonarRequirements) *PingAssembler {
	return &PingAssembler{
		state: Idle,
		reqs:  reqs,
		heads: make(map[uint16]*PingBuilder),
	}
}

// Pending returns the in-progress Ping matching pingNumber/serial — the one
// a RecordCodec should fill per-beam arrays into immediately after a
// FeedBathyHeader call, whether or not that call also returned a completed
// predecessor.
func (a *PingAssembler) Pending(pingNumber uint32, serial uint16) *Ping {
	if a.reqs.DualHead {
		if b, ok := a.heads[serial]; ok && b.Ping.PingNumber == pingNumber {
			return b.Ping
		}
		return nil
	}
	if a.current != nil && a.current.Ping.PingNumber == pingNumber && a.current.Ping.Serial == serial {
		return a.current.Ping
	}
	return nil
}

// Warnings drains the non-fatal anomalies (orphaned sidescan, mismatched
// pairing) recorded since the last call.
func (a *PingAssembler) Warnings() []string {
	w := a.warnings
	a.warnings = nil
	return w
}

func (a *PingAssembler) warn(msg string) {
	a.warnings = append(a.warnings, msg)
}

// FeedBathyHeader accepts a bathymetry header+beams sub-record for
// pingNumber/serial at the given beam count, date and msec. It returns any
// ping(s) the arrival of this header completes (an orphaned predecessor, or
// — for dual-head — the paired twin).
func (a *PingAssembler) FeedBathyHeader(pingNumber uint32, serial uint16, date, msec uint32, beamCount uint16) []*Ping {
	var completed []*Ping

	builder := &PingBuilder{
		Ping:     newPing(beamCount),
		Date:     date,
		Msec:     msec,
		HasBathy: true,
	}
	builder.Ping.PingNumber = pingNumber
	builder.Ping.Serial = serial

	if a.reqs.DualHead {
		twin, ok := a.heads[oppositeHead(serial)]
		if ok && twin.Ping.PingNumber == pingNumber {
			// Fold into twin; both halves now present.
			a.heads[serial] = builder
			delete(a.heads, oppositeHead(serial))
			completed = append(completed, builder.Ping, twin.Ping)
			a.state = Idle
			return completed
		}
		// Orphan whatever head was previously waiting, if any.
		for s, waiting := range a.heads {
			if waiting.Ping.PingNumber != pingNumber {
				completed = append(completed, a.finalize(waiting))
				delete(a.heads, s)
			}
		}
		a.heads[serial] = builder
		a.state = DualHeadWaiting
		return completed
	}

	switch a.state {
	case Idle:
		a.current = builder
		a.state = PartialBathy
	case PartialBathy:
		// New ping header arrives before the previous one got its sidescan.
		completed = append(completed, a.finalize(a.current))
		a.current = builder
		a.state = PartialBathy
	case PartialSidescan:
		if a.orphanSS != nil && a.orphanSS.Date == date && a.orphanSS.Msec == msec {
			builder.applySidescan(a.orphanSS)
			a.orphanSS = nil
			a.current = builder
			a.state = PartialBathy
		} else {
			a.warn("sidescan orphaned: no matching bathymetry header arrived")
			a.orphanSS = nil
			a.current = builder
			a.state = PartialBathy
		}
	}

	return completed
}

// CompleteNoSidescan finalizes and emits the pending single-head ping for
// pingNumber immediately, without waiting for a sidescan sub-record — for
// formats/sonar kinds where the wire never carries sidescan alongside
// bathymetry, so "no sidescan accompanies this ping" is known at decode
// time rather than needing the timestamp cross-check (§4.5 completion
// rule, second disjunct). A no-op (returns nil) for dual-head sessions or
// if pingNumber doesn't match the pending builder.
func (a *PingAssembler) CompleteNoSidescan(pingNumber uint32) *Ping {
	if a.reqs.DualHead || a.current == nil || a.current.Ping.PingNumber != pingNumber {
		return nil
	}
	p := a.finalize(a.current)
	a.current = nil
	a.state = Idle
	return p
}

// FeedSidescan accepts a sidescan sub-record for pingNumber at date/msec.
func (a *PingAssembler) FeedSidescan(pingNumber uint32, date, msec uint32, port, starboard []uint16, sampleRate float64) []*Ping {
	ev := &ssEvent{PingNumber: pingNumber, Date: date, Msec: msec, Port: port, Starboard: starboard, SampleRate: sampleRate}

	switch a.state {
	case Idle:
		a.orphanSS = ev
		a.state = PartialSidescan
		return nil
	case PartialBathy:
		if a.current.Date == date && a.current.Msec == msec {
			a.current.applySidescan(ev)
			p := a.finalize(a.current)
			a.current = nil
			a.state = Idle
			return []*Ping{p}
		}
		// Sidescan belongs to a different ping: zero this ping's sidescan,
		// emit it, and stash the sidescan as new pending state.
		a.warn("sidescan timestamp mismatch against pending bathymetry")
		p := a.finalize(a.current)
		a.current = nil
		a.orphanSS = ev
		a.state = PartialSidescan
		return []*Ping{p}
	default:
		a.orphanSS = ev
		a.state = PartialSidescan
		return nil
	}
}

// FeedRawBeams marks that raw-beam sub-records have been seen for the
// in-progress ping (single-head) or the named head (dual-head).
func (a *PingAssembler) FeedRawBeams(serial uint16) {
	if a.reqs.DualHead {
		if b, ok := a.heads[serial]; ok {
			b.HasRawBeams = true
		}
		return
	}
	if a.current != nil {
		a.current.HasRawBeams = true
	}
}

// Flush emits whatever ping is in progress (e.g. at end of stream), with
// null sidescan if none arrived.
func (a *PingAssembler) Flush() []*Ping {
	var out []*Ping
	if a.current != nil {
		out = append(out, a.finalize(a.current))
		a.current = nil
	}
	for s, b := range a.heads {
		out = append(out, a.finalize(b))
		delete(a.heads, s)
	}
	a.state = Idle
	return out
}

func (b *PingBuilder) applySidescan(ev *ssEvent) {
	b.Ping.SidescanPort = ev.Port
	b.Ping.SidescanStarboard = ev.Starboard
	b.Ping.SidescanSampleRate = ev.SampleRate
	b.Ping.SidescanPingNumber = ev.PingNumber
	b.Ping.DataAvailable = b.Ping.DataAvailable.With(HasSidescan)
	b.HasSidescan = true
}

func (a *PingAssembler) finalize(b *PingBuilder) *Ping {
	if !b.HasSidescan {
		b.Ping.SidescanPort = nil
		b.Ping.SidescanStarboard = nil
	}
	return b.Ping
}

func oppositeHead(serial uint16) uint16 {
	// Dual-head sonars use exactly two serials. The twin is the serial that
	// differs only in the lowest bit (0/1, 2/3, ...); heads whose serials
	// are not such a pair are never folded together.
	return serial ^ 1
}
