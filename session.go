package swathio

// SessionState replaces the dozen generic scratch "save slots" the original
// format readers threaded through a shared I/O descriptor (MB-System's
// mb_io_ptr->save1..save4, used across mbr_hysweep1_rd_data for
// file-header-read / line-saved / RMB-read flags) with a single
// strongly-typed struct owned by one session.
type SessionState struct {
	ByteOrder          Endian
	ByteOrderResolved  bool
	LabelBuffer        string
	LastRecordSize     uint32
	ExpectNext         RecordKind
	FileHeaderDone     bool
	AddedSyntheticSensors [4]bool
	RecentPing         *PingBuilder
}

// NewSessionState returns a session with no byte order yet resolved; the
// first record whose endian negotiation succeeds freezes it (sticky, per
// §4.1).
func NewSessionState(fallback Endian) *SessionState {
	return &SessionState{ByteOrder: fallback}
}

// FreezeByteOrder is called once, by the first record whose model
// identifier resolves unambiguously. Subsequent calls are no-ops — the
// decision is sticky for the lifetime of the session.
func (s *SessionState) FreezeByteOrder(order Endian) {
	if s.ByteOrderResolved {
		return
	}
	s.ByteOrder = order
	s.ByteOrderResolved = true
}
