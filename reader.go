package swathio

import "io"

// Source is the opaque byte-oriented input the Framer reads from — the
// only suspension point the core has (§5: "the core never suspends except
// at the byte-source boundary"). Any io.Reader satisfies it; a TileDB VFS
// handle, a plain file, or an in-memory buffer all work, matching the
// teacher's GenericStream pattern in reader.go.
type Source interface {
	io.Reader
}

// Sink is the write-side counterpart of Source.
type Sink interface {
	io.Writer
}
