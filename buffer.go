package shapefile

// buffer accumulates raw chunks into a single growable backing array with one
// logical cursor. On each push the already-consumed prefix is dropped, so
// decoded history is compacted once per chunk instead of once per read.
type buffer struct {
	data []byte
	off  int
}

func (b *buffer) push(chunk []byte) {
	if b.off > 0 {
		b.data = append(b.data[:0], b.data[b.off:]...)
		b.off = 0
	}
	b.data = append(b.data, chunk...)
}

// has reports whether at least n unread bytes are available.
func (b *buffer) has(n int) bool {
	return len(b.data)-b.off >= n
}

// next returns the next n bytes and advances the cursor. The returned slice
// aliases the backing array and is only valid until the next push.
func (b *buffer) next(n int) []byte {
	out := b.data[b.off : b.off+n]
	b.off += n
	return out
}

// peek returns the next unread byte without consuming it.
func (b *buffer) peek() byte {
	return b.data[b.off]
}

func (b *buffer) skip(n int) {
	b.off += n
}
