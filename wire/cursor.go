// Package wire is the codec facade: a byte cursor with little-endian
// primitive (de)serialization (no big-endian variant), plus struct-level
// (de)serializers for the protocol payloads the session layer
// consumes. Per spec.md §1 this layer is "assumed correct" — the
// session/stream layer only ever calls its exported Read*/Write*
// functions and never reaches into the byte layout itself.
package wire

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// ErrTruncated is returned by any Read* call that would run past the
// end of the cursor's backing slice.
var ErrTruncated = errors.New("wire: truncated buffer")

// Cursor is a position within a byte slice, offering little-endian
// primitive reads/writes. It never allocates; callers own the backing
// buffer (spec.md §9 "Buffer ownership").
type Cursor struct {
	buf []byte
	pos int
}

// NewCursor wraps buf for reading or writing starting at offset 0.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// NewCursorAt wraps buf starting at the given offset, used when the
// session header has already reserved the leading bytes.
func NewCursorAt(buf []byte, offset int) *Cursor {
	return &Cursor{buf: buf, pos: offset}
}

// Pos returns the current read/write offset.
func (c *Cursor) Pos() int { return c.pos }

// Remaining returns the number of bytes left before the end of buf.
func (c *Cursor) Remaining() int { return len(c.buf) - c.pos }

// Bytes returns the full backing slice (not just what's been written).
func (c *Cursor) Bytes() []byte { return c.buf }

// Slice returns the n bytes starting at the cursor without advancing it.
func (c *Cursor) Slice(n int) ([]byte, error) {
	if n < 0 || c.pos+n > len(c.buf) {
		return nil, ErrTruncated
	}
	return c.buf[c.pos : c.pos+n], nil
}

// Skip advances the cursor by n bytes without reading them.
func (c *Cursor) Skip(n int) error {
	if n < 0 || c.pos+n > len(c.buf) {
		return ErrTruncated
	}
	c.pos += n
	return nil
}

// Align4 advances the cursor to the next 4-byte boundary, per
// spec.md §4.7's "walked as a sequence of (header, payload) pairs,
// 4-byte aligned."
func (c *Cursor) Align4() {
	pad := (4 - c.pos%4) % 4
	c.pos += pad
}

func (c *Cursor) ReadU8() (byte, error) {
	if c.pos+1 > len(c.buf) {
		return 0, ErrTruncated
	}
	v := c.buf[c.pos]
	c.pos++
	return v, nil
}

func (c *Cursor) WriteU8(v byte) error {
	if c.pos+1 > len(c.buf) {
		return ErrTruncated
	}
	c.buf[c.pos] = v
	c.pos++
	return nil
}

func (c *Cursor) ReadU16() (uint16, error) {
	if c.pos+2 > len(c.buf) {
		return 0, ErrTruncated
	}
	v := binary.LittleEndian.Uint16(c.buf[c.pos:])
	c.pos += 2
	return v, nil
}

func (c *Cursor) WriteU16(v uint16) error {
	if c.pos+2 > len(c.buf) {
		return ErrTruncated
	}
	binary.LittleEndian.PutUint16(c.buf[c.pos:], v)
	c.pos += 2
	return nil
}

func (c *Cursor) ReadU32() (uint32, error) {
	if c.pos+4 > len(c.buf) {
		return 0, ErrTruncated
	}
	v := binary.LittleEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v, nil
}

func (c *Cursor) WriteU32(v uint32) error {
	if c.pos+4 > len(c.buf) {
		return ErrTruncated
	}
	binary.LittleEndian.PutUint32(c.buf[c.pos:], v)
	c.pos += 4
	return nil
}

func (c *Cursor) ReadI64() (int64, error) {
	if c.pos+8 > len(c.buf) {
		return 0, ErrTruncated
	}
	v := int64(binary.LittleEndian.Uint64(c.buf[c.pos:]))
	c.pos += 8
	return v, nil
}

func (c *Cursor) WriteI64(v int64) error {
	if c.pos+8 > len(c.buf) {
		return ErrTruncated
	}
	binary.LittleEndian.PutUint64(c.buf[c.pos:], uint64(v))
	c.pos += 8
	return nil
}

func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	b, err := c.Slice(n)
	if err != nil {
		return nil, err
	}
	c.pos += n
	return b, nil
}

func (c *Cursor) WriteBytes(p []byte) error {
	if c.pos+len(p) > len(c.buf) {
		return ErrTruncated
	}
	copy(c.buf[c.pos:], p)
	c.pos += len(p)
	return nil
}
