package transport

import (
	"time"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

// Compressed decorates another Transport with snappy compression on
// every message, grounded on generic/comp.go's CompStream — adapted
// from comp.go's continuous io.Writer/Reader wrapping (apt for a
// byte-stream net.Conn) to snappy's block Encode/Decode functions,
// since a Transport exchanges discrete messages rather than a stream.
type Compressed struct {
	inner Transport
}

// NewCompressed wraps inner so every SendMsg/RecvMsg passes through
// snappy compression.
func NewCompressed(inner Transport) *Compressed {
	return &Compressed{inner: inner}
}

func (c *Compressed) SendMsg(data []byte) bool {
	return c.inner.SendMsg(snappy.Encode(nil, data))
}

func (c *Compressed) RecvMsg(timeout time.Duration) ([]byte, bool) {
	raw, ok := c.inner.RecvMsg(timeout)
	if !ok {
		return nil, false
	}
	data, err := snappy.Decode(nil, raw)
	if err != nil {
		return nil, false
	}
	return data, true
}

func (c *Compressed) MTU() int { return c.inner.MTU() }

func (c *Compressed) LastError() error {
	if err := c.inner.LastError(); err != nil {
		return errors.WithStack(err)
	}
	return nil
}
