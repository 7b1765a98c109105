// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package pb

import (
	picobuf "storj.io/picobuf"
)

// Note is the message sent by the netev-pusher tool.
type Note struct {
	Name     string
	Age      int64
	SentAtNs int64
	Body     []byte
}

func (m *Note) Encode(c *picobuf.Encoder) bool {
	if m == nil {
		return false
	}
	c.String(1, &m.Name)
	c.Int64(2, &m.Age)
	c.Int64(3, &m.SentAtNs)
	c.Bytes(4, &m.Body)
	return true
}

func (m *Note) Decode(c *picobuf.Decoder) {
	if m == nil {
		return
	}
	c.String(1, &m.Name)
	c.Int64(2, &m.Age)
	c.Int64(3, &m.SentAtNs)
	c.Bytes(4, &m.Body)
}
