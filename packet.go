// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package netev

import (
	"net"
	"time"
)

// Packet is a single received datagram. It is owned by the listener until
// it is handed out by TryNext; afterwards it belongs to the caller.
type Packet struct {
	Payload    []byte
	Source     *net.UDPAddr
	ReceivedAt time.Time

	// Truncated is set when the datagram did not fit the receive buffer and
	// Payload only holds its first BufferSize bytes. Platforms that cannot
	// report truncation leave it false.
	Truncated bool
}
