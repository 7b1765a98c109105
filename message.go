// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package netev

// msgKind enumerates what the popper and the listener say to each other.
type msgKind int

const (
	// popper -> listener
	msgRequest msgKind = iota
	msgStop

	// listener -> popper
	msgDelivered
	msgEmpty
	msgFault
)

func (k msgKind) String() string {
	switch k {
	case msgRequest:
		return "request"
	case msgStop:
		return "stop"
	case msgDelivered:
		return "delivered"
	case msgEmpty:
		return "empty"
	case msgFault:
		return "fault"
	default:
		return "unknown"
	}
}

// message is exchanged once per round trip and never retained.
type message struct {
	kind   msgKind
	packet *Packet
}
