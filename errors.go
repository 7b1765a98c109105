// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package netev

import (
	"github.com/zeebo/errs"
)

var (
	// Error is the default error class for this package.
	Error = errs.Class("netev")

	// BindError is returned when a socket cannot be opened or configured.
	BindError = errs.Class("netev bind")

	// ProtocolError is returned when the listener answers a round trip
	// with a fault or an answer the popper does not understand.
	ProtocolError = errs.Class("netev protocol")

	// DecodeError is returned when a payload does not decode into the
	// requested type.
	DecodeError = errs.Class("netev decode")

	// SendError is returned when a value cannot be encoded or sent.
	SendError = errs.Class("netev send")

	// ErrClosed is returned by a Popper whose listener has terminated.
	ErrClosed = Error.New("listener closed")
)
