// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package netev

import (
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultBufferSize is the receive buffer capacity used when
	// Config.BufferSize is zero. Longer datagrams are truncated.
	DefaultBufferSize = 256

	// DefaultIdleBackoff caps how long an idle listener waits between
	// socket polls.
	DefaultIdleBackoff = time.Millisecond

	minIdleBackoff = 10 * time.Microsecond
)

// Config configures a Popper. The zero value is usable.
type Config struct {
	// BufferSize is the largest datagram kept whole.
	BufferSize int

	// IdleBackoff is the longest pause between socket polls while there is
	// nothing to do. Requests are still answered during the pause. A
	// negative value polls without pausing.
	IdleBackoff time.Duration

	// RequestTimeout bounds each TryNext round trip in addition to the
	// caller's context. Zero waits for as long as the context allows.
	RequestTimeout time.Duration

	// Codec decodes payloads for Pop. Defaults to JSON.
	Codec Codec

	Log *zap.Logger
}

func (config Config) withDefaults() Config {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultBufferSize
	}
	if config.IdleBackoff == 0 {
		config.IdleBackoff = DefaultIdleBackoff
	}
	if config.Codec == nil {
		config.Codec = JSON
	}
	if config.Log == nil {
		config.Log = zap.NewNop()
	}
	return config
}
