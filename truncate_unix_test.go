// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

//go:build unix

package netev

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func requireTruncatedFlag(t *testing.T, packet *Packet) {
	t.Helper()
	require.True(t, packet.Truncated)
}
