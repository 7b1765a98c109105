// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

//go:build !unix

package netev

import "testing"

// truncation is not reported without recvmsg flags.
func requireTruncatedFlag(t *testing.T, packet *Packet) {}
