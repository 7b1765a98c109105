// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

//go:build !unix

package transport

import (
	"errors"
	"os"
	"time"
)

// pollDeadline is how long a read may wait on platforms without a
// non-blocking receive flag.
const pollDeadline = 50 * time.Microsecond

func (u *UDPListener) tryRead(buf []byte) (Datagram, error) {
	err := u.conn.SetReadDeadline(time.Now().Add(pollDeadline))
	if err != nil {
		return Datagram{}, err
	}

	n, source, err := u.conn.ReadFromUDP(buf)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return Datagram{}, ErrWouldBlock
		}
		return Datagram{}, err
	}

	return Datagram{N: n, Source: source}, nil
}
