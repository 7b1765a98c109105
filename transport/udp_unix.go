// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

//go:build unix

package transport

import (
	"errors"
	"net"

	"golang.org/x/sys/unix"
)

func (u *UDPListener) tryRead(buf []byte) (Datagram, error) {
	var (
		n       int
		flags   int
		from    unix.Sockaddr
		recvErr error
	)

	// returning true from the callback keeps the runtime poller from
	// parking us when the socket is empty.
	err := u.raw.Read(func(fd uintptr) bool {
		n, _, flags, from, recvErr = unix.Recvmsg(int(fd), buf, nil, unix.MSG_DONTWAIT)
		return true
	})
	if err != nil {
		return Datagram{}, err
	}
	if recvErr != nil {
		if errors.Is(recvErr, unix.EAGAIN) || errors.Is(recvErr, unix.EWOULDBLOCK) || errors.Is(recvErr, unix.EINTR) {
			return Datagram{}, ErrWouldBlock
		}
		return Datagram{}, recvErr
	}

	return Datagram{
		N:         n,
		Source:    sockaddrToUDP(from),
		Truncated: flags&unix.MSG_TRUNC != 0,
	}, nil
}

func sockaddrToUDP(sa unix.Sockaddr) *net.UDPAddr {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.UDPAddr{IP: append(net.IP(nil), sa.Addr[:]...), Port: sa.Port}
	case *unix.SockaddrInet6:
		addr := &net.UDPAddr{IP: append(net.IP(nil), sa.Addr[:]...), Port: sa.Port}
		if sa.ZoneId != 0 {
			if ifi, err := net.InterfaceByIndex(int(sa.ZoneId)); err == nil {
				addr.Zone = ifi.Name
			}
		}
		return addr
	}
	return nil
}
