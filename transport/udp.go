// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package transport wraps UDP sockets with the primitives the listener
// and the pusher need: a receive that never blocks, and a connected send
// socket.
package transport

import (
	"errors"
	"net"
	"syscall"
)

// ErrWouldBlock is returned by TryNext when no datagram is waiting on the
// socket.
var ErrWouldBlock = errors.New("transport: would block")

// Datagram describes a single datagram read by TryNext. The bytes live in
// the buffer handed to TryNext.
type Datagram struct {
	N         int
	Source    *net.UDPAddr
	Truncated bool
}

// ListenUDP sets up a UDP socket on addr which is read without blocking.
func ListenUDP(addr string) (*UDPListener, error) {
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}

	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, err
	}

	raw, err := conn.SyscallConn()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &UDPListener{
		addr: addr,
		conn: conn,
		raw:  raw,
	}, nil
}

// UDPListener polls the underlying UDP connection for datagrams.
type UDPListener struct {
	addr string
	conn *net.UDPConn
	raw  syscall.RawConn
}

// TryNext attempts a single receive into buf. It returns ErrWouldBlock
// when nothing is queued on the socket. Datagrams larger than buf are cut
// to len(buf); the remainder is discarded by the kernel.
func (u *UDPListener) TryNext(buf []byte) (Datagram, error) {
	return u.tryRead(buf)
}

// LocalAddr returns the bound address, with the port filled in when the
// listener was bound to port 0.
func (u *UDPListener) LocalAddr() *net.UDPAddr {
	addr, _ := u.conn.LocalAddr().(*net.UDPAddr)
	return addr
}

// Close closes the socket.
func (u *UDPListener) Close() error {
	return u.conn.Close()
}

// DialUDP opens a UDP socket bound to local and connected to dest. An empty
// local address picks an ephemeral port.
func DialUDP(local, dest string) (*net.UDPConn, error) {
	raddr, err := net.ResolveUDPAddr("udp", dest)
	if err != nil {
		return nil, err
	}

	var laddr *net.UDPAddr
	if local != "" {
		laddr, err = net.ResolveUDPAddr("udp", local)
		if err != nil {
			return nil, err
		}
	}

	return net.DialUDP("udp", laddr, raddr)
}
