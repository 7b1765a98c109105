// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package netev

import (
	"context"
	"net"

	"storj.io/netev/transport"
)

// Pusher sends encoded values as single datagrams to a fixed destination.
// There is no queueing, retry or acknowledgment.
type Pusher struct {
	codec Codec
	conn  *net.UDPConn
}

// BindPusher opens a UDP socket on local connected to dest. An empty local
// address binds an ephemeral port. A nil codec means JSON.
func BindPusher(local, dest string, codec Codec) (*Pusher, error) {
	if codec == nil {
		codec = JSON
	}

	conn, err := transport.DialUDP(local, dest)
	if err != nil {
		return nil, BindError.Wrap(err)
	}

	return &Pusher{
		codec: codec,
		conn:  conn,
	}, nil
}

// LocalAddr returns the address datagrams are sent from.
func (p *Pusher) LocalAddr() *net.UDPAddr {
	addr, _ := p.conn.LocalAddr().(*net.UDPAddr)
	return addr
}

// Push encodes v and sends it.
func (p *Pusher) Push(ctx context.Context, v any) (err error) {
	defer mon.Task()(&ctx)(&err)

	data, err := p.codec.Marshal(v)
	if err != nil {
		return SendError.Wrap(err)
	}
	return p.send(ctx, data)
}

// PushBytes sends payload as is.
func (p *Pusher) PushBytes(ctx context.Context, payload []byte) (err error) {
	defer mon.Task()(&ctx)(&err)
	return p.send(ctx, payload)
}

func (p *Pusher) send(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return SendError.Wrap(err)
	}

	deadline, _ := ctx.Deadline()
	if err := p.conn.SetWriteDeadline(deadline); err != nil {
		return SendError.Wrap(err)
	}

	_, _, err := p.conn.WriteMsgUDP(data, nil, nil)
	if err != nil {
		mon.Counter("send_errors").Inc(1)
		return SendError.Wrap(err)
	}

	mon.Counter("datagrams_sent").Inc(1)
	mon.IntVal("datagram_size").Observe(int64(len(data)))
	return nil
}

// Close closes the socket.
func (p *Pusher) Close() error {
	return Error.Wrap(p.conn.Close())
}

