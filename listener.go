// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package netev

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"go.uber.org/zap"

	"storj.io/netev/transport"
	"storj.io/netev/utils"
)

var mon = monkit.Package()

// listener owns the socket and the packet queue. Everything it owns is
// touched only from the goroutine executing run.
type listener struct {
	log     *zap.Logger
	conn    *transport.UDPListener
	buf     []byte
	queue   packetQueue
	backoff *utils.Backoff
	// received counts datagrams read so far. It is the only state shared
	// with the popper.
	received *atomic.Int64

	requests <-chan message
	replies  chan<- message
}

func newListener(addr string, config Config, received *atomic.Int64, requests <-chan message, replies chan<- message) (*listener, error) {
	conn, err := transport.ListenUDP(addr)
	if err != nil {
		return nil, BindError.Wrap(err)
	}

	l := &listener{
		log:      config.Log,
		conn:     conn,
		buf:      make([]byte, config.BufferSize),
		received: received,
		requests: requests,
		replies:  replies,
	}
	if config.IdleBackoff > 0 {
		l.backoff = utils.NewBackoff(minIdleBackoff, config.IdleBackoff)
	}
	return l, nil
}

// run polls until it is told to stop or ctx is canceled. Each iteration
// answers at most one message and attempts at most one receive.
func (l *listener) run(ctx context.Context) (err error) {
	l.log.Info("listening", zap.Stringer("address", l.conn.LocalAddr()))
	defer func() {
		err = Error.Wrap(l.conn.Close())
		l.log.Info("stopped", zap.Int("queued", l.queue.len()))
	}()

	idle := time.NewTimer(time.Hour)
	idle.Stop()
	defer idle.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}

		worked := false
		select {
		case msg := <-l.requests:
			if !l.handle(ctx, msg) {
				return nil
			}
			worked = true
		default:
		}

		if l.receive() {
			worked = true
		}

		if worked {
			if l.backoff != nil {
				l.backoff.Reset()
			}
			continue
		}
		if l.backoff == nil {
			continue
		}

		idle.Reset(l.backoff.Next())
		select {
		case msg := <-l.requests:
			idle.Stop()
			if !l.handle(ctx, msg) {
				return nil
			}
			l.backoff.Reset()
		case <-idle.C:
		case <-ctx.Done():
			return nil
		}
	}
}

// handle answers msg. It returns false when the listener should stop.
func (l *listener) handle(ctx context.Context, msg message) bool {
	switch msg.kind {
	case msgStop:
		return false
	case msgRequest:
		packet, ok := l.queue.pop()
		if !ok {
			mon.Counter("requests_empty").Inc(1)
			return l.reply(ctx, message{kind: msgEmpty})
		}
		mon.IntVal("queue_depth").Observe(int64(l.queue.len()))
		if !l.reply(ctx, message{kind: msgDelivered, packet: packet}) {
			l.queue.push(packet)
			return false
		}
		return true
	default:
		mon.Counter("protocol_faults").Inc(1)
		l.log.Warn("unexpected message", zap.Stringer("kind", msg.kind))
		return l.reply(ctx, message{kind: msgFault})
	}
}

func (l *listener) reply(ctx context.Context, msg message) bool {
	select {
	case l.replies <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}

// receive attempts one non-blocking read and queues what it got.
func (l *listener) receive() bool {
	d, err := l.conn.TryNext(l.buf)
	if err != nil {
		if !errors.Is(err, transport.ErrWouldBlock) {
			mon.Counter("receive_errors").Inc(1)
			l.log.Debug("receive failed", zap.Error(err))
		}
		return false
	}

	packet := &Packet{
		Payload:    append([]byte{}, l.buf[:d.N]...),
		Source:     d.Source,
		ReceivedAt: time.Now(),
		Truncated:  d.Truncated,
	}
	l.queue.push(packet)
	l.received.Add(1)

	mon.Counter("packets_received").Inc(1)
	mon.IntVal("packet_size").Observe(int64(d.N))
	mon.IntVal("queue_depth").Observe(int64(l.queue.len()))
	if d.Truncated {
		mon.Counter("packets_truncated").Inc(1)
		l.log.Debug("datagram truncated",
			zap.Stringer("source", d.Source),
			zap.Int("capacity", len(l.buf)))
	}
	return true
}
