// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package netev queues UDP datagrams in the background and lets a consumer
// pull them one at a time without touching the socket.
//
// A Popper owns a listener goroutine that polls its socket without
// blocking and keeps every datagram it reads. TryNext and Pop ask the
// listener for the most recently received datagram. A Pusher sends
// encoded values to a Popper.
package netev

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Popper is the consumer side of a listener. Calls are serialized, so a
// Popper may be shared between goroutines.
type Popper struct {
	log     *zap.Logger
	codec   Codec
	timeout time.Duration
	addr    *net.UDPAddr

	mu sync.Mutex
	// outstanding is set while a request has been sent and its reply not
	// yet read.
	outstanding bool

	received atomic.Int64

	requests chan message
	replies  chan message

	group     errgroup.Group
	done      chan struct{}
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// Bind opens a UDP socket on addr and starts its listener. The listener
// runs until Close is called or ctx is canceled.
func Bind(ctx context.Context, addr string, config Config) (*Popper, error) {
	config = config.withDefaults()

	requests := make(chan message)
	// at most one request is ever outstanding, so the listener never
	// waits on a reply.
	replies := make(chan message, 1)

	p := &Popper{
		log:      config.Log,
		codec:    config.Codec,
		timeout:  config.RequestTimeout,
		requests: requests,
		replies:  replies,
		done:     make(chan struct{}),
	}

	l, err := newListener(addr, config, &p.received, requests, replies)
	if err != nil {
		return nil, err
	}
	p.addr = l.conn.LocalAddr()

	ctx, p.cancel = context.WithCancel(ctx)
	p.group.Go(func() error {
		defer close(p.done)
		return l.run(ctx)
	})
	return p, nil
}

// LocalAddr returns the address the listener is bound to.
func (p *Popper) LocalAddr() *net.UDPAddr { return p.addr }

// Received returns how many datagrams the listener has read, including
// those already handed out.
func (p *Popper) Received() int64 { return p.received.Load() }

// Codec returns the codec used by Pop.
func (p *Popper) Codec() Codec { return p.codec }

// TryNext returns the most recently received datagram that has not been
// handed out yet. It returns nil, nil when nothing is queued.
func (p *Popper) TryNext(ctx context.Context) (_ *Packet, err error) {
	defer mon.Task()(&ctx)(&err)
	return p.roundTrip(ctx, message{kind: msgRequest})
}

func (p *Popper) roundTrip(ctx context.Context, msg message) (*Packet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if p.outstanding {
		// an earlier round trip gave up before its reply arrived. collect
		// it first so a delivered packet is not lost.
		reply, err := p.await(ctx)
		if err != nil {
			return nil, err
		}
		if reply.kind != msgEmpty {
			return p.answer(reply)
		}
	}

	select {
	case p.requests <- msg:
	case <-p.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, Error.Wrap(ctx.Err())
	}
	p.outstanding = true

	reply, err := p.await(ctx)
	if err != nil {
		return nil, err
	}
	return p.answer(reply)
}

func (p *Popper) await(ctx context.Context) (message, error) {
	select {
	case reply := <-p.replies:
		p.outstanding = false
		return reply, nil
	case <-p.done:
		select {
		case reply := <-p.replies:
			p.outstanding = false
			return reply, nil
		default:
		}
		return message{}, ErrClosed
	case <-ctx.Done():
		return message{}, Error.Wrap(ctx.Err())
	}
}

func (p *Popper) answer(reply message) (*Packet, error) {
	switch reply.kind {
	case msgDelivered:
		mon.Counter("packets_delivered").Inc(1)
		return reply.packet, nil
	case msgEmpty:
		return nil, nil
	case msgFault:
		return nil, ProtocolError.New("listener reported a fault")
	default:
		return nil, ProtocolError.New("unexpected reply %q", reply.kind)
	}
}

// Pop takes the next datagram from p and decodes it into a new T with the
// popper's codec. It returns nil, nil when nothing is queued. A payload
// that does not decode is reported as a DecodeError and the datagram is
// dropped.
func Pop[T any](ctx context.Context, p *Popper) (_ *T, err error) {
	defer mon.Task()(&ctx)(&err)

	packet, err := p.TryNext(ctx)
	if err != nil || packet == nil {
		return nil, err
	}

	v, err := Decode[T](p.codec, packet)
	if err != nil {
		p.log.Debug("dropping undecodable packet",
			zap.Stringer("source", packet.Source),
			zap.Int("size", len(packet.Payload)),
			zap.Bool("truncated", packet.Truncated),
			zap.Error(err))
		return nil, err
	}
	return v, nil
}

// Decode decodes the payload of packet into a new T.
func Decode[T any](codec Codec, packet *Packet) (*T, error) {
	v := new(T)
	if err := codec.Unmarshal(packet.Payload, v); err != nil {
		return nil, DecodeError.Wrap(err)
	}
	return v, nil
}

// Close stops the listener, closes its socket and waits for it to exit.
// Packets still queued are discarded.
func (p *Popper) Close() error {
	p.closeOnce.Do(func() {
		select {
		case p.requests <- message{kind: msgStop}:
		case <-p.done:
		}
		p.cancel()
	})
	return p.Wait()
}

// Wait blocks until the listener has exited.
func (p *Popper) Wait() error {
	<-p.done
	return p.group.Wait()
}
