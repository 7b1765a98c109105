// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package netev

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func bind(t *testing.T, config Config) *Popper {
	t.Helper()
	if config.Log == nil {
		config.Log = zaptest.NewLogger(t)
	}
	p, err := Bind(context.Background(), "127.0.0.1:0", config)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, p.Close()) })
	return p
}

// sendFrom writes each payload to p from a fresh unconnected socket and
// returns that socket's address.
func sendFrom(t *testing.T, p *Popper, payloads ...[]byte) *net.UDPAddr {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	for _, payload := range payloads {
		_, err := conn.WriteToUDP(payload, p.LocalAddr())
		require.NoError(t, err)
	}
	return conn.LocalAddr().(*net.UDPAddr)
}

func waitReceived(t *testing.T, p *Popper, n int64) {
	t.Helper()
	require.Eventually(t, func() bool {
		return p.Received() >= n
	}, 5*time.Second, time.Millisecond)
	require.Equal(t, n, p.Received())
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestTryNextPacket(t *testing.T) {
	p := bind(t, Config{})
	ctx := testContext(t)

	source := sendFrom(t, p, []byte{1, 2, 3})
	waitReceived(t, p, 1)

	packet, err := p.TryNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, packet)
	require.Equal(t, []byte{1, 2, 3}, packet.Payload)
	require.Equal(t, source.Port, packet.Source.Port)
	require.True(t, source.IP.Equal(packet.Source.IP))
	require.False(t, packet.Truncated)
	require.False(t, packet.ReceivedAt.IsZero())

	packet, err = p.TryNext(ctx)
	require.NoError(t, err)
	require.Nil(t, packet)
}

func TestTryNextEmpty(t *testing.T) {
	p := bind(t, Config{})
	ctx := testContext(t)

	for i := 0; i < 10; i++ {
		packet, err := p.TryNext(ctx)
		require.NoError(t, err)
		require.Nil(t, packet)
	}
}

func TestTryNextCount(t *testing.T) {
	const n = 20

	p := bind(t, Config{})
	ctx := testContext(t)

	var payloads [][]byte
	for i := 0; i < n; i++ {
		payloads = append(payloads, []byte{byte(i)})
	}
	sendFrom(t, p, payloads...)
	waitReceived(t, p, n)

	seen := map[byte]bool{}
	for i := 0; i < n; i++ {
		packet, err := p.TryNext(ctx)
		require.NoError(t, err)
		require.NotNil(t, packet)
		require.Len(t, packet.Payload, 1)
		seen[packet.Payload[0]] = true
	}
	require.Len(t, seen, n)

	packet, err := p.TryNext(ctx)
	require.NoError(t, err)
	require.Nil(t, packet)
}

func TestTryNextLIFO(t *testing.T) {
	p := bind(t, Config{})
	ctx := testContext(t)

	sendFrom(t, p, []byte("D1"), []byte("D2"), []byte("D3"))
	waitReceived(t, p, 3)

	for _, expected := range []string{"D3", "D2", "D1"} {
		packet, err := p.TryNext(ctx)
		require.NoError(t, err)
		require.NotNil(t, packet)
		require.Equal(t, expected, string(packet.Payload))
	}
}

func TestTryNextTruncatesOversized(t *testing.T) {
	p := bind(t, Config{BufferSize: 16})
	ctx := testContext(t)

	payload := make([]byte, 100)
	for i := range payload {
		payload[i] = byte(i)
	}
	sendFrom(t, p, payload)
	waitReceived(t, p, 1)

	packet, err := p.TryNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, packet)
	require.Equal(t, payload[:16], packet.Payload)
	requireTruncatedFlag(t, packet)
}

func TestBusyPoll(t *testing.T) {
	p := bind(t, Config{IdleBackoff: -1})
	ctx := testContext(t)

	sendFrom(t, p, []byte("busy"))
	waitReceived(t, p, 1)

	packet, err := p.TryNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, packet)
	require.Equal(t, "busy", string(packet.Payload))
}

func TestIndependentPoppers(t *testing.T) {
	a := bind(t, Config{})
	b := bind(t, Config{})
	ctx := testContext(t)

	sendFrom(t, a, []byte("for a"))
	sendFrom(t, b, []byte("for b"))
	waitReceived(t, a, 1)
	waitReceived(t, b, 1)

	packet, err := a.TryNext(ctx)
	require.NoError(t, err)
	require.Equal(t, "for a", string(packet.Payload))

	packet, err = b.TryNext(ctx)
	require.NoError(t, err)
	require.Equal(t, "for b", string(packet.Payload))

	for _, p := range []*Popper{a, b} {
		packet, err = p.TryNext(ctx)
		require.NoError(t, err)
		require.Nil(t, packet)
	}
}

func TestProtocolFault(t *testing.T) {
	p := bind(t, Config{})
	ctx := testContext(t)

	packet, err := p.roundTrip(ctx, message{kind: msgDelivered})
	require.Error(t, err)
	require.True(t, ProtocolError.Has(err))
	require.Nil(t, packet)

	// the listener keeps serving after a fault.
	packet, err = p.TryNext(ctx)
	require.NoError(t, err)
	require.Nil(t, packet)
}

func TestBindErrors(t *testing.T) {
	ctx := testContext(t)

	_, err := Bind(ctx, "definitely not an address", Config{})
	require.Error(t, err)
	require.True(t, BindError.Has(err))

	p := bind(t, Config{})
	_, err = Bind(ctx, p.LocalAddr().String(), Config{})
	require.Error(t, err)
	require.True(t, BindError.Has(err))
}

func TestClose(t *testing.T) {
	p, err := Bind(context.Background(), "127.0.0.1:0", Config{Log: zaptest.NewLogger(t)})
	require.NoError(t, err)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	require.NoError(t, p.Wait())

	_, err = p.TryNext(testContext(t))
	require.ErrorIs(t, err, ErrClosed)

	_, err = Pop[string](testContext(t), p)
	require.ErrorIs(t, err, ErrClosed)
}

func TestContextStopsListener(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p, err := Bind(ctx, "127.0.0.1:0", Config{Log: zaptest.NewLogger(t)})
	require.NoError(t, err)

	cancel()
	require.NoError(t, p.Wait())

	_, err = p.TryNext(testContext(t))
	require.ErrorIs(t, err, ErrClosed)
	require.NoError(t, p.Close())
}

func TestTryNextRespectsContext(t *testing.T) {
	// a popper without a listener never gets an answer.
	p := &Popper{
		log:      zap.NewNop(),
		codec:    JSON,
		requests: make(chan message),
		replies:  make(chan message, 1),
		done:     make(chan struct{}),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.TryNext(ctx)
	require.Error(t, err)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
	require.False(t, p.outstanding)
}

func TestLateReplyIsCollected(t *testing.T) {
	p := &Popper{
		log:      zap.NewNop(),
		codec:    JSON,
		timeout:  20 * time.Millisecond,
		requests: make(chan message, 1),
		replies:  make(chan message, 1),
		done:     make(chan struct{}),
	}

	_, err := p.TryNext(context.Background())
	require.True(t, errors.Is(err, context.DeadlineExceeded))
	require.True(t, p.outstanding)
	require.Len(t, p.requests, 1)

	late := &Packet{Payload: []byte("late")}
	p.replies <- message{kind: msgDelivered, packet: late}

	packet, err := p.TryNext(context.Background())
	require.NoError(t, err)
	require.Same(t, late, packet)
	require.False(t, p.outstanding)

	// no second request was sent for the collected reply.
	require.Len(t, p.requests, 1)
}

func TestRequestTimeoutWithListener(t *testing.T) {
	p := bind(t, Config{RequestTimeout: time.Second})
	ctx := testContext(t)

	packet, err := p.TryNext(ctx)
	require.NoError(t, err)
	require.Nil(t, packet)
}
