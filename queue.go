// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package netev

// packetQueue holds received packets until they are requested. Packets
// leave in last-in-first-out order. Only the listener goroutine uses it.
type packetQueue struct {
	packets []*Packet
}

func (q *packetQueue) push(p *Packet) {
	q.packets = append(q.packets, p)
}

// pop removes the most recently pushed packet.
func (q *packetQueue) pop() (*Packet, bool) {
	n := len(q.packets)
	if n == 0 {
		return nil, false
	}
	p := q.packets[n-1]
	q.packets[n-1] = nil
	q.packets = q.packets[:n-1]
	return p, true
}

func (q *packetQueue) len() int { return len(q.packets) }
