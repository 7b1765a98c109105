// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package pb

import (
	"time"
)

// AsNanos converts t to the representation used by SentAtNs.
func AsNanos(t time.Time) int64 {
	return t.UnixNano()
}

// SentAt returns SentAtNs as a UTC time.
func (m *Note) SentAt() time.Time {
	return time.Unix(0, m.SentAtNs).UTC()
}
