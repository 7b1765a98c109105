// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	require.Equal(t, "", sanitize(""))
	require.Equal(t, "packets_received", sanitize("packets_received"))
	require.Equal(t, "storj_io_netev", sanitize("storj.io/netev"))
	require.Equal(t, "_9lives", sanitize("9lives"))
}

func TestPrometheus(t *testing.T) {
	registry := monkit.NewRegistry()
	scope := registry.ScopeNamed("storj.io/netev")
	scope.Counter("packets_received").Inc(3)

	endpoint := NewPrometheus(registry)

	rec := httptest.NewRecorder()
	endpoint.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	require.Contains(t, body, "# TYPE packets_received gauge\n")

	var found bool
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "packets_received{") {
			require.Contains(t, line, `scope="storj_io_netev"`)
			found = true
		}
	}
	require.True(t, found, body)
}
