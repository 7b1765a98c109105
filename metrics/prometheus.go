// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package metrics exposes monkit measurements over HTTP.
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/spacemonkeygo/monkit/v3"
)

// WithDeltas adds the transformers every scrape output needs.
func WithDeltas(r *monkit.Registry) *monkit.Registry {
	return r.WithTransformers(monkit.NewDeltaTransformer())
}

// Prometheus serves a monkit registry in the Prometheus text format. Every
// distinct output-id query parameter gets its own delta state, so several
// scrapers can share one endpoint.
type Prometheus struct {
	mu       sync.Mutex
	outputs  map[string]*monkit.Registry
	registry *monkit.Registry
}

// NewPrometheus creates a Prometheus endpoint for registry.
func NewPrometheus(registry *monkit.Registry) *Prometheus {
	return &Prometheus{
		registry: registry,
		outputs:  map[string]*monkit.Registry{},
	}
}

// ServeHTTP writes one sample line per series field.
func (p *Prometheus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// all lines for a metric have to be written as one group.
	data := make(map[string][]string)
	var components []string

	p.registryFor(r).Stats(func(key monkit.SeriesKey, field string, val float64) {
		components = components[:0]

		measurement := sanitize(key.Measurement)
		for tag, tagVal := range key.Tags.All() {
			components = append(components,
				fmt.Sprintf("%s=%q", sanitize(tag), sanitize(tagVal)))
		}
		sort.Strings(components)
		components = append(components,
			fmt.Sprintf("field=%q", sanitize(field)))

		data[measurement] = append(data[measurement],
			fmt.Sprintf("{%s} %g", strings.Join(components, ","), val))
	})

	measurements := make([]string, 0, len(data))
	for measurement := range data {
		measurements = append(measurements, measurement)
	}
	sort.Strings(measurements)

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	for _, measurement := range measurements {
		_, _ = fmt.Fprintln(w, "# TYPE", measurement, "gauge")
		for _, sample := range data[measurement] {
			_, _ = fmt.Fprintf(w, "%s%s\n", measurement, sample)
		}
	}
}

func (p *Prometheus) registryFor(r *http.Request) *monkit.Registry {
	outputID := r.URL.Query().Get("output-id")
	p.mu.Lock()
	defer p.mu.Unlock()
	reg, found := p.outputs[outputID]
	if !found {
		reg = WithDeltas(p.registry)
		p.outputs[outputID] = reg
	}
	return reg
}

// sanitize maps val onto [a-zA-Z_][a-zA-Z0-9_]*.
func sanitize(val string) string {
	if val == "" {
		return ""
	}
	if '0' <= val[0] && val[0] <= '9' {
		val = "_" + val
	}
	return strings.Map(func(r rune) rune {
		switch {
		case 'a' <= r && r <= 'z':
			return r
		case 'A' <= r && r <= 'Z':
			return r
		case '0' <= r && r <= '9':
			return r
		default:
			return '_'
		}
	}, val)
}
