/* SPDX-License-Identifier: GPL-3.0-or-later
 *
 * AnotherHLS
 * Copyright (C) 2025 e1z0 <e1z0@icloud.com>
 *
 * This file is part of AnotherHLS.
 *
 * AnotherHLS is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * AnotherHLS is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with AnotherHLS.  If not, see <https://www.gnu.org/licenses/>.
 */
package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/e1z0/anotherhls/src/recorder"
)

// Metrics holds the Prometheus collectors fed by recordings.
type Metrics struct {
	registry         *prometheus.Registry
	unitsRead        *prometheus.CounterVec
	unitsSkipped     prometheus.Counter
	unitsWritten     *prometheus.CounterVec
	framesDecoded    prometheus.Counter
	recordings       *prometheus.CounterVec
	recordingSeconds prometheus.Gauge
}

var _ recorder.Observer = (*Metrics)(nil)

func newMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		unitsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anotherhls_units_read_total",
			Help: "Compressed units read from sources, by media type",
		}, []string{"media"}),
		unitsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "anotherhls_units_skipped_total",
			Help: "Units dropped because their track is not mapped",
		}),
		unitsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anotherhls_units_written_total",
			Help: "Units written to HLS containers, by media type",
		}, []string{"media"}),
		framesDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "anotherhls_frames_decoded_total",
			Help: "Video frames decoded for re-encoding",
		}),
		recordings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anotherhls_recordings_total",
			Help: "Finished recordings, by result",
		}, []string{"result"}),
		recordingSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "anotherhls_recording_seconds",
			Help: "Wall-clock length of the last finished recording",
		}),
	}

	registry.MustRegister(
		m.unitsRead,
		m.unitsSkipped,
		m.unitsWritten,
		m.framesDecoded,
		m.recordings,
		m.recordingSeconds,
	)
	return m
}

func (m *Metrics) UnitRead(media recorder.MediaType) {
	m.unitsRead.WithLabelValues(media.String()).Inc()
}

func (m *Metrics) UnitSkipped() { m.unitsSkipped.Inc() }

func (m *Metrics) UnitWritten(media recorder.MediaType) {
	m.unitsWritten.WithLabelValues(media.String()).Inc()
}

func (m *Metrics) FrameDecoded() { m.framesDecoded.Inc() }

// RecordingFinished counts a recording as "ok" or "error" and keeps its length.
func (m *Metrics) RecordingFinished(err error, d time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.recordings.WithLabelValues(result).Inc()
	m.recordingSeconds.Set(d.Seconds())
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// newRouter serves /metrics and a liveness probe on /healthz.
func newRouter(m *Metrics) http.Handler {
	r := chi.NewRouter()
	r.Get("/metrics", m.Handler().ServeHTTP)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	return r
}
