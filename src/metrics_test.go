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
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/e1z0/anotherhls/src/recorder"
)

func metricValue(t *testing.T, c prometheus.Metric) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatal(err)
	}
	if m.Counter != nil {
		return m.GetCounter().GetValue()
	}
	return m.GetGauge().GetValue()
}

func TestMetricsObserver(t *testing.T) {
	m := newMetrics()
	m.UnitRead(recorder.MediaVideo)
	m.UnitRead(recorder.MediaVideo)
	m.UnitRead(recorder.MediaAudio)
	m.UnitSkipped()
	m.UnitWritten(recorder.MediaAudio)
	m.FrameDecoded()
	m.RecordingFinished(nil, 42*time.Second)
	m.RecordingFinished(errors.New("boom"), 3*time.Second)

	if got := metricValue(t, m.unitsRead.WithLabelValues("video")); got != 2 {
		t.Errorf("video read = %v", got)
	}
	if got := metricValue(t, m.unitsWritten.WithLabelValues("audio")); got != 1 {
		t.Errorf("audio written = %v", got)
	}
	if got := metricValue(t, m.unitsSkipped); got != 1 {
		t.Errorf("skipped = %v", got)
	}
	if got := metricValue(t, m.recordings.WithLabelValues("ok")); got != 1 {
		t.Errorf("ok recordings = %v", got)
	}
	if got := metricValue(t, m.recordings.WithLabelValues("error")); got != 1 {
		t.Errorf("failed recordings = %v", got)
	}
	if got := metricValue(t, m.recordingSeconds); got != 3 {
		t.Errorf("recording seconds = %v", got)
	}
}

func TestRouter(t *testing.T) {
	m := newMetrics()
	m.FrameDecoded()
	r := newRouter(m)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "anotherhls_frames_decoded_total 1") {
		t.Errorf("metrics body:\n%s", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok\n" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/metrics", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /metrics = %d", rec.Code)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := newMetrics()
	m.UnitSkipped()
	path := filepath.Join(t.TempDir(), "anotherhls.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "anotherhls_units_skipped_total 1") {
		t.Errorf("textfile:\n%s", b)
	}
}

func TestStartMetricsServer(t *testing.T) {
	m := newMetrics()
	shutdown, err := startMetricsServer("127.0.0.1:0", m, newLogger("error", "text", io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	shutdown()

	if _, err := startMetricsServer("256.0.0.1:bad", m, newLogger("error", "text", io.Discard)); err == nil {
		t.Error("bad address accepted")
	}
}
