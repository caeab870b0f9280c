// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logging_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ethersphere/raffle/pkg/logging"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
)

func TestLevelsAndMetrics(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, logrus.InfoLevel)

	logger.Infof("deployed %s", "Lottery")
	logger.Warningf("verification failed: %v", "timeout")
	logger.Debugf("hidden")

	out := buf.String()
	if !strings.Contains(out, "deployed Lottery") {
		t.Errorf("missing info message in %q", out)
	}
	if !strings.Contains(out, "verification failed: timeout") {
		t.Errorf("missing warning message in %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message logged at info level: %q", out)
	}

	collectors := logger.Metrics()
	if len(collectors) != 5 {
		t.Fatalf("got %d collectors, want 5", len(collectors))
	}
	counts := map[int]float64{
		1: 1, // warn
		2: 1, // info
	}
	for i, c := range collectors {
		if got := testutil.ToFloat64(c); got != counts[i] {
			t.Errorf("collector %d: got %v, want %v", i, got, counts[i])
		}
	}
}

func TestParseVerbosity(t *testing.T) {
	for _, tc := range []struct {
		in      string
		level   logrus.Level
		enabled bool
		fail    bool
	}{
		{in: "0", enabled: false},
		{in: "silent", enabled: false},
		{in: "error", level: logrus.ErrorLevel, enabled: true},
		{in: "2", level: logrus.WarnLevel, enabled: true},
		{in: "info", level: logrus.InfoLevel, enabled: true},
		{in: "debug", level: logrus.DebugLevel, enabled: true},
		{in: "5", level: logrus.TraceLevel, enabled: true},
		{in: "loud", fail: true},
	} {
		level, enabled, err := logging.ParseVerbosity(tc.in)
		if tc.fail {
			if err == nil {
				t.Errorf("%s: expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: %v", tc.in, err)
		}
		if enabled != tc.enabled {
			t.Errorf("%s: got enabled %v, want %v", tc.in, enabled, tc.enabled)
		}
		if enabled && level != tc.level {
			t.Errorf("%s: got level %v, want %v", tc.in, level, tc.level)
		}
	}
}
