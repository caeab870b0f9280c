// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package logging provides the logger interface abstraction
// and implementation for raffle. It uses logrus under the hood.
package logging

import (
	"fmt"
	"io"
	"io/ioutil"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

type Logger interface {
	Tracef(format string, args ...interface{})
	Trace(args ...interface{})
	Debugf(format string, args ...interface{})
	Debug(args ...interface{})
	Infof(format string, args ...interface{})
	Info(args ...interface{})
	Warningf(format string, args ...interface{})
	Warning(args ...interface{})
	Errorf(format string, args ...interface{})
	Error(args ...interface{})
	WithField(key string, value interface{}) *logrus.Entry
	WithFields(fields logrus.Fields) *logrus.Entry
	WriterLevel(logrus.Level) *io.PipeWriter
	NewEntry() *logrus.Entry
	Metrics() []prometheus.Collector
}

type logger struct {
	*logrus.Logger
	metrics metrics
}

func New(w io.Writer, level logrus.Level) Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	l.Formatter = &logrus.TextFormatter{
		FullTimestamp: true,
	}
	metrics := newMetrics()
	l.AddHook(metrics)
	return &logger{
		Logger:  l,
		metrics: metrics,
	}
}

// Noop returns a logger that discards all messages.
func Noop() Logger {
	return New(ioutil.Discard, 0)
}

func (l *logger) NewEntry() *logrus.Entry {
	return logrus.NewEntry(l.Logger)
}

// ParseVerbosity maps the verbosity names and numbers accepted on the command
// line to logrus levels. The boolean is false for "silent".
func ParseVerbosity(v string) (level logrus.Level, enabled bool, err error) {
	switch v {
	case "0", "silent":
		return 0, false, nil
	case "1", "error":
		return logrus.ErrorLevel, true, nil
	case "2", "warn":
		return logrus.WarnLevel, true, nil
	case "3", "info":
		return logrus.InfoLevel, true, nil
	case "4", "debug":
		return logrus.DebugLevel, true, nil
	case "5", "trace":
		return logrus.TraceLevel, true, nil
	default:
		return 0, false, fmt.Errorf("unknown verbosity level %q", v)
	}
}
