// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package verify

import "github.com/prometheus/client_golang/prometheus/testutil"

func (s *Service) VerifiedCount() float64 {
	return testutil.ToFloat64(s.metrics.VerifiedCount)
}

func (s *Service) AlreadyVerifiedCount() float64 {
	return testutil.ToFloat64(s.metrics.AlreadyVerifiedCount)
}

func (s *Service) FailedCount() float64 {
	return testutil.ToFloat64(s.metrics.FailedCount)
}
