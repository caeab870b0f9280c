// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transaction

import "github.com/prometheus/client_golang/prometheus/testutil"

var (
	StoredTransactionKey = storedTransactionKey
)

func SentCount(s Service) float64 {
	return testutil.ToFloat64(s.(*transactionService).metrics.SentCount)
}

func SendErrorCount(s Service) float64 {
	return testutil.ToFloat64(s.(*transactionService).metrics.SendErrorCount)
}
