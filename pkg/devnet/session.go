// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package devnet

import (
	"fmt"
	"io"
	"time"

	"github.com/ethersphere/raffle/pkg/crypto"
	"github.com/ethersphere/raffle/pkg/logging"
	"github.com/ethersphere/raffle/pkg/statestore/leveldb"
	"github.com/ethersphere/raffle/pkg/storage"
	"github.com/ethersphere/raffle/pkg/transaction"
	"github.com/hashicorp/go-multierror"
)

// pollingInterval is the monitor polling interval of sessions. Blocks are
// mined synchronously so receipts are found on the first check.
const pollingInterval = 10 * time.Millisecond

// Session sends transactions from one of the chain accounts.
type Session struct {
	transaction.Service
	Monitor transaction.Monitor
	Account Account

	store storage.StateStorer
}

// NewSession returns a transaction service for the account backed by an in
// memory state store.
func (c *Chain) NewSession(logger logging.Logger, a Account) (*Session, error) {
	store, err := leveldb.NewInMemoryStateStore(logger)
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}

	monitor := transaction.NewMonitor(logger, c, a.Address, pollingInterval, 1)
	service, err := transaction.NewService(logger, c, crypto.NewDefaultSigner(a.Key), store, c.chainID, monitor)
	if err != nil {
		return nil, multierror.Append(fmt.Errorf("session service: %w", err), monitor.Close(), store.Close())
	}

	return &Session{
		Service: service,
		Monitor: monitor,
		Account: a,
		store:   store,
	}, nil
}

// Close stops the service and its monitor.
func (s *Session) Close() error {
	var mErr *multierror.Error
	tryClose := func(c io.Closer, errMsg string) {
		if err := c.Close(); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("%s: %w", errMsg, err))
		}
	}
	tryClose(s.Service, "transaction service")
	tryClose(s.Monitor, "transaction monitor")
	tryClose(s.store, "state store")
	return mErr.ErrorOrNil()
}
