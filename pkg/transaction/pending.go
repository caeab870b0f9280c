// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transaction

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/raffle/pkg/logging"
)

// PendingTransaction is a sent transaction that has not been confirmed yet.
type PendingTransaction struct {
	Hash common.Hash
	*StoredTransaction
}

// Pending returns the pending transactions of the service with their stored
// records.
func Pending(s Service) ([]PendingTransaction, error) {
	txHashes, err := s.PendingTransactions()
	if err != nil {
		return nil, err
	}

	pending := make([]PendingTransaction, 0, len(txHashes))
	for _, txHash := range txHashes {
		storedTransaction, err := s.StoredTransaction(txHash)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", txHash, err)
		}
		pending = append(pending, PendingTransaction{
			Hash:              txHash,
			StoredTransaction: storedTransaction,
		})
	}
	return pending, nil
}

// ResendPending resends every pending transaction of the service and returns
// the hashes that were sent again. Transactions the backend already knows
// are skipped.
func ResendPending(ctx context.Context, logger logging.Logger, s Service) ([]common.Hash, error) {
	txHashes, err := s.PendingTransactions()
	if err != nil {
		return nil, err
	}

	var resent []common.Hash
	for _, txHash := range txHashes {
		err := s.ResendTransaction(ctx, txHash)
		if errors.Is(err, ErrAlreadyImported) {
			logger.Debugf("transaction %s already known to the backend", txHash)
			continue
		}
		if err != nil {
			return resent, fmt.Errorf("resend %s: %w", txHash, err)
		}
		logger.Infof("resent transaction %s", txHash)
		resent = append(resent, txHash)
	}
	return resent, nil
}
