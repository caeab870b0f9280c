// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package node

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethersphere/raffle/pkg/crypto"
	"github.com/ethersphere/raffle/pkg/logging"
	"github.com/ethersphere/raffle/pkg/storage"
	"github.com/ethersphere/raffle/pkg/transaction"
)

const (
	maxDelay          = 1 * time.Minute
	cancellationDepth = 6
)

// DialChain connects to the Ethereum backend at the given endpoint and
// returns its chain id.
func DialChain(ctx context.Context, logger logging.Logger, endpoint string) (*ethclient.Client, int64, error) {
	backend, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, 0, fmt.Errorf("dial eth client: %w", err)
	}

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		logger.Infof("could not connect to backend at %v. Check your node or specify another one using --endpoint.", endpoint)
		backend.Close()
		return nil, 0, fmt.Errorf("get chain id: %w", err)
	}
	return backend, chainID.Int64(), nil
}

// InitChain will set up the Transaction Service to interact with the
// connected backend using the provided signer. Development nodes mine on
// demand and are not checked for sync.
func InitChain(
	ctx context.Context,
	logger logging.Logger,
	stateStore storage.StateStorer,
	backend transaction.Backend,
	chainID int64,
	signer crypto.Signer,
	blocktime uint64,
	development bool,
) (common.Address, transaction.Monitor, transaction.Service, error) {
	pollingInterval := time.Duration(blocktime) * time.Second
	deployerAddress, err := signer.EthereumAddress()
	if err != nil {
		return common.Address{}, nil, nil, fmt.Errorf("eth address: %w", err)
	}

	transactionMonitor := transaction.NewMonitor(logger, backend, deployerAddress, pollingInterval, cancellationDepth)

	transactionService, err := transaction.NewService(logger, backend, signer, stateStore, big.NewInt(chainID), transactionMonitor)
	if err != nil {
		_ = transactionMonitor.Close()
		return common.Address{}, nil, nil, fmt.Errorf("new transaction service: %w", err)
	}

	if development {
		return deployerAddress, transactionMonitor, transactionService, nil
	}

	// Sync the with the given Ethereum backend:
	isSynced, err := transaction.IsSynced(ctx, backend, maxDelay)
	if err != nil {
		return common.Address{}, nil, nil, closeChain(transactionMonitor, transactionService, fmt.Errorf("is synced: %w", err))
	}
	if !isSynced {
		logger.Infof("waiting to sync with the Ethereum backend")
		err := transaction.WaitSynced(ctx, backend, maxDelay)
		if err != nil {
			return common.Address{}, nil, nil, closeChain(transactionMonitor, transactionService, fmt.Errorf("waiting backend sync: %w", err))
		}
	}
	return deployerAddress, transactionMonitor, transactionService, nil
}

func closeChain(monitor transaction.Monitor, service transaction.Service, err error) error {
	_ = service.Close()
	_ = monitor.Close()
	return err
}
