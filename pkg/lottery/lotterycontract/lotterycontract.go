// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lotterycontract is the ABI binding of a deployed Lottery. It works
// against any transaction.Backend, a node or a development chain.
package lotterycontract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/ethersphere/raffle/pkg/logging"
	"github.com/ethersphere/raffle/pkg/lottery"
	"github.com/ethersphere/raffle/pkg/sctx"
	"github.com/ethersphere/raffle/pkg/transaction"
)

// DefaultPollingInterval is used to poll for logs when the backend does not
// support subscriptions.
const DefaultPollingInterval = 5 * time.Second

var (
	lotteryABI   = lottery.ABI
	errDecodeABI = errors.New("could not decode abi data")
)

var _ lottery.Interface = (*Contract)(nil)

// Contract is a deployed lottery seen from the sender of the transaction
// service.
type Contract struct {
	logger          logging.Logger
	address         common.Address
	txService       transaction.Service
	backend         transaction.Backend
	pollingInterval time.Duration
}

// New returns a binding to the lottery at address.
func New(logger logging.Logger, address common.Address, txService transaction.Service, backend transaction.Backend) *Contract {
	return &Contract{
		logger:          logger,
		address:         address,
		txService:       txService,
		backend:         backend,
		pollingInterval: DefaultPollingInterval,
	}
}

// Connect returns a binding to the same lottery sending from another
// account.
func (c *Contract) Connect(txService transaction.Service) *Contract {
	cc := *c
	cc.txService = txService
	return &cc
}

func (c *Contract) Address() common.Address {
	return c.address
}

func (c *Contract) EnterLottery(ctx context.Context, value *big.Int) (*types.Receipt, error) {
	callData, err := lotteryABI.Pack("enterLottery")
	if err != nil {
		return nil, err
	}
	receipt, err := c.sendAndWait(ctx, callData, value, "enter lottery")
	if err != nil {
		return nil, fmt.Errorf("enter lottery: %w", err)
	}
	return receipt, nil
}

func (c *Contract) CheckUpkeep(ctx context.Context, checkData []byte) (bool, []byte, error) {
	if checkData == nil {
		checkData = []byte{}
	}
	results, err := c.call(ctx, "checkUpkeep", checkData)
	if err != nil {
		return false, nil, err
	}
	if len(results) != 2 {
		return false, nil, errDecodeABI
	}
	upkeepNeeded, ok := results[0].(bool)
	if !ok {
		return false, nil, errDecodeABI
	}
	performData, ok := results[1].([]byte)
	if !ok {
		return false, nil, errDecodeABI
	}
	return upkeepNeeded, performData, nil
}

// PerformUpkeep closes the round and returns the request id from the
// RequestedLotteryWinner event.
func (c *Contract) PerformUpkeep(ctx context.Context, performData []byte) (*big.Int, *types.Receipt, error) {
	if performData == nil {
		performData = []byte{}
	}
	callData, err := lotteryABI.Pack("performUpkeep", performData)
	if err != nil {
		return nil, nil, err
	}
	receipt, err := c.sendAndWait(ctx, callData, nil, "perform upkeep")
	if err != nil {
		return nil, nil, fmt.Errorf("perform upkeep: %w", err)
	}

	var requested lottery.RequestedLotteryWinnerEvent
	if err := transaction.FindSingleEvent(&lotteryABI, receipt, c.address, lotteryABI.Events["RequestedLotteryWinner"], &requested); err != nil {
		return nil, receipt, fmt.Errorf("perform upkeep: %w", err)
	}
	return requested.RequestId, receipt, nil
}

func (c *Contract) RawFulfillRandomWords(ctx context.Context, requestID *big.Int, randomWords []*big.Int) (*types.Receipt, error) {
	callData, err := lotteryABI.Pack("rawFulfillRandomWords", requestID, randomWords)
	if err != nil {
		return nil, err
	}
	receipt, err := c.sendAndWait(ctx, callData, nil, "fulfill random words")
	if err != nil {
		return nil, fmt.Errorf("fulfill random words: %w", err)
	}
	return receipt, nil
}

func (c *Contract) EntranceFee(ctx context.Context) (*big.Int, error) {
	return c.callBigInt(ctx, "getEntranceFee")
}

func (c *Contract) LatestTimeStamp(ctx context.Context) (*big.Int, error) {
	return c.callBigInt(ctx, "getLatestTimeStamp")
}

func (c *Contract) LotteryState(ctx context.Context) (lottery.State, error) {
	results, err := c.call(ctx, "getLotteryState")
	if err != nil {
		return 0, err
	}
	if len(results) != 1 {
		return 0, errDecodeABI
	}
	state, ok := results[0].(uint8)
	if !ok {
		return 0, errDecodeABI
	}
	return lottery.State(state), nil
}

func (c *Contract) RecentWinner(ctx context.Context) (common.Address, error) {
	return c.callAddress(ctx, "getRecentWinner")
}

func (c *Contract) Player(ctx context.Context, index *big.Int) (common.Address, error) {
	return c.callAddress(ctx, "getPlayer", index)
}

func (c *Contract) NumberOfPlayers(ctx context.Context) (*big.Int, error) {
	return c.callBigInt(ctx, "getNumberOfPlayers")
}

func (c *Contract) Interval(ctx context.Context) (*big.Int, error) {
	return c.callBigInt(ctx, "getInterval")
}

func (c *Contract) NumWords(ctx context.Context) (*big.Int, error) {
	return c.callBigInt(ctx, "getNumWords")
}

func (c *Contract) RequestConfirmations(ctx context.Context) (*big.Int, error) {
	return c.callBigInt(ctx, "getRequestConfirmations")
}

// WatchPickedWinner subscribes to PickedWinner logs. Backends without
// subscription support are polled.
func (c *Contract) WatchPickedWinner(ctx context.Context, sink chan<- *lottery.PickedWinnerEvent) (event.Subscription, error) {
	from, err := c.backend.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("block number: %w", err)
	}
	query := transaction.EventQuery(c.address, lotteryABI.Events["PickedWinner"], from+1)

	logs := make(chan types.Log, 16)
	logSub, err := c.backend.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		if !errors.Is(err, rpc.ErrNotificationsUnsupported) {
			return nil, fmt.Errorf("subscribe picked winner: %w", err)
		}
		c.logger.Debugf("lottery: log subscriptions unsupported, polling every %s", c.pollingInterval)
		logSub = c.pollLogs(query, logs)
	}

	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer logSub.Unsubscribe()
		for {
			select {
			case l := <-logs:
				// reorged out
				if l.Removed {
					continue
				}
				var e lottery.PickedWinnerEvent
				if err := transaction.ParseEvent(&lotteryABI, "PickedWinner", &e, l); err != nil {
					return fmt.Errorf("parse picked winner: %w", err)
				}
				e.Raw = l
				select {
				case sink <- &e:
				case <-quit:
					return nil
				}
			case err := <-logSub.Err():
				return err
			case <-quit:
				return nil
			}
		}
	}), nil
}

// pollLogs delivers the logs matching the query by polling FilterLogs.
func (c *Contract) pollLogs(query ethereum.FilterQuery, logs chan<- types.Log) event.Subscription {
	return event.NewSubscription(func(quit <-chan struct{}) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			<-quit
			cancel()
		}()

		from := query.FromBlock.Uint64()
		for {
			select {
			case <-time.After(c.pollingInterval):
			case <-quit:
				return nil
			}

			latest, err := c.backend.BlockNumber(ctx)
			if err != nil {
				c.logger.Debugf("lottery: poll block number: %v", err)
				continue
			}
			if latest < from {
				continue
			}

			q := query
			q.FromBlock = new(big.Int).SetUint64(from)
			q.ToBlock = new(big.Int).SetUint64(latest)
			found, err := c.backend.FilterLogs(ctx, q)
			if err != nil {
				c.logger.Debugf("lottery: poll logs: %v", err)
				continue
			}
			for _, l := range found {
				select {
				case logs <- l:
				case <-quit:
					return nil
				}
			}
			from = latest + 1
		}
	})
}

// sendAndWait sends a transaction to the lottery and waits until it is
// mined. Reverts are mapped to the errors of the lottery package.
func (c *Contract) sendAndWait(ctx context.Context, callData []byte, value *big.Int, description string) (*types.Receipt, error) {
	if value == nil {
		value = big.NewInt(0)
	}
	request := &transaction.TxRequest{
		To:          &c.address,
		Data:        callData,
		GasPrice:    sctx.GetGasPrice(ctx),
		GasLimit:    sctx.GetGasLimit(ctx),
		Value:       value,
		Description: description,
	}

	txHash, err := c.txService.Send(ctx, request)
	if err != nil {
		return nil, lottery.ParseRevert(err)
	}

	receipt, err := c.txService.WaitForReceipt(ctx, txHash)
	if err != nil {
		return nil, err
	}

	if receipt.Status == 0 {
		return nil, transaction.ErrTransactionReverted
	}
	return receipt, nil
}

func (c *Contract) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	callData, err := lotteryABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}

	output, err := c.txService.Call(ctx, &transaction.TxRequest{
		To:   &c.address,
		Data: callData,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, lottery.ParseRevert(err))
	}

	results, err := lotteryABI.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return results, nil
}

func (c *Contract) callBigInt(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	results, err := c.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	if len(results) != 1 {
		return nil, errDecodeABI
	}
	value, ok := abi.ConvertType(results[0], new(big.Int)).(*big.Int)
	if !ok || value == nil {
		return nil, errDecodeABI
	}
	return value, nil
}

func (c *Contract) callAddress(ctx context.Context, method string, args ...interface{}) (common.Address, error) {
	results, err := c.call(ctx, method, args...)
	if err != nil {
		return common.Address{}, err
	}
	if len(results) != 1 {
		return common.Address{}, errDecodeABI
	}
	address, ok := results[0].(common.Address)
	if !ok {
		return common.Address{}, errDecodeABI
	}
	return address, nil
}
