// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vrf

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethersphere/raffle/pkg/sctx"
	"github.com/ethersphere/raffle/pkg/transaction"
)

var errDecodeABI = errors.New("could not decode abi data")

// Coordinator is a client of a deployed VRF coordinator.
type Coordinator interface {
	Address() common.Address
	CreateSubscription(ctx context.Context) (subID uint64, err error)
	FundSubscription(ctx context.Context, subID uint64, amount *big.Int) error
	AddConsumer(ctx context.Context, subID uint64, consumer common.Address) error
	RemoveConsumer(ctx context.Context, subID uint64, consumer common.Address) error
	CancelSubscription(ctx context.Context, subID uint64, to common.Address) error
	GetSubscription(ctx context.Context, subID uint64) (*Subscription, error)
	RequestRandomWords(ctx context.Context, keyHash common.Hash, subID uint64, confirmations uint16, callbackGasLimit uint32, numWords uint32) (requestID *big.Int, err error)
	FulfillRandomWords(ctx context.Context, requestID *big.Int, consumer common.Address) (*RandomWordsFulfilledEvent, error)
}

type coordinator struct {
	address   common.Address
	txService transaction.Service
}

// NewCoordinator returns a client for the coordinator at address sending
// transactions through txService.
func NewCoordinator(address common.Address, txService transaction.Service) Coordinator {
	return &coordinator{
		address:   address,
		txService: txService,
	}
}

func (c *coordinator) Address() common.Address {
	return c.address
}

// CreateSubscription creates a subscription owned by the sender and returns
// its id taken from the SubscriptionCreated event.
func (c *coordinator) CreateSubscription(ctx context.Context) (uint64, error) {
	callData, err := CoordinatorABI.Pack("createSubscription")
	if err != nil {
		return 0, err
	}

	receipt, err := c.sendAndWait(ctx, callData, "create subscription")
	if err != nil {
		return 0, fmt.Errorf("create subscription: %w", err)
	}

	var event struct {
		SubId uint64
		Owner common.Address
	}
	if err := transaction.FindSingleEvent(&CoordinatorABI, receipt, c.address, CoordinatorABI.Events["SubscriptionCreated"], &event); err != nil {
		return 0, fmt.Errorf("create subscription: %w", err)
	}
	return event.SubId, nil
}

func (c *coordinator) FundSubscription(ctx context.Context, subID uint64, amount *big.Int) error {
	callData, err := CoordinatorABI.Pack("fundSubscription", subID, amount)
	if err != nil {
		return err
	}
	if _, err := c.sendAndWait(ctx, callData, "fund subscription"); err != nil {
		return fmt.Errorf("fund subscription %d: %w", subID, err)
	}
	return nil
}

func (c *coordinator) AddConsumer(ctx context.Context, subID uint64, consumer common.Address) error {
	callData, err := CoordinatorABI.Pack("addConsumer", subID, consumer)
	if err != nil {
		return err
	}
	if _, err := c.sendAndWait(ctx, callData, "add consumer"); err != nil {
		return fmt.Errorf("add consumer %s to subscription %d: %w", consumer, subID, err)
	}
	return nil
}

func (c *coordinator) RemoveConsumer(ctx context.Context, subID uint64, consumer common.Address) error {
	callData, err := CoordinatorABI.Pack("removeConsumer", subID, consumer)
	if err != nil {
		return err
	}
	if _, err := c.sendAndWait(ctx, callData, "remove consumer"); err != nil {
		return fmt.Errorf("remove consumer %s from subscription %d: %w", consumer, subID, err)
	}
	return nil
}

func (c *coordinator) CancelSubscription(ctx context.Context, subID uint64, to common.Address) error {
	callData, err := CoordinatorABI.Pack("cancelSubscription", subID, to)
	if err != nil {
		return err
	}
	if _, err := c.sendAndWait(ctx, callData, "cancel subscription"); err != nil {
		return fmt.Errorf("cancel subscription %d: %w", subID, err)
	}
	return nil
}

func (c *coordinator) GetSubscription(ctx context.Context, subID uint64) (*Subscription, error) {
	callData, err := CoordinatorABI.Pack("getSubscription", subID)
	if err != nil {
		return nil, err
	}

	output, err := c.txService.Call(ctx, &transaction.TxRequest{
		To:   &c.address,
		Data: callData,
	})
	if err != nil {
		return nil, fmt.Errorf("get subscription %d: %w", subID, ParseRevert(err))
	}

	results, err := CoordinatorABI.Unpack("getSubscription", output)
	if err != nil {
		return nil, err
	}
	if len(results) != 4 {
		return nil, errDecodeABI
	}

	balance, ok := abi.ConvertType(results[0], new(big.Int)).(*big.Int)
	if !ok || balance == nil {
		return nil, errDecodeABI
	}
	reqCount, ok := results[1].(uint64)
	if !ok {
		return nil, errDecodeABI
	}
	owner, ok := results[2].(common.Address)
	if !ok {
		return nil, errDecodeABI
	}
	consumers, ok := results[3].([]common.Address)
	if !ok {
		return nil, errDecodeABI
	}

	return &Subscription{
		Balance:   balance,
		ReqCount:  reqCount,
		Owner:     owner,
		Consumers: consumers,
	}, nil
}

// RequestRandomWords requests words directly from the coordinator with the
// sender as consumer.
func (c *coordinator) RequestRandomWords(ctx context.Context, keyHash common.Hash, subID uint64, confirmations uint16, callbackGasLimit uint32, numWords uint32) (*big.Int, error) {
	callData, err := CoordinatorABI.Pack("requestRandomWords", [32]byte(keyHash), subID, confirmations, callbackGasLimit, numWords)
	if err != nil {
		return nil, err
	}

	receipt, err := c.sendAndWait(ctx, callData, "request random words")
	if err != nil {
		return nil, fmt.Errorf("request random words: %w", err)
	}

	var event RandomWordsRequestedEvent
	if err := transaction.FindSingleEvent(&CoordinatorABI, receipt, c.address, CoordinatorABI.Events["RandomWordsRequested"], &event); err != nil {
		return nil, fmt.Errorf("request random words: %w", err)
	}
	return event.RequestId, nil
}

// FulfillRandomWords makes the coordinator call back the consumer with the
// words of the request.
func (c *coordinator) FulfillRandomWords(ctx context.Context, requestID *big.Int, consumer common.Address) (*RandomWordsFulfilledEvent, error) {
	callData, err := CoordinatorABI.Pack("fulfillRandomWords", requestID, consumer)
	if err != nil {
		return nil, err
	}

	receipt, err := c.sendAndWait(ctx, callData, "fulfill random words")
	if err != nil {
		return nil, fmt.Errorf("fulfill request %s: %w", requestID, err)
	}

	var event RandomWordsFulfilledEvent
	if err := transaction.FindSingleEvent(&CoordinatorABI, receipt, c.address, CoordinatorABI.Events["RandomWordsFulfilled"], &event); err != nil {
		return nil, fmt.Errorf("fulfill request %s: %w", requestID, err)
	}
	return &event, nil
}

// sendAndWait sends a transaction to the coordinator and waits until it is
// mined. Reverts are mapped to the errors of this package.
func (c *coordinator) sendAndWait(ctx context.Context, callData []byte, description string) (*types.Receipt, error) {
	request := &transaction.TxRequest{
		To:          &c.address,
		Data:        callData,
		GasPrice:    sctx.GetGasPrice(ctx),
		GasLimit:    sctx.GetGasLimit(ctx),
		Value:       big.NewInt(0),
		Description: description,
	}

	txHash, err := c.txService.Send(ctx, request)
	if err != nil {
		return nil, ParseRevert(err)
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
