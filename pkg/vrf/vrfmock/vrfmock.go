// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vrfmock implements the mock VRF coordinator as a devnet contract.
// Subscriptions are funded without a token and requests are fulfilled on
// demand with words derived from the request id.
package vrfmock

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/raffle/pkg/devnet"
	"github.com/ethersphere/raffle/pkg/transaction"
	"github.com/ethersphere/raffle/pkg/vrf"
)

const maxConsumers = 100

var (
	coordinatorABI = vrf.CoordinatorABI
	consumerABI    = vrf.ConsumerABI

	addressArguments = abi.Arguments{{Type: mustType("address")}}
	uint32Arguments  = abi.Arguments{{Type: mustType("uint32")}, {Type: mustType("uint32")}}
)

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

type subscription struct {
	owner     common.Address
	balance   *big.Int
	reqCount  uint64
	consumers []common.Address
}

type request struct {
	subID            uint64
	consumer         common.Address
	callbackGasLimit uint32
	numWords         uint32
}

type coordinator struct {
	baseFee      *big.Int
	gasPriceLink *big.Int

	currentSubID  uint64
	nextRequestID uint64
	nextPreSeed   uint64
	subscriptions map[uint64]*subscription
	requests      map[uint64]request
}

// Register makes the mock coordinator deployable on the chain and returns
// its code.
func Register(chain *devnet.Chain) []byte {
	return chain.Register(vrf.MockName, New)
}

// New is the constructor of the mock coordinator. It takes the ABI encoded
// base fee and gas price in LINK.
func New(f *devnet.Frame, args []byte) (devnet.Contract, error) {
	values, err := coordinatorABI.Constructor.Inputs.Unpack(args)
	if err != nil {
		return nil, devnet.RevertWithReason(fmt.Sprintf("invalid constructor arguments: %v", err))
	}
	baseFee, ok := abi.ConvertType(values[0], new(big.Int)).(*big.Int)
	if !ok {
		return nil, devnet.RevertWithReason("invalid base fee")
	}
	gasPriceLink, ok := abi.ConvertType(values[1], new(big.Int)).(*big.Int)
	if !ok {
		return nil, devnet.RevertWithReason("invalid gas price link")
	}

	f.UseGas(40000)
	return &coordinator{
		baseFee:       baseFee,
		gasPriceLink:  gasPriceLink,
		nextRequestID: 1,
		nextPreSeed:   100,
		subscriptions: make(map[uint64]*subscription),
		requests:      make(map[uint64]request),
	}, nil
}

func (c *coordinator) Run(f *devnet.Frame, input []byte) ([]byte, error) {
	m, args, err := devnet.Method(&coordinatorABI, input)
	if err != nil {
		return nil, err
	}
	if f.Value().Sign() > 0 {
		return nil, devnet.RevertWithReason("non payable")
	}

	switch m.Name {
	case "BASE_FEE":
		return devnet.Return(m, c.baseFee)
	case "GAS_PRICE_LINK":
		return devnet.Return(m, c.gasPriceLink)
	case "createSubscription":
		return c.createSubscription(f, m)
	case "fundSubscription":
		return c.fundSubscription(f, m, args[0].(uint64), args[1].(*big.Int))
	case "addConsumer":
		return c.addConsumer(f, m, args[0].(uint64), args[1].(common.Address))
	case "removeConsumer":
		return c.removeConsumer(f, m, args[0].(uint64), args[1].(common.Address))
	case "consumerIsAdded":
		return devnet.Return(m, c.consumerIsAdded(args[0].(uint64), args[1].(common.Address)))
	case "cancelSubscription":
		return c.cancelSubscription(f, m, args[0].(uint64), args[1].(common.Address))
	case "getSubscription":
		return c.getSubscription(m, args[0].(uint64))
	case "requestRandomWords":
		return c.requestRandomWords(f, m, args[0].([32]byte), args[1].(uint64), args[2].(uint16), args[3].(uint32), args[4].(uint32))
	case "fulfillRandomWords":
		return c.fulfillRandomWords(f, m, args[0].(*big.Int), args[1].(common.Address))
	}
	return nil, devnet.RevertWithReason(devnet.ErrNoMethod.Error())
}

func (c *coordinator) createSubscription(f *devnet.Frame, m *abi.Method) ([]byte, error) {
	f.UseGas(45000)
	subID := c.currentSubID + 1
	owner := f.Sender()
	f.Write(func() {
		c.currentSubID = subID
		c.subscriptions[subID] = &subscription{
			owner:   owner,
			balance: new(big.Int),
		}
	})
	if err := f.EmitEvent(coordinatorABI.Events["SubscriptionCreated"], subID, owner); err != nil {
		return nil, err
	}
	return devnet.Return(m, subID)
}

func (c *coordinator) fundSubscription(f *devnet.Frame, m *abi.Method, subID uint64, amount *big.Int) ([]byte, error) {
	sub, ok := c.subscriptions[subID]
	if !ok {
		return nil, devnet.Revert(transaction.ErrorSelector(vrf.InvalidSubscriptionSig))
	}
	f.UseGas(5000)
	oldBalance := new(big.Int).Set(sub.balance)
	newBalance := new(big.Int).Add(oldBalance, amount)
	f.Write(func() { sub.balance = newBalance })
	if err := f.EmitEvent(coordinatorABI.Events["SubscriptionFunded"], subID, oldBalance, newBalance); err != nil {
		return nil, err
	}
	return devnet.Return(m)
}

// ownedSubscription returns the subscription if the frame sender owns it.
func (c *coordinator) ownedSubscription(f *devnet.Frame, subID uint64) (*subscription, error) {
	sub, ok := c.subscriptions[subID]
	if !ok {
		return nil, devnet.Revert(transaction.ErrorSelector(vrf.InvalidSubscriptionSig))
	}
	if sub.owner != f.Sender() {
		return nil, revertWithArguments(vrf.MustBeSubOwnerSig, addressArguments, sub.owner)
	}
	return sub, nil
}

func (c *coordinator) addConsumer(f *devnet.Frame, m *abi.Method, subID uint64, consumer common.Address) ([]byte, error) {
	sub, err := c.ownedSubscription(f, subID)
	if err != nil {
		return nil, err
	}
	if c.consumerIsAdded(subID, consumer) {
		return devnet.Return(m)
	}
	if len(sub.consumers) >= maxConsumers {
		return nil, devnet.Revert(transaction.ErrorSelector(vrf.TooManyConsumersSig))
	}
	f.UseGas(22100)
	f.Write(func() { sub.consumers = append(sub.consumers, consumer) })
	if err := f.EmitEvent(coordinatorABI.Events["ConsumerAdded"], subID, consumer); err != nil {
		return nil, err
	}
	return devnet.Return(m)
}

func (c *coordinator) removeConsumer(f *devnet.Frame, m *abi.Method, subID uint64, consumer common.Address) ([]byte, error) {
	sub, err := c.ownedSubscription(f, subID)
	if err != nil {
		return nil, err
	}
	if !c.consumerIsAdded(subID, consumer) {
		return nil, devnet.Revert(transaction.ErrorSelector(vrf.InvalidConsumerSig))
	}
	f.UseGas(5000)
	f.Write(func() {
		consumers := sub.consumers[:0]
		for _, a := range sub.consumers {
			if a != consumer {
				consumers = append(consumers, a)
			}
		}
		sub.consumers = consumers
	})
	if err := f.EmitEvent(coordinatorABI.Events["ConsumerRemoved"], subID, consumer); err != nil {
		return nil, err
	}
	return devnet.Return(m)
}

func (c *coordinator) consumerIsAdded(subID uint64, consumer common.Address) bool {
	sub, ok := c.subscriptions[subID]
	if !ok {
		return false
	}
	for _, a := range sub.consumers {
		if a == consumer {
			return true
		}
	}
	return false
}

func (c *coordinator) cancelSubscription(f *devnet.Frame, m *abi.Method, subID uint64, to common.Address) ([]byte, error) {
	sub, err := c.ownedSubscription(f, subID)
	if err != nil {
		return nil, err
	}
	f.UseGas(5000)
	balance := new(big.Int).Set(sub.balance)
	f.Write(func() { delete(c.subscriptions, subID) })
	if err := f.EmitEvent(coordinatorABI.Events["SubscriptionCanceled"], subID, to, balance); err != nil {
		return nil, err
	}
	return devnet.Return(m)
}

func (c *coordinator) getSubscription(m *abi.Method, subID uint64) ([]byte, error) {
	sub, ok := c.subscriptions[subID]
	if !ok {
		return nil, devnet.Revert(transaction.ErrorSelector(vrf.InvalidSubscriptionSig))
	}
	consumers := make([]common.Address, len(sub.consumers))
	copy(consumers, sub.consumers)
	return devnet.Return(m, sub.balance, sub.reqCount, sub.owner, consumers)
}

func (c *coordinator) requestRandomWords(f *devnet.Frame, m *abi.Method, keyHash [32]byte, subID uint64, confirmations uint16, callbackGasLimit, numWords uint32) ([]byte, error) {
	sub, ok := c.subscriptions[subID]
	if !ok {
		return nil, devnet.Revert(transaction.ErrorSelector(vrf.InvalidSubscriptionSig))
	}
	consumer := f.Sender()
	if !c.consumerIsAdded(subID, consumer) {
		return nil, devnet.Revert(transaction.ErrorSelector(vrf.InvalidConsumerSig))
	}
	if numWords > vrf.MaxNumWords {
		return nil, revertWithArguments(vrf.NumWordsTooBigSig, uint32Arguments, numWords, uint32(vrf.MaxNumWords))
	}

	f.UseGas(45000)
	requestID := c.nextRequestID
	preSeed := c.nextPreSeed
	f.Write(func() {
		c.nextRequestID = requestID + 1
		c.nextPreSeed = preSeed + 1
		sub.reqCount++
		c.requests[requestID] = request{
			subID:            subID,
			consumer:         consumer,
			callbackGasLimit: callbackGasLimit,
			numWords:         numWords,
		}
	})

	id := new(big.Int).SetUint64(requestID)
	if err := f.EmitEvent(coordinatorABI.Events["RandomWordsRequested"],
		keyHash, id, new(big.Int).SetUint64(preSeed), subID, confirmations, callbackGasLimit, numWords, consumer,
	); err != nil {
		return nil, err
	}
	return devnet.Return(m, id)
}

func (c *coordinator) fulfillRandomWords(f *devnet.Frame, m *abi.Method, requestID *big.Int, consumer common.Address) ([]byte, error) {
	var (
		req request
		ok  bool
	)
	if requestID.IsUint64() {
		req, ok = c.requests[requestID.Uint64()]
	}
	// a request is outstanding only for the consumer that made it
	if !ok || req.consumer != consumer {
		return nil, devnet.RevertWithReason(vrf.NonexistentRequestReason)
	}
	sub, ok := c.subscriptions[req.subID]
	if !ok {
		return nil, devnet.Revert(transaction.ErrorSelector(vrf.InvalidSubscriptionSig))
	}

	callData, err := consumerABI.Pack("rawFulfillRandomWords", requestID, vrf.RandomWords(requestID, req.numWords))
	if err != nil {
		return nil, err
	}

	start := f.GasUsed()
	_, callbackErr := f.Call(consumer, callData, nil, uint64(req.callbackGasLimit))
	callbackGas := f.GasUsed() - start

	payment := new(big.Int).Mul(new(big.Int).SetUint64(callbackGas), c.gasPriceLink)
	payment.Add(payment, c.baseFee)
	if sub.balance.Cmp(payment) < 0 {
		return nil, devnet.Revert(transaction.ErrorSelector(vrf.InsufficientBalanceSig))
	}

	f.UseGas(10000)
	id := requestID.Uint64()
	f.Write(func() {
		sub.balance = new(big.Int).Sub(sub.balance, payment)
		delete(c.requests, id)
	})

	if err := f.EmitEvent(coordinatorABI.Events["RandomWordsFulfilled"], requestID, requestID, payment, callbackErr == nil); err != nil {
		return nil, err
	}
	return devnet.Return(m)
}

// revertWithArguments reverts with a custom error carrying arguments.
func revertWithArguments(signature string, arguments abi.Arguments, values ...interface{}) error {
	data, err := arguments.Pack(values...)
	if err != nil {
		return err
	}
	return devnet.Revert(append(transaction.ErrorSelector(signature), data...))
}
