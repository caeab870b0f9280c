// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vrf holds the VRF coordinator ABI, its errors and a client for the
// subscription and fulfillment functions of the coordinator.
package vrf

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethersphere/raffle/pkg/transaction"
)

// MockName is the deployment name of the mock coordinator.
const MockName = "VRFCoordinatorV2Mock"

// MaxNumWords is the largest number of words a single request may ask for.
const MaxNumWords = 500

var (
	// BaseFee is the flat fee in juels charged for every fulfillment by the
	// mock coordinator, 0.25 LINK.
	BaseFee = new(big.Int).Div(big.NewInt(1e18), big.NewInt(4))
	// GasPriceLink is the price in juels of a unit of callback gas.
	GasPriceLink = big.NewInt(1e9)
	// FundAmount is the amount a local subscription is funded with, 30 LINK.
	FundAmount = new(big.Int).Mul(big.NewInt(30), big.NewInt(1e18))
)

var (
	CoordinatorABI = transaction.ParseABIUnchecked(CoordinatorABIJSON)
	ConsumerABI    = transaction.ParseABIUnchecked(ConsumerABIJSON)
)

var (
	ErrInvalidSubscription = errors.New("invalid subscription")
	ErrInvalidConsumer     = errors.New("invalid consumer")
	ErrInsufficientBalance = errors.New("insufficient subscription balance")
	ErrMustBeSubOwner      = errors.New("must be subscription owner")
	ErrTooManyConsumers    = errors.New("too many consumers")
	ErrNumWordsTooBig      = errors.New("num words too big")
	ErrNonexistentRequest  = errors.New("nonexistent request")
)

// Custom error signatures of the coordinator.
const (
	InvalidSubscriptionSig = "InvalidSubscription()"
	InvalidConsumerSig     = "InvalidConsumer()"
	InsufficientBalanceSig = "InsufficientBalance()"
	MustBeSubOwnerSig      = "MustBeSubOwner(address)"
	TooManyConsumersSig    = "TooManyConsumers()"
	NumWordsTooBigSig      = "NumWordsTooBig(uint32,uint32)"

	// NonexistentRequestReason is the Error(string) reason of fulfilling an
	// unknown request.
	NonexistentRequestReason = "nonexistent request"
)

var revertErrors = transaction.NewRevertErrors().
	WithSelector(InvalidSubscriptionSig, ErrInvalidSubscription).
	WithSelector(InvalidConsumerSig, ErrInvalidConsumer).
	WithSelector(InsufficientBalanceSig, ErrInsufficientBalance).
	WithSelector(MustBeSubOwnerSig, ErrMustBeSubOwner).
	WithSelector(TooManyConsumersSig, ErrTooManyConsumers).
	WithSelector(NumWordsTooBigSig, ErrNumWordsTooBig).
	WithReason(NonexistentRequestReason, ErrNonexistentRequest)

// ParseRevert maps a reverted coordinator call to the matching error of this
// package. Other errors are returned unchanged.
func ParseRevert(err error) error {
	return revertErrors.Parse(err)
}

// Subscription is the state of a coordinator subscription.
type Subscription struct {
	Balance   *big.Int
	ReqCount  uint64
	Owner     common.Address
	Consumers []common.Address
}

// RandomWordsRequestedEvent is emitted for every randomness request.
type RandomWordsRequestedEvent struct {
	KeyHash                     [32]byte
	RequestId                   *big.Int
	PreSeed                     *big.Int
	SubId                       uint64
	MinimumRequestConfirmations uint16
	CallbackGasLimit            uint32
	NumWords                    uint32
	Sender                      common.Address
}

// RandomWordsFulfilledEvent is emitted for every fulfillment.
type RandomWordsFulfilledEvent struct {
	RequestId  *big.Int
	OutputSeed *big.Int
	Payment    *big.Int
	Success    bool
}

// RandomWords returns the words the mock coordinator derives for a request,
// keccak256(abi.encode(requestId, i)).
func RandomWords(requestID *big.Int, n uint32) []*big.Int {
	words := make([]*big.Int, n)
	for i := range words {
		words[i] = randomWord(requestID, uint64(i))
	}
	return words
}

func randomWord(requestID *big.Int, i uint64) *big.Int {
	id := math.U256Bytes(new(big.Int).Set(requestID))
	index := math.U256Bytes(new(big.Int).SetUint64(i))
	return new(big.Int).SetBytes(crypto.Keccak256(id, index))
}
