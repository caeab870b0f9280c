// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lottery defines the Lottery contract: its ABI, states, errors and
// events, the interface of a deployed lottery and the contract itself for
// development chains.
//
// Players enter a round by paying at least the entrance fee. Once the
// interval has passed and the round has players and a balance, upkeep asks
// the VRF coordinator for a random word and closes the round. The
// coordinator's callback picks the winner, pays out the whole balance and
// opens the next round.
package lottery

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethersphere/raffle/pkg/transaction"
)

// Name is the deployment name of the contract.
const Name = "Lottery"

const (
	// RequestConfirmations is the number of blocks the coordinator waits
	// before answering a request.
	RequestConfirmations = 3
	// NumWords is the number of random words requested per round.
	NumWords = 1
)

var ABI = transaction.ParseABIUnchecked(ABIJSON)

// State is the state of the current round.
type State uint8

const (
	StateOpen State = iota
	StateCalculating
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateCalculating:
		return "CALCULATING"
	default:
		return "UNKNOWN"
	}
}

var (
	ErrNotEnoughETHEntered       = errors.New("Lottery__NotEnoughETHEntered")
	ErrNotOpen                   = errors.New("Lottery__NotOpen")
	ErrUpkeepNotNeeded           = errors.New("Lottery__UpkeepNotNeeded")
	ErrTransferFailed            = errors.New("Lottery__TransferFailed")
	ErrOnlyCoordinatorCanFulfill = errors.New("only coordinator can fulfill")
	ErrNonexistentRequest        = errors.New("nonexistent request")
	ErrPlayerIndexOutOfBounds    = errors.New("player index out of bounds")
)

// Custom error signatures of the contract.
const (
	NotEnoughETHEnteredSig       = "Lottery__NotEnoughETHEntered()"
	NotOpenSig                   = "Lottery__NotOpen()"
	UpkeepNotNeededSig           = "Lottery__UpkeepNotNeeded(uint256,uint256,uint256)"
	TransferFailedSig            = "Lottery__TransferFailed()"
	OnlyCoordinatorCanFulfillSig = "OnlyCoordinatorCanFulfill(address,address)"
	// PanicSig is the selector of compiler inserted checks, here out of
	// bounds array access.
	PanicSig = "Panic(uint256)"

	NonexistentRequestReason = "nonexistent request"
)

var revertErrors = transaction.NewRevertErrors().
	WithSelector(NotEnoughETHEnteredSig, ErrNotEnoughETHEntered).
	WithSelector(NotOpenSig, ErrNotOpen).
	WithSelector(UpkeepNotNeededSig, ErrUpkeepNotNeeded).
	WithSelector(TransferFailedSig, ErrTransferFailed).
	WithSelector(OnlyCoordinatorCanFulfillSig, ErrOnlyCoordinatorCanFulfill).
	WithSelector(PanicSig, ErrPlayerIndexOutOfBounds).
	WithReason(NonexistentRequestReason, ErrNonexistentRequest)

// ParseRevert maps a reverted lottery call to the matching error of this
// package. Other errors are returned unchanged.
func ParseRevert(err error) error {
	return revertErrors.Parse(err)
}

// LotteryEnterEvent is emitted when a player enters.
type LotteryEnterEvent struct {
	Player common.Address
}

// RequestedLotteryWinnerEvent is emitted when upkeep requests randomness.
type RequestedLotteryWinnerEvent struct {
	RequestId *big.Int
}

// PickedWinnerEvent is emitted when a round is resolved.
type PickedWinnerEvent struct {
	Winner common.Address
	// Raw is the log carrying the event.
	Raw types.Log
}

// Interface is a deployed lottery seen from one account.
type Interface interface {
	Address() common.Address
	// EnterLottery enters the sender with the value as payment.
	EnterLottery(ctx context.Context, value *big.Int) (*types.Receipt, error)
	CheckUpkeep(ctx context.Context, checkData []byte) (upkeepNeeded bool, performData []byte, err error)
	// PerformUpkeep closes the round and returns the randomness request id.
	PerformUpkeep(ctx context.Context, performData []byte) (requestID *big.Int, receipt *types.Receipt, err error)
	// RawFulfillRandomWords is the coordinator callback. Only the
	// coordinator may call it.
	RawFulfillRandomWords(ctx context.Context, requestID *big.Int, randomWords []*big.Int) (*types.Receipt, error)

	EntranceFee(ctx context.Context) (*big.Int, error)
	LatestTimeStamp(ctx context.Context) (*big.Int, error)
	LotteryState(ctx context.Context) (State, error)
	RecentWinner(ctx context.Context) (common.Address, error)
	Player(ctx context.Context, index *big.Int) (common.Address, error)
	NumberOfPlayers(ctx context.Context) (*big.Int, error)
	Interval(ctx context.Context) (*big.Int, error)
	NumWords(ctx context.Context) (*big.Int, error)
	RequestConfirmations(ctx context.Context) (*big.Int, error)

	// WatchPickedWinner delivers PickedWinner events mined after the call.
	WatchPickedWinner(ctx context.Context, sink chan<- *PickedWinnerEvent) (event.Subscription, error)
}
