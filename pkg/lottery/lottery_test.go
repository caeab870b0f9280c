// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lottery_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethersphere/raffle/pkg/deploy"
	"github.com/ethersphere/raffle/pkg/devnet"
	"github.com/ethersphere/raffle/pkg/logging"
	"github.com/ethersphere/raffle/pkg/lottery"
	"github.com/ethersphere/raffle/pkg/lottery/lotterycontract"
	"github.com/ethersphere/raffle/pkg/transaction"
	"github.com/ethersphere/raffle/pkg/vrf"
)

const waitTimeout = 10 * time.Second

type tester struct {
	t           *testing.T
	ctx         context.Context
	f           *deploy.Fixture
	deployer    *lotterycontract.Contract
	coordinator vrf.Coordinator
	fee         *big.Int
	interval    *big.Int
}

// newTester deploys a fresh mock coordinator and lottery for every test.
func newTester(t *testing.T) *tester {
	t.Helper()

	ctx := context.Background()
	f, err := deploy.NewFixture(ctx, logging.Noop(), deploy.TagAll)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := f.Close(); err != nil {
			t.Error(err)
		}
	})

	deployer, err := f.Lottery(0)
	if err != nil {
		t.Fatal(err)
	}
	coordinator, err := f.Coordinator()
	if err != nil {
		t.Fatal(err)
	}
	fee, err := deployer.EntranceFee(ctx)
	if err != nil {
		t.Fatal(err)
	}
	interval, err := deployer.Interval(ctx)
	if err != nil {
		t.Fatal(err)
	}

	return &tester{
		t:           t,
		ctx:         ctx,
		f:           f,
		deployer:    deployer,
		coordinator: coordinator,
		fee:         fee,
		interval:    interval,
	}
}

func (tt *tester) player(i int) *lotterycontract.Contract {
	tt.t.Helper()
	c, err := tt.f.Lottery(i)
	if err != nil {
		tt.t.Fatal(err)
	}
	return c
}

func (tt *tester) address(i int) common.Address {
	return tt.f.Chain.Accounts()[i].Address
}

func (tt *tester) enter(i int) *types.Receipt {
	tt.t.Helper()
	receipt, err := tt.player(i).EnterLottery(tt.ctx, tt.fee)
	if err != nil {
		tt.t.Fatal(err)
	}
	return receipt
}

// passInterval moves the chain past the lottery interval and mines a block.
func (tt *tester) passInterval() {
	tt.f.Chain.IncreaseTime(tt.interval.Uint64() + 1)
	tt.f.Chain.Mine(1)
}

func (tt *tester) upkeepNeeded() bool {
	tt.t.Helper()
	needed, _, err := tt.deployer.CheckUpkeep(tt.ctx, []byte{})
	if err != nil {
		tt.t.Fatal(err)
	}
	return needed
}

func (tt *tester) performUpkeep() *big.Int {
	tt.t.Helper()
	requestID, _, err := tt.deployer.PerformUpkeep(tt.ctx, []byte{})
	if err != nil {
		tt.t.Fatal(err)
	}
	return requestID
}

func (tt *tester) state() lottery.State {
	tt.t.Helper()
	state, err := tt.deployer.LotteryState(tt.ctx)
	if err != nil {
		tt.t.Fatal(err)
	}
	return state
}

func (tt *tester) balance(a common.Address) *big.Int {
	tt.t.Helper()
	balance, err := tt.f.Chain.BalanceAt(tt.ctx, a, nil)
	if err != nil {
		tt.t.Fatal(err)
	}
	return balance
}

func gasCost(receipt *types.Receipt) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(receipt.GasUsed), devnet.DefaultGasPrice)
}

func TestConstructor(t *testing.T) {
	tt := newTester(t)
	cfg := tt.f.Network.Config

	if state := tt.state(); state != lottery.StateOpen {
		t.Fatalf("got state %s, want %s", state, lottery.StateOpen)
	}
	if tt.interval.Uint64() != cfg.Interval {
		t.Fatalf("got interval %s, want %d", tt.interval, cfg.Interval)
	}
	if tt.fee.Cmp(cfg.EntranceFee) != 0 {
		t.Fatalf("got entrance fee %s, want %s", tt.fee, cfg.EntranceFee)
	}

	numWords, err := tt.deployer.NumWords(tt.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if numWords.Uint64() != lottery.NumWords {
		t.Fatalf("got num words %s, want %d", numWords, lottery.NumWords)
	}
	confirmations, err := tt.deployer.RequestConfirmations(tt.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if confirmations.Uint64() != lottery.RequestConfirmations {
		t.Fatalf("got request confirmations %s, want %d", confirmations, lottery.RequestConfirmations)
	}

	players, err := tt.deployer.NumberOfPlayers(tt.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if players.Sign() != 0 {
		t.Fatalf("got %s players, want 0", players)
	}
	winner, err := tt.deployer.RecentWinner(tt.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if winner != (common.Address{}) {
		t.Fatalf("got recent winner %s, want none", winner)
	}

	// the round starts with the deployment block
	d, err := tt.f.Deployments.Get(lottery.Name)
	if err != nil {
		t.Fatal(err)
	}
	header, err := tt.f.Chain.HeaderByNumber(tt.ctx, new(big.Int).SetUint64(d.BlockNumber))
	if err != nil {
		t.Fatal(err)
	}
	timestamp, err := tt.deployer.LatestTimeStamp(tt.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if timestamp.Uint64() != header.Time {
		t.Fatalf("got latest timestamp %s, want %d", timestamp, header.Time)
	}

	if _, err := tt.deployer.Player(tt.ctx, big.NewInt(0)); !errors.Is(err, lottery.ErrPlayerIndexOutOfBounds) {
		t.Fatalf("got error %v, want %v", err, lottery.ErrPlayerIndexOutOfBounds)
	}
}

func TestEnterLottery(t *testing.T) {
	t.Run("not enough payment", func(t *testing.T) {
		tt := newTester(t)

		for _, value := range []*big.Int{
			big.NewInt(0),
			big.NewInt(1),
			new(big.Int).Sub(tt.fee, big.NewInt(1)),
		} {
			_, err := tt.player(1).EnterLottery(tt.ctx, value)
			if !errors.Is(err, lottery.ErrNotEnoughETHEntered) {
				t.Fatalf("value %s: got error %v, want %v", value, err, lottery.ErrNotEnoughETHEntered)
			}
		}
	})

	t.Run("records player", func(t *testing.T) {
		tt := newTester(t)

		for i := 1; i <= 3; i++ {
			tt.enter(i)

			players, err := tt.deployer.NumberOfPlayers(tt.ctx)
			if err != nil {
				t.Fatal(err)
			}
			if players.Int64() != int64(i) {
				t.Fatalf("got %s players, want %d", players, i)
			}
			player, err := tt.deployer.Player(tt.ctx, big.NewInt(int64(i-1)))
			if err != nil {
				t.Fatal(err)
			}
			if player != tt.address(i) {
				t.Fatalf("got player %s, want %s", player, tt.address(i))
			}
		}
	})

	t.Run("overpaying", func(t *testing.T) {
		tt := newTester(t)

		value := new(big.Int).Mul(tt.fee, big.NewInt(2))
		if _, err := tt.player(1).EnterLottery(tt.ctx, value); err != nil {
			t.Fatal(err)
		}
		if balance := tt.balance(tt.deployer.Address()); balance.Cmp(value) != 0 {
			t.Fatalf("got lottery balance %s, want %s", balance, value)
		}
	})

	t.Run("emits event", func(t *testing.T) {
		tt := newTester(t)

		receipt := tt.enter(1)

		var e lottery.LotteryEnterEvent
		if err := transaction.FindSingleEvent(&lottery.ABI, receipt, tt.deployer.Address(), lottery.ABI.Events["LotteryEnter"], &e); err != nil {
			t.Fatal(err)
		}
		if e.Player != tt.address(1) {
			t.Fatalf("got player %s, want %s", e.Player, tt.address(1))
		}
	})

	t.Run("not open while calculating", func(t *testing.T) {
		tt := newTester(t)

		tt.enter(1)
		tt.passInterval()
		// acting as the upkeep automation
		tt.performUpkeep()

		_, err := tt.player(2).EnterLottery(tt.ctx, tt.fee)
		if !errors.Is(err, lottery.ErrNotOpen) {
			t.Fatalf("got error %v, want %v", err, lottery.ErrNotOpen)
		}
	})
}

func TestCheckUpkeep(t *testing.T) {
	t.Run("no players", func(t *testing.T) {
		tt := newTester(t)

		tt.passInterval()
		if tt.upkeepNeeded() {
			t.Fatal("upkeep needed without players")
		}
	})

	t.Run("no balance", func(t *testing.T) {
		tt := newTester(t)

		tt.enter(1)
		tt.passInterval()
		if !tt.upkeepNeeded() {
			t.Fatal("upkeep not needed")
		}

		tt.f.Chain.SetBalance(tt.deployer.Address(), big.NewInt(0))
		if tt.upkeepNeeded() {
			t.Fatal("upkeep needed without balance")
		}

		tt.f.Chain.SetBalance(tt.deployer.Address(), tt.fee)
		if !tt.upkeepNeeded() {
			t.Fatal("upkeep not needed after balance restored")
		}
	})

	t.Run("not open", func(t *testing.T) {
		tt := newTester(t)

		tt.enter(1)
		tt.passInterval()
		tt.performUpkeep()

		if state := tt.state(); state != lottery.StateCalculating {
			t.Fatalf("got state %s, want %s", state, lottery.StateCalculating)
		}
		if tt.upkeepNeeded() {
			t.Fatal("upkeep needed while calculating")
		}
	})

	t.Run("not enough time passed", func(t *testing.T) {
		tt := newTester(t)

		tt.enter(1)
		tt.f.Chain.IncreaseTime(tt.interval.Uint64() / 2)
		tt.f.Chain.Mine(1)
		if tt.upkeepNeeded() {
			t.Fatal("upkeep needed before the interval passed")
		}
	})

	t.Run("all conditions hold", func(t *testing.T) {
		tt := newTester(t)

		tt.enter(1)
		tt.passInterval()
		needed, performData, err := tt.deployer.CheckUpkeep(tt.ctx, []byte{})
		if err != nil {
			t.Fatal(err)
		}
		if !needed {
			t.Fatal("upkeep not needed")
		}
		if len(performData) != 0 {
			t.Fatalf("got perform data %x, want none", performData)
		}
	})
}

func TestPerformUpkeep(t *testing.T) {
	t.Run("not needed", func(t *testing.T) {
		tt := newTester(t)

		_, _, err := tt.deployer.PerformUpkeep(tt.ctx, []byte{})
		if !errors.Is(err, lottery.ErrUpkeepNotNeeded) {
			t.Fatalf("got error %v, want %v", err, lottery.ErrUpkeepNotNeeded)
		}
	})

	t.Run("requests a winner", func(t *testing.T) {
		tt := newTester(t)

		tt.enter(1)
		tt.passInterval()

		requestID, receipt, err := tt.deployer.PerformUpkeep(tt.ctx, []byte{})
		if err != nil {
			t.Fatal(err)
		}
		if requestID.Sign() <= 0 {
			t.Fatalf("got request id %s, want positive", requestID)
		}
		if state := tt.state(); state != lottery.StateCalculating {
			t.Fatalf("got state %s, want %s", state, lottery.StateCalculating)
		}

		// the coordinator saw the request from the lottery
		var requested vrf.RandomWordsRequestedEvent
		if err := transaction.FindSingleEvent(&vrf.CoordinatorABI, receipt, tt.coordinator.Address(), vrf.CoordinatorABI.Events["RandomWordsRequested"], &requested); err != nil {
			t.Fatal(err)
		}
		if requested.RequestId.Cmp(requestID) != 0 {
			t.Fatalf("got coordinator request id %s, want %s", requested.RequestId, requestID)
		}
		if requested.NumWords != lottery.NumWords {
			t.Fatalf("got %d words requested, want %d", requested.NumWords, lottery.NumWords)
		}
		if requested.MinimumRequestConfirmations != lottery.RequestConfirmations {
			t.Fatalf("got %d confirmations, want %d", requested.MinimumRequestConfirmations, lottery.RequestConfirmations)
		}
		if requested.CallbackGasLimit != tt.f.Network.Config.CallbackGasLimit {
			t.Fatalf("got callback gas limit %d, want %d", requested.CallbackGasLimit, tt.f.Network.Config.CallbackGasLimit)
		}
	})

	t.Run("single outstanding request", func(t *testing.T) {
		tt := newTester(t)

		tt.enter(1)
		tt.passInterval()
		tt.performUpkeep()

		_, _, err := tt.deployer.PerformUpkeep(tt.ctx, []byte{})
		if !errors.Is(err, lottery.ErrUpkeepNotNeeded) {
			t.Fatalf("got error %v, want %v", err, lottery.ErrUpkeepNotNeeded)
		}
	})
}

func TestFulfillRandomWords(t *testing.T) {
	t.Run("only after perform upkeep", func(t *testing.T) {
		tt := newTester(t)

		tt.enter(1)
		tt.passInterval()

		for _, id := range []int64{0, 1} {
			_, err := tt.coordinator.FulfillRandomWords(tt.ctx, big.NewInt(id), tt.deployer.Address())
			if !errors.Is(err, vrf.ErrNonexistentRequest) {
				t.Fatalf("request %d: got error %v, want %v", id, err, vrf.ErrNonexistentRequest)
			}
		}
	})

	t.Run("only once", func(t *testing.T) {
		tt := newTester(t)

		tt.enter(1)
		tt.passInterval()
		requestID := tt.performUpkeep()

		e, err := tt.coordinator.FulfillRandomWords(tt.ctx, requestID, tt.deployer.Address())
		if err != nil {
			t.Fatal(err)
		}
		if !e.Success {
			t.Fatal("fulfillment callback failed")
		}

		_, err = tt.coordinator.FulfillRandomWords(tt.ctx, requestID, tt.deployer.Address())
		if !errors.Is(err, vrf.ErrNonexistentRequest) {
			t.Fatalf("got error %v, want %v", err, vrf.ErrNonexistentRequest)
		}
	})

	t.Run("only the coordinator", func(t *testing.T) {
		tt := newTester(t)

		tt.enter(1)
		tt.passInterval()
		requestID := tt.performUpkeep()

		_, err := tt.player(1).RawFulfillRandomWords(tt.ctx, requestID, []*big.Int{big.NewInt(7)})
		if !errors.Is(err, lottery.ErrOnlyCoordinatorCanFulfill) {
			t.Fatalf("got error %v, want %v", err, lottery.ErrOnlyCoordinatorCanFulfill)
		}
	})

	t.Run("only the outstanding request", func(t *testing.T) {
		tt := newTester(t)

		tt.enter(1)
		tt.passInterval()
		requestID := tt.performUpkeep()

		// a request the lottery did not make
		if err := tt.coordinator.AddConsumer(tt.ctx, 1, tt.address(0)); err != nil {
			t.Fatal(err)
		}
		foreignID, err := tt.coordinator.RequestRandomWords(tt.ctx, tt.f.Network.Config.GasLane, 1, lottery.RequestConfirmations, tt.f.Network.Config.CallbackGasLimit, lottery.NumWords)
		if err != nil {
			t.Fatal(err)
		}

		_, err = tt.coordinator.FulfillRandomWords(tt.ctx, foreignID, tt.deployer.Address())
		if !errors.Is(err, vrf.ErrNonexistentRequest) {
			t.Fatalf("got error %v, want %v", err, vrf.ErrNonexistentRequest)
		}

		// the lottery request cannot be fulfilled to another address
		_, err = tt.coordinator.FulfillRandomWords(tt.ctx, requestID, tt.address(5))
		if !errors.Is(err, vrf.ErrNonexistentRequest) {
			t.Fatalf("got error %v, want %v", err, vrf.ErrNonexistentRequest)
		}
		if state := tt.state(); state != lottery.StateCalculating {
			t.Fatalf("got state %s, want %s", state, lottery.StateCalculating)
		}

		e, err := tt.coordinator.FulfillRandomWords(tt.ctx, requestID, tt.deployer.Address())
		if err != nil {
			t.Fatal(err)
		}
		if !e.Success {
			t.Fatal("fulfillment callback failed")
		}
		if state := tt.state(); state != lottery.StateOpen {
			t.Fatalf("got state %s, want %s", state, lottery.StateOpen)
		}
	})

	t.Run("single entrant", func(t *testing.T) {
		tt := newTester(t)

		startingBalance := tt.balance(tt.address(1))
		entry := tt.enter(1)
		tt.passInterval()

		startingTimeStamp, err := tt.deployer.LatestTimeStamp(tt.ctx)
		if err != nil {
			t.Fatal(err)
		}

		awaiter, err := lottery.Once(tt.ctx, tt.deployer)
		if err != nil {
			t.Fatal(err)
		}
		defer awaiter.Cancel()

		requestID := tt.performUpkeep()
		if _, err := tt.coordinator.FulfillRandomWords(tt.ctx, requestID, tt.deployer.Address()); err != nil {
			t.Fatal(err)
		}

		e, err := awaiter.Wait(tt.ctx, waitTimeout)
		if err != nil {
			t.Fatal(err)
		}
		if e.Winner != tt.address(1) {
			t.Fatalf("got winner %s, want %s", e.Winner, tt.address(1))
		}

		tt.assertReset(startingTimeStamp, tt.address(1))

		// the entrant got the fee back and paid only gas
		want := new(big.Int).Sub(startingBalance, gasCost(entry))
		if got := tt.balance(tt.address(1)); got.Cmp(want) != 0 {
			t.Fatalf("got winner balance %s, want %s", got, want)
		}
	})

	t.Run("four entrants", func(t *testing.T) {
		tt := newTester(t)

		const entrants = 4
		startingBalances := make([]*big.Int, entrants)
		for i := 0; i < entrants; i++ {
			account := i + 1
			entry := tt.enter(account)
			startingBalances[i] = tt.balance(tt.address(account))
			initial := new(big.Int).Add(startingBalances[i], new(big.Int).Add(tt.fee, gasCost(entry)))
			if initial.Cmp(devnet.DefaultBalance) != 0 {
				t.Fatalf("account %d paid more than fee and gas", account)
			}
		}
		tt.passInterval()

		startingTimeStamp, err := tt.deployer.LatestTimeStamp(tt.ctx)
		if err != nil {
			t.Fatal(err)
		}

		awaiter, err := lottery.Once(tt.ctx, tt.deployer)
		if err != nil {
			t.Fatal(err)
		}
		defer awaiter.Cancel()

		requestID := tt.performUpkeep()
		if _, err := tt.coordinator.FulfillRandomWords(tt.ctx, requestID, tt.deployer.Address()); err != nil {
			t.Fatal(err)
		}

		e, err := awaiter.Wait(tt.ctx, waitTimeout)
		if err != nil {
			t.Fatal(err)
		}

		winnerIndex := new(big.Int).Mod(vrf.RandomWords(requestID, 1)[0], big.NewInt(entrants)).Int64()
		winner := tt.address(int(winnerIndex) + 1)
		if e.Winner != winner {
			t.Fatalf("got winner %s, want %s", e.Winner, winner)
		}

		tt.assertReset(startingTimeStamp, winner)

		pool := new(big.Int).Mul(tt.fee, big.NewInt(entrants))
		for i := 0; i < entrants; i++ {
			want := new(big.Int).Set(startingBalances[i])
			if int64(i) == winnerIndex {
				want.Add(want, pool)
			}
			if got := tt.balance(tt.address(i + 1)); got.Cmp(want) != 0 {
				t.Fatalf("account %d: got balance %s, want %s", i+1, got, want)
			}
		}
	})
}

// assertReset checks the state of the lottery after a round was resolved.
func (tt *tester) assertReset(startingTimeStamp *big.Int, winner common.Address) {
	tt.t.Helper()

	recentWinner, err := tt.deployer.RecentWinner(tt.ctx)
	if err != nil {
		tt.t.Fatal(err)
	}
	if recentWinner != winner {
		tt.t.Fatalf("got recent winner %s, want %s", recentWinner, winner)
	}
	if state := tt.state(); state != lottery.StateOpen {
		tt.t.Fatalf("got state %s, want %s", state, lottery.StateOpen)
	}
	players, err := tt.deployer.NumberOfPlayers(tt.ctx)
	if err != nil {
		tt.t.Fatal(err)
	}
	if players.Sign() != 0 {
		tt.t.Fatalf("got %s players, want 0", players)
	}
	endingTimeStamp, err := tt.deployer.LatestTimeStamp(tt.ctx)
	if err != nil {
		tt.t.Fatal(err)
	}
	if endingTimeStamp.Cmp(startingTimeStamp) <= 0 {
		tt.t.Fatalf("timestamp %s not after %s", endingTimeStamp, startingTimeStamp)
	}
	if balance := tt.balance(tt.deployer.Address()); balance.Sign() != 0 {
		tt.t.Fatalf("got lottery balance %s, want 0", balance)
	}
}

func TestAwaiter(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		tt := newTester(t)

		awaiter, err := lottery.Once(tt.ctx, tt.deployer)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := awaiter.Wait(tt.ctx, 50*time.Millisecond); !errors.Is(err, lottery.ErrWaitTimeout) {
			t.Fatalf("got error %v, want %v", err, lottery.ErrWaitTimeout)
		}
		if _, err := awaiter.Wait(tt.ctx, waitTimeout); !errors.Is(err, lottery.ErrAwaiterDone) {
			t.Fatalf("got error %v, want %v", err, lottery.ErrAwaiterDone)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		tt := newTester(t)

		awaiter, err := lottery.Once(tt.ctx, tt.deployer)
		if err != nil {
			t.Fatal(err)
		}
		awaiter.Cancel()
		awaiter.Cancel()
		if _, err := awaiter.Wait(tt.ctx, waitTimeout); !errors.Is(err, lottery.ErrAwaiterDone) {
			t.Fatalf("got error %v, want %v", err, lottery.ErrAwaiterDone)
		}
	})

	t.Run("context", func(t *testing.T) {
		tt := newTester(t)

		awaiter, err := lottery.Once(tt.ctx, tt.deployer)
		if err != nil {
			t.Fatal(err)
		}
		ctx, cancel := context.WithCancel(tt.ctx)
		cancel()
		if _, err := awaiter.Wait(ctx, waitTimeout); !errors.Is(err, context.Canceled) {
			t.Fatalf("got error %v, want %v", err, context.Canceled)
		}
	})
}
