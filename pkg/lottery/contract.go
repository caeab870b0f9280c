// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lottery

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/raffle/pkg/devnet"
	"github.com/ethersphere/raffle/pkg/transaction"
	"github.com/ethersphere/raffle/pkg/vrf"
)

// panicIndexOutOfBounds is the Panic(uint256) code of out of bounds array
// access.
const panicIndexOutOfBounds = 0x32

var (
	addressPairArguments = abi.Arguments{{Type: mustType("address")}, {Type: mustType("address")}}
	uint256Arguments     = abi.Arguments{{Type: mustType("uint256")}}
	upkeepArguments      = abi.Arguments{{Type: mustType("uint256")}, {Type: mustType("uint256")}, {Type: mustType("uint256")}}
)

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

// contract is the Lottery running on a development chain.
type contract struct {
	coordinator      common.Address
	subscriptionID   uint64
	gasLane          [32]byte
	interval         *big.Int
	entranceFee      *big.Int
	callbackGasLimit uint32

	state         State
	players       []common.Address
	lastTimeStamp uint64
	recentWinner  common.Address
	// outstanding randomness request, nil while the round is open
	requestID *big.Int
}

// Register makes the contract deployable on the chain and returns its code.
func Register(chain *devnet.Chain) []byte {
	return chain.Register(Name, New)
}

// New is the constructor of the contract. It takes the ABI encoded
// coordinator address, subscription id, gas lane, interval, entrance fee and
// callback gas limit.
func New(f *devnet.Frame, args []byte) (devnet.Contract, error) {
	values, err := ABI.Constructor.Inputs.Unpack(args)
	if err != nil {
		return nil, devnet.RevertWithReason(fmt.Sprintf("invalid constructor arguments: %v", err))
	}

	c := &contract{
		state:         StateOpen,
		lastTimeStamp: f.Timestamp(),
	}
	var ok bool
	if c.coordinator, ok = values[0].(common.Address); !ok {
		return nil, devnet.RevertWithReason("invalid coordinator")
	}
	if c.subscriptionID, ok = values[1].(uint64); !ok {
		return nil, devnet.RevertWithReason("invalid subscription id")
	}
	if c.gasLane, ok = values[2].([32]byte); !ok {
		return nil, devnet.RevertWithReason("invalid gas lane")
	}
	if c.interval, ok = values[3].(*big.Int); !ok {
		return nil, devnet.RevertWithReason("invalid interval")
	}
	if c.entranceFee, ok = values[4].(*big.Int); !ok {
		return nil, devnet.RevertWithReason("invalid entrance fee")
	}
	if c.callbackGasLimit, ok = values[5].(uint32); !ok {
		return nil, devnet.RevertWithReason("invalid callback gas limit")
	}

	f.UseGas(150000)
	return c, nil
}

func (c *contract) Run(f *devnet.Frame, input []byte) ([]byte, error) {
	m, args, err := devnet.Method(&ABI, input)
	if err != nil {
		return nil, err
	}
	if m.Name != "enterLottery" && f.Value().Sign() > 0 {
		return nil, devnet.RevertWithReason("non payable")
	}

	switch m.Name {
	case "enterLottery":
		return c.enter(f, m)
	case "checkUpkeep":
		return devnet.Return(m, c.upkeepNeeded(f), []byte{})
	case "performUpkeep":
		return c.performUpkeep(f, m)
	case "rawFulfillRandomWords":
		return c.fulfill(f, m, args[0].(*big.Int), args[1].([]*big.Int))
	case "getEntranceFee":
		return devnet.Return(m, c.entranceFee)
	case "getPlayer":
		index := args[0].(*big.Int)
		if !index.IsUint64() || index.Uint64() >= uint64(len(c.players)) {
			return nil, panicRevert(panicIndexOutOfBounds)
		}
		return devnet.Return(m, c.players[index.Uint64()])
	case "getRecentWinner":
		return devnet.Return(m, c.recentWinner)
	case "getLotteryState":
		return devnet.Return(m, uint8(c.state))
	case "getNumWords":
		return devnet.Return(m, big.NewInt(NumWords))
	case "getNumberOfPlayers":
		return devnet.Return(m, big.NewInt(int64(len(c.players))))
	case "getLatestTimeStamp":
		return devnet.Return(m, new(big.Int).SetUint64(c.lastTimeStamp))
	case "getRequestConfirmations":
		return devnet.Return(m, big.NewInt(RequestConfirmations))
	case "getInterval":
		return devnet.Return(m, c.interval)
	}
	return nil, devnet.RevertWithReason(devnet.ErrNoMethod.Error())
}

func (c *contract) enter(f *devnet.Frame, m *abi.Method) ([]byte, error) {
	if f.Value().Cmp(c.entranceFee) < 0 {
		return nil, devnet.Revert(transaction.ErrorSelector(NotEnoughETHEnteredSig))
	}
	if c.state != StateOpen {
		return nil, devnet.Revert(transaction.ErrorSelector(NotOpenSig))
	}

	f.UseGas(45000)
	player := f.Sender()
	f.Write(func() { c.players = append(c.players, player) })
	if err := f.EmitEvent(ABI.Events["LotteryEnter"], player); err != nil {
		return nil, err
	}
	return devnet.Return(m)
}

// upkeepNeeded holds when the round is open, the interval has passed and
// there are players and a balance.
func (c *contract) upkeepNeeded(f *devnet.Frame) bool {
	isOpen := c.state == StateOpen
	var elapsed uint64
	if now := f.Timestamp(); now > c.lastTimeStamp {
		elapsed = now - c.lastTimeStamp
	}
	timePassed := new(big.Int).SetUint64(elapsed).Cmp(c.interval) >= 0
	hasPlayers := len(c.players) > 0
	hasBalance := f.Balance(f.Self()).Sign() > 0
	return isOpen && timePassed && hasPlayers && hasBalance
}

func (c *contract) performUpkeep(f *devnet.Frame, m *abi.Method) ([]byte, error) {
	if !c.upkeepNeeded(f) {
		return nil, revertWithArguments(UpkeepNotNeededSig, upkeepArguments,
			f.Balance(f.Self()), big.NewInt(int64(len(c.players))), big.NewInt(int64(c.state)))
	}

	callData, err := vrf.CoordinatorABI.Pack("requestRandomWords", c.gasLane, c.subscriptionID, uint16(RequestConfirmations), c.callbackGasLimit, uint32(NumWords))
	if err != nil {
		return nil, err
	}
	out, err := f.Call(c.coordinator, callData, nil, 0)
	if err != nil {
		return nil, err
	}
	results, err := vrf.CoordinatorABI.Unpack("requestRandomWords", out)
	if err != nil || len(results) != 1 {
		return nil, devnet.RevertWithReason("invalid coordinator response")
	}
	requestID, ok := results[0].(*big.Int)
	if !ok {
		return nil, devnet.RevertWithReason("invalid coordinator response")
	}

	f.UseGas(25000)
	f.Write(func() {
		c.state = StateCalculating
		c.requestID = requestID
	})
	if err := f.EmitEvent(ABI.Events["RequestedLotteryWinner"], requestID); err != nil {
		return nil, err
	}
	return devnet.Return(m)
}

func (c *contract) fulfill(f *devnet.Frame, m *abi.Method, requestID *big.Int, words []*big.Int) ([]byte, error) {
	if f.Sender() != c.coordinator {
		return nil, revertWithArguments(OnlyCoordinatorCanFulfillSig, addressPairArguments, f.Sender(), c.coordinator)
	}
	if c.requestID == nil || c.requestID.Cmp(requestID) != 0 {
		return nil, devnet.RevertWithReason(NonexistentRequestReason)
	}
	if len(words) == 0 || len(c.players) == 0 {
		return nil, devnet.RevertWithReason("no random words")
	}

	index := new(big.Int).Mod(words[0], big.NewInt(int64(len(c.players))))
	winner := c.players[index.Uint64()]

	f.UseGas(30000)
	if err := f.Transfer(winner, f.Balance(f.Self())); err != nil {
		return nil, devnet.Revert(transaction.ErrorSelector(TransferFailedSig))
	}

	now := f.Timestamp()
	f.Write(func() {
		c.players = nil
		c.state = StateOpen
		c.lastTimeStamp = now
		c.recentWinner = winner
		c.requestID = nil
	})
	if err := f.EmitEvent(ABI.Events["PickedWinner"], winner); err != nil {
		return nil, err
	}
	return devnet.Return(m)
}

func panicRevert(code int64) error {
	return revertWithArguments(PanicSig, uint256Arguments, big.NewInt(code))
}

// revertWithArguments reverts with a custom error carrying arguments.
func revertWithArguments(signature string, arguments abi.Arguments, values ...interface{}) error {
	data, err := arguments.Pack(values...)
	if err != nil {
		return err
	}
	return devnet.Revert(append(transaction.ErrorSelector(signature), data...))
}
