// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package devnet

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Contract is a contract implemented in Go. Run is invoked with the call
// input and returns the ABI encoded output or a revert.
type Contract interface {
	Run(f *Frame, input []byte) ([]byte, error)
}

// Constructor creates a contract from its ABI encoded constructor arguments.
type Constructor func(f *Frame, args []byte) (Contract, error)

// blockEnv is the block a transaction or call executes in.
type blockEnv struct {
	number    uint64
	timestamp uint64
}

// Frame is the execution context of a single call.
type Frame struct {
	state   *state
	env     blockEnv
	sender  common.Address
	self    common.Address
	value   *big.Int
	gasUsed uint64
}

func newFrame(st *state, env blockEnv, sender, self common.Address, value *big.Int) *Frame {
	if value == nil {
		value = new(big.Int)
	}
	return &Frame{
		state:  st,
		env:    env,
		sender: sender,
		self:   self,
		value:  value,
	}
}

// Sender is the immediate caller, msg.sender.
func (f *Frame) Sender() common.Address { return f.sender }

// Self is the address of the executing contract.
func (f *Frame) Self() common.Address { return f.self }

// Value is the wei sent with the call, msg.value.
func (f *Frame) Value() *big.Int { return new(big.Int).Set(f.value) }

// Timestamp is the block timestamp in seconds.
func (f *Frame) Timestamp() uint64 { return f.env.timestamp }

// BlockNumber is the number of the executing block.
func (f *Frame) BlockNumber() uint64 { return f.env.number }

// GasUsed returns the gas used by the frame so far.
func (f *Frame) GasUsed() uint64 { return f.gasUsed }

// UseGas charges gas to the frame.
func (f *Frame) UseGas(gas uint64) { f.gasUsed += gas }

// Balance returns the balance of an account as seen by the frame.
func (f *Frame) Balance(a common.Address) *big.Int {
	return f.state.balance(a)
}

// Write queues a storage mutation. Writes are applied in order when the
// outermost transaction commits and are dropped if any enclosing call
// reverts. Reads within the same transaction observe the state from before
// the transaction.
func (f *Frame) Write(w func()) {
	f.state.writes = append(f.state.writes, w)
}

// Emit appends a log of the executing contract.
func (f *Frame) Emit(topics []common.Hash, data []byte) {
	f.UseGas(375 + 375*uint64(len(topics)) + 8*uint64(len(data)))
	f.state.logs = append(f.state.logs, &types.Log{
		Address: f.self,
		Topics:  topics,
		Data:    data,
	})
}

// EmitEvent packs the values of an ABI event, indexed ones as topics, and
// emits it.
func (f *Frame) EmitEvent(event abi.Event, values ...interface{}) error {
	if len(values) != len(event.Inputs) {
		return fmt.Errorf("event %s: got %d values, want %d", event.Name, len(values), len(event.Inputs))
	}
	var (
		indexed [][]interface{}
		data    []interface{}
	)
	for i, input := range event.Inputs {
		if input.Indexed {
			indexed = append(indexed, []interface{}{values[i]})
		} else {
			data = append(data, values[i])
		}
	}

	topics := []common.Hash{event.ID}
	if len(indexed) > 0 {
		t, err := abi.MakeTopics(indexed...)
		if err != nil {
			return fmt.Errorf("event %s topics: %w", event.Name, err)
		}
		for _, topic := range t {
			topics = append(topics, topic[0])
		}
	}

	packed, err := event.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		return fmt.Errorf("event %s data: %w", event.Name, err)
	}

	f.Emit(topics, packed)
	return nil
}

// Call calls another account with the executing contract as sender. A gas
// limit of zero means unlimited. The callee's effects are discarded when it
// reverts and the revert is returned.
func (f *Frame) Call(to common.Address, input []byte, value *big.Int, gas uint64) ([]byte, error) {
	child := newFrame(f.state.child(), f.env, f.self, to, value)
	out, err := child.run(input)

	used := child.gasUsed
	if gas > 0 && used > gas {
		used = gas
		if err == nil {
			err = &RevertError{reason: ErrOutOfGas.Error()}
		}
	}
	f.gasUsed += used

	if err != nil {
		return nil, err
	}
	child.state.merge()
	return out, nil
}

// Transfer sends wei from the executing contract. Contracts receiving the
// transfer are run with empty input.
func (f *Frame) Transfer(to common.Address, value *big.Int) error {
	_, err := f.Call(to, nil, value, 0)
	return err
}

// run moves the value and executes the code at the frame address.
func (f *Frame) run(input []byte) ([]byte, error) {
	if err := f.state.transfer(f.sender, f.self, f.value); err != nil {
		return nil, err
	}
	d := f.state.contract(f.self)
	if d == nil {
		// plain account
		return nil, nil
	}
	f.UseGas(2600)
	out, err := d.impl.Run(f, input)
	if err != nil {
		return nil, asRevert(err)
	}
	return out, nil
}

// create runs a constructor for a new contract at the frame address.
func (f *Frame) create(name string, code []byte, ctor Constructor, args []byte) error {
	if f.state.contract(f.self) != nil {
		return RevertWithReason("contract address collision")
	}
	if err := f.state.transfer(f.sender, f.self, f.value); err != nil {
		return err
	}
	f.UseGas(32000)
	impl, err := ctor(f, args)
	if err != nil {
		return asRevert(err)
	}
	f.state.contracts[f.self] = &deployed{
		name: name,
		code: code,
		impl: impl,
	}
	return nil
}

// Method resolves the ABI method addressed by the input selector and unpacks
// its arguments.
func Method(a *abi.ABI, input []byte) (*abi.Method, []interface{}, error) {
	if len(input) < 4 {
		return nil, nil, RevertWithReason(ErrNoMethod.Error())
	}
	m, err := a.MethodById(input[:4])
	if err != nil {
		return nil, nil, RevertWithReason(ErrNoMethod.Error())
	}
	args, err := m.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, nil, RevertWithReason(fmt.Sprintf("invalid calldata for %s: %v", m.Name, err))
	}
	return m, args, nil
}

// Return packs the outputs of a method.
func Return(m *abi.Method, values ...interface{}) ([]byte, error) {
	out, err := m.Outputs.Pack(values...)
	if err != nil {
		return nil, fmt.Errorf("pack %s outputs: %w", m.Name, err)
	}
	return out, nil
}
