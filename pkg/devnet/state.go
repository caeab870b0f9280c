// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package devnet

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// deployed is a contract living at an address.
type deployed struct {
	name string
	code []byte
	impl Contract
}

// state is one layer of the execution journal. Every call gets its own layer
// which is merged into its parent when the call succeeds and dropped when it
// reverts.
type state struct {
	chain  *Chain
	parent *state

	balances  map[common.Address]*big.Int
	contracts map[common.Address]*deployed
	logs      []*types.Log
	writes    []func()
}

func newState(chain *Chain, parent *state) *state {
	return &state{
		chain:     chain,
		parent:    parent,
		balances:  make(map[common.Address]*big.Int),
		contracts: make(map[common.Address]*deployed),
	}
}

func (s *state) child() *state {
	return newState(s.chain, s)
}

func (s *state) balance(a common.Address) *big.Int {
	for cur := s; cur != nil; cur = cur.parent {
		if b, ok := cur.balances[a]; ok {
			return new(big.Int).Set(b)
		}
	}
	if b, ok := s.chain.balances[a]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (s *state) setBalance(a common.Address, v *big.Int) {
	s.balances[a] = v
}

func (s *state) contract(a common.Address) *deployed {
	for cur := s; cur != nil; cur = cur.parent {
		if d, ok := cur.contracts[a]; ok {
			return d
		}
	}
	return s.chain.contracts[a]
}

// transfer moves value between accounts, failing when the sender cannot
// cover it.
func (s *state) transfer(from, to common.Address, value *big.Int) error {
	if value == nil || value.Sign() == 0 {
		return nil
	}
	fromBalance := s.balance(from)
	if fromBalance.Cmp(value) < 0 {
		return RevertWithReason("insufficient balance for transfer")
	}
	s.setBalance(from, fromBalance.Sub(fromBalance, value))
	toBalance := s.balance(to)
	s.setBalance(to, toBalance.Add(toBalance, value))
	return nil
}

// merge folds the layer into its parent.
func (s *state) merge() {
	p := s.parent
	for a, b := range s.balances {
		p.balances[a] = b
	}
	for a, d := range s.contracts {
		p.contracts[a] = d
	}
	p.logs = append(p.logs, s.logs...)
	p.writes = append(p.writes, s.writes...)
}

// apply commits the root layer to the chain. It must be called with the chain
// lock held.
func (s *state) apply() {
	c := s.chain
	for a, b := range s.balances {
		c.balances[a] = b
	}
	for a, d := range s.contracts {
		c.contracts[a] = d
	}
	for _, w := range s.writes {
		w()
	}
}
