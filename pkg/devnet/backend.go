// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package devnet

import (
	"bytes"
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// The chain keeps no historical state. Account queries answer for the latest
// block whatever block number is asked for.

func (c *Chain) ChainID(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(c.chainID), nil
}

func (c *Chain) BlockNumber(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.latest().Number.Uint64(), nil
}

func (c *Chain) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	h, _, err := c.blockAt(number)
	if err != nil {
		return nil, err
	}
	return types.CopyHeader(h), nil
}

func (c *Chain) BlockByNumber(ctx context.Context, number *big.Int) (*types.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	h, body, err := c.blockAt(number)
	if err != nil {
		return nil, err
	}
	return types.NewBlockWithHeader(h).WithBody(body, nil), nil
}

func (c *Chain) blockAt(number *big.Int) (*types.Header, []*types.Transaction, error) {
	if number == nil {
		i := len(c.headers) - 1
		return c.headers[i], c.bodies[i], nil
	}
	if !number.IsUint64() || number.Uint64() >= uint64(len(c.headers)) {
		return nil, nil, ethereum.NotFound
	}
	i := number.Uint64()
	return c.headers[i], c.bodies[i], nil
}

func (c *Chain) BalanceAt(ctx context.Context, address common.Address, block *big.Int) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if b, ok := c.balances[address]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (c *Chain) NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.nonces[account], nil
}

func (c *Chain) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return c.NonceAt(ctx, account, nil)
}

func (c *Chain) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.contracts[contract]
	if !ok {
		return nil, nil
	}
	return common.CopyBytes(d.code), nil
}

func (c *Chain) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return c.CodeAt(ctx, account, nil)
}

func (c *Chain) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(c.gasPrice), nil
}

func (c *Chain) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(c.gasPrice), nil
}

func (c *Chain) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (c *Chain) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, ok := c.txs[hash]
	if !ok {
		return nil, false, ethereum.NotFound
	}
	return tx, false, nil
}

// CallContract executes a call against the pending block without committing
// any of its effects.
func (c *Chain) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out, _, err := c.execute(newState(c, nil), c.nextEnv(), call.From, call.To, call.Value, call.Data)
	return out, err
}

// EstimateGas executes the message against the pending block and returns the
// gas it used. Reverting messages return the revert.
func (c *Chain) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, gas, err := c.execute(newState(c, nil), c.nextEnv(), call.From, call.To, call.Value, call.Data)
	if err != nil {
		return 0, err
	}
	return gas + intrinsicGas(call.Data, call.To == nil), nil
}

// SendTransaction validates, executes and mines the transaction in a new
// block.
func (c *Chain) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	logs, err := c.mineTransaction(tx)
	if err != nil {
		return err
	}
	if len(logs) > 0 {
		c.logFeed.Send(logs)
	}
	return nil
}

func (c *Chain) mineTransaction(tx *types.Transaction) ([]*types.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tx.ChainId().Sign() != 0 && tx.ChainId().Cmp(c.chainID) != 0 {
		return nil, fmt.Errorf("%w: have %d want %d", ErrChainIDMismatch, tx.ChainId(), c.chainID)
	}
	from, err := types.Sender(c.signer, tx)
	if err != nil {
		return nil, fmt.Errorf("invalid sender: %w", err)
	}
	if _, known := c.txs[tx.Hash()]; known {
		return nil, ErrAlreadyKnown
	}

	nonce := c.nonces[from]
	if tx.Nonce() < nonce {
		return nil, fmt.Errorf("nonce too low: address %s, tx: %d state: %d", from, tx.Nonce(), nonce)
	}
	if tx.Nonce() > nonce {
		return nil, fmt.Errorf("nonce too high: address %s, tx: %d state: %d", from, tx.Nonce(), nonce)
	}

	intrinsic := intrinsicGas(tx.Data(), tx.To() == nil)
	if tx.Gas() < intrinsic {
		return nil, fmt.Errorf("intrinsic gas too low: have %d, want %d", tx.Gas(), intrinsic)
	}
	if tx.Gas() > c.blockGasLimit {
		return nil, fmt.Errorf("exceeds block gas limit")
	}

	gasPrice := effectiveGasPrice(tx)
	cost := new(big.Int).Mul(new(big.Int).SetUint64(tx.Gas()), gasPrice)
	cost.Add(cost, tx.Value())
	balance := c.balances[from]
	if balance == nil || balance.Cmp(cost) < 0 {
		return nil, fmt.Errorf("insufficient funds for gas * price + value: address %s", from)
	}

	env := c.nextEnv()
	c.timeOffset = 0

	st := newState(c, nil)
	_, used, execErr := c.execute(st, env, from, tx.To(), tx.Value(), tx.Data())
	gasUsed := used + intrinsic
	status := types.ReceiptStatusSuccessful
	switch {
	case execErr != nil:
		status = types.ReceiptStatusFailed
	case gasUsed > tx.Gas():
		status = types.ReceiptStatusFailed
		execErr = ErrOutOfGas
	}
	if gasUsed > tx.Gas() {
		gasUsed = tx.Gas()
	}

	if status == types.ReceiptStatusSuccessful {
		st.apply()
	} else {
		st.logs = nil
	}

	fee := new(big.Int).Mul(new(big.Int).SetUint64(gasUsed), gasPrice)
	c.balances[from] = new(big.Int).Sub(c.balance(from), fee)
	c.nonces[from] = nonce + 1

	receipt := &types.Receipt{
		Type:              tx.Type(),
		Status:            status,
		CumulativeGasUsed: gasUsed,
		TxHash:            tx.Hash(),
		GasUsed:           gasUsed,
		Logs:              st.logs,
		TransactionIndex:  0,
	}
	if receipt.Logs == nil {
		receipt.Logs = []*types.Log{}
	}
	if tx.To() == nil {
		receipt.ContractAddress = crypto.CreateAddress(from, tx.Nonce())
	}
	receipt.Bloom = types.CreateBloom(types.Receipts{receipt})

	header := c.appendBlock(env, tx, receipt, gasUsed)
	blockHash := header.Hash()
	receipt.BlockHash = blockHash
	receipt.BlockNumber = new(big.Int).Set(header.Number)
	for i, l := range receipt.Logs {
		l.BlockNumber = env.number
		l.BlockHash = blockHash
		l.TxHash = tx.Hash()
		l.TxIndex = 0
		l.Index = uint(i)
	}

	c.txs[tx.Hash()] = tx
	c.receipts[tx.Hash()] = receipt
	c.logs = append(c.logs, receipt.Logs...)

	if execErr != nil {
		c.logger.Debugf("devnet: transaction %x from %s failed in block %d: %v", tx.Hash(), from, env.number, execErr)
	} else {
		c.logger.Debugf("devnet: transaction %x from %s mined in block %d, gas used %d", tx.Hash(), from, env.number, gasUsed)
	}

	return receipt.Logs, nil
}

func (c *Chain) balance(a common.Address) *big.Int {
	if b, ok := c.balances[a]; ok {
		return b
	}
	return new(big.Int)
}

// execute runs a message in the given state and returns the output and the
// gas used on top of the intrinsic gas. It must be called with the lock held.
func (c *Chain) execute(st *state, env blockEnv, from common.Address, to *common.Address, value *big.Int, data []byte) ([]byte, uint64, error) {
	if to == nil {
		if len(data) < common.HashLength {
			return nil, 0, RevertWithReason(ErrUnknownCode.Error())
		}
		code := data[:common.HashLength]
		reg, ok := c.constructors[common.BytesToHash(code)]
		if !ok {
			return nil, 0, RevertWithReason(ErrUnknownCode.Error())
		}
		addr := crypto.CreateAddress(from, c.nonces[from])
		f := newFrame(st, env, from, addr, value)
		if err := f.create(reg.name, common.CopyBytes(code), reg.ctor, data[common.HashLength:]); err != nil {
			return nil, f.gasUsed, err
		}
		return addr.Bytes(), f.gasUsed, nil
	}

	f := newFrame(st, env, from, *to, value)
	out, err := f.run(data)
	return out, f.gasUsed, err
}

func intrinsicGas(data []byte, creation bool) uint64 {
	gas := uint64(txGas)
	if creation {
		gas += 32000
	}
	nonZero := uint64(len(data) - bytes.Count(data, []byte{0}))
	zero := uint64(len(data)) - nonZero
	return gas + nonZero*txDataNonZeroGas + zero*txDataZeroGas
}

// effectiveGasPrice is the price paid per gas. The chain has no base fee so
// dynamic fee transactions pay their tip.
func effectiveGasPrice(tx *types.Transaction) *big.Int {
	if tx.Type() == types.DynamicFeeTxType {
		return math.BigMin(tx.GasTipCap(), tx.GasFeeCap())
	}
	return tx.GasPrice()
}
