// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package devnet is an in-process development chain. It mines one block per
// transaction and runs contracts implemented in Go, speaking the same
// transaction, receipt and log types as a node reached through ethclient.
package devnet

import (
	"crypto/ecdsa"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethersphere/raffle/pkg/logging"
	"github.com/ethersphere/raffle/pkg/transaction"
)

var _ transaction.Backend = (*Chain)(nil)

var (
	// ErrUnknownCode is returned for contract creations whose code prefix
	// has no registered constructor.
	ErrUnknownCode = errors.New("unknown contract code")
	// ErrChainIDMismatch is returned for transactions signed for another
	// chain.
	ErrChainIDMismatch = errors.New("invalid chain id")
	// ErrAlreadyKnown is returned when a transaction is sent twice.
	ErrAlreadyKnown = errors.New("already known")
)

const (
	// DefaultChainID is the chain id of development networks.
	DefaultChainID = 31337
	// DefaultAccounts is the number of funded accounts.
	DefaultAccounts = 20

	defaultBlockGasLimit = 30000000
	txGas                = 21000
	txDataZeroGas        = 4
	txDataNonZeroGas     = 16
)

var (
	// DefaultBalance is the balance of every funded account, 10000 ether.
	DefaultBalance = new(big.Int).Mul(big.NewInt(10000), big.NewInt(1e18))
	// DefaultGasPrice is the gas price suggested by the chain, 1 gwei.
	DefaultGasPrice = big.NewInt(1e9)
)

// Options configure a development chain.
type Options struct {
	ChainID       int64
	Accounts      int
	Balance       *big.Int
	GasPrice      *big.Int
	BlockGasLimit uint64
	Genesis       time.Time
	Logger        logging.Logger
}

// Account is a funded account with its private key.
type Account struct {
	Address common.Address
	Key     *ecdsa.PrivateKey
}

type registration struct {
	name string
	ctor Constructor
}

// Chain is the development chain.
type Chain struct {
	mu sync.Mutex

	logger        logging.Logger
	chainID       *big.Int
	gasPrice      *big.Int
	blockGasLimit uint64
	signer        types.Signer
	accounts      []Account

	constructors map[common.Hash]registration
	headers      []*types.Header
	bodies       [][]*types.Transaction
	txs          map[common.Hash]*types.Transaction
	receipts     map[common.Hash]*types.Receipt
	balances     map[common.Address]*big.Int
	nonces       map[common.Address]uint64
	contracts    map[common.Address]*deployed
	logs         []*types.Log
	timeOffset   uint64

	logFeed event.Feed
}

// New creates a development chain with a genesis block and funded accounts.
func New(o Options) *Chain {
	if o.ChainID == 0 {
		o.ChainID = DefaultChainID
	}
	if o.Accounts == 0 {
		o.Accounts = DefaultAccounts
	}
	if o.Balance == nil {
		o.Balance = DefaultBalance
	}
	if o.GasPrice == nil {
		o.GasPrice = DefaultGasPrice
	}
	if o.BlockGasLimit == 0 {
		o.BlockGasLimit = defaultBlockGasLimit
	}
	if o.Genesis.IsZero() {
		o.Genesis = time.Now()
	}
	if o.Logger == nil {
		o.Logger = logging.Noop()
	}

	chainID := big.NewInt(o.ChainID)
	c := &Chain{
		logger:        o.Logger,
		chainID:       chainID,
		gasPrice:      new(big.Int).Set(o.GasPrice),
		blockGasLimit: o.BlockGasLimit,
		signer:        types.LatestSignerForChainID(chainID),
		constructors:  make(map[common.Hash]registration),
		txs:           make(map[common.Hash]*types.Transaction),
		receipts:      make(map[common.Hash]*types.Receipt),
		balances:      make(map[common.Address]*big.Int),
		nonces:        make(map[common.Address]uint64),
		contracts:     make(map[common.Address]*deployed),
	}

	for i := 0; i < o.Accounts; i++ {
		key := accountKey(i)
		a := Account{
			Address: crypto.PubkeyToAddress(key.PublicKey),
			Key:     key,
		}
		c.accounts = append(c.accounts, a)
		c.balances[a.Address] = new(big.Int).Set(o.Balance)
	}

	c.headers = append(c.headers, &types.Header{
		Number:     new(big.Int),
		GasLimit:   c.blockGasLimit,
		Time:       uint64(o.Genesis.Unix()),
		Difficulty: big.NewInt(1),
	})
	c.bodies = append(c.bodies, nil)

	return c
}

// accountKey derives the deterministic private key of the i-th account.
func accountKey(i int) *ecdsa.PrivateKey {
	seed := make([]byte, 8)
	binary.BigEndian.PutUint64(seed, uint64(i))
	key, err := crypto.ToECDSA(crypto.Keccak256([]byte("raffle devnet account"), seed))
	if err != nil {
		panic(fmt.Sprintf("devnet account %d: %v", i, err))
	}
	return key
}

// Accounts returns the funded accounts. The first one is the deployer.
func (c *Chain) Accounts() []Account {
	accounts := make([]Account, len(c.accounts))
	copy(accounts, c.accounts)
	return accounts
}

// Register makes a Go contract deployable. The returned code stands in for
// EVM creation code: a contract creation transaction whose data is the code
// followed by the ABI encoded constructor arguments runs the constructor.
func (c *Chain) Register(name string, ctor Constructor) []byte {
	code := Code(name)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.constructors[common.BytesToHash(code)] = registration{
		name: name,
		ctor: ctor,
	}
	return code
}

// Code returns the creation code of the named Go contract.
func Code(name string) []byte {
	return crypto.Keccak256([]byte("devnet contract " + name))
}

// Code returns the creation code of a contract registered on the chain.
func (c *Chain) Code(name string) ([]byte, error) {
	code := Code(name)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.constructors[common.BytesToHash(code)]; !ok {
		return nil, fmt.Errorf("contract %q: %w", name, ErrUnknownCode)
	}
	return code, nil
}

// IncreaseTime moves the timestamp of the next block forward.
func (c *Chain) IncreaseTime(seconds uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.timeOffset += seconds
}

// Mine mines n empty blocks.
func (c *Chain) Mine(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := 0; i < n; i++ {
		env := c.nextEnv()
		c.timeOffset = 0
		c.appendBlock(env, nil, nil, 0)
	}
}

// SetBalance overwrites the balance of an account.
func (c *Chain) SetBalance(a common.Address, balance *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.balances[a] = new(big.Int).Set(balance)
}

// Timestamp returns the timestamp of the latest block.
func (c *Chain) Timestamp() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.latest().Time
}

// ContractName returns the name under which the contract at the address was
// registered.
func (c *Chain) ContractName(a common.Address) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.contracts[a]
	if !ok {
		return "", false
	}
	return d.name, true
}

func (c *Chain) latest() *types.Header {
	return c.headers[len(c.headers)-1]
}

// nextEnv is the block the next transaction will be mined in.
func (c *Chain) nextEnv() blockEnv {
	latest := c.latest()
	return blockEnv{
		number:    latest.Number.Uint64() + 1,
		timestamp: latest.Time + 1 + c.timeOffset,
	}
}

// appendBlock seals a block holding at most one transaction.
func (c *Chain) appendBlock(env blockEnv, tx *types.Transaction, receipt *types.Receipt, gasUsed uint64) *types.Header {
	parent := c.latest()
	header := &types.Header{
		ParentHash: parent.Hash(),
		Number:     new(big.Int).SetUint64(env.number),
		GasLimit:   c.blockGasLimit,
		GasUsed:    gasUsed,
		Time:       env.timestamp,
		Difficulty: big.NewInt(1),
	}

	var body []*types.Transaction
	if tx != nil {
		body = []*types.Transaction{tx}
	}
	if receipt != nil {
		header.Bloom = receipt.Bloom
	}

	c.headers = append(c.headers, header)
	c.bodies = append(c.bodies, body)
	c.logger.Tracef("devnet: mined block %d at %d", env.number, env.timestamp)
	return header
}
