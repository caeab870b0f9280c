// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mock

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethersphere/raffle/pkg/crypto"
)

// signerMock signs nothing. Transactions are returned unsigned unless a sign
// function is set.
type signerMock struct {
	signTx          func(transaction *types.Transaction, chainID *big.Int) (*types.Transaction, error)
	ethereumAddress func() (common.Address, error)
	publicKey       *ecdsa.PublicKey
}

func (m *signerMock) EthereumAddress() (common.Address, error) {
	if m.ethereumAddress != nil {
		return m.ethereumAddress()
	}
	return common.Address{}, nil
}

func (m *signerMock) SignTx(transaction *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if m.signTx != nil {
		return m.signTx(transaction, chainID)
	}
	return transaction, nil
}

func (m *signerMock) PublicKey() (*ecdsa.PublicKey, error) {
	return m.publicKey, nil
}

func New(opts ...Option) crypto.Signer {
	mock := new(signerMock)
	for _, o := range opts {
		o.apply(mock)
	}
	return mock
}

// Option is the option passed to the mock signer.
type Option interface {
	apply(*signerMock)
}

type optionFunc func(*signerMock)

func (f optionFunc) apply(r *signerMock) { f(r) }

func WithSignTxFunc(f func(transaction *types.Transaction, chainID *big.Int) (*types.Transaction, error)) Option {
	return optionFunc(func(s *signerMock) {
		s.signTx = f
	})
}

func WithEthereumAddressFunc(f func() (common.Address, error)) Option {
	return optionFunc(func(s *signerMock) {
		s.ethereumAddress = f
	})
}

// WithEthereumAddress makes the signer report a fixed sender.
func WithEthereumAddress(address common.Address) Option {
	return WithEthereumAddressFunc(func() (common.Address, error) {
		return address, nil
	})
}

// WithPrivateKey makes the signer report the address and public key of the
// key. Transactions are still not signed.
func WithPrivateKey(key *ecdsa.PrivateKey) Option {
	return optionFunc(func(s *signerMock) {
		s.publicKey = &key.PublicKey
		s.ethereumAddress = func() (common.Address, error) {
			return crypto.EthereumAddress(key.PublicKey)
		}
	})
}
