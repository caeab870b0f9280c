// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deploy

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethersphere/raffle/pkg/config"
	"github.com/ethersphere/raffle/pkg/devnet"
	"github.com/ethersphere/raffle/pkg/logging"
	"github.com/ethersphere/raffle/pkg/lottery"
	"github.com/ethersphere/raffle/pkg/lottery/lotterycontract"
	"github.com/ethersphere/raffle/pkg/statestore/leveldb"
	"github.com/ethersphere/raffle/pkg/storage"
	"github.com/ethersphere/raffle/pkg/vrf"
	"github.com/ethersphere/raffle/pkg/vrf/vrfmock"
	"github.com/hashicorp/go-multierror"
)

// DevelopmentNetwork is the name of the in-process development network.
const DevelopmentNetwork = "hardhat"

// Fixture is a fresh development network on which deploy scripts have run.
// Account 0 is the deployer.
type Fixture struct {
	Chain       *devnet.Chain
	Network     *Network
	Deployments *Deployments

	logger   logging.Logger
	store    storage.StateStorer
	mu       sync.Mutex
	sessions map[int]*devnet.Session
}

// NewFixture starts a development network with the mock coordinator and the
// lottery registered and runs the deploy scripts with the given tags.
func NewFixture(ctx context.Context, logger logging.Logger, tags ...string) (_ *Fixture, err error) {
	chain := devnet.New(devnet.Options{Logger: logger})
	vrfmock.Register(chain)
	lottery.Register(chain)

	cfg, err := config.Resolve(DevelopmentNetwork, devnet.DefaultChainID)
	if err != nil {
		return nil, err
	}

	store, err := leveldb.NewInMemoryStateStore(logger)
	if err != nil {
		return nil, err
	}

	f := &Fixture{
		Chain:    chain,
		logger:   logger,
		store:    store,
		sessions: make(map[int]*devnet.Session),
	}
	defer func() {
		if err != nil {
			_ = f.Close()
		}
	}()

	deployer, err := f.Session(0)
	if err != nil {
		return nil, err
	}

	f.Network = &Network{
		Name:        DevelopmentNetwork,
		Config:      cfg,
		Development: true,
		Backend:     chain,
		Transaction: deployer,
		Monitor:     deployer.Monitor,
		Code:        chain,
		Chain:       chain,
	}

	runner := NewRunner(logger, Options{
		Network: f.Network,
		Store:   store,
	})
	f.Deployments = runner.Deployments()

	if err := runner.Run(ctx, tags...); err != nil {
		return nil, err
	}
	return f, nil
}

// Session returns the transaction session of the i-th chain account.
func (f *Fixture) Session(i int) (*devnet.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if s, ok := f.sessions[i]; ok {
		return s, nil
	}

	accounts := f.Chain.Accounts()
	if i < 0 || i >= len(accounts) {
		return nil, fmt.Errorf("account %d out of range", i)
	}
	s, err := f.Chain.NewSession(f.logger, accounts[i])
	if err != nil {
		return nil, err
	}
	f.sessions[i] = s
	return s, nil
}

// Lottery returns a binding to the deployed lottery sending from the i-th
// account.
func (f *Fixture) Lottery(i int) (*lotterycontract.Contract, error) {
	d, err := f.Deployments.Get(lottery.Name)
	if err != nil {
		return nil, err
	}
	s, err := f.Session(i)
	if err != nil {
		return nil, err
	}
	return lotterycontract.New(f.logger, d.Address, s, f.Chain), nil
}

// Coordinator returns a client of the deployed mock coordinator sending from
// the deployer account.
func (f *Fixture) Coordinator() (vrf.Coordinator, error) {
	d, err := f.Deployments.Get(vrf.MockName)
	if err != nil {
		return nil, err
	}
	return vrf.NewCoordinator(d.Address, f.Network.Transaction), nil
}

// Close closes the account sessions and the deployment store.
func (f *Fixture) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var mErr *multierror.Error
	for i, s := range f.sessions {
		if err := s.Close(); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("session %d: %w", i, err))
		}
	}
	f.sessions = make(map[int]*devnet.Session)
	if err := f.store.Close(); err != nil {
		mErr = multierror.Append(mErr, fmt.Errorf("state store: %w", err))
	}
	return mErr.ErrorOrNil()
}
