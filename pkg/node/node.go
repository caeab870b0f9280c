// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package node assembles the chain connection, the state store and the
// deploy collaborators for one network.
package node

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/raffle/pkg/artifacts"
	"github.com/ethersphere/raffle/pkg/config"
	"github.com/ethersphere/raffle/pkg/crypto"
	"github.com/ethersphere/raffle/pkg/deploy"
	"github.com/ethersphere/raffle/pkg/devnet"
	"github.com/ethersphere/raffle/pkg/logging"
	"github.com/ethersphere/raffle/pkg/lottery"
	"github.com/ethersphere/raffle/pkg/lottery/lotterycontract"
	"github.com/ethersphere/raffle/pkg/metrics"
	"github.com/ethersphere/raffle/pkg/statestore/leveldb"
	"github.com/ethersphere/raffle/pkg/storage"
	"github.com/ethersphere/raffle/pkg/transaction"
	"github.com/ethersphere/raffle/pkg/verify"
	"github.com/ethersphere/raffle/pkg/vrf/vrfmock"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
)

var (
	// ErrEndpointRequired is returned for networks that are not development
	// networks when no endpoint is given.
	ErrEndpointRequired = errors.New("endpoint required")
	// ErrPrivateKeyRequired is returned when connecting to an endpoint
	// without a deployer key.
	ErrPrivateKeyRequired = errors.New("private key required")
)

// Options configure a Node.
type Options struct {
	Network    string
	Endpoint   string
	PrivateKey string
	DataDir    string
	// ArtifactsDir holds the compiler artifacts used as contract code on
	// endpoints and for verification.
	ArtifactsDir string
	Networks     config.Networks
	// SubscriptionID overrides the subscription of the resolved network
	// when not zero.
	SubscriptionID uint64
	// BlockTime is the monitor polling interval in seconds.
	BlockTime uint64
	Verify    verify.Options
}

// Node is a network ready to be deployed to.
type Node struct {
	Network    *deploy.Network
	StateStore storage.StateStorer
	Artifacts  *artifacts.Store
	Verifier   *verify.Service

	logger      logging.Logger
	runner      *deploy.Runner
	closers     []namedCloser
	collectors  []interface{}
	inProcess   bool
	chainCloser func()
}

type namedCloser struct {
	name string
	io.Closer
}

// New connects to the network named in the options. A development network
// without an endpoint runs in process on a fresh chain. Unknown networks are
// rejected before any connection is made.
func New(ctx context.Context, logger logging.Logger, o Options) (_ *Node, err error) {
	if !o.Networks.Known(o.Network) {
		return nil, fmt.Errorf("network %q: %w", o.Network, config.ErrUnknownNetwork)
	}

	verifier, err := verify.New(logger, o.Verify)
	if err != nil {
		return nil, err
	}

	artifactStore, err := artifacts.New(afero.NewReadOnlyFs(afero.NewOsFs()), o.ArtifactsDir)
	if err != nil {
		return nil, err
	}

	n := &Node{
		Artifacts: artifactStore,
		Verifier:  verifier,
		logger:    logger,
	}
	defer func() {
		if err != nil {
			_ = n.Close()
		}
	}()

	development := config.IsDevelopmentNetwork(o.Network)
	switch {
	case o.Endpoint == "" && development:
		err = n.initInProcess(o)
	case o.Endpoint == "":
		err = fmt.Errorf("network %s: %w", o.Network, ErrEndpointRequired)
	default:
		err = n.initEndpoint(ctx, o, development)
	}
	if err != nil {
		return nil, err
	}

	n.runner = deploy.NewRunner(logger, deploy.Options{
		Network:   n.Network,
		Store:     n.StateStore,
		Verifier:  n.Verifier,
		Artifacts: n.Artifacts,
	})
	return n, nil
}

func (n *Node) initInProcess(o Options) error {
	chain := devnet.New(devnet.Options{Logger: n.logger})
	vrfmock.Register(chain)
	lottery.Register(chain)

	cfg, err := resolve(o, devnet.DefaultChainID)
	if err != nil {
		return err
	}

	// deployments do not outlive the chain
	stateStore, err := leveldb.NewInMemoryStateStore(n.logger)
	if err != nil {
		return err
	}
	n.StateStore = stateStore
	n.closers = append(n.closers, namedCloser{"state store", stateStore})

	session, err := chain.NewSession(n.logger, chain.Accounts()[0])
	if err != nil {
		return err
	}
	n.closers = append(n.closers, namedCloser{"deployer session", session})
	n.collectors = append(n.collectors, session.Service, session.Monitor)

	n.logger.Infof("using in-process development network %s", o.Network)
	n.inProcess = true
	n.Network = &deploy.Network{
		Name:        o.Network,
		Config:      cfg,
		Development: true,
		Backend:     chain,
		Transaction: session,
		Monitor:     session.Monitor,
		Code:        chain,
		Chain:       chain,
	}
	return nil
}

func (n *Node) initEndpoint(ctx context.Context, o Options, development bool) error {
	if o.PrivateKey == "" {
		return ErrPrivateKeyRequired
	}
	key, err := crypto.DecodeHexPrivateKey(o.PrivateKey)
	if err != nil {
		return fmt.Errorf("private key: %w", err)
	}

	backend, chainID, err := DialChain(ctx, n.logger, o.Endpoint)
	if err != nil {
		return err
	}
	n.chainCloser = backend.Close

	cfg, err := resolve(o, chainID)
	if err != nil {
		return err
	}

	stateStore, err := InitStateStore(n.logger, o.DataDir)
	if err != nil {
		return fmt.Errorf("state store: %w", err)
	}
	n.StateStore = stateStore
	n.closers = append(n.closers, namedCloser{"state store", stateStore})

	deployer, monitor, txService, err := InitChain(ctx, n.logger, stateStore, backend, chainID, crypto.NewDefaultSigner(key), o.BlockTime, development)
	if err != nil {
		return err
	}
	n.closers = append(n.closers,
		namedCloser{"transaction monitor", monitor},
		namedCloser{"transaction service", txService},
	)
	n.collectors = append(n.collectors, txService, monitor)

	n.logger.Infof("using network %s (chain id %d) with deployer %s", o.Network, chainID, deployer)
	n.Network = &deploy.Network{
		Name:        o.Network,
		Config:      cfg,
		Development: development,
		Backend:     backend,
		Transaction: txService,
		Monitor:     monitor,
		Code:        n.Artifacts,
	}
	return nil
}

// resolve applies the subscription override before the configuration is
// validated.
func resolve(o Options, chainID int64) (*config.NetworkConfig, error) {
	networks := make(config.Networks, len(o.Networks)+1)
	for id, ov := range o.Networks {
		networks[id] = ov
	}
	if o.SubscriptionID != 0 {
		ov := networks[chainID]
		id := o.SubscriptionID
		ov.SubscriptionID = &id
		networks[chainID] = ov
	}
	return networks.Resolve(o.Network, chainID)
}

// Deploy runs the deploy scripts with the given tags.
func (n *Node) Deploy(ctx context.Context, tags ...string) error {
	return n.runner.Run(ctx, tags...)
}

// Deployments returns the deployment records of the network.
func (n *Node) Deployments() *deploy.Deployments {
	return n.runner.Deployments()
}

// InProcess reports whether the network runs in process.
func (n *Node) InProcess() bool {
	return n.inProcess
}

// Lottery returns a binding to the deployed lottery sending from the
// deployer account.
func (n *Node) Lottery() (*lotterycontract.Contract, error) {
	d, err := n.Deployments().Get(lottery.Name)
	if err != nil {
		return nil, err
	}
	return lotterycontract.New(n.logger, d.Address, n.Network.Transaction, n.Network.Backend), nil
}

// PendingTransactions returns the deployer transactions that are not
// confirmed yet.
func (n *Node) PendingTransactions() ([]transaction.PendingTransaction, error) {
	return transaction.Pending(n.Network.Transaction)
}

// ResendPending sends the pending deployer transactions to the network
// again.
func (n *Node) ResendPending(ctx context.Context) ([]common.Hash, error) {
	return transaction.ResendPending(ctx, n.logger, n.Network.Transaction)
}

// Metrics returns the collectors of the deploy runner, the verifier and the
// transaction service.
func (n *Node) Metrics() []prometheus.Collector {
	cs := append(n.runner.Metrics(), n.Verifier.Metrics()...)
	for _, c := range n.collectors {
		if mc, ok := c.(metrics.Collector); ok {
			cs = append(cs, mc.Metrics()...)
		}
	}
	return cs
}

// RegisterMetrics registers the node collectors with r.
func (n *Node) RegisterMetrics(r prometheus.Registerer) error {
	return metrics.Register(r, n)
}

// Close closes the chain connection and the state store.
func (n *Node) Close() error {
	var mErr *multierror.Error
	for i := len(n.closers) - 1; i >= 0; i-- {
		c := n.closers[i]
		if err := c.Close(); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	n.closers = nil
	if n.chainCloser != nil {
		n.chainCloser()
		n.chainCloser = nil
	}
	return mErr.ErrorOrNil()
}
