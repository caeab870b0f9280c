// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deploy_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ethersphere/raffle/pkg/artifacts"
	"github.com/ethersphere/raffle/pkg/deploy"
	"github.com/ethersphere/raffle/pkg/logging"
	"github.com/ethersphere/raffle/pkg/lottery"
	"github.com/ethersphere/raffle/pkg/statestore/mock"
	"github.com/ethersphere/raffle/pkg/verify"
	"github.com/ethersphere/raffle/pkg/vrf"
	"github.com/spf13/afero"
)

type verifierMock struct {
	requests []verify.Request
	err      error
}

func (v *verifierMock) Verify(_ context.Context, r verify.Request) error {
	v.requests = append(v.requests, r)
	return v.err
}

func newArtifacts(t *testing.T) *artifacts.Store {
	t.Helper()

	fs := afero.NewMemMapFs()
	files := map[string]string{
		"artifacts/contracts/Lottery.sol/Lottery.json":     `{"contractName":"Lottery","sourceName":"contracts/Lottery.sol","abi":[],"bytecode":"0x60806040"}`,
		"artifacts/contracts/Lottery.sol/Lottery.dbg.json": `{"buildInfo":"../../build-info/abc.json"}`,
		"artifacts/build-info/abc.json":                    `{"solcLongVersion":"0.8.7+commit.e28d00a7","input":{"language":"Solidity"}}`,
	}
	for name, content := range files {
		if err := afero.WriteFile(fs, filepath.FromSlash(name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	s, err := artifacts.New(fs, "artifacts")
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// publicNetwork returns a network that is not a development network on the
// chain of the fixture, configured with a subscription on the deployed mock
// coordinator.
func publicNetwork(t *testing.T, f *deploy.Fixture) *deploy.Network {
	t.Helper()

	coordinator, err := f.Coordinator()
	if err != nil {
		t.Fatal(err)
	}
	subID, err := coordinator.CreateSubscription(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	cfg := *f.Network.Config
	cfg.Name = "sepolia"
	cfg.VRFCoordinator = coordinator.Address()
	cfg.SubscriptionID = subID

	n := *f.Network
	n.Name = "sepolia"
	n.Config = &cfg
	n.Development = false
	n.Chain = nil
	return &n
}

func TestDeployLotteryPublicNetwork(t *testing.T) {
	for _, tc := range []struct {
		name string
		err  error
	}{
		{name: "verified"},
		{name: "verification disabled", err: verify.ErrDisabled},
		{name: "verification failed", err: verify.ErrVerificationFailed},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, deploy.TagMocks)
			network := publicNetwork(t, f)
			verifier := &verifierMock{err: tc.err}

			r := deploy.NewRunner(logging.Noop(), deploy.Options{
				Network:   network,
				Store:     mock.NewStateStore(),
				Verifier:  verifier,
				Artifacts: newArtifacts(t),
			})
			if err := r.Run(context.Background()); err != nil {
				t.Fatal(err)
			}

			// no mocks on public networks
			if _, err := r.Deployments().Get(vrf.MockName); !errors.Is(err, deploy.ErrNotDeployed) {
				t.Fatalf("got error %v, want %v", err, deploy.ErrNotDeployed)
			}
			d, err := r.Deployments().Get(lottery.Name)
			if err != nil {
				t.Fatal(err)
			}
			if d.Network != "sepolia" {
				t.Fatalf("got network %s, want sepolia", d.Network)
			}

			if len(verifier.requests) != 1 {
				t.Fatalf("got %d verification requests, want 1", len(verifier.requests))
			}
			req := verifier.requests[0]
			if req.Address != d.Address {
				t.Fatalf("got address %s, want %s", req.Address, d.Address)
			}
			if req.ContractName != "contracts/Lottery.sol:Lottery" {
				t.Fatalf("got contract name %s", req.ContractName)
			}
			if req.CompilerVersion != "v0.8.7+commit.e28d00a7" {
				t.Fatalf("got compiler version %s", req.CompilerVersion)
			}
			if !bytes.Equal(req.ConstructorArgs, d.Args) {
				t.Fatalf("got constructor args %x, want %x", req.ConstructorArgs, d.Args)
			}

			// the configured subscription is used and no consumer is added
			contractABI, err := d.ParseABI()
			if err != nil {
				t.Fatal(err)
			}
			args, err := contractABI.Constructor.Inputs.Unpack(d.Args)
			if err != nil {
				t.Fatal(err)
			}
			if args[0] != network.Config.VRFCoordinator || args[1] != network.Config.SubscriptionID {
				t.Fatalf("got coordinator %v subscription %v", args[0], args[1])
			}
			coordinator, err := f.Coordinator()
			if err != nil {
				t.Fatal(err)
			}
			sub, err := coordinator.GetSubscription(context.Background(), network.Config.SubscriptionID)
			if err != nil {
				t.Fatal(err)
			}
			if len(sub.Consumers) != 0 {
				t.Fatalf("got consumers %v", sub.Consumers)
			}
		})
	}
}

func TestDeployLotteryWithoutVerifier(t *testing.T) {
	f := newFixture(t, deploy.TagMocks)

	r := deploy.NewRunner(logging.Noop(), deploy.Options{
		Network: publicNetwork(t, f),
		Store:   mock.NewStateStore(),
	})
	if err := r.Run(context.Background(), deploy.TagLottery); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Deployments().Get(lottery.Name); err != nil {
		t.Fatal(err)
	}
}

func TestDeployUnknownContract(t *testing.T) {
	f := newFixture(t, deploy.TagMocks)

	network := *f.Network
	network.Code = newArtifacts(t)

	r := deploy.NewRunner(logging.Noop(), deploy.Options{
		Network: &network,
		Store:   mock.NewStateStore(),
		Scripts: []deploy.Script{{
			Name: "unknown",
			Tags: []string{deploy.TagAll},
			Run: func(ctx context.Context, env *deploy.Env) error {
				_, err := env.Deployer.Deploy(ctx, "Raffle", lottery.ABIJSON)
				return err
			},
		}},
	})
	if err := r.Run(context.Background()); !errors.Is(err, artifacts.ErrNotFound) {
		t.Fatalf("got error %v, want %v", err, artifacts.ErrNotFound)
	}
}
