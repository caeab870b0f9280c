// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deploy

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/raffle/pkg/lottery"
	"github.com/ethersphere/raffle/pkg/verify"
	"github.com/ethersphere/raffle/pkg/vrf"
)

// DefaultScripts returns the mocks script followed by the lottery script.
func DefaultScripts() []Script {
	return []Script{
		{
			Name: "00-deploy-mocks",
			Tags: []string{TagAll, TagMocks},
			Run:  DeployMocks,
		},
		{
			Name: "01-deploy-lottery",
			Tags: []string{TagAll, TagLottery},
			Run:  DeployLottery,
		},
	}
}

// DeployMocks deploys the mock VRF coordinator on development networks.
func DeployMocks(ctx context.Context, env *Env) error {
	if !env.Network.Development {
		env.Logger.Debugf("network %s is not a development network, skipping mocks", env.Network.Name)
		return nil
	}

	env.Logger.Info("development network detected, deploying mocks")
	_, err := env.Deployer.Deploy(ctx, vrf.MockName, vrf.CoordinatorABIJSON, vrf.BaseFee, vrf.GasPriceLink)
	return err
}

// DeployLottery deploys the lottery. On development networks it uses the
// mock coordinator with a new funded subscription and registers the lottery
// as its consumer. On other networks the coordinator and subscription come
// from the network configuration and the contract source is verified.
func DeployLottery(ctx context.Context, env *Env) error {
	cfg := env.Network.Config

	coordinatorAddress := cfg.VRFCoordinator
	subscriptionID := cfg.SubscriptionID

	var coordinator vrf.Coordinator
	if env.Network.Development {
		mock, err := env.Deployments.Get(vrf.MockName)
		if err != nil {
			return fmt.Errorf("mock coordinator: %w", err)
		}
		coordinatorAddress = mock.Address
		coordinator = vrf.NewCoordinator(coordinatorAddress, env.Network.Transaction)

		subscriptionID, err = coordinator.CreateSubscription(ctx)
		if err != nil {
			return fmt.Errorf("create subscription: %w", err)
		}
		if err := coordinator.FundSubscription(ctx, subscriptionID, vrf.FundAmount); err != nil {
			return fmt.Errorf("fund subscription: %w", err)
		}
		env.Logger.Debugf("created subscription %d on mock coordinator %s", subscriptionID, coordinatorAddress)
	}

	d, err := env.Deployer.Deploy(ctx, lottery.Name, lottery.ABIJSON,
		coordinatorAddress,
		subscriptionID,
		[32]byte(cfg.GasLane),
		new(big.Int).SetUint64(cfg.Interval),
		cfg.EntranceFee,
		cfg.CallbackGasLimit,
	)
	if err != nil {
		return err
	}

	if env.Network.Development {
		if err := coordinator.AddConsumer(ctx, subscriptionID, d.Address); err != nil {
			return fmt.Errorf("add consumer: %w", err)
		}
		return nil
	}

	verifyDeployment(ctx, env, d)
	return nil
}

// verifyDeployment submits the source of the deployed contract. Failures
// are logged and never abort the run.
func verifyDeployment(ctx context.Context, env *Env, d *Deployment) {
	if env.Verifier == nil || env.Artifacts == nil {
		env.Logger.Debugf("verification of %s skipped: no verifier configured", d.Name)
		return
	}

	r, err := verifyRequest(env, d)
	if err != nil {
		env.Logger.Warningf("verification of %s skipped: %v", d.Name, err)
		return
	}

	env.Logger.Infof("verifying %s at %s", d.Name, d.Address)
	err = env.Verifier.Verify(ctx, *r)
	switch {
	case err == nil:
	case errors.Is(err, verify.ErrDisabled):
		env.Logger.Debugf("verification of %s skipped: disabled", d.Name)
	default:
		env.Logger.Warningf("verification of %s failed: %v", d.Name, err)
	}
}

func verifyRequest(env *Env, d *Deployment) (*verify.Request, error) {
	a, err := env.Artifacts.Artifact(d.Name)
	if err != nil {
		return nil, err
	}
	b, err := env.Artifacts.BuildInfo(d.Name)
	if err != nil {
		return nil, err
	}
	return &verify.Request{
		Address:         d.Address,
		ContractName:    a.FullyQualifiedName(),
		CompilerVersion: b.CompilerVersion(),
		SourceCode:      string(b.Input),
		ConstructorArgs: common.CopyBytes(d.Args),
	}, nil
}
