// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deploy

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethersphere/raffle/pkg/logging"
	"github.com/ethersphere/raffle/pkg/sctx"
	"github.com/ethersphere/raffle/pkg/transaction"
)

// Deployer deploys contracts to a network and records the deployments.
type Deployer struct {
	logger      logging.Logger
	network     *Network
	deployments *Deployments
	metrics     *metrics
}

func newDeployer(logger logging.Logger, network *Network, deployments *Deployments, metrics *metrics) *Deployer {
	return &Deployer{
		logger:      logger,
		network:     network,
		deployments: deployments,
		metrics:     metrics,
	}
}

// Deploy sends the creation transaction of the named contract with the ABI
// encoded constructor arguments and waits for the configured number of block
// confirmations.
func (d *Deployer) Deploy(ctx context.Context, name, abiJSON string, args ...interface{}) (*Deployment, error) {
	deployment, err := d.deploy(ctx, name, abiJSON, args...)
	if err != nil {
		d.metrics.DeployFailedCount.Inc()
		return nil, fmt.Errorf("deploy %s: %w", name, err)
	}
	d.metrics.DeployedCount.Inc()
	return deployment, nil
}

func (d *Deployer) deploy(ctx context.Context, name, abiJSON string, args ...interface{}) (*Deployment, error) {
	contractABI, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}

	code, err := d.network.Code.Code(name)
	if err != nil {
		return nil, err
	}

	packed, err := contractABI.Pack("", args...)
	if err != nil {
		return nil, fmt.Errorf("pack constructor arguments: %w", err)
	}

	data := make([]byte, 0, len(code)+len(packed))
	data = append(data, code...)
	data = append(data, packed...)

	txHash, err := d.network.Transaction.Send(ctx, &transaction.TxRequest{
		To:          nil,
		Data:        data,
		GasPrice:    sctx.GetGasPrice(ctx),
		GasLimit:    sctx.GetGasLimit(ctx),
		Value:       big.NewInt(0),
		Description: "deploy " + name,
	})
	if err != nil {
		return nil, err
	}
	d.logger.Infof("deploying %s in transaction %s", name, txHash)

	receipt, err := d.network.Transaction.WaitForReceipt(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if receipt.Status == 0 {
		return nil, transaction.ErrTransactionReverted
	}
	d.metrics.GasUsed.Add(float64(receipt.GasUsed))

	confirmations := d.network.Config.BlockConfirmations
	if confirmations > 1 {
		d.logger.Infof("waiting for %d block confirmations", confirmations)
	}
	if _, err := transaction.WaitConfirmations(ctx, d.network.Monitor, receipt, confirmations); err != nil {
		return nil, fmt.Errorf("wait confirmations: %w", err)
	}

	deployment := &Deployment{
		Name:        name,
		Network:     d.network.Name,
		Address:     receipt.ContractAddress,
		Deployer:    d.network.Transaction.Sender(),
		TxHash:      txHash,
		BlockNumber: receipt.BlockNumber.Uint64(),
		ABI:         json.RawMessage(abiJSON),
		Args:        packed,
		RunID:       sctx.GetRunID(ctx),
	}
	if err := d.deployments.Put(deployment); err != nil {
		return nil, fmt.Errorf("record deployment: %w", err)
	}

	d.logger.Infof("deployed %s at %s in block %d with %d gas", name, deployment.Address, deployment.BlockNumber, receipt.GasUsed)
	return deployment, nil
}
