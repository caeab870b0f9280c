// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deploy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethersphere/raffle/pkg/storage"
)

const deploymentPrefix = "deployment_"

// ErrNotDeployed is returned when no deployment is recorded under a name.
var ErrNotDeployed = errors.New("not deployed")

// Deployment is the record of a deployed contract.
type Deployment struct {
	Name        string          `json:"name"`
	Network     string          `json:"network"`
	Address     common.Address  `json:"address"`
	Deployer    common.Address  `json:"deployer"`
	TxHash      common.Hash     `json:"txHash"`
	BlockNumber uint64          `json:"blockNumber"`
	ABI         json.RawMessage `json:"abi"`
	Args        hexutil.Bytes   `json:"args"`
	RunID       string          `json:"runId,omitempty"` // deploy run that made the deployment
}

// ParseABI parses the recorded contract ABI.
func (d *Deployment) ParseABI() (abi.ABI, error) {
	return abi.JSON(bytes.NewReader(d.ABI))
}

// Deployments persists the deployment records of one network.
type Deployments struct {
	store   storage.StateStorer
	network string
}

func NewDeployments(store storage.StateStorer, network string) *Deployments {
	return &Deployments{
		store:   store,
		network: network,
	}
}

func deploymentKey(network, name string) string {
	return fmt.Sprintf("%s%s_%s", deploymentPrefix, network, name)
}

// Put records the deployment, replacing an earlier one with the same name.
func (d *Deployments) Put(deployment *Deployment) error {
	return d.store.Put(deploymentKey(d.network, deployment.Name), deployment)
}

// Get returns the deployment recorded under the name.
func (d *Deployments) Get(name string) (*Deployment, error) {
	var deployment Deployment
	if err := d.store.Get(deploymentKey(d.network, name), &deployment); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s on %s: %w", name, d.network, ErrNotDeployed)
		}
		return nil, err
	}
	return &deployment, nil
}

// List returns the deployments of the network in deployment order.
func (d *Deployments) List() ([]*Deployment, error) {
	var deployments []*Deployment
	err := d.store.Iterate(deploymentPrefix+d.network+"_", func(_, value []byte) (bool, error) {
		var deployment Deployment
		if err := json.Unmarshal(value, &deployment); err != nil {
			return true, err
		}
		// prefixes of other network names share the key space
		if deployment.Network == d.network {
			deployments = append(deployments, &deployment)
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(deployments, func(i, j int) bool {
		if deployments[i].BlockNumber != deployments[j].BlockNumber {
			return deployments[i].BlockNumber < deployments[j].BlockNumber
		}
		return deployments[i].Name < deployments[j].Name
	})
	return deployments, nil
}
