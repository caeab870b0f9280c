// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"io"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v2"
)

// Override replaces registered parameters of a single chain. Unset fields keep
// the registered value.
type Override struct {
	Name               *string `yaml:"name"`
	EntranceFee        *string `yaml:"entrance-fee"`
	GasLane            *string `yaml:"gas-lane"`
	CallbackGasLimit   *uint32 `yaml:"callback-gas-limit"`
	Interval           *uint64 `yaml:"interval"`
	VRFCoordinator     *string `yaml:"vrf-coordinator"`
	SubscriptionID     *uint64 `yaml:"subscription-id"`
	BlockConfirmations *uint64 `yaml:"block-confirmations"`
}

// Networks maps chain ids to overrides of the built-in registry.
type Networks map[int64]Override

// LoadNetworks reads network overrides from a yaml document keyed by chain id.
func LoadNetworks(r io.Reader) (Networks, error) {
	n := make(Networks)
	if err := yaml.NewDecoder(r).Decode(&n); err != nil {
		if err == io.EOF {
			return n, nil
		}
		return nil, fmt.Errorf("decode networks: %w", err)
	}
	for chainID, o := range n {
		if o.EntranceFee != nil {
			if _, ok := new(big.Int).SetString(*o.EntranceFee, 10); !ok {
				return nil, fmt.Errorf("chain %d: entrance fee %q cannot be parsed", chainID, *o.EntranceFee)
			}
		}
		if o.VRFCoordinator != nil && !common.IsHexAddress(*o.VRFCoordinator) {
			return nil, fmt.Errorf("chain %d: malformed vrf coordinator address", chainID)
		}
		if o.GasLane != nil && len(common.FromHex(*o.GasLane)) != common.HashLength {
			return nil, fmt.Errorf("chain %d: malformed gas lane", chainID)
		}
	}
	return n, nil
}

// Resolve returns the configuration for the network with the overrides for
// its chain id applied. Chains without a registered configuration are
// accepted only for development networks or when an override names them.
func (n Networks) Resolve(networkName string, chainID int64) (*NetworkConfig, error) {
	development := IsDevelopmentNetwork(networkName)

	cfg, found := GetNetworkConfig(chainID)
	if !found && development {
		cfg, _ = GetNetworkConfig(DevelopmentChainID())
		cfg.ChainID = chainID
		found = true
	}

	o, overridden := n[chainID]
	if !found && !overridden {
		return nil, fmt.Errorf("network %q chain %d: %w", networkName, chainID, ErrUnknownNetwork)
	}
	if overridden {
		o.apply(cfg)
	}
	if cfg.Name == "" {
		cfg.Name = networkName
	}

	if err := cfg.Validate(development); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Lookup returns the configuration registered for the chain with its override
// applied, without validating it. Chains known only from an override are
// found too.
func (n Networks) Lookup(chainID int64) (*NetworkConfig, bool) {
	cfg, found := GetNetworkConfig(chainID)
	o, overridden := n[chainID]
	if overridden {
		o.apply(cfg)
	}
	return cfg, found || overridden
}

// ChainIDs returns the registered and the overridden chain ids in ascending
// order.
func (n Networks) ChainIDs() []int64 {
	ids := ChainIDs()
	for id := range n {
		if _, found := GetNetworkConfig(id); !found {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Known reports whether the named network is a development network or the
// name of a registered or overridden chain. It needs no chain connection.
func (n Networks) Known(networkName string) bool {
	if IsDevelopmentNetwork(networkName) {
		return true
	}
	for _, id := range n.ChainIDs() {
		if cfg, _ := n.Lookup(id); cfg.Name == networkName {
			return true
		}
	}
	return false
}

func (o Override) apply(cfg *NetworkConfig) {
	if o.Name != nil {
		cfg.Name = *o.Name
	}
	if o.EntranceFee != nil {
		// validated by LoadNetworks
		cfg.EntranceFee, _ = new(big.Int).SetString(*o.EntranceFee, 10)
	}
	if o.GasLane != nil {
		cfg.GasLane = common.HexToHash(*o.GasLane)
	}
	if o.CallbackGasLimit != nil {
		cfg.CallbackGasLimit = *o.CallbackGasLimit
	}
	if o.Interval != nil {
		cfg.Interval = *o.Interval
	}
	if o.VRFCoordinator != nil {
		cfg.VRFCoordinator = common.HexToAddress(*o.VRFCoordinator)
	}
	if o.SubscriptionID != nil {
		cfg.SubscriptionID = *o.SubscriptionID
	}
	if o.BlockConfirmations != nil {
		cfg.BlockConfirmations = *o.BlockConfirmations
	}
}
