// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrUnknownNetwork is returned when a chain id has no registered
	// configuration and the network is not a development network.
	ErrUnknownNetwork = errors.New("unknown network")
)

var (
	// chain ID
	hardhatChainID = int64(31337)
	goerliChainID  = int64(5)
	sepoliaChainID = int64(11155111)

	// vrf coordinator
	goerliVRFCoordinatorAddress  = common.HexToAddress("0x2Ca8E0C643bDe4C2E08ab1fA0da3401AdAD7734D")
	sepoliaVRFCoordinatorAddress = common.HexToAddress("0x8103B0A8A00be2DDC778e6e7eaa21791Cd364625")

	// gas lane (key hash)
	hardhatGasLane = common.HexToHash("0xd89b2bf150e3b9e13446986e571fb9cab24b13cea0a43ea20a6049a85cc807cc")
	goerliGasLane  = common.HexToHash("0x79d3d8832d904592c0bf9818b621522c988bb8b0c05cdc3b15aea1b6e8db0c15")
	sepoliaGasLane = common.HexToHash("0x474e34a077df58807dbe9c96d3c009b23b3c6d0cce433e59bbf5b34f823bc56c")

	// 0.01 ether
	defaultEntranceFee = big.NewInt(10000000000000000)
)

const (
	defaultCallbackGasLimit = uint32(500000)
	defaultInterval         = uint64(30)
)

// DevelopmentChains are the networks on which mocks are deployed instead of
// relying on external oracle infrastructure.
var DevelopmentChains = []string{"hardhat", "localhost"}

// NetworkConfig holds the deployment parameters of the lottery on one chain.
type NetworkConfig struct {
	Name               string
	ChainID            int64
	EntranceFee        *big.Int
	GasLane            common.Hash
	CallbackGasLimit   uint32
	Interval           uint64         // seconds
	VRFCoordinator     common.Address // zero on development networks
	SubscriptionID     uint64         // zero on development networks
	BlockConfirmations uint64
}

// GetNetworkConfig returns a copy of the configuration registered for the
// chain id.
func GetNetworkConfig(chainID int64) (*NetworkConfig, bool) {
	cfg := NetworkConfig{
		ChainID:          chainID,
		EntranceFee:      new(big.Int).Set(defaultEntranceFee),
		CallbackGasLimit: defaultCallbackGasLimit,
		Interval:         defaultInterval,
	}
	switch chainID {
	case hardhatChainID:
		cfg.Name = "hardhat"
		cfg.GasLane = hardhatGasLane
		cfg.BlockConfirmations = 1
		return &cfg, true
	case goerliChainID:
		cfg.Name = "goerli"
		cfg.GasLane = goerliGasLane
		cfg.VRFCoordinator = goerliVRFCoordinatorAddress
		cfg.BlockConfirmations = 6
		return &cfg, true
	case sepoliaChainID:
		cfg.Name = "sepolia"
		cfg.GasLane = sepoliaGasLane
		cfg.VRFCoordinator = sepoliaVRFCoordinatorAddress
		cfg.BlockConfirmations = 6
		return &cfg, true
	default:
		return &cfg, false
	}
}

// ChainIDs returns the registered chain ids in ascending order.
func ChainIDs() []int64 {
	ids := []int64{hardhatChainID, goerliChainID, sepoliaChainID}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// DevelopmentChainID is the chain id of the in-process development network.
func DevelopmentChainID() int64 {
	return hardhatChainID
}

// IsDevelopmentNetwork reports whether the named network is a local
// development network.
func IsDevelopmentNetwork(name string) bool {
	for _, n := range DevelopmentChains {
		if n == name {
			return true
		}
	}
	return false
}

// Resolve returns the configuration for the given network. Development
// networks fall back to the development chain configuration; any other
// network must have a registered chain id.
func Resolve(networkName string, chainID int64) (*NetworkConfig, error) {
	return Networks(nil).Resolve(networkName, chainID)
}

// Validate checks that the configuration carries every parameter the
// lottery constructor needs on a network that is not a development network.
func (c *NetworkConfig) Validate(development bool) error {
	if c.EntranceFee == nil || c.EntranceFee.Sign() < 0 {
		return fmt.Errorf("chain %d: invalid entrance fee", c.ChainID)
	}
	if c.CallbackGasLimit == 0 {
		return fmt.Errorf("chain %d: missing callback gas limit", c.ChainID)
	}
	if c.Interval == 0 {
		return fmt.Errorf("chain %d: missing interval", c.ChainID)
	}
	if development {
		return nil
	}
	if c.VRFCoordinator == (common.Address{}) {
		return fmt.Errorf("chain %d: missing vrf coordinator address", c.ChainID)
	}
	if c.SubscriptionID == 0 {
		return fmt.Errorf("chain %d: missing subscription id", c.ChainID)
	}
	return nil
}
