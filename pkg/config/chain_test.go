// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config_test

import (
	"errors"
	"math/big"
	"reflect"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/raffle/pkg/config"
)

func TestGetNetworkConfig(t *testing.T) {
	for _, tc := range []struct {
		chainID       int64
		name          string
		coordinator   common.Address
		gasLane       string
		confirmations uint64
	}{
		{
			chainID:       31337,
			name:          "hardhat",
			gasLane:       "0xd89b2bf150e3b9e13446986e571fb9cab24b13cea0a43ea20a6049a85cc807cc",
			confirmations: 1,
		},
		{
			chainID:       5,
			name:          "goerli",
			coordinator:   common.HexToAddress("0x2Ca8E0C643bDe4C2E08ab1fA0da3401AdAD7734D"),
			gasLane:       "0x79d3d8832d904592c0bf9818b621522c988bb8b0c05cdc3b15aea1b6e8db0c15",
			confirmations: 6,
		},
		{
			chainID:       11155111,
			name:          "sepolia",
			coordinator:   common.HexToAddress("0x8103B0A8A00be2DDC778e6e7eaa21791Cd364625"),
			gasLane:       "0x474e34a077df58807dbe9c96d3c009b23b3c6d0cce433e59bbf5b34f823bc56c",
			confirmations: 6,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg, ok := config.GetNetworkConfig(tc.chainID)
			if !ok {
				t.Fatal("expected config to be found")
			}
			if cfg.Name != tc.name {
				t.Fatalf("got name %s, want %s", cfg.Name, tc.name)
			}
			if cfg.VRFCoordinator != tc.coordinator {
				t.Fatalf("got coordinator %s, want %s", cfg.VRFCoordinator, tc.coordinator)
			}
			if cfg.GasLane != common.HexToHash(tc.gasLane) {
				t.Fatalf("got gas lane %s, want %s", cfg.GasLane, tc.gasLane)
			}
			if cfg.EntranceFee.Cmp(big.NewInt(10000000000000000)) != 0 {
				t.Fatalf("got entrance fee %s", cfg.EntranceFee)
			}
			if cfg.CallbackGasLimit != 500000 {
				t.Fatalf("got callback gas limit %d", cfg.CallbackGasLimit)
			}
			if cfg.Interval != 30 {
				t.Fatalf("got interval %d", cfg.Interval)
			}
			if cfg.BlockConfirmations != tc.confirmations {
				t.Fatalf("got confirmations %d, want %d", cfg.BlockConfirmations, tc.confirmations)
			}
		})
	}

	if _, ok := config.GetNetworkConfig(1); ok {
		t.Fatal("expected mainnet to be unregistered")
	}
}

func TestGetNetworkConfigCopies(t *testing.T) {
	a, _ := config.GetNetworkConfig(31337)
	a.EntranceFee.SetInt64(1)

	b, _ := config.GetNetworkConfig(31337)
	if b.EntranceFee.Cmp(big.NewInt(10000000000000000)) != 0 {
		t.Fatal("registry entry was mutated through a returned config")
	}
}

func TestIsDevelopmentNetwork(t *testing.T) {
	for name, want := range map[string]bool{
		"hardhat":   true,
		"localhost": true,
		"sepolia":   false,
		"":          false,
	} {
		if got := config.IsDevelopmentNetwork(name); got != want {
			t.Errorf("%q: got %v, want %v", name, got, want)
		}
	}
}

func TestResolve(t *testing.T) {
	t.Run("localhost", func(t *testing.T) {
		cfg, err := config.Resolve("localhost", 31337)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Name != "hardhat" {
			t.Fatalf("got %s", cfg.Name)
		}
	})

	t.Run("development fallback", func(t *testing.T) {
		cfg, err := config.Resolve("localhost", 1337)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.ChainID != 1337 {
			t.Fatalf("got chain id %d", cfg.ChainID)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := config.Resolve("mainnet", 1)
		if !errors.Is(err, config.ErrUnknownNetwork) {
			t.Fatalf("got %v, want %v", err, config.ErrUnknownNetwork)
		}
	})

	t.Run("public network without subscription", func(t *testing.T) {
		_, err := config.Resolve("sepolia", 11155111)
		if err == nil || !strings.Contains(err.Error(), "subscription id") {
			t.Fatalf("got %v, want missing subscription id error", err)
		}
	})
}

func TestNetworksOverride(t *testing.T) {
	doc := `
11155111:
  subscription-id: 1234
  interval: 60
  entrance-fee: "20000000000000000"
1:
  name: mainnet
  vrf-coordinator: "0x271682DEB8C4E0901D1a1550aD2e64D568E69909"
  gas-lane: "0x8af398995b04c28e9951adb9721ef74c74f93e6a478f39e7e0777be13527e7ef"
  subscription-id: 7
`
	n, err := config.LoadNetworks(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := n.Resolve("sepolia", 11155111)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SubscriptionID != 1234 {
		t.Fatalf("got subscription id %d", cfg.SubscriptionID)
	}
	if cfg.Interval != 60 {
		t.Fatalf("got interval %d", cfg.Interval)
	}
	if cfg.EntranceFee.Cmp(big.NewInt(20000000000000000)) != 0 {
		t.Fatalf("got entrance fee %s", cfg.EntranceFee)
	}
	if cfg.BlockConfirmations != 6 {
		t.Fatalf("got confirmations %d", cfg.BlockConfirmations)
	}

	cfg, err = n.Resolve("mainnet", 1)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "mainnet" || cfg.SubscriptionID != 7 {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadNetworksErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"fee":         "5:\n  entrance-fee: \"ten\"\n",
		"coordinator": "5:\n  vrf-coordinator: \"0x1234\"\n",
		"gas lane":    "5:\n  gas-lane: \"0x12\"\n",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := config.LoadNetworks(strings.NewReader(doc)); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	n, err := config.LoadNetworks(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if len(n) != 0 {
		t.Fatalf("got %d overrides", len(n))
	}
}

func TestNetworksLookup(t *testing.T) {
	name := "mainnet"
	subscription := uint64(7)
	n := config.Networks{
		1:        {Name: &name},
		11155111: {SubscriptionID: &subscription},
	}

	if got, want := n.ChainIDs(), []int64{1, 5, 31337, 11155111}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got chain ids %v, want %v", got, want)
	}

	cfg, ok := n.Lookup(1)
	if !ok {
		t.Fatal("expected overridden chain to be found")
	}
	if cfg.Name != name || cfg.VRFCoordinator != (common.Address{}) {
		t.Fatalf("unexpected config %+v", cfg)
	}

	cfg, ok = n.Lookup(11155111)
	if !ok || cfg.SubscriptionID != subscription || cfg.Name != "sepolia" {
		t.Fatalf("unexpected config %+v", cfg)
	}

	if _, ok := n.Lookup(10); ok {
		t.Fatal("expected unknown chain")
	}
}

func TestNetworksKnown(t *testing.T) {
	name := "mainnet"
	n := config.Networks{1: {Name: &name}}

	for _, tc := range []struct {
		network  string
		networks config.Networks
		known    bool
	}{
		{network: "hardhat", known: true},
		{network: "localhost", known: true},
		{network: "goerli", known: true},
		{network: "sepolia", known: true},
		{network: "mainnet"},
		{network: "mainnet", networks: n, known: true},
		{network: "polygon", networks: n},
	} {
		if got := tc.networks.Known(tc.network); got != tc.known {
			t.Errorf("%s: got known %v, want %v", tc.network, got, tc.known)
		}
	}
}
