// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/raffle/cmd/raffle/cmd"
	"github.com/ethersphere/raffle/pkg/deploy"
	"github.com/ethersphere/raffle/pkg/logging"
	"github.com/ethersphere/raffle/pkg/lottery"
	"github.com/ethersphere/raffle/pkg/node"
)

func TestDeploymentsCmd(t *testing.T) {
	dataDir := t.TempDir()
	address := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

	stateStore, err := node.InitStateStore(logging.Noop(), dataDir)
	if err != nil {
		t.Fatal(err)
	}
	if err := deploy.NewDeployments(stateStore, "sepolia").Put(&deploy.Deployment{
		Name:        lottery.Name,
		Network:     "sepolia",
		Address:     address,
		TxHash:      common.HexToHash("0x01"),
		BlockNumber: 42,
	}); err != nil {
		t.Fatal(err)
	}
	if err := stateStore.Close(); err != nil {
		t.Fatal(err)
	}

	t.Run("recorded", func(t *testing.T) {
		var outputBuf bytes.Buffer
		if err := newCommand(t,
			cmd.WithArgs("deployments", "--network", "sepolia", "--data-dir", dataDir, "--verbosity", "silent"),
			cmd.WithOutput(&outputBuf),
		).Execute(); err != nil {
			t.Fatal(err)
		}

		lines := strings.Split(strings.TrimSpace(outputBuf.String()), "\n")
		if len(lines) != 2 {
			t.Fatalf("got %d lines, want 2: %q", len(lines), outputBuf.String())
		}
		if !strings.HasPrefix(lines[0], "NAME") {
			t.Errorf("got header %q", lines[0])
		}
		for _, want := range []string{lottery.Name, address.String(), "42"} {
			if !strings.Contains(lines[1], want) {
				t.Errorf("line %q does not contain %q", lines[1], want)
			}
		}
	})

	t.Run("other network", func(t *testing.T) {
		var outputBuf bytes.Buffer
		if err := newCommand(t,
			cmd.WithArgs("deployments", "--network", "goerli", "--data-dir", dataDir, "--verbosity", "silent"),
			cmd.WithOutput(&outputBuf),
		).Execute(); err != nil {
			t.Fatal(err)
		}

		if got, want := outputBuf.String(), "no deployments on network goerli\n"; got != want {
			t.Errorf("got output %q, want %q", got, want)
		}
	})
}

func TestStatusCmdNotDeployed(t *testing.T) {
	err := newCommand(t,
		cmd.WithArgs("status", "--network", "hardhat", "--verbosity", "silent"),
		cmd.WithOutput(&bytes.Buffer{}),
	).Execute()
	if !errors.Is(err, deploy.ErrNotDeployed) {
		t.Fatalf("got %v, want %v", err, deploy.ErrNotDeployed)
	}
}
