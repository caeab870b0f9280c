// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd_test

import (
	"bytes"
	"errors"
	"io/ioutil"
	"testing"

	"github.com/ethersphere/raffle/cmd/raffle/cmd"
	"github.com/ethersphere/raffle/pkg/config"
)

func TestPendingCmd(t *testing.T) {
	for _, args := range [][]string{
		{"pending", "--verbosity", "silent"},
		{"pending", "--resend", "--verbosity", "silent"},
	} {
		var outputBuf bytes.Buffer
		if err := newCommand(t,
			cmd.WithArgs(args...),
			cmd.WithOutput(&outputBuf),
		).Execute(); err != nil {
			t.Fatal(err)
		}

		if got, want := outputBuf.String(), "no pending transactions on network hardhat\n"; got != want {
			t.Errorf("%v: got output %q, want %q", args, got, want)
		}
	}
}

func TestPendingCmdUnknownNetwork(t *testing.T) {
	err := newCommand(t,
		cmd.WithArgs("pending", "--network", "polygon", "--verbosity", "silent"),
		cmd.WithOutput(ioutil.Discard),
	).Execute()
	if !errors.Is(err, config.ErrUnknownNetwork) {
		t.Fatalf("got %v, want %v", err, config.ErrUnknownNetwork)
	}
}
