// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deploy

import (
	"github.com/ethersphere/raffle/pkg/config"
	"github.com/ethersphere/raffle/pkg/devnet"
	"github.com/ethersphere/raffle/pkg/transaction"
)

// CodeSource provides the creation bytecode of contracts by name.
type CodeSource interface {
	Code(name string) ([]byte, error)
}

// Network is a chain deployments are made to.
type Network struct {
	Name        string
	Config      *config.NetworkConfig
	Development bool

	Backend     transaction.Backend
	Transaction transaction.Service
	Monitor     transaction.Monitor
	Code        CodeSource

	// Chain is set only for the in-process development network.
	Chain *devnet.Chain
}
