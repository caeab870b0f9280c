// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package node_test

import (
	"errors"
	"testing"

	"github.com/ethersphere/raffle/pkg/logging"
	"github.com/ethersphere/raffle/pkg/node"
	"github.com/ethersphere/raffle/pkg/storage"
)

func TestInitStateStore(t *testing.T) {
	dataDir := t.TempDir()

	stateStore, err := node.InitStateStore(logging.Noop(), dataDir)
	if err != nil {
		t.Fatal(err)
	}
	if err := stateStore.Put("deployment_sepolia_Lottery", "value"); err != nil {
		t.Fatal(err)
	}
	if err := stateStore.Close(); err != nil {
		t.Fatal(err)
	}

	stateStore, err = node.InitStateStore(logging.Noop(), dataDir)
	if err != nil {
		t.Fatal(err)
	}
	defer stateStore.Close()

	var got string
	if err := stateStore.Get("deployment_sepolia_Lottery", &got); err != nil {
		t.Fatal(err)
	}
	if got != "value" {
		t.Fatalf("got %q, want %q", got, "value")
	}
}

func TestInitStateStoreInMemory(t *testing.T) {
	stateStore, err := node.InitStateStore(logging.Noop(), "")
	if err != nil {
		t.Fatal(err)
	}
	defer stateStore.Close()

	var got string
	if err := stateStore.Get("missing", &got); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("got %v, want %v", err, storage.ErrNotFound)
	}
}
