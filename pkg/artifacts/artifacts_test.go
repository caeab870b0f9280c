// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package artifacts_test

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ethersphere/raffle/pkg/artifacts"
	"github.com/spf13/afero"
)

const (
	lotteryArtifact = `{
  "_format": "hh-sol-artifact-1",
  "contractName": "Lottery",
  "sourceName": "contracts/Lottery.sol",
  "abi": [{"inputs":[],"name":"getEntranceFee","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"}],
  "bytecode": "0x6080604052",
  "deployedBytecode": "0x60806040"
}`
	lotteryDebug = `{"_format": "hh-sol-dbg-1", "buildInfo": "../../build-info/abc.json"}`
	buildInfo    = `{
  "id": "abc",
  "solcVersion": "0.8.7",
  "solcLongVersion": "0.8.7+commit.e28d00a7",
  "input": {"language": "Solidity", "sources": {}}
}`
	interfaceArtifact = `{
  "contractName": "KeeperCompatibleInterface",
  "sourceName": "@chainlink/contracts/src/v0.8/interfaces/KeeperCompatibleInterface.sol",
  "abi": [],
  "bytecode": "0x",
  "deployedBytecode": "0x"
}`
)

func newStore(t *testing.T) (afero.Fs, *artifacts.Store) {
	t.Helper()

	fs := afero.NewMemMapFs()
	files := map[string]string{
		"artifacts/contracts/Lottery.sol/Lottery.json":     lotteryArtifact,
		"artifacts/contracts/Lottery.sol/Lottery.dbg.json": lotteryDebug,
		"artifacts/build-info/abc.json":                    buildInfo,
		"artifacts/@chainlink/contracts/src/v0.8/interfaces/KeeperCompatibleInterface.sol/KeeperCompatibleInterface.json": interfaceArtifact,
	}
	for name, content := range files {
		if err := afero.WriteFile(fs, filepath.FromSlash(name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	s, err := artifacts.New(fs, "artifacts")
	if err != nil {
		t.Fatal(err)
	}
	return fs, s
}

func TestArtifact(t *testing.T) {
	_, s := newStore(t)

	for _, name := range []string{"Lottery", "contracts/Lottery.sol:Lottery"} {
		a, err := s.Artifact(name)
		if err != nil {
			t.Fatal(err)
		}
		if got := a.FullyQualifiedName(); got != "contracts/Lottery.sol:Lottery" {
			t.Fatalf("got name %s", got)
		}
		parsed, err := a.ParseABI()
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := parsed.Methods["getEntranceFee"]; !ok {
			t.Fatal("missing method getEntranceFee")
		}
	}

	code, err := s.Code("Lottery")
	if err != nil {
		t.Fatal(err)
	}
	if want := []byte{0x60, 0x80, 0x60, 0x40, 0x52}; !bytes.Equal(code, want) {
		t.Fatalf("got code %x, want %x", code, want)
	}
}

func TestArtifactCached(t *testing.T) {
	fs, s := newStore(t)

	if _, err := s.Artifact("Lottery"); err != nil {
		t.Fatal(err)
	}
	if err := fs.RemoveAll("artifacts/contracts"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Artifact("Lottery"); err != nil {
		t.Fatal(err)
	}
}

func TestArtifactErrors(t *testing.T) {
	fs, s := newStore(t)

	if _, err := s.Artifact("Raffle"); !errors.Is(err, artifacts.ErrNotFound) {
		t.Fatalf("got error %v, want %v", err, artifacts.ErrNotFound)
	}
	if _, err := s.Artifact("contracts/Raffle.sol:Lottery"); !errors.Is(err, artifacts.ErrNotFound) {
		t.Fatalf("got error %v, want %v", err, artifacts.ErrNotFound)
	}
	if _, err := s.Code("KeeperCompatibleInterface"); !errors.Is(err, artifacts.ErrNoBytecode) {
		t.Fatalf("got error %v, want %v", err, artifacts.ErrNoBytecode)
	}

	if err := afero.WriteFile(fs, filepath.FromSlash("artifacts/contracts/test/Lottery.sol/Lottery.json"), []byte(lotteryArtifact), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Artifact("Lottery"); !errors.Is(err, artifacts.ErrAmbiguousName) {
		t.Fatalf("got error %v, want %v", err, artifacts.ErrAmbiguousName)
	}
}

func TestBuildInfo(t *testing.T) {
	_, s := newStore(t)

	b, err := s.BuildInfo("Lottery")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := b.CompilerVersion(), "v0.8.7+commit.e28d00a7"; got != want {
		t.Fatalf("got compiler version %s, want %s", got, want)
	}
	if !bytes.Contains(b.Input, []byte(`"Solidity"`)) {
		t.Fatalf("unexpected input %s", b.Input)
	}
}
