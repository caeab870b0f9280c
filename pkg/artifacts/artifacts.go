// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package artifacts reads compiled contracts from a hardhat artifacts
// directory.
package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	lru "github.com/hashicorp/golang-lru"
	"github.com/spf13/afero"
)

const (
	cacheSize = 64

	buildInfoDir = "build-info"
	dbgSuffix    = ".dbg.json"
)

var (
	// ErrNotFound is returned when no artifact has the requested name.
	ErrNotFound = errors.New("artifact not found")
	// ErrAmbiguousName is returned when more than one source defines a
	// contract with the requested name.
	ErrAmbiguousName = errors.New("ambiguous contract name")
	// ErrNoBytecode is returned for artifacts of interfaces and abstract
	// contracts.
	ErrNoBytecode = errors.New("artifact has no bytecode")
)

// Artifact is a compiled contract.
type Artifact struct {
	ContractName     string          `json:"contractName"`
	SourceName       string          `json:"sourceName"`
	ABI              json.RawMessage `json:"abi"`
	Bytecode         hexutil.Bytes   `json:"bytecode"`
	DeployedBytecode hexutil.Bytes   `json:"deployedBytecode"`

	path string
}

// FullyQualifiedName returns the source qualified contract name, e.g.
// contracts/Lottery.sol:Lottery.
func (a *Artifact) FullyQualifiedName() string {
	return a.SourceName + ":" + a.ContractName
}

// ParseABI parses the contract ABI.
func (a *Artifact) ParseABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(string(a.ABI)))
}

// BuildInfo is the compiler input and version an artifact was built with.
type BuildInfo struct {
	SolcVersion     string          `json:"solcVersion"`
	SolcLongVersion string          `json:"solcLongVersion"`
	Input           json.RawMessage `json:"input"`
}

// CompilerVersion returns the compiler version in the form block explorers
// expect, e.g. v0.8.7+commit.e28d00a7.
func (b *BuildInfo) CompilerVersion() string {
	return "v" + b.SolcLongVersion
}

type debugFile struct {
	BuildInfo string `json:"buildInfo"`
}

// Store looks up artifacts by contract name.
type Store struct {
	fs    afero.Fs
	dir   string
	cache *lru.Cache
}

// New returns a store reading the artifacts directory dir from fs.
func New(fs afero.Fs, dir string) (*Store, error) {
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	return &Store{
		fs:    fs,
		dir:   dir,
		cache: cache,
	}, nil
}

// Artifact returns the artifact of the contract. The name is either a plain
// contract name or a fully qualified one.
func (s *Store) Artifact(name string) (*Artifact, error) {
	key := "artifact:" + name
	if v, ok := s.cache.Get(key); ok {
		return v.(*Artifact), nil
	}

	path, err := s.find(name)
	if err != nil {
		return nil, err
	}

	a := new(Artifact)
	if err := s.readJSON(path, a); err != nil {
		return nil, err
	}
	a.path = path

	_ = s.cache.Add(key, a)
	return a, nil
}

// Code returns the creation bytecode of the contract.
func (s *Store) Code(name string) ([]byte, error) {
	a, err := s.Artifact(name)
	if err != nil {
		return nil, err
	}
	if len(a.Bytecode) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoBytecode)
	}
	return a.Bytecode, nil
}

// BuildInfo returns the build info the contract was compiled with.
func (s *Store) BuildInfo(name string) (*BuildInfo, error) {
	a, err := s.Artifact(name)
	if err != nil {
		return nil, err
	}

	var dbg debugFile
	dbgPath := strings.TrimSuffix(a.path, ".json") + dbgSuffix
	if err := s.readJSON(dbgPath, &dbg); err != nil {
		return nil, err
	}
	path := filepath.Join(filepath.Dir(a.path), filepath.FromSlash(dbg.BuildInfo))

	key := "build-info:" + path
	if v, ok := s.cache.Get(key); ok {
		return v.(*BuildInfo), nil
	}

	b := new(BuildInfo)
	if err := s.readJSON(path, b); err != nil {
		return nil, err
	}
	_ = s.cache.Add(key, b)
	return b, nil
}

// find resolves the artifact file of the contract.
func (s *Store) find(name string) (string, error) {
	if i := strings.LastIndex(name, ":"); i >= 0 {
		source, contract := name[:i], name[i+1:]
		path := filepath.Join(s.dir, filepath.FromSlash(source), contract+".json")
		ok, err := afero.Exists(s.fs, path)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return path, nil
	}

	var matches []string
	err := afero.Walk(s.fs, s.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == buildInfoDir {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Name() == name+".json" {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walk artifacts: %w", err)
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%s: %w", name, ErrAmbiguousName)
	}
}

func (s *Store) readJSON(path string, v interface{}) error {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
