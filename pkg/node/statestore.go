// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package node

import (
	"path/filepath"

	"github.com/ethersphere/raffle/pkg/logging"
	"github.com/ethersphere/raffle/pkg/statestore/leveldb"
	"github.com/ethersphere/raffle/pkg/storage"
)

// InitStateStore will initialize the stateStore with the given path to the
// data directory. When given an empty directory path, the function will instead
// initialize an in-memory state store that will not be persisted.
func InitStateStore(logger logging.Logger, dataDir string) (storage.StateStorer, error) {
	var (
		stateStore *leveldb.Store
		err        error
	)
	if dataDir == "" {
		logger.Warning("using in-mem state store, no deployments will be persisted")
		stateStore, err = leveldb.NewInMemoryStateStore(logger)
	} else {
		stateStore, err = leveldb.NewStateStore(filepath.Join(dataDir, "statestore"), logger)
	}
	if err != nil {
		return nil, err
	}
	return stateStore, nil
}
