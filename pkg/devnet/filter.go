// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package devnet

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

var errInvalidBlockRange = errors.New("invalid block range params")

// FilterLogs returns the logs matching the query.
func (c *Chain) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	from, to := uint64(0), c.latest().Number.Uint64()
	if q.BlockHash != nil {
		found := false
		for _, h := range c.headers {
			if h.Hash() == *q.BlockHash {
				from, to = h.Number.Uint64(), h.Number.Uint64()
				found = true
				break
			}
		}
		if !found {
			return nil, ethereum.NotFound
		}
	} else {
		if q.FromBlock != nil {
			from = q.FromBlock.Uint64()
		}
		if q.ToBlock != nil {
			to = q.ToBlock.Uint64()
		}
		if from > to {
			return nil, errInvalidBlockRange
		}
	}

	var logs []types.Log
	for _, l := range c.logs {
		if l.BlockNumber < from || l.BlockNumber > to {
			continue
		}
		if matchLog(q, l) {
			logs = append(logs, *l)
		}
	}
	return logs, nil
}

// SubscribeFilterLogs streams logs of newly mined transactions matching the
// query. Block ranges of the query are ignored.
func (c *Chain) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	sink := make(chan []*types.Log, 16)
	sub := c.logFeed.Subscribe(sink)

	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		for {
			select {
			case logs := <-sink:
				for _, l := range logs {
					if !matchLog(q, l) {
						continue
					}
					select {
					case ch <- *l:
					case <-quit:
						return nil
					}
				}
			case err := <-sub.Err():
				return err
			case <-quit:
				return nil
			}
		}
	}), nil
}

// matchLog reports whether the log matches the addresses and positional
// topic sets of the query.
func matchLog(q ethereum.FilterQuery, l *types.Log) bool {
	if len(q.Addresses) > 0 && !containsAddress(q.Addresses, l.Address) {
		return false
	}
	if len(q.Topics) > len(l.Topics) {
		return false
	}
	for i, alternatives := range q.Topics {
		if len(alternatives) == 0 {
			continue
		}
		if !containsHash(alternatives, l.Topics[i]) {
			return false
		}
	}
	return true
}

func containsAddress(list []common.Address, a common.Address) bool {
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}

func containsHash(list []common.Hash, h common.Hash) bool {
	for _, x := range list {
		if x == h {
			return true
		}
	}
	return false
}
