// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lottery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"go.uber.org/atomic"
)

var (
	ErrWaitTimeout = errors.New("timed out waiting for winner")
	ErrAwaiterDone = errors.New("awaiter already resolved or cancelled")
	errWatchEnded  = errors.New("winner subscription ended")
)

// Awaiter resolves on the first PickedWinner event after its creation.
type Awaiter struct {
	events chan *PickedWinnerEvent
	sub    event.Subscription
	done   atomic.Bool
	once   sync.Once
}

// Once starts listening for the next PickedWinner event. It must be called
// before the action that picks the winner so the event cannot be missed.
func Once(ctx context.Context, contract Interface) (*Awaiter, error) {
	events := make(chan *PickedWinnerEvent, 1)
	sub, err := contract.WatchPickedWinner(ctx, events)
	if err != nil {
		return nil, fmt.Errorf("watch picked winner: %w", err)
	}
	return &Awaiter{
		events: events,
		sub:    sub,
	}, nil
}

// Wait blocks until the event arrives, the timeout expires or the context is
// done. The listener is released in every case. Wait may be called once.
func (a *Awaiter) Wait(ctx context.Context, timeout time.Duration) (*PickedWinnerEvent, error) {
	if !a.done.CAS(false, true) {
		return nil, ErrAwaiterDone
	}
	defer a.Cancel()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case e := <-a.events:
		return e, nil
	case err := <-a.sub.Err():
		if err == nil {
			err = errWatchEnded
		}
		return nil, err
	case <-timer.C:
		return nil, ErrWaitTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel releases the listener. A later Wait returns ErrAwaiterDone.
func (a *Awaiter) Cancel() {
	a.done.Store(true)
	a.once.Do(a.sub.Unsubscribe)
}
