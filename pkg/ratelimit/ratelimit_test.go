// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ratelimit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethersphere/raffle/pkg/ratelimit"
)

func TestWaitBurst(t *testing.T) {
	limiter := ratelimit.New(time.Hour, 3)

	for i := 0; i < 3; i++ {
		if err := limiter.Wait(context.Background(), "api"); err != nil {
			t.Fatal(err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx, "api"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got error %v, want %v", err, context.DeadlineExceeded)
	}
}

func TestWaitNoBurst(t *testing.T) {
	limiter := ratelimit.New(time.Second, 0)

	if err := limiter.Wait(context.Background(), "api"); !errors.Is(err, ratelimit.ErrRateLimitExceeded) {
		t.Fatalf("got error %v, want %v", err, ratelimit.ErrRateLimitExceeded)
	}
}

func TestWait(t *testing.T) {
	limiter := ratelimit.New(time.Hour, 1)

	if err := limiter.Wait(context.Background(), "api"); err != nil {
		t.Fatal(err)
	}

	// the bucket is empty and refills only after an hour
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx, "api"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got error %v, want %v", err, context.DeadlineExceeded)
	}

	if err := limiter.Wait(context.Background(), "other"); err != nil {
		t.Fatal(err)
	}
}
