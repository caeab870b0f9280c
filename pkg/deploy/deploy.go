// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package deploy runs the tagged deploy scripts of the lottery against a
// network and keeps a record of every deployed contract.
package deploy

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethersphere/raffle/pkg/artifacts"
	"github.com/ethersphere/raffle/pkg/logging"
	"github.com/ethersphere/raffle/pkg/sctx"
	"github.com/ethersphere/raffle/pkg/storage"
	"github.com/ethersphere/raffle/pkg/verify"
	"github.com/google/uuid"
)

const (
	TagAll     = "all"
	TagMocks   = "mocks"
	TagLottery = "lottery"
)

// ErrUnknownTag is returned when no script carries a requested tag.
var ErrUnknownTag = errors.New("unknown deploy tag")

// Env is what deploy scripts run with.
type Env struct {
	Logger      logging.Logger
	Network     *Network
	Deployer    *Deployer
	Deployments *Deployments
	// Verifier and Artifacts are used only on networks that are not
	// development networks and may be nil.
	Verifier  verify.Interface
	Artifacts *artifacts.Store
}

// Script is a named deploy step selected by its tags.
type Script struct {
	Name string
	Tags []string
	Run  func(ctx context.Context, env *Env) error
}

func (s Script) hasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Options configure a Runner.
type Options struct {
	Network   *Network
	Store     storage.StateStorer
	Verifier  verify.Interface
	Artifacts *artifacts.Store
	// Scripts default to DefaultScripts.
	Scripts []Script
}

// Runner runs deploy scripts in order.
type Runner struct {
	logger  logging.Logger
	env     *Env
	scripts []Script
	metrics metrics
}

func NewRunner(logger logging.Logger, o Options) *Runner {
	scripts := o.Scripts
	if scripts == nil {
		scripts = DefaultScripts()
	}

	r := &Runner{
		logger:  logger,
		scripts: scripts,
		metrics: newMetrics(),
	}
	deployments := NewDeployments(o.Store, o.Network.Name)
	r.env = &Env{
		Logger:      logger,
		Network:     o.Network,
		Deployer:    newDeployer(logger, o.Network, deployments, &r.metrics),
		Deployments: deployments,
		Verifier:    o.Verifier,
		Artifacts:   o.Artifacts,
	}
	return r
}

// Deployments returns the deployment records of the runner network.
func (r *Runner) Deployments() *Deployments {
	return r.env.Deployments
}

// Run runs every script that carries one of the tags, in script order. No
// tags selects the scripts tagged "all". The first failing script aborts
// the run.
func (r *Runner) Run(ctx context.Context, tags ...string) error {
	if len(tags) == 0 {
		tags = []string{TagAll}
	}

	var selected []Script
	for _, tag := range tags {
		found := false
		for _, s := range r.scripts {
			if s.hasTag(tag) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%q: %w", tag, ErrUnknownTag)
		}
	}
	for _, s := range r.scripts {
		for _, tag := range tags {
			if s.hasTag(tag) {
				selected = append(selected, s)
				break
			}
		}
	}

	runID := uuid.New().String()
	ctx = sctx.SetRunID(ctx, runID)
	logger := r.logger.WithField("run_id", runID)
	logger.Infof("deploying to network %s (chain id %d) with tags %v", r.env.Network.Name, r.env.Network.Config.ChainID, tags)

	for _, s := range selected {
		logger.Debugf("running deploy script %s", s.Name)
		r.metrics.ScriptRunCount.Inc()
		if err := s.Run(ctx, r.env); err != nil {
			r.metrics.ScriptFailedCount.Inc()
			return fmt.Errorf("deploy script %s: %w", s.Name, err)
		}
	}
	return nil
}
