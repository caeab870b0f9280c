// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethersphere/raffle/pkg/deploy"
	"github.com/ethersphere/raffle/pkg/node"
	"github.com/ethersphere/raffle/pkg/sctx"
	"github.com/ethersphere/raffle/pkg/verify"
	"github.com/spf13/cobra"
)

// ErrInvalidGasPrice is returned for a gas price that is not a non-negative
// decimal amount of wei.
var ErrInvalidGasPrice = errors.New("invalid gas price")

func (c *command) initDeployCmd() {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Run the deploy scripts against a network",
		Long: `Run the deploy scripts selected by --tags against a network.

The "mocks" scripts deploy the VRF coordinator mock on development networks.
The "lottery" scripts deploy the lottery and, on other networks, submit its
source for verification when --verify is set. Without tags every script
tagged "all" runs.`,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if len(args) > 0 {
				return cmd.Help()
			}

			v := strings.ToLower(c.config.GetString(optionNameVerbosity))
			logger, err := newLogger(cmd, v)
			if err != nil {
				return fmt.Errorf("new logger: %w", err)
			}

			o, err := c.nodeOptions()
			if err != nil {
				return err
			}

			ctx, err := c.gasContext(cmd.Context())
			if err != nil {
				return err
			}

			n, err := node.New(ctx, logger, o)
			if err != nil {
				return err
			}
			defer n.Close()

			if err := n.Deploy(ctx, c.config.GetStringSlice(optionNameTags)...); err != nil {
				return err
			}

			deployments, err := n.Deployments().List()
			if err != nil {
				return err
			}
			for _, d := range deployments {
				cmd.Printf("%s deployed at %s (tx %s, block %d)\n", d.Name, d.Address, d.TxHash, d.BlockNumber)
			}
			if n.InProcess() {
				cmd.Println("network ran in process, deployments were discarded")
			}
			return nil
		},
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return c.config.BindPFlags(cmd.Flags())
		},
	}

	c.setNetworkFlags(cmd)
	cmd.Flags().StringSlice(optionNameTags, nil, fmt.Sprintf("deploy tags to run: %s, %s or %s", deploy.TagAll, deploy.TagMocks, deploy.TagLottery))
	cmd.Flags().Bool(optionNameVerify, false, "verify the lottery source on networks that are not development networks")
	cmd.Flags().String(optionNameEtherscanAPIKey, "", "block explorer api key, also read from "+etherscanAPIKeyEnv)
	cmd.Flags().String(optionNameEtherscanURL, verify.DefaultURL, "block explorer api url")
	cmd.Flags().String(optionNameGasPrice, "", "gas price in wei for deploy transactions, empty uses the suggested price")
	cmd.Flags().Uint64(optionNameGasLimit, 0, "gas limit for deploy transactions, 0 estimates each transaction")
	c.root.AddCommand(cmd)
}

// gasContext carries the gas price and limit flags to the transactions sent
// during the deploy run.
func (c *command) gasContext(ctx context.Context) (context.Context, error) {
	if p := c.config.GetString(optionNameGasPrice); p != "" {
		price, ok := new(big.Int).SetString(p, 10)
		if !ok || price.Sign() < 0 {
			return nil, fmt.Errorf("%q: %w", p, ErrInvalidGasPrice)
		}
		ctx = sctx.SetGasPrice(ctx, price)
	}
	if limit := c.config.GetUint64(optionNameGasLimit); limit > 0 {
		ctx = sctx.SetGasLimit(ctx, limit)
	}
	return ctx, nil
}
