// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/ethersphere/raffle/pkg/node"
	"github.com/spf13/cobra"
)

func (c *command) initStatusCmd() {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the state of the deployed lottery",
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

			ctx := cmd.Context()

			n, err := node.New(ctx, logger, o)
			if err != nil {
				return err
			}
			defer n.Close()

			contract, err := n.Lottery()
			if err != nil {
				return err
			}

			state, err := contract.LotteryState(ctx)
			if err != nil {
				return err
			}
			fee, err := contract.EntranceFee(ctx)
			if err != nil {
				return err
			}
			players, err := contract.NumberOfPlayers(ctx)
			if err != nil {
				return err
			}
			interval, err := contract.Interval(ctx)
			if err != nil {
				return err
			}
			latest, err := contract.LatestTimeStamp(ctx)
			if err != nil {
				return err
			}
			winner, err := contract.RecentWinner(ctx)
			if err != nil {
				return err
			}
			balance, err := n.Network.Backend.BalanceAt(ctx, contract.Address(), nil)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 1, ' ', 0)
			fmt.Fprintf(w, "lottery:\t%s\n", contract.Address())
			fmt.Fprintf(w, "state:\t%s\n", state)
			fmt.Fprintf(w, "entrance fee:\t%s\n", fee)
			fmt.Fprintf(w, "players:\t%s\n", players)
			fmt.Fprintf(w, "balance:\t%s\n", balance)
			fmt.Fprintf(w, "interval:\t%ss\n", interval)
			fmt.Fprintf(w, "latest timestamp:\t%s\n", latest)
			fmt.Fprintf(w, "recent winner:\t%s\n", winner)
			return w.Flush()
		},
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return c.config.BindPFlags(cmd.Flags())
		},
	}

	c.setNetworkFlags(cmd)
	c.root.AddCommand(cmd)
}
