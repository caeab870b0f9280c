// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

func (c *command) initNetworksCmd() {
	cmd := &cobra.Command{
		Use:   "networks",
		Short: "List the network configurations",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if len(args) > 0 {
				return cmd.Help()
			}

			networks, err := c.networks()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CHAIN ID\tNAME\tENTRANCE FEE\tINTERVAL\tCALLBACK GAS\tCONFIRMATIONS\tVRF COORDINATOR\tSUBSCRIPTION")
			for _, id := range networks.ChainIDs() {
				cfg, _ := networks.Lookup(id)
				coordinator := "mock"
				if cfg.VRFCoordinator != (common.Address{}) {
					coordinator = cfg.VRFCoordinator.String()
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%ds\t%d\t%d\t%s\t%d\n",
					cfg.ChainID, cfg.Name, cfg.EntranceFee, cfg.Interval, cfg.CallbackGasLimit,
					cfg.BlockConfirmations, coordinator, cfg.SubscriptionID)
			}
			return w.Flush()
		},
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return c.config.BindPFlags(cmd.Flags())
		},
	}

	cmd.Flags().String(optionNameNetworksFile, "", "yaml file with network parameter overrides keyed by chain id")
	c.root.AddCommand(cmd)
}
