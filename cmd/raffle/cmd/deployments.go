// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/ethersphere/raffle/pkg/deploy"
	"github.com/ethersphere/raffle/pkg/node"
	"github.com/spf13/cobra"
)

func (c *command) initDeploymentsCmd() {
	cmd := &cobra.Command{
		Use:   "deployments",
		Short: "List the recorded deployments of a network",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if len(args) > 0 {
				return cmd.Help()
			}

			v := strings.ToLower(c.config.GetString(optionNameVerbosity))
			logger, err := newLogger(cmd, v)
			if err != nil {
				return fmt.Errorf("new logger: %w", err)
			}

			stateStore, err := node.InitStateStore(logger, c.config.GetString(optionNameDataDir))
			if err != nil {
				return err
			}
			defer stateStore.Close()

			network := c.config.GetString(optionNameNetwork)
			deployments, err := deploy.NewDeployments(stateStore, network).List()
			if err != nil {
				return err
			}
			if len(deployments) == 0 {
				cmd.Printf("no deployments on network %s\n", network)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tADDRESS\tBLOCK\tTRANSACTION")
			for _, d := range deployments {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", d.Name, d.Address, d.BlockNumber, d.TxHash)
			}
			return w.Flush()
		},
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return c.config.BindPFlags(cmd.Flags())
		},
	}

	cmd.Flags().String(optionNameNetwork, "hardhat", "name of the network")
	cmd.Flags().String(optionNameDataDir, c.dataDir(), "data directory")
	cmd.Flags().String(optionNameVerbosity, "info", "log verbosity level 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=trace")
	c.root.AddCommand(cmd)
}
