// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ethersphere/raffle/pkg/node"
	"github.com/spf13/cobra"
)

const optionNameResend = "resend"

func (c *command) initPendingCmd() {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List the unconfirmed deployer transactions of a network",
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

			pending, err := n.PendingTransactions()
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				cmd.Printf("no pending transactions on network %s\n", o.Network)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "HASH\tNONCE\tTO\tCREATED\tDESCRIPTION")
			for _, tx := range pending {
				to := "contract creation"
				if tx.To != nil {
					to = tx.To.String()
				}
				created := time.Unix(tx.Created, 0).UTC().Format(time.RFC3339)
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", tx.Hash, tx.Nonce, to, created, tx.Description)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if !c.config.GetBool(optionNameResend) {
				return nil
			}
			resent, err := n.ResendPending(ctx)
			for _, txHash := range resent {
				cmd.Printf("resent %s\n", txHash)
			}
			return err
		},
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return c.config.BindPFlags(cmd.Flags())
		},
	}

	c.setNetworkFlags(cmd)
	cmd.Flags().Bool(optionNameResend, false, "send the pending transactions to the network again")
	c.root.AddCommand(cmd)
}
