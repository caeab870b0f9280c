// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"github.com/ethersphere/raffle/pkg/crypto"
	"github.com/spf13/cobra"
)

func (c *command) initKeyCmd() {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Generate a deployer private key",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if len(args) > 0 {
				return cmd.Help()
			}

			key, err := crypto.GenerateSecp256k1Key()
			if err != nil {
				return err
			}
			address, err := crypto.EthereumAddress(key.PublicKey)
			if err != nil {
				return err
			}

			cmd.Printf("private key: %x\n", crypto.EncodeSecp256k1PrivateKey(key))
			cmd.Printf("address: %s\n", address)
			return nil
		},
	}

	c.root.AddCommand(cmd)
}
