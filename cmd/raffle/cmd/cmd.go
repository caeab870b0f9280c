// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ethersphere/raffle/pkg/config"
	"github.com/ethersphere/raffle/pkg/logging"
	"github.com/ethersphere/raffle/pkg/node"
	"github.com/ethersphere/raffle/pkg/verify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	optionNameNetwork         = "network"
	optionNameEndpoint        = "endpoint"
	optionNamePrivateKey      = "private-key"
	optionNameDataDir         = "data-dir"
	optionNameArtifactsDir    = "artifacts-dir"
	optionNameNetworksFile    = "networks-file"
	optionNameSubscriptionID  = "subscription-id"
	optionNameTags            = "tags"
	optionNameVerify          = "verify"
	optionNameEtherscanAPIKey = "etherscan-api-key"
	optionNameEtherscanURL    = "etherscan-url"
	optionNameBlockTime       = "block-time"
	optionNameVerbosity       = "verbosity"
	optionNameGasPrice        = "gas-price"
	optionNameGasLimit        = "gas-limit"
)

// etherscanAPIKeyEnv is read in addition to the prefixed variable.
const etherscanAPIKeyEnv = "ETHERSCAN_API_KEY"

func init() {
	cobra.EnableCommandSorting = false
}

type command struct {
	root    *cobra.Command
	config  *viper.Viper
	cfgFile string
	homeDir string
}

type option func(*command)

func newCommand(opts ...option) (c *command, err error) {
	c = &command{
		root: &cobra.Command{
			Use:           "raffle",
			Short:         "Deploy and inspect the verifiably random lottery",
			SilenceErrors: true,
			SilenceUsage:  true,
			PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
				return c.initConfig()
			},
		},
	}

	// flag defaults must not reset the options
	c.initGlobalFlags()

	for _, o := range opts {
		o(c)
	}

	// Find home directory.
	if err := c.setHomeDir(); err != nil {
		return nil, err
	}

	c.initDeployCmd()
	c.initDeploymentsCmd()
	c.initStatusCmd()
	c.initPendingCmd()
	c.initNetworksCmd()
	c.initKeyCmd()
	c.initVersionCmd()

	return c, nil
}

func (c *command) Execute() (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return c.root.ExecuteContext(ctx)
}

// Execute parses command line arguments and runs appropriate functions.
func Execute() (err error) {
	c, err := newCommand()
	if err != nil {
		return err
	}
	return c.Execute()
}

func (c *command) initGlobalFlags() {
	globalFlags := c.root.PersistentFlags()
	globalFlags.StringVar(&c.cfgFile, "config", "", "config file (default is $HOME/.raffle.yaml)")
}

func (c *command) initConfig() (err error) {
	config := viper.New()
	configName := ".raffle"
	if c.cfgFile != "" {
		// Use config file from the flag.
		config.SetConfigFile(c.cfgFile)
	} else {
		// Search config in home directory with name ".raffle" (without extension).
		config.AddConfigPath(c.homeDir)
		config.SetConfigName(configName)
	}

	// Environment
	config.SetEnvPrefix("raffle")
	config.AutomaticEnv() // read in environment variables that match
	config.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	if err := config.BindEnv(optionNameEtherscanAPIKey, etherscanAPIKeyEnv); err != nil {
		return err
	}

	if c.homeDir != "" && c.cfgFile == "" {
		c.cfgFile = filepath.Join(c.homeDir, configName+".yaml")
	}

	// If a config file is found, read it in.
	if err := config.ReadInConfig(); err != nil {
		var e viper.ConfigFileNotFoundError
		if !errors.As(err, &e) {
			return err
		}
	}
	c.config = config
	return nil
}

func (c *command) setHomeDir() (err error) {
	if c.homeDir != "" {
		return
	}
	dir, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	c.homeDir = dir
	return nil
}

func (c *command) dataDir() string {
	return filepath.Join(c.homeDir, ".raffle")
}

func (c *command) setNetworkFlags(cmd *cobra.Command) {
	cmd.Flags().String(optionNameNetwork, "hardhat", "name of the network to use")
	cmd.Flags().String(optionNameEndpoint, "", "ethereum json-rpc endpoint, empty runs development networks in process")
	cmd.Flags().String(optionNamePrivateKey, "", "hex encoded private key of the deployer")
	cmd.Flags().String(optionNameDataDir, c.dataDir(), "data directory")
	cmd.Flags().String(optionNameArtifactsDir, "artifacts", "directory of the compiled contract artifacts")
	cmd.Flags().String(optionNameNetworksFile, "", "yaml file with network parameter overrides keyed by chain id")
	cmd.Flags().Uint64(optionNameSubscriptionID, 0, "vrf subscription id, overrides the network configuration")
	cmd.Flags().Uint64(optionNameBlockTime, 15, "chain block time")
	cmd.Flags().String(optionNameVerbosity, "info", "log verbosity level 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=trace")
}

func (c *command) networks() (config.Networks, error) {
	path := c.config.GetString(optionNameNetworksFile)
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("networks file: %w", err)
	}
	defer f.Close()
	return config.LoadNetworks(f)
}

func (c *command) nodeOptions() (node.Options, error) {
	networks, err := c.networks()
	if err != nil {
		return node.Options{}, err
	}
	return node.Options{
		Network:        c.config.GetString(optionNameNetwork),
		Endpoint:       c.config.GetString(optionNameEndpoint),
		PrivateKey:     c.config.GetString(optionNamePrivateKey),
		DataDir:        c.config.GetString(optionNameDataDir),
		ArtifactsDir:   c.config.GetString(optionNameArtifactsDir),
		Networks:       networks,
		SubscriptionID: c.config.GetUint64(optionNameSubscriptionID),
		BlockTime:      c.config.GetUint64(optionNameBlockTime),
		Verify: verify.Options{
			Enabled: c.config.GetBool(optionNameVerify),
			APIKey:  c.config.GetString(optionNameEtherscanAPIKey),
			URL:     c.config.GetString(optionNameEtherscanURL),
		},
	}, nil
}

func newLogger(cmd *cobra.Command, verbosity string) (logging.Logger, error) {
	level, enabled, err := logging.ParseVerbosity(verbosity)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return logging.New(ioutil.Discard, 0), nil
	}
	return logging.New(cmd.ErrOrStderr(), level), nil
}
