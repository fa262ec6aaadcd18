/*
Copyright 2025 LeadForge Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/leadforge/leadforge"
	"github.com/leadforge/leadforge/config"
	"github.com/leadforge/leadforge/internal/notification"
	redis_db "github.com/leadforge/leadforge/internal/redis-db"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// CLI wraps the root Cobra command.
type CLI struct {
	cmd *cobra.Command
}

// forgeInstance holds the service instance and its configuration for the
// lifetime of a command.
type forgeInstance struct {
	forge *leadforge.LeadForge
	cnf   *config.Configuration
}

// recoverPanic handles any panics during program execution and logs the error.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and initializes the service before running
// any command.
func preRun(app *forgeInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("leadforge.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newForge, err := setupForge(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.forge = newForge
		app.cnf = cnf

		return nil
	}
}

// setupForge builds the service over a session manager for the configured
// store. In production an unreachable store is fatal here; in development
// the session manager falls back to the embedded stand-in.
func setupForge(cfg *config.Configuration) (*leadforge.LeadForge, error) {
	sessions := redis_db.NewSessionManager(cfg.Redis.Dns, cfg.Redis.SkipTLSVerify, cfg.Production())
	newForge, err := leadforge.NewLeadForge(sessions)
	if err != nil {
		return nil, fmt.Errorf("error creating leadforge: %v", err)
	}
	return newForge, nil
}

// NewCLI creates the command-line interface with the server and worker
// subcommands.
func NewCLI() *CLI {
	var configFile string
	b := &forgeInstance{}

	var rootCmd = &cobra.Command{
		Use:   "leadforge",
		Short: "Multi-tenant lead enrichment server",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./leadforge.json", "Configuration file for leadforge")

	rootCmd.PersistentPreRunE = preRun(b)

	rootCmd.AddCommand(serverCommands(b))
	rootCmd.AddCommand(workerCommands(b))

	return &CLI{cmd: rootCmd}
}

func (w CLI) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
