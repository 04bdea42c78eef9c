/*
Copyright 2026 The MPPDB Authors.

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

// Package cli holds the cobra commands of the coordinator binary.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/mppdb/coordinator/go/vt/log"
	"github.com/mppdb/coordinator/go/vt/servenv"

	// The memory backend is always available; others are linked by main.
	_ "github.com/mppdb/coordinator/go/vt/leader/memoryleader"
)

// Main is the root command.
var Main = &cobra.Command{
	Use:   "coordinator",
	Short: "coordinator plans distributed queries and serves job status.",
	Long: "`coordinator` compiles analyzed statements into distributed plans and " +
		"serves the load job status API, redirecting reads to the group leader.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return log.Init(cmd.Flags())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.Flush()
	},
	Version: servenv.AppVersion.String(),
}

func init() {
	log.RegisterFlags(Main.PersistentFlags())
	Main.AddCommand(Serve, Explain, HashPassword)
}
