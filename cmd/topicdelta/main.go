// Package main provides the entry point for the topicdelta CLI tool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/topicdelta/cmd/topicdelta/commands"
	"github.com/Sumatoshi-tech/topicdelta/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCommand().ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &commands.GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "topicdelta",
		Short: "Delta extraction and reconstruction for version-aware topic modeling",
		Long: `topicdelta prepares a multi-version source corpus for delta topic modeling
and rebuilds per-version topic memberships from the model's output.

Commands:
  extract      Write per-version added/removed line artifacts
  reconstruct  Fold raw delta topic matrices into per-version memberships`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	commands.BindGlobalFlags(rootCmd, opts)

	rootCmd.AddCommand(commands.NewExtractCommand(opts))
	rootCmd.AddCommand(commands.NewReconstructCommand(opts))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "topicdelta %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
