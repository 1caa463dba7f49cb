package main

import (
	"github.com/spf13/cobra"
)

// Version is set at build time
var Version = "dev"

var (
	rootDir      string
	outputFormat string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "linttrack",
	Short: "linttrack - change-set analysis and issue tracking",
	Long: `linttrack analyzes the locally changed files of workspace projects and keeps
a stable identity for every issue across analyses, reconciled with the issues
known by the remote issue server.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("linttrack version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "Workspace root (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", string(FormatHuman), "Output format (human, json, yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}
