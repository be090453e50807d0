// Package main is the entry point for the samantha CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"samantha/pkg/version"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "samantha",
	Short: "samantha - LINE chat bot and admin dashboard",
	Long: `samantha is the crew chat bot: it answers ?commands on LINE with
stored replies, the weekly agenda, and cinema schedules, and hosts the
admin dashboard for managing commands and users.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.GetFullVersion())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(warmCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
