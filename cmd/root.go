package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Benso1tana/MusicMasher/server"
)

var rootCmd = &cobra.Command{
	Use:   "musicmasher",
	Short: "MusicMasher is a multi-track audio timeline editor.",
	Run: func(cmd *cobra.Command, args []string) {
		// Running the bare binary starts the server.
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
