package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Benso1tana/MusicMasher/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the timeline editor server",
	Long:  `Start the HTTP server hosting the editing session: track upload, transport control, and the browser playback bridge.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
