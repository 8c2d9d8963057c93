package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Benso1tana/MusicMasher/config"
	"github.com/Benso1tana/MusicMasher/core/audio"
)

// decodeCmd probes files through the same decoder the import path uses.
// Handy for checking whether a file will import before dragging it in.
var decodeCmd = &cobra.Command{
	Use:   "decode [files...]",
	Short: "Probe audio files through the import decoder",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		dec := audio.NewDecoder(cfg.FFmpegPath, cfg.SampleRate)

		failed := 0
		for _, path := range args {
			raw, err := os.ReadFile(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
				failed++
				continue
			}

			buf, err := dec.Decode(context.Background(), raw)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
				failed++
				continue
			}

			fmt.Printf("%s: %d ch, %d Hz, %.3fs (%d frames)\n",
				path, buf.Channels, buf.SampleRate, buf.Duration(), buf.Frames())
		}

		if failed > 0 {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}
