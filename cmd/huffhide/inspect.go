package main

import (
	"fmt"
	"os"

	"github.com/mvail/huffhide/pkg/stego"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [image-path]",
	Short: "Dump the marker segments of a JPEG file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(args[0])
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read image")
		}

		infos, err := stego.Inspect(data)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to parse image")
		}

		for _, info := range infos {
			fmt.Printf("[%06X] FF%02X %-4s", info.Offset, info.Marker, info.Name)
			if info.Length > 0 {
				fmt.Printf(" len=%d", info.Length)
			}
			if info.Summary != "" {
				fmt.Printf("  %s", info.Summary)
			}
			fmt.Println()
		}
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
