package main

import (
	"fmt"

	"github.com/mvail/huffhide/pkg/stego"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	revealFlags struct {
		Image  string
		Out    string
		Pass   string
		Shield bool
	}
)

var revealCmd = &cobra.Command{
	Use:   "reveal",
	Short: "Reveal a message hidden in a JPEG image",
	Run: func(cmd *cobra.Command, args []string) {
		rArgs := &stego.RevealArgs{
			ImagePath:  &revealFlags.Image,
			Output:     &revealFlags.Out,
			Passphrase: &revealFlags.Pass,
			Shield:     &revealFlags.Shield,
			Verbose:    &verbose,
		}

		secret, err := stego.Reveal(rArgs)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to reveal message")
		}
		if revealFlags.Out == "" {
			fmt.Println(string(secret))
		}
	},
}

func init() {
	rootCmd.AddCommand(revealCmd)

	revealCmd.Flags().StringVarP(&revealFlags.Image, "image-path", "i", "", "Path to JPEG image (required)")
	revealCmd.MarkFlagRequired("image-path")
	revealCmd.Flags().StringVarP(&revealFlags.Out, "output", "o", "", "Output path for revealed message (optional)")
	revealCmd.Flags().StringVarP(&revealFlags.Pass, "passphrase", "p", "", "Passphrase to decrypt the message")
	revealCmd.Flags().BoolVar(&revealFlags.Shield, "ecc", false, "Expect a Reed-Solomon shielded payload")
}
