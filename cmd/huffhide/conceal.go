package main

import (
	"os"
	"path/filepath"

	"github.com/mvail/huffhide/pkg/stego"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	concealFlags struct {
		Image  string
		Msg    string
		File   string
		Out    string
		Pass   string
		Shield bool
	}
)

var concealCmd = &cobra.Command{
	Use:   "conceal",
	Short: "Conceal a message in a JPEG image",
	Run: func(cmd *cobra.Command, args []string) {
		if concealFlags.Msg != "" && concealFlags.File != "" {
			log.Fatal().Msg("message and file flags cannot both be provided")
		}
		if concealFlags.Msg == "" && concealFlags.File == "" {
			log.Fatal().Msg("either a message or a file must be provided")
		}

		if concealFlags.Out != "" {
			if err := os.MkdirAll(filepath.Dir(concealFlags.Out), 0755); err != nil {
				log.Fatal().Err(err).Msg("Failed to create output directory")
			}
		}

		cArgs := &stego.ConcealArgs{
			ImagePath:  &concealFlags.Image,
			Output:     &concealFlags.Out,
			Message:    &concealFlags.Msg,
			File:       &concealFlags.File,
			Passphrase: &concealFlags.Pass,
			Shield:     &concealFlags.Shield,
			Verbose:    &verbose,
		}

		if err := stego.Conceal(cArgs); err != nil {
			log.Fatal().Err(err).Msg("Failed to conceal message")
		}
	},
}

func init() {
	rootCmd.AddCommand(concealCmd)

	concealCmd.Flags().StringVarP(&concealFlags.Image, "image-path", "i", "", "Path to baseline JPEG image (required)")
	concealCmd.MarkFlagRequired("image-path")
	concealCmd.Flags().StringVarP(&concealFlags.Msg, "message", "m", "", "Message you want to conceal")
	concealCmd.Flags().StringVarP(&concealFlags.File, "file", "f", "", "Path to file to conceal (overrides message)")
	concealCmd.Flags().StringVarP(&concealFlags.Out, "output", "o", "", "Output path for the image (default: <image>.out)")
	concealCmd.Flags().StringVarP(&concealFlags.Pass, "passphrase", "p", "", "Passphrase to encrypt the message")
	concealCmd.Flags().BoolVar(&concealFlags.Shield, "ecc", false, "Wrap the payload in Reed-Solomon parity")
}
