package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/mvail/huffhide/pkg/stego"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var capacityCmd = &cobra.Command{
	Use:   "capacity [image-path]",
	Short: "Calculate the storage capacity of a JPEG's Huffman tables",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(args[0])
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read image")
		}

		report, err := stego.Capacity(data)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to compute capacity")
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TABLE\tGROUPS\tORDERINGS")
		for _, t := range report.Tables {
			class := "DC"
			if t.Class == 1 {
				class = "AC"
			}
			fmt.Fprintf(w, "%s%d\t%v\t%s\n", class, t.ID, t.GroupSizes, t.Capacity)
		}
		w.Flush()

		fmt.Printf("\nTotal addressable space: %d bits\n", report.Total.BitLen()-1)
		fmt.Printf("Maximum secret size:     %d bytes\n", report.MaxSecretBytes)
	},
}

func init() {
	rootCmd.AddCommand(capacityCmd)
}
