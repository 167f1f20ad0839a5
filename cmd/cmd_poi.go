// Copyright 2025 The Geocoding Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cppypanda/geocoding/address"
	"github.com/cppypanda/geocoding/keys"
	"github.com/cppypanda/geocoding/resolve"
)

var poiOptions = &resolverOptions{}

var poiCmd = &cobra.Command{
	Use:   "poi <keyword>",
	Short: "Search places of interest across all providers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, store, err := openKeyStore()
		if err != nil {
			return err
		}
		defer db.Close()

		resolver := buildResolver(keys.NewManager(store), poiOptions)

		parser := address.NaiveParser{}
		admin, _ := parser.Parse(args[0])

		places := resolver.SearchPOI(cmd.Context(), resolve.Query{
			RawText:       args[0],
			Admin:         admin,
			CompletedText: address.Complete(admin),
		})

		if len(places) == 0 {
			fmt.Println("No places found.")

			return nil
		}

		a, b, c, d := strings.Repeat("─", 8), strings.Repeat("─", 24), strings.Repeat("─", 40), strings.Repeat("─", 21)
		fmt.Printf("╭─%8s─┬─%-24s─┬─%-40s─┬─%-21s╮\n", a, b, c, d)
		fmt.Printf("│ %8s │ %-24s │ %-40s │ %-21s│\n", "Conf", "Name", "Address", "WGS84")
		fmt.Printf("├─%8s─┼─%-24s─┼─%-40s─┼─%-21s┤\n", a, b, c, d)

		for _, p := range places {
			coords := ""
			if p.WGS84 != nil {
				coords = fmt.Sprintf("%.5f,%.5f", p.WGS84.Lng, p.WGS84.Lat)
			}

			fmt.Printf("│ %8.2f │ %-24s │ %-40s │ %-21s│\n",
				p.Confidence, p.Name, p.FormattedAddress, coords)
		}

		fmt.Printf("╰─%8s─┴─%-24s─┴─%-40s─┴─%-21s╯\n", a, b, c, d)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(poiCmd)
	addResolverFlags(poiCmd, poiOptions)
}
