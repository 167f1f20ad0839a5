// Copyright 2025 The Geocoding Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/cppypanda/geocoding/address"
	"github.com/cppypanda/geocoding/keys"
	"github.com/cppypanda/geocoding/resolve"
)

var geocodeOptions = &resolverOptions{}

var geocodeInput string

var geocodeCmd = &cobra.Command{
	Use:   "geocode [address ...]",
	Short: "Resolve addresses to coordinates through the provider cascade",
	Long: `Resolves each address through the provider cascade and prints one
tab-separated line per input: address, provider, confidence, formatted
address, longitude and latitude (WGS84). Unresolvable addresses come out with
an empty provider and "-" as the formatted address.

Addresses come from the arguments, from --input, or one per line on stdin:

  geocoding geocode 北京市海淀区中关村1号
  geocoding geocode --input addresses.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addresses, err := readAddresses(args)
		if err != nil {
			return err
		}

		if len(addresses) == 0 {
			return fmt.Errorf("no addresses to resolve")
		}

		db, store, err := openKeyStore()
		if err != nil {
			return err
		}
		defer db.Close()

		resolver := buildResolver(keys.NewManager(store), geocodeOptions)

		parser := address.NaiveParser{}

		queries := make([]resolve.Query, len(addresses))
		for i, text := range addresses {
			admin, _ := parser.Parse(text)
			queries[i] = resolve.Query{
				RawText:       text,
				Admin:         admin,
				CompletedText: address.Complete(admin),
			}
		}

		var bar *progressbar.ProgressBar
		if isatty.IsTerminal(os.Stderr.Fd()) && len(addresses) > 1 {
			bar = progressbar.NewOptions(len(addresses),
				progressbar.OptionSetDescription("Resolving"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}

		// The batch runs one concurrent cascade per address, throttled only
		// by the per-provider rate limiters; the bar ticks as each finishes.
		var done func(*resolve.ResolutionResult)
		if bar != nil {
			done = func(*resolve.ResolutionResult) { _ = bar.Add(1) }
		}

		results := resolver.ResolveBatch(cmd.Context(), queries, done)

		failed := 0

		for i, result := range results {
			printResolution(os.Stdout, addresses[i], result)

			if result.Failed() {
				failed++
			}
		}

		if failed > 0 {
			log.Printf("%d of %d addresses could not be resolved", failed, len(addresses))
		}

		return cmd.Context().Err()
	},
}

func readAddresses(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}

	input := os.Stdin
	if geocodeInput != "" {
		f, err := os.Open(geocodeInput)
		if err != nil {
			return nil, fmt.Errorf("opening input file: %w", err)
		}
		defer f.Close()

		input = f
	} else if isatty.IsTerminal(os.Stdin.Fd()) {
		fmt.Fprintln(os.Stderr, "Reading addresses from stdin, one per line…")
	}

	var out []string

	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			out = append(out, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading addresses: %w", err)
	}

	return out, nil
}

func printResolution(w io.Writer, input string, result *resolve.ResolutionResult) {
	winner := result.Winner

	lng, lat := "", ""
	if winner.WGS84 != nil {
		lng = fmt.Sprintf("%.6f", winner.WGS84.Lng)
		lat = fmt.Sprintf("%.6f", winner.WGS84.Lat)
	}

	fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t%s\t%s\n",
		input,
		winner.Provider,
		winner.Confidence,
		winner.FormattedAddress,
		lng,
		lat,
	)
}

func init() {
	rootCmd.AddCommand(geocodeCmd)
	addResolverFlags(geocodeCmd, geocodeOptions)
	geocodeCmd.PersistentFlags().StringVar(
		&geocodeInput,
		"input",
		"",
		"File with one address per line; defaults to stdin",
	)
}
