// Copyright 2025 The Geocoding Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/cppypanda/geocoding/address"
)

// isTerminal is a cheap stat-based check; when in doubt (e.g. stat fails)
// we say that it isn't.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}

	return (info.Mode() & os.ModeCharDevice) != 0
}

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dev tools",
}

var debugAddressCmd = &cobra.Command{
	Use:   "address",
	Short: "Interact with the address parsing module",
	Long: `Reads one address per line and prints the address followed by the parsed
administrative division and the normalized completed form.

$ echo 北京市海淀区中关村1号 | geocoding debug address
北京市海淀区中关村1号		{"province":"北京市","city":"北京市","county":"海淀区","detail":"中关村1号"}	北京市海淀区中关村1号
	`,
	Run: func(_ *cobra.Command, _ []string) {
		input := os.Stdin
		if isTerminal(input) {
			fmt.Fprintln(os.Stderr, "Enter addresses to parse, one per line…")
		}

		parser := address.NaiveParser{}

		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			text := scanner.Text()

			parsed, err := parser.Parse(text)
			if err != nil {
				fmt.Printf("%s\t%q\n", text, err)

				continue
			}

			s, err := json.Marshal(parsed)
			if err != nil {
				log.Fatal(err)
			}

			fmt.Printf("%s\t\t%s\t%s\n", text, s, address.Complete(parsed))
		}

		if err := scanner.Err(); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugAddressCmd)
}
