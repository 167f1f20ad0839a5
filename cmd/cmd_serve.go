// Copyright 2025 The Geocoding Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cppypanda/geocoding/address"
	"github.com/cppypanda/geocoding/keys"
	"github.com/cppypanda/geocoding/resolve"
)

var serveOptions = &resolverOptions{}

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the geocoding HTTP server",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		db, store, err := openKeyStore()
		if err != nil {
			return err
		}
		defer db.Close()

		resolver := buildResolver(keys.NewManager(store), serveOptions)
		server := resolve.NewServer(resolver, address.NaiveParser{})

		fmt.Printf("🗺️  Geocoding server listening on %s\n", serveAddr)

		return server.Run(serveAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addResolverFlags(serveCmd, serveOptions)
	serveCmd.PersistentFlags().StringVar(
		&serveAddr,
		"addr",
		":8080",
		"Address to listen on",
	)
}
