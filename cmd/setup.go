// Copyright 2025 The Geocoding Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/spf13/cobra"

	"github.com/cppypanda/geocoding/address"
	"github.com/cppypanda/geocoding/keys"
	"github.com/cppypanda/geocoding/provider"
	"github.com/cppypanda/geocoding/resolve"
)

const dbFile = "geocoding.duckdb"

// Environment variables that seed one system key per provider on startup, so
// a fresh checkout works without touching the key database first.
var envKeys = map[string]string{
	"tianditu": "TIANDITU_KEY",
	"amap":     "AMAP_KEY",
	"baidu":    "BAIDU_KEY",
}

func openKeyStore() (*sql.DB, *keys.SQLStore, error) {
	if err := os.MkdirAll(dbPath, 0o750); err != nil {
		return nil, nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sql.Open("duckdb", filepath.Join(dbPath, dbFile))
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	store := keys.NewSQLStore(db)
	if err := store.CreateSchema(); err != nil {
		db.Close()

		return nil, nil, fmt.Errorf("creating key schema: %w", err)
	}

	if err := seedEnvKeys(store); err != nil {
		db.Close()

		return nil, nil, err
	}

	return db, store, nil
}

func seedEnvKeys(store keys.Store) error {
	for prov, env := range envKeys {
		value := os.Getenv(env)
		if value == "" {
			continue
		}

		_, err := store.Get(value)
		if err == nil {
			continue
		}

		if !errors.Is(err, keys.ErrKeyNotFound) {
			return fmt.Errorf("checking %s key: %w", prov, err)
		}

		if err := store.Insert(&keys.Key{
			Value:    value,
			Provider: prov,
			Owner:    keys.OwnerSystem,
			Status:   keys.StatusActive,
		}); err != nil {
			return fmt.Errorf("seeding %s key: %w", prov, err)
		}

		log.Printf("seeded %s key from $%s", prov, env)
	}

	return nil
}

type resolverOptions struct {
	Threshold       float64
	QPS             int
	EnableHTTPTrace bool
}

func addResolverFlags(cmd *cobra.Command, opts *resolverOptions) {
	cmd.PersistentFlags().Float64Var(
		&opts.Threshold,
		"threshold",
		resolve.DefaultThreshold,
		"Confidence at which the cascade stops consulting further providers",
	)
	cmd.PersistentFlags().IntVar(
		&opts.QPS,
		"qps",
		provider.DefaultQPS,
		"Max requests per second against each provider",
	)
	cmd.PersistentFlags().BoolVar(
		&opts.EnableHTTPTrace,
		"trace-http",
		false,
		"Display HTTP requests-responses",
	)
}

// buildResolver wires the provider cascade in its fixed priority order.
func buildResolver(manager *keys.Manager, opts *resolverOptions) *resolve.Resolver {
	popts := &provider.Options{
		QPS:             opts.QPS,
		EnableHTTPTrace: opts.EnableHTTPTrace,
	}
	scorer := resolve.NewScorer(address.NaiveParser{})

	return resolve.NewResolver(
		scorer,
		[]resolve.Geocoder{
			provider.NewTianditu(manager, popts),
			provider.NewAmap(manager, scorer, popts),
			provider.NewBaidu(manager, popts),
		},
		resolve.WithThreshold(opts.Threshold),
	)
}
