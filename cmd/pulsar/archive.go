// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/blinklabs-io/pulsar/archive"
	"github.com/blinklabs-io/pulsar/badge"
	"github.com/blinklabs-io/pulsar/database"
	"github.com/blinklabs-io/pulsar/governance"
	"github.com/blinklabs-io/pulsar/internal/config"
	"github.com/blinklabs-io/pulsar/token"
)

func openDatabase(cfg *config.Config, logger *slog.Logger) (*database.Database, error) {
	db, err := database.New(&database.Config{
		DataDir:        cfg.DatabasePath,
		Logger:         logger,
		BlobPlugin:     cfg.BlobPlugin,
		MetadataPlugin: cfg.MetadataPlugin,
	})
	if err != nil {
		// The index is rebuilt after an import, so a stale one is fine here
		var dbErr database.CommitTimestampError
		if db != nil && errors.As(err, &dbErr) {
			return db, nil
		}
		if db != nil {
			_ = db.Close()
		}
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func openSink(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	location string,
) (archive.Sink, error) {
	return archive.OpenSink(
		ctx,
		location,
		archive.WithSinkLogger(logger),
		archive.WithGCSCredentialsFile(cfg.SnapshotGcsCredentialsFile),
		archive.WithS3Region(cfg.SnapshotS3Region),
	)
}

func exportRun(
	cmd *cobra.Command,
	location string,
	name string,
	noEncrypt bool,
) error {
	cfg := configFromCommand(cmd)
	logger := commonRun()
	ctx := cmd.Context()
	if name == "" {
		name = fmt.Sprintf("%s-%d.snapshot", programName, time.Now().Unix())
	}
	db, err := openDatabase(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	sink, err := openSink(ctx, cfg, logger, location)
	if err != nil {
		return err
	}
	defer sink.Close()
	opts := []archive.OptionFunc{archive.WithLogger(logger)}
	if noEncrypt {
		opts = append(opts, archive.WithEncryption(false))
	}
	res, err := archive.Export(ctx, db, sink, name, opts...)
	if err != nil {
		return err
	}
	fmt.Printf("exported %d entries to %s/%s\n", res.Entries, location, res.Name)
	return nil
}

func importRun(cmd *cobra.Command, location string, name string) error {
	cfg := configFromCommand(cmd)
	logger := commonRun()
	ctx := cmd.Context()
	db, err := openDatabase(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	sink, err := openSink(ctx, cfg, logger, location)
	if err != nil {
		return err
	}
	defer sink.Close()
	res, err := archive.Import(ctx, db, sink, name, archive.WithLogger(logger))
	if err != nil {
		return err
	}
	ledger := token.New(db, token.WithLogger(logger))
	auth, err := governance.New(
		db,
		ledger,
		badge.New(db, ledger),
		governance.WithLogger(logger),
		governance.WithPolicy(cfg.Policy),
	)
	if err != nil {
		return err
	}
	if err := auth.Reindex(ctx); err != nil {
		return fmt.Errorf("rebuilding index: %w", err)
	}
	fmt.Printf("imported %d entries from %s/%s\n", res.Entries, location, res.Name)
	return nil
}

func exportCommand() *cobra.Command {
	var name string
	var noEncrypt bool
	cmd := &cobra.Command{
		Use:   "export <location>",
		Short: "Export a state snapshot to a directory, gs:// or s3:// location",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := exportRun(cmd, args[0], name, noEncrypt); err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
		},
	}
	cmd.Flags().
		StringVar(&name, "name", "", "snapshot name (default pulsar-<unix time>.snapshot)")
	cmd.Flags().
		BoolVar(&noEncrypt, "no-encrypt", false, "skip SOPS encryption even when master keys are configured")
	return cmd
}

func importCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <location> <name>",
		Short: "Import a state snapshot into an empty database",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			if err := importRun(cmd, args[0], args[1]); err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
		},
	}
	return cmd
}
