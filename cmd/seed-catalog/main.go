// Command seed-catalog loads a product feed into the products table.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/scankart/internal/catalog"
	"github.com/xenking/scankart/internal/storage/postgres"
)

func main() {
	fs := ff.NewFlagSet("seed-catalog")
	var (
		databaseURL = fs.StringLong("database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
		feed        = fs.StringLong("catalog-file", "db/seed/products.json", "product feed, .json or .json.gz")
		workers     = fs.IntLong("workers", 8, "concurrent upserts")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("SCANKART")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *databaseURL == "" {
		*databaseURL = os.Getenv("DATABASE_URL")
	}
	if *databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, *databaseURL, *feed, max(*workers, 1)); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, feed string, workers int) error {
	slog.Info("reading product feed", slog.String("path", feed))

	products, err := catalog.ReadFile(feed)
	if err != nil {
		return errors.Wrap(err, "read feed")
	}
	// Reject duplicates and bad prices before touching the database.
	if _, err := catalog.New(products); err != nil {
		return errors.Wrap(err, "validate feed")
	}

	slog.Info("connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := postgres.NewProductRepository(pool)
	slog.Info("upserting products", slog.Int("count", len(products)), slog.Int("workers", workers))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, p := range products {
		g.Go(func() error {
			if err := repo.Upsert(gCtx, p); err != nil {
				return errors.Wrapf(err, "upsert product %s", p.Barcode)
			}
			slog.Debug("upserted product", slog.String("barcode", p.Barcode), slog.String("name", p.Name))
			return nil
		})
	}
	return g.Wait()
}
