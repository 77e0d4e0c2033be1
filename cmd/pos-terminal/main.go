// Command pos-terminal runs a single register on the terminal. Barcode
// scanners in keyboard mode can type straight into it.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xenking/scankart/internal/app"
	"github.com/xenking/scankart/internal/catalog"
	"github.com/xenking/scankart/internal/domain/receipt"
	"github.com/xenking/scankart/internal/printout"
	"github.com/xenking/scankart/internal/session"
	"github.com/xenking/scankart/internal/storage/bolt"
	"github.com/xenking/scankart/internal/terminal"
)

type options struct {
	catalogFile string
	journalPath string
	logLevel    string
	printout    app.PrintoutConfig
}

func main() {
	fs := ff.NewFlagSet("pos-terminal")
	var opts options
	fs.StringVar(&opts.catalogFile, 0, "catalog-file", "", "product feed (.json or .json.gz); empty uses the built-in demo catalog")
	fs.StringVar(&opts.journalPath, 0, "journal-path", "", "bbolt receipt journal file; empty keeps no journal")
	fs.StringVar(&opts.logLevel, 0, "log-level", "warn", "log level")
	fs.StringVar(&opts.printout.Locale, 0, "locale", "lo-LA", "BCP 47 locale for price formatting")
	fs.StringVar(&opts.printout.TimeZone, 0, "time-zone", "Asia/Vientiane", "IANA time zone printed on receipts")
	fs.IntVar(&opts.printout.Width, 0, "width", printout.DefaultWidth, "receipt width in columns")
	fs.StringVar(&opts.printout.Labels, 0, "labels", "lo", "receipt labels: lo or en")

	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("SCANKART")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	level, err := zapcore.ParseLevel(opts.logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(level)
	lg, err := logCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = lg.Sync() }()

	ctx := zctx.Base(context.Background(), lg)
	if err := run(ctx, opts); err != nil {
		lg.Error("Register failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	lg := zctx.From(ctx)

	var (
		products *catalog.Catalog
		err      error
	)
	if opts.catalogFile != "" {
		products, err = catalog.LoadFile(opts.catalogFile)
	} else {
		products, err = catalog.Default()
	}
	if err != nil {
		return errors.Wrap(err, "load catalog")
	}
	lg.Info("Catalog loaded", zap.Int("products", products.Len()))

	var journal receipt.Journal = receipt.NopJournal{}
	if opts.journalPath != "" {
		j, err := bolt.Open(opts.journalPath)
		if err != nil {
			return errors.Wrap(err, "open journal")
		}
		defer func() {
			if err := j.Close(); err != nil {
				lg.Warn("Close journal", zap.Error(err))
			}
		}()
		journal = j
	}

	printOpts, err := opts.printout.Options()
	if err != nil {
		return err
	}

	// One register, one session; it never idles out.
	svc, err := session.NewService(products, session.NewStore(1, 0), journal, session.Options{})
	if err != nil {
		return errors.Wrap(err, "create session service")
	}

	return terminal.New(svc, products, printout.New(printOpts), os.Stdin, os.Stdout).Run(ctx)
}
