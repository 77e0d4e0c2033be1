// Package terminal implements a line-oriented register on top of a session:
// a barcode scanner in keyboard-wedge mode types a barcode and Enter, and
// the cashier types short commands for everything else.
package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/scankart/internal/domain/cart"
	"github.com/xenking/scankart/internal/domain/product"
	"github.com/xenking/scankart/internal/printout"
	"github.com/xenking/scankart/internal/session"
)

// SampleCount is how many catalog entries the samples command lists.
const SampleCount = 4

// Samples lists catalog entries for the samples command.
type Samples interface {
	Samples(n int) []product.Product
}

// Register reads commands from in and writes the cart and receipts to out.
type Register struct {
	sessions *session.Service
	samples  Samples
	printer  *printout.Printer

	in  *bufio.Scanner
	out io.Writer
	id  string
}

// New creates a register. Run opens its session.
func New(sessions *session.Service, samples Samples, printer *printout.Printer, in io.Reader, out io.Writer) *Register {
	return &Register{
		sessions: sessions,
		samples:  samples,
		printer:  printer,
		in:       bufio.NewScanner(in),
		out:      out,
	}
}

// errQuit stops the loop without an error.
var errQuit = errors.New("quit")

// Run serves commands until quit, end of input or ctx cancellation.
func (r *Register) Run(ctx context.Context) error {
	v := r.sessions.Open(ctx)
	r.id = v.SessionID
	defer func() {
		if err := r.sessions.Close(context.WithoutCancel(ctx), r.id); err != nil {
			zctx.From(ctx).Warn("Close session", zap.Error(err))
		}
	}()

	r.printf("Register ready. Scan a barcode or type help.\n")
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		r.printf("> ")
		line, ok := r.readLine()
		if !ok {
			return r.in.Err()
		}
		if line == "" {
			continue
		}

		err := r.exec(ctx, line)
		switch {
		case err == nil:
		case errors.Is(err, errQuit):
			return nil
		case errors.Is(err, cart.ErrUnknownBarcode):
			r.printf("%v\n", err)
		case errors.Is(err, cart.ErrInvalidQuantity):
			r.printf("%v, at most %d per line.\n", err, cart.MaxQuantity)
		case errors.Is(err, cart.ErrItemNotInCart):
			r.printf("Not in cart.\n")
		case errors.Is(err, session.ErrEmptyCart):
			r.printf("Cart is empty, nothing to print.\n")
		case errors.As(err, new(usageError)):
			r.printf("%v\n", err)
		default:
			return err
		}
	}
}

func (r *Register) readLine() (string, bool) {
	if !r.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(r.in.Text()), true
}

func (r *Register) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

type usageError string

func (e usageError) Error() string { return "usage: " + string(e) }

func usage(format string, args ...any) error {
	return usageError(fmt.Sprintf(format, args...))
}

// exec runs one command line. Mutations re-render the cart.
func (r *Register) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	var (
		v   session.View
		err error
	)
	switch cmd {
	case "quit", "exit", "q":
		return errQuit
	case "help", "?":
		r.help()
		return nil
	case "samples":
		for _, p := range r.samples.Samples(SampleCount) {
			r.printf("  %-15s %s  %s\n", p.Barcode, r.printer.Money(p.UnitPrice), p.Name)
		}
		return nil
	case "list":
		if v, err = r.sessions.Cart(ctx, r.id); err != nil {
			return err
		}
		r.render(v)
		return nil
	case "print":
		return r.print(ctx)
	case "clear":
		if !r.confirm("Clear the cart? [y/N] ") {
			return nil
		}
		v, err = r.sessions.Clear(ctx, r.id)
	case "+", "-":
		if len(args) != 1 {
			return usage("%s <barcode>", cmd)
		}
		delta := 1
		if cmd == "-" {
			delta = -1
		}
		v, err = r.sessions.Adjust(ctx, r.id, args[0], delta)
	case "qty":
		if len(args) != 2 {
			return usage("qty <barcode> <n>")
		}
		n, convErr := strconv.Atoi(args[1])
		if convErr != nil {
			return usage("qty <barcode> <n>: %q is not a number", args[1])
		}
		v, err = r.sessions.SetQuantity(ctx, r.id, args[0], n)
	case "rm":
		if len(args) != 1 {
			return usage("rm <barcode>")
		}
		v, err = r.sessions.Remove(ctx, r.id, args[0])
	default:
		if len(fields) != 1 {
			return usage("unknown command %q, type help", cmd)
		}
		v, err = r.sessions.Scan(ctx, r.id, cmd)
	}
	if err != nil {
		return err
	}
	r.render(v)
	return nil
}

func (r *Register) confirm(prompt string) bool {
	r.printf("%s", prompt)
	answer, ok := r.readLine()
	return ok && strings.EqualFold(answer, "y")
}

func (r *Register) print(ctx context.Context) error {
	rc, err := r.sessions.IssueReceipt(ctx, r.id)
	if err != nil {
		return err
	}
	r.printf("\n")
	if err := r.printer.Text(r.out, rc); err != nil {
		return errors.Wrap(err, "render receipt")
	}
	r.printf("\n")
	return nil
}

// render prints one line per item and the total.
func (r *Register) render(v session.View) {
	if v.Empty() {
		r.printf("(empty cart)\n")
		return
	}
	for _, li := range v.Items {
		r.printf("  %-15s %3d x %-14s %s  %s\n",
			li.Barcode, li.Quantity, r.printer.FormatPrice(li.UnitPrice),
			r.printer.FormatPrice(li.Subtotal()), li.Name)
	}
	r.printf("  %d item(s), total %s\n", v.Units, r.printer.Money(v.Total))
}

func (r *Register) help() {
	r.printf(`Commands:
  <barcode>            add one unit
  + <barcode>          increase quantity by one
  - <barcode>          decrease quantity by one
  qty <barcode> <n>    set quantity, 0 removes the line
  rm <barcode>         remove the line
  clear                empty the cart
  list                 show the cart
  samples              show sample barcodes
  print                print the receipt
  help                 show this help
  quit                 leave
`)
}
