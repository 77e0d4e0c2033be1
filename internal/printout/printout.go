// Package printout renders receipts for thermal printers and print windows
// and formats amounts for display in the register's locale.
package printout

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultWidth is the column count of a 58mm thermal roll.
const DefaultWidth = 32

// Labels holds the fixed strings printed on a receipt.
type Labels struct {
	Title    string
	Total    string
	Footer   string
	Currency string
	Ornament string
	Months   [12]string
}

// LaoLabels returns the labels used by the register out of the box.
func LaoLabels() Labels {
	return Labels{
		Title:    "ໃບເສັດການຂາຍ",
		Total:    "ລວມທັງໝົດ:",
		Footer:   "ຂອບໃຈທີ່ໃຊ້ບໍລິການ",
		Currency: "ກີບ",
		Ornament: "◈◈◈",
		Months: [12]string{
			"ມັງກອນ", "ກຸມພາ", "ມີນາ", "ເມສາ", "ພຶດສະພາ", "ມິຖຸນາ",
			"ກໍລະກົດ", "ສິງຫາ", "ກັນຍາ", "ຕຸລາ", "ພະຈິກ", "ທັນວາ",
		},
	}
}

// EnglishLabels returns English receipt labels.
func EnglishLabels() Labels {
	return Labels{
		Title:    "Sales Receipt",
		Total:    "Total:",
		Footer:   "Thank you for shopping with us",
		Currency: "LAK",
		Ornament: "***",
		Months: [12]string{
			"January", "February", "March", "April", "May", "June",
			"July", "August", "September", "October", "November", "December",
		},
	}
}

// Options configures a Printer. Zero values fall back to Lao defaults.
type Options struct {
	Locale   language.Tag
	Location *time.Location
	Width    int
	Labels   *Labels
}

// Printer formats amounts and renders receipts.
type Printer struct {
	msg    *message.Printer
	loc    *time.Location
	width  int
	labels Labels
}

// New creates a Printer.
func New(opts Options) *Printer {
	if opts.Locale == language.Und {
		opts.Locale = language.Lao
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	labels := LaoLabels()
	if opts.Labels != nil {
		labels = *opts.Labels
	}
	return &Printer{
		msg:    message.NewPrinter(opts.Locale),
		loc:    opts.Location,
		width:  opts.Width,
		labels: labels,
	}
}

// FormatPrice groups digits the way the locale does, e.g. 15000 -> "15.000"
// in Lao or "15,000" in English.
func (p *Printer) FormatPrice(amount int64) string {
	return p.msg.Sprintf("%d", amount)
}

// Money formats amount followed by the currency label.
func (p *Printer) Money(amount int64) string {
	if p.labels.Currency == "" {
		return p.FormatPrice(amount)
	}
	return p.FormatPrice(amount) + " " + p.labels.Currency
}

// FormatTime renders t as "day month year hh:mm" in the printer's time zone.
func (p *Printer) FormatTime(t time.Time) string {
	t = t.In(p.loc)
	return fmt.Sprintf("%d %s %d %02d:%02d",
		t.Day(), p.labels.Months[t.Month()-1], t.Year(), t.Hour(), t.Minute())
}

// Labels returns the labels the printer uses.
func (p *Printer) Labels() Labels { return p.labels }

// displayWidth counts the columns s occupies on a monospace printer.
// Combining marks (Lao vowel and tone signs among them) take no column.
func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		n++
	}
	return n
}

func center(s string, width int) string {
	pad := (width - displayWidth(s)) / 2
	if pad <= 0 {
		return s
	}
	return strings.Repeat(" ", pad) + s
}

// spread places left and right on one line separated by at least one space.
func spread(left, right string, width int) string {
	gap := width - displayWidth(left) - displayWidth(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}
