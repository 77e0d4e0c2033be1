package printout

import (
	"bufio"
	"html/template"
	"io"
	"strconv"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/scankart/internal/domain/receipt"
)

// Text writes a fixed-width rendering of r suitable for a thermal printer.
func (p *Printer) Text(w io.Writer, r receipt.Receipt) error {
	bw := bufio.NewWriter(w)
	rule := strings.Repeat("-", p.width)
	line := func(s string) {
		bw.WriteString(s)
		bw.WriteByte('\n')
	}

	line(center(p.labels.Title, p.width))
	line(center(p.FormatTime(r.Timestamp), p.width))
	line(center("#"+shortID(r.ID), p.width))
	line(rule)
	for _, li := range r.Items {
		line(li.Name)
		qty := "  " + strconv.Itoa(li.Quantity) + " x " + p.Money(li.UnitPrice)
		line(spread(qty, p.FormatPrice(li.Subtotal()), p.width))
	}
	line(rule)
	line(spread(p.labels.Total, p.Money(r.Total), p.width))
	line(rule)
	line(center(p.labels.Footer, p.width))
	line(center(p.labels.Ornament, p.width))

	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, "write text receipt")
	}
	return nil
}

var htmlReceipt = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
body { font-family: 'Courier New', monospace; width: 280px; margin: 10px; font-size: 12px; }
.header { text-align: center; border-bottom: 2px dashed #000; padding-bottom: 10px; margin-bottom: 10px; }
.items { margin: 10px 0; }
.item { display: flex; justify-content: space-between; margin: 5px 0; padding: 5px 0; }
.qty { font-size: 10px; color: #666; }
.total { border-top: 2px dashed #000; padding-top: 10px; margin-top: 10px; font-size: 16px; font-weight: bold; }
.total-line { display: flex; justify-content: space-between; }
.footer { text-align: center; margin-top: 15px; font-size: 10px; }
</style>
</head>
<body>
<div class="header">
<h2>{{.Title}}</h2>
<p>{{.Date}}</p>
<p class="qty">#{{.Number}}</p>
</div>
<div class="items">
{{- range .Items}}
<div class="item">
<div>
<div>{{.Name}}</div>
<div class="qty">{{.Quantity}} x {{.UnitPrice}}</div>
</div>
<div>{{.Subtotal}}</div>
</div>
{{- end}}
</div>
<div class="total">
<div class="total-line"><span>{{.TotalLabel}}</span><span>{{.Total}}</span></div>
</div>
<div class="footer">
<p>{{.Footer}}</p>
<p>{{.Ornament}}</p>
</div>
</body>
</html>
`))

type htmlItem struct {
	Name      string
	Quantity  int
	UnitPrice string
	Subtotal  string
}

type htmlData struct {
	Title      string
	Date       string
	Number     string
	Items      []htmlItem
	TotalLabel string
	Total      string
	Footer     string
	Ornament   string
}

// HTML writes a self-contained printable page for r.
func (p *Printer) HTML(w io.Writer, r receipt.Receipt) error {
	data := htmlData{
		Title:      p.labels.Title,
		Date:       p.FormatTime(r.Timestamp),
		Number:     shortID(r.ID),
		Items:      make([]htmlItem, len(r.Items)),
		TotalLabel: p.labels.Total,
		Total:      p.Money(r.Total),
		Footer:     p.labels.Footer,
		Ornament:   p.labels.Ornament,
	}
	for i, li := range r.Items {
		data.Items[i] = htmlItem{
			Name:      li.Name,
			Quantity:  li.Quantity,
			UnitPrice: p.Money(li.UnitPrice),
			Subtotal:  p.FormatPrice(li.Subtotal()),
		}
	}
	if err := htmlReceipt.Execute(w, data); err != nil {
		return errors.Wrap(err, "render html receipt")
	}
	return nil
}

// shortID returns the first UUID group, which is what gets printed.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
