// Package receipt turns a bill into a printable payload for 58mm thermal
// paper. Rendering is pure and must not fail on stale data: a product that
// was deleted after the sale renders with a blank unit.
package receipt

import (
	"fmt"
	"strings"
	"time"

	"github.com/armangral/atta-chakki-tracker-app/internal/billing"
	catalog "github.com/armangral/atta-chakki-tracker-app/internal/catalog/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	businessName  = "Punjab Atta Chakki"
	businessAddr  = "Main Street, Punjab"
	businessPhone = "Mob: +92-XXXXXXXXX"
	footerThanks  = "Thank You"
	footerPowered = "Powered by Punjab Atta Chakki POS"

	paperWidth = 32 // characters on 58mm paper
)

var printer = message.NewPrinter(language.English)

type Line struct {
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	Unit      string          `json:"unit"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type Receipt struct {
	Business   string          `json:"business"`
	Address    string          `json:"address"`
	Phone      string          `json:"phone"`
	Lines      []Line          `json:"lines"`
	GrandTotal decimal.Decimal `json:"grand_total"`
	Date       time.Time       `json:"date"`
}

// Render maps a bill onto a receipt, looking unit and unit price up in the
// catalog snapshot. A nil snapshot or a missing product degrades to a blank
// unit and a unit price derived from the line total.
func Render(bill billing.Bill, snapshot *catalog.Snapshot) Receipt {
	lines := make([]Line, 0, len(bill.Lines))
	for _, sale := range bill.Lines {
		line := Line{
			Name:      sale.ProductName,
			Quantity:  sale.Quantity,
			LineTotal: sale.Total,
		}

		var found bool
		var product catalog.Product
		if snapshot != nil {
			product, found = snapshot.Find(sale.ProductID)
		}
		if found {
			line.Unit = product.Unit
			line.UnitPrice = product.Price
		} else if !sale.Quantity.IsZero() {
			line.UnitPrice = sale.Total.DivRound(sale.Quantity, 2)
		}

		lines = append(lines, line)
	}

	return Receipt{
		Business:   businessName,
		Address:    businessAddr,
		Phone:      businessPhone,
		Lines:      lines,
		GrandTotal: bill.TotalAmount(),
		Date:       bill.Date(),
	}
}

// Text lays the receipt out as monospace text, one column of paperWidth
// characters. Print with no margins and scaling off.
func (r Receipt) Text() string {
	var b strings.Builder

	writeCentered(&b, r.Business)
	writeCentered(&b, r.Address)
	writeCentered(&b, r.Phone)
	b.WriteString(divider())
	writeCentered(&b, "Sale Receipt")
	b.WriteString(spread("Item", "Qty"))

	for _, line := range r.Lines {
		qty := strings.TrimSpace(line.Quantity.String() + " " + line.Unit)
		b.WriteString(spread(truncate(line.Name, paperWidth-len(qty)-1), qty))
		b.WriteString(fmt.Sprintf("Rate: %s x %s = %s\n",
			Money(line.UnitPrice), line.Quantity.String(), Money(line.LineTotal)))
	}

	b.WriteString(divider())
	b.WriteString(spread("Total:", Money(r.GrandTotal)))
	b.WriteString("Date: " + r.Date.Format("02 Jan 2006 15:04") + "\n")
	b.WriteString(divider())
	writeCentered(&b, footerThanks)
	writeCentered(&b, footerPowered)

	return b.String()
}

// Money renders an amount with the rupee sign and digit grouping.
func Money(amount decimal.Decimal) string {
	f, _ := amount.Float64()
	return printer.Sprintf("₨%v", number.Decimal(f, number.MaxFractionDigits(2)))
}

func writeCentered(b *strings.Builder, s string) {
	s = truncate(s, paperWidth)
	pad := (paperWidth - len([]rune(s))) / 2
	if pad > 0 {
		b.WriteString(strings.Repeat(" ", pad))
	}
	b.WriteString(s)
	b.WriteByte('\n')
}

func spread(left, right string) string {
	gap := paperWidth - len([]rune(left)) - len([]rune(right))
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right + "\n"
}

func divider() string {
	return strings.Repeat("-", paperWidth) + "\n"
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	if max == 1 {
		return string(runes[:1])
	}
	return string(runes[:max-1]) + "…"
}
