// Package render turns a fetch result into a platform-neutral tree of labeled
// cells that a display adapter can map onto its own widgets.
package render

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"yfquotes/internal/provider"
)

// NotAvailable is shown in place of a field the upstream did not provide.
const NotAvailable = "N/A"

// Options selects the visible columns and the frame of the rendered table.
type Options struct {
	ShowIcon       bool    `json:"showIcon"`
	ShowName       bool    `json:"showName"`
	ShowSymbol     bool    `json:"showSymbol"`
	ShowPrice      bool    `json:"showPrice"`
	ShowCurrency   bool    `json:"showCurrency"`
	ShowPercent    bool    `json:"showPercent"`
	ShowTradeTime  bool    `json:"showTradeTime"`
	ShowLastUpdate bool    `json:"showLastUpdate"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Transparency   float64 `json:"transparency"`
}

type Column string

const (
	ColumnIcon    Column = "icon"
	ColumnName    Column = "name"
	ColumnSymbol  Column = "symbol"
	ColumnPrice   Column = "price"
	ColumnPercent Column = "percent"
	ColumnTime    Column = "time"
)

// Icon is the direction marker for the daily change.
type Icon string

const (
	IconUp    Icon = "up"
	IconDown  Icon = "down"
	IconEqual Icon = "eq"
)

type Cell struct {
	Column Column `json:"column"`
	Text   string `json:"text,omitempty"`
	Icon   Icon   `json:"icon,omitempty"`
}

type Row struct {
	Cells []Cell `json:"cells"`
}

type Frame struct {
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	Transparency float64 `json:"transparency"`
}

// Tree is one rendered cycle: an optional error banner above the quote rows
// and an optional last-update label below them.
type Tree struct {
	Frame       Frame  `json:"frame"`
	Error       string `json:"error,omitempty"`
	Rows        []Row  `json:"rows"`
	LastUpdated string `json:"lastUpdated,omitempty"`
}

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"JPY": "¥",
	"GBP": "£",
	"INR": "₨",
}

// Render builds the tree for res. now decides whether trade times are shown
// as a clock time or a date, and is the moment reported as the last update.
// The error banner and the rows are both rendered when both are present.
func Render(res provider.Result, opts Options, now time.Time) Tree {
	tree := Tree{
		Frame: Frame{Width: opts.Width, Height: opts.Height, Transparency: opts.Transparency},
		Rows:  make([]Row, 0, len(res.Records)),
	}
	if res.Error != nil {
		tree.Error = "Error: " + *res.Error
	}
	for _, rec := range res.Records {
		tree.Rows = append(tree.Rows, renderRow(rec, opts, now))
	}
	if opts.ShowLastUpdate {
		tree.LastUpdated = fmt.Sprintf("Updated at %d:%02d:%02d", now.Hour(), now.Minute(), now.Second())
	}
	return tree
}

// Resize returns tree with the frame taken from opts, leaving the content as is.
func Resize(tree Tree, opts Options) Tree {
	tree.Frame = Frame{Width: opts.Width, Height: opts.Height, Transparency: opts.Transparency}
	return tree
}

func renderRow(rec provider.Record, opts Options, now time.Time) Row {
	cells := make([]Cell, 0, 6)
	if opts.ShowIcon {
		cells = append(cells, Cell{Column: ColumnIcon, Icon: ChangeIcon(rec)})
	}
	if opts.ShowName {
		cells = append(cells, Cell{Column: ColumnName, Text: rec.ShortName.Or(NotAvailable)})
	}
	if opts.ShowSymbol {
		cells = append(cells, Cell{Column: ColumnSymbol, Text: rec.Symbol})
	}
	if opts.ShowPrice {
		cells = append(cells, Cell{Column: ColumnPrice, Text: priceText(rec, opts.ShowCurrency)})
	}
	if opts.ShowPercent {
		text := NotAvailable
		if pct, ok := rec.RegularMarketChangePercent.Get(); ok {
			text = FormatAmount(pct) + "%"
		}
		cells = append(cells, Cell{Column: ColumnPercent, Text: text})
	}
	if opts.ShowTradeTime {
		text := NotAvailable
		if ts, ok := rec.RegularMarketTime.Get(); ok {
			text = FormatTradeTime(ts, now)
		}
		cells = append(cells, Cell{Column: ColumnTime, Text: text})
	}
	return Row{Cells: cells}
}

// ChangeIcon picks the direction marker. A missing change counts as no change.
func ChangeIcon(rec provider.Record) Icon {
	pct := rec.RegularMarketChangePercent.Or(0)
	switch {
	case pct > 0:
		return IconUp
	case pct < 0:
		return IconDown
	default:
		return IconEqual
	}
}

func priceText(rec provider.Record, withCurrency bool) string {
	prefix := ""
	if code, ok := rec.Currency.Get(); ok && withCurrency {
		prefix = CurrencySymbol(code)
	}
	price, ok := rec.RegularMarketPrice.Get()
	if !ok {
		return prefix + NotAvailable
	}
	return prefix + FormatAmount(price)
}

// CurrencySymbol maps a currency code to its sign, falling back to the code.
func CurrencySymbol(code string) string {
	if s, ok := currencySymbols[code]; ok {
		return s
	}
	return code
}

// FormatAmount rounds to two decimals, half away from zero.
func FormatAmount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// FormatTradeTime renders a Unix timestamp as H:MM when it falls on the same
// calendar day as now, and as DD.MM otherwise. now's location is used for both.
func FormatTradeTime(unix int64, now time.Time) string {
	ts := time.Unix(unix, 0).In(now.Location())
	if sameDay(ts, now) {
		return fmt.Sprintf("%d:%02d", ts.Hour(), ts.Minute())
	}
	return fmt.Sprintf("%02d.%02d", ts.Day(), int(ts.Month()))
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
