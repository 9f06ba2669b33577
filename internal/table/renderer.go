// Package table renders the tenant flow table as an HTML node tree.
package table

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"CapIot.dashboard/internal/models"
)

// PercentMode controls how flow percentages are printed.
type PercentMode int

const (
	// OneDecimal prints 0.1234 as "12.3%".
	OneDecimal PercentMode = iota
	// Integer prints 0.1234 as "12%".
	Integer
)

// ParsePercentMode accepts "integer"; everything else is OneDecimal.
func ParsePercentMode(s string) PercentMode {
	if strings.EqualFold(strings.TrimSpace(s), "integer") {
		return Integer
	}
	return OneDecimal
}

const (
	ApartmentColumn = "Apartment"
	DefaultCell     = "0%"
	ClassName       = "tenant-table"
)

// DeviceKeys is the fixed column order after the apartment column.
var DeviceKeys = []string{
	"Hydractiva_shower",
	"Kitchen_optima_faucet",
	"Optima_faucet",
	"Washing_machine",
	"Dishwasher",
}

var columnLabels = map[string]string{
	ApartmentColumn:         "Apartment",
	"Hydractiva_shower":     "Shower",
	"Kitchen_optima_faucet": "Kitchen faucet",
	"Optima_faucet":         "Faucet",
	"Washing_machine":       "Washing mach.",
	"Dishwasher":            "Dishwasher",
}

type Renderer struct {
	mode PercentMode
}

func NewRenderer(mode PercentMode) *Renderer {
	return &Renderer{mode: mode}
}

// FormatPercent prints a flow fraction in the renderer's mode.
func (r *Renderer) FormatPercent(flow float64) string {
	if r.mode == Integer {
		return strconv.FormatFloat(math.Round(flow*100), 'f', 0, 64) + "%"
	}
	return strconv.FormatFloat(math.Round(flow*1000)/10, 'f', -1, 64) + "%"
}

// Header returns the human readable column labels.
func Header() []string {
	header := make([]string, 0, len(DeviceKeys)+1)
	header = append(header, columnLabels[ApartmentColumn])
	for _, key := range DeviceKeys {
		header = append(header, columnLabels[key])
	}
	return header
}

// Rows returns one row of cell texts per apartment, header excluded.
func (r *Renderer) Rows(record models.DeviceFlowRecord) [][]string {
	ids := record.ApartmentIDs()
	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		devices := record[id]
		row := make([]string, 0, len(DeviceKeys)+1)
		row = append(row, id)
		for _, key := range DeviceKeys {
			if dev, ok := devices[key]; ok {
				row = append(row, r.FormatPercent(dev.FlowPercentage))
			} else {
				row = append(row, DefaultCell)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// NewTable creates an empty table element carrying the tenant table class.
func NewTable() *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     atom.Table.String(),
		DataAtom: atom.Table,
		Attr:     []html.Attribute{{Key: "class", Val: ClassName}},
	}
}

// Render rebuilds tbl's rows from scratch: any previous content is removed,
// then the header and one row per apartment are appended.
func (r *Renderer) Render(tbl *html.Node, record models.DeviceFlowRecord) {
	for child := tbl.FirstChild; child != nil; child = tbl.FirstChild {
		tbl.RemoveChild(child)
	}
	tbl.AppendChild(tableRow(Header(), true))
	for _, row := range r.Rows(record) {
		tbl.AppendChild(tableRow(row, false))
	}
}

// RenderHTML renders record into a fresh table and serializes it.
func (r *Renderer) RenderHTML(record models.DeviceFlowRecord) (string, error) {
	tbl := NewTable()
	r.Render(tbl, record)

	var buf bytes.Buffer
	if err := html.Render(&buf, tbl); err != nil {
		return "", fmt.Errorf("render tenant table: %w", err)
	}
	return buf.String(), nil
}

func tableRow(columns []string, isHeader bool) *html.Node {
	tr := &html.Node{Type: html.ElementNode, Data: atom.Tr.String(), DataAtom: atom.Tr}
	cell := atom.Td
	if isHeader {
		cell = atom.Th
	}
	for _, val := range columns {
		col := &html.Node{Type: html.ElementNode, Data: cell.String(), DataAtom: cell}
		col.AppendChild(&html.Node{Type: html.TextNode, Data: val})
		tr.AppendChild(col)
	}
	return tr
}
