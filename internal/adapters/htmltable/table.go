// Package htmltable reads the first table of an HTML document into rows of text.
package htmltable

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Table is a header row plus data rows, all as normalised cell text.
type Table struct {
	Header []string
	Rows   [][]string
}

// FirstTable parses r and returns the first <table> in document order.
// The header is the first row made only of <th> cells (or the first row when
// there is none); data rows are the later rows holding at least one <td>.
// Rows that belong to nested tables are ignored. Cells with rowspan or
// colspan are repeated into every grid position they cover.
func FirstTable(r io.Reader) (*Table, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	tbl := findFirst(doc, atom.Table)
	if tbl == nil {
		return nil, ErrNoTable
	}

	var rows []*html.Node
	collectRows(tbl, &rows)
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}

	grid := expandSpans(rows)

	headerAt := 0
	for i, tr := range rows {
		if isHeaderRow(tr) {
			headerAt = i
			break
		}
	}

	t := &Table{Header: grid[headerAt]}
	for i, tr := range rows[headerAt+1:] {
		if !hasDataCell(tr) {
			continue
		}
		row := grid[headerAt+1+i]
		for len(row) < len(t.Header) {
			row = append(row, "")
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ColumnIndex returns the index of the header matching name, comparing
// case-insensitively with whitespace collapsed, or -1.
func (t *Table) ColumnIndex(name string) int {
	want := Normalize(name)
	for i, h := range t.Header {
		if strings.EqualFold(h, want) {
			return i
		}
	}
	return -1
}

// Project keeps the named columns, in the order given.
func (t *Table) Project(names ...string) ([][]string, error) {
	idx := make([]int, len(names))
	var missing []string
	for i, n := range names {
		idx[i] = t.ColumnIndex(n)
		if idx[i] < 0 {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %q (header %q)", ErrMissingColumn, missing, t.Header)
	}

	out := make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		proj := make([]string, len(idx))
		for i, c := range idx {
			if c < len(row) {
				proj[i] = row[c]
			}
		}
		out[r] = proj
	}
	return out, nil
}

// Normalize collapses runs of whitespace (including non-breaking spaces) to
// a single space and trims the ends.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

// collectRows gathers <tr> elements owned by tbl (thead/tbody/tfoot included).
func collectRows(n *html.Node, rows *[]*html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.Table:
			continue
		case atom.Tr:
			*rows = append(*rows, c)
		default:
			collectRows(c, rows)
		}
	}
}

func cells(tr *html.Node) []*html.Node {
	var out []*html.Node
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Th || c.DataAtom == atom.Td) {
			out = append(out, c)
		}
	}
	return out
}

func isHeaderRow(tr *html.Node) bool {
	cs := cells(tr)
	if len(cs) == 0 {
		return false
	}
	for _, c := range cs {
		if c.DataAtom != atom.Th {
			return false
		}
	}
	return true
}

func hasDataCell(tr *html.Node) bool {
	for _, c := range cells(tr) {
		if c.DataAtom == atom.Td {
			return true
		}
	}
	return false
}

// maxSpan bounds rowspan and colspan values.
const maxSpan = 1000

// carried is a rowspan cell still owed to later rows.
type carried struct {
	text string
	left int
}

// expandSpans lays rows out on a regular grid: a rowspan cell repeats down
// the rows it covers and a colspan cell repeats across its columns.
func expandSpans(rows []*html.Node) [][]string {
	grid := make([][]string, len(rows))
	pending := map[int]*carried{}

	for r, tr := range rows {
		var out []string
		take := func() {
			for {
				c, ok := pending[len(out)]
				if !ok {
					return
				}
				out = append(out, c.text)
				if c.left--; c.left == 0 {
					delete(pending, len(out)-1)
				}
			}
		}

		for _, cell := range cells(tr) {
			take()
			txt := cellText(cell)
			rowspan, colspan := span(cell, "rowspan"), span(cell, "colspan")
			for i := 0; i < colspan; i++ {
				if rowspan > 1 {
					pending[len(out)] = &carried{text: txt, left: rowspan - 1}
				}
				out = append(out, txt)
			}
		}
		take()
		grid[r] = out
	}
	return grid
}

func span(n *html.Node, key string) int {
	for _, a := range n.Attr {
		if !strings.EqualFold(a.Key, key) {
			continue
		}
		v, err := strconv.Atoi(strings.TrimSpace(a.Val))
		if err != nil || v < 1 {
			return 1
		}
		return min(v, maxSpan)
	}
	return 1
}

func cellText(c *html.Node) string {
	var b strings.Builder
	text(c, &b)
	return Normalize(b.String())
}

func text(n *html.Node, b *strings.Builder) {
	switch {
	case n.Type == html.TextNode:
		b.WriteString(n.Data)
		return
	case n.Type == html.ElementNode && n.DataAtom == atom.Br:
		b.WriteByte(' ')
		return
	case n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style || n.DataAtom == atom.Table):
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		text(c, b)
	}
}
