package table

import (
	"errors"
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

var ErrNotFound = errors.New("table not found")

type Table struct {
	Header []string
	Rows   [][]string
}

// Parse returns the first table in src whose header has a cell
// containing match. An empty match selects the first table.
func Parse(src string, match string) (*Table, error) {
	doc, err := htmlquery.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse html: %v", err)
	}
	return Find(doc, match)
}

func Find(doc *html.Node, match string) (*Table, error) {
	for _, n := range htmlquery.Find(doc, "//table") {
		t := parseTable(n)
		if t.matches(match) {
			return t, nil
		}
	}
	if match == "" {
		return nil, ErrNotFound
	}
	return nil, fmt.Errorf("%w: no header matching %q", ErrNotFound, match)
}

func parseTable(n *html.Node) *Table {
	t := &Table{
		Rows: make([][]string, 0),
	}

	headRows := htmlquery.Find(n, "./thead/tr")
	bodyRows := htmlquery.Find(n, "./tbody/tr | ./tr")

	switch {
	case len(headRows) > 0:
		t.Header = cells(headRows[0])
	case len(bodyRows) > 0 && isHeaderRow(bodyRows[0]):
		t.Header = cells(bodyRows[0])
		bodyRows = bodyRows[1:]
	}

	for _, tr := range bodyRows {
		row := cells(tr)
		if len(row) == 0 {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func isHeaderRow(tr *html.Node) bool {
	th := 0
	for _, c := range cellNodes(tr) {
		if c.Data == "td" {
			return false
		}
		th++
	}
	return th > 0
}

// cellNodes keeps th and td in document order.
func cellNodes(tr *html.Node) []*html.Node {
	nodes := make([]*html.Node, 0)
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if c.Data == "td" || c.Data == "th" {
			nodes = append(nodes, c)
		}
	}
	return nodes
}

func cells(tr *html.Node) []string {
	nodes := cellNodes(tr)
	row := make([]string, 0, len(nodes))
	for _, c := range nodes {
		row = append(row, text(c))
	}
	return row
}

func text(n *html.Node) string {
	return strings.Join(strings.Fields(htmlquery.InnerText(n)), " ")
}

func (t *Table) matches(match string) bool {
	if match == "" {
		return true
	}
	for _, h := range t.Header {
		if strings.Contains(h, match) {
			return true
		}
	}
	return false
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Equal reports whether both tables hold the same header and rows
// in the same order.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if !equalRow(t.Header, o.Header) || len(t.Rows) != len(o.Rows) {
		return false
	}
	for i := range t.Rows {
		if !equalRow(t.Rows[i], o.Rows[i]) {
			return false
		}
	}
	return true
}

func equalRow(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Concat appends the rows of all tables under the header of the
// first one and drops exact duplicate rows, keeping the first.
func Concat(tables ...*Table) *Table {
	res := &Table{
		Rows: make([][]string, 0),
	}
	seen := make(map[string]struct{})
	for _, t := range tables {
		if t == nil {
			continue
		}
		if res.Header == nil {
			res.Header = t.Header
		}
		for _, row := range t.Rows {
			k := strings.Join(row, "\x1f")
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			res.Rows = append(res.Rows, row)
		}
	}
	return res
}
