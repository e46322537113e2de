package value

import (
	"math"
	"strconv"
	"strings"
)

// nullCells decode to null; they are what spreadsheet tools and earlier
// exports write for an absent value.
var nullCells = map[string]bool{
	"":     true,
	"nan":  true,
	"NaN":  true,
	"None": true,
}

// ListFields names the columns whose cells hold a bracketed list.
var ListFields = map[string]bool{
	"tags": true,
}

// Decode converts one CSV cell into a typed value. The column name selects
// list parsing; every other column is sniffed in order: null, boolean,
// number, string. Decode never fails: a cell that does not parse as the
// expected shape degrades to a string (or a one-element list for list fields).
func Decode(field, cell string) Value {
	if nullCells[cell] {
		return Null()
	}

	if ListFields[field] {
		if items, ok := parseList(cell); ok {
			return List(items)
		}
		return List([]string{cell})
	}

	switch strings.ToLower(cell) {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}

	num := strings.TrimSpace(cell)
	if strings.Contains(num, ".") {
		f, err := strconv.ParseFloat(num, 64)
		if err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
				return Int(int64(f))
			}
			return Float(f)
		}
		return String(cell)
	}
	if i, err := strconv.ParseInt(num, 10, 64); err == nil {
		return Int(i)
	}
	return String(cell)
}

// parseList parses a bracketed list of quoted items, as in ['a', "b"].
// Bare numeric items are accepted and kept as text. A trailing comma is
// allowed. Anything else reports ok=false.
func parseList(cell string) (items []string, ok bool) {
	s := strings.TrimSpace(cell)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, false
	}
	p := &listParser{src: s[1 : len(s)-1]}

	items = []string{}
	for {
		p.skipSpace()
		if p.done() {
			return items, true
		}
		item, ok := p.item()
		if !ok {
			return nil, false
		}
		items = append(items, item)

		p.skipSpace()
		if p.done() {
			return items, true
		}
		if p.src[p.pos] != ',' {
			return nil, false
		}
		p.pos++
	}
}

type listParser struct {
	src string
	pos int
}

func (p *listParser) done() bool { return p.pos >= len(p.src) }

func (p *listParser) skipSpace() {
	for !p.done() && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *listParser) item() (string, bool) {
	quote := p.src[p.pos]
	if quote != '\'' && quote != '"' {
		return p.bare()
	}
	p.pos++

	var sb strings.Builder
	for !p.done() {
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return sb.String(), true
		case c == '\\' && p.pos+1 < len(p.src):
			p.pos++
			switch esc := p.src[p.pos]; esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(esc)
			}
		default:
			sb.WriteByte(c)
		}
		p.pos++
	}
	return "", false
}

func (p *listParser) bare() (string, bool) {
	start := p.pos
	for !p.done() && p.src[p.pos] != ',' {
		p.pos++
	}
	tok := strings.TrimSpace(p.src[start:p.pos])
	if _, err := strconv.ParseFloat(tok, 64); err != nil {
		return "", false
	}
	return tok, true
}
