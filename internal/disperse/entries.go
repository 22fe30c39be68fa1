package disperse

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Entry is one raw "recipient, amount" row. Line is 1-based; 0 marks a
// synthesized entry such as the tip.
type Entry struct {
	Line      int
	Recipient string
	Amount    string
}

func (e Entry) blank() bool {
	return strings.TrimSpace(e.Recipient) == "" || strings.TrimSpace(e.Amount) == ""
}

// ReadEntries parses CSV or "recipient, amount" lines. Blank lines and a
// leading header row are skipped; columns past the second are ignored.
func ReadEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true
	cr.Comment = '#'

	var out []Entry
	first := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read entries: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if first {
			first = false
			if isHeader(rec) {
				continue
			}
		}
		e := Entry{Line: line, Recipient: strings.TrimSpace(rec[0])}
		if len(rec) > 1 {
			e.Amount = strings.TrimSpace(rec[1])
		}
		out = append(out, e)
	}
	return out, nil
}

func isHeader(rec []string) bool {
	if len(rec) < 2 {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(rec[0])) {
	case "recipient", "address", "to":
	default:
		return false
	}
	switch strings.ToLower(strings.TrimSpace(rec[1])) {
	case "amount", "value":
		return true
	}
	return false
}
