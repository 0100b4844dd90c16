// Package roster reads name lists and writes credential sheets as CSV.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/zarlcorp/zroster/internal/identity"
)

// Columns is the header of a credential sheet.
var Columns = []string{"name", "username", "identifier", "password"}

// ReadNames reads the first column of a CSV sheet. A header row whose first
// cell is "name" or "nama" is skipped. Rows with an empty first cell come back
// as empty names; the allocator skips them.
func ReadNames(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var names []string
	for line := 0; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read names: %w", err)
		}

		cell := ""
		if len(rec) > 0 {
			cell = strings.TrimSpace(rec[0])
		}
		if line == 0 {
			cell = strings.TrimPrefix(cell, "\ufeff")
			if isHeader(cell) {
				continue
			}
		}
		names = append(names, cell)
	}

	return names, nil
}

func isHeader(cell string) bool {
	switch strings.ToLower(cell) {
	case "name", "nama":
		return true
	}
	return false
}

// WriteSheet writes ids as a credential sheet with a header row.
func WriteSheet(w io.Writer, ids []identity.Identity) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write sheet: %w", err)
	}
	for _, id := range ids {
		if err := cw.Write([]string{id.Name, id.Username, id.Identifier, id.Password}); err != nil {
			return fmt.Errorf("write sheet: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write sheet: %w", err)
	}
	return nil
}
