package report

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteJSON renders the report as indented JSON. An unavailable overall
// score serializes as null.
func WriteJSON(w io.Writer, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
