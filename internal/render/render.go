// Package render writes scan reports, search results and the command
// history in text, JSON and CSV form.
package render

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sloppy/aria/internal/db"
	"github.com/sloppy/aria/internal/scan"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

var ErrUnknownFormat = errors.New("unknown output format")

// ScanReport writes r in the named format (text or json).
func ScanReport(w io.Writer, format string, r scan.Report) error {
	switch strings.ToLower(format) {
	case "", FormatText:
		return ScanReportText(w, r)
	case FormatJSON:
		return ScanReportJSON(w, r)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// History writes commands in the named format (text, csv or json).
func History(w io.Writer, format string, commands []db.Command) error {
	switch strings.ToLower(format) {
	case "", FormatText:
		return HistoryText(w, commands)
	case FormatCSV:
		return HistoryCSV(w, commands)
	case FormatJSON:
		return HistoryJSON(w, commands)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}
