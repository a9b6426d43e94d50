package render

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/sloppy/aria/internal/db"
)

// HistoryCSV writes one row per command.
func HistoryCSV(w io.Writer, commands []db.Command) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, c := range commands {
		if err := writer.Write(csvRow(c)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func csvHeader() []string {
	return []string{
		"id",
		"session_id",
		"kind",
		"argument",
		"outcome",
		"message",
		"started_at",
		"duration_ms",
	}
}

func csvRow(c db.Command) []string {
	return []string{
		strconv.FormatInt(c.ID, 10),
		c.SessionID,
		c.Kind,
		c.Argument,
		c.Outcome,
		c.Message,
		formatTime(c.StartedAt),
		strconv.FormatInt(c.Duration.Milliseconds(), 10),
	}
}
