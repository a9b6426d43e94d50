package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/sloppy/aria/internal/db"
	"github.com/sloppy/aria/internal/scan"
	"github.com/sloppy/aria/internal/search"
)

// ScanReportText writes the report as an ordered field listing followed by
// a port table.
func ScanReportText(w io.Writer, r scan.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Target:\t%s\n", r.Target)
	fmt.Fprintf(tw, "Ports:\t%s\n", r.Ports)
	fmt.Fprintf(tw, "OS:\t%s\n", r.OS)
	fmt.Fprintf(tw, "Version:\t%s\n", r.Version)
	if len(r.DNSRecords) == 0 {
		fmt.Fprintf(tw, "DNS:\t%s\n", "none")
	}
	for i, rec := range r.DNSRecords {
		label := ""
		if i == 0 {
			label = "DNS:"
		}
		fmt.Fprintf(tw, "%s\t%s (%s)\n", label, rec.Host, rec.IP)
	}
	if r.Cancelled {
		fmt.Fprintf(tw, "Status:\t%s\n", "cancelled")
	}
	if len(r.Failures) == 0 {
		fmt.Fprintf(tw, "Failures:\t%s\n", "none")
	}
	for i, f := range r.PartialFailures() {
		label := ""
		if i == 0 {
			label = "Failures:"
		}
		fmt.Fprintf(tw, "%s\t%s: %v\n", label, f, r.Reason(f))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w, "")

	if len(r.OpenPorts) == 0 {
		_, err := fmt.Fprintln(w, "  No open ports found.")
		return err
	}

	services := servicesByPort(r.Services)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  Port\tState\tService\tVersion")
	for _, p := range r.OpenPorts {
		s := services[portKey{p.Port, p.Protocol}]
		fmt.Fprintf(tw, "  %d/%s\t%s\t%s\t%s\n", p.Port, p.Protocol, p.State, s.Name, productVersion(s))
	}
	return tw.Flush()
}

type portKey struct {
	port     int
	protocol string
}

func servicesByPort(services []scan.Service) map[portKey]scan.Service {
	out := make(map[portKey]scan.Service, len(services))
	for _, s := range services {
		key := portKey{s.Port, s.Protocol}
		if _, ok := out[key]; !ok {
			out[key] = s
		}
	}
	return out
}

func productVersion(s scan.Service) string {
	version := s.Product
	if s.Version != "" {
		version = strings.TrimSpace(version + " " + s.Version)
	}
	return version
}

// SearchResultsText writes results numbered in their given order.
func SearchResultsText(w io.Writer, results []search.Result) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "No results found.")
		return err
	}
	for i, r := range results {
		fmt.Fprintf(w, "%d. %s\n", i+1, r.Title)
		fmt.Fprintf(w, "   %s\n", r.URL)
		if r.Description != "" {
			fmt.Fprintf(w, "   %s\n", r.Description)
		}
	}
	return nil
}

// HistoryText writes commands as a table, newest first as given.
func HistoryText(w io.Writer, commands []db.Command) error {
	if len(commands) == 0 {
		_, err := fmt.Fprintln(w, "No commands recorded.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Time\tKind\tArgument\tOutcome\tDuration\tMessage")
	for _, c := range commands {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.StartedAt.Local().Format("2006-01-02 15:04:05"),
			c.Kind, c.Argument, c.Outcome, c.Duration, c.Message)
	}
	return tw.Flush()
}
