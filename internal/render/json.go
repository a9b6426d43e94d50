package render

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/sloppy/aria/internal/db"
	"github.com/sloppy/aria/internal/scan"
)

// ReportExport is the JSON form of a scan report.
type ReportExport struct {
	Target     string        `json:"target"`
	Ports      string        `json:"ports"`
	OpenPorts  []PortInfo    `json:"open_ports"`
	DNSRecords []DNSInfo     `json:"dns_records"`
	OS         string        `json:"os"`
	Version    string        `json:"version"`
	Failures   []FailureInfo `json:"failures"`
	Cancelled  bool          `json:"cancelled"`
}

type PortInfo struct {
	Port     int    `json:"port"`
	Protocol string `json:"protocol"`
	State    string `json:"state"`
	Service  string `json:"service"`
	Product  string `json:"product"`
	Version  string `json:"version"`
}

type DNSInfo struct {
	Host string `json:"host"`
	IP   string `json:"ip"`
}

type FailureInfo struct {
	Facet  string `json:"facet"`
	Reason string `json:"reason"`
}

// CommandInfo is the JSON form of a journaled command.
type CommandInfo struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	Kind       string    `json:"kind"`
	Argument   string    `json:"argument"`
	Outcome    string    `json:"outcome"`
	Message    string    `json:"message"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
}

// NewReportExport converts r to its JSON shape.
func NewReportExport(r scan.Report) ReportExport {
	out := ReportExport{
		Target:     r.Target,
		Ports:      r.Ports.String(),
		OpenPorts:  []PortInfo{},
		DNSRecords: []DNSInfo{},
		OS:         r.OS,
		Version:    r.Version,
		Failures:   []FailureInfo{},
		Cancelled:  r.Cancelled,
	}
	services := servicesByPort(r.Services)
	for _, p := range r.OpenPorts {
		s := services[portKey{p.Port, p.Protocol}]
		out.OpenPorts = append(out.OpenPorts, PortInfo{
			Port:     p.Port,
			Protocol: p.Protocol,
			State:    p.State,
			Service:  s.Name,
			Product:  s.Product,
			Version:  s.Version,
		})
	}
	for _, rec := range r.DNSRecords {
		out.DNSRecords = append(out.DNSRecords, DNSInfo{Host: rec.Host, IP: rec.IP})
	}
	for _, f := range r.PartialFailures() {
		out.Failures = append(out.Failures, FailureInfo{Facet: string(f), Reason: r.Reason(f).Error()})
	}
	return out
}

// NewCommandInfos converts journal rows to their JSON shape.
func NewCommandInfos(commands []db.Command) []CommandInfo {
	out := make([]CommandInfo, 0, len(commands))
	for _, c := range commands {
		out = append(out, CommandInfo{
			ID:         c.ID,
			SessionID:  c.SessionID,
			Kind:       c.Kind,
			Argument:   c.Argument,
			Outcome:    c.Outcome,
			Message:    c.Message,
			StartedAt:  c.StartedAt.UTC(),
			DurationMS: c.Duration.Milliseconds(),
		})
	}
	return out
}

func ScanReportJSON(w io.Writer, r scan.Report) error {
	return writeJSON(w, NewReportExport(r))
}

func HistoryJSON(w io.Writer, commands []db.Command) error {
	return writeJSON(w, NewCommandInfos(commands))
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
