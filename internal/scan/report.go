package scan

// Facet names one independently obtained slice of a report.
type Facet string

const (
	FacetPorts    Facet = "ports"
	FacetServices Facet = "services"
	FacetDNS      Facet = "dns"
	FacetOS       Facet = "os"
	FacetVersion  Facet = "version"
)

// AllFacets lists every facet in report order.
var AllFacets = []Facet{FacetPorts, FacetServices, FacetDNS, FacetOS, FacetVersion}

// FacetFailure records why a facet is missing from a report.
type FacetFailure struct {
	Facet  Facet
	Reason error
}

// Report is the aggregate result of scanning one target. It is built fresh
// per request and never stored.
type Report struct {
	Target     string
	Ports      PortRange
	OpenPorts  []OpenPort
	Services   []Service
	DNSRecords []DNSRecord
	OS         string
	Version    string
	Failures   []FacetFailure
	Cancelled  bool
}

// NewReport returns an empty report with unknown fingerprints.
func NewReport(target string, ports PortRange) Report {
	return Report{
		Target:     target,
		Ports:      ports,
		OpenPorts:  []OpenPort{},
		Services:   []Service{},
		DNSRecords: []DNSRecord{},
		OS:         Unknown,
		Version:    Unknown,
	}
}

// ReportFromFacets builds a report from a single parsed output, such as a
// saved nmap file that carries ports, OS matches and versions together.
func ReportFromFacets(target string, ports PortRange, facets Facets) Report {
	r := NewReport(target, ports)
	r.mergePortFacets(facets)
	r.OS = OSFingerprint(facets)
	r.Version = VersionFingerprint(facets)
	return r
}

// PartialFailures returns the failed facets in report order.
func (r Report) PartialFailures() []Facet {
	var out []Facet
	for _, f := range AllFacets {
		if r.Failed(f) {
			out = append(out, f)
		}
	}
	return out
}

func (r Report) Failed(f Facet) bool {
	return r.Reason(f) != nil
}

// Reason returns why f failed, or nil.
func (r Report) Reason(f Facet) error {
	for _, failure := range r.Failures {
		if failure.Facet == f {
			return failure.Reason
		}
	}
	return nil
}

// Complete reports whether every facet was obtained.
func (r Report) Complete() bool {
	return len(r.Failures) == 0
}

func (r *Report) fail(reason error, facets ...Facet) {
	for _, f := range facets {
		if r.Failed(f) {
			continue
		}
		r.Failures = append(r.Failures, FacetFailure{Facet: f, Reason: reason})
	}
}

// mergePortFacets appends the port-scan facets, dropping anything outside
// the requested range, and returns how many ports were dropped.
func (r *Report) mergePortFacets(facets Facets) int {
	dropped := 0
	for _, p := range facets.OpenPorts {
		if r.Ports.Valid() && !r.Ports.Contains(p.Port) {
			dropped++
			continue
		}
		r.OpenPorts = append(r.OpenPorts, p)
	}
	for _, s := range facets.Services {
		if r.Ports.Valid() && !r.Ports.Contains(s.Port) {
			continue
		}
		r.Services = append(r.Services, s)
	}
	r.DNSRecords = append(r.DNSRecords, facets.DNSRecords...)
	return dropped
}
