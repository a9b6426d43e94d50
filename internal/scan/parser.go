package scan

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// OpenPort is a port reported open (or open|filtered) by the scanner.
type OpenPort struct {
	Port     int    `json:"port"`
	Protocol string `json:"protocol"`
	State    string `json:"state"`
}

// Service is the service detected on an open port. It refers to its port
// by (Port, Protocol) value.
type Service struct {
	Name      string `json:"name"`
	Port      int    `json:"port"`
	Protocol  string `json:"protocol"`
	Product   string `json:"product,omitempty"`
	Version   string `json:"version,omitempty"`
	ExtraInfo string `json:"extra_info,omitempty"`
}

// DNSRecord pairs a hostname the scanner resolved with the address scanned.
type DNSRecord struct {
	Host string `json:"host"`
	IP   string `json:"ip"`
}

// OSMatch is one OS classification candidate.
type OSMatch struct {
	Name     string `json:"name"`
	Accuracy int    `json:"accuracy"`
}

// Facets holds everything parsed from one scan output.
type Facets struct {
	OpenPorts  []OpenPort
	Services   []Service
	DNSRecords []DNSRecord
	OSMatches  []OSMatch
	HostsUp    int
}

// Internal parsing structs matching nmap XML. The JSON tree form is
// normalized into the same shape (see tree.go).
type nmapRun struct {
	XMLName xml.Name   `xml:"nmaprun"`
	Args    string     `xml:"args,attr"`
	Hosts   []nmapHost `xml:"host"`
}

type nmapHost struct {
	Addresses []nmapAddress  `xml:"address"`
	Status    nmapHostState  `xml:"status"`
	Hostnames []nmapHostname `xml:"hostnames>hostname"`
	Ports     []nmapPort     `xml:"ports>port"`
	OSMatches []nmapOSMatch  `xml:"os>osmatch"`
}

type nmapHostState struct {
	State string `xml:"state,attr"`
}

type nmapAddress struct {
	Addr     string `xml:"addr,attr"`
	AddrType string `xml:"addrtype,attr"`
}

type nmapHostname struct {
	Name string `xml:"name,attr"`
	Type string `xml:"type,attr"`
}

type nmapPort struct {
	Protocol string      `xml:"protocol,attr"`
	PortID   string      `xml:"portid,attr"`
	State    nmapState   `xml:"state"`
	Service  nmapService `xml:"service"`
}

type nmapState struct {
	State string `xml:"state,attr"`
}

type nmapService struct {
	Name      string `xml:"name,attr"`
	Product   string `xml:"product,attr"`
	Version   string `xml:"version,attr"`
	ExtraInfo string `xml:"extrainfo,attr"`
}

type nmapOSMatch struct {
	Name     string `xml:"name,attr"`
	Accuracy string `xml:"accuracy,attr"`
}

var errEmptyOutput = errors.New("empty output")

// Parse decodes raw scanner output into facets. Both nmap XML and the
// equivalent JSON tree are accepted. Missing facet nodes yield empty
// sequences; only an undecodable document is an error.
func Parse(raw []byte) (Facets, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Facets{}, &ParseError{Err: errEmptyOutput}
	}

	var run nmapRun
	var err error
	switch trimmed[0] {
	case '<':
		run, err = decodeXML(trimmed)
	case '{':
		run, err = decodeTree(trimmed)
	default:
		err = fmt.Errorf("unrecognized format starting with %q", trimmed[0])
	}
	if err != nil {
		return Facets{}, &ParseError{Err: err}
	}
	return facetsFromRun(run), nil
}

// ParseFile reads a saved scan output from disk.
func ParseFile(path string) (Facets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Facets{}, fmt.Errorf("read scan output: %w", err)
	}
	return Parse(data)
}

func decodeXML(data []byte) (nmapRun, error) {
	var run nmapRun
	dec := xml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&run); err != nil {
		return nmapRun{}, fmt.Errorf("decode xml: %w", err)
	}
	return run, nil
}

func facetsFromRun(run nmapRun) Facets {
	facets := Facets{
		OpenPorts:  []OpenPort{},
		Services:   []Service{},
		DNSRecords: []DNSRecord{},
		OSMatches:  []OSMatch{},
	}
	seenPorts := make(map[portKey]struct{})
	seenDNS := make(map[DNSRecord]struct{})

	for _, h := range run.Hosts {
		if strings.EqualFold(strings.TrimSpace(h.Status.State), "up") {
			facets.HostsUp++
		}
		ip := firstIPv4(h.Addresses)
		for _, hn := range h.Hostnames {
			rec := DNSRecord{Host: strings.TrimSpace(hn.Name), IP: ip}
			if rec.Host == "" {
				continue
			}
			if _, dup := seenDNS[rec]; dup {
				continue
			}
			seenDNS[rec] = struct{}{}
			facets.DNSRecords = append(facets.DNSRecords, rec)
		}

		for _, p := range h.Ports {
			number, err := strconv.Atoi(strings.TrimSpace(p.PortID))
			if err != nil || number < 1 || number > 65535 {
				continue
			}
			state := strings.ToLower(strings.TrimSpace(p.State.State))
			if !isOpenState(state) {
				continue
			}
			key := portKey{port: number, protocol: strings.ToLower(strings.TrimSpace(p.Protocol))}
			if _, dup := seenPorts[key]; dup {
				continue
			}
			seenPorts[key] = struct{}{}
			facets.OpenPorts = append(facets.OpenPorts, OpenPort{Port: key.port, Protocol: key.protocol, State: state})
			if name := strings.TrimSpace(p.Service.Name); name != "" {
				facets.Services = append(facets.Services, Service{
					Name:      name,
					Port:      key.port,
					Protocol:  key.protocol,
					Product:   strings.TrimSpace(p.Service.Product),
					Version:   strings.TrimSpace(p.Service.Version),
					ExtraInfo: strings.TrimSpace(p.Service.ExtraInfo),
				})
			}
		}

		for _, m := range h.OSMatches {
			name := strings.TrimSpace(m.Name)
			if name == "" {
				continue
			}
			accuracy, _ := strconv.Atoi(strings.TrimSpace(m.Accuracy))
			facets.OSMatches = append(facets.OSMatches, OSMatch{Name: name, Accuracy: accuracy})
		}
	}

	// Best candidate first; nmap already orders by accuracy but merged hosts may not be.
	sort.SliceStable(facets.OSMatches, func(i, j int) bool {
		return facets.OSMatches[i].Accuracy > facets.OSMatches[j].Accuracy
	})
	return facets
}

type portKey struct {
	port     int
	protocol string
}

func isOpenState(state string) bool {
	return state == "open" || state == "open|filtered"
}

func firstIPv4(addrs []nmapAddress) string {
	for _, a := range addrs {
		if strings.ToLower(a.AddrType) == "ipv4" {
			return a.Addr
		}
	}
	for _, a := range addrs {
		if strings.ToLower(a.AddrType) != "mac" {
			return a.Addr
		}
	}
	return ""
}
