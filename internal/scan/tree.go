package scan

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// The JSON tree form is what XML-to-JSON converters emit for nmap output:
// attributes are keyed with an "@" prefix and a repeated element collapses
// to a bare object when it occurs exactly once. oneOrMany normalizes both
// shapes to a slice before anything else looks at the tree.

type oneOrMany[T any] []T

func (s *oneOrMany[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}
	if data[0] == '[' {
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*s = items
		return nil
	}
	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		return err
	}
	*s = oneOrMany[T]{item}
	return nil
}

type treeDocument struct {
	Run *treeRun `json:"nmaprun"`
}

type treeRun struct {
	Args  string              `json:"@args"`
	Hosts oneOrMany[treeHost] `json:"host"`
}

type treeHost struct {
	Status struct {
		State string `json:"@state"`
	} `json:"status"`
	Addresses oneOrMany[treeAddress] `json:"address"`
	Hostnames *struct {
		Hostname oneOrMany[treeHostname] `json:"hostname"`
	} `json:"hostnames"`
	Ports *struct {
		Port oneOrMany[treePort] `json:"port"`
	} `json:"ports"`
	OS *struct {
		OSMatch oneOrMany[treeOSMatch] `json:"osmatch"`
	} `json:"os"`
}

type treeAddress struct {
	Addr     string `json:"@addr"`
	AddrType string `json:"@addrtype"`
}

type treeHostname struct {
	Name string `json:"@name"`
	Type string `json:"@type"`
}

type treePort struct {
	Protocol string `json:"@protocol"`
	PortID   string `json:"@portid"`
	State    struct {
		State string `json:"@state"`
	} `json:"state"`
	Service *struct {
		Name      string `json:"@name"`
		Product   string `json:"@product"`
		Version   string `json:"@version"`
		ExtraInfo string `json:"@extrainfo"`
	} `json:"service"`
}

type treeOSMatch struct {
	Name     string `json:"@name"`
	Accuracy string `json:"@accuracy"`
}

var errMissingRoot = errors.New("missing nmaprun root")

func decodeTree(data []byte) (nmapRun, error) {
	var doc treeDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nmapRun{}, fmt.Errorf("decode json: %w", err)
	}
	if doc.Run == nil {
		return nmapRun{}, errMissingRoot
	}
	return normalizeTree(*doc.Run), nil
}

func normalizeTree(t treeRun) nmapRun {
	run := nmapRun{Args: t.Args}
	for _, th := range t.Hosts {
		h := nmapHost{Status: nmapHostState{State: th.Status.State}}
		for _, a := range th.Addresses {
			h.Addresses = append(h.Addresses, nmapAddress{Addr: a.Addr, AddrType: a.AddrType})
		}
		if th.Hostnames != nil {
			for _, hn := range th.Hostnames.Hostname {
				h.Hostnames = append(h.Hostnames, nmapHostname{Name: hn.Name, Type: hn.Type})
			}
		}
		if th.Ports != nil {
			for _, tp := range th.Ports.Port {
				p := nmapPort{
					Protocol: tp.Protocol,
					PortID:   tp.PortID,
					State:    nmapState{State: tp.State.State},
				}
				if tp.Service != nil {
					p.Service = nmapService{
						Name:      tp.Service.Name,
						Product:   tp.Service.Product,
						Version:   tp.Service.Version,
						ExtraInfo: tp.Service.ExtraInfo,
					}
				}
				h.Ports = append(h.Ports, p)
			}
		}
		if th.OS != nil {
			for _, m := range th.OS.OSMatch {
				h.OSMatches = append(h.OSMatches, nmapOSMatch{Name: m.Name, Accuracy: m.Accuracy})
			}
		}
		run.Hosts = append(run.Hosts, h)
	}
	return run
}
