package scope

import (
	"fmt"
	"net/netip"
	"strings"
)

// Rule types.
const (
	TypeIP    = "ip"
	TypeCIDR  = "cidr"
	TypeRange = "range"
	TypeHost  = "host"
)

// Rule is one parsed scope entry. A leading "!" in the definition makes it
// an exclusion.
type Rule struct {
	Definition string
	Type       string
	Exclude    bool
	prefix     netip.Prefix
	addr       netip.Addr
	last       netip.Addr
	host       string
}

// Matcher decides whether a scan target is allowed. Targets are compared
// textually; hostnames are never resolved.
type Matcher struct {
	includes []Rule
	excludes []Rule
}

// NewMatcher parses definitions of the forms 10.0.0.5, 10.0.0.0/24,
// 10.0.0.10-10.0.0.20, host.example and *.example. With no include rules
// every target not excluded is in scope.
func NewMatcher(definitions []string) (*Matcher, error) {
	m := &Matcher{}
	for _, raw := range definitions {
		def := strings.TrimSpace(raw)
		if def == "" {
			continue
		}
		rule, err := parseRule(def)
		if err != nil {
			return nil, err
		}
		if rule.Exclude {
			m.excludes = append(m.excludes, rule)
		} else {
			m.includes = append(m.includes, rule)
		}
	}
	return m, nil
}

func parseRule(def string) (Rule, error) {
	rule := Rule{Definition: def}
	body := def
	if strings.HasPrefix(body, "!") {
		rule.Exclude = true
		body = strings.TrimSpace(body[1:])
	}

	if prefix, err := netip.ParsePrefix(body); err == nil {
		rule.Type = TypeCIDR
		rule.prefix = prefix.Masked()
		return rule, nil
	}
	if addr, err := netip.ParseAddr(body); err == nil {
		rule.Type = TypeIP
		rule.addr = addr.Unmap()
		return rule, nil
	}
	if first, last, ok := strings.Cut(body, "-"); ok {
		a, errA := netip.ParseAddr(strings.TrimSpace(first))
		b, errB := netip.ParseAddr(strings.TrimSpace(last))
		if errA == nil && errB == nil {
			a, b = a.Unmap(), b.Unmap()
			if a.BitLen() != b.BitLen() || b.Less(a) {
				return Rule{}, fmt.Errorf("invalid scope range %q", def)
			}
			rule.Type = TypeRange
			rule.addr, rule.last = a, b
			return rule, nil
		}
	}
	if validHost(body) {
		rule.Type = TypeHost
		rule.host = strings.ToLower(strings.TrimSuffix(body, "."))
		return rule, nil
	}
	return Rule{}, fmt.Errorf("invalid scope definition %q", def)
}

func validHost(s string) bool {
	s = strings.TrimPrefix(s, "*.")
	if s == "" || len(s) > 253 {
		return false
	}
	for _, label := range strings.Split(strings.TrimSuffix(s, "."), ".") {
		if label == "" || len(label) > 63 || label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, r := range label {
			if !(r == '-' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
				return false
			}
		}
	}
	return true
}

// Rules returns includes followed by excludes.
func (m *Matcher) Rules() []Rule {
	out := make([]Rule, 0, len(m.includes)+len(m.excludes))
	out = append(out, m.includes...)
	return append(out, m.excludes...)
}

// InScope reports whether target may be scanned. Exclusions win over
// inclusions.
func (m *Matcher) InScope(target string) bool {
	target = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(target), "."))
	if target == "" {
		return false
	}
	addr, err := netip.ParseAddr(target)
	isAddr := err == nil
	if isAddr {
		addr = addr.Unmap()
	}

	for _, rule := range m.excludes {
		if rule.matches(target, addr, isAddr) {
			return false
		}
	}
	if len(m.includes) == 0 {
		return true
	}
	for _, rule := range m.includes {
		if rule.matches(target, addr, isAddr) {
			return true
		}
	}
	return false
}

func (r Rule) matches(target string, addr netip.Addr, isAddr bool) bool {
	switch r.Type {
	case TypeCIDR:
		return isAddr && r.prefix.Contains(addr)
	case TypeIP:
		return isAddr && r.addr == addr
	case TypeRange:
		return isAddr && addr.BitLen() == r.addr.BitLen() && !addr.Less(r.addr) && !r.last.Less(addr)
	case TypeHost:
		if isAddr {
			return false
		}
		if suffix, ok := strings.CutPrefix(r.host, "*."); ok {
			return strings.HasSuffix(target, "."+suffix)
		}
		return target == r.host
	}
	return false
}
