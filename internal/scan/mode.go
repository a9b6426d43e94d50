package scan

import (
	"fmt"
	"strconv"
	"strings"
)

// Mode selects which nmap probe an invocation runs.
type Mode int

const (
	ModePortScan Mode = iota
	ModeOSDetect
	ModeVersionDetect
)

func (m Mode) String() string {
	switch m {
	case ModePortScan:
		return "port-scan"
	case ModeOSDetect:
		return "os-detect"
	case ModeVersionDetect:
		return "version-detect"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// DefaultPortRange is the range probed when none is configured.
var DefaultPortRange = PortRange{Low: 1, High: 1024}

// PortRange is an inclusive, ascending port interval.
type PortRange struct {
	Low  int
	High int
}

// ParsePortRange accepts "low-high" or a single port number.
func ParsePortRange(s string) (PortRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PortRange{}, fmt.Errorf("%w: empty", ErrInvalidRange)
	}
	lowStr, highStr, found := strings.Cut(s, "-")
	if !found {
		highStr = lowStr
	}
	low, err := strconv.Atoi(strings.TrimSpace(lowStr))
	if err != nil {
		return PortRange{}, fmt.Errorf("%w: %q", ErrInvalidRange, s)
	}
	high, err := strconv.Atoi(strings.TrimSpace(highStr))
	if err != nil {
		return PortRange{}, fmt.Errorf("%w: %q", ErrInvalidRange, s)
	}
	r := PortRange{Low: low, High: high}
	if !r.Valid() {
		return PortRange{}, fmt.Errorf("%w: %q", ErrInvalidRange, s)
	}
	return r, nil
}

// Valid reports whether the range is ascending and within 1-65535.
func (r PortRange) Valid() bool {
	return r.Low >= 1 && r.High <= 65535 && r.Low <= r.High
}

func (r PortRange) Contains(port int) bool {
	return port >= r.Low && port <= r.High
}

func (r PortRange) String() string {
	if r.Low == r.High {
		return strconv.Itoa(r.Low)
	}
	return fmt.Sprintf("%d-%d", r.Low, r.High)
}

// Invocation describes one scanner run. Values are never mutated after
// construction.
type Invocation struct {
	Target string
	Mode   Mode
	Range  PortRange
}

func PortScan(target string, r PortRange) Invocation {
	return Invocation{Target: target, Mode: ModePortScan, Range: r}
}

func OSDetect(target string) Invocation {
	return Invocation{Target: target, Mode: ModeOSDetect}
}

func VersionDetect(target string) Invocation {
	return Invocation{Target: target, Mode: ModeVersionDetect}
}

// Validate checks the target and, for port scans, the range.
func (inv Invocation) Validate() error {
	if err := ValidateTarget(inv.Target); err != nil {
		return err
	}
	if inv.Mode == ModePortScan && !inv.Range.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidRange, inv.Range)
	}
	return nil
}

// ValidateTarget rejects empty targets and anything nmap would read as a flag.
func ValidateTarget(target string) error {
	target = strings.TrimSpace(target)
	if target == "" {
		return ErrInvalidTarget
	}
	if strings.HasPrefix(target, "-") || strings.ContainsAny(target, " \t\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidTarget, target)
	}
	return nil
}
