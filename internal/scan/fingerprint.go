package scan

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Unknown is the fingerprint value used when detection is inconclusive or
// could not run.
const Unknown = "unknown"

// Detection is a best-effort fingerprint. Value is always set; Err explains
// a failed detection and is nil when the scan ran but matched nothing.
type Detection struct {
	Value string
	Err   error
}

// FingerprintCollector runs the OS and version detection variants.
type FingerprintCollector struct {
	invoker Invoker
	log     logrus.FieldLogger
}

func NewFingerprintCollector(invoker Invoker, log logrus.FieldLogger) *FingerprintCollector {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &FingerprintCollector{invoker: invoker, log: log}
}

// DetectOS never fails; on error the returned Value is Unknown.
func (c *FingerprintCollector) DetectOS(ctx context.Context, target string) Detection {
	return c.detect(ctx, OSDetect(target), OSFingerprint)
}

// DetectVersion never fails; on error the returned Value is Unknown.
func (c *FingerprintCollector) DetectVersion(ctx context.Context, target string) Detection {
	return c.detect(ctx, VersionDetect(target), VersionFingerprint)
}

func (c *FingerprintCollector) detect(ctx context.Context, inv Invocation, extract func(Facets) string) Detection {
	raw, err := c.invoker.Invoke(ctx, inv)
	if err != nil {
		c.log.WithError(err).WithField("mode", inv.Mode.String()).Warn("fingerprint detection failed")
		return Detection{Value: Unknown, Err: err}
	}
	facets, err := Parse(raw)
	if err != nil {
		c.log.WithError(err).WithField("mode", inv.Mode.String()).Warn("fingerprint output unreadable")
		return Detection{Value: Unknown, Err: err}
	}
	return Detection{Value: extract(facets)}
}

// OSFingerprint returns the most accurate OS match, or Unknown.
func OSFingerprint(f Facets) string {
	if len(f.OSMatches) == 0 {
		return Unknown
	}
	best := f.OSMatches[0]
	for _, m := range f.OSMatches[1:] {
		if m.Accuracy > best.Accuracy {
			best = m
		}
	}
	return best.Name
}

// VersionFingerprint summarizes the product/version of every service that
// reported one, or Unknown.
func VersionFingerprint(f Facets) string {
	var parts []string
	for _, s := range f.Services {
		if s.Product == "" {
			continue
		}
		entry := fmt.Sprintf("%d/%s %s %s", s.Port, s.Protocol, s.Name, s.Product)
		if s.Version != "" {
			entry += " " + s.Version
		}
		parts = append(parts, entry)
	}
	if len(parts) == 0 {
		return Unknown
	}
	return strings.Join(parts, "; ")
}
