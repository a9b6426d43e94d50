package scan

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ScopeChecker decides whether a target may be scanned.
type ScopeChecker interface {
	InScope(target string) bool
}

// Aggregator runs the port scan and both fingerprint detections for a
// target and merges them into one Report.
type Aggregator struct {
	invoker      Invoker
	fingerprints *FingerprintCollector
	ports        PortRange
	scope        ScopeChecker
	log          logrus.FieldLogger
}

// AggregatorOptions configures an Aggregator. A zero Ports selects
// DefaultPortRange; a nil Scope allows every target.
type AggregatorOptions struct {
	Ports  PortRange
	Scope  ScopeChecker
	Logger logrus.FieldLogger
}

func NewAggregator(invoker Invoker, opts AggregatorOptions) *Aggregator {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	ports := opts.Ports
	if ports == (PortRange{}) {
		ports = DefaultPortRange
	}
	return &Aggregator{
		invoker:      invoker,
		fingerprints: NewFingerprintCollector(invoker, log),
		ports:        ports,
		scope:        opts.Scope,
		log:          log.WithField("component", "aggregator"),
	}
}

// Aggregate never fails: facets that could not be obtained are recorded in
// the report's failures and left empty or Unknown.
func (a *Aggregator) Aggregate(ctx context.Context, target string) Report {
	target = strings.TrimSpace(target)
	report := NewReport(target, a.ports)
	log := a.log.WithField("target", target)

	if err := PortScan(target, a.ports).Validate(); err != nil {
		report.fail(err, AllFacets...)
		return report
	}
	if a.scope != nil && !a.scope.InScope(target) {
		log.Warn("refusing out-of-scope target")
		report.fail(fmt.Errorf("%w: %s", ErrOutOfScope, target), AllFacets...)
		return report
	}

	var (
		facets  Facets
		portErr error
		osDet   Detection
		verDet  Detection
		g       errgroup.Group
	)
	g.Go(func() error {
		raw, err := a.invoker.Invoke(ctx, PortScan(target, a.ports))
		if err != nil {
			portErr = err
			return nil
		}
		// Parsed exactly once; a malformed document fails all three port facets.
		facets, portErr = Parse(raw)
		return nil
	})
	g.Go(func() error {
		osDet = a.fingerprints.DetectOS(ctx, target)
		return nil
	})
	g.Go(func() error {
		verDet = a.fingerprints.DetectVersion(ctx, target)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		log.Info("scan cancelled, discarding partial results")
		cancelled := NewReport(target, a.ports)
		cancelled.Cancelled = true
		cancelled.fail(fmt.Errorf("scan cancelled: %w", err), AllFacets...)
		return cancelled
	}

	if portErr != nil {
		log.WithError(portErr).Warn("port scan facet unavailable")
		report.fail(portErr, FacetPorts, FacetServices, FacetDNS)
	} else if dropped := report.mergePortFacets(facets); dropped > 0 {
		log.WithField("dropped", dropped).Warn("scanner reported ports outside the requested range")
	}

	report.OS = osDet.Value
	if osDet.Err != nil {
		report.fail(osDet.Err, FacetOS)
	}
	report.Version = verDet.Value
	if verDet.Err != nil {
		report.fail(verDet.Err, FacetVersion)
	}

	log.WithFields(logrus.Fields{
		"open_ports": len(report.OpenPorts),
		"failures":   len(report.Failures),
	}).Info("scan aggregated")
	return report
}
