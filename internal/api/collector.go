package api

import (
	"github.com/Harshitk-cp/substrate/internal/service"
	"github.com/prometheus/client_golang/prometheus"
)

// snapshotCollector exposes substrate gauges computed from a Snapshot at
// scrape time.
type snapshotCollector struct {
	svc *service.SubstrateService

	geoids         *prometheus.Desc
	scars          *prometheus.Desc
	activeScars    *prometheus.Desc
	contradictions *prometheus.Desc
	density        *prometheus.Desc
	echo           *prometheus.Desc
	ledger         *prometheus.Desc
}

func newSnapshotCollector(svc *service.SubstrateService) *snapshotCollector {
	return &snapshotCollector{
		svc:            svc,
		geoids:         prometheus.NewDesc("substrate_geoids", "Geoids held in the substrate.", nil, nil),
		scars:          prometheus.NewDesc("substrate_scars", "Scars held in the vault.", nil, nil),
		activeScars:    prometheus.NewDesc("substrate_scars_active", "Scars with nonzero echo strength.", nil, nil),
		contradictions: prometheus.NewDesc("substrate_contradictions_active", "Unresolved contradiction events.", nil, nil),
		density:        prometheus.NewDesc("substrate_contradiction_density", "Active contradictions per geoid pair.", nil, nil),
		echo:           prometheus.NewDesc("substrate_scar_echo_avg", "Mean scar echo strength.", nil, nil),
		ledger:         prometheus.NewDesc("substrate_ledger_entries", "Entries in the audit ledger.", nil, nil),
	}
}

func (c *snapshotCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.geoids
	ch <- c.scars
	ch <- c.activeScars
	ch <- c.contradictions
	ch <- c.density
	ch <- c.echo
	ch <- c.ledger
}

func (c *snapshotCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.svc.Snapshot()
	ch <- prometheus.MustNewConstMetric(c.geoids, prometheus.GaugeValue, float64(snap.Substrate.TotalGeoids))
	ch <- prometheus.MustNewConstMetric(c.scars, prometheus.GaugeValue, float64(snap.Vault.TotalScars))
	ch <- prometheus.MustNewConstMetric(c.activeScars, prometheus.GaugeValue, float64(snap.Vault.ActiveScars))
	ch <- prometheus.MustNewConstMetric(c.contradictions, prometheus.GaugeValue, float64(len(snap.ActiveContradictions)))
	ch <- prometheus.MustNewConstMetric(c.density, prometheus.GaugeValue, snap.ContradictionDensity)
	ch <- prometheus.MustNewConstMetric(c.echo, prometheus.GaugeValue, snap.Vault.AvgEchoStrength)
	ch <- prometheus.MustNewConstMetric(c.ledger, prometheus.GaugeValue, float64(snap.LedgerEntries))
}
