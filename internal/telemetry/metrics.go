package telemetry

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hifi-download-manager/internal/models"
	"hifi-download-manager/internal/store"
)

var (
	once sync.Once

	PollCounter     = prometheus.NewCounter(prometheus.CounterOpts{Name: "hifi_dashboard_polls_total", Help: "Status API polls served"})
	NotFoundCounter = prometheus.NewCounter(prometheus.CounterOpts{Name: "hifi_lookup_not_found_total", Help: "Status lookups for unknown download ids"})
)

// DownloadsCollector exports per-status download counts, read fresh from the
// state file on every scrape so the numbers reflect on-disk truth even
// though workers run in separate processes.
type DownloadsCollector struct {
	store *store.Store
	desc  *prometheus.Desc
}

func NewDownloadsCollector(st *store.Store) *DownloadsCollector {
	return &DownloadsCollector{
		store: st,
		desc: prometheus.NewDesc(
			"hifi_downloads",
			"Download records in the state file, by status",
			[]string{"status"},
			nil,
		),
	}
}

func (c *DownloadsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *DownloadsCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	counts := map[models.Status]int{
		models.StatusPending:    0,
		models.StatusInProgress: 0,
		models.StatusCompleted:  0,
		models.StatusFailed:     0,
	}
	if downloads, err := c.store.Load(ctx); err == nil {
		for _, d := range downloads {
			counts[d.Status]++
		}
	}
	for status, n := range counts {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(n), string(status))
	}
}

// Handler exposes the /metrics HTTP handler with a singleton registry.
func Handler(st *store.Store) http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			PollCounter,
			NotFoundCounter,
			NewDownloadsCollector(st),
		)
	})
	return promhttp.Handler()
}
