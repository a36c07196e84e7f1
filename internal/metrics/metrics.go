package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"depth-feed/internal/logger"
)

var (
	SnapshotsTotal          = prometheus.NewCounter(prometheus.CounterOpts{Name: "depthfeed_snapshots_total", Help: "Snapshots passed through the depth view"})
	CellUpdatesTotal        = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "depthfeed_cell_updates_total", Help: "Cell writes by side and field"}, []string{"side", "field"})
	HighlightsTotal         = prometheus.NewCounter(prometheus.CounterOpts{Name: "depthfeed_highlights_total", Help: "Cell writes carrying a highlight"})
	SkippedCellsTotal       = prometheus.NewCounter(prometheus.CounterOpts{Name: "depthfeed_skipped_cells_total", Help: "Cells skipped because of non-finite input"})
	DeltaResetsTotal        = prometheus.NewCounter(prometheus.CounterOpts{Name: "depthfeed_delta_resets_total", Help: "Delta reset actions"})
	Spread                  = prometheus.NewGauge(prometheus.GaugeOpts{Name: "depthfeed_spread", Help: "Last displayed spread"})
	WSClients               = prometheus.NewGauge(prometheus.GaugeOpts{Name: "depthfeed_ws_clients", Help: "Connected websocket clients"})
	WSDroppedTotal          = prometheus.NewCounter(prometheus.CounterOpts{Name: "depthfeed_ws_dropped_total", Help: "Clients evicted for falling behind"})
	WSPublishDropsTotal     = prometheus.NewCounter(prometheus.CounterOpts{Name: "depthfeed_ws_publish_drops_total", Help: "Messages dropped before reaching the hub"})
	UpstreamEventsTotal     = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "depthfeed_upstream_events_total", Help: "Book events applied by source"}, []string{"source"})
	UpstreamReconnectsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "depthfeed_upstream_reconnects_total", Help: "Upstream reconnects by source and reason"}, []string{"source", "reason"})
	UpstreamErrorsTotal     = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "depthfeed_upstream_errors_total", Help: "Upstream API errors by source and endpoint"}, []string{"source", "endpoint"})
	BookRebuildsTotal       = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "depthfeed_book_rebuilds_total", Help: "Order book snapshot rebuilds by source and reason"}, []string{"source", "reason"})
)

// Init registers every collector on a fresh registry.
func Init() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	toRegister := []prometheus.Collector{
		SnapshotsTotal, CellUpdatesTotal, HighlightsTotal, SkippedCellsTotal, DeltaResetsTotal,
		Spread, WSClients, WSDroppedTotal, WSPublishDropsTotal,
		UpstreamEventsTotal, UpstreamReconnectsTotal, UpstreamErrorsTotal, BookRebuildsTotal,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}

	for _, c := range toRegister {
		_ = reg.Register(c)
	}

	logger.GetLogger().WithComponent("metrics").Info("Prometheus metrics initialized")

	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
