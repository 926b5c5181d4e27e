package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector this service exposes. It is separate from
// the default registry so tests can gather it without global side effects.
var Registry = prometheus.NewRegistry()

var (
	FaultsFetched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "geotab_faults_fetched_total",
			Help: "Total number of FaultData records fetched from Geotab",
		},
	)

	FaultsInserted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "geotab_faults_inserted_total",
			Help: "Total number of new fault_data rows inserted",
		},
	)

	SyncRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geotab_sync_runs_total",
			Help: "Incremental sync runs by source and final state",
		},
		[]string{"source", "state"},
	)

	EntitiesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geotab_entities_upserted_total",
			Help: "Rows upserted by full entity refresh, by entity type",
		},
		[]string{"entity_type"},
	)

	ExportedRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geotab_exported_records_total",
			Help: "Records written to CSV by the bulk export, by entity type",
		},
		[]string{"entity_type"},
	)
)

func init() {
	Registry.MustRegister(
		FaultsFetched,
		FaultsInserted,
		SyncRuns,
		EntitiesProcessed,
		ExportedRecords,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the metrics registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
