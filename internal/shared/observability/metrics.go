package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	FilesLoadedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strata_files_loaded_total",
		Help: "Total number of source files executed by the loader.",
	})

	FileLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "strata_file_load_seconds",
		Help:    "Time spent compiling and executing a single source file.",
		Buckets: prometheus.DefBuckets,
	})

	PackagesLoadedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strata_packages_loaded_total",
		Help: "Total number of packages whose files were loaded.",
	})

	BootstrapsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "strata_bootstraps_total",
		Help: "Total number of load/bootstrap runs by outcome.",
	}, []string{"outcome"})

	BootstrapDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "strata_bootstrap_seconds",
		Help:    "Wall time of successful bootstraps, entry point included.",
		Buckets: prometheus.DefBuckets,
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strata_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	ReloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strata_reloads_total",
		Help: "Total number of watch-triggered re-bootstraps.",
	})

	ReloadsThrottledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strata_reloads_throttled_total",
		Help: "Total number of watch-triggered reloads delayed by the rate limiter.",
	})
)
