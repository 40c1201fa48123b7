package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CatalogPages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_catalog_pages_total",
		Help: "Catalog pages assembled, by outcome",
	}, []string{"outcome"})

	ShortCircuits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_catalog_short_circuits_total",
		Help: "Catalog pages answered empty without a product fetch",
	})

	FacetComputations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_facet_computations_total",
		Help: "Facet value computations, by cache result",
	}, []string{"cache"})

	PipelineStale = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_pipeline_stale_total",
		Help: "Pipeline results discarded because a newer selection arrived",
	})

	CacheInvalidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cache_invalidations_total",
		Help: "Catalog cache flushes, by trigger",
	}, []string{"source"})

	AssembleSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storefront_catalog_assemble_seconds",
		Help:    "Time spent assembling one catalog page",
		Buckets: prometheus.DefBuckets,
	})
)
