package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreHits tracks session lookups that found a session, by store
	StoreHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artic_session_store_hits_total",
			Help: "Total number of session store hits",
		},
		[]string{"store"}, // "memory", "redis"
	)

	// StoreMisses tracks lookups of unknown or expired sessions
	StoreMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artic_session_store_misses_total",
			Help: "Total number of session store misses",
		},
		[]string{"store"},
	)

	// StoreErrors tracks store operation errors
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artic_session_store_errors_total",
			Help: "Total number of session store operation errors",
		},
		[]string{"store", "operation"}, // "get", "save", "delete"
	)
)
