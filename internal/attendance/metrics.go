package attendance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checkinsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendtrack_checkins_total",
		Help: "Sessions opened.",
	})
	checkoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendtrack_checkouts_total",
		Help: "Sessions closed.",
	})
	imageFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendtrack_image_failures_total",
		Help: "Uploaded images that failed to decode or write.",
	})
	purgedRowsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendtrack_purged_rows_total",
		Help: "Session rows removed by administrative purges.",
	})
)
