package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var exportsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "attendtrack_report_exports_total",
	Help: "Spreadsheet exports served.",
})
