package pool

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	devicesActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "snmpfleet_devices_active",
			Help: "Number of live device actors in the pool",
		},
	)

	devicesCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "snmpfleet_devices_created_total",
			Help: "Total device actors materialized",
		},
	)

	devicesCleanedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "snmpfleet_devices_cleaned_up_total",
			Help: "Total device actors deliberately evicted",
		},
	)

	devicesCrashedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "snmpfleet_devices_crashed_total",
			Help: "Total device actors removed after unexpected termination",
		},
	)
)

func init() {
	prometheus.MustRegister(devicesActive)
	prometheus.MustRegister(devicesCreatedTotal)
	prometheus.MustRegister(devicesCleanedTotal)
	prometheus.MustRegister(devicesCrashedTotal)
}

func metricsOnCreate(active int) {
	devicesCreatedTotal.Inc()
	devicesActive.Set(float64(active))
}

func metricsOnRemove(active int, deliberate bool) {
	if deliberate {
		devicesCleanedTotal.Inc()
	} else {
		devicesCrashedTotal.Inc()
	}
	devicesActive.Set(float64(active))
}
