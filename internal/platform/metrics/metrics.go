package metrics

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Verifications = prom.NewCounterVec(prom.CounterOpts{
		Name: "snsgate_verifications_total",
		Help: "SNS message authentication outcomes by result or rejection reason",
	}, []string{"outcome"})

	CertCacheLookups = prom.NewCounterVec(prom.CounterOpts{
		Name: "snsgate_cert_cache_lookups_total",
		Help: "Signing certificate cache lookups by hit or miss",
	}, []string{"result"})

	CertFetchAttempts = prom.NewCounterVec(prom.CounterOpts{
		Name: "snsgate_cert_fetch_attempts_total",
		Help: "Signing certificate download attempts by success or failure",
	}, []string{"result"})

	EventsDropped = prom.NewCounter(prom.CounterOpts{
		Name: "snsgate_events_dropped_total",
		Help: "Verified messages dropped because the event buffer was full",
	})
)

func init() {
	prom.MustRegister(Verifications, CertCacheLookups, CertFetchAttempts, EventsDropped)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler { return promhttp.Handler() }
