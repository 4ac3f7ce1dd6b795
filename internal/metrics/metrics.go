// Package metrics defines the Prometheus counters for referral submissions
// and notification delivery.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeCreated = "created"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"

	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	Submissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "referralhub_submissions_total",
		Help: "Total number of referral form submissions by outcome",
	}, []string{"outcome"})
	MailSend = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "referralhub_mail_send_total",
		Help: "Total number of referee notification attempts by result",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(Submissions)
	prometheus.MustRegister(MailSend)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
