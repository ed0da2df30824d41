package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ProvisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qmail_provisions_total",
			Help: "Mailbox tokens issued by locker outcome",
		},
		[]string{"outcome"}, // minted|no_daemon|create_failed|poll_exhausted|malformed_code|canceled
	)

	LockerPollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qmail_locker_polls_total",
			Help: "Locker task polls by result",
		},
		[]string{"result"}, // done|pending|error|malformed
	)

	AuditFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qmail_audit_failures_total",
			Help: "Audit lines that could not be written, by sink",
		},
		[]string{"sink"},
	)

	ArchivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qmail_archived_total",
			Help: "Registration events archived to ClickHouse",
		},
		[]string{"result"}, // stored|skipped|failed
	)
)

var registerOnce sync.Once

// MustRegister is safe to call from every command; collectors are
// registered once per process.
func MustRegister(r prometheus.Registerer) {
	registerOnce.Do(func() {
		r.MustRegister(
			ProvisionsTotal,
			LockerPollsTotal,
			AuditFailuresTotal,
			ArchivedTotal,
		)
	})
}
