package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Dispatch-related Prometheus metrics. Defined in a standalone package so
// both the HTTP layer and the dispatcher can record without import cycles.

var (
	RunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_runs_total",
		Help: "Corridas de despacho por acción y resultado",
	}, []string{"accion", "resultado"}) // resultado: ok|empty|config_error|bad_action|query_error

	EmailsSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_emails_sent_total",
		Help: "Emails enviados exitosamente por tipo de notificación",
	}, []string{"tipo"})

	EmailsFailedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_emails_failed_total",
		Help: "Envíos fallidos por tipo de notificación",
	}, []string{"tipo"})

	EmailsSkippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notifier_emails_skipped_total",
		Help: "Eventos salteados por destinatario sin email",
	})

	SendDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "notifier_send_duration_seconds",
		Help:    "Latencia de cada envío SMTP",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	LedgerWriteFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notifier_ledger_write_failures_total",
		Help: "Escrituras de ledger fallidas después de un envío confirmado",
	})
)

// Register registra las métricas del despachador en el registry dado
// (o en el default si es nil). Tolera registros duplicados.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	collectors := []prometheus.Collector{
		RunsTotal, EmailsSentTotal, EmailsFailedTotal,
		EmailsSkippedTotal, SendDuration, LedgerWriteFailures,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
