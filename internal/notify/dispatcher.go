// Package notify implementa el orquestador del despacho batch: descubre
// eventos sin notificar, los filtra contra el ledger, renderiza, envía con
// throttle y registra el resultado.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/aulanet/student-notifier/internal/domain"
	"github.com/aulanet/student-notifier/internal/email"
	"github.com/aulanet/student-notifier/internal/metrics"
	"github.com/aulanet/student-notifier/internal/observability/logger"
	"github.com/aulanet/student-notifier/internal/store"
)

// Action es la operación pedida por el trigger externo.
type Action string

const (
	ActionNuevasInscripciones Action = "nuevas_inscripciones"
	ActionNuevasAsistencias   Action = "nuevas_asistencias"
)

// SentDetail es el detalle por email enviado, tal como sale en la respuesta.
type SentDetail struct {
	StudentID string `json:"student_id"`
	Email     string `json:"email"`
	MessageID string `json:"message_id"`
	Tipo      string `json:"tipo"`
}

// FailureDetail es el detalle por envío fallido.
type FailureDetail struct {
	StudentID string `json:"student_id"`
	Error     string `json:"error"`
}

// Summary es el agregado efímero de una corrida. Vive solo en la respuesta
// del trigger: nunca se persiste.
type Summary struct {
	Action     Action
	Considered int
	Skipped    int
	Sent       []SentDetail
	Failed     []FailureDetail

	// EmptyMessage se setea cuando no había nada para notificar.
	EmptyMessage string
}

// Empty indica una corrida que terminó sin eventos pendientes.
func (s *Summary) Empty() bool { return s.EmptyMessage != "" }

// Config agrupa las dependencias del Dispatcher.
type Config struct {
	Reader store.EventReader
	Ledger store.Ledger
	Sender email.Sender

	// SMTPConfigured refleja si hay credenciales de transporte. Sin ellas
	// toda corrida aborta antes de cualquier I/O.
	SMTPConfigured bool

	// SendDelay es la pausa entre envíos consecutivos. Default: 1s.
	SendDelay time.Duration

	// NewToken genera el token de confirmación por notificación.
	// Default: uuid.NewString.
	NewToken func() string

	// Now permite inyectar el reloj en tests. Default: time.Now.
	Now func() time.Time
}

// Dispatcher ejecuta corridas de despacho. Cada corrida es stateless salvo
// a través del ledger; el Dispatcher en sí solo guarda dependencias.
type Dispatcher struct {
	reader store.EventReader
	ledger store.Ledger
	sender email.Sender

	smtpConfigured bool
	sendDelay      time.Duration
	newToken       func() string
	now            func() time.Time

	// sf colapsa triggers concurrentes de la misma acción en una sola
	// corrida; la defensa de fondo contra duplicados sigue siendo la
	// constraint UNIQUE del ledger.
	sf singleflight.Group
}

// New crea un Dispatcher con la configuración dada.
func New(cfg Config) *Dispatcher {
	d := &Dispatcher{
		reader:         cfg.Reader,
		ledger:         cfg.Ledger,
		sender:         cfg.Sender,
		smtpConfigured: cfg.SMTPConfigured,
		sendDelay:      cfg.SendDelay,
		newToken:       cfg.NewToken,
		now:            cfg.Now,
	}
	if d.sendDelay == 0 {
		d.sendDelay = time.Second
	}
	if d.newToken == nil {
		d.newToken = uuid.NewString
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

// RunShared es Run detrás de singleflight: dos triggers solapados de la
// misma acción comparten una única corrida y su Summary.
func (d *Dispatcher) RunShared(ctx context.Context, action Action) (*Summary, error) {
	// La corrida se desacopla de la cancelación del primer caller: su
	// desconexión no debe abortar la corrida que otros callers comparten,
	// ni cortar entre el envío y la escritura del ledger.
	runCtx := context.WithoutCancel(ctx)
	v, err, _ := d.sf.Do(string(action), func() (any, error) {
		return d.Run(runCtx, action)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Summary), nil
}

// actionLabel acota el valor del label de métricas a las acciones conocidas.
// El trigger es público: usar el query string crudo como label permitiría
// fabricar series nuevas con cada ?accion=basura distinta.
func actionLabel(a Action) string {
	switch a {
	case ActionNuevasInscripciones, ActionNuevasAsistencias:
		return string(a)
	}
	return "invalid"
}

// Run ejecuta una corrida completa para la acción dada. Primero valida la
// configuración SMTP, después resuelve la acción y procesa. Los fallos de
// envío individuales nunca abortan la corrida; los errores de query sí.
func (d *Dispatcher) Run(ctx context.Context, action Action) (*Summary, error) {
	if !d.smtpConfigured {
		metrics.RunsTotal.WithLabelValues(actionLabel(action), "config_error").Inc()
		return nil, ErrSMTPNotConfigured
	}

	switch action {
	case ActionNuevasInscripciones:
		return d.runEnrollments(ctx)
	case ActionNuevasAsistencias:
		return d.runAttendance(ctx)
	default:
		metrics.RunsTotal.WithLabelValues(actionLabel(action), "bad_action").Inc()
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}

// item es un evento normalizado para el loop de despacho compartido.
type item struct {
	referenceID int64
	student     domain.Student
	render      func(token string) (email.Rendered, error)
}

func (d *Dispatcher) runEnrollments(ctx context.Context) (*Summary, error) {
	log := logger.From(ctx).With(logger.Accion(string(ActionNuevasInscripciones)))
	log.Info("buscando nuevas inscripciones")

	events, err := d.reader.PendingEnrollments(ctx)
	if err != nil {
		metrics.RunsTotal.WithLabelValues(string(ActionNuevasInscripciones), "query_error").Inc()
		return nil, err
	}

	notified, err := d.ledger.Notified(ctx, domain.TypeEnrollment)
	if err != nil {
		metrics.RunsTotal.WithLabelValues(string(ActionNuevasInscripciones), "query_error").Inc()
		return nil, err
	}

	var items []item
	for _, e := range events {
		if _, ok := notified[e.ID]; ok {
			continue
		}
		e := e
		items = append(items, item{
			referenceID: e.ID,
			student:     e.Student,
			render: func(token string) (email.Rendered, error) {
				return email.RenderEnrollment(e, token)
			},
		})
	}

	return d.process(ctx, ActionNuevasInscripciones, domain.TypeEnrollment, items,
		"No hay nuevas inscripciones para notificar")
}

func (d *Dispatcher) runAttendance(ctx context.Context) (*Summary, error) {
	log := logger.From(ctx).With(logger.Accion(string(ActionNuevasAsistencias)))
	log.Info("buscando nuevas asistencias verificadas")

	events, err := d.reader.PendingAttendance(ctx)
	if err != nil {
		metrics.RunsTotal.WithLabelValues(string(ActionNuevasAsistencias), "query_error").Inc()
		return nil, err
	}

	notified, err := d.ledger.Notified(ctx, domain.TypeAttendance)
	if err != nil {
		metrics.RunsTotal.WithLabelValues(string(ActionNuevasAsistencias), "query_error").Inc()
		return nil, err
	}

	var items []item
	for _, a := range events {
		if _, ok := notified[a.ID]; ok {
			continue
		}
		a := a
		items = append(items, item{
			referenceID: a.ID,
			student:     a.Student,
			render: func(token string) (email.Rendered, error) {
				return email.RenderAttendance(a, token)
			},
		})
	}

	return d.process(ctx, ActionNuevasAsistencias, domain.TypeAttendance, items,
		"No hay nuevas asistencias para notificar")
}

// process recorre los eventos pendientes en orden (más recientes primero,
// como vienen del reader), estrictamente secuencial. El throttle espacia los
// intentos de envío; un fallo individual se anota y el loop continúa.
func (d *Dispatcher) process(ctx context.Context, action Action, t domain.NotificationType, items []item, emptyMsg string) (*Summary, error) {
	log := logger.From(ctx).With(logger.Accion(string(action)))
	log.Info("eventos pendientes", logger.Count(len(items)))

	sum := &Summary{Action: action, Considered: len(items)}

	if len(items) == 0 {
		sum.EmptyMessage = emptyMsg
		metrics.RunsTotal.WithLabelValues(string(action), "empty").Inc()
		return sum, nil
	}

	th := NewThrottle(d.sendDelay)

	for _, it := range items {
		if it.student.Email == "" {
			// Sin destinatario: no es error ni reintentable. Queda fuera de
			// ambos conteos. (El reader ya filtra a nivel de query; este es
			// el cinturón del loop.)
			log.Info("estudiante sin email, salteado", logger.StudentID(it.student.StudentID))
			metrics.EmailsSkippedTotal.Inc()
			sum.Skipped++
			continue
		}

		token := d.newToken()
		rendered, err := it.render(token)
		if err != nil {
			log.Error("render falló", logger.StudentID(it.student.StudentID), logger.Err(err))
			sum.Failed = append(sum.Failed, FailureDetail{StudentID: it.student.StudentID, Error: err.Error()})
			metrics.EmailsFailedTotal.WithLabelValues(string(t)).Inc()
			continue
		}

		th.Wait()

		start := d.now()
		messageID, err := d.sender.Send(it.student.Email, rendered.Subject, rendered.HTML)
		metrics.SendDuration.Observe(d.now().Sub(start).Seconds())
		if err != nil {
			log.Error("envío falló",
				logger.StudentID(it.student.StudentID),
				logger.Email(it.student.Email),
				logger.Err(err),
			)
			sum.Failed = append(sum.Failed, FailureDetail{StudentID: it.student.StudentID, Error: err.Error()})
			metrics.EmailsFailedTotal.WithLabelValues(string(t)).Inc()
			continue
		}

		entry := domain.LedgerEntry{
			NotificationType:  t,
			ReferenceID:       it.referenceID,
			StudentID:         it.student.StudentID,
			EmailSent:         it.student.Email,
			SentAt:            d.now(),
			IsRead:            false,
			ConfirmationToken: token,
		}
		if err := d.ledger.Record(ctx, entry); err != nil {
			if errors.Is(err, store.ErrAlreadyNotified) {
				// Otra corrida ganó la carrera después de nuestro envío.
				// El evento quedó registrado: no es un fallo de entrega.
				log.Warn("entrada de ledger ya existente",
					logger.NotificationType(string(t)),
					logger.ReferenceID(it.referenceID),
				)
			} else {
				// El mail ya salió: no hay rollback posible. La próxima
				// corrida reintentará y puede duplicar (at-least-once).
				log.Error("escritura de ledger falló tras envío confirmado",
					logger.NotificationType(string(t)),
					logger.ReferenceID(it.referenceID),
					logger.Err(err),
				)
				metrics.LedgerWriteFailures.Inc()
			}
		}

		log.Info("notificación enviada",
			logger.StudentID(it.student.StudentID),
			logger.MessageID(messageID),
		)
		sum.Sent = append(sum.Sent, SentDetail{
			StudentID: it.student.StudentID,
			Email:     it.student.Email,
			MessageID: messageID,
			Tipo:      string(t),
		})
		metrics.EmailsSentTotal.WithLabelValues(string(t)).Inc()
	}

	log.Info("corrida completada",
		logger.Int("enviados", len(sum.Sent)),
		logger.Int("errores", len(sum.Failed)),
		logger.Int("salteados", sum.Skipped),
	)
	metrics.RunsTotal.WithLabelValues(string(action), "ok").Inc()
	return sum, nil
}
