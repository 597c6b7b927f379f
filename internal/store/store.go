// Package store define los contratos de acceso a datos del notificador:
// el event source (inscripciones/asistencias pendientes) y el ledger de
// notificaciones ya enviadas.
package store

import (
	"context"
	"errors"

	"github.com/aulanet/student-notifier/internal/domain"
)

// ErrAlreadyNotified indica que el ledger ya tiene una entrada para el par
// (notification_type, reference_id). Surge de la constraint UNIQUE a nivel
// de base: dos corridas solapadas pueden intentar registrar el mismo evento
// y la segunda inserción debe tratarse como "ya notificado", no como fallo.
var ErrAlreadyNotified = errors.New("store: notificación ya registrada")

// EventReader lee eventos candidatos a notificación, con el destinatario (y
// para inscripciones, la materia) ya joineados. Las filas sin email se
// excluyen a nivel de query: es un filtro de calidad de datos, no un skip
// de notificación.
type EventReader interface {
	// PendingEnrollments retorna todas las inscripciones con email de
	// destinatario, más recientes primero.
	PendingEnrollments(ctx context.Context) ([]domain.Enrollment, error)

	// PendingAttendance retorna todas las asistencias con email de
	// destinatario, más recientes primero.
	PendingAttendance(ctx context.Context) ([]domain.Attendance, error)
}

// Ledger es la fuente de verdad de "este evento ya fue notificado".
type Ledger interface {
	// Notified retorna en una sola query el conjunto de reference_id ya
	// notificados para un tipo. Una query por corrida, no por evento.
	Notified(ctx context.Context, t domain.NotificationType) (map[int64]struct{}, error)

	// Record inserta una entrada tras un envío confirmado. Retorna
	// ErrAlreadyNotified en conflicto de unicidad. Un fallo acá no revierte
	// el envío (el mail ya salió): el tradeoff at-least-once está documentado
	// en DESIGN.md.
	Record(ctx context.Context, e domain.LedgerEntry) error
}
