package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aulanet/student-notifier/internal/domain"
	"github.com/aulanet/student-notifier/internal/store"
)

const qNotified = `
SELECT reference_id
  FROM student_notifications
 WHERE notification_type = $1`

const qRecord = `
INSERT INTO student_notifications
       (student_id, notification_type, reference_id, email_sent, sent_at, is_read, confirmation_token)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

// Notified trae en un solo batch el conjunto de reference_id ya notificados
// para el tipo dado. O(1) queries por corrida sin importar cuántos eventos haya.
func (s *Store) Notified(ctx context.Context, t domain.NotificationType) (map[int64]struct{}, error) {
	rows, err := s.pool.Query(ctx, qNotified, string(t))
	if err != nil {
		return nil, fmt.Errorf("query notified set: %w", err)
	}
	defer rows.Close()

	set := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan notified set: %w", err)
		}
		set[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notified set: %w", err)
	}
	return set, nil
}

// Record inserta la entrada del ledger. La constraint UNIQUE sobre
// (notification_type, reference_id) convierte la carrera entre corridas
// solapadas en un ErrAlreadyNotified que el dispatcher trata como éxito.
func (s *Store) Record(ctx context.Context, e domain.LedgerEntry) error {
	_, err := s.pool.Exec(ctx, qRecord,
		e.StudentID, string(e.NotificationType), e.ReferenceID,
		e.EmailSent, e.SentAt, e.IsRead, e.ConfirmationToken,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return store.ErrAlreadyNotified
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}
