package pg

import (
	"context"
	"fmt"

	"github.com/aulanet/student-notifier/internal/domain"
)

// El filtro s.email IS NOT NULL vive en la query a propósito: evita checks
// de ledger inútiles sobre filas que jamás podrán notificarse.
const qPendingEnrollments = `
SELECT e.id, e.student_id, e.course_id, e.enrolled_at,
       s.student_id, s.name, s.email,
       c.id, c.course_name, c.course_code, c.description, c.teacher_id
  FROM enrollments e
  JOIN students s ON s.student_id = e.student_id
  LEFT JOIN courses c ON c.id = e.course_id
 WHERE s.email IS NOT NULL
 ORDER BY e.enrolled_at DESC`

const qPendingAttendance = `
SELECT a.id, a.student_id, a.class_id, a.status, a.timestamp, a.confidence,
       s.student_id, s.name, s.email
  FROM attendance a
  JOIN students s ON s.student_id = a.student_id
 WHERE s.email IS NOT NULL
 ORDER BY a.timestamp DESC`

// PendingEnrollments retorna todas las inscripciones con destinatario,
// más recientes primero, con la materia joineada cuando existe.
func (s *Store) PendingEnrollments(ctx context.Context) ([]domain.Enrollment, error) {
	rows, err := s.pool.Query(ctx, qPendingEnrollments)
	if err != nil {
		return nil, fmt.Errorf("query enrollments: %w", err)
	}
	defer rows.Close()

	var out []domain.Enrollment
	for rows.Next() {
		var (
			e domain.Enrollment
			// columnas del LEFT JOIN: pueden venir NULL en bloque
			cID, cName, cCode, cDesc, cTeacher *string
		)
		if err := rows.Scan(
			&e.ID, &e.StudentID, &e.CourseID, &e.EnrolledAt,
			&e.Student.StudentID, &e.Student.Name, &e.Student.Email,
			&cID, &cName, &cCode, &cDesc, &cTeacher,
		); err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		if cID != nil {
			e.Course = &domain.Course{
				ID:          *cID,
				CourseName:  deref(cName),
				CourseCode:  deref(cCode),
				Description: cDesc,
				TeacherID:   deref(cTeacher),
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrollments: %w", err)
	}
	return out, nil
}

// PendingAttendance retorna todas las asistencias con destinatario,
// más recientes primero.
func (s *Store) PendingAttendance(ctx context.Context) ([]domain.Attendance, error) {
	rows, err := s.pool.Query(ctx, qPendingAttendance)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var out []domain.Attendance
	for rows.Next() {
		var a domain.Attendance
		if err := rows.Scan(
			&a.ID, &a.StudentID, &a.ClassID, &a.Status, &a.Timestamp, &a.Confidence,
			&a.Student.StudentID, &a.Student.Name, &a.Student.Email,
		); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
