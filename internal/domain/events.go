// Package domain define los tipos de eventos académicos que disparan
// notificaciones y el registro durable de envíos.
package domain

import "time"

// NotificationType identifica el namespace de un evento en el ledger.
type NotificationType string

const (
	// TypeEnrollment corresponde a inscripciones a materias.
	TypeEnrollment NotificationType = "enrollment"
	// TypeAttendance corresponde a asistencias verificadas.
	TypeAttendance NotificationType = "attendance"
)

// Estados de asistencia reconocidos. Cualquier otro valor recibe el
// tratamiento visual de "present" (comportamiento heredado, ver DESIGN.md).
const (
	StatusPresent = "present"
	StatusLate    = "late"
	StatusAbsent  = "absent"
)

// Student es la proyección mínima del destinatario.
// Email vacío ⇒ el evento se saltea (no se reintenta ni se cuenta).
type Student struct {
	StudentID string
	Name      string
	Email     string
}

// Course es la metadata opcional de la materia para el email de inscripción.
type Course struct {
	ID          string
	CourseName  string
	CourseCode  string
	Description *string
	TeacherID   string
}

// Enrollment es una inscripción leída del event source, con el estudiante
// y (si existe) la materia ya joineados. Inmutable una vez leída.
type Enrollment struct {
	ID         int64
	StudentID  string
	CourseID   string
	EnrolledAt time.Time
	Student    Student
	Course     *Course
}

// Attendance es una asistencia verificada leída del event source.
type Attendance struct {
	ID         int64
	StudentID  string
	ClassID    string
	Status     string
	Timestamp  time.Time
	Confidence *float64
	Student    Student
}

// LedgerEntry registra que un evento ya fue notificado.
// La unicidad sobre (NotificationType, ReferenceID) es la única garantía
// de idempotencia del sistema; se escribe solo después de un envío confirmado
// y nunca se actualiza ni borra.
type LedgerEntry struct {
	NotificationType  NotificationType
	ReferenceID       int64
	StudentID         string
	EmailSent         string
	SentAt            time.Time
	IsRead            bool
	ConfirmationToken string
}
