package email

import (
	"strings"
	"testing"
	"time"

	"github.com/aulanet/student-notifier/internal/domain"
)

func baseEnrollment() domain.Enrollment {
	return domain.Enrollment{
		ID:         10,
		StudentID:  "A1",
		CourseID:   "curso-uuid-1",
		EnrolledAt: time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC),
		Student:    domain.Student{StudentID: "A1", Name: "Juan Pérez", Email: "juan@uni.edu"},
		Course: &domain.Course{
			ID:         "curso-uuid-1",
			CourseName: "Matemática Discreta",
			CourseCode: "MAT-101",
		},
	}
}

func TestRenderEnrollment_WithCourse(t *testing.T) {
	r, err := RenderEnrollment(baseEnrollment(), "tok-1")
	if err != nil {
		t.Fatal(err)
	}
	if r.Subject != "📚 ¡Has sido inscrito en Matemática Discreta!" {
		t.Fatalf("asunto inesperado: %q", r.Subject)
	}
	for _, want := range []string{
		"Juan Pérez",
		"Matemática Discreta",
		"MAT-101",
		"lunes, 2 de marzo de 2026",
	} {
		if !strings.Contains(r.HTML, want) {
			t.Errorf("el cuerpo debería contener %q", want)
		}
	}
}

func TestRenderEnrollment_WithoutCourse_FallsBackToID(t *testing.T) {
	e := baseEnrollment()
	e.Course = nil

	r, err := RenderEnrollment(e, "tok-1")
	if err != nil {
		t.Fatal(err)
	}
	if r.Subject != "📚 ¡Has sido inscrito en una nueva materia!" {
		t.Fatalf("asunto inesperado: %q", r.Subject)
	}
	if !strings.Contains(r.HTML, "Materia ID: curso-uuid-1") {
		t.Error("sin metadata de curso debe mostrar el ID de la materia")
	}
}

func TestRenderEnrollment_OmitsEmptyCourseCode(t *testing.T) {
	e := baseEnrollment()
	e.Course.CourseCode = ""

	r, err := RenderEnrollment(e, "tok-1")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(r.HTML, "Código del curso") {
		t.Error("sin código la fila debe omitirse")
	}
}

func baseAttendance(status string) domain.Attendance {
	return domain.Attendance{
		ID:        7,
		StudentID: "A9",
		ClassID:   "FIS-200",
		Status:    status,
		Timestamp: time.Date(2026, time.March, 2, 14, 30, 0, 0, time.UTC),
		Student:   domain.Student{StudentID: "A9", Name: "Ana Gómez", Email: "ana@uni.edu"},
	}
}

func TestRenderAttendance_LateWithConfidence(t *testing.T) {
	a := baseAttendance(domain.StatusLate)
	conf := 0.87
	a.Confidence = &conf

	r, err := RenderAttendance(a, "tok-2")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(r.Subject, "⚠️ Tarde") {
		t.Fatalf("asunto inesperado: %q", r.Subject)
	}
	if !strings.Contains(r.Subject, "FIS-200") {
		t.Fatalf("el asunto debe nombrar la clase: %q", r.Subject)
	}
	for _, want := range []string{
		"87.0%",
		"Estado: Tarde",
		"#f59e0b",
		"Llegada tarde",
		"lunes, 2 de marzo de 2026 a las 2:30 PM",
	} {
		if !strings.Contains(r.HTML, want) {
			t.Errorf("el cuerpo debería contener %q", want)
		}
	}
}

func TestRenderAttendance_Tiers(t *testing.T) {
	cases := []struct {
		status  string
		subject string
		color   string
		label   string
	}{
		{domain.StatusPresent, "✅ Presente", "#10b981", "Estado: Presente"},
		{domain.StatusLate, "⚠️ Tarde", "#f59e0b", "Estado: Tarde"},
		{domain.StatusAbsent, "❌ Ausente", "#ef4444", "Estado: Ausente"},
	}
	for _, c := range cases {
		r, err := RenderAttendance(baseAttendance(c.status), "tok")
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(r.Subject, c.subject) {
			t.Errorf("%s: asunto %q sin prefijo %q", c.status, r.Subject, c.subject)
		}
		if !strings.Contains(r.HTML, c.color) || !strings.Contains(r.HTML, c.label) {
			t.Errorf("%s: cuerpo sin el estilo esperado (%s, %s)", c.status, c.color, c.label)
		}
	}
}

func TestRenderAttendance_UnknownStatusFallsBackToPresent(t *testing.T) {
	r, err := RenderAttendance(baseAttendance("excused"), "tok")
	if err != nil {
		t.Fatal(err)
	}
	// Comportamiento heredado: visual de "present" pero asunto "Verificada".
	if !strings.Contains(r.Subject, "✅ Verificada") {
		t.Fatalf("asunto inesperado: %q", r.Subject)
	}
	if !strings.Contains(r.HTML, "Estado: Presente") || !strings.Contains(r.HTML, "#10b981") {
		t.Error("estado desconocido debe usar el visual de present")
	}
}

func TestRenderAttendance_ConfidenceOmittedWhenAbsentOrZero(t *testing.T) {
	r, err := RenderAttendance(baseAttendance(domain.StatusPresent), "tok")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(r.HTML, "Confianza de reconocimiento") {
		t.Error("sin confianza la fila debe omitirse")
	}

	a := baseAttendance(domain.StatusPresent)
	zero := 0.0
	a.Confidence = &zero
	r, err = RenderAttendance(a, "tok")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(r.HTML, "Confianza de reconocimiento") {
		t.Error("confianza cero también se omite (comportamiento heredado)")
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	a := baseAttendance(domain.StatusAbsent)
	r1, err := RenderAttendance(a, "tok")
	if err != nil {
		t.Fatal(err)
	}
	r2, err := RenderAttendance(a, "tok")
	if err != nil {
		t.Fatal(err)
	}
	if r1 != r2 {
		t.Error("el renderer debe ser determinístico para el mismo evento")
	}
}
