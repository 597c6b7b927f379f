package email

import (
	"bytes"
	"fmt"
	htemplate "html/template"

	"github.com/aulanet/student-notifier/internal/domain"
)

// Rendered es el resultado del renderer: asunto + cuerpo HTML listos para
// entregar al canal de envío.
type Rendered struct {
	Subject string
	HTML    string
}

// statusStyle define el tratamiento visual de cada estado de asistencia.
type statusStyle struct {
	Icon  string
	Color htemplate.CSS
	Bg    htemplate.CSS
	Text  string
}

var statusStyles = map[string]statusStyle{
	domain.StatusPresent: {Icon: "✅", Color: "#10b981", Bg: "#d1fae5", Text: "Presente"},
	domain.StatusLate:    {Icon: "⚠️", Color: "#f59e0b", Bg: "#fef3c7", Text: "Tarde"},
	domain.StatusAbsent:  {Icon: "❌", Color: "#ef4444", Bg: "#fee2e2", Text: "Ausente"},
}

// statusSubjects son los prefijos de asunto por estado. El fallback para
// estados desconocidos difiere a propósito del fallback visual: así venía
// del sistema original y se preserva (ver DESIGN.md).
var statusSubjects = map[string]string{
	domain.StatusPresent: "✅ Presente",
	domain.StatusLate:    "⚠️ Tarde",
	domain.StatusAbsent:  "❌ Ausente",
}

// styleFor retorna el estilo del estado; desconocidos usan el de "present".
func styleFor(status string) statusStyle {
	if s, ok := statusStyles[status]; ok {
		return s
	}
	return statusStyles[domain.StatusPresent]
}

var enrollmentTmpl = htemplate.Must(htemplate.New("inscripcion").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin: 0; padding: 0; font-family: 'Segoe UI', Arial, sans-serif; background-color: #f4f4f4;">
<div style="max-width: 600px; margin: 0 auto; background-color: #ffffff;">
<div style="background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); padding: 30px; text-align: center;">
<h1 style="color: white; margin: 0; font-size: 28px;">📚 ¡Bienvenido a tu nueva materia!</h1>
</div>
<div style="padding: 30px;">
<p style="font-size: 18px; color: #333;">Hola <strong>{{.Name}}</strong>,</p>
<p style="color: #555; line-height: 1.6;">Te informamos que has sido inscrito exitosamente en la siguiente materia:</p>
<div style="background: linear-gradient(135deg, #f5f7fa 0%, #e8ecf1 100%); border-radius: 12px; padding: 25px; margin: 25px 0; border-left: 5px solid #667eea;">
{{if .CourseName}}<h2 style="color: #667eea; margin-top: 0; margin-bottom: 15px;">📖 {{.CourseName}}</h2>{{else}}<h2 style="color: #667eea; margin-top: 0; margin-bottom: 15px;">📖 Materia ID: {{.CourseID}}</h2>{{end}}
<table style="width: 100%; border-collapse: collapse;">
{{if .CourseCode}}<tr><td style="padding: 10px 0; vertical-align: top; width: 40px;"><span style="font-size: 24px;">🔢</span></td><td style="padding: 10px 0;"><strong style="color: #333;">Código del curso</strong><br><span style="color: #667eea; font-size: 16px;">{{.CourseCode}}</span></td></tr>{{end}}
<tr><td style="padding: 10px 0; vertical-align: top; width: 40px;"><span style="font-size: 24px;">📝</span></td><td style="padding: 10px 0;"><strong style="color: #333;">Fecha de inscripción</strong><br><span style="color: #667eea; font-size: 16px;">{{.EnrolledAt}}</span></td></tr>
</table>
</div>
<div style="background-color: #f8f9fa; border-radius: 8px; padding: 20px; margin: 20px 0;">
<h3 style="color: #333; margin-top: 0; font-size: 16px;">ℹ️ Información importante</h3>
<ul style="color: #666; line-height: 1.8; margin: 10px 0;">
<li>Tu asistencia será registrada mediante reconocimiento facial</li>
<li>Asegúrate de asistir puntualmente a las clases</li>
<li>Recibirás confirmación cada vez que se registre tu asistencia</li>
</ul>
</div>
</div>
<div style="background-color: #f8f9fa; padding: 20px; text-align: center; border-top: 1px solid #e9ecef;">
<p style="color: #6c757d; font-size: 12px; margin: 0;">Este correo fue enviado automáticamente por el Sistema de Gestión Académica.</p>
<p style="color: #6c757d; font-size: 12px; margin: 5px 0 0 0;">Si tienes preguntas, contacta a tu profesor o al departamento académico.</p>
</div>
</div>
</body>
</html>`))

var attendanceTmpl = htemplate.Must(htemplate.New("asistencia").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin: 0; padding: 0; font-family: 'Segoe UI', Arial, sans-serif; background-color: #f4f4f4;">
<div style="max-width: 600px; margin: 0 auto; background-color: #ffffff;">
<div style="background: linear-gradient(135deg, {{.Color}} 0%, {{.ColorFade}} 100%); padding: 30px; text-align: center;">
<h1 style="color: white; margin: 0; font-size: 28px;">{{.Icon}} Asistencia Registrada</h1>
</div>
<div style="padding: 30px;">
<p style="font-size: 18px; color: #333;">Hola <strong>{{.Name}}</strong>,</p>
<p style="color: #555; line-height: 1.6;">Tu asistencia ha sido verificada exitosamente mediante reconocimiento facial.</p>
<div style="background-color: {{.Bg}}; border: 2px solid {{.Color}}; border-radius: 12px; padding: 20px; margin: 25px 0; text-align: center;">
<div style="font-size: 48px; margin-bottom: 10px;">{{.Icon}}</div>
<h2 style="color: {{.Color}}; margin: 0; font-size: 24px;">Estado: {{.StatusText}}</h2>
</div>
<div style="background: linear-gradient(135deg, #f5f7fa 0%, #e8ecf1 100%); border-radius: 12px; padding: 25px; margin: 25px 0; border-left: 5px solid #667eea;">
<h3 style="color: #667eea; margin-top: 0; margin-bottom: 15px;">📚 Clase: {{.ClassID}}</h3>
<table style="width: 100%; border-collapse: collapse;">
<tr><td style="padding: 10px 0; vertical-align: top; width: 40px;"><span style="font-size: 24px;">🕐</span></td><td style="padding: 10px 0;"><strong style="color: #333;">Hora de registro</strong><br><span style="color: #667eea; font-size: 16px;">{{.FechaHora}}</span></td></tr>
{{if .Confidence}}<tr><td style="padding: 10px 0; vertical-align: top;"><span style="font-size: 24px;">🎯</span></td><td style="padding: 10px 0;"><strong style="color: #333;">Confianza de reconocimiento</strong><br><span style="color: #667eea; font-size: 16px;">{{.Confidence}}</span></td></tr>{{end}}
</table>
</div>
{{if .IsLate}}<div style="background-color: #fef3c7; border-left: 4px solid #f59e0b; border-radius: 8px; padding: 20px; margin: 20px 0;"><p style="color: #92400e; margin: 0; line-height: 1.6;"><strong>⚠️ Llegada tarde:</strong> Te recomendamos llegar puntualmente a las próximas clases.</p></div>{{else if .IsAbsent}}<div style="background-color: #fee2e2; border-left: 4px solid #ef4444; border-radius: 8px; padding: 20px; margin: 20px 0;"><p style="color: #991b1b; margin: 0; line-height: 1.6;"><strong>❌ Ausencia registrada:</strong> Si consideras que esto es un error, contacta a tu profesor.</p></div>{{else}}<div style="background-color: #d1fae5; border-left: 4px solid #10b981; border-radius: 8px; padding: 20px; margin: 20px 0;"><p style="color: #065f46; margin: 0; line-height: 1.6;"><strong>✅ ¡Excelente!</strong> Tu asistencia ha sido registrada correctamente.</p></div>{{end}}
</div>
</div>
</body>
</html>`))

type enrollmentData struct {
	Name       string
	CourseID   string
	CourseName string
	CourseCode string
	EnrolledAt string
}

type attendanceData struct {
	Name       string
	ClassID    string
	Icon       string
	Color      htemplate.CSS
	ColorFade  htemplate.CSS
	Bg         htemplate.CSS
	StatusText string
	FechaHora  string
	Confidence string
	IsLate     bool
	IsAbsent   bool
}

// RenderEnrollment genera asunto y cuerpo para una inscripción. Es una
// función pura: sin I/O, determinística dado (evento, token).
// El token de confirmación todavía no participa del cuerpo: queda reservado
// para el flujo de confirmación de lectura.
func RenderEnrollment(e domain.Enrollment, token string) (Rendered, error) {
	data := enrollmentData{
		Name:       e.Student.Name,
		CourseID:   e.CourseID,
		EnrolledAt: FormatearFecha(e.EnrolledAt),
	}
	courseName := "una nueva materia"
	if e.Course != nil {
		data.CourseName = e.Course.CourseName
		data.CourseCode = e.Course.CourseCode
		if e.Course.CourseName != "" {
			courseName = e.Course.CourseName
		}
	}

	var buf bytes.Buffer
	if err := enrollmentTmpl.Execute(&buf, data); err != nil {
		return Rendered{}, fmt.Errorf("render enrollment: %w", err)
	}
	return Rendered{
		Subject: fmt.Sprintf("📚 ¡Has sido inscrito en %s!", courseName),
		HTML:    buf.String(),
	}, nil
}

// RenderAttendance genera asunto y cuerpo para una asistencia verificada.
// La confianza se muestra como porcentaje con un decimal cuando está
// presente; nil o cero la omiten (comportamiento heredado).
func RenderAttendance(a domain.Attendance, token string) (Rendered, error) {
	style := styleFor(a.Status)
	data := attendanceData{
		Name:       a.Student.Name,
		ClassID:    a.ClassID,
		Icon:       style.Icon,
		Color:      style.Color,
		ColorFade:  style.Color + "dd",
		Bg:         style.Bg,
		StatusText: style.Text,
		FechaHora:  fmt.Sprintf("%s a las %s", FormatearFecha(a.Timestamp), FormatearHora(a.Timestamp)),
		IsLate:     a.Status == domain.StatusLate,
		IsAbsent:   a.Status == domain.StatusAbsent,
	}
	if a.Confidence != nil && *a.Confidence > 0 {
		data.Confidence = fmt.Sprintf("%.1f%%", *a.Confidence*100)
	}

	var buf bytes.Buffer
	if err := attendanceTmpl.Execute(&buf, data); err != nil {
		return Rendered{}, fmt.Errorf("render attendance: %w", err)
	}

	statusText, ok := statusSubjects[a.Status]
	if !ok {
		statusText = "✅ Verificada"
	}
	return Rendered{
		Subject: fmt.Sprintf("%s - Asistencia registrada en clase %s", statusText, a.ClassID),
		HTML:    buf.String(),
	}, nil
}
