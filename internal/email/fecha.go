package email

import (
	"fmt"
	"time"
)

// Nombres en español para el formato largo de fechas. No usamos un locale
// externo: el sistema original formateaba con es-ES fijo y estos nombres son
// el contrato exacto de los emails.
var diasSemana = [...]string{
	"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado",
}

var meses = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// FormatearFecha produce la fecha larga en español: "lunes, 2 de marzo de 2026".
func FormatearFecha(t time.Time) string {
	return fmt.Sprintf("%s, %d de %s de %d",
		diasSemana[t.Weekday()], t.Day(), meses[t.Month()-1], t.Year())
}

// FormatearHora produce la hora en formato 12h con AM/PM: "3:05 PM".
// Replica la aritmética del sistema original (12:xx ⇒ "12 PM", 0:xx ⇒ "12 AM").
func FormatearHora(t time.Time) string {
	horas := t.Hour()
	periodo := "AM"
	if horas >= 12 {
		periodo = "PM"
	}
	hora12 := horas
	if horas > 12 {
		hora12 = horas - 12
	} else if horas == 0 {
		hora12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", hora12, t.Minute(), periodo)
}
