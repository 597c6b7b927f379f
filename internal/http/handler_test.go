package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/aulanet/student-notifier/internal/domain"
	"github.com/aulanet/student-notifier/internal/notify"
)

// ─── Fakes ───

type fakeReader struct {
	enrollments []domain.Enrollment
	calls       int
}

func (f *fakeReader) PendingEnrollments(context.Context) ([]domain.Enrollment, error) {
	f.calls++
	return f.enrollments, nil
}

func (f *fakeReader) PendingAttendance(context.Context) ([]domain.Attendance, error) {
	f.calls++
	return nil, nil
}

type fakeLedger struct {
	entries []domain.LedgerEntry
	calls   int
}

func (f *fakeLedger) Notified(context.Context, domain.NotificationType) (map[int64]struct{}, error) {
	f.calls++
	return map[int64]struct{}{}, nil
}

func (f *fakeLedger) Record(_ context.Context, e domain.LedgerEntry) error {
	f.calls++
	f.entries = append(f.entries, e)
	return nil
}

type fakeSender struct {
	failTo map[string]error
	sent   int
}

func (f *fakeSender) Send(to, _, _ string) (string, error) {
	if err, ok := f.failTo[to]; ok {
		return "", err
	}
	f.sent++
	return "smtp-123", nil
}

type env struct {
	reader *fakeReader
	ledger *fakeLedger
	sender *fakeSender
	srv    *httptest.Server
}

func newEnv(t *testing.T, smtpConfigured bool, secret string) *env {
	t.Helper()
	e := &env{reader: &fakeReader{}, ledger: &fakeLedger{}, sender: &fakeSender{}}

	d := notify.New(notify.Config{
		Reader:         e.reader,
		Ledger:         e.ledger,
		Sender:         e.sender,
		SMTPConfigured: smtpConfigured,
		SendDelay:      time.Microsecond,
	})
	handler := NewRouter(RouterConfig{
		Dispatch: &DispatchHandler{
			Runner:        d,
			SMTPAddr:      "smtp.gmail.com:465",
			DefaultAction: notify.ActionNuevasInscripciones,
		},
		TriggerSecret: secret,
	})
	e.srv = httptest.NewServer(handler)
	t.Cleanup(e.srv.Close)
	return e
}

func getJSON(t *testing.T, url string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func enrollment(id int64, studentID, email string) domain.Enrollment {
	return domain.Enrollment{
		ID:         id,
		StudentID:  studentID,
		CourseID:   "MAT-101",
		EnrolledAt: time.Now(),
		Student:    domain.Student{StudentID: studentID, Name: "Estudiante " + studentID, Email: email},
	}
}

// ─── Tests ───

func TestTrigger_NoPendingEnrollments(t *testing.T) {
	e := newEnv(t, true, "")

	status, body := getJSON(t, e.srv.URL+"/v1/notificaciones/enviar?accion=nuevas_inscripciones")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "No hay nuevas inscripciones para notificar", body["mensaje"])
	require.EqualValues(t, 0, body["cantidad"])
}

func TestTrigger_DefaultAction(t *testing.T) {
	e := newEnv(t, true, "")

	// Sin ?accion se asume nuevas_inscripciones.
	status, body := getJSON(t, e.srv.URL+"/v1/notificaciones/enviar")
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body["mensaje"], "inscripciones")
}

func TestTrigger_BadAction_NoQueries(t *testing.T) {
	e := newEnv(t, true, "")

	status, body := getJSON(t, e.srv.URL+"/v1/notificaciones/enviar?accion=foo")
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, body["error"], "Acción no válida")
	require.Zero(t, e.reader.calls)
	require.Zero(t, e.ledger.calls)
}

func TestTrigger_MissingSMTPCredentials_NoQueries(t *testing.T) {
	e := newEnv(t, false, "")

	status, body := getJSON(t, e.srv.URL+"/v1/notificaciones/enviar")
	require.Equal(t, http.StatusInternalServerError, status)
	require.Contains(t, body["error"], "SMTP no configurado")
	require.Zero(t, e.reader.calls)
	require.Zero(t, e.ledger.calls)
}

func TestTrigger_MethodNotAllowed(t *testing.T) {
	e := newEnv(t, true, "")

	req, err := http.NewRequest(http.MethodDelete, e.srv.URL+"/v1/notificaciones/enviar", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "Método no permitido", body["error"])
}

func TestTrigger_ProcessedResponseShape(t *testing.T) {
	e := newEnv(t, true, "")
	e.reader.enrollments = []domain.Enrollment{
		enrollment(1, "A1", "a1@uni.edu"),
		enrollment(2, "A2", "a2@uni.edu"),
	}

	status, body := getJSON(t, e.srv.URL+"/v1/notificaciones/enviar?accion=nuevas_inscripciones")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, body["exito"])
	require.Equal(t, "Proceso completado", body["mensaje"])
	require.Equal(t, "smtp.gmail.com:465", body["smtp"])
	require.EqualValues(t, 2, body["notificaciones_enviadas"])
	require.EqualValues(t, 0, body["errores"])

	detalles := body["detalles"].(map[string]any)
	notificaciones := detalles["notificaciones"].([]any)
	require.Len(t, notificaciones, 2)
	first := notificaciones[0].(map[string]any)
	require.Equal(t, "A1", first["student_id"])
	require.Equal(t, "a1@uni.edu", first["email"])
	require.Equal(t, "enrollment", first["tipo"])
	require.NotEmpty(t, first["message_id"])
}

func TestTrigger_PartialFailure(t *testing.T) {
	e := newEnv(t, true, "")
	e.reader.enrollments = []domain.Enrollment{
		enrollment(1, "A1", "a1@uni.edu"),
		enrollment(2, "A2", "a2@uni.edu"),
	}
	e.sender.failTo = map[string]error{"a2@uni.edu": errors.New("smtp send: 535 authentication failed")}

	status, body := getJSON(t, e.srv.URL+"/v1/notificaciones/enviar?accion=nuevas_inscripciones")
	require.Equal(t, http.StatusOK, status, "un fallo parcial no cambia el status")
	require.EqualValues(t, 1, body["notificaciones_enviadas"])
	require.EqualValues(t, 1, body["errores"])

	detalles := body["detalles"].(map[string]any)
	errores := detalles["errores"].([]any)
	require.Len(t, errores, 1)
	require.Equal(t, "A2", errores[0].(map[string]any)["student_id"])

	// Exactamente una entrada nueva en el ledger.
	require.Len(t, e.ledger.entries, 1)
	require.Equal(t, "A1", e.ledger.entries[0].StudentID)
}

func TestTrigger_BearerAuth(t *testing.T) {
	const secret = "super-secreto"
	e := newEnv(t, true, secret)

	// Sin token: 401.
	status, body := getJSON(t, e.srv.URL+"/v1/notificaciones/enviar")
	require.Equal(t, http.StatusUnauthorized, status)
	require.NotEmpty(t, body["error"])

	// Token firmado con otro secreto: 401.
	bad, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "cron"}).
		SignedString([]byte("otro"))
	require.NoError(t, err)
	req, _ := http.NewRequest(http.MethodGet, e.srv.URL+"/v1/notificaciones/enviar", nil)
	req.Header.Set("Authorization", "Bearer "+bad)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Token válido: pasa.
	good, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "cron"}).
		SignedString([]byte(secret))
	require.NoError(t, err)
	req, _ = http.NewRequest(http.MethodGet, e.srv.URL+"/v1/notificaciones/enviar", nil)
	req.Header.Set("Authorization", "Bearer "+good)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	e := newEnv(t, true, "")
	resp, err := http.Get(e.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
