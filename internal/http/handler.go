// Package http expone el trigger HTTP del despachador y sus middlewares.
package http

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/aulanet/student-notifier/internal/notify"
	"github.com/aulanet/student-notifier/internal/observability/logger"
)

// Runner es lo que el handler necesita del orquestador.
// *notify.Dispatcher lo implementa; los tests usan un fake.
type Runner interface {
	RunShared(ctx context.Context, action notify.Action) (*notify.Summary, error)
}

// DispatchHandler atiende GET|POST /v1/notificaciones/enviar.
type DispatchHandler struct {
	Runner        Runner
	SMTPAddr      string        // host:port, reportado en la respuesta
	DefaultAction notify.Action // acción cuando el query param falta
}

func (h *DispatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	accion := r.URL.Query().Get("accion")
	if accion == "" {
		accion = string(h.DefaultAction)
	}

	log := logger.From(r.Context()).With(logger.Accion(accion))
	log.Info("iniciando proceso de notificaciones", logger.String("smtp", h.SMTPAddr))

	sum, err := h.Runner.RunShared(r.Context(), notify.Action(accion))
	if err != nil {
		switch {
		case errors.Is(err, notify.ErrSMTPNotConfigured):
			writeError(w, http.StatusInternalServerError,
				"SMTP no configurado. Configura SMTP_USER y SMTP_PASS en los secrets.")
		case errors.Is(err, notify.ErrUnknownAction):
			writeError(w, http.StatusBadRequest,
				"Acción no válida. Usa: nuevas_inscripciones o nuevas_asistencias")
		default:
			// Fallo de query u otro error no clasificado: el contrato pide
			// {error, stack} con 500.
			log.Error("corrida abortada", logger.Err(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Error: err.Error(),
				Stack: string(debug.Stack()),
			})
		}
		return
	}

	if sum.Empty() {
		writeJSON(w, http.StatusOK, emptyResponse{Mensaje: sum.EmptyMessage, Cantidad: 0})
		return
	}

	// Los slices nunca viajan como null en el JSON.
	notificaciones := sum.Sent
	if notificaciones == nil {
		notificaciones = []notify.SentDetail{}
	}
	fallos := sum.Failed
	if fallos == nil {
		fallos = []notify.FailureDetail{}
	}

	writeJSON(w, http.StatusOK, dispatchResponse{
		Exito:                  true,
		Mensaje:                "Proceso completado",
		SMTP:                   h.SMTPAddr,
		NotificacionesEnviadas: len(sum.Sent),
		Errores:                len(sum.Failed),
		Detalles: detalles{
			Notificaciones: notificaciones,
			Errores:        fallos,
		},
	})
}
