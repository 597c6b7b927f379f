package http

import (
	"encoding/json"
	"net/http"

	"github.com/aulanet/student-notifier/internal/notify"
)

// Shapes JSON del contrato del trigger. Las claves en español son el
// contrato público heredado del sistema original: no traducir.

type dispatchResponse struct {
	Exito                  bool     `json:"exito"`
	Mensaje                string   `json:"mensaje"`
	SMTP                   string   `json:"smtp"`
	NotificacionesEnviadas int      `json:"notificaciones_enviadas"`
	Errores                int      `json:"errores"`
	Detalles               detalles `json:"detalles"`
}

type detalles struct {
	Notificaciones []notify.SentDetail    `json:"notificaciones"`
	Errores        []notify.FailureDetail `json:"errores"`
}

type emptyResponse struct {
	Mensaje  string `json:"mensaje"`
	Cantidad int    `json:"cantidad"`
}

type errorResponse struct {
	Error string `json:"error"`
	Stack string `json:"stack,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
