package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aulanet/student-notifier/internal/rate"
)

// RouterConfig agrupa las dependencias del router.
type RouterConfig struct {
	Dispatch *DispatchHandler

	// TriggerSecret habilita BearerAuth sobre el trigger cuando no es vacío.
	TriggerSecret string

	// Limiter habilita rate limiting sobre el trigger cuando no es nil.
	Limiter rate.Limiter
}

// NewRouter arma el router del servicio: trigger de despacho, health y
// métricas. Cualquier método fuera de GET/POST en el trigger responde 405
// con el body JSON del contrato.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger)
	r.Use(Recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Recurso no encontrado")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Método no permitido")
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(g chi.Router) {
		g.Use(BearerAuth(cfg.TriggerSecret))
		g.Use(RateLimit(cfg.Limiter))
		g.Get("/v1/notificaciones/enviar", cfg.Dispatch.ServeHTTP)
		g.Post("/v1/notificaciones/enviar", cfg.Dispatch.ServeHTTP)
	})

	return r
}
