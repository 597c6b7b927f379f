package http

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/aulanet/student-notifier/internal/observability/logger"
	"github.com/aulanet/student-notifier/internal/rate"
)

// RequestLogger inyecta un logger scoped con request_id en el contexto y
// loguea cada request al completarse.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := uuid.NewString()

		log := logger.With(
			logger.RequestID(reqID),
			logger.Method(r.Method),
			logger.Path(r.URL.Path),
		)
		ctx := logger.ToContext(r.Context(), log)

		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r.WithContext(ctx))

		log.Info("request completed",
			logger.Status(ww.status),
			logger.Duration(time.Since(start)),
		)
	})
}

// Recoverer convierte un panic en la respuesta 500 {error, stack} del
// contrato, en vez de matar el proceso.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				stack := string(debug.Stack())
				logger.From(r.Context()).Error("panic recovered",
					logger.String("panic", fmt.Sprint(rec)),
				)
				writeJSON(w, http.StatusInternalServerError, errorResponse{
					Error: fmt.Sprint(rec),
					Stack: stack,
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// BearerAuth exige un JWT HS256 firmado con el secreto configurado. Con
// secreto vacío el middleware es pass-through (trigger abierto, ej. dev).
// Reemplaza al service-role key detrás del cual corría la función original.
func BearerAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if !strings.HasPrefix(raw, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "Token de autorización requerido")
				return
			}
			tokenStr := strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))

			_, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil {
				logger.From(r.Context()).Warn("token inválido", logger.Err(err))
				writeError(w, http.StatusUnauthorized, "Token inválido")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit aplica el limiter al trigger, keyed por IP remota. Con limiter
// nil es pass-through.
func RateLimit(l rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)
			res, err := l.Allow(r.Context(), key)
			if err != nil {
				// Limiter caído no debe bloquear el despacho: fail-open.
				logger.From(r.Context()).Warn("rate limiter error", logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}
			if !res.Allowed {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(res.RetryAfter.Seconds())+1))
				writeError(w, http.StatusTooManyRequests, "Demasiadas solicitudes, reintenta más tarde")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i > 0 {
		host = host[:i]
	}
	return host
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
