package notify

import "errors"

// ─── Errors ───

var (
	// ErrSMTPNotConfigured: faltan credenciales de transporte. Fatal, se
	// detecta antes de tocar el store (HTTP 500).
	ErrSMTPNotConfigured = errors.New("notify: SMTP no configurado")

	// ErrUnknownAction: la acción pedida no es ninguna de las reconocidas.
	// Fatal, sin I/O (HTTP 400).
	ErrUnknownAction = errors.New("notify: acción no válida")
)
