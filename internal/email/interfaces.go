package email

// Sender es la interfaz para enviar emails.
// Implementada por SMTPSender.
type Sender interface {
	// Send envía un email con contenido HTML y retorna el message ID del
	// envío. El message ID es informativo (derivado del timestamp), no sirve
	// como clave de idempotencia: eso es responsabilidad del ledger.
	// Nunca hace panic: todo fallo llega como error.
	Send(to, subject, htmlBody string) (messageID string, err error)
}
