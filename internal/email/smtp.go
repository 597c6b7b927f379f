package email

import (
	"crypto/tls"
	"fmt"
	"time"

	mail "github.com/go-mail/mail"

	"github.com/aulanet/student-notifier/internal/observability/logger"
)

// textFallback se envía como parte text/plain del multipart/alternative.
const textFallback = "Por favor usa un cliente de correo compatible con HTML"

// SMTPSender implementa Sender usando SMTP.
// Cada Send abre una conexión nueva y la cierra siempre, tanto en éxito como
// en error (DialAndSend no deja conexiones colgadas).
type SMTPSender struct {
	Host               string
	Port               int
	User               string
	Pass               string
	FromName           string
	TLSMode            string // "auto" | "starttls" | "ssl" | "none"
	InsecureSkipVerify bool

	// now permite inyectar el reloj en tests.
	now func() time.Time
}

// NewSMTPSender crea un nuevo SMTPSender con los parámetros dados.
func NewSMTPSender(host string, port int, user, pass, fromName string) *SMTPSender {
	return &SMTPSender{
		Host:     host,
		Port:     port,
		User:     user,
		Pass:     pass,
		FromName: fromName,
		TLSMode:  "auto",
		now:      time.Now,
	}
}

// From retorna el remitente con display name, ej: "Sistema Académico <a@b.c>".
func (s *SMTPSender) From() string {
	if s.FromName == "" {
		return s.User
	}
	return fmt.Sprintf("%s <%s>", s.FromName, s.User)
}

// Send envía un email HTML (con fallback de texto plano) y retorna un
// message ID derivado del timestamp del envío.
func (s *SMTPSender) Send(to, subject, htmlBody string) (string, error) {
	log := logger.L().With(
		logger.Component("SMTPSender"),
		logger.String("host", s.Host),
		logger.Int("port", s.Port),
		logger.Email(to),
	)

	log.Debug("sending email",
		logger.String("subject", subject),
		logger.String("tls_mode", s.TLSMode),
	)

	m := mail.NewMessage()
	m.SetHeader("From", s.From())
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textFallback)
	m.AddAlternative("text/html", htmlBody)

	d := mail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.TLSConfig = &tls.Config{
		ServerName:         s.Host,
		InsecureSkipVerify: s.InsecureSkipVerify, // solo dev
	}

	switch s.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.TLSConfig = &tls.Config{InsecureSkipVerify: s.InsecureSkipVerify}
	default:
		// "auto"/"starttls": go-mail negocia STARTTLS si corresponde
	}

	if err := d.DialAndSend(m); err != nil {
		diag := DiagnoseSMTP(err)
		log.Error("smtp send failed",
			logger.Err(err),
			logger.String("diag_code", diag.Code),
			logger.Bool("temporary", diag.Temporary),
		)
		return "", fmt.Errorf("smtp send: %w", err)
	}

	now := s.now
	if now == nil {
		now = time.Now
	}
	messageID := fmt.Sprintf("smtp-%d", now().UnixMilli())

	log.Info("email sent successfully", logger.MessageID(messageID))
	return messageID, nil
}
