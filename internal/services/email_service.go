package services

import (
	"fmt"
	"html"

	"gopkg.in/gomail.v2"

	"intihelp/internal/logging"
)

type EmailService interface {
	SendWelcomeEmail(email, fullName string) error
	SendPasswordResetEmail(email, token string) error
	SendNotification(email, subject, body string) error
}

type emailService struct {
	dialer *gomail.Dialer
	from   string
}

// NewEmailService returns a sender over SMTP. With an empty host every send
// is skipped and logged, which keeps local setups working without a mailer.
func NewEmailService(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail string) EmailService {
	s := &emailService{from: fromEmail}
	if smtpHost != "" {
		s.dialer = gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword)
	}
	return s
}

func (s *emailService) send(to, subject, body string) error {
	if s.dialer == nil {
		logging.Debug("[email][skip] smtp not configured", "to", to, "subject", subject)
		return nil
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)
	return s.dialer.DialAndSend(m)
}

func (s *emailService) SendWelcomeEmail(email, fullName string) error {
	body := fmt.Sprintf(`
		<h2>¡Bienvenido a IntiHelp, %s!</h2>
		<p>Tu cuenta fue creada correctamente.</p>
		<p>Saludos,<br>El equipo de IntiHelp</p>
	`, html.EscapeString(fullName))
	if err := s.send(email, "Bienvenido a IntiHelp", body); err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}
	return nil
}

func (s *emailService) SendPasswordResetEmail(email, token string) error {
	body := fmt.Sprintf(`
		<h3>Restablecer contraseña</h3>
		<p>Recibimos una solicitud para restablecer la contraseña de tu cuenta.</p>
		<p>Usa este código para continuar: <strong>%s</strong></p>
		<p>El código vence en una hora. Si no lo solicitaste, ignora este correo.</p>
	`, token)
	if err := s.send(email, "Restablecer contraseña", body); err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}
	return nil
}

func (s *emailService) SendNotification(email, subject, body string) error {
	if err := s.send(email, subject, "<p>"+html.EscapeString(body)+"</p>"); err != nil {
		return fmt.Errorf("failed to send notification email: %w", err)
	}
	return nil
}
