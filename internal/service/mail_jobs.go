package service

import (
	"context"
	"fmt"
	"html"

	"github.com/noah-isme/sma-web-api/internal/models"
	"github.com/noah-isme/sma-web-api/pkg/jobs"
	"github.com/noah-isme/sma-web-api/pkg/mail"
)

const resetMailSubject = "Reset password akun admin"

// PasswordResetMailHandler sends JobPasswordResetMail jobs through mailer.
func PasswordResetMailHandler(mailer mail.Mailer) jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		payload, ok := job.Payload.(models.PasswordResetMail)
		if !ok {
			return fmt.Errorf("password reset mail: unexpected payload %T", job.Payload)
		}
		return mailer.Send(ctx, passwordResetMessage(payload))
	}
}

func passwordResetMessage(p models.PasswordResetMail) mail.Message {
	name := p.FullName
	if name == "" {
		name = p.Email
	}
	expires := p.Expires.Format("02-01-2006 15:04 MST")
	text := fmt.Sprintf("Halo %s,\n\nKami menerima permintaan reset password untuk akun Anda. "+
		"Buka tautan berikut untuk membuat password baru:\n\n%s\n\nTautan berlaku sampai %s. "+
		"Abaikan email ini jika Anda tidak meminta reset password.\n", name, p.Link, expires)
	body := fmt.Sprintf("<p>Halo %s,</p><p>Kami menerima permintaan reset password untuk akun Anda.</p>"+
		"<p><a href=\"%s\">Buat password baru</a></p><p>Tautan berlaku sampai %s.</p>",
		html.EscapeString(name), html.EscapeString(p.Link), html.EscapeString(expires))
	return mail.Message{
		ToName:  p.FullName,
		ToEmail: p.Email,
		Subject: resetMailSubject,
		Text:    text,
		HTML:    body,
	}
}
