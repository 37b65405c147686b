// Package emails renders the transactional emails the worker sends.
package emails

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/planmyoutings/backend/internal/models"
)

type emailTemplate struct {
	subject string
	body    *template.Template
}

var templates = map[string]emailTemplate{
	models.EmailTypeWelcome: {
		subject: "Welcome to Plan My Outings",
		body: template.Must(template.New("welcome").Option("missingkey=error").Parse(`Hi {{.first_name}},

Thanks for getting in touch. Your account is ready.

Username: {{.username}}
Password: {{.password}}

Sign in and start planning your next outing with your friends.

The Plan My Outings team
`)),
	},
	models.EmailTypeAdminNotification: {
		subject: "New contact form submission",
		body: template.Must(template.New("admin_notification").Option("missingkey=error").Parse(`A new enquiry was received and an account was created.

Name: {{.full_name}}
Email: {{.email}}
Username: {{.username}}

Message:
{{.message}}
`)),
	},
	models.EmailTypeResend: {
		subject: "Your Plan My Outings credentials",
		body: template.Must(template.New("resend").Option("missingkey=error").Parse(`Hi {{.first_name}},

An administrator issued new credentials for your account.

Username: {{.username}}
Password: {{.password}}

The Plan My Outings team
`)),
	},
}

// Render returns the subject and plain-text body for emailType filled from data.
func Render(emailType string, data map[string]string) (subject, body string, err error) {
	t, ok := templates[emailType]
	if !ok {
		return "", "", fmt.Errorf("unknown email type %q", emailType)
	}
	var buf bytes.Buffer
	if err := t.body.Execute(&buf, data); err != nil {
		return t.subject, "", fmt.Errorf("render %s: %w", emailType, err)
	}
	return t.subject, buf.String(), nil
}

// Subject returns the subject line for emailType, or the type itself when unknown.
func Subject(emailType string) string {
	if t, ok := templates[emailType]; ok {
		return t.subject
	}
	return emailType
}
