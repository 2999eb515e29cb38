package mail

import "strings"

// Default message texts.
const (
	DefaultSubject = "Hello from Student Dashboard"
	DefaultMessage = "Hello {{name}},\n\nThis is a test email from the Student Dashboard."
)

// Template holds the subject and message sent to every recipient.
// {{name}}, {{branch}} and {{year}} are replaced with the row's values.
type Template struct {
	Subject string
	Message string
}

// DefaultTemplate returns the stock greeting.
func DefaultTemplate() Template {
	return Template{Subject: DefaultSubject, Message: DefaultMessage}
}

func (t Template) render(name, branch, year string) (subject, message string) {
	r := strings.NewReplacer("{{name}}", name, "{{branch}}", branch, "{{year}}", year)
	return r.Replace(t.Subject), r.Replace(t.Message)
}
