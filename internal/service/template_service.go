package service

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/getprisma/email-outbox/internal/models"
)

// Rendering errors. Both put a record on the retry path when they reach
// the worker: an unknown type or missing key is a data defect that only
// an external fix (or the manual retry reset) can clear.
var (
	ErrUnknownEmailType = errors.New("unknown email type")
	ErrMissingDataKey   = errors.New("missing template data key")
)

// TemplateService renders email HTML bodies. Rendering is pure: no I/O,
// no state, safe to retry verbatim.
type TemplateService interface {
	Render(emailType models.EmailType, data map[string]string) (string, error)
}

type templateService struct {
	base *template.Template
}

// NewTemplateService creates a new template service
func NewTemplateService() TemplateService {
	return &templateService{
		base: template.Must(template.New("base").Parse(baseTemplate)),
	}
}

// Render dispatches on the email type to the matching template. The
// switch is exhaustive over the declared types; the default branch is
// the unknown-type rendering failure.
func (s *templateService) Render(emailType models.EmailType, data map[string]string) (string, error) {
	switch emailType {
	case models.EmailTypeLeaderFormRequest:
		return s.render(leaderFormRequestTemplate, data,
			"leader_name", "company_name", "position_name", "position_code", "form_url")

	case models.EmailTypeJobDescriptionValidation:
		return s.render(jobDescriptionValidationTemplate, data,
			"hr_name", "position_name", "position_code", "company_name", "leader_name", "admin_url")

	case models.EmailTypeApplicantStatusUpdate:
		return s.render(applicantStatusUpdateTemplate, data,
			"applicant_name", "position_name", "company_name", "position_code")

	case models.EmailTypeClientInvitation:
		if _, ok := data["magic_link"]; !ok {
			data = withDefault(data, "magic_link", "#")
		}
		return s.render(clientInvitationTemplate, data,
			"client_name", "company_name")

	case models.EmailTypeTestEmail:
		data = withDefault(data, "timestamp", time.Now().Format(time.RFC3339))
		return s.render(testEmailTemplate, data,
			"recipient_name")

	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEmailType, emailType)
	}
}

// render checks the required keys, executes the content template, and
// wraps the result in the shared branded layout.
func (s *templateService) render(content string, data map[string]string, required ...string) (string, error) {
	for _, key := range required {
		if data[key] == "" {
			return "", fmt.Errorf("%w: %q", ErrMissingDataKey, key)
		}
	}

	tmpl, err := template.New("content").Parse(content)
	if err != nil {
		return "", fmt.Errorf("failed to parse content template: %w", err)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return "", fmt.Errorf("failed to render content template: %w", err)
	}

	var out bytes.Buffer
	err = s.base.Execute(&out, struct {
		Content template.HTML
		Year    int
	}{
		Content: template.HTML(body.String()),
		Year:    time.Now().Year(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render base template: %w", err)
	}

	return out.String(), nil
}

// withDefault returns a copy of data with key set if absent. The input
// map belongs to the caller (it came off a database record) and must
// not be mutated.
func withDefault(data map[string]string, key, value string) map[string]string {
	out := make(map[string]string, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	if out[key] == "" {
		out[key] = value
	}
	return out
}
