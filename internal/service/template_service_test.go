package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/getprisma/email-outbox/internal/models"
)

func TestTemplateService_Render(t *testing.T) {
	svc := NewTemplateService()

	tests := []struct {
		name      string
		emailType models.EmailType
		data      map[string]string
		wantParts []string
	}{
		{
			name:      "leader form request",
			emailType: models.EmailTypeLeaderFormRequest,
			data: map[string]string{
				"leader_name":   "María",
				"company_name":  "Acme Perú",
				"position_name": "Head of Data",
				"position_code": "ACM-042",
				"form_url":      "https://talent.getprisma.io/form/ACM-042",
			},
			wantParts: []string{
				"Hola María,",
				"Acme Perú",
				"Head of Data",
				"ACM-042",
				"https://talent.getprisma.io/form/ACM-042",
				"Completar Especificaciones",
			},
		},
		{
			name:      "job description validation",
			emailType: models.EmailTypeJobDescriptionValidation,
			data: map[string]string{
				"hr_name":       "Lucía",
				"position_name": "Backend Engineer",
				"position_code": "ACM-007",
				"company_name":  "Acme Perú",
				"leader_name":   "Carlos",
				"admin_url":     "https://admin.getprisma.io/positions/ACM-007",
			},
			wantParts: []string{
				"Hola Lucía,",
				"Carlos ha completado las especificaciones",
				"Backend Engineer",
				"https://admin.getprisma.io/positions/ACM-007",
			},
		},
		{
			name:      "applicant status update",
			emailType: models.EmailTypeApplicantStatusUpdate,
			data: map[string]string{
				"applicant_name": "Jorge",
				"position_name":  "Product Designer",
				"company_name":   "Acme Perú",
				"position_code":  "ACM-011",
			},
			wantParts: []string{
				"¡Aplicación recibida!",
				"Hola Jorge,",
				"Product Designer",
				"ACM-011",
			},
		},
		{
			name:      "client invitation with magic link",
			emailType: models.EmailTypeClientInvitation,
			data: map[string]string{
				"client_name":  "Ana",
				"company_name": "Acme Perú",
				"magic_link":   "https://talent.getprisma.io/auth/abc",
			},
			wantParts: []string{
				"Bienvenido a Prisma Talent, Ana",
				"https://talent.getprisma.io/auth/abc",
			},
		},
		{
			name:      "client invitation defaults magic link",
			emailType: models.EmailTypeClientInvitation,
			data: map[string]string{
				"client_name":  "Ana",
				"company_name": "Acme Perú",
			},
			wantParts: []string{`href="#"`},
		},
		{
			name:      "test email",
			emailType: models.EmailTypeTestEmail,
			data:      map[string]string{"recipient_name": "Dev"},
			wantParts: []string{"Email de Prueba", "Hola Dev,"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Render(tt.emailType, tt.data)
			if err != nil {
				t.Fatalf("Render() error = %v, want nil", err)
			}

			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Rendered body missing %q", part)
				}
			}

			// Every body is wrapped in the branded layout
			if !strings.Contains(got, "Prisma Talent") {
				t.Error("Rendered body missing brand header")
			}
		})
	}
}

func TestTemplateService_Render_MissingKey(t *testing.T) {
	svc := NewTemplateService()

	tests := []struct {
		name      string
		emailType models.EmailType
		data      map[string]string
	}{
		{
			name:      "leader form request without form_url",
			emailType: models.EmailTypeLeaderFormRequest,
			data: map[string]string{
				"leader_name":   "María",
				"company_name":  "Acme",
				"position_name": "Head of Data",
				"position_code": "ACM-042",
			},
		},
		{
			name:      "applicant status update with empty name",
			emailType: models.EmailTypeApplicantStatusUpdate,
			data: map[string]string{
				"applicant_name": "",
				"position_name":  "Designer",
				"company_name":   "Acme",
				"position_code":  "ACM-011",
			},
		},
		{
			name:      "test email without data",
			emailType: models.EmailTypeTestEmail,
			data:      nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Render(tt.emailType, tt.data)
			if !errors.Is(err, ErrMissingDataKey) {
				t.Errorf("Render() error = %v, want ErrMissingDataKey", err)
			}
		})
	}
}

func TestTemplateService_Render_UnknownType(t *testing.T) {
	svc := NewTemplateService()

	_, err := svc.Render("weekly_digest", map[string]string{"foo": "bar"})
	if !errors.Is(err, ErrUnknownEmailType) {
		t.Errorf("Render() error = %v, want ErrUnknownEmailType", err)
	}
}

func TestTemplateService_Render_EscapesHTML(t *testing.T) {
	svc := NewTemplateService()

	got, err := svc.Render(models.EmailTypeTestEmail, map[string]string{
		"recipient_name": "<script>alert(1)</script>",
	})
	if err != nil {
		t.Fatalf("Render() error = %v, want nil", err)
	}

	if strings.Contains(got, "<script>alert(1)</script>") {
		t.Error("Rendered body contains unescaped user input")
	}
}

func TestTemplateService_Render_DoesNotMutateData(t *testing.T) {
	svc := NewTemplateService()

	data := map[string]string{
		"client_name":  "Ana",
		"company_name": "Acme",
	}

	if _, err := svc.Render(models.EmailTypeClientInvitation, data); err != nil {
		t.Fatalf("Render() error = %v, want nil", err)
	}

	if _, ok := data["magic_link"]; ok {
		t.Error("Render() mutated the caller's template data")
	}
}
