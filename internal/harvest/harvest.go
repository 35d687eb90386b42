// Package harvest inventories HTML forms found in captured response bodies.
// Forms never become endpoints, this is an informational surface listing.
package harvest

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/BetterCallFirewall/surfacerecon/internal/models"
)

var csrfPattern = regexp.MustCompile(`(?i)csrf|xsrf|_token`)

var sensitiveFieldNames = []string{"password", "pass", "secret", "token", "key", "ssn", "credit"}

type Harvester struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Harvester {
	return &Harvester{log: log}
}

// Harvest scans captured responses that look like HTML documents and
// extracts their forms. Duplicate forms on the same page are collapsed.
func (h *Harvester) Harvest(requests []*models.CapturedRequest) []*models.HTMLForm {
	var forms []*models.HTMLForm
	seen := make(map[string]bool)

	for _, req := range requests {
		if req.Response == nil || !isHTML(req.Response) {
			continue
		}
		for _, form := range h.extractForms(req.URL, req.Response.Body) {
			key := form.FormID + "|" + form.PageURL
			if seen[key] {
				continue
			}
			seen[key] = true
			forms = append(forms, form)
		}
	}

	h.log.Info().Int("forms", len(forms)).Msg("form harvest complete")
	return forms
}

// isHTML — по заголовку content-type либо по маркеру документа в начале тела.
func isHTML(resp *models.CapturedResponse) bool {
	for name, value := range resp.Headers {
		if strings.EqualFold(name, "content-type") {
			return strings.Contains(strings.ToLower(value), "text/html")
		}
	}
	marker := strings.ToLower(strings.TrimSpace(resp.Body))
	return strings.HasPrefix(marker, "<!doctype html") || strings.HasPrefix(marker, "<html")
}

func (h *Harvester) extractForms(pageURL, body string) []*models.HTMLForm {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		h.log.Debug().Str("url", pageURL).Err(err).Msg("unparseable HTML body, skipping")
		return nil
	}

	var forms []*models.HTMLForm
	doc.Find("form").Each(func(_ int, s *goquery.Selection) {
		action, _ := s.Attr("action")
		method, _ := s.Attr("method")
		if method == "" {
			method = "GET"
		}

		form := &models.HTMLForm{
			PageURL: pageURL,
			Action:  resolveAction(pageURL, action),
			Method:  strings.ToUpper(method),
			Fields:  []models.FormField{},
		}

		s.Find("input, select, textarea").Each(func(_ int, field *goquery.Selection) {
			name, _ := field.Attr("name")
			if name == "" {
				return
			}
			fieldType, _ := field.Attr("type")
			if fieldType == "" {
				fieldType = "text"
			}
			value, _ := field.Attr("value")

			if !form.HasCSRFToken && csrfPattern.MatchString(name) {
				form.HasCSRFToken = true
				form.CSRFTokenName = name
			}

			form.Fields = append(form.Fields, models.FormField{
				Name:      name,
				Type:      fieldType,
				Value:     value,
				Sensitive: isSensitiveField(fieldType, name),
			})
		})

		form.FormID = formID(form)
		forms = append(forms, form)
	})

	return forms
}

func resolveAction(pageURL, action string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return action
	}
	ref, err := url.Parse(action)
	if err != nil {
		return action
	}
	return base.ResolveReference(ref).String()
}

// formID — первые 16 hex-символов SHA-256 от action, метода и имён полей.
func formID(form *models.HTMLForm) string {
	names := make([]string, 0, len(form.Fields))
	for _, f := range form.Fields {
		names = append(names, f.Name)
	}
	hash := sha256.Sum256([]byte(form.Action + "|" + form.Method + "|" + strings.Join(names, ",")))
	return fmt.Sprintf("%x", hash)[:16]
}

func isSensitiveField(fieldType, name string) bool {
	fieldType = strings.ToLower(fieldType)
	if fieldType == "password" || fieldType == "email" || fieldType == "tel" {
		return true
	}

	name = strings.ToLower(name)
	for _, token := range sensitiveFieldNames {
		if strings.Contains(name, token) {
			return true
		}
	}
	return false
}
