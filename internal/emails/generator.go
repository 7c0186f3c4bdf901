// Package emails drafts outreach emails from built-in templates and
// optionally personalizes them with an LLM pass.
package emails

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/jobprep/internal/llm"
	"github.com/jonathan/jobprep/internal/prompts"
	"github.com/jonathan/jobprep/internal/ratelimit"
	"github.com/jonathan/jobprep/internal/schemas"
	"github.com/jonathan/jobprep/internal/types"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("emails").ParseFS(templateFS, "templates/*.tmpl"))

// Templates returns the names of the built-in email templates, sorted.
func Templates() []string {
	var names []string
	for _, t := range templates.Templates() {
		name := strings.TrimSuffix(t.Name(), ".tmpl")
		if name == "emails" || name == t.Name() {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// draftData feeds the email templates. Empty fields render gracefully.
type draftData struct {
	JobTitle         string
	Company          string
	ContactName      string
	ContactFirstName string
	ContactTitle     string
	Skills           string
	Summary          string
	Sender           string
}

// Generator drafts emails for one contact at a time. A nil LLM client
// disables the personalization pass; the template draft is used as-is.
type Generator struct {
	client llm.Client
	limits *ratelimit.Registry
	sender string
}

// New creates a Generator signing emails as sender.
func New(client llm.Client, limits *ratelimit.Registry, sender string) *Generator {
	return &Generator{client: client, limits: limits, sender: sender}
}

// Generate drafts an outreach email for one contact. The resume is optional;
// without it the draft omits the skills and summary lines.
func (g *Generator) Generate(ctx context.Context, job *types.JobPosting, contact types.Contact, resume *types.CustomizedResume, templateName string) (*types.GeneratedEmail, error) {
	tmpl := templates.Lookup(templateName + ".tmpl")
	if tmpl == nil {
		return nil, &GenerateError{Message: fmt.Sprintf("unknown email template %q", templateName)}
	}

	data := draftData{
		JobTitle:         job.Title,
		Company:          job.Company,
		ContactName:      contact.Name,
		ContactFirstName: firstName(contact.Name),
		ContactTitle:     contact.Title,
		Sender:           g.sender,
	}
	if resume != nil {
		data.Skills = strings.Join(resume.HighlightedSkills, ", ")
		data.Summary = resume.Summary
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, &GenerateError{Message: "failed to render template", Cause: err}
	}
	subject, body := splitDraft(buf.String())

	if g.client != nil {
		// Personalization is best effort; the template draft stands on its own.
		if s, b, err := g.personalize(ctx, job, contact, subject, body); err == nil {
			subject, body = s, b
		}
	}

	return &types.GeneratedEmail{
		ID:                   uuid.New(),
		JobID:                job.ID,
		Contact:              contact,
		Subject:              subject,
		Body:                 body,
		Template:             templateName,
		PersonalizationScore: personalizationScore(body, job, contact, resume),
		CreatedAt:            time.Now().UTC(),
	}, nil
}

// personalize runs the draft through the LLM for a natural-language rewrite.
func (g *Generator) personalize(ctx context.Context, job *types.JobPosting, contact types.Contact, subject, body string) (string, string, error) {
	promptTemplate := prompts.MustGet("emails.json", "personalize")
	prompt := prompts.Format(promptTemplate, map[string]string{
		"ContactName":  contact.Name,
		"ContactTitle": contact.Title,
		"Company":      job.Company,
		"Title":        job.Title,
		"Draft":        "Subject: " + subject + "\n\n" + body,
	})

	if err := g.limits.Acquire(ctx, ratelimit.ServiceGemini); err != nil {
		return "", "", err
	}

	responseText, err := g.client.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		g.limits.RecordFailure(ratelimit.ServiceGemini)
		return "", "", &GenerateError{Message: "LLM personalization failed", Cause: err}
	}
	g.limits.RecordSuccess(ratelimit.ServiceGemini)

	if err := schemas.Validate(schemas.GeneratedEmail, []byte(responseText)); err != nil {
		return "", "", &GenerateError{Message: "response failed schema validation", Cause: err}
	}

	var out struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := json.Unmarshal([]byte(responseText), &out); err != nil {
		return "", "", &GenerateError{Message: "failed to parse response", Cause: err}
	}
	return out.Subject, out.Body, nil
}

// splitDraft separates the "Subject: ..." first line from the body.
func splitDraft(draft string) (subject, body string) {
	draft = strings.TrimSpace(draft)
	parts := strings.SplitN(draft, "\n", 2)
	subject = strings.TrimSpace(strings.TrimPrefix(parts[0], "Subject:"))
	if len(parts) == 2 {
		body = strings.TrimSpace(parts[1])
	}
	return subject, body
}

func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// personalizationScore estimates how tailored the body is: one point each
// for naming the contact, the company, the role and a highlighted skill,
// on top of a floor for using a template at all.
func personalizationScore(body string, job *types.JobPosting, contact types.Contact, resume *types.CustomizedResume) float64 {
	score := 0.2
	lower := strings.ToLower(body)

	if name := firstName(contact.Name); name != "" && strings.Contains(lower, strings.ToLower(name)) {
		score += 0.2
	}
	if job.Company != "" && strings.Contains(lower, strings.ToLower(job.Company)) {
		score += 0.2
	}
	if job.Title != "" && strings.Contains(lower, strings.ToLower(job.Title)) {
		score += 0.2
	}
	if resume != nil {
		for _, skill := range resume.HighlightedSkills {
			if skill != "" && strings.Contains(lower, strings.ToLower(skill)) {
				score += 0.2
				break
			}
		}
	}

	if score > 1 {
		score = 1
	}
	return score
}
