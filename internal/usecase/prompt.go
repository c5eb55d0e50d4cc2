package usecase

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"nyaya/internal/domain"
)

//go:embed templates/*.txt
var promptTemplates embed.FS

type promptData struct {
	Question string
	Context  string
	Hindi    bool
}

// buildPrompt renders the system and user prompts for a generation
// attempt.
func buildPrompt(question, context string, lang domain.Language) (system, user string, err error) {
	data := promptData{
		Question: question,
		Context:  context,
		Hindi:    lang == domain.LangHindi,
	}

	system, err = renderTemplate("templates/answer_system.txt", data)
	if err != nil {
		return "", "", err
	}
	user, err = renderTemplate("templates/answer_user.txt", data)
	if err != nil {
		return "", "", err
	}
	return system, user, nil
}

func renderTemplate(name string, data promptData) (string, error) {
	content, err := promptTemplates.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("template not found: %w", err)
	}

	tmpl, err := template.New(name).Parse(string(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}
