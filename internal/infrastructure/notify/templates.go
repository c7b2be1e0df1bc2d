package notify

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/garyjia/groupware-approval/internal/domain/entity"
)

//go:embed default_templates.yaml
var defaultTemplates []byte

const fallbackKey = "default"

// TemplateConfig is one message template as written in YAML
type TemplateConfig struct {
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
}

// Templates renders notification text per event type
type Templates struct {
	titles map[string]*template.Template
	bodies map[string]*template.Template
}

// Message is a rendered notification
type Message struct {
	Title string
	Body  string
}

// LoadTemplates reads templates from path, or the built-in set when path is empty
func LoadTemplates(path string) (*Templates, error) {
	if path == "" {
		return ParseTemplates(defaultTemplates)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read templates file: %w", err)
	}
	return ParseTemplates(data)
}

// ParseTemplates compiles a YAML map of event type to template.
// A "default" entry is required and serves event types without their own entry.
func ParseTemplates(data []byte) (*Templates, error) {
	var raw map[string]TemplateConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal templates: %w", err)
	}
	if _, ok := raw[fallbackKey]; !ok {
		return nil, fmt.Errorf("templates must define a %q entry", fallbackKey)
	}

	t := &Templates{
		titles: make(map[string]*template.Template, len(raw)),
		bodies: make(map[string]*template.Template, len(raw)),
	}
	for key, cfg := range raw {
		title, err := template.New(key + ".title").Option("missingkey=error").Parse(cfg.Title)
		if err != nil {
			return nil, fmt.Errorf("failed to parse title of %s: %w", key, err)
		}
		body, err := template.New(key + ".body").Option("missingkey=error").Parse(cfg.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to parse body of %s: %w", key, err)
		}
		t.titles[key] = title
		t.bodies[key] = body
	}
	return t, nil
}

// Render fills the template for the notification's event type
func (t *Templates) Render(n *entity.Notification) (*Message, error) {
	key := n.EventType
	if _, ok := t.titles[key]; !ok {
		key = fallbackKey
	}

	title, err := execute(t.titles[key], n)
	if err != nil {
		return nil, err
	}
	body, err := execute(t.bodies[key], n)
	if err != nil {
		return nil, err
	}
	return &Message{Title: title, Body: body}, nil
}

func execute(tmpl *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}
