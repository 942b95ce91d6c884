package smtpmail

import (
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	textTemplate "text/template"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// templateEngine renders named and inline templates with html/template
// and text/template.
type templateEngine struct {
	config        TemplateConfig
	htmlTemplates map[string]*template.Template
	textTemplates map[string]*textTemplate.Template
	mu            sync.RWMutex
}

// NewTemplateEngine creates a new template engine with the given configuration.
func NewTemplateEngine(config TemplateConfig) (TemplateEngine, error) {
	engine := &templateEngine{
		config:        config,
		htmlTemplates: make(map[string]*template.Template),
		textTemplates: make(map[string]*textTemplate.Template),
	}

	// Load templates from directory if specified
	if config.Directory != "" {
		if err := engine.LoadTemplatesFromDir(config.Directory); err != nil {
			return nil, fmt.Errorf("failed to load templates from directory: %w", err)
		}
	}

	return engine, nil
}

// Render renders a template with the provided data.
func (te *templateEngine) Render(templateName string, data any) (string, error) {
	te.mu.RLock()
	defer te.mu.RUnlock()

	// Try HTML template first
	if htmlTmpl, exists := te.htmlTemplates[templateName]; exists {
		var buf strings.Builder
		if err := htmlTmpl.Execute(&buf, data); err != nil {
			return "", NewTemplateError(templateName, "render", "failed to execute HTML template", err)
		}
		return buf.String(), nil
	}

	// Try text template
	if textTmpl, exists := te.textTemplates[templateName]; exists {
		var buf strings.Builder
		if err := textTmpl.Execute(&buf, data); err != nil {
			return "", NewTemplateError(templateName, "render", "failed to execute text template", err)
		}
		return buf.String(), nil
	}

	return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, templateName)
}

// RenderInline parses and renders content as a one-off template.
func (te *templateEngine) RenderInline(kind, content string, data any) (string, error) {
	if !strings.Contains(content, "{{") {
		return content, nil
	}

	var buf strings.Builder
	if kind == "html" {
		tmpl, err := template.New(kind).Funcs(te.getTemplateFuncs()).Parse(content)
		if err != nil {
			return "", NewTemplateError(kind, "parse", "failed to parse inline HTML template", err)
		}
		if err := tmpl.Execute(&buf, data); err != nil {
			return "", NewTemplateError(kind, "render", "failed to execute inline HTML template", err)
		}
		return buf.String(), nil
	}

	tmpl, err := textTemplate.New(kind).Funcs(te.getTextTemplateFuncs()).Parse(content)
	if err != nil {
		return "", NewTemplateError(kind, "parse", "failed to parse inline text template", err)
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", NewTemplateError(kind, "render", "failed to execute inline text template", err)
	}
	return buf.String(), nil
}

// RegisterTemplate registers a template with the given name and content.
// Names ending in ".html" are parsed as auto-escaping HTML templates.
func (te *templateEngine) RegisterTemplate(name string, content string) error {
	te.mu.Lock()
	defer te.mu.Unlock()

	if strings.HasSuffix(name, ".html") {
		// HTML template
		tmpl, err := template.New(name).Funcs(te.getTemplateFuncs()).Parse(content)
		if err != nil {
			return NewTemplateError(name, "parse", "failed to parse HTML template", err)
		}
		te.htmlTemplates[name] = tmpl
	} else {
		// Text template
		tmpl, err := textTemplate.New(name).Funcs(te.getTextTemplateFuncs()).Parse(content)
		if err != nil {
			return NewTemplateError(name, "parse", "failed to parse text template", err)
		}
		te.textTemplates[name] = tmpl
	}

	return nil
}

// LoadTemplatesFromDir loads all templates from the specified directory.
// Files whose extension is not listed in the config are skipped.
func (te *templateEngine) LoadTemplatesFromDir(dir string) error {
	root := filepath.Clean(dir)

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		path = filepath.Clean(path)
		if !isPathWithinDir(path, root) {
			return fmt.Errorf("security error: path traversal detected: %s", path)
		}

		ext := filepath.Ext(path)
		if !slices.Contains(te.config.Extension, ext) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read template file %s: %w", path, err)
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path for %s: %w", path, err)
		}

		name := templateNameFor(rel, ext)
		if err := te.RegisterTemplate(name, string(content)); err != nil {
			return fmt.Errorf("failed to register template %s: %w", name, err)
		}
		return nil
	})
}

// templateNameFor maps a template file to its registered name.
// "otp.subject.txt" becomes "otp.subject", "otp.html" becomes "otp.html"
// and "otp.txt" becomes "otp.text". Directories become dotted prefixes.
func templateNameFor(relativePath, ext string) string {
	name := strings.TrimSuffix(relativePath, ext)
	name = strings.ReplaceAll(name, string(filepath.Separator), ".")

	for _, part := range []string{".subject", ".html", ".text"} {
		if strings.HasSuffix(name, part) {
			return name
		}
	}

	if ext == ".html" || ext == ".htm" {
		return name + ".html"
	}
	return name + ".text"
}

// templateFuncs returns the functions shared by HTML and text templates.
func templateFuncs() map[string]any {
	titleCaser := cases.Title(language.English)
	return map[string]any{
		"upper":     strings.ToUpper,
		"lower":     strings.ToLower,
		"title":     titleCaser.String,
		"trim":      strings.TrimSpace,
		"join":      strings.Join,
		"split":     strings.Split,
		"replace":   strings.ReplaceAll,
		"contains":  strings.Contains,
		"hasPrefix": strings.HasPrefix,
		"hasSuffix": strings.HasSuffix,
		"now":       time.Now,
		"formatTime": func(format string, t time.Time) string {
			return t.Format(format)
		},
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
		"default": func(defaultValue, value any) any {
			if value == nil || value == "" {
				return defaultValue
			}
			return value
		},
	}
}

// getTemplateFuncs returns the template functions for HTML templates.
func (te *templateEngine) getTemplateFuncs() template.FuncMap {
	funcs := template.FuncMap(templateFuncs())

	// Only add unsafe functions if explicitly enabled in config
	if te.config.AllowUnsafeFunctions {
		// SECURITY WARNING: these bypass auto-escaping. Trusted content only.
		funcs["unsafeHTML"] = func(s string) template.HTML {
			return template.HTML(s) // #nosec G203 -- Intentionally unsafe, opt-in only
		}
		funcs["unsafeURL"] = func(s string) template.URL {
			return template.URL(s) // #nosec G203 -- Intentionally unsafe, opt-in only
		}
	}

	return funcs
}

// getTextTemplateFuncs returns the template functions for text templates.
func (te *templateEngine) getTextTemplateFuncs() textTemplate.FuncMap {
	return textTemplate.FuncMap(templateFuncs())
}

// isPathWithinDir checks if a given path is within the specified directory to prevent path traversal attacks.
func isPathWithinDir(path, dir string) bool {
	// Get absolute paths
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}

	// Check if the path starts with the directory
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false
	}

	// If rel starts with "..", it's outside the directory
	return !strings.HasPrefix(rel, "..") && rel != ".."
}
