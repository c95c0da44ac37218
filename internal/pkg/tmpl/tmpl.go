// Package tmpl renders notification bodies from embedded html/template files.
package tmpl

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"
)

//go:embed files/*.html
var embedded embed.FS

// ErrTemplateNotFound is returned for an unknown template reference.
var ErrTemplateNotFound = errors.New("template not found")

// Renderer renders named templates. A missing variable is an error.
type Renderer struct {
	templates map[string]*template.Template
}

// New parses the templates bundled with the binary.
func New() (*Renderer, error) {
	return NewFromFS(embedded, "files/*.html")
}

// NewFromFS parses every file matching pattern. The reference of a template
// is its file name without extension.
func NewFromFS(fsys fs.FS, pattern string) (*Renderer, error) {
	names, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, err
	}

	r := &Renderer{templates: make(map[string]*template.Template, len(names))}
	for _, name := range names {
		ref := strings.TrimSuffix(path.Base(name), path.Ext(name))

		t, err := template.New(path.Base(name)).Option("missingkey=error").ParseFS(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", ref, err)
		}
		r.templates[ref] = t
	}

	return r, nil
}

// Render executes the template ref with vars.
func (r *Renderer) Render(ref string, vars map[string]any) (string, error) {
	t, ok := r.templates[ref]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, ref)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, vars); err != nil {
		return "", err
	}

	return buf.String(), nil
}
