// Package render turns per-role templates and resolved device data into
// candidate device configurations.
package render

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/topranks/homer/internal/domain"
)

// Renderer loads role templates from <basePath>/templates and renders them
// with per-device data. Templates are named after the role with a .conf
// extension, so role "cr" renders templates/cr.conf. A template referencing a
// key absent from the data fails the render instead of emitting an empty
// value, since a silently incomplete configuration is worse than no
// configuration.
type Renderer struct {
	basePath string
}

func NewRenderer(basePath string) *Renderer {
	return &Renderer{basePath: basePath}
}

// Render produces the candidate configuration for the device from its role
// template and resolved data.
func (r *Renderer) Render(device domain.Device, data map[string]any) (string, error) {
	name := device.Role + ".conf"
	path := filepath.Join(r.basePath, "templates", name)

	tmpl, err := template.New(name).Option("missingkey=error").ParseFiles(path)
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}

	var out strings.Builder
	if err := tmpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("render template %s for %s: %w", name, device.FQDN, err)
	}
	return out.String(), nil
}
