package inventory

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/topranks/homer/internal/domain"
)

// deviceEntry is the on-disk shape of one device in devices.yaml, keyed by
// FQDN at the top level.
type deviceEntry struct {
	Role   string         `yaml:"role"`
	Site   string         `yaml:"site"`
	Config map[string]any `yaml:"config"`
}

// LoadDevices reads devices.yaml from the given base path and returns the
// device collection. Every device must declare a role and a site.
func LoadDevices(basePath string) (*domain.Devices, error) {
	path := filepath.Join(basePath, "config", "devices.yaml")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	entries := map[string]deviceEntry{}
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	devices := make([]domain.Device, 0, len(entries))
	for fqdn, entry := range entries {
		if entry.Role == "" || entry.Site == "" {
			return nil, fmt.Errorf("%w: device %s must declare role and site", domain.ErrInvalidArgument, fqdn)
		}
		devices = append(devices, domain.Device{
			FQDN:   fqdn,
			Role:   entry.Role,
			Site:   entry.Site,
			Config: entry.Config,
		})
	}
	return domain.NewDevices(devices), nil
}
