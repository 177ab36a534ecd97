package inventory

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/topranks/homer/internal/domain"
)

// HierarchicalConfig resolves per-device configuration from layered YAML
// files. For each base path it loads, when present:
//
//	config/common.yaml  key:value pairs shared by every device
//	config/roles.yaml   one top level key per role
//	config/sites.yaml   one top level key per site
//
// A second, private base path carries the same structure for secrets kept out
// of the public tree. The two trees may not define the same top level key.
type HierarchicalConfig struct {
	public  layeredConfig
	private layeredConfig
}

type layeredConfig struct {
	common map[string]any
	roles  map[string]map[string]any
	sites  map[string]map[string]any
}

// NewHierarchicalConfig loads the layered configuration files from basePath
// and, when non-empty, privateBasePath. Missing files load as empty layers.
func NewHierarchicalConfig(basePath, privateBasePath string) (*HierarchicalConfig, error) {
	public, err := loadLayers(basePath)
	if err != nil {
		return nil, err
	}
	private := layeredConfig{}
	if privateBasePath != "" {
		private, err = loadLayers(privateBasePath)
		if err != nil {
			return nil, err
		}
	}
	return &HierarchicalConfig{public: public, private: private}, nil
}

// Get returns the fully resolved configuration for the device. The override
// order within the public tree is common, role, site, device; role and site
// names are injected as well so templates can always reference them.
func (h *HierarchicalConfig) Get(device domain.Device) (map[string]any, error) {
	public := map[string]any{}
	merge(public, h.public.common)
	merge(public, h.public.roles[device.Role])
	merge(public, h.public.sites[device.Site])
	merge(public, device.Config)
	public["role"] = device.Role
	public["site"] = device.Site

	private := map[string]any{}
	merge(private, h.private.common)
	merge(private, h.private.roles[device.Role])
	merge(private, h.private.sites[device.Site])

	var conflicts []string
	for key := range private {
		if _, ok := public[key]; ok {
			conflicts = append(conflicts, key)
		}
	}
	if len(conflicts) > 0 {
		sort.Strings(conflicts)
		return nil, fmt.Errorf("%w: key(s) found in both public and private config: %v",
			domain.ErrInvalidArgument, conflicts)
	}

	merge(public, private)
	return public, nil
}

func merge(dst map[string]any, src map[string]any) {
	for key, value := range src {
		dst[key] = value
	}
}

func loadLayers(basePath string) (layeredConfig, error) {
	layers := layeredConfig{}
	if err := loadYAML(filepath.Join(basePath, "config", "common.yaml"), &layers.common); err != nil {
		return layers, err
	}
	if err := loadYAML(filepath.Join(basePath, "config", "roles.yaml"), &layers.roles); err != nil {
		return layers, err
	}
	if err := loadYAML(filepath.Join(basePath, "config", "sites.yaml"), &layers.sites); err != nil {
		return layers, err
	}
	return layers, nil
}

// loadYAML parses path into out, treating a missing file as empty.
func loadYAML(path string, out any) error {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
