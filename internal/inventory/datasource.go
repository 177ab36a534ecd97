package inventory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/topranks/homer/internal/domain"
)

// DataSource supplies additional per-device data gathered outside the static
// configuration tree, for example from an external inventory system.
type DataSource interface {
	// Supplies returns extra template data for the device. Keys returned here
	// override nothing; the resolver rejects collisions with resolved config.
	Supplies(ctx context.Context, device domain.Device) (map[string]any, error)
}

// FileData is a DataSource backed by per-device YAML files under
// <basePath>/data/<fqdn>.yaml. Devices without a data file get no extra data.
type FileData struct {
	BasePath string
}

func (f *FileData) Supplies(_ context.Context, device domain.Device) (map[string]any, error) {
	data := map[string]any{}
	path := filepath.Join(f.BasePath, "data", device.FQDN+".yaml")
	if err := loadYAML(path, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// Resolver combines the hierarchical configuration with an optional data
// source into the final template data for a device.
type Resolver struct {
	Config *HierarchicalConfig
	// Source is optional; nil means no external data.
	Source DataSource
}

// Resolve returns the complete template data for the device. External data
// may not shadow a key already present in the resolved configuration.
func (r *Resolver) Resolve(ctx context.Context, device domain.Device) (map[string]any, error) {
	data, err := r.Config.Get(device)
	if err != nil {
		return nil, err
	}
	if r.Source == nil {
		return data, nil
	}

	extra, err := r.Source.Supplies(ctx, device)
	if err != nil {
		return nil, fmt.Errorf("data source for %s: %w", device.FQDN, err)
	}
	for key, value := range extra {
		if _, ok := data[key]; ok {
			return nil, fmt.Errorf("%w: data source key %q shadows resolved config for %s",
				domain.ErrInvalidArgument, key, device.FQDN)
		}
		data[key] = value
	}
	return data, nil
}

// NewDataSource builds the data source named in the operational configuration.
// An empty name disables external data.
func NewDataSource(name, basePath string) (DataSource, error) {
	switch name {
	case "":
		return nil, nil
	case "file":
		if _, err := os.Stat(basePath); err != nil {
			return nil, fmt.Errorf("data source base path: %w", err)
		}
		return &FileData{BasePath: basePath}, nil
	default:
		return nil, fmt.Errorf("%w: unknown data source %q", domain.ErrInvalidArgument, name)
	}
}
