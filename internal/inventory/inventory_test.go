package inventory_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/topranks/homer/internal/domain"
	"github.com/topranks/homer/internal/inventory"
)

func writeFile(t *testing.T, base, name, content string) {
	t.Helper()
	path := filepath.Join(base, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func fixtureTree(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	writeFile(t, base, "config/devices.yaml", `
cr1-eqiad.example:
  role: cr
  site: eqiad
  config:
    loopback: 10.0.0.1
cr2-codfw.example:
  role: cr
  site: codfw
  config: {}
asw1-eqiad.example:
  role: asw
  site: eqiad
  config: {}
`)
	writeFile(t, base, "config/common.yaml", "domain: example\nntp: [ntp1.example]\n")
	writeFile(t, base, "config/roles.yaml", "cr:\n  bgp: true\nasw:\n  bgp: false\n")
	writeFile(t, base, "config/sites.yaml", "eqiad:\n  ntp: [ntp1-eqiad.example]\n")
	return base
}

func TestLoadDevices(t *testing.T) {
	base := fixtureTree(t)

	devices, err := inventory.LoadDevices(base)
	if err != nil {
		t.Fatalf("LoadDevices: %v", err)
	}
	if devices.Len() != 3 {
		t.Fatalf("Len = %d, want 3", devices.Len())
	}

	dev, ok := devices.Get("cr1-eqiad.example")
	if !ok {
		t.Fatal("cr1-eqiad.example not found")
	}
	if dev.Role != "cr" || dev.Site != "eqiad" {
		t.Errorf("device = %+v, want role cr site eqiad", dev)
	}
	if dev.Config["loopback"] != "10.0.0.1" {
		t.Errorf("Config[loopback] = %v, want 10.0.0.1", dev.Config["loopback"])
	}
}

func TestLoadDevices_MissingRole(t *testing.T) {
	base := t.TempDir()
	writeFile(t, base, "config/devices.yaml", "bad.example:\n  site: eqiad\n")

	_, err := inventory.LoadDevices(base)
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("LoadDevices: got %v, want ErrInvalidArgument", err)
	}
}

func TestSelect(t *testing.T) {
	base := fixtureTree(t)
	devices, err := inventory.LoadDevices(base)
	if err != nil {
		t.Fatalf("LoadDevices: %v", err)
	}

	tests := []struct {
		query string
		want  int
	}{
		{"role:cr", 2},
		{"site:eqiad", 2},
		{"role:unknown", 0},
		{"cr1-eqiad.example", 1},
		{"cr*", 2},
		{"*-eqiad.example", 2},
		{"nomatch*", 0},
	}
	for _, tt := range tests {
		got, err := inventory.Select(devices, tt.query)
		if err != nil {
			t.Errorf("Select(%q): %v", tt.query, err)
			continue
		}
		if len(got) != tt.want {
			t.Errorf("Select(%q) = %d devices, want %d", tt.query, len(got), tt.want)
		}
	}
}

func TestSelect_EmptyQuery(t *testing.T) {
	devices := domain.NewDevices(nil)
	if _, err := inventory.Select(devices, ""); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("Select: got %v, want ErrInvalidArgument", err)
	}
}

func TestSelect_MalformedPattern(t *testing.T) {
	devices := domain.NewDevices(nil)
	if _, err := inventory.Select(devices, "[unclosed"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("Select: got %v, want ErrInvalidArgument", err)
	}
}

func TestHierarchicalConfig_OverrideOrder(t *testing.T) {
	base := fixtureTree(t)
	cfg, err := inventory.NewHierarchicalConfig(base, "")
	if err != nil {
		t.Fatalf("NewHierarchicalConfig: %v", err)
	}

	device := domain.Device{
		FQDN: "cr1-eqiad.example", Role: "cr", Site: "eqiad",
		Config: map[string]any{"loopback": "10.0.0.1"},
	}
	data, err := cfg.Get(device)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if data["domain"] != "example" {
		t.Errorf("common key domain = %v, want example", data["domain"])
	}
	if data["bgp"] != true {
		t.Errorf("role key bgp = %v, want true", data["bgp"])
	}
	// sites.yaml overrides the common ntp list for eqiad.
	ntp, ok := data["ntp"].([]any)
	if !ok || len(ntp) != 1 || ntp[0] != "ntp1-eqiad.example" {
		t.Errorf("ntp = %v, want [ntp1-eqiad.example]", data["ntp"])
	}
	if data["loopback"] != "10.0.0.1" {
		t.Errorf("device key loopback = %v, want 10.0.0.1", data["loopback"])
	}
	if data["role"] != "cr" || data["site"] != "eqiad" {
		t.Errorf("injected role/site = %v/%v, want cr/eqiad", data["role"], data["site"])
	}
}

func TestHierarchicalConfig_PublicPrivateConflict(t *testing.T) {
	base := fixtureTree(t)
	private := t.TempDir()
	writeFile(t, private, "config/common.yaml", "domain: secret.example\nsnmp_community: s3cret\n")

	cfg, err := inventory.NewHierarchicalConfig(base, private)
	if err != nil {
		t.Fatalf("NewHierarchicalConfig: %v", err)
	}

	device := domain.Device{FQDN: "cr1-eqiad.example", Role: "cr", Site: "eqiad"}
	_, err = cfg.Get(device)
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("Get: got %v, want ErrInvalidArgument", err)
	}
	if !strings.Contains(err.Error(), "domain") {
		t.Errorf("error %q does not name the conflicting key", err)
	}
}

func TestHierarchicalConfig_PrivateMergesIn(t *testing.T) {
	base := fixtureTree(t)
	private := t.TempDir()
	writeFile(t, private, "config/common.yaml", "snmp_community: s3cret\n")

	cfg, err := inventory.NewHierarchicalConfig(base, private)
	if err != nil {
		t.Fatalf("NewHierarchicalConfig: %v", err)
	}

	device := domain.Device{FQDN: "cr1-eqiad.example", Role: "cr", Site: "eqiad"}
	data, err := cfg.Get(device)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if data["snmp_community"] != "s3cret" {
		t.Errorf("snmp_community = %v, want s3cret", data["snmp_community"])
	}
}

func TestResolver_FileDataSource(t *testing.T) {
	base := fixtureTree(t)
	writeFile(t, base, "data/cr1-eqiad.example.yaml", "circuits: [transit-1]\n")

	cfg, err := inventory.NewHierarchicalConfig(base, "")
	if err != nil {
		t.Fatalf("NewHierarchicalConfig: %v", err)
	}
	source, err := inventory.NewDataSource("file", base)
	if err != nil {
		t.Fatalf("NewDataSource: %v", err)
	}
	resolver := &inventory.Resolver{Config: cfg, Source: source}

	device := domain.Device{FQDN: "cr1-eqiad.example", Role: "cr", Site: "eqiad"}
	data, err := resolver.Resolve(context.Background(), device)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	circuits, ok := data["circuits"].([]any)
	if !ok || len(circuits) != 1 || circuits[0] != "transit-1" {
		t.Errorf("circuits = %v, want [transit-1]", data["circuits"])
	}

	// Devices without a data file resolve cleanly.
	other := domain.Device{FQDN: "cr2-codfw.example", Role: "cr", Site: "codfw"}
	if _, err := resolver.Resolve(context.Background(), other); err != nil {
		t.Errorf("Resolve without data file: %v", err)
	}
}

func TestResolver_SourceCannotShadowConfig(t *testing.T) {
	base := fixtureTree(t)
	writeFile(t, base, "data/cr1-eqiad.example.yaml", "domain: shadowed.example\n")

	cfg, err := inventory.NewHierarchicalConfig(base, "")
	if err != nil {
		t.Fatalf("NewHierarchicalConfig: %v", err)
	}
	resolver := &inventory.Resolver{Config: cfg, Source: &inventory.FileData{BasePath: base}}

	device := domain.Device{FQDN: "cr1-eqiad.example", Role: "cr", Site: "eqiad"}
	if _, err := resolver.Resolve(context.Background(), device); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("Resolve: got %v, want ErrInvalidArgument", err)
	}
}

func TestNewDataSource_Unknown(t *testing.T) {
	if _, err := inventory.NewDataSource("netbox", t.TempDir()); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("NewDataSource: got %v, want ErrInvalidArgument", err)
	}
}
