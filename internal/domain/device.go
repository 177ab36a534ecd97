package domain

import "sort"

// Device describes one network device in the fleet. It is the full state the
// engine knows: identity (FQDN), role and site metadata, and device-specific
// configuration data. Role, site and config are opaque to the commit engine;
// only the inventory and rendering layers interpret them.
type Device struct {
	FQDN   string
	Role   string
	Site   string
	Config map[string]any
}

// Devices is a collection of devices addressable by FQDN, with dedicated
// accessors for role and site groupings.
type Devices struct {
	byFQDN map[string]Device
	byRole map[string][]Device
	bySite map[string][]Device
}

// NewDevices builds a collection from the given devices. Later duplicates of
// the same FQDN replace earlier ones.
func NewDevices(devices []Device) *Devices {
	d := &Devices{
		byFQDN: make(map[string]Device, len(devices)),
		byRole: make(map[string][]Device),
		bySite: make(map[string][]Device),
	}
	for _, dev := range devices {
		d.byFQDN[dev.FQDN] = dev
	}
	for _, fqdn := range d.FQDNs() {
		dev := d.byFQDN[fqdn]
		d.byRole[dev.Role] = append(d.byRole[dev.Role], dev)
		d.bySite[dev.Site] = append(d.bySite[dev.Site], dev)
	}
	return d
}

// Get returns the device with the given FQDN.
func (d *Devices) Get(fqdn string) (Device, bool) {
	dev, ok := d.byFQDN[fqdn]
	return dev, ok
}

// Role returns all devices with the given role, ordered by FQDN.
func (d *Devices) Role(name string) []Device {
	return d.byRole[name]
}

// Site returns all devices within the given site, ordered by FQDN.
func (d *Devices) Site(name string) []Device {
	return d.bySite[name]
}

// All returns every device ordered by FQDN.
func (d *Devices) All() []Device {
	out := make([]Device, 0, len(d.byFQDN))
	for _, fqdn := range d.FQDNs() {
		out = append(out, d.byFQDN[fqdn])
	}
	return out
}

// FQDNs returns the sorted FQDNs of all devices.
func (d *Devices) FQDNs() []string {
	fqdns := make([]string, 0, len(d.byFQDN))
	for fqdn := range d.byFQDN {
		fqdns = append(fqdns, fqdn)
	}
	sort.Strings(fqdns)
	return fqdns
}

// Len returns the number of devices in the collection.
func (d *Devices) Len() int { return len(d.byFQDN) }
