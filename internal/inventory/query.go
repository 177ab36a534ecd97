package inventory

import (
	"fmt"
	"path"
	"strings"

	"github.com/topranks/homer/internal/domain"
)

// Select resolves a device selection query against the inventory. Three query
// forms are supported:
//
//	role:NAME  all devices with the given role
//	site:NAME  all devices within the given site
//	PATTERN    FQDN glob match, e.g. "cr*-eqiad*" or a plain FQDN
//
// An empty selection is not an error; callers decide whether zero matched
// devices is acceptable.
func Select(devices *domain.Devices, query string) ([]domain.Device, error) {
	switch {
	case query == "":
		return nil, fmt.Errorf("%w: empty device query", domain.ErrInvalidArgument)
	case strings.HasPrefix(query, "role:"):
		return devices.Role(strings.TrimPrefix(query, "role:")), nil
	case strings.HasPrefix(query, "site:"):
		return devices.Site(strings.TrimPrefix(query, "site:")), nil
	}

	if _, err := path.Match(query, ""); err != nil {
		return nil, fmt.Errorf("%w: malformed query pattern %q", domain.ErrInvalidArgument, query)
	}

	var matched []domain.Device
	for _, fqdn := range devices.FQDNs() {
		if ok, _ := path.Match(query, fqdn); ok {
			device, _ := devices.Get(fqdn)
			matched = append(matched, device)
		}
	}
	return matched, nil
}
