package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Controller represents a discovered controller web server on the network
type Controller struct {
	// Instance is the advertised mDNS instance name
	Instance string

	// Hostname is the mDNS hostname (e.g., "empirbus-mfd.local.")
	Hostname string

	// IP is the address, IPv4 preferred
	IP string

	// Port is the HTTP port (typically 80)
	Port int

	// Metadata contains the mDNS TXT record data
	Metadata map[string]string

	// DiscoveredAt is when the controller was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable representation of the controller
func (c *Controller) String() string {
	return fmt.Sprintf("%s (%s) at %s", c.Instance, c.Hostname, net.JoinHostPort(c.IP, strconv.Itoa(c.Port)))
}

// Host returns the host value used to derive the websocket URL. The port is
// omitted when it is the HTTP default.
func (c *Controller) Host() string {
	if c.Port == 0 || c.Port == DefaultPort {
		if net.ParseIP(c.IP).To4() == nil && net.ParseIP(c.IP) != nil {
			return "[" + c.IP + "]"
		}
		return c.IP
	}
	return net.JoinHostPort(c.IP, strconv.Itoa(c.Port))
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (c *Controller) GetMetadata(key string) string {
	if c.Metadata == nil {
		return ""
	}
	return c.Metadata[key]
}
