package discovery

import (
	"net"
	"regexp"
	"testing"

	"github.com/grandcat/zeroconf"
)

func entry(instance, host string, port int, ips ...string) *zeroconf.ServiceEntry {
	e := &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{Instance: instance, Service: ServiceType, Domain: ServiceDomain},
		HostName:      host,
		Port:          port,
	}
	for _, ip := range ips {
		parsed := net.ParseIP(ip)
		if parsed.To4() != nil {
			e.AddrIPv4 = append(e.AddrIPv4, parsed)
		} else {
			e.AddrIPv6 = append(e.AddrIPv6, parsed)
		}
	}
	return e
}

func TestScanner_parseServiceEntry(t *testing.T) {
	tests := []struct {
		name     string
		match    *regexp.Regexp
		entry    *zeroconf.ServiceEntry
		wantNil  bool
		wantIP   string
		wantPort int
	}{
		{
			name:     "IPv4 controller",
			entry:    entry("EmpirBus MFD", "empirbus-mfd.local.", 80, "192.168.1.1"),
			wantIP:   "192.168.1.1",
			wantPort: 80,
		},
		{
			name:     "port defaults to 80",
			entry:    entry("EmpirBus MFD", "empirbus-mfd.local.", 0, "10.0.0.5"),
			wantIP:   "10.0.0.5",
			wantPort: 80,
		},
		{
			name:     "IPv4 preferred over IPv6",
			entry:    entry("x", "x.local.", 8080, "fe80::1", "192.168.1.2"),
			wantIP:   "192.168.1.2",
			wantPort: 8080,
		},
		{
			name:     "IPv6 fallback",
			entry:    entry("x", "x.local.", 80, "fe80::1"),
			wantIP:   "fe80::1",
			wantPort: 80,
		},
		{
			name:    "no address",
			entry:   entry("x", "x.local.", 80),
			wantNil: true,
		},
		{
			name:     "match on instance",
			match:    regexp.MustCompile(`(?i)empirbus`),
			entry:    entry("EmpirBus MFD", "mfd.local.", 80, "192.168.1.1"),
			wantIP:   "192.168.1.1",
			wantPort: 80,
		},
		{
			name:     "match on hostname",
			match:    regexp.MustCompile(`^empirbus`),
			entry:    entry("Web UI", "empirbus-01.local.", 80, "192.168.1.3"),
			wantIP:   "192.168.1.3",
			wantPort: 80,
		},
		{
			name:    "filtered out",
			match:   regexp.MustCompile(`(?i)empirbus`),
			entry:   entry("Printer", "printer.local.", 80, "192.168.1.9"),
			wantNil: true,
		},
		{
			name:    "nil entry",
			entry:   nil,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scanner := NewScanner()
			scanner.Match = tt.match

			c := scanner.parseServiceEntry(tt.entry)
			if tt.wantNil {
				if c != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", c)
				}
				return
			}
			if c == nil {
				t.Fatal("parseServiceEntry() returned nil")
			}
			if c.IP != tt.wantIP {
				t.Errorf("IP = %v, want %v", c.IP, tt.wantIP)
			}
			if c.Port != tt.wantPort {
				t.Errorf("Port = %v, want %v", c.Port, tt.wantPort)
			}
			if c.Instance != tt.entry.Instance {
				t.Errorf("Instance = %v, want %v", c.Instance, tt.entry.Instance)
			}
		})
	}
}

func TestScanner_parseTXTRecords(t *testing.T) {
	e := entry("EmpirBus MFD", "mfd.local.", 80, "192.168.1.1")
	e.Text = []string{"path=/", "model=EmpirBus NXT", "secure"}

	c := NewScanner().parseServiceEntry(e)
	if c == nil {
		t.Fatal("parseServiceEntry() returned nil")
	}

	want := map[string]string{"path": "/", "model": "EmpirBus NXT", "secure": ""}
	for k, v := range want {
		if got := c.GetMetadata(k); got != v {
			t.Errorf("GetMetadata(%q) = %q, want %q", k, got, v)
		}
	}
	if got := c.GetMetadata("missing"); got != "" {
		t.Errorf("GetMetadata(missing) = %q", got)
	}
}

func TestSortControllers(t *testing.T) {
	cs := []*Controller{
		{Instance: "b", IP: "192.168.1.2"},
		{Instance: "z", IP: "192.168.1.1"},
		{Instance: "a", IP: "192.168.1.2"},
	}
	sortControllers(cs)

	want := []string{"z", "a", "b"}
	for i, c := range cs {
		if c.Instance != want[i] {
			t.Errorf("cs[%d].Instance = %q, want %q", i, c.Instance, want[i])
		}
	}
}

func TestNewScanner(t *testing.T) {
	s := NewScanner()
	if s.Timeout != DefaultScanTimeout {
		t.Errorf("Timeout = %v, want %v", s.Timeout, DefaultScanTimeout)
	}
	if s.Match != nil {
		t.Error("Match should be nil by default")
	}
}
