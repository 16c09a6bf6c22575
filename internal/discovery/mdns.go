package discovery

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/empirlink/internal/logging"
)

const (
	// ServiceType is the mDNS service type browsed for controller web servers
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is the default HTTP port
	DefaultPort = 80
)

// Scanner handles mDNS controller discovery
type Scanner struct {
	// Timeout is the maximum time to wait for advertisements
	Timeout time.Duration

	// Match filters entries by instance name or hostname. Nil accepts all.
	Match *regexp.Regexp
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Scan discovers controllers until the timeout or ctx expires. Results are
// deduplicated by instance and sorted by address.
func (s *Scanner) Scan(ctx context.Context) ([]*Controller, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		mu    sync.Mutex
		found = make(map[string]*Controller)
		done  = make(chan struct{})
	)

	go func() {
		defer close(done)
		for entry := range entries {
			c := s.parseServiceEntry(entry)
			if c == nil {
				continue
			}
			logging.Debug("mDNS entry",
				zap.String("instance", c.Instance),
				zap.String("ip", c.IP),
				zap.Int("port", c.Port),
			)
			mu.Lock()
			found[c.Instance+"|"+c.IP] = c
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	// zeroconf closes entries once the browse context is done
	select {
	case <-done:
	case <-time.After(time.Second):
	}

	mu.Lock()
	defer mu.Unlock()
	controllers := make([]*Controller, 0, len(found))
	for _, c := range found {
		controllers = append(controllers, c)
	}
	sortControllers(controllers)
	return controllers, nil
}

func sortControllers(cs []*Controller) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].IP != cs[j].IP {
			return cs[i].IP < cs[j].IP
		}
		return cs[i].Instance < cs[j].Instance
	})
}

// parseServiceEntry converts a zeroconf service entry to a Controller.
// Returns nil if the entry has no address or is filtered out.
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Controller {
	if entry == nil {
		return nil
	}
	if s.Match != nil && !s.Match.MatchString(entry.Instance) && !s.Match.MatchString(entry.HostName) {
		return nil
	}

	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	// TXT records are "key=value" or a bare key
	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}

	return &Controller{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// Scan is a convenience function to scan with a custom timeout and optional
// name filter
func Scan(ctx context.Context, timeout time.Duration, match *regexp.Regexp) ([]*Controller, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	scanner.Match = match
	return scanner.Scan(ctx)
}
