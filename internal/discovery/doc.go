// Package discovery locates controller web servers on the local network
// using mDNS.
//
// Controllers with a web HMI advertise a "_http._tcp" service. The scanner
// browses for those advertisements until its timeout and returns every entry
// with an address, optionally filtered by a regular expression matched
// against the instance name or hostname.
//
// # Usage Example
//
//	scanner := discovery.NewScanner()
//	scanner.Match = regexp.MustCompile(`(?i)empirbus|garmin`)
//
//	controllers, err := scanner.Scan(ctx)
//	if err != nil {
//	    return err
//	}
//	for _, c := range controllers {
//	    fmt.Printf("%s -> --host %s\n", c, c.Host())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Controllers must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
