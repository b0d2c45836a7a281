package sandbox

import (
	"net"
	"net/url"
)

func parseURL(raw string) (*url.URL, error) {
	return url.Parse(raw)
}

// parseLiteralIP returns a non-nil IP if host is a literal IPv4 or
// IPv6 address (not a DNS name).
func parseLiteralIP(host string) net.IP {
	// Hostname() already strips brackets/zone for IPv6 literals.
	return net.ParseIP(host)
}
