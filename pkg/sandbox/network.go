package sandbox

import (
	"net"
	"strings"

	"golang.org/x/net/idna"
)

// Allowlist matches hostnames against a set of exact, wildcard-suffix,
// or allow-all entries. Construction lowercases everything so lookups
// are case-insensitive.
type Allowlist struct {
	allowAll         bool
	exact            map[string]struct{}
	wildcardSuffixes []string
}

// NewAllowlist builds an Allowlist from permission entries: "*" means
// allow-all; "*.suffix" is a wildcard matching any subdomain of suffix
// (but not the bare suffix itself); anything else is an exact,
// case-insensitive match.
func NewAllowlist(entries []string) *Allowlist {
	a := &Allowlist{exact: make(map[string]struct{})}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "*" {
			a.allowAll = true
			continue
		}
		wildcard := strings.HasPrefix(e, "*.")
		if wildcard {
			e = e[1:] // keep leading "."
		}
		e = normalizeHostname(e)
		if wildcard {
			a.wildcardSuffixes = append(a.wildcardSuffixes, e)
		} else {
			a.exact[e] = struct{}{}
		}
	}
	return a
}

// IsAllowed reports whether host is permitted by the allowlist.
func (a *Allowlist) IsAllowed(host string) bool {
	if a.allowAll {
		return true
	}
	host = normalizeHostname(host)
	if _, ok := a.exact[host]; ok {
		return true
	}
	for _, suffix := range a.wildcardSuffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}

// normalizeHostname lowercases and, for internationalized domain
// names, converts to its ASCII (punycode) form so a Unicode hostname
// and its ASCII equivalent compare equal against the allowlist. Falls
// back to a plain lowercase compare if the input isn't valid IDNA
// (e.g. it's already an IP literal).
func normalizeHostname(host string) string {
	host = strings.ToLower(host)
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		return ascii
	}
	return host
}

// IsPrivateIP classifies an IP address as private/reserved: RFC 1918,
// loopback, link-local (including the 169.254.169.254 cloud-metadata
// address), carrier-grade NAT (100.64/10), the 0/8 "this network"
// block, and their IPv6 equivalents (loopback, link-local, ULA,
// unspecified). IPv4-mapped IPv6 addresses are classified by their
// mapped v4 address.
func IsPrivateIP(ip net.IP) bool {
	if v4 := ip.To4(); v4 != nil {
		o0, o1 := v4[0], v4[1]
		switch {
		case o0 == 10:
			return true
		case o0 == 172 && o1 >= 16 && o1 <= 31:
			return true
		case o0 == 192 && o1 == 168:
			return true
		case o0 == 127:
			return true
		case o0 == 169 && o1 == 254:
			return true
		case o0 == 100 && o1 >= 64 && o1 <= 127:
			return true
		case o0 == 0:
			return true
		}
		return false
	}

	if ip.IsLoopback() {
		return true
	}
	if ip.IsUnspecified() {
		return true
	}
	if len(ip) == net.IPv6len {
		if ip[0] == 0xfe && ip[1]&0xc0 == 0x80 { // fe80::/10
			return true
		}
		if ip[0]&0xfe == 0xfc { // fc00::/7
			return true
		}
	}
	return false
}
