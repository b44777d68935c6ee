package engine

import (
	"fmt"
	"net/netip"
	"net/url"
	"strings"
)

// blockedHosts are literal hostnames that must never be probed.
var blockedHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"0.0.0.0":   true,
	"::1":       true,
}

// blockedSuffixes reject hostnames on internal-only TLDs.
var blockedSuffixes = []string{".local", ".internal", ".localhost", ".lan"}

// privateRanges are matched against literal IP hostnames only. A public
// hostname that *resolves* to a private address is not caught here; that
// residual risk is documented and accepted.
var privateRanges = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("100.64.0.0/10"), // carrier-grade NAT
}

// ValidateURL rejects URLs that are not plain externally-reachable
// HTTP(S) endpoints. Callers must refuse to probe on error and record a
// failed check with the returned reason.
func ValidateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || !parsed.IsAbs() {
		return fmt.Errorf("URL %q is not a valid absolute URL", raw)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL scheme %q is not allowed; only http and https are supported", parsed.Scheme)
	}

	// A trailing dot (fully qualified form) resolves identically.
	host := strings.TrimSuffix(strings.ToLower(parsed.Hostname()), ".")
	if host == "" {
		return fmt.Errorf("URL %q has no hostname", raw)
	}

	if blockedHosts[host] {
		return fmt.Errorf("hostname %q points to the local machine and cannot be monitored", host)
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		for _, r := range privateRanges {
			if r.Contains(addr) {
				return fmt.Errorf("IP address %q is in a private or internal range and cannot be monitored", host)
			}
		}
	}

	for _, suffix := range blockedSuffixes {
		if strings.HasSuffix(host, suffix) {
			return fmt.Errorf("hostname %q is on an internal-only domain and cannot be monitored", host)
		}
	}

	return nil
}
