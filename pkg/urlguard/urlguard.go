// Package urlguard validates caller-supplied URLs before the bot makes an
// outbound request to them, so a forward command cannot be pointed at
// loopback or private network targets.
package urlguard

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

var (
	ErrInsecureScheme = errors.New("only https urls are allowed")
	ErrForbiddenHost  = errors.New("host resolves to a loopback or private address")
	ErrHostNotAllowed = errors.New("host is not on the allow-list")
)

// swappable for tests
var lookupIP = net.LookupIP

// Validate rejects a URL unless its scheme is https, its host does not
// resolve to an internal address, and — when an allow-list is configured —
// the host is on that list.
func Validate(raw string, allowlist []string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if !strings.EqualFold(u.Scheme, "https") {
		return ErrInsecureScheme
	}
	host := u.Hostname()
	if host == "" {
		return errors.New("url has no host")
	}

	if ip := net.ParseIP(host); ip != nil {
		if isInternal(ip) {
			return ErrForbiddenHost
		}
	} else {
		addrs, err := lookupIP(host)
		if err != nil {
			return fmt.Errorf("resolve host %q: %w", host, err)
		}
		for _, addr := range addrs {
			if isInternal(addr) {
				return ErrForbiddenHost
			}
		}
	}

	if len(allowlist) > 0 && !allowed(host, allowlist) {
		return ErrHostNotAllowed
	}
	return nil
}

func isInternal(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified()
}

func allowed(host string, allowlist []string) bool {
	for _, entry := range allowlist {
		if strings.EqualFold(host, entry) {
			return true
		}
	}
	return false
}
