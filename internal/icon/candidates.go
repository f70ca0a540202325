package icon

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// DefaultLookupHost is the third-party favicon service used for aggregator candidates.
const DefaultLookupHost = "icons.duckduckgo.com"

// ErrUnresolvable is returned for input that yields no probe candidates.
var ErrUnresolvable = errors.New("unresolvable url")

// compoundSuffixes are public suffixes that span two labels.
// This is a short fixed list, not the public suffix list.
var compoundSuffixes = map[string]bool{
	"co.uk":  true,
	"com.cn": true,
	"net.cn": true,
	"org.cn": true,
	"com.au": true,
	"co.jp":  true,
}

// RegistrableDomain strips subdomains from host.
// "sub.example.com" -> "example.com", "www.bbc.co.uk" -> "bbc.co.uk".
func RegistrableDomain(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	labels := strings.Split(host, ".")
	if len(labels) <= 2 {
		return host
	}

	lastTwo := strings.Join(labels[len(labels)-2:], ".")
	if compoundSuffixes[lastTwo] {
		return strings.Join(labels[len(labels)-3:], ".")
	}
	return lastTwo
}

// Candidates returns the favicon URLs to probe for rawURL, in priority order:
// site favicon over https, registrable domain favicon over https, lookup
// service by registrable domain, site favicon over http, lookup service by
// exact host.
func Candidates(rawURL, lookupHost string) ([]string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnresolvable, err)
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return nil, fmt.Errorf("%w: no host in %q", ErrUnresolvable, rawURL)
	}
	if lookupHost == "" {
		lookupHost = DefaultLookupHost
	}

	site := host
	if strings.Contains(host, ":") {
		// IPv6 literal
		site = "[" + host + "]"
	}
	domain := RegistrableDomain(host)

	return []string{
		"https://" + site + "/favicon.ico",
		"https://" + domain + "/favicon.ico",
		"https://" + lookupHost + "/ip3/" + domain + ".ico",
		"http://" + site + "/favicon.ico",
		"https://" + lookupHost + "/ip3/" + host + ".ico",
	}, nil
}
