package net

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/primoscope/CoomerDL-sub000/internal/domain/consts"
)

// CanonicalDomain reduces a URL to its rate-limiting unit: the registered
// domain, with known cross-TLD mirrors collapsed into one logical host.
// Numbered mirror subdomains (c1.coomer.su, n2.kemono.su) fold into their
// registered domain automatically.
func CanonicalDomain(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrMalformedURL, rawURL, err)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("%w: %q has no host", ErrMalformedURL, rawURL)
	}

	// IP literals and single-label hosts (localhost) have no registered
	// domain, rate limit them as-is.
	etld, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		etld = host
	}

	if canon, ok := consts.MirrorHostMap[etld]; ok {
		return canon, nil
	}
	return etld, nil
}
