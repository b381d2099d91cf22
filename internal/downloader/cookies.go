package downloader

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/browserutils/kooky"
	// Use all browsers for Kooky:
	_ "github.com/browserutils/kooky/browser/all"

	"github.com/primoscope/CoomerDL-sub000/internal/domain/consts"
	"github.com/primoscope/CoomerDL-sub000/internal/net"
	"github.com/primoscope/CoomerDL-sub000/internal/utils/logging"
)

// CookieManager loads browser cookies per domain and caches them for the
// process lifetime. Construct one and share it across downloaders.
type CookieManager struct {
	mu      sync.RWMutex
	stores  []kooky.CookieStore
	cookies map[string][]*http.Cookie
}

// NewCookieManager initializes a new cookie manager instance, discovering
// the browser cookie stores present on this machine.
func NewCookieManager() *CookieManager {
	return &CookieManager{
		stores:  kooky.FindAllCookieStores(),
		cookies: make(map[string][]*http.Cookie),
	}
}

// GetCookies retrieves cookies for a given URL.
func (cm *CookieManager) GetCookies(ctx context.Context, u string) ([]*http.Cookie, error) {
	domain, err := net.CanonicalDomain(u)
	if err != nil {
		return nil, fmt.Errorf("error extracting base domain in cookie grab: %w", err)
	}

	// Check if we already have cookies for this domain
	cm.mu.RLock()
	if cookies, ok := cm.cookies[domain]; ok {
		cm.mu.RUnlock()
		return cookies, nil
	}
	cm.mu.RUnlock()

	// Load cookies for domain
	cookies := cm.loadCookiesForDomain(ctx, domain)

	// Store cookies
	cm.mu.Lock()
	cm.cookies[domain] = cookies
	cm.mu.Unlock()

	return cookies, nil
}

// ExportNetscape writes a domain's cookies to path in Netscape format for
// external engines that take a --cookies file. Returns false when there was
// nothing to write.
func (cm *CookieManager) ExportNetscape(ctx context.Context, u, path string) (bool, error) {
	cookies, err := cm.GetCookies(ctx, u)
	if err != nil {
		return false, err
	}
	if len(cookies) == 0 {
		return false, nil
	}

	if err := saveCookiesToFile(cookies, path); err != nil {
		return false, fmt.Errorf("failed to export cookies to %q: %w", path, err)
	}
	return true, nil
}

// loadCookiesForDomain reads the domain's cookies from every discovered
// browser store, skipping stores that fail to open.
func (cm *CookieManager) loadCookiesForDomain(ctx context.Context, domain string) []*http.Cookie {
	var found []*http.Cookie
	for _, store := range cm.stores {
		if ctx.Err() != nil {
			return found
		}

		kookieCookies, err := store.ReadCookies(kooky.Valid, kooky.Domain(domain))
		if err != nil {
			logging.D("Failed reading cookies from %s: %v", store.Browser(), err)
			continue
		}
		if len(kookieCookies) > 0 {
			logging.I("Found %d cookies in %s for %s", len(kookieCookies), store.Browser(), domain)
			found = append(found, convertToHTTPCookies(kookieCookies)...)
		}
	}

	if len(found) == 0 {
		logging.D("No cookies found for %s", domain)
	}
	return found
}

// convertToHTTPCookies converts kooky cookies to http.Cookie format.
func convertToHTTPCookies(kookyCookies []*kooky.Cookie) []*http.Cookie {
	httpCookies := make([]*http.Cookie, len(kookyCookies))
	for i, c := range kookyCookies {
		httpCookies[i] = &http.Cookie{
			Name:    c.Name,
			Value:   c.Value,
			Path:    c.Path,
			Domain:  c.Domain,
			Expires: c.Expires,
			Secure:  c.Secure,
		}
	}
	return httpCookies
}

// saveCookiesToFile saves the cookies to a file in Netscape format.
func saveCookiesToFile(cookies []*http.Cookie, cookieFilePath string) error {
	file, err := os.OpenFile(cookieFilePath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, consts.PermsCookieFile)
	if err != nil {
		return err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.E("Failed to close file %q due to error: %v", cookieFilePath, err)
		}
	}()

	// Write the header for the Netscape cookies file
	_, err = file.WriteString("# Netscape HTTP Cookie File\n# https://curl.haxx.se/rfc/cookie_spec.html\n# This is a generated file! Do not edit.\n\n")
	if err != nil {
		return err
	}

	for _, cookie := range cookies {
		domain := cookie.Domain
		if !strings.HasPrefix(domain, ".") && strings.Count(domain, ".") > 1 {
			domain = "." + domain
		}

		secure := "FALSE"
		if cookie.Secure {
			secure = "TRUE"
		}

		expires := int64(0)
		if !cookie.Expires.IsZero() {
			expires = cookie.Expires.Unix()
		}

		_, err := fmt.Fprintf(file, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			domain, "FALSE", cookie.Path, secure, expires, cookie.Name, cookie.Value)
		if err != nil {
			return err
		}
	}
	return nil
}
