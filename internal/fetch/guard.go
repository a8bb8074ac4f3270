package fetch

import (
	"fmt"
	"net"
	"net/http"
)

// maxRedirects bounds redirect chains when the host guard is active.
const maxRedirects = 10

var metadataIP = net.ParseIP("169.254.169.254")

// WithHostGuard rejects loopback and cloud metadata hosts, on the initial
// request and on every redirect. Front ends reachable by other clients
// enable it.
func WithHostGuard() Option {
	return func(f *HTTPFetcher) {
		f.guard = true
		f.client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects (max %d)", maxRedirects)
			}
			return checkBlockedHost(req.URL.Hostname())
		}
	}
}

// WithMaxBytes caps the response body size. Zero means unlimited.
func WithMaxBytes(n int64) Option {
	return func(f *HTTPFetcher) {
		f.maxBytes = n
	}
}

// checkBlockedHost rejects loopback and cloud metadata addresses.
func checkBlockedHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, lookupErr := net.LookupIP(host)
		if lookupErr != nil || len(ips) == 0 {
			return nil //nolint:nilerr // DNS failures surface from the client
		}
		ip = ips[0]
	}

	if ip.IsLoopback() {
		return fmt.Errorf("blocked host: loopback address %s", host)
	}
	if ip.Equal(metadataIP) {
		return fmt.Errorf("blocked host: cloud metadata address %s", host)
	}
	return nil
}
