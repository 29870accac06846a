// Package certcheck inspects the TLS certificate served at a URL so the
// health endpoint can report on upcoming expiry.
package certcheck

import (
	"crypto/tls"
	"net"
	"net/url"
	"strings"
	"time"
)

// Info summarizes the leaf certificate served for a host.
type Info struct {
	Host      string
	NotAfter  time.Time
	DaysLeft  int
	IsValid   bool
	CheckedAt time.Time
	Error     string
}

// Check dials the host named by baseURL and inspects its leaf certificate.
// Non-HTTPS URLs and dial failures produce an Info with IsValid=false and
// the error message set; callers treat the result as informational.
func Check(baseURL string) Info {
	info := Info{CheckedAt: time.Now().UTC()}

	u, err := url.Parse(baseURL)
	if err != nil {
		info.Error = "invalid url: " + err.Error()
		return info
	}
	if u.Scheme != "https" {
		info.Error = "not an https url"
		return info
	}

	host := u.Host
	if !strings.Contains(host, ":") {
		host = net.JoinHostPort(host, "443")
	}
	info.Host = host

	dialer := &net.Dialer{Timeout: 5 * time.Second}
	conn, err := tls.DialWithDialer(dialer, "tcp", host, nil)
	if err != nil {
		info.Error = err.Error()
		return info
	}
	defer conn.Close()

	certs := conn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		info.Error = "no peer certificates"
		return info
	}

	leaf := certs[0]
	info.NotAfter = leaf.NotAfter
	info.DaysLeft = int(time.Until(leaf.NotAfter).Hours() / 24)
	info.IsValid = time.Now().Before(leaf.NotAfter) && time.Now().After(leaf.NotBefore)
	return info
}
