package render

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// checkProxyTimeout bounds the connectivity check of CheckProxy.
const checkProxyTimeout = 2 * time.Second

// maxRedirects is the redirect limit of clients built by NewProxyClient.
const maxRedirects = 10

// SOCKS5 greeting bytes.
const (
	socks5Version  = 0x05
	socks5AuthNone = 0x00
)

// ParseProxy parses a proxy address. Accepted forms are
// socks5://host:port, socks5h://host:port, http://host:port and
// https://host:port. A bare host:port is treated as SOCKS5.
func ParseProxy(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty address", ErrInvalidProxy)
	}
	if !strings.Contains(raw, "://") {
		raw = "socks5://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProxy, err)
	}
	switch u.Scheme {
	case "socks5", "socks5h", "http", "https":
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidProxy, u.Scheme)
	}
	if u.Path != "" && u.Path != "/" {
		return nil, fmt.Errorf("%w: unexpected path %q", ErrInvalidProxy, u.Path)
	}
	if !validHostPort(u.Host) {
		return nil, fmt.Errorf("%w: %q is not host:port", ErrInvalidProxy, u.Host)
	}
	return u, nil
}

func validHostPort(hostport string) bool {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// NewProxyClient returns an HTTP client whose requests go through
// proxyURL. A nil proxyURL yields a direct client.
func NewProxyClient(proxyURL *url.URL) (*http.Client, error) {
	transport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected default transport", ErrInvalidProxy)
	}
	transport = transport.Clone()
	transport.Proxy = nil

	if proxyURL != nil {
		switch proxyURL.Scheme {
		case "http", "https":
			transport.Proxy = http.ProxyURL(proxyURL)
		case "socks5", "socks5h":
			dialer, err := proxy.FromURL(proxyURL, proxy.Direct)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidProxy, err)
			}
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				transport.DialContext = cd.DialContext
			} else {
				transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
					return dialer.Dial(network, addr)
				}
			}
		default:
			return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidProxy, proxyURL.Scheme)
		}
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	return &http.Client{
		Transport: transport,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// CheckProxy verifies that the proxy accepts connections. For SOCKS5
// proxies without credentials it also performs the greeting and expects
// the no-auth method.
func CheckProxy(ctx context.Context, proxyURL *url.URL) error {
	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", proxyURL.Host)
	if err != nil {
		return fmt.Errorf("%w: proxy %s unreachable: %w", ErrEngineUnavailable, proxyURL.Host, err)
	}
	defer conn.Close()

	if proxyURL.Scheme != "socks5" && proxyURL.Scheme != "socks5h" || proxyURL.User != nil {
		return nil
	}

	if err := conn.SetDeadline(time.Now().Add(checkProxyTimeout)); err != nil {
		return fmt.Errorf("%w: proxy %s: %w", ErrEngineUnavailable, proxyURL.Host, err)
	}
	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return fmt.Errorf("%w: proxy %s: %w", ErrEngineUnavailable, proxyURL.Host, err)
	}
	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		return fmt.Errorf("%w: proxy %s is not socks5: %w", ErrEngineUnavailable, proxyURL.Host, err)
	}
	if resp[0] != socks5Version || resp[1] != socks5AuthNone {
		return fmt.Errorf("%w: proxy %s is not a no-auth socks5 proxy", ErrEngineUnavailable, proxyURL.Host)
	}
	return nil
}

// browserProxy returns the proxy server string understood by Chrome and
// playwright. Both resolve hostnames through a SOCKS5 proxy already.
func browserProxy(proxyURL *url.URL) string {
	u := *proxyURL
	if u.Scheme == "socks5h" {
		u.Scheme = "socks5"
	}
	u.Path = ""
	return u.String()
}
