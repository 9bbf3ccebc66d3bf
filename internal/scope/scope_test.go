package scope

import "testing"

func TestRegistrableDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		want string
	}{
		{"www subdomain collapses", "https://www.tatacliq.com/mens-clothing", "tatacliq.com"},
		{"bare domain", "https://tatacliq.com/", "tatacliq.com"},
		{"deep subdomain", "https://a.b.shop.example.com/x", "example.com"},
		{"multi-part suffix", "https://www.example.co.uk/p/1", "example.co.uk"},
		{"uppercase host", "https://WWW.Westside.COM/products/a", "westside.com"},
		{"port is ignored", "http://shop.example.com:8080/x", "example.com"},
		{"ip literal", "http://127.0.0.1:4321/cat", "127.0.0.1"},
		{"localhost", "http://localhost/cat", "localhost"},
		{"relative url has no host", "/foo/p-123", ""},
		{"malformed url", "http://[::1", ""},
		{"empty", "", ""},
		{"public suffix only", "https://co.uk/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := RegistrableDomain(tt.url); got != tt.want {
				t.Errorf("RegistrableDomain(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestSiteKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want string
	}{
		{"https://www.tatacliq.com", "tatacliq"},
		{"https://www.nykaafashion.com/women/westernwear/c/3", "nykaafashion"},
		{"https://www.virgio.com", "virgio"},
		{"https://shop.example.co.uk/", "example"},
		{"http://127.0.0.1:8080/", "127.0.0.1"},
		{"not a url", ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()
			if got := SiteKey(tt.url); got != tt.want {
				t.Errorf("SiteKey(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestInScope(t *testing.T) {
	t.Parallel()

	t.Run("same registrable domain", func(t *testing.T) {
		t.Parallel()
		if !InScope("example.com", "https://www.example.com/foo/p-123") {
			t.Error("expected www link to be in scope")
		}
	})

	t.Run("different domain", func(t *testing.T) {
		t.Parallel()
		if InScope("example.com", "https://other.com/x") {
			t.Error("expected other.com to be out of scope")
		}
	})

	t.Run("suffix lookalike", func(t *testing.T) {
		t.Parallel()
		if InScope("example.com", "https://notexample.com/x") {
			t.Error("expected lookalike domain to be out of scope")
		}
	})

	t.Run("empty scope", func(t *testing.T) {
		t.Parallel()
		if InScope("", "https://example.com/") {
			t.Error("expected empty scope to reject everything")
		}
	})

	t.Run("malformed link", func(t *testing.T) {
		t.Parallel()
		if InScope("example.com", "http://[::1") {
			t.Error("expected malformed link to be out of scope")
		}
	})
}
