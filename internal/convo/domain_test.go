package convo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "plain hostname", url: "https://shop.example.com/checkout?step=2", want: "shop.example.com"},
		{name: "hostname is case insensitive", url: "https://Shop.Example.COM/", want: "shop.example.com"},
		{name: "port ignored for normal origins", url: "https://shop.example.com:8443/cart", want: "shop.example.com"},
		{name: "localhost keys by host and path", url: "http://localhost:3000/app-a", want: "localhost_app-a"},
		{name: "localhost different path different key", url: "http://localhost:3000/app-b", want: "localhost_app-b"},
		{name: "loopback ip", url: "http://127.0.0.1:8080/demo", want: "127.0.0.1_demo"},
		{name: "dot local origin", url: "http://dev.local/site", want: "dev.local_site"},
		{name: "dot test origin", url: "http://myapp.test/", want: "myapp.test"},
		{name: "unparseable input sanitized", url: "not a url at all", want: "not_a_url_at_all"},
		{name: "empty input", url: "", want: "local"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, DomainKey(tt.url))
		})
	}
}

func TestDomainKeyIsolation(t *testing.T) {
	t.Parallel()

	assert.NotEqual(t, DomainKey("https://a.example.com/"), DomainKey("https://b.example.com/"))
	assert.NotEqual(t, DomainKey("http://localhost:3000/app-a"), DomainKey("http://localhost:3000/app-b"))
}

func TestSanitizeKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a_b.c-d", sanitizeKey("A/B.c-D"))
	assert.Equal(t, "local", sanitizeKey("///"))
	assert.Equal(t, "local", sanitizeKey("  "))
}
