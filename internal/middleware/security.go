package middleware

import (
	"net/http"

	"github.com/unrolled/secure"
)

// SecurityHeaders sets the usual hardening headers on every response. HTTPS
// redirects and HSTS are only enforced in production, behind a
// TLS-terminating proxy.
func SecurityHeaders(production bool) func(http.Handler) http.Handler {
	options := secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		SSLRedirect:           production,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         !production,
	}
	if production {
		options.STSSeconds = 31536000
		options.STSIncludeSubdomains = true
	}

	// secure writes its own response when it rejects or redirects a request.
	return secure.New(options).Handler
}
