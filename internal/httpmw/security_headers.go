package httpmw

import (
	"net/http"
	"strings"
)

// CSPOptions widens the default same-origin policy for the hosts a
// builder page legitimately talks to.
type CSPOptions struct {
	// ImageHosts serve gallery and hero images (CDN or bucket origin).
	ImageHosts []string
	// ConnectHosts accept browser uploads through presigned URLs.
	ConnectHosts []string
	// FrameHosts may be embedded by video sections.
	FrameHosts []string
}

// DefaultFrameHosts are the video providers the video section embeds.
var DefaultFrameHosts = []string{"https://www.youtube-nocookie.com", "https://www.youtube.com", "https://player.vimeo.com"}

// ContentSecurityPolicy builds the policy string. Inline style attributes
// are allowed because theme variables are emitted on the root element.
func ContentSecurityPolicy(o CSPOptions) string {
	frames := o.FrameHosts
	if frames == nil {
		frames = DefaultFrameHosts
	}
	directives := []string{
		"default-src 'self'",
		"script-src 'self'",
		"style-src 'self' 'unsafe-inline'",
		srcList("img-src", append([]string{"'self'", "data:"}, o.ImageHosts...)),
		srcList("connect-src", append([]string{"'self'"}, o.ConnectHosts...)),
		srcList("frame-src", frames),
		"font-src 'self'",
		"base-uri 'self'",
		"form-action 'self'",
		"frame-ancestors 'none'",
		"object-src 'none'",
	}
	return strings.Join(directives, "; ")
}

func srcList(directive string, hosts []string) string {
	if len(hosts) == 0 {
		return directive + " 'none'"
	}
	return directive + " " + strings.Join(hosts, " ")
}

// SecurityHeaders adds the response hardening headers. Admin writes are
// authenticated with a header token rather than cookies, so no CSRF token
// is involved.
func SecurityHeaders(o CSPOptions) func(http.Handler) http.Handler {
	csp := ContentSecurityPolicy(o)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			h.Set("Content-Security-Policy", csp)
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "accelerometer=(), camera=(), geolocation=(), gyroscope=(), magnetometer=(), microphone=(), payment=(), usb=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
			h.Set("Cross-Origin-Opener-Policy", "same-origin")
			next.ServeHTTP(w, r)
		})
	}
}
