package middlewares

import "github.com/gin-gonic/gin"

// The API only serves JSON, so nothing needs to be loadable by a browser.
const defaultCSP = "default-src 'none'; frame-ancestors 'none'"

const hstsValue = "max-age=63072000; includeSubDomains"

// SecurityHeaders sets response hardening headers. Auth responses carry
// tokens and profiles, so nothing is cacheable. hsts should only be on
// behind TLS.
func SecurityHeaders(hsts bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", defaultCSP)
		h.Set("Cross-Origin-Resource-Policy", "same-origin")
		h.Set("Permissions-Policy", "interest-cohort=()")
		h.Set("Cache-Control", "no-store")
		if hsts {
			h.Set("Strict-Transport-Security", hstsValue)
		}
		c.Next()
	}
}
