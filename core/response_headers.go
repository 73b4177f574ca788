package core

import (
	"net/http"
)

var HeadersJson = map[string]string{
	"Content-Type": "application/json; charset=utf-8",

	// mitigate MIME-type sniffing attacks
	"X-Content-Type-Options": "nosniff",

	// no-cache and must-revalidate for caches that misread no-store
	"Cache-Control": "no-store, no-cache, must-revalidate",

	"X-Frame-Options": "DENY",

	// JSON is never an active document: no resources, no framing.
	"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
}

// headersPopupHtml is used by the OAuth2 popup pages. The CSP is completed
// per response with the script nonce, see popupCSP.
var headersPopupHtml = map[string]string{
	"Content-Type":           "text/html; charset=utf-8",
	"X-Content-Type-Options": "nosniff",
	"Cache-Control":          "no-store",
	"Referrer-Policy":        "no-referrer",
}

func popupCSP(nonce string) string {
	return "default-src 'none'; script-src 'nonce-" + nonce + "'; frame-ancestors 'none'"
}

// headersScript is used for the embedded opener script. It is not
// fingerprinted, so caches must revalidate.
var headersScript = map[string]string{
	"Content-Type":           "text/javascript; charset=utf-8",
	"X-Content-Type-Options": "nosniff",
	"Cache-Control":          "public, no-cache",
}

// setHeaders applies one or more sets of headers to the response writer.
// Headers from later maps will overwrite headers from earlier maps if keys conflict.
func setHeaders(w http.ResponseWriter, headers ...map[string]string) {
	for _, headerMap := range headers {
		for key, value := range headerMap {
			w.Header().Set(key, value)
		}
	}
}
