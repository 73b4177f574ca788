package core

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
)

// maxBodySize bounds every JSON request body.
const maxBodySize = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	return json.NewDecoder(r.Body).Decode(v)
}

// clientIP returns the connection address, or the first address of the
// configured proxy header when set.
func (a *App) clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}

	if header := a.Config().Server.ClientIpProxyHeader; header != "" {
		if forwarded := r.Header.Get(header); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			ip = strings.TrimSpace(first)
		}
	}
	return ip
}
