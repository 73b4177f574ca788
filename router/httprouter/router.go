package httprouter

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/caasmo/notesapi/router"
	jshttprouter "github.com/julienschmidt/httprouter"
)

// Router implements router.Router on top of julienschmidt/httprouter.
// ServeMux patterns are translated: "GET /a/{id}" becomes GET "/a/:id".
type Router struct {
	rt *jshttprouter.Router
}

func New() router.Router {
	return &Router{rt: jshttprouter.New()}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.rt.ServeHTTP(w, req)
}

// Handle panics on malformed patterns, as ServeMux does.
func (r *Router) Handle(pattern string, handler http.Handler) {
	method, path, err := translate(pattern)
	if err != nil {
		panic(err)
	}
	r.rt.Handler(method, path, handler)
}

func (r *Router) HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	r.Handle(pattern, http.HandlerFunc(handler))
}

func (r *Router) Param(req *http.Request, key string) string {
	return jshttprouter.ParamsFromContext(req.Context()).ByName(key)
}

func (r *Router) Register(chains router.Chains) {
	for pattern, chain := range chains {
		r.Handle(pattern, chain.Handler())
	}
}

// translate splits "METHOD /path" and rewrites {name} segments. A pattern
// without method is registered for GET.
func translate(pattern string) (string, string, error) {
	method, path, ok := strings.Cut(pattern, " ")
	if !ok {
		method, path = http.MethodGet, pattern
	}
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, "/") {
		return "", "", fmt.Errorf("httprouter: invalid pattern %q", pattern)
	}

	segments := strings.Split(path, "/")
	for i, s := range segments {
		if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
			name := strings.TrimSuffix(s[1:len(s)-1], "...")
			if name == "" {
				return "", "", fmt.Errorf("httprouter: empty parameter in %q", pattern)
			}
			if strings.HasSuffix(s, "...}") {
				segments[i] = "*" + name
			} else {
				segments[i] = ":" + name
			}
		}
	}
	return method, strings.Join(segments, "/"), nil
}
