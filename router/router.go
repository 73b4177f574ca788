// Package router defines the routing contract used by core and the
// middleware Chain registered against it. Patterns follow the net/http
// ServeMux syntax: "METHOD /path/{param}".
package router

import "net/http"

type Router interface {
	Handle(pattern string, handler http.Handler)
	HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request))
	ServeHTTP(w http.ResponseWriter, r *http.Request)
	// Param returns the value of the named path parameter of req.
	Param(req *http.Request, key string) string
	// Register adds every chain under its pattern.
	Register(chains Chains)
}
