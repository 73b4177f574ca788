package router

import (
	"net/http"
)

// Chain is a handler plus the middlewares that wrap it and the observers
// that run after it.
type Chain struct {
	handler     http.Handler
	middlewares []func(http.Handler) http.Handler
	observers   []http.Handler
}

// Chains maps route patterns to their chains.
type Chains map[string]*Chain

func NewChain(h http.Handler) *Chain {
	if h == nil {
		panic("chain handler cannot be nil")
	}
	return &Chain{handler: h}
}

// WithMiddleware adds middlewares in reading order: in
//
//	.WithMiddleware(mw1, mw2)
//
// mw1 is the outermost and sees the request first. Later calls add
// middlewares closer to the handler.
func (c *Chain) WithMiddleware(middlewares ...func(http.Handler) http.Handler) *Chain {
	c.middlewares = append(c.middlewares, middlewares...)
	return c
}

// WithObservers adds handlers run after the chain returned, also when a
// middleware stopped the request early. Observers must not write the body.
func (c *Chain) WithObservers(observers ...http.Handler) *Chain {
	c.observers = append(c.observers, observers...)
	return c
}

// Handler builds the final handler.
func (c *Chain) Handler() http.Handler {
	h := c.handler
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		h = c.middlewares[i](h)
	}

	if len(c.observers) == 0 {
		return h
	}

	observers := c.observers
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		h.ServeHTTP(w, req)
		for _, obs := range observers {
			obs.ServeHTTP(w, req)
		}
	})
}
