package server

import (
	"net/http"
	"strings"
)

// The API is consumed by browser clients on arbitrary origins and
// authenticates with bearer tokens rather than cookies, so the CORS policy is
// a wildcard: every response carries Access-Control-Allow-Origin: * and
// preflights answer 200 with an empty body.
type corsPolicy struct {
	// methods maps a route path to its Access-Control-Allow-Methods value.
	methods map[string]string
}

const corsAllowHeaders = "Content-Type, Authorization"

func newCORSPolicy() corsPolicy {
	return corsPolicy{methods: map[string]string{
		"/api/auth":    "POST, OPTIONS",
		"/api/content": "GET, POST, OPTIONS",
	}}
}

func (p corsPolicy) methodsFor(path string) string {
	if methods, ok := p.methods[path]; ok {
		return methods
	}
	return "GET, OPTIONS"
}

func corsMiddleware(policy corsPolicy, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")

		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", policy.methodsFor(strings.TrimSuffix(r.URL.Path, "/")))
			w.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
