package http

import (
	"fmt"
	"net/http"

	"saldo/internal/log"
)

// withCORS sets the permissive CORS headers on every response and answers
// preflight requests for any path with 204.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recoverAsBadRequest turns a handler panic into a 400 JSON error so one bad
// request never takes the server down.
func recoverAsBadRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			err := fmt.Errorf("%v", rec)
			log.FromContext(r.Context()).Error("Recovered from handler panic",
				log.NewFields().WithError(err).ToSlice()...)
			writeError(w, http.StatusBadRequest, err.Error())
		}()
		next.ServeHTTP(w, r)
	})
}
