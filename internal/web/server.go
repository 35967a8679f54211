// Package web serves the read-only status view and the pilot inputs (QNH,
// MacCready, manual wind) over HTTP.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"glidelink/internal/blackboard"
	"glidelink/internal/geo"
	"glidelink/internal/transport"
)

// Board is the part of the blackboard the web layer reads and drives.
type Board interface {
	Snapshot() blackboard.Snapshot
	SetQNH(qnh float64)
	SetMacCready(mc float64)
	SetManualWind(w geo.SpeedVector)
}

// Deps are the collaborators behind the handlers. Links and Devices may be nil.
type Deps struct {
	Board   Board
	Links   func() []transport.Stats
	Devices func() []string
	Logs    *LogBuffer
}

func Handler(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", d.handleStatus)
		r.Post("/qnh", d.handleQNH)
		r.Post("/maccready", d.handleMacCready)
		r.Post("/wind", d.handleWind)
		r.Get("/about", aboutHandler)
		if d.Logs != nil {
			r.Get("/logs", d.Logs.ServeHTTP)
		}
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/status", http.StatusFound)
	})
	return r
}

func (d Deps) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := NewStatusSnapshot(time.Now().UTC(), d.Board.Snapshot())
	if d.Links != nil {
		snap.Links = d.Links()
	}
	if d.Devices != nil {
		snap.Devices = d.Devices()
	}
	writeJSON(w, http.StatusOK, snap)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_, _ = w.Write(b)
	_, _ = w.Write([]byte("\n"))
}

func Serve(ctx context.Context, listenAddr string, d Deps) error {
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           Handler(d),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
