// Package httpapi exposes the bundling service over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/nonamekit/assetbundle"
)

// ActionDownloadAssets is the only action the handler accepts.
const ActionDownloadAssets = "downloadAssets"

// ErrUnsupportedAction is returned for any action other than
// [ActionDownloadAssets].
var ErrUnsupportedAction = errors.New("unsupported action")

// payload is the inbound request body.
type payload struct {
	Action   string   `json:"action"`
	Owner    string   `json:"owner"`
	Repo     string   `json:"repo"`
	Version  string   `json:"version"`
	FileList []string `json:"fileList"`
}

// Handler serves bundle requests over HTTP.
type Handler struct {
	svc    *assetbundle.Service
	logger *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger for request handling.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler creates a Handler backed by svc.
func NewHandler(svc *assetbundle.Service, opts ...Option) *Handler {
	h := &Handler{svc: svc}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// log returns the logger, falling back to a discard logger if nil.
func (h *Handler) log() *slog.Logger {
	if h.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return h.logger
}

// ServeHTTP handles one bundle request.
//
// On success the response is the zip stream with the sanitized artifact
// name in the disposition header. A failure before the first body byte
// yields a plain-text error status; a failure after streaming began tears
// the connection down instead of sending a well-formed but truncated
// archive.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var p payload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, fmt.Sprintf("malformed request: %v", err), http.StatusBadRequest)
		return
	}
	if p.Action != ActionDownloadAssets {
		http.Error(w, fmt.Sprintf("%v: %q", ErrUnsupportedAction, p.Action), http.StatusBadRequest)
		return
	}

	sink := &trackingWriter{w: w}
	res, err := h.svc.Bundle(r.Context(), assetbundle.Request{
		Owner:   p.Owner,
		Repo:    p.Repo,
		Version: p.Version,
		Files:   p.FileList,
	}, func(res *assetbundle.Result) (io.Writer, error) {
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", "attachment; filename="+res.ArtifactName)
		return sink, nil
	})
	if err != nil {
		if sink.wrote {
			// The body is already a partial archive; a trailer would
			// make it look complete. Kill the connection instead.
			h.log().Error("bundle failed mid-stream", "error", err)
			panic(http.ErrAbortHandler)
		}
		h.log().Error("bundle failed", "error", err)
		w.Header().Del("Content-Type")
		w.Header().Del("Content-Disposition")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.log().Info("bundle delivered", "artifact", res.ArtifactName, "cached", res.FromCache)
}

// trackingWriter records whether any body byte has been written, which
// decides between an error status and an aborted connection on failure.
type trackingWriter struct {
	w     io.Writer
	wrote bool
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	if len(p) > 0 {
		t.wrote = true
	}
	return t.w.Write(p)
}
