package cli

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/livedot/pkg/document"
	"github.com/matzehuels/livedot/pkg/errors"
	"github.com/matzehuels/livedot/pkg/live"
	"github.com/matzehuels/livedot/pkg/observability"
)

// revisionHeader carries the session revision a response was served from.
const revisionHeader = "X-Livedot-Revision"

// maxValueBytes bounds PUT bodies.
const maxValueBytes = 64 << 10

// serveSession is the part of a live session the HTTP handlers use.
type serveSession interface {
	Snapshot() live.Snapshot
	Render(ctx context.Context, format string) ([]byte, error)
	Update(ctx context.Context, fn func(*document.Document) error) error
	Save(ctx context.Context) error
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		opts watchOpts
		addr string
	)

	cmd := &cobra.Command{
		Use:   "serve FILE",
		Short: "Serve a live preview and attribute API over HTTP",
		Long: `Serve the rendered preview of a DOT file over HTTP and keep it current
while the file changes.

Routes:
  GET    /preview                       last successful render
  GET    /render.{format}               render now in any format
  GET    /attrs/{component}             attribute table as JSON
  PUT    /attrs/{component}/{name}      set an attribute (body is the value)
  DELETE /attrs/{component}/{name}      unset an attribute
  PUT    /args/{name}                   set a render argument
  POST   /save                          write the document back to FILE
  GET    /debug/stats                   layout, render, watch and cache counters`,
		Example: `  livedot serve graph.dot
  curl -X PUT --data LR localhost:8080/attrs/graph/rankdir`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), args[0], firstNonEmpty(addr, c.Config.Serve.Addr), &opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, 127.0.0.1:8080)")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, path, addr string, opts *watchOpts) error {
	logger := loggerFromContext(ctx)

	counters := observability.NewCounters()
	observability.SetDocumentHooks(counters)
	observability.SetWatchHooks(counters)
	defer observability.Reset()

	eng, err := c.NewEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	s, err := c.openSession(ctx, eng, path, opts)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "listen %s", addr)
	}
	srv := &http.Server{
		Handler:           newServeHandler(s, counters),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.Run(gctx)
	})
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	printInfo(c.Out, "Serving %s on http://%s", path, ln.Addr())
	printNextStep(c.Out, "Open the preview", "http://"+ln.Addr().String()+"/preview")
	logger.Debug("serving", "addr", ln.Addr().String())

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// =============================================================================
// Handlers
// =============================================================================

type serveHandler struct {
	session  serveSession
	counters *observability.Counters
}

func newServeHandler(s serveSession, counters *observability.Counters) http.Handler {
	h := &serveHandler{session: s, counters: counters}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/preview", h.preview)
	r.Get("/render.{format}", h.render)
	r.Route("/attrs/{component}", func(r chi.Router) {
		r.Get("/", h.listAttrs)
		r.Put("/{name}", h.setAttr)
		r.Delete("/{name}", h.unsetAttr)
	})
	r.Put("/args/{name}", h.setArg)
	r.Post("/save", h.save)
	r.Get("/debug/stats", h.stats)

	return r
}

func (h *serveHandler) preview(w http.ResponseWriter, r *http.Request) {
	snap := h.session.Snapshot()
	h.setRevision(w)
	if snap.Output == nil {
		if snap.Err != nil {
			writeError(w, snap.Err)
			return
		}
		http.Error(w, "no render yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", contentType(snap.Format))
	_, _ = w.Write(snap.Output)
}

func (h *serveHandler) render(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	if err := errors.ValidateFormat(format); err != nil {
		writeError(w, err)
		return
	}
	out, err := h.session.Render(r.Context(), format)
	h.setRevision(w)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType(format))
	_, _ = w.Write(out)
}

func (h *serveHandler) listAttrs(w http.ResponseWriter, r *http.Request) {
	comp, err := parseComponent(chi.URLParam(r, "component"))
	if err != nil {
		writeError(w, err)
		return
	}
	var entries []document.Entry
	err = h.session.Update(r.Context(), func(d *document.Document) error {
		entries = d.Table(comp).Entries()
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	h.setRevision(w)
	writeJSON(w, http.StatusOK, entries)
}

func (h *serveHandler) setAttr(w http.ResponseWriter, r *http.Request) {
	comp, err := parseComponent(chi.URLParam(r, "component"))
	if err != nil {
		writeError(w, err)
		return
	}
	value, err := readValue(r)
	if err != nil {
		writeError(w, err)
		return
	}
	name := chi.URLParam(r, "name")
	err = h.session.Update(r.Context(), func(d *document.Document) error {
		return d.Table(comp).Set(name, value)
	})
	h.finishMutation(w, err)
}

func (h *serveHandler) unsetAttr(w http.ResponseWriter, r *http.Request) {
	comp, err := parseComponent(chi.URLParam(r, "component"))
	if err != nil {
		writeError(w, err)
		return
	}
	name := chi.URLParam(r, "name")
	var removed bool
	err = h.session.Update(r.Context(), func(d *document.Document) error {
		var err error
		removed, err = d.Table(comp).Remove(name)
		return err
	})
	if err == nil && !removed {
		err = errors.New(errors.ErrCodeAttributeNotFound, "%s attribute %q is not declared", comp, name)
	}
	h.finishMutation(w, err)
}

func (h *serveHandler) setArg(w http.ResponseWriter, r *http.Request) {
	value, err := readValue(r)
	if err != nil {
		writeError(w, err)
		return
	}
	name := chi.URLParam(r, "name")
	err = h.session.Update(r.Context(), func(d *document.Document) error {
		return d.SetRenderArgument(name, value)
	})
	h.finishMutation(w, err)
}

func (h *serveHandler) save(w http.ResponseWriter, r *http.Request) {
	h.finishMutation(w, h.session.Save(r.Context()))
}

func (h *serveHandler) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.counters.Snapshot())
}

// finishMutation reports the outcome of an Update. The preview has already
// been refreshed when Update returns, so the header carries the new revision.
func (h *serveHandler) finishMutation(w http.ResponseWriter, err error) {
	h.setRevision(w)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *serveHandler) setRevision(w http.ResponseWriter) {
	w.Header().Set(revisionHeader, strconv.FormatUint(h.session.Snapshot().Revision, 10))
}

// =============================================================================
// Helpers
// =============================================================================

func readValue(r *http.Request) (string, error) {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxValueBytes+1))
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeIO, err, "read body")
	}
	if len(b) > maxValueBytes {
		return "", errors.New(errors.ErrCodeInvalidInput, "value exceeds %d bytes", maxValueBytes)
	}
	return string(b), nil
}

// statusFor maps error codes to HTTP status codes.
func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidPath:
		return http.StatusBadRequest
	case errors.ErrCodeAttributeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeParse:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeFileLocked:
		return http.StatusConflict
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	case errors.ErrCodeDisposed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorBody{
		Code:    string(errors.GetCode(err)),
		Message: errors.UserMessage(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func contentType(format string) string {
	switch format {
	case "svg":
		return "image/svg+xml"
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "pdf":
		return "application/pdf"
	case "json":
		return "application/json"
	case "dot", "xdot", "gv", "canon", "plain":
		return "text/vnd.graphviz; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
