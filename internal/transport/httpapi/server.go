package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"repairtrack/internal/bootstrap/logging"
	domainrepair "repairtrack/internal/domain/repair"
	"repairtrack/internal/errs"
	"repairtrack/internal/ports"
	usecaserepair "repairtrack/internal/usecase/repair"
)

// Server exposes the repair engine over HTTP. All writes go through the
// command gateway in the usecase layer; this layer only decodes, dispatches
// and maps errors to status codes.
type Server struct {
	repair   *usecaserepair.Service
	upgrader websocket.Upgrader
}

func NewServer(repair *usecaserepair.Service) *Server {
	return &Server{
		repair: repair,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", s.createJob)
		r.Route("/{jobID}", func(r chi.Router) {
			r.Get("/", s.getJob)
			r.Get("/timeline", s.getTimeline)
			r.Get("/stream", s.stream)
			r.Post("/status", s.changeStatus)
			r.Post("/notes", s.addNote)
			r.Post("/photos", s.addPhoto)
			r.Post("/quality-checks", s.submitQualityCheck)
			r.Post("/technicians", s.assignTechnician)
			r.Delete("/technicians/{technicianID}", s.unassignTechnician)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) writeError(r *http.Request, w http.ResponseWriter, err error) {
	var transition *domainrepair.TransitionRejectedError
	var conflict *domainrepair.ConflictError

	switch {
	case errors.Is(err, ports.ErrJobNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "job not found"})
	case errors.As(err, &transition):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":     "transition rejected",
			"current":   string(transition.Current),
			"attempted": string(transition.Attempted),
		})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":     "concurrent update, retry with refreshed state",
			"retryable": true,
		})
	case errors.Is(err, domainrepair.ErrJobHalted):
		writeJSON(w, http.StatusLocked, map[string]any{"error": err.Error()})
	case errors.Is(err, domainrepair.ErrInvalidCommand),
		errors.Is(err, domainrepair.ErrTechnicianNotAssigned),
		errors.Is(err, domainrepair.ErrQualityCheckRequired):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
	default:
		logging.Error(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.Any("err", errs.Loggable(err)),
		)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
	}
}

func decodeBody(r *http.Request, into any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		return errs.Wrap(domainrepair.ErrInvalidCommand, err.Error())
	}
	return nil
}
