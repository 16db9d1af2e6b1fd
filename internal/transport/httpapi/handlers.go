package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"repairtrack/internal/bootstrap/logging"
	domainrepair "repairtrack/internal/domain/repair"
	"repairtrack/internal/errs"
	usecaserepair "repairtrack/internal/usecase/repair"
)

type resultResponse struct {
	JobID     string   `json:"job_id"`
	Seq       uint64   `json:"seq"`
	Status    string   `json:"status"`
	Milestone string   `json:"milestone"`
	Progress  int      `json:"progress"`
	Rework    int      `json:"rework_count"`
	EventIDs  []string `json:"event_ids"`
}

func toResultResponse(res usecaserepair.Result) resultResponse {
	return resultResponse{
		JobID:     res.JobID,
		Seq:       res.Seq,
		Status:    string(res.Status),
		Milestone: res.Milestone,
		Progress:  res.Progress,
		Rework:    res.Rework,
		EventIDs:  res.EventIDs,
	}
}

type assignmentResponse struct {
	TechnicianID string `json:"technician_id"`
	IsPrimary    bool   `json:"is_primary"`
	AssignedAt   string `json:"assigned_at"`
	UnassignedAt string `json:"unassigned_at,omitempty"`
}

type jobResponse struct {
	JobID              string               `json:"job_id"`
	CustomerRef        string               `json:"customer_ref"`
	DeviceMeta         json.RawMessage      `json:"device_meta"`
	Status             string               `json:"status"`
	Milestone          string               `json:"milestone"`
	Progress           int                  `json:"progress"`
	ReworkCount        int                  `json:"rework_count"`
	EstimatedCostCents int64                `json:"estimated_cost_cents"`
	Seq                uint64               `json:"seq"`
	Assignments        []assignmentResponse `json:"assignments"`
	CreatedAt          string               `json:"created_at"`
	UpdatedAt          string               `json:"updated_at"`
}

func toJobResponse(agg domainrepair.Aggregate) jobResponse {
	assignments := make([]assignmentResponse, 0, len(agg.Assignments))
	for _, a := range agg.Assignments {
		assignments = append(assignments, assignmentResponse{
			TechnicianID: a.TechnicianID,
			IsPrimary:    a.IsPrimary,
			AssignedAt:   a.AssignedAt,
			UnassignedAt: a.UnassignedAt,
		})
	}
	return jobResponse{
		JobID:              agg.JobID,
		CustomerRef:        agg.CustomerRef,
		DeviceMeta:         agg.DeviceMeta,
		Status:             string(agg.Status),
		Milestone:          agg.Milestone,
		Progress:           agg.Progress,
		ReworkCount:        agg.ReworkCount,
		EstimatedCostCents: agg.EstimatedCostCents,
		Seq:                agg.Seq,
		Assignments:        assignments,
		CreatedAt:          agg.CreatedAt,
		UpdatedAt:          agg.UpdatedAt,
	}
}

type eventResponse struct {
	EventID   string          `json:"event_id"`
	JobID     string          `json:"job_id"`
	Seq       uint64          `json:"seq"`
	Kind      string          `json:"kind"`
	Actor     string          `json:"actor"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt string          `json:"created_at"`
}

func toEventResponse(ev domainrepair.Event) eventResponse {
	return eventResponse{
		EventID:   ev.EventID,
		JobID:     ev.JobID,
		Seq:       ev.Seq,
		Kind:      string(ev.Kind),
		Actor:     ev.Actor,
		Payload:   ev.Payload,
		CreatedAt: ev.CreatedAt,
	}
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CustomerRef        string          `json:"customer_ref"`
		DeviceMeta         json.RawMessage `json:"device_meta"`
		EstimatedCostCents int64           `json:"estimated_cost_cents"`
		Actor              string          `json:"actor"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(r, w, err)
		return
	}

	jobID, res, err := s.repair.CreateJob(r.Context(), usecaserepair.CreateJobInput{
		CustomerRef:        body.CustomerRef,
		DeviceMeta:         body.DeviceMeta,
		EstimatedCostCents: body.EstimatedCostCents,
		Actor:              body.Actor,
	})
	if err != nil {
		s.writeError(r, w, err)
		return
	}

	resp := toResultResponse(res)
	resp.JobID = jobID
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	agg, err := s.repair.GetJob(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		s.writeError(r, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(agg))
}

func (s *Server) getTimeline(w http.ResponseWriter, r *http.Request) {
	var fromSeq uint64
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.writeError(r, w, errs.Wrap(domainrepair.ErrInvalidCommand, "from must be a non-negative integer"))
			return
		}
		fromSeq = parsed
	}

	events, err := s.repair.GetTimeline(r.Context(), chi.URLParam(r, "jobID"), fromSeq)
	if err != nil {
		s.writeError(r, w, err)
		return
	}

	out := make([]eventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, toEventResponse(ev))
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out})
}

func (s *Server) changeStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Actor            string `json:"actor"`
		Target           string `json:"target"`
		Note             string `json:"note"`
		ProgressOverride *int   `json:"progress_override"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(r, w, err)
		return
	}

	res, err := s.repair.ChangeStatus(r.Context(), usecaserepair.ChangeStatusInput{
		JobID:            chi.URLParam(r, "jobID"),
		ActorID:          body.Actor,
		TargetStatus:     body.Target,
		Note:             body.Note,
		ProgressOverride: body.ProgressOverride,
	})
	if err != nil {
		s.writeError(r, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResultResponse(res))
}

func (s *Server) addNote(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Actor     string `json:"actor"`
		Text      string `json:"text"`
		IsPrivate bool   `json:"is_private"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(r, w, err)
		return
	}

	res, err := s.repair.AddNote(r.Context(), usecaserepair.AddNoteInput{
		JobID:     chi.URLParam(r, "jobID"),
		ActorID:   body.Actor,
		Text:      body.Text,
		IsPrivate: body.IsPrivate,
	})
	if err != nil {
		s.writeError(r, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResultResponse(res))
}

func (s *Server) addPhoto(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Actor    string `json:"actor"`
		URL      string `json:"url"`
		Category string `json:"category"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(r, w, err)
		return
	}

	res, err := s.repair.AddPhoto(r.Context(), usecaserepair.AddPhotoInput{
		JobID:    chi.URLParam(r, "jobID"),
		ActorID:  body.Actor,
		URL:      body.URL,
		Category: body.Category,
	})
	if err != nil {
		s.writeError(r, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResultResponse(res))
}

func (s *Server) submitQualityCheck(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Actor           string   `json:"actor"`
		Passed          bool     `json:"passed"`
		Score           float64  `json:"score"`
		Issues          []string `json:"issues"`
		Recommendations []string `json:"recommendations"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(r, w, err)
		return
	}

	res, err := s.repair.SubmitQualityCheck(r.Context(), usecaserepair.SubmitQualityCheckInput{
		JobID:           chi.URLParam(r, "jobID"),
		ActorID:         body.Actor,
		Passed:          body.Passed,
		Score:           body.Score,
		Issues:          body.Issues,
		Recommendations: body.Recommendations,
	})
	if err != nil {
		s.writeError(r, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResultResponse(res))
}

func (s *Server) assignTechnician(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Actor        string `json:"actor"`
		TechnicianID string `json:"technician_id"`
		IsPrimary    bool   `json:"is_primary"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(r, w, err)
		return
	}

	res, err := s.repair.AssignTechnician(r.Context(), usecaserepair.AssignTechnicianInput{
		JobID:        chi.URLParam(r, "jobID"),
		ActorID:      body.Actor,
		TechnicianID: body.TechnicianID,
		IsPrimary:    body.IsPrimary,
	})
	if err != nil {
		s.writeError(r, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResultResponse(res))
}

func (s *Server) unassignTechnician(w http.ResponseWriter, r *http.Request) {
	res, err := s.repair.UnassignTechnician(r.Context(), usecaserepair.UnassignTechnicianInput{
		JobID:        chi.URLParam(r, "jobID"),
		ActorID:      r.URL.Query().Get("actor"),
		TechnicianID: chi.URLParam(r, "technicianID"),
	})
	if err != nil {
		s.writeError(r, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResultResponse(res))
}

func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	sub, err := s.repair.Subscribe(r.Context(), jobID)
	if err != nil {
		s.writeError(r, w, err)
		return
	}
	defer sub.Close()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the response.
		logging.Warn(r.Context(), "websocket upgrade failed",
			slog.String("job_id", jobID),
			slog.Any("err", errs.Loggable(err)),
		)
		return
	}
	defer conn.Close()

	// Reader goroutine: we never expect client frames, but reading is the
	// only way to notice the peer going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			return
		case ev, ok := <-sub.C:
			if !ok {
				// Dropped for falling behind; client reconciles via the
				// timeline endpoint.
				return
			}
			if err := conn.WriteJSON(toEventResponse(ev)); err != nil {
				return
			}
		}
	}
}
