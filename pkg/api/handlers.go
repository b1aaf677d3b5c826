package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/workgraph/pkg/dag"
	"github.com/matzehuels/workgraph/pkg/engine"
	"github.com/matzehuels/workgraph/pkg/errors"
	"github.com/matzehuels/workgraph/pkg/ready"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeCycleDetected:
		return http.StatusConflict
	case errors.ErrCodeNotAnEpic, errors.ErrCodeInvalidInput,
		errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidKind:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	body := ErrorBody{Code: errors.GetCode(err), Message: errors.UserMessage(err)}
	if body.Code == "" {
		body.Code = errors.ErrCodeInternal
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "id", RequestID(r.Context()), "path", r.URL.Path, "error", err)
		body.Message = "internal error"
	}
	if cerr, ok := errors.AsCycle(err); ok {
		body.Message = cerr.Error()
	}
	writeJSON(w, status, body)
}

// ReadyResponse is the body of GET /v1/ready.
type ReadyResponse struct {
	Count int         `json:"count"`
	Items []*dag.Item `json:"items"`
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	f, err := s.readyFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	items, err := s.engine.ReadyWork(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []*dag.Item{}
	}
	writeJSON(w, http.StatusOK, ReadyResponse{Count: len(items), Items: items})
}

func (s *Server) readyFilter(r *http.Request) (ready.Filter, error) {
	q := r.URL.Query()
	f := s.defaults
	f.Assignee = q.Get("assignee")
	f.Unassigned = truthy(q.Get("unassigned"))
	f.Labels = q["label"]
	f.LabelsAny = q["label_any"]
	f.Type = dag.IssueType(q.Get("type"))
	f.IncludeDeferred = truthy(q.Get("include_deferred"))
	f.IncludeEphemeral = truthy(q.Get("include_ephemeral"))

	if v := q.Get("priority"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return f, errors.New(errors.ErrCodeInvalidInput, "priority must be an integer, got %q", v)
		}
		if err := errors.ValidatePriority(p); err != nil {
			return f, err
		}
		f.Priority = &p
	}
	if v := q.Get("sort"); v != "" {
		p, err := ready.ParseSortPolicy(v)
		if err != nil {
			return f, err
		}
		f.Sort = p
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, errors.New(errors.ErrCodeInvalidInput, "limit must be a non-negative integer, got %q", v)
		}
		f.Limit = n
	}
	return f, nil
}

func truthy(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func (s *Server) handleBlocked(w http.ResponseWriter, r *http.Request) {
	out, err := s.engine.Blocked(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if out == nil {
		out = []ready.BlockedItem{}
	}
	writeJSON(w, http.StatusOK, out)
}

// ItemResponse is the body of GET /v1/items/{id}.
type ItemResponse struct {
	Item  *dag.Item     `json:"item"`
	Edges []dag.EdgeRef `json:"edges"`
}

func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	it, err := s.engine.Item(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	refs, err := s.engine.Dependencies(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if refs == nil {
		refs = []dag.EdgeRef{}
	}
	writeJSON(w, http.StatusOK, ItemResponse{Item: it, Edges: refs})
}

// DepRequest is the body of POST /v1/deps.
type DepRequest struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Kind      string `json:"kind,omitempty"`
	CreatedBy string `json:"created_by,omitempty"`
}

func (s *Server) handleAddDep(w http.ResponseWriter, r *http.Request) {
	var req DepRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode request body"))
		return
	}
	e := dag.Edge{From: req.From, To: req.To, Kind: dag.ParseKind(req.Kind), CreatedBy: req.CreatedBy}
	if err := s.engine.AddDependency(r.Context(), e); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleRemoveDep(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.RemoveDependency(r.Context(), chi.URLParam(r, "from"), chi.URLParam(r, "to")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CyclesResponse is the body of GET /v1/cycles.
type CyclesResponse struct {
	Count  int        `json:"count"`
	Cycles [][]string `json:"cycles"`
}

func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	cycles, err := s.engine.DetectCycles(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if cycles == nil {
		cycles = [][]string{}
	}
	writeJSON(w, http.StatusOK, CyclesResponse{Count: len(cycles), Cycles: cycles})
}

func (s *Server) handleSwarm(w http.ResponseWriter, r *http.Request) {
	a, err := s.engine.SwarmValidate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleSwarmStatus(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.SwarmStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

var contentTypes = map[engine.Format]string{
	engine.FormatText: "text/plain; charset=utf-8",
	engine.FormatDOT:  "text/vnd.graphviz; charset=utf-8",
	engine.FormatJSON: "application/json",
	engine.FormatSVG:  "image/svg+xml",
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = string(engine.FormatJSON)
	}
	f, err := engine.ParseFormat(format)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.engine.Graph(r.Context(), engine.GraphRequest{
		Root:     q.Get("root"),
		All:      truthy(q.Get("all")),
		Format:   f,
		Detailed: truthy(q.Get("detailed")),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[res.Format])
	if res.CacheHit {
		w.Header().Set("X-Cache", "hit")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)
}
