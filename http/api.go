package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/aukilabs/askr/featureflag"
	"github.com/aukilabs/askr/models"
	"github.com/aukilabs/askr/spatial"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/segmentio/encoding/json"
)

// API serves the footprint index over JSON.
type API struct {
	// The store queries run against.
	Footprints *models.FootprintStore

	// The flags the server was started with.
	FeatureFlags featureflag.Flags
}

// Routes registers the API endpoints on mux.
func (a *API) Routes(mux *http.ServeMux) {
	mux.Handle("/footprints", HandleWithCORS(http.HandlerFunc(a.handleFootprints)))
	mux.Handle("/footprints/overlaps", HandleWithCORS(http.HandlerFunc(a.handleOverlaps)))
	mux.Handle("/footprints/stats", HandleWithCORS(http.HandlerFunc(a.handleStats)))

	a.FeatureFlags.IfNotSet(featureflag.FlagDisableDebugEndpoints, func() {
		mux.HandleFunc("/debug/tree", a.handleTreeDump)
		mux.HandleFunc("/debug/tree.wrl", a.handleTreeVRML)
	})
}

func (a *API) handleFootprints(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.addFootprint(w, r)

	case http.MethodGet:
		a.queryFootprints(w, r)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type footprintPayload struct {
	ID      string      `json:"id"`
	Corners [][]float64 `json:"corners"`
}

func (a *API) addFootprint(w http.ResponseWriter, r *http.Request) {
	var payload footprintPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("decoding footprint failed").
			WithType(models.ErrTypeInvalidFootprint).
			Wrap(err))
		return
	}

	corners := make([]spatial.Vector, len(payload.Corners))
	for i, c := range payload.Corners {
		corners[i] = spatial.Vector(c)
	}
	footprint, err := models.NewFootprint(payload.ID, corners)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := a.Footprints.Add(footprint); err != nil {
		status := http.StatusBadRequest
		if errors.IsType(err, models.ErrTypeDuplicateFootprint) {
			status = http.StatusConflict
		}
		writeError(w, status, err)
		return
	}

	writeJSON(w, http.StatusCreated, footprint)
}

func (a *API) queryFootprints(w http.ResponseWriter, r *http.Request) {
	at := r.URL.Query().Get("at")
	if at == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing at parameter"))
		return
	}

	point, err := parsePoint(at)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusOK, a.Footprints.FindAt(point))
}

type overlapPayload struct {
	A string `json:"a"`
	B string `json:"b"`
}

func (a *API) handleOverlaps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if a.FeatureFlags.Set(featureflag.FlagDisableOverlapScan) {
		writeError(w, http.StatusForbidden, errors.New("overlap scans are disabled"))
		return
	}

	pairs := a.Footprints.OverlapPairs()
	out := make([]overlapPayload, len(pairs))
	for i, p := range pairs {
		out[i] = overlapPayload{A: p.A.ID, B: p.B.ID}
	}
	writeJSON(w, http.StatusOK, out)
}

type statsPayload struct {
	Footprints int            `json:"footprints"`
	Nodes      int            `json:"nodes"`
	Depth      int            `json:"depth"`
	Grows      int            `json:"grows"`
	Min        spatial.Vector `json:"min"`
	Max        spatial.Vector `json:"max"`
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	stats := a.Footprints.Stats()
	writeJSON(w, http.StatusOK, statsPayload{
		Footprints: stats.Primitives,
		Nodes:      stats.Nodes,
		Depth:      stats.Depth,
		Grows:      stats.Grows,
		Min:        stats.Bounds.Min,
		Max:        stats.Bounds.Max,
	})
}

func (a *API) handleTreeDump(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := a.Footprints.DumpTree(w); err != nil {
		logs.Error(errors.New("dumping index failed").Wrap(err))
	}
}

func (a *API) handleTreeVRML(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "model/vrml")
	if err := a.Footprints.WriteVRML(w); err != nil {
		logs.Error(errors.New("writing vrml scene failed").Wrap(err))
	}
}

// parsePoint parses "x,y" into a two dimensional point.
func parsePoint(raw string) (spatial.Vector, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return nil, errors.New("point must be x,y").WithTag("point", raw)
	}

	point := make(spatial.Vector, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, errors.New("parsing point failed").
				WithTag("point", raw).
				Wrap(err)
		}
		point[i] = v
	}
	return point, nil
}

type errorPayload struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logs.Error(errors.New("encoding response failed").Wrap(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	logs.WithTag("status", status).Debug(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorPayload{
		Error: err.Error(),
		Type:  errors.Type(err),
	})
}
