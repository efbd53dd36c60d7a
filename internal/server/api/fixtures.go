package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ayusman/evergreen/internal/detector"
	"github.com/ayusman/evergreen/internal/gesture"
	"github.com/ayusman/evergreen/internal/logging"
	"github.com/ayusman/evergreen/internal/store"
)

// Classification is the live classifier the fixture endpoints evaluate and
// recalibrate.
type Classification interface {
	Classifier() *gesture.Classifier
	SetThresholds(t gesture.Thresholds)
}

// FixtureHandler handles HTTP requests for landmark fixtures.
type FixtureHandler struct {
	store *store.Store
	live  Classification
	log   logging.Logger
}

// NewFixtureHandler creates a FixtureHandler. live may be nil, in which case
// reports use the default thresholds and calibration results are only saved.
func NewFixtureHandler(s *store.Store, live Classification, log logging.Logger) *FixtureHandler {
	return &FixtureHandler{store: s, live: live, log: logging.OrNop(log)}
}

// ServeHTTP routes:
//
//	GET    /api/fixtures[?label=GUN]
//	POST   /api/fixtures
//	GET    /api/fixtures/report
//	POST   /api/fixtures/calibrate
//	GET    /api/fixtures/{id}
//	DELETE /api/fixtures/{id}
func (h *FixtureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/fixtures")
	path = strings.TrimPrefix(path, "/")

	switch path {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	case "report":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.report(w, r)
		return
	case "calibrate":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.calibrate(w, r)
		return
	}

	if strings.Contains(path, "/") {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, path)
	case http.MethodDelete:
		h.delete(w, r, path)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type createFixtureRequest struct {
	Label string               `json:"label"`
	Hand  detector.ServiceHand `json:"hand"`
	Note  string               `json:"note"`
}

type listFixturesResponse struct {
	Fixtures []*store.Fixture `json:"fixtures"`
}

type missResponse struct {
	ID   string          `json:"id"`
	Want gesture.Gesture `json:"want"`
	Got  gesture.Gesture `json:"got"`
}

type reportResponse struct {
	gesture.Report
	Misses []missResponse `json:"misses"`
}

type calibrateRequest struct {
	Reach  []float64 `json:"reach"`
	Spread []float64 `json:"spread"`
	Apply  *bool     `json:"apply"`
}

type calibrateResponse struct {
	reportResponse
	Applied bool `json:"applied"`
}

func (h *FixtureHandler) classifier() *gesture.Classifier {
	if h.live == nil {
		return gesture.NewClassifier(gesture.DefaultThresholds())
	}
	return h.live.Classifier()
}

// list handles GET /api/fixtures.
func (h *FixtureHandler) list(w http.ResponseWriter, r *http.Request) {
	var (
		fixtures []*store.Fixture
		err      error
	)

	if label := r.URL.Query().Get("label"); label != "" {
		g, perr := gesture.Parse(label)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "Invalid label")
			return
		}
		fixtures, err = h.store.Fixtures().ListByLabel(g)
	} else {
		fixtures, err = h.store.Fixtures().List()
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list fixtures")
		return
	}

	if fixtures == nil {
		fixtures = []*store.Fixture{}
	}
	writeJSON(w, http.StatusOK, listFixturesResponse{Fixtures: fixtures})
}

// get handles GET /api/fixtures/{id}.
func (h *FixtureHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	f, err := h.store.Fixtures().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Fixture not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get fixture")
		return
	}

	writeJSON(w, http.StatusOK, f)
}

// create handles POST /api/fixtures.
func (h *FixtureHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createFixtureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	label, err := gesture.Parse(req.Label)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid label")
		return
	}
	if len(req.Hand.Points) < detector.NumLandmarks {
		writeError(w, http.StatusBadRequest, "A hand needs 21 points")
		return
	}

	f := &store.Fixture{
		Label: label,
		Hand:  req.Hand.Landmarks(),
		Note:  req.Note,
	}
	if err := h.store.Fixtures().Create(f); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create fixture")
		return
	}

	h.log.Debugf("Recorded %s fixture %s", f.Label, f.ID)
	writeJSON(w, http.StatusCreated, f)
}

// delete handles DELETE /api/fixtures/{id}.
func (h *FixtureHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Fixtures().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Fixture not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete fixture")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// loadFixtures returns the stored fixtures in classifier form alongside
// their IDs.
func (h *FixtureHandler) loadFixtures() ([]gesture.Fixture, []string, error) {
	stored, err := h.store.Fixtures().List()
	if err != nil {
		return nil, nil, err
	}

	fixtures := make([]gesture.Fixture, len(stored))
	ids := make([]string, len(stored))
	for i, f := range stored {
		fixtures[i] = gesture.Fixture{Label: f.Label, Hand: f.Hand}
		ids[i] = f.ID
	}
	return fixtures, ids, nil
}

func toReportResponse(rep gesture.Report, ids []string) reportResponse {
	resp := reportResponse{Report: rep, Misses: make([]missResponse, 0, len(rep.Misses))}
	for _, m := range rep.Misses {
		resp.Misses = append(resp.Misses, missResponse{ID: ids[m.Index], Want: m.Want, Got: m.Got})
	}
	return resp
}

// report handles GET /api/fixtures/report.
func (h *FixtureHandler) report(w http.ResponseWriter, r *http.Request) {
	fixtures, ids, err := h.loadFixtures()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load fixtures")
		return
	}

	rep, err := gesture.Evaluate(h.classifier(), fixtures)
	if err != nil {
		if errors.Is(err, gesture.ErrNoFixtures) {
			writeError(w, http.StatusNotFound, "No fixtures recorded")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toReportResponse(rep, ids))
}

// defaultGrid spans value*0.5 to value*1.5 in tenths.
func defaultGrid(value float64) []float64 {
	grid := make([]float64, 0, 11)
	for i := 5; i <= 15; i++ {
		grid = append(grid, value*float64(i)/10)
	}
	return grid
}

// calibrate handles POST /api/fixtures/calibrate. An empty body searches a
// grid around the current thresholds and applies the winner.
func (h *FixtureHandler) calibrate(w http.ResponseWriter, r *http.Request) {
	var req calibrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	fixtures, ids, err := h.loadFixtures()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load fixtures")
		return
	}

	base := h.classifier().Thresholds()
	reach, spread := req.Reach, req.Spread
	if len(reach) == 0 {
		reach = defaultGrid(base.FingerReach)
	}
	if len(spread) == 0 {
		spread = defaultGrid(base.ThumbSpread)
	}

	rep, err := gesture.Calibrate(fixtures, base, reach, spread)
	if err != nil {
		if errors.Is(err, gesture.ErrNoFixtures) {
			writeError(w, http.StatusNotFound, "No fixtures recorded")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	apply := req.Apply == nil || *req.Apply
	if apply {
		if err := h.store.Settings().Set(store.SettingThresholds, rep.Thresholds); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save thresholds")
			return
		}
		if h.live != nil {
			h.live.SetThresholds(rep.Thresholds)
		}
		h.log.Infof("Calibrated thresholds applied: accuracy %.1f%% over %d fixtures", rep.Accuracy*100, rep.Total)
	}

	writeJSON(w, http.StatusOK, calibrateResponse{reportResponse: toReportResponse(rep, ids), Applied: apply})
}
