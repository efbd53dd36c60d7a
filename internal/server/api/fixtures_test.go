package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ayusman/evergreen/internal/detector"
	"github.com/ayusman/evergreen/internal/gesture"
	"github.com/ayusman/evergreen/internal/store"
	"github.com/ayusman/evergreen/testdata"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

type fakeClassification struct {
	classifier *gesture.Classifier
	applied    []gesture.Thresholds
}

func newFakeClassification(t gesture.Thresholds) *fakeClassification {
	return &fakeClassification{classifier: gesture.NewClassifier(t)}
}

func (f *fakeClassification) Classifier() *gesture.Classifier { return f.classifier }

func (f *fakeClassification) SetThresholds(t gesture.Thresholds) {
	f.applied = append(f.applied, t)
	f.classifier = gesture.NewClassifier(t)
}

func createBody(t *testing.T, label string, hand detector.HandLandmarks) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"label": label,
		"hand": detector.ServiceHand{
			Points:     hand.Points[:],
			Handedness: hand.Handedness,
			Score:      hand.Score,
		},
		"note": "test",
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return bytes.NewBuffer(body)
}

func seedRecordings(t *testing.T, s *store.Store) int {
	t.Helper()

	recs, err := testdata.LoadRecordings()
	if err != nil {
		t.Fatalf("LoadRecordings() error = %v", err)
	}
	for _, rec := range recs {
		label, err := gesture.Parse(rec.Label)
		if err != nil {
			t.Fatalf("recording %s: %v", rec.Name, err)
		}
		if err := s.Fixtures().Create(&store.Fixture{Label: label, Hand: rec.Hand, Note: rec.Name}); err != nil {
			t.Fatalf("Create(%s) error = %v", rec.Name, err)
		}
	}
	return len(recs)
}

func TestFixtureHandler_Create(t *testing.T) {
	s := newTestStore(t)
	handler := NewFixtureHandler(s, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/fixtures", createBody(t, "gun", detector.GunLandmarks()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var created store.Fixture
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.ID == "" {
		t.Error("expected an ID in the response")
	}
	if created.Label != gesture.Gun {
		t.Errorf("label = %v, want GUN", created.Label)
	}

	stored, err := s.Fixtures().GetByID(created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.Hand.Points != detector.GunLandmarks().Points {
		t.Error("stored landmarks differ from the posted ones")
	}
}

func TestFixtureHandler_CreateValidation(t *testing.T) {
	handler := NewFixtureHandler(newTestStore(t), nil, nil)

	short := detector.ServiceHand{Points: make([]detector.Point3D, 5)}
	shortBody, _ := json.Marshal(map[string]any{"label": "OPEN", "hand": short})

	tests := []struct {
		name string
		body *bytes.Buffer
	}{
		{"invalid JSON", bytes.NewBufferString("{")},
		{"unknown label", createBody(t, "wave", detector.OpenPalmLandmarks())},
		{"too few points", bytes.NewBuffer(shortBody)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/fixtures", tt.body)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestFixtureHandler_ListGetDelete(t *testing.T) {
	s := newTestStore(t)
	total := seedRecordings(t, s)
	handler := NewFixtureHandler(s, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/fixtures", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var listed listFixturesResponse
	if err := json.NewDecoder(rec.Body).Decode(&listed); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(listed.Fixtures) != total {
		t.Fatalf("listed %d fixtures, want %d", len(listed.Fixtures), total)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/fixtures?label=fist", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	listed = listFixturesResponse{}
	json.NewDecoder(rec.Body).Decode(&listed)
	for _, f := range listed.Fixtures {
		if f.Label != gesture.Fist {
			t.Errorf("label filter returned a %v fixture", f.Label)
		}
	}
	if len(listed.Fixtures) == 0 {
		t.Error("expected fist fixtures")
	}

	id := listed.Fixtures[0].ID

	req = httptest.NewRequest(http.MethodGet, "/api/fixtures/"+id, nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("GET status = %d, want %d", rec.Code, http.StatusOK)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/fixtures/"+id, nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("DELETE status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		req = httptest.NewRequest(method, "/api/fixtures/"+id, nil)
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s after delete status = %d, want %d", method, rec.Code, http.StatusNotFound)
		}
	}
}

func TestFixtureHandler_ListEmpty(t *testing.T) {
	handler := NewFixtureHandler(newTestStore(t), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/fixtures", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if body := rec.Body.String(); body != "{\"fixtures\":[]}\n" {
		t.Errorf("body = %q, want an empty array", body)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/fixtures?label=wave", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown label status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestFixtureHandler_Report(t *testing.T) {
	s := newTestStore(t)
	handler := NewFixtureHandler(s, newFakeClassification(gesture.DefaultThresholds()), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/fixtures/report", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("report without fixtures status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	total := seedRecordings(t, s)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/fixtures/report", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var report struct {
		Total     int     `json:"total"`
		Correct   int     `json:"correct"`
		Accuracy  float64 `json:"accuracy"`
		Confusion [][]int `json:"confusion"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if report.Total != total {
		t.Errorf("total = %d, want %d", report.Total, total)
	}
	if report.Correct != total || report.Accuracy != 1 {
		t.Errorf("default thresholds should classify every recording: %d/%d", report.Correct, report.Total)
	}
	if len(report.Confusion) != len(gesture.All) {
		t.Errorf("confusion has %d rows, want %d", len(report.Confusion), len(gesture.All))
	}
}

func TestFixtureHandler_ReportNamesMisses(t *testing.T) {
	s := newTestStore(t)
	f := &store.Fixture{Label: gesture.Open, Hand: detector.FistLandmarks()}
	if err := s.Fixtures().Create(f); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	handler := NewFixtureHandler(s, nil, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/fixtures/report", nil))

	var report reportResponse
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(report.Misses) != 1 {
		t.Fatalf("misses = %v, want one", report.Misses)
	}
	if report.Misses[0].ID != f.ID || report.Misses[0].Want != gesture.Open || report.Misses[0].Got != gesture.Fist {
		t.Errorf("miss = %+v, want {%s OPEN FIST}", report.Misses[0], f.ID)
	}
}

func TestFixtureHandler_Calibrate(t *testing.T) {
	t.Run("applies and saves the best thresholds", func(t *testing.T) {
		s := newTestStore(t)
		seedRecordings(t, s)

		// A reach of 3 calls every finger curled, so only recalibration can
		// recover the open palms.
		live := newFakeClassification(gesture.Thresholds{FingerReach: 3, ThumbSpread: 0.15})
		handler := NewFixtureHandler(s, live, nil)

		body := bytes.NewBufferString(`{"reach":[3, 1.0], "spread":[0.15]}`)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/fixtures/calibrate", body))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
		}

		var resp struct {
			Thresholds gesture.Thresholds `json:"thresholds"`
			Accuracy   float64            `json:"accuracy"`
			Applied    bool               `json:"applied"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		want := gesture.Thresholds{FingerReach: 1.0, ThumbSpread: 0.15}
		if resp.Thresholds != want || !resp.Applied || resp.Accuracy != 1 {
			t.Errorf("response = %+v, want %+v applied at full accuracy", resp, want)
		}
		if len(live.applied) != 1 || live.applied[0] != want {
			t.Errorf("applied = %v, want [%v]", live.applied, want)
		}

		var saved gesture.Thresholds
		if err := s.Settings().Get(store.SettingThresholds, &saved); err != nil || saved != want {
			t.Errorf("saved thresholds = %+v, %v; want %+v", saved, err, want)
		}
	})

	t.Run("dry run leaves everything alone", func(t *testing.T) {
		s := newTestStore(t)
		seedRecordings(t, s)
		live := newFakeClassification(gesture.DefaultThresholds())
		handler := NewFixtureHandler(s, live, nil)

		body := bytes.NewBufferString(`{"apply": false}`)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/fixtures/calibrate", body))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if len(live.applied) != 0 {
			t.Error("dry run should not apply thresholds")
		}
		var saved gesture.Thresholds
		if err := s.Settings().Get(store.SettingThresholds, &saved); err != store.ErrNotFound {
			t.Errorf("dry run saved thresholds: %v", err)
		}
	})

	t.Run("empty body uses the default grid", func(t *testing.T) {
		s := newTestStore(t)
		seedRecordings(t, s)
		handler := NewFixtureHandler(s, newFakeClassification(gesture.DefaultThresholds()), nil)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/fixtures/calibrate", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
	})

	t.Run("without fixtures", func(t *testing.T) {
		handler := NewFixtureHandler(newTestStore(t), nil, nil)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/fixtures/calibrate", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})
}

func TestFixtureHandler_Methods(t *testing.T) {
	handler := NewFixtureHandler(newTestStore(t), nil, nil)

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodPut, "/api/fixtures", http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/fixtures/report", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/fixtures/calibrate", http.StatusMethodNotAllowed},
		{http.MethodPut, "/api/fixtures/abc", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/fixtures/abc/extra", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
