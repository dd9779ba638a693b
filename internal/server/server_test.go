package server

import (
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/cohortdash/internal/aggregate"
	"github.com/KaramelBytes/cohortdash/internal/cohort/cohorttest"
	"github.com/KaramelBytes/cohortdash/internal/filter"
	"github.com/KaramelBytes/cohortdash/internal/preset"
	"github.com/KaramelBytes/cohortdash/internal/render"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*Server, *preset.Store) {
	t.Helper()
	ds := cohorttest.Dataset(t,
		cohorttest.Treated("A", "PD", "0", "Dopaminergic", 3, 10),
		cohorttest.Treated("A", "PD", "12", "Dopaminergic", 4, 12),
		cohorttest.Treated("A", "PD", "24", "MAO-B", 6, 14),
		cohorttest.Treated("B", "Control", "0", "Dopaminergic", 1, 2),
		cohorttest.Row{Subject: "C", Diagnosis: "PD", Month: "6"},
	)
	store := preset.NewStore(t.TempDir())
	s := New(ds, Options{
		Charts:  render.ChartOptions{Width: 300, Height: 200, Seed: 1},
		Presets: store,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return s, store
}

func get(t *testing.T, router http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, target, nil)
	require.NoError(t, err)
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	w := get(t, s.Router(), "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestFacets(t *testing.T) {
	s, _ := newTestServer(t)
	w := get(t, s.Router(), "/v1/facets")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Facets    []facetOptions `json:"facets"`
		Ambiguous []string       `json:"ambiguous"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Facets, len(filter.Facets))
	assert.Equal(t, "sex", body.Facets[0].Key)
	month := body.Facets[filter.Month]
	assert.Equal(t, []string{"All", "0", "6", "12", "24"}, month.Options)
	assert.Empty(t, body.Ambiguous)
}

func TestDashboard(t *testing.T) {
	s, _ := newTestServer(t)
	w := get(t, s.Router(), "/v1/dashboard?diagnosis=PD&sex=All")
	require.Equal(t, http.StatusOK, w.Code)

	var body dashboardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"diagnosis": "PD"}, body.Filters)
	assert.Equal(t, 2, body.Summary.Subjects)
	assert.Equal(t, 4, body.Summary.Records)
	assert.Equal(t, 1, body.Summary.MissingMedication)
	assert.Len(t, body.Summary.DrugBins, len(aggregate.DrugBins))
}

func TestDashboardEmptyView(t *testing.T) {
	s, _ := newTestServer(t)
	w := get(t, s.Router(), "/v1/dashboard?diagnosis=Control&month=24")
	require.Equal(t, http.StatusOK, w.Code)

	var body dashboardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Zero(t, body.Summary.Records)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.emptyViews.WithLabelValues("/v1/dashboard")))
}

func TestDashboardRejectsBadFilters(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	w := get(t, router, "/v1/dashboard?colour=red")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown facet")

	w = get(t, router, "/v1/dashboard?sex=Male&Sex=Female")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "more than once")

	w = get(t, router, "/v1/dashboard?diagnosis=PD&diagnosis=Control")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(t, router, "/v1/dashboard?diagnosis=Prodromal")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "allowed: All, Control, PD")
}

func TestRecords(t *testing.T) {
	s, _ := newTestServer(t)
	w := get(t, s.Router(), "/v1/records?diagnosis=PD&offset=2&limit=2")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Columns []string          `json:"columns"`
		Rows    [][]*string       `json:"rows"`
		Total   int               `json:"total"`
		Offset  int               `json:"offset"`
		Filters map[string]string `json:"filters"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 4, body.Total)
	assert.Equal(t, 2, body.Offset)
	require.Len(t, body.Rows, 2)
	assert.Equal(t, "PATNO", body.Columns[0])
	assert.Equal(t, "A", *body.Rows[0][0])
	// C's sex is missing and encodes as null.
	assert.Equal(t, "C", *body.Rows[1][0])
	assert.Nil(t, body.Rows[1][1])

	for _, q := range []string{"limit=-3", "limit=0", "limit=1001", "offset=x"} {
		w = get(t, s.Router(), "/v1/records?"+q)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
	w = get(t, s.Router(), "/v1/records?limit=1000")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecordsCSV(t *testing.T) {
	s, _ := newTestServer(t)
	w := get(t, s.Router(), "/v1/records?diagnosis=Control&format=csv")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "B,Male,"))
}

func TestRecordsCSVExportsWholeView(t *testing.T) {
	rows := make([]cohorttest.Row, 250)
	for i := range rows {
		rows[i] = cohorttest.Treated(fmt.Sprintf("S%03d", i), "PD", "0", "Dopaminergic", 3, 10)
	}
	s := New(cohorttest.Dataset(t, rows...), Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})

	for _, q := range []string{"?format=csv", "?format=csv&limit=10&offset=5"} {
		w := get(t, s.Router(), "/v1/records"+q)
		require.Equal(t, http.StatusOK, w.Code, q)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
		lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
		assert.Len(t, lines, len(rows)+1, q)
		assert.True(t, strings.HasPrefix(lines[len(lines)-1], "S249,"), q)
	}
}

func TestCharts(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()
	for _, name := range render.ChartNames {
		for _, q := range []string{"", "?diagnosis=Control&month=24"} {
			w := get(t, router, "/v1/charts/"+name+q)
			require.Equal(t, http.StatusOK, w.Code, name+q)
			assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
			_, err := png.DecodeConfig(w.Body)
			assert.NoError(t, err, name+q)
		}
	}
	w := get(t, router, "/v1/charts/scatter")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPresets(t *testing.T) {
	s, store := newTestServer(t)
	router := s.Router()

	w := get(t, router, "/v1/presets")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"presets":[]}`, w.Body.String())

	require.NoError(t, store.Save(preset.New("pd", "", filter.Selection{filter.Diagnosis: "PD"})))
	require.NoError(t, store.Save(preset.New("stale", "", filter.Selection{filter.Diagnosis: "Prodromal"})))

	w = get(t, router, "/v1/presets/pd/dashboard")
	require.Equal(t, http.StatusOK, w.Code)
	var body dashboardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "pd", body.Preset)
	assert.Equal(t, 4, body.Summary.Records)

	assert.Equal(t, http.StatusBadRequest, get(t, router, "/v1/presets/stale/dashboard").Code)
	assert.Equal(t, http.StatusNotFound, get(t, router, "/v1/presets/missing/dashboard").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, router, "/v1/presets/.hidden/dashboard").Code)

	w = get(t, router, "/v1/presets")
	assert.Contains(t, w.Body.String(), `"name":"pd"`)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()
	get(t, router, "/v1/dashboard")
	w := get(t, router, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "cohortdash_dataset_records 5")
	assert.Contains(t, body, "cohortdash_dataset_subjects 3")
	assert.Contains(t, body, `cohortdash_http_requests_total{route="/v1/dashboard",status="200"} 1`)
	assert.Contains(t, body, "cohortdash_dashboard_pass_duration_seconds_count")
}

func TestRunShutsDownOnCancel(t *testing.T) {
	s, _ := newTestServer(t)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, addr) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestCORS(t *testing.T) {
	ds := cohorttest.Dataset(t, cohorttest.Treated("A", "PD", "0", "Dopaminergic", 3, 10))
	s := New(ds, Options{
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		AllowOrigins: []string{"http://dash.example"},
	})
	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, "/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://dash.example")
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://dash.example", w.Header().Get("Access-Control-Allow-Origin"))

	// Without origins configured no CORS headers are sent.
	plain, _ := newTestServer(t)
	w = httptest.NewRecorder()
	plain.Router().ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
