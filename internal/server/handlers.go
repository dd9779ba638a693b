package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/KaramelBytes/cohortdash/internal/aggregate"
	"github.com/KaramelBytes/cohortdash/internal/cohort"
	"github.com/KaramelBytes/cohortdash/internal/filter"
	"github.com/KaramelBytes/cohortdash/internal/preset"
	"github.com/KaramelBytes/cohortdash/internal/render"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

// reserved query parameters are never read as facets.
var reserved = map[string]bool{"offset": true, "limit": true, "format": true}

type facetOptions struct {
	Key     string   `json:"key"`
	Label   string   `json:"label"`
	Column  string   `json:"column"`
	Options []string `json:"options"`
}

type dashboardResponse struct {
	Dataset string            `json:"dataset"`
	Preset  string            `json:"preset,omitempty"`
	Filters map[string]string `json:"filters"`
	Summary aggregate.Summary `json:"summary"`
}

type recordsResponse struct {
	Dataset string            `json:"dataset"`
	Filters map[string]string `json:"filters"`
	render.Table
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) facets(c *gin.Context) {
	out := make([]facetOptions, len(filter.Facets))
	for i, f := range filter.Facets {
		out[i] = facetOptions{Key: f.Key(), Label: f.Label(), Column: f.Column(), Options: s.voc.Options(f)}
	}
	ambiguous := []string{}
	for _, f := range s.voc.Ambiguous() {
		ambiguous = append(ambiguous, f.Key())
	}
	c.JSON(http.StatusOK, gin.H{"dataset": s.ds.Name, "facets": out, "ambiguous": ambiguous})
}

func (s *Server) dashboard(c *gin.Context) {
	sel, err := s.selection(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboardResponse{
		Dataset: s.ds.Name,
		Filters: sel.Strings(),
		Summary: s.summarize(c, sel),
	})
}

func (s *Server) records(c *gin.Context) {
	sel, err := s.selection(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	offset, err := intParam(c, "offset", 0)
	if err != nil {
		s.fail(c, err)
		return
	}
	limit, err := intParam(c, "limit", defaultPageSize)
	if err != nil {
		s.fail(c, err)
		return
	}
	if limit < 1 || limit > maxPageSize {
		s.fail(c, badRequest{fmt.Errorf("limit must be between 1 and %d, got %d", maxPageSize, limit)})
		return
	}
	view := s.view(c, sel)

	// CSV is an export: the whole view, paging ignored.
	if c.Query("format") == "csv" {
		c.Header("Content-Disposition", `attachment; filename="records.csv"`)
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Status(http.StatusOK)
		if err := render.WriteCSV(c.Writer, view); err != nil {
			s.log.Error("csv export failed", "path", c.Request.URL.Path, "rows", view.Len(), "error", err)
		}
		return
	}
	c.JSON(http.StatusOK, recordsResponse{
		Dataset: s.ds.Name,
		Filters: sel.Strings(),
		Table:   render.TableRows(view, offset, limit),
	})
}

func (s *Server) chart(c *gin.Context) {
	sel, err := s.selection(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	sum := s.summarize(c, sel)
	var buf bytes.Buffer
	if err := render.Chart(&buf, c.Param("chart"), sum, s.opt.Charts); err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (s *Server) listPresets(c *gin.Context) {
	if s.opt.Presets == nil {
		c.JSON(http.StatusOK, gin.H{"presets": []*preset.Preset{}})
		return
	}
	list, err := s.opt.Presets.List()
	if err != nil {
		s.fail(c, err)
		return
	}
	if list == nil {
		list = []*preset.Preset{}
	}
	c.JSON(http.StatusOK, gin.H{"presets": list})
}

func (s *Server) presetDashboard(c *gin.Context) {
	name := c.Param("name")
	if s.opt.Presets == nil {
		s.fail(c, fmt.Errorf("%w: %s", preset.ErrNotFound, name))
		return
	}
	p, err := s.opt.Presets.Load(name)
	if err != nil {
		s.fail(c, err)
		return
	}
	sel, err := p.Selection()
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.voc.Validate(sel); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboardResponse{
		Dataset: s.ds.Name,
		Preset:  p.Name,
		Filters: sel.Strings(),
		Summary: s.summarize(c, sel),
	})
}

// selection reads facet filters from the query string and checks them
// against the dataset's vocabularies.
func (s *Server) selection(c *gin.Context) (filter.Selection, error) {
	in := map[string]string{}
	for k, vs := range c.Request.URL.Query() {
		if reserved[k] || len(vs) == 0 {
			continue
		}
		if len(vs) > 1 {
			return nil, fmt.Errorf("%w: %q", filter.ErrDuplicateFacet, k)
		}
		in[k] = vs[0]
	}
	sel, err := filter.ParseSelection(in)
	if err != nil {
		return nil, err
	}
	if err := s.voc.Validate(sel); err != nil {
		return nil, err
	}
	return sel, nil
}

func (s *Server) view(c *gin.Context, sel filter.Selection) cohort.View {
	v := filter.Apply(s.ds.All(), sel)
	if v.Len() == 0 {
		s.metrics.emptyViews.WithLabelValues(c.FullPath()).Inc()
	}
	return v
}

func (s *Server) summarize(c *gin.Context, sel filter.Selection) aggregate.Summary {
	start := time.Now()
	sum := aggregate.Summarize(s.view(c, sel), s.opt.Aggregate)
	s.metrics.passDuration.WithLabelValues(c.FullPath()).Observe(time.Since(start).Seconds())
	return sum
}

// badRequest marks errors caused by client input.
type badRequest struct{ err error }

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

func intParam(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, badRequest{fmt.Errorf("invalid %s %q", name, raw)}
	}
	return n, nil
}

// fail maps err to a status code and writes an error body.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var selErr *filter.SelectionError
	var br badRequest
	switch {
	case errors.Is(err, filter.ErrUnknownFacet), errors.Is(err, filter.ErrDuplicateFacet),
		errors.Is(err, preset.ErrInvalidName),
		errors.As(err, &selErr), errors.As(err, &br):
		status = http.StatusBadRequest
	case errors.Is(err, preset.ErrNotFound), errors.Is(err, render.ErrUnknownChart):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "path", c.Request.URL.Path, "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
