package handler

import (
	"errors"
	"net/http"

	"github.com/newthinker/moverscan/internal/api/response"
	"github.com/newthinker/moverscan/internal/core"
	"github.com/newthinker/moverscan/internal/scan"
)

// ReportSource exposes the latest scan.
type ReportSource interface {
	LatestReport() *scan.Report
	GetStats() map[string]any
}

// ReportHandler serves the most recent scan report.
type ReportHandler struct {
	source ReportSource
}

// NewReportHandler creates a new report handler.
func NewReportHandler(source ReportSource) *ReportHandler {
	return &ReportHandler{source: source}
}

var errNoReport = core.WrapError(core.ErrNoData, errors.New("no scan has completed yet"))

// Latest returns the latest report as JSON.
func (h *ReportHandler) Latest(w http.ResponseWriter, r *http.Request) {
	report := h.source.LatestReport()
	if report == nil {
		response.Error(w, http.StatusNotFound, errNoReport)
		return
	}
	response.JSON(w, http.StatusOK, report)
}

// LatestText returns the latest report in its text form.
func (h *ReportHandler) LatestText(w http.ResponseWriter, r *http.Request) {
	report := h.source.LatestReport()
	if report == nil {
		response.Error(w, http.StatusNotFound, errNoReport)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	report.WriteText(w)
}

// Stats returns the application statistics.
func (h *ReportHandler) Stats(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.source.GetStats())
}
