package web

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/JonMunkholm/tabdiff/internal/compare"
	"github.com/JonMunkholm/tabdiff/internal/core"
	"github.com/JonMunkholm/tabdiff/internal/logging"
)

var errNoReport = errors.New("comparison has no results to export")

func (s *Server) handleListComparisons(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", core.DefaultHistoryLimit)

	jobs, err := s.service.ListComparisons(r.Context(), limit)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, jobs)
}

func (s *Server) handleGetComparison(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	job, err := s.service.GetComparison(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, job)
}

// handleExportComparison downloads a stored report as csv (default) or xlsx.
func (s *Server) handleExportComparison(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		respondError(w, r, fmt.Errorf("%w: unknown export format %q", errInvalidBody, format), http.StatusBadRequest)
		return
	}

	job, err := s.service.GetComparison(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if job.Report == nil {
		respondError(w, r, fmt.Errorf("%w: status %s", errNoReport, job.Status), http.StatusConflict)
		return
	}

	s.writeReport(w, r, job.Report, fmt.Sprintf("comparison_%s", job.ID), format)
}

// handleExportReport turns a posted report into a CSV download, for clients
// that hold results without a stored job.
func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	var report compare.Report
	if err := decodeJSON(w, r, &report); err != nil {
		respondServiceError(w, r, err)
		return
	}

	name := fmt.Sprintf("comparison_results_%s", time.Now().Format("20060102_150405"))
	s.writeReport(w, r, &report, name, "csv")
}

func (s *Server) writeReport(w http.ResponseWriter, r *http.Request, report *compare.Report, name, format string) {
	filename := name + "." + format

	switch format {
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	default:
		w.Header().Set("Content-Type", "text/csv")
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	var err error
	if format == "xlsx" {
		err = compare.WriteXLSX(w, report)
	} else {
		err = compare.WriteCSV(w, report)
	}
	if err != nil {
		// Headers are sent; all we can do is log.
		logging.FromContext(r.Context()).Error("export failed", "file", filename, "error", err)
	}
}
