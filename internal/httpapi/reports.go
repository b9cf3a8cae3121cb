package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"restopos/backend/internal/domain"
	"restopos/backend/internal/report"
)

// reportRange reads either preset=today|month|year or from/to dates
// (YYYY-MM-DD, both inclusive) in the report zone. No parameters means today.
func (a *API) reportRange(r *http.Request) (domain.DateRange, error) {
	query := r.URL.Query()
	preset := strings.TrimSpace(query.Get("preset"))
	rawFrom := strings.TrimSpace(query.Get("from"))
	rawTo := strings.TrimSpace(query.Get("to"))

	if rawFrom == "" && rawTo == "" {
		if preset == "" {
			preset = string(report.PresetToday)
		}
		return a.service.ReportRange(report.Preset(preset))
	}
	if rawFrom == "" || rawTo == "" {
		return domain.DateRange{}, errors.New("from and to must be given together")
	}

	loc := a.service.Location()
	from, err := time.ParseInLocation("2006-01-02", rawFrom, loc)
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("invalid from date: %w", err)
	}
	to, err := time.ParseInLocation("2006-01-02", rawTo, loc)
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("invalid to date: %w", err)
	}
	return domain.DateRange{From: from, To: to.AddDate(0, 0, 1).Add(-time.Nanosecond)}, nil
}

func (a *API) handleSalesReport(w http.ResponseWriter, r *http.Request) {
	rng, err := a.reportRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	summary, err := a.service.SalesSummary(r.Context(), rng)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	name := "sales-" + rangeLabel(rng)
	switch format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))); format {
	case "", "json":
		writeJSON(w, http.StatusOK, map[string]any{
			"report":     summary,
			"peak_hours": summary.PeakHours(3),
		})
	case "csv":
		writeExport(w, name+".csv", "text/csv; charset=utf-8")(summary.CSV())
	case "html":
		writeExport(w, "", "text/html; charset=utf-8")(summary.HTML())
	case "xlsx":
		writeExport(w, name+".xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")(summary.XLSX())
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unsupported format %q", format))
	}
}

func (a *API) handleCancellationReport(w http.ResponseWriter, r *http.Request) {
	rng, err := a.reportRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cancellations, err := a.service.Cancellations(r.Context(), rng)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	switch format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))); format {
	case "", "json":
		writeJSON(w, http.StatusOK, map[string]any{"report": cancellations})
	case "csv":
		writeExport(w, "cancellations-"+rangeLabel(rng)+".csv", "text/csv; charset=utf-8")(cancellations.CSV())
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unsupported format %q", format))
	}
}

func rangeLabel(rng domain.DateRange) string {
	from := rng.From.Format("20060102")
	to := rng.To.Format("20060102")
	if from == to {
		return from
	}
	return from + "-" + to
}

// writeExport sends a rendered report. An empty fileName serves it inline.
func writeExport(w http.ResponseWriter, fileName string, contentType string) func([]byte, error) {
	return func(body []byte, err error) {
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", contentType)
		if fileName != "" {
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}
