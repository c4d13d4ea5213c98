package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/GiorgiUbiria/team_ledger/internal/logger"
	"github.com/GiorgiUbiria/team_ledger/internal/services"
	"go.uber.org/zap"
)

const defaultNotificationLimit = 20

func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	withIDs(w, r, []string{"teamID"}, func(userID uint64, ids []uint64) {
		report, err := h.svc.Reports.Summary(r.Context(), userID, ids[0])
		respond(w, r, http.StatusOK, report, err)
	})
}

func (h *Handler) ReportPDF(w http.ResponseWriter, r *http.Request) {
	withIDs(w, r, []string{"teamID"}, func(userID uint64, ids []uint64) {
		report, err := h.svc.Reports.Summary(r.Context(), userID, ids[0])
		if err != nil {
			writeErr(w, r, err)
			return
		}
		pdf, err := services.RenderReportPDF(report)
		if err != nil {
			writeErr(w, r, fmt.Errorf("render report: %w", err))
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="team-%d-report.pdf"`, ids[0]))
		w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
		if _, err := w.Write(pdf); err != nil {
			logger.Log.Warn("failed to write report", zap.Error(err))
		}
	})
}

func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit", defaultNotificationLimit)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	events, err := h.inbox.Recent(r.Context(), userID, int64(limit))
	respond(w, r, http.StatusOK, events, err)
}
