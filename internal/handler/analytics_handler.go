package handler

import (
	"net/http"
	"strconv"

	"github.com/boddenberg/finance-core/internal/domain"
	"github.com/boddenberg/finance-core/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Analytics
// ============================================================

func summaryHandler(svc *service.AnalyticsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/analytics/summary")
		defer span.End()

		from, err := parseDateParam(r, "from")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		to, err := parseDateParam(r, "to")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		summary, err := svc.Summary(ctx, from, to)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.Envelope{Success: true, Data: summary, Source: summary.Source})
	}
}

func categoryBreakdownHandler(svc *service.AnalyticsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/analytics/categories")
		defer span.End()

		rows, source, err := svc.Categories(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.Envelope{Success: true, Data: rows, Source: source})
	}
}

func compoundInterestHandler(svc *service.AnalyticsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var msgs []string

		principal, err := strconv.ParseFloat(q.Get("principal"), 64)
		if err != nil {
			msgs = append(msgs, "principal must be a number")
		}
		rate, err := strconv.ParseFloat(q.Get("rate"), 64)
		if err != nil {
			msgs = append(msgs, "rate must be a number")
		}
		periods, err := strconv.Atoi(q.Get("periods"))
		if err != nil {
			msgs = append(msgs, "periods must be an integer")
		}
		if len(msgs) > 0 {
			handleServiceError(w, &domain.ErrValidation{Messages: msgs}, logger)
			return
		}

		projection, err := svc.CompoundInterest(principal, rate, periods)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusOK, projection)
	}
}
