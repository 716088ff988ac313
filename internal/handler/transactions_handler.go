package handler

import (
	"net/http"

	"github.com/boddenberg/finance-core/internal/analytics"
	"github.com/boddenberg/finance-core/internal/domain"
	"github.com/boddenberg/finance-core/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Transactions
// ============================================================

func listTransactionsHandler(svc *service.TransactionService, opts Options, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions")
		defer span.End()

		page, limit := parsePagination(r, opts.ListDefaultLimit, opts.ListMaxLimit)
		span.SetAttributes(attribute.Int("page", page), attribute.Int("limit", limit))

		res, err := svc.List(ctx, domain.ListParams{Page: page, Limit: limit})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		resp := domain.ListResponse[domain.Transaction]{
			Success: true,
			Source:  res.Source,
			Message: res.Message,
			Page:    page,
			Limit:   limit,
		}

		if res.Degraded() {
			// The local snapshot is the whole collection; page it here, newest first.
			all := analytics.SortByDate(res.Data, analytics.Desc)
			from := min((page-1)*limit, len(all))
			to := min(from+limit, len(all))
			resp.Data = all[from:to]
			resp.Total = len(all)
			resp.HasMore = to < len(all)
		} else {
			resp.Data = res.Data
			resp.Total = len(res.Data)
			resp.HasMore = len(res.Data) == limit
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func getTransactionHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("transaction.id", id))

		tx, err := svc.Get(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusOK, tx)
	}
}

func createTransactionHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions")
		defer span.End()

		var draft domain.TransactionDraft
		if err := decodeJSON(r, &draft); err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
			return
		}

		res, err := svc.Create(ctx, draft)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(
			attribute.String("transaction.id", res.Data.ID),
			attribute.String("source", string(res.Source)),
		)
		writeResult(w, http.StatusCreated, res)
	}
}

func updateTransactionHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/transactions/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("transaction.id", id))

		var patch domain.TransactionPatch
		if err := decodeJSON(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
			return
		}

		res, err := svc.Update(ctx, id, patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeResult(w, http.StatusOK, res)
	}
}

func deleteTransactionHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/transactions/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("transaction.id", id))

		res, err := svc.Delete(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.Envelope{
			Success: true,
			Data:    map[string]string{"id": res.Data},
			Source:  res.Source,
			Message: res.Message,
		})
	}
}

// syncTransactionHandler adds the stored transaction to the device calendar.
func syncTransactionHandler(txSvc *service.TransactionService, calSvc *service.CalendarService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions/{id}/calendar")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("transaction.id", id))

		tx, err := txSvc.Get(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		ev, err := calSvc.SyncTransaction(ctx, *tx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusCreated, ev)
	}
}

// ============================================================
// Categories
// ============================================================

func listCategoriesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		typ := domain.TransactionType(r.URL.Query().Get("type"))
		if typ != "" && !typ.Valid() {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error:    "validation failed",
				Code:     codeValidation,
				Messages: []string{"Type must be either income or expense"},
			})
			return
		}
		writeData(w, http.StatusOK, domain.CategoriesByType(typ))
	}
}
