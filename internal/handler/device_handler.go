package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/boddenberg/finance-core/internal/domain"
	"github.com/boddenberg/finance-core/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// sseKeepAlive is the interval between comment frames on idle event streams.
const sseKeepAlive = 15 * time.Second

// ============================================================
// Battery
// ============================================================

func batteryInfoHandler(svc *service.BatteryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/device/battery")
		defer span.End()

		info, err := svc.GetInfo(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusOK, info)
	}
}

func batteryOptimizationHandler(svc *service.BatteryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/device/battery/optimization")
		defer span.End()

		requested, err := svc.RequestOptimizationDisable(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusOK, map[string]bool{"requested": requested})
	}
}

func startMonitoringHandler(svc *service.BatteryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// The monitor outlives the request.
		svc.StartMonitoring(context.WithoutCancel(r.Context()))
		writeData(w, http.StatusOK, map[string]bool{"monitoring": svc.Monitoring()})
	}
}

func stopMonitoringHandler(svc *service.BatteryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc.StopMonitoring()
		writeData(w, http.StatusOK, map[string]bool{"monitoring": svc.Monitoring()})
	}
}

// batteryEventsHandler streams battery state transitions as server-sent
// events named "batteryChanged". The current state is sent first.
func batteryEventsHandler(svc *service.BatteryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, codeInternal, "streaming unsupported")
			return
		}
		_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

		events, unsubscribe := svc.Subscribe()
		defer unsubscribe()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		if info, err := svc.GetInfo(r.Context()); err == nil {
			if err := writeEvent(w, "batteryChanged", info); err != nil {
				return
			}
		}
		flusher.Flush()

		keepAlive := time.NewTicker(sseKeepAlive)
		defer keepAlive.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case info, ok := <-events:
				if !ok {
					return
				}
				if err := writeEvent(w, "batteryChanged", info); err != nil {
					logger.Debug("battery stream closed", zap.Error(err))
					return
				}
			case <-keepAlive.C:
				if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
					return
				}
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload)
	return err
}

// ============================================================
// Calendar
// ============================================================

func calendarAccessHandler(svc *service.CalendarService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/calendar/access")
		defer span.End()

		granted, err := svc.RequestAccess(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusOK, map[string]bool{"granted": granted})
	}
}

func listEventsHandler(svc *service.CalendarService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/calendar/events")
		defer span.End()

		start, err := parseDateParam(r, "start")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		end, err := parseDateParam(r, "end")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if start.IsZero() || end.IsZero() {
			handleServiceError(w, &domain.ErrValidation{Messages: []string{"start and end are required"}}, logger)
			return
		}

		events, err := svc.ListEvents(ctx, start, end)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusOK, events)
	}
}

func createEventHandler(svc *service.CalendarService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/calendar/events")
		defer span.End()

		var req domain.CalendarEventRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
			return
		}

		ev, err := svc.CreateEvent(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusCreated, ev)
	}
}

func deleteEventHandler(svc *service.CalendarService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/calendar/events/{id}")
		defer span.End()

		deleted, err := svc.DeleteEvent(ctx, chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusOK, map[string]bool{"deleted": deleted})
	}
}
