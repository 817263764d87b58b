package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tracechain/tracechain/internal/model"
)

// Recoverer turns a handler panic into the tier's 500 error envelope and
// marks the request span as failed so the panic shows up in the trace.
func Recoverer(service string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				ctx := r.Context()
				span := trace.SpanFromContext(ctx)
				span.RecordError(fmt.Errorf("panic: %v", rvr))
				span.SetStatus(codes.Error, "panic")

				logger.ErrorContext(ctx, "panic recovered",
					slog.String("request_id", GetRequestID(ctx)),
					slog.String("trace_id", GetTraceID(ctx)),
					slog.String("path", r.URL.Path),
					slog.Any("panic", rvr),
					slog.String("stack", string(debug.Stack())),
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(model.NewEnvelope(service).
					Set("error", "Internal server error").
					Set("code", "INTERNAL_ERROR").
					Stamp())
			}()

			next.ServeHTTP(w, r)
		})
	}
}
