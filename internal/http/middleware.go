package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/armangral/atta-chakki-tracker-app/internal/sales/domain"
	"github.com/google/uuid"
)

// OperatorMiddleware reads the operator identity resolved by the upstream
// auth layer. Requests without a valid operator id are rejected; handlers
// downstream can assume an operator is always present.
func OperatorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		operatorID, err := uuid.Parse(r.Header.Get("X-Operator-Id"))
		if err != nil {
			respondError(w, http.StatusUnauthorized, "unauthorized", "missing operator identity")
			return
		}

		ctx := context.WithValue(r.Context(), "operator_id", operatorID)
		ctx = context.WithValue(ctx, "operator_name", r.Header.Get("X-Operator-Name"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = fmt.Sprintf("req-%d", time.Now().UnixNano())
		}

		ctx := context.WithValue(r.Context(), "request_id", requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getOperatorFromContext(ctx context.Context) (domain.Operator, bool) {
	operatorID, ok := ctx.Value("operator_id").(uuid.UUID)
	if !ok {
		return domain.Operator{}, false
	}
	name, _ := ctx.Value("operator_name").(string)
	return domain.Operator{ID: operatorID, Name: name}, true
}

func getRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value("request_id").(string); ok {
		return requestID
	}
	return ""
}
