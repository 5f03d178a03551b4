package http

import (
	"context"
	"net/http"
)

type contextKey string

const (
	tenantIDKey contextKey = "tenant_id"
	storeIDKey  contextKey = "store_id"
)

// Header names carrying the tenancy scope. Every business route requires
// both; queries are always scoped by the pair.
const (
	HeaderTenantID = "X-Tenant-ID"
	HeaderStoreID  = "X-Store-ID"
)

// TenantContext extracts the tenant and store identifiers from the request
// headers and stores them in the request context. Requests without both
// headers are rejected with 400.
func TenantContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID := r.Header.Get(HeaderTenantID)
		storeID := r.Header.Get(HeaderStoreID)

		if tenantID == "" {
			writeBadRequest(w, HeaderTenantID+" header is required")
			return
		}
		if storeID == "" {
			writeBadRequest(w, HeaderStoreID+" header is required")
			return
		}

		ctx := context.WithValue(r.Context(), tenantIDKey, tenantID)
		ctx = context.WithValue(ctx, storeIDKey, storeID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// tenantScope returns the tenant and store identifiers placed in the context
// by TenantContext.
func tenantScope(ctx context.Context) (tenantID, storeID string) {
	tenantID, _ = ctx.Value(tenantIDKey).(string)
	storeID, _ = ctx.Value(storeIDKey).(string)
	return tenantID, storeID
}
