package goSession

import "context"

// DefaultTenantID is used when the context carries no tenant.
const DefaultTenantID = "0"

// requestMeta is the caller information carried on a context. Each With*
// call stores a modified copy, so parent contexts are never changed.
type requestMeta struct {
	tenantID  string
	clientIP  string
	userAgent string
}

type requestMetaKey struct{}

func metaFrom(ctx context.Context) requestMeta {
	if ctx == nil {
		return requestMeta{}
	}
	m, _ := ctx.Value(requestMetaKey{}).(requestMeta)
	return m
}

func withMeta(ctx context.Context, update func(*requestMeta)) context.Context {
	m := metaFrom(ctx)
	update(&m)
	return context.WithValue(ctx, requestMetaKey{}, m)
}

// WithTenantID scopes session creation and per-user enumeration to a tenant.
// Without it [DefaultTenantID] is used.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return withMeta(ctx, func(m *requestMeta) { m.tenantID = tenantID })
}

// WithClientIP attaches the caller's IP address to ctx. It is recorded on
// audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return withMeta(ctx, func(m *requestMeta) { m.clientIP = ip })
}

// WithUserAgent attaches the HTTP User-Agent to ctx. It is recorded on the
// session_created audit event.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return withMeta(ctx, func(m *requestMeta) { m.userAgent = userAgent })
}

func tenantIDFromContext(ctx context.Context) string {
	if id := metaFrom(ctx).tenantID; id != "" {
		return id
	}
	return DefaultTenantID
}

func clientIPFromContext(ctx context.Context) string {
	return metaFrom(ctx).clientIP
}

func userAgentFromContext(ctx context.Context) string {
	return metaFrom(ctx).userAgent
}
