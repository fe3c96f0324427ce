package domain

import "context"

// AuditMeta is request context recorded next to each event.
type AuditMeta struct {
	RequestID string `json:"request_id,omitempty"`
	Country   string `json:"country,omitempty"`
}

type auditMetaKey struct{}

// WithAuditMeta attaches audit metadata to ctx.
func WithAuditMeta(ctx context.Context, meta AuditMeta) context.Context {
	return context.WithValue(ctx, auditMetaKey{}, meta)
}

// AuditMetaFromContext returns the metadata stored by WithAuditMeta, if any.
func AuditMetaFromContext(ctx context.Context) AuditMeta {
	if v, ok := ctx.Value(auditMetaKey{}).(AuditMeta); ok {
		return v
	}
	return AuditMeta{}
}
