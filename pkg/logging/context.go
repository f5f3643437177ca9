package logging

import (
	"context"
)

// Log correlation fields travel in the context instead of any thread-local
// state; every *wCtx logger call picks them up.
const (
	TraceIDKey        = "trace_id"
	MessageIDKey      = "message_id"
	BusinessDomainKey = "business_domain"
	ServiceNameKey    = "service_name"
)

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

func WithMessageID(ctx context.Context, messageID string) context.Context {
	return context.WithValue(ctx, MessageIDKey, messageID)
}

func WithBusinessDomain(ctx context.Context, domainID string) context.Context {
	return context.WithValue(ctx, BusinessDomainKey, domainID)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return context.WithValue(ctx, ServiceNameKey, serviceName)
}

func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

func GetMessageID(ctx context.Context) string {
	if messageID, ok := ctx.Value(MessageIDKey).(string); ok {
		return messageID
	}
	return ""
}

func GetBusinessDomain(ctx context.Context) string {
	if domainID, ok := ctx.Value(BusinessDomainKey).(string); ok {
		return domainID
	}
	return ""
}

func GetServiceName(ctx context.Context) string {
	if serviceName, ok := ctx.Value(ServiceNameKey).(string); ok {
		return serviceName
	}
	return ""
}

func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 8)

	if traceID := GetTraceID(ctx); traceID != "" {
		fields = append(fields, "trace_id", traceID)
	}

	if messageID := GetMessageID(ctx); messageID != "" {
		fields = append(fields, "message_id", messageID)
	}

	if domainID := GetBusinessDomain(ctx); domainID != "" {
		fields = append(fields, "business_domain", domainID)
	}

	if serviceName := GetServiceName(ctx); serviceName != "" {
		fields = append(fields, "service_name", serviceName)
	}

	return fields
}
