package handleAuth

import "context"

type ctxKey uint8

const clientIPKey ctxKey = iota

// WithClientIP records the caller's address on ctx. Sign-in uses it for the
// per-IP throttle and every audit event copies it.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(normalizeContext(ctx), clientIPKey, ip)
}

// ClientIPFromContext returns the address set by WithClientIP, or "".
func ClientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}

// normalizeContext lets Engine methods accept a nil context.
func normalizeContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
