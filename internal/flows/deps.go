package flows

import "context"

// AuditFunc emits one audit event for the flow's scope.
type AuditFunc func(ctx context.Context, event string, success bool, principalID string, err error, metadata func() map[string]string)

// WarnFunc logs a non-fatal failure.
type WarnFunc func(ctx context.Context, err error, msg string)

func noopAudit(context.Context, string, bool, string, error, func() map[string]string) {}

func noopWarn(context.Context, error, string) {}

func noopMetric(int) {}
