package handleAuth

import (
	"io"

	"github.com/MrEthical07/handleAuth/identity"
	internalaudit "github.com/MrEthical07/handleAuth/internal/audit"
	"github.com/rs/zerolog"
)

// AuthSession is returned by SignIn and Refresh: the public principal fields
// plus the two token handles. It marshals flat, matching the response body.
type AuthSession struct {
	identity.Principal
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AuthResult describes an admitted request.
type AuthResult struct {
	PrincipalID string
	TenantID    string
	Namespace   Namespace
}

// Scope returns the scope the result was admitted in.
func (r *AuthResult) Scope() Scope {
	return Scope{Role: r.Namespace.Role(), TenantID: r.TenantID}
}

type (
	// AuditEvent is one audit record.
	AuditEvent = internalaudit.Event
	// AuditSink receives audit events from the delivery goroutine.
	AuditSink = internalaudit.Sink
	// AuditSinkFunc adapts a function to AuditSink.
	AuditSinkFunc = internalaudit.SinkFunc
	// NoOpSink discards events.
	NoOpSink = internalaudit.NoOpSink
	// ChannelSink forwards events to a buffered channel.
	ChannelSink = internalaudit.ChannelSink
	// JSONWriterSink writes one JSON object per line.
	JSONWriterSink = internalaudit.JSONWriterSink
	// LoggerSink logs events through zerolog.
	LoggerSink = internalaudit.LoggerSink
)

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

func NewLoggerSink(logger zerolog.Logger) *LoggerSink {
	return internalaudit.NewLoggerSink(logger)
}
