package telemetry

import (
	"os"
	"time"

	"github.com/getsentry/sentry-go"
)

const flushTimeout = 2 * time.Second

// SentrySink forwards EventLog and EventStatus events tagged with an
// error field to Sentry. Disabled (a no-op) when SENTRY_DSN is unset.
type SentrySink struct {
	enabled bool
}

// NewSentrySink initializes the Sentry SDK for release version. If
// SENTRY_DSN is unset, the returned sink is a no-op and the returned
// cleanup function does nothing.
func NewSentrySink(version string) (*SentrySink, func()) {
	dsn := os.Getenv("SENTRY_DSN")
	if dsn == "" {
		return &SentrySink{enabled: false}, func() {}
	}

	env := os.Getenv("SENTRY_ENVIRONMENT")
	if env == "" {
		env = "production"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Release:          "argus@" + version,
		Environment:      env,
		AttachStacktrace: true,
		SampleRate:       1.0,
	})
	if err != nil {
		return &SentrySink{enabled: false}, func() {}
	}

	return &SentrySink{enabled: true}, func() { sentry.Flush(flushTimeout) }
}

// Emit implements Sink. Only error-carrying log/status events are
// forwarded; progress/frame events would be noise in Sentry.
func (s *SentrySink) Emit(e Event) {
	if !s.enabled {
		return
	}
	if e.Type != EventLog && e.Type != EventStatus {
		return
	}
	errVal, ok := e.Fields["error"]
	if !ok {
		return
	}
	if err, ok := errVal.(error); ok {
		sentry.CaptureException(err)
		return
	}
	if msg, ok := errVal.(string); ok && msg != "" {
		sentry.CaptureMessage(msg)
	}
}
