package notification

//go:generate mockgen -source=sink.go -destination=mocks/mock_sink.go -package=mocks Sink

import "context"

// Sink records a message for a user. Callers treat it as best effort.
type Sink interface {
	Notify(ctx context.Context, msg Message) error
}
