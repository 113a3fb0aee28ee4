// Package logging is the structured-logging surface of SessionKeeper.
//
// Components take a Logger and pass the request or run context to every
// call. Attributes attached to a context with ContextWith (backend, pid)
// are added to every SlogLogger line logged with it.
package logging

import "context"

// Logger takes key–value pairs after the message:
//
//	log.Info(ctx, "session expired", "cause", err)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes args.
	With(args ...any) Logger
}
