// Package credstore defines the shared credential slot and the change
// notifications that keep several contexts (processes, REPLs, tabs) of the
// same user in agreement.
//
// # Contract
//
//   - Read returns common.ErrCredentialAbsent when the slot is empty.
//   - Write overwrites unconditionally; last write wins.
//   - Clear is idempotent.
//   - A Synchronizer only reports mutations made by other contexts. The
//     writer's own Write/Clear never reach its own subscribers.
//
// Backends: Memory (this package), filestore, sqlitestore.
package credstore

import "context"

// Store is a single string slot under one well-known key.
type Store interface {
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Change is delivered when another context mutates the slot.
type Change struct {
	Key     string
	Token   string
	Present bool
}

// Synchronizer reports external mutations of the slot.
type Synchronizer interface {
	Subscribe(fn func(Change)) (Subscription, error)
}

// Subscription is released with Unsubscribe. After Unsubscribe returns no
// callback is running or will start.
type Subscription interface {
	Unsubscribe()
}

// Backend is a store that can also watch itself.
type Backend interface {
	Store
	Synchronizer
	Close() error
}
