// Package common contains shared constants and sentinel errors used across
// SessionKeeper components.
package common

// DefaultCredentialKey is the well-known store key that holds the bearer
// token shared by every context of the same user.
const DefaultCredentialKey = "token"
