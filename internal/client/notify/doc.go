// Package notify implements the user-facing collaborators of the session
// supervisor: the expiry notice and the redirect to the login page.
package notify
