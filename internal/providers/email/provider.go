// Package email dispatches transactional mail for the lab.
package email

import "context"

// Message is one outbound email.
type Message struct {
	To        string
	Subject   string
	HTMLBody  string
	MessageID string
}

// Provider sends messages synchronously. Implementations return an error on
// dispatch failure; callers decide whether to retry.
type Provider interface {
	Send(ctx context.Context, msg Message) error
}
