package model

import "context"

// Notifier delivers an operator notification, e.g. a device dropping out.
type Notifier interface {
	Send(ctx context.Context, subject, body string) error
}
