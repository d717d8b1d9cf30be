package notifications

import "context"

type WelcomeInput struct {
	UserID   string
	Username string
	Email    string
}

type Notifier interface {
	SendWelcome(ctx context.Context, input WelcomeInput) error
}
