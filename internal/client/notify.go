package client

import (
	"context"
	"log/slog"
)

// Notification is a user-facing message about the outcome of an operation.
type Notification struct {
	Level   slog.Level
	Title   string
	Message string
	Err     error
}

// Notifier surfaces notifications to the user.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

func (f NotifierFunc) Notify(ctx context.Context, n Notification) {
	f(ctx, n)
}

// LogNotifier writes notifications to a slog.Logger. A nil Logger uses
// slog.Default.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(ctx context.Context, n Notification) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []slog.Attr{slog.String("title", n.Title)}
	if n.Err != nil {
		attrs = append(attrs, slog.Any("error", n.Err))
	}
	logger.LogAttrs(ctx, n.Level, n.Message, attrs...)
}

func notify(ctx context.Context, n Notifier, note Notification) {
	if n != nil {
		n.Notify(ctx, note)
	}
}

func notifyError(ctx context.Context, n Notifier, title string, err error) {
	if err == nil {
		return
	}
	notify(ctx, n, Notification{
		Level:   slog.LevelError,
		Title:   title,
		Message: message(err),
		Err:     err,
	})
}
