// Package notify tells operators how an import went.
package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Kind distinguishes successful from failed imports.
type Kind string

const (
	KindSuccess Kind = "success"
	KindFailure Kind = "failure"
)

// Mail subjects of the two message kinds.
const (
	SubjectSuccess = "Successful Import"
	SubjectFailure = "Import CSV failed"
)

// Message is one notification about one imported file.
type Message struct {
	Kind    Kind
	File    string
	Subject string
	Body    string
}

// Notifier delivers messages.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// SuccessMessage reports a file imported without errors.
func SuccessMessage(file string) Message {
	return Message{
		Kind:    KindSuccess,
		File:    file,
		Subject: SubjectSuccess,
		Body:    fmt.Sprintf("Import of the file %s done.", file),
	}
}

// FailureMessage reports a failed file together with its import status.
func FailureMessage(file, status string) Message {
	return Message{
		Kind:    KindFailure,
		File:    file,
		Subject: SubjectFailure,
		Body:    fmt.Sprintf("Import of the file %s failed with errors:\n%s", file, status),
	}
}

// Log writes messages to a logger.
type Log struct {
	log *zap.Logger
}

// NewLog returns a Notifier that logs every message.
func NewLog(log *zap.Logger) *Log {
	return &Log{log: log}
}

// Notify logs msg, failures at warn level.
func (l *Log) Notify(_ context.Context, msg Message) error {
	fields := []zap.Field{
		zap.String("kind", string(msg.Kind)),
		zap.String("file", msg.File),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	}
	if msg.Kind == KindFailure {
		l.log.Warn("import notification", fields...)
	} else {
		l.log.Info("import notification", fields...)
	}
	return nil
}
