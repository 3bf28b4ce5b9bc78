package goroutine

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/crowdfunding-backend/internal/logger"
)

// Logger интерфейс для логирования паник.
type Logger interface {
	WithFields(fields logrus.Fields) *logrus.Entry
}

// RecoveryHandler обрабатывает panic в горутинах.
type RecoveryHandler struct {
	logger Logger
}

// NewRecoveryHandler создаёт новый обработчик.
func NewRecoveryHandler(l Logger) *RecoveryHandler {
	return &RecoveryHandler{logger: l}
}

func (rh *RecoveryHandler) handlePanic(name string) {
	if r := recover(); r != nil {
		rh.logger.WithFields(logrus.Fields{
			"goroutine": name,
			"panic":     r,
			"stack":     string(debug.Stack()),
		}).Error("panic в горутине")
	}
}

// SafeGo запускает горутину с обработкой panic.
func (rh *RecoveryHandler) SafeGo(name string, fn func()) {
	go func() {
		defer rh.handlePanic(name)
		fn()
	}()
}

// Every вызывает fn сразу и затем с интервалом, пока ctx не отменён.
// Паника в одном вызове не останавливает цикл.
func (rh *RecoveryHandler) Every(ctx context.Context, name string, interval time.Duration, fn func(context.Context)) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			func() {
				defer rh.handlePanic(name)
				fn(ctx)
			}()

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

type lazyLogger struct{}

func (lazyLogger) WithFields(fields logrus.Fields) *logrus.Entry {
	return logger.L().WithFields(fields)
}

// DefaultRecoveryHandler пишет паники в общий логгер приложения.
var DefaultRecoveryHandler = NewRecoveryHandler(lazyLogger{})

// SafeGo запускает безопасную горутину через обработчик по умолчанию.
func SafeGo(name string, fn func()) {
	DefaultRecoveryHandler.SafeGo(name, fn)
}

// Every запускает периодическую задачу через обработчик по умолчанию.
func Every(ctx context.Context, name string, interval time.Duration, fn func(context.Context)) {
	DefaultRecoveryHandler.Every(ctx, name, interval, fn)
}
