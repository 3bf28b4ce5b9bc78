package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

var Log *logrus.Logger

// discard используется, пока Init не вызван (например, в тестах).
var discard = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

// Init инициализирует структурированный логгер.
func Init(level string) {
	Log = logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	// Используем JSON формат для production, text для development
	Log.SetFormatter(&logrus.JSONFormatter{})
}

// SetTextFormatter устанавливает текстовый формат логов (для development).
func SetTextFormatter() {
	if Log != nil {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
}

// L возвращает инициализированный логгер либо заглушку.
func L() *logrus.Logger {
	if Log != nil {
		return Log
	}
	return discard
}

// Component возвращает запись с полем component.
func Component(name string) *logrus.Entry {
	return L().WithField("component", name)
}

// Security помечает запись как событие безопасности.
func Security(name string) *logrus.Entry {
	return Component(name).WithField("security", true)
}
