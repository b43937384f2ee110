package worker

import (
	"fmt"

	"github.com/rs/zerolog"
)

// AsynqLogger routes asynq's internal logging through zerolog.
type AsynqLogger struct {
	logger *zerolog.Logger
}

// NewAsynqLogger adapts logger to the asynq.Logger interface.
func NewAsynqLogger(logger *zerolog.Logger) *AsynqLogger {
	return &AsynqLogger{logger: logger}
}

func (l *AsynqLogger) Debug(args ...any) { l.logger.Debug().Msg(fmt.Sprint(args...)) }
func (l *AsynqLogger) Info(args ...any)  { l.logger.Info().Msg(fmt.Sprint(args...)) }
func (l *AsynqLogger) Warn(args ...any)  { l.logger.Warn().Msg(fmt.Sprint(args...)) }
func (l *AsynqLogger) Error(args ...any) { l.logger.Error().Msg(fmt.Sprint(args...)) }

// Fatal logs and exits, as asynq expects.
func (l *AsynqLogger) Fatal(args ...any) { l.logger.Fatal().Msg(fmt.Sprint(args...)) }
