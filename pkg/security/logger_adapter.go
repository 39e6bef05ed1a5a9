// Package security holds the zap-backed logger used across the gateway. Card
// data never reaches the log sink: redacted keys are masked at conversion.
package security

import (
	"strings"

	"github.com/kevin07696/card-gateway/internal/domain/ports"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const redacted = "[REDACTED]"

// redactedKeys are field keys whose values must not be logged
var redactedKeys = map[string]struct{}{
	"cvv":          {},
	"card_number":  {},
	"pan":          {},
	"vault_token":  {},
	"public_key":   {},
	"encrypted":    {},
	"secret_value": {},
}

// ZapLoggerAdapter implements ports.Logger on top of zap
type ZapLoggerAdapter struct {
	logger *zap.Logger
}

func NewZapLogger(logger *zap.Logger) *ZapLoggerAdapter {
	return &ZapLoggerAdapter{logger: logger}
}

func NewZapLoggerDevelopment() (*ZapLoggerAdapter, error) {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return NewZapLogger(logger), nil
}

// NewZapLoggerProduction builds a JSON logger with ISO8601 timestamps. An
// unparseable level keeps zap's default of info.
func NewZapLoggerProduction(level string) (*ZapLoggerAdapter, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.TimeKey = "timestamp"
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return NewZapLogger(logger), nil
}

// Zap returns the underlying logger for adapters that log with zap directly
func (z *ZapLoggerAdapter) Zap() *zap.Logger {
	return z.logger
}

func (z *ZapLoggerAdapter) Info(msg string, fields ...ports.Field) {
	z.logger.Info(msg, toZap(fields)...)
}

func (z *ZapLoggerAdapter) Error(msg string, fields ...ports.Field) {
	z.logger.Error(msg, toZap(fields)...)
}

func (z *ZapLoggerAdapter) Warn(msg string, fields ...ports.Field) {
	z.logger.Warn(msg, toZap(fields)...)
}

func (z *ZapLoggerAdapter) Debug(msg string, fields ...ports.Field) {
	z.logger.Debug(msg, toZap(fields)...)
}

func toZap(fields []ports.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		if _, ok := redactedKeys[strings.ToLower(f.Key)]; ok {
			out = append(out, zap.String(f.Key, redacted))
			continue
		}
		switch v := f.Value.(type) {
		case error:
			out = append(out, zap.NamedError(f.Key, v))
		case string:
			out = append(out, zap.String(f.Key, v))
		default:
			out = append(out, zap.Any(f.Key, v))
		}
	}
	return out
}
