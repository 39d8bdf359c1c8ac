package logger

import "go.uber.org/zap"

// Provide returns a production-ready zap logger configured for the service.
func Provide() (*zap.Logger, error) {
	return zap.NewProduction()
}
