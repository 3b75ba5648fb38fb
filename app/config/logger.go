package config

import (
	"go.uber.org/zap"
)

// NewLogger builds the structured logger for env
func NewLogger(env string) (*zap.Logger, error) {
	var config zap.Config
	if env == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}

	return config.Build()
}
