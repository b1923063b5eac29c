package logger_test

import (
	"errors"

	"github.com/wonny/autoinvest/backend/pkg/config"
	"github.com/wonny/autoinvest/backend/pkg/logger"
)

// Example_withFields demonstrates structured logging for a watchlist item
func Example_withFields() {
	log := logger.New(&config.Config{
		Env:       "production",
		LogLevel:  "info",
		LogFormat: "json",
	})

	itemLog := log.WithComponent("runner").WithFields(map[string]interface{}{
		"symbol":   "NIFTYBEES",
		"action":   "SIP",
		"decision": "EXECUTE",
	})
	itemLog.Info("Item processed")

	itemLog.WithError(errors.New("order rejected")).Error("Submission failed")
}
