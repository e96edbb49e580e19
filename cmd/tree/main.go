package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/tree/internal/cli"
	"github.com/temirov/tree/internal/utils"
)

// main is the entry point for the tree command.
func main() {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	loggerInstance, loggerInitializationError := utils.NewApplicationLogger(level)
	if loggerInitializationError != nil {
		panic(fmt.Errorf(utils.LoggerInitializationFailedMessageFormat, loggerInitializationError))
	}
	defer loggerInstance.Sync()
	if applicationExecutionError := cli.Execute(cli.Dependencies{Logger: loggerInstance, Level: &level}); applicationExecutionError != nil {
		loggerInstance.Fatal(utils.ApplicationExecutionFailedMessage + ": " + applicationExecutionError.Error())
	}
}
