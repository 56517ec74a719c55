package main

import (
	"errors"
	"os"

	"github.com/loykin/dagdeploy"
	"github.com/loykin/dagdeploy/internal/common"
)

// Exit codes reported to the surrounding CI system. Each error class maps to
// a distinct code so pipeline steps can branch on the failure mode.
const (
	exitOK             = 0
	exitConfigError    = 1
	exitGraphError     = 2
	exitDeployError    = 3
	exitAuthError      = 4
	exitUnexpectedCode = 10
)

// ExitCodeFor classifies err into the CLI's exit code contract.
func ExitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}
	var cfgErr *dagdeploy.ConfigError
	if errors.As(err, &cfgErr) {
		return exitConfigError
	}
	var graphErr *dagdeploy.GraphValidationError
	if errors.As(err, &graphErr) {
		return exitGraphError
	}
	var authErr *dagdeploy.AuthenticationError
	if errors.As(err, &authErr) {
		return exitAuthError
	}
	var depErr *dagdeploy.DeploymentError
	if errors.As(err, &depErr) {
		return exitDeployError
	}
	return exitUnexpectedCode
}

// ExitHandler provides a testable way to handle program termination
type ExitHandler interface {
	Exit(code int)
	LogFatalError(err error, msg string, keyvals ...any)
}

// DefaultExitHandler implements ExitHandler for production use
type DefaultExitHandler struct {
	logger *common.Logger
}

// NewDefaultExitHandler creates a new default exit handler
func NewDefaultExitHandler() *DefaultExitHandler {
	return &DefaultExitHandler{
		logger: common.GetLogger().WithComponent("main"),
	}
}

// Exit terminates the program with the given exit code
func (h *DefaultExitHandler) Exit(code int) {
	os.Exit(code)
}

// LogFatalError logs a fatal error and exits with the code its class maps to
func (h *DefaultExitHandler) LogFatalError(err error, msg string, keyvals ...any) {
	allKeyvals := append([]any{"error", err}, keyvals...)
	h.logger.Error(msg, allKeyvals...)
	h.Exit(ExitCodeFor(err))
}

// Global exit handler (can be replaced for testing)
var exitHandler ExitHandler = NewDefaultExitHandler()
