// Package cli provides the command-line interface for the shopscan application.
package cli

import (
	"github.com/shopscan/shopscan/internal/app"
)

// Global application reference shared across commands. Set during
// PersistentPreRunE, cleared in PersistentPostRun.
var globalApp *app.Application

// SetApp stores the Application for commands to access.
func SetApp(a *app.Application) {
	globalApp = a
}

// GetApp retrieves the Application.
func GetApp() *app.Application {
	return globalApp
}
