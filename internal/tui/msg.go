package tui

import "github.com/laburec/bbutil/internal/logging"

// logMessageMsg carries one delivered log message into the model.
type logMessageMsg logging.Message

// logClosedMsg signals the writer channel closed.
type logClosedMsg struct{}

// clearMsg is the in-band Clear request from the dispatcher.
type clearMsg struct{}
