package server

import (
	"fmt"
	"time"

	"github.com/df07/go-sphere-tracer/pkg/log"
)

// ConsoleMessage represents a console message with timestamp
type ConsoleMessage struct {
	RenderID  string    `json:"renderId"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"` // "debug", "info", "warning", "error"
}

// WebLogger implements log.Logger by writing to the server log and
// forwarding each message to a render's console channel
type WebLogger struct {
	renderID    string
	consoleChan chan<- ConsoleMessage
}

var _ log.Logger = (*WebLogger)(nil)

// NewWebLogger creates a new web logger for a specific render
func NewWebLogger(renderID string, consoleChan chan<- ConsoleMessage) *WebLogger {
	return &WebLogger{
		renderID:    renderID,
		consoleChan: consoleChan,
	}
}

func (wl *WebLogger) send(level, message string) {
	// Send to web console if channel is available (non-blocking)
	if wl.consoleChan == nil {
		return
	}
	select {
	case wl.consoleChan <- ConsoleMessage{
		RenderID:  wl.renderID,
		Message:   message,
		Timestamp: time.Now(),
		Level:     level,
	}:
	default:
		// Channel full, skip (don't block)
	}
}

func (wl *WebLogger) Debug(v ...interface{}) {
	logger.Debug(v...)
	wl.send("debug", fmt.Sprint(v...))
}

func (wl *WebLogger) Debugf(format string, v ...interface{}) {
	logger.Debugf(format, v...)
	wl.send("debug", fmt.Sprintf(format, v...))
}

func (wl *WebLogger) Info(v ...interface{}) {
	logger.Info(v...)
	wl.send("info", fmt.Sprint(v...))
}

func (wl *WebLogger) Infof(format string, v ...interface{}) {
	logger.Infof(format, v...)
	wl.send("info", fmt.Sprintf(format, v...))
}

func (wl *WebLogger) Notice(v ...interface{}) {
	logger.Notice(v...)
	wl.send("info", fmt.Sprint(v...))
}

func (wl *WebLogger) Noticef(format string, v ...interface{}) {
	logger.Noticef(format, v...)
	wl.send("info", fmt.Sprintf(format, v...))
}

func (wl *WebLogger) Warning(v ...interface{}) {
	logger.Warning(v...)
	wl.send("warning", fmt.Sprint(v...))
}

func (wl *WebLogger) Warningf(format string, v ...interface{}) {
	logger.Warningf(format, v...)
	wl.send("warning", fmt.Sprintf(format, v...))
}

func (wl *WebLogger) Error(v ...interface{}) {
	logger.Error(v...)
	wl.send("error", fmt.Sprint(v...))
}

func (wl *WebLogger) Errorf(format string, v ...interface{}) {
	logger.Errorf(format, v...)
	wl.send("error", fmt.Sprintf(format, v...))
}
