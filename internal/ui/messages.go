package ui

import (
	"time"

	"github.com/unkn0wn-root/respane/internal/export"
	"github.com/unkn0wn-root/respane/internal/loader"
)

type statusLevel int

const (
	statusInfo statusLevel = iota
	statusWarn
	statusError
	statusSuccess
)

type statusMsg struct {
	text  string
	level statusLevel
}

// RequestStartedMsg tells the pane that requestID was sent at Started.
type RequestStartedMsg struct {
	RequestID string
	Started   time.Time
}

// RequestFinishedMsg tells the pane that a response for RequestID may now
// be stored.
type RequestFinishedMsg struct {
	RequestID string
	Err       error
}

// RequestsChangedMsg asks the pane to refresh its request list.
type RequestsChangedMsg struct{}

type requestsLoadedMsg struct {
	ids []string
	err error
}

type responseLoadedMsg struct {
	result loader.Result
}

type exportDoneMsg struct {
	result export.Result
}

type copyDoneMsg struct {
	label  string
	result export.Result
}

type savePromptMsg struct {
	prompt *savePrompt
}
