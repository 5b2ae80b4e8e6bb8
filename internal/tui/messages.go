package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/showroom/internal/model"
	"github.com/Veraticus/showroom/internal/session"
)

// Session messages.
type loginResultMsg struct {
	err     error
	session *model.Session
}

type loggedOutMsg struct {
	reason session.LogoutReason
}

// Data loading messages. The controllers hold the loaded state; these only
// signal that it changed.
type dashboardLoadedMsg struct {
	err error
}

type sheetLoadedMsg struct {
	err error
	// jump scrolls to the newly added row once the sheet arrives
	jump bool
}

type storageStatusMsg struct {
	err    error
	status *model.StorageStatus
}

type downloadMsg struct {
	err error
	url string
}

// Upload messages arrive on a channel the upload command owns.
type uploadProgressMsg struct {
	events <-chan tea.Msg
	sent   int64
	total  int64
}

type uploadDoneMsg struct {
	err     error
	deal    *model.DealSummaryUploadResult
	stored  *model.StorageUploadResult
	kind    model.UploadKind
	elapsed time.Duration
}
