package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/showroom/internal/mastersheet"
	"github.com/Veraticus/showroom/internal/model"
	"github.com/Veraticus/showroom/internal/session"
	"github.com/Veraticus/showroom/internal/upload"
)

// operationContext derives a context from the model's. A positive d adds a
// deadline; otherwise the operation runs until it finishes or the TUI quits.
func (m Model) operationContext(d time.Duration) (context.Context, context.CancelFunc) {
	if d > 0 {
		return context.WithTimeout(m.ctx, d)
	}
	return context.WithCancel(m.ctx)
}

// withTimeout runs fn under the configured request deadline, if any.
func (m Model) withTimeout(d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := m.operationContext(d)
	defer cancel()
	return fn(ctx)
}

func (m Model) login(username, password string) tea.Cmd {
	return func() tea.Msg {
		var sess *model.Session
		err := m.withTimeout(m.cfg.Timeout, func(ctx context.Context) error {
			var err error
			sess, err = m.store.Login(ctx, m.auth, username, password)
			return err
		})
		return loginResultMsg{session: sess, err: err}
	}
}

func (m Model) logout() tea.Cmd {
	return func() tea.Msg {
		err := m.withTimeout(m.cfg.Timeout, func(ctx context.Context) error {
			return m.store.Logout(ctx, session.ReasonUser)
		})
		if err != nil {
			m.logger.Warn("Failed to sign out", "error", err)
		}
		return loggedOutMsg{reason: session.ReasonUser}
	}
}

// dashboardCmd runs one controller operation; the result is read back from the controller.
func (m Model) dashboardCmd(op func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return dashboardLoadedMsg{err: m.withTimeout(m.cfg.Timeout, op)}
	}
}

func (m Model) sheetCmd(jump bool, op func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return sheetLoadedMsg{err: m.withTimeout(m.cfg.Timeout, op), jump: jump}
	}
}

// showSheet selects a sheet, reloading the sheet list first when the name
// is not in it yet, as happens after a deal opens a new month.
func (m Model) showSheet(name string) tea.Cmd {
	return m.sheetCmd(true, func(ctx context.Context) error {
		err := m.viewer.Select(ctx, name)
		if !errors.Is(err, mastersheet.ErrUnknownSheet) {
			return err
		}
		if err := m.viewer.Load(ctx); err != nil {
			return err
		}
		return m.viewer.Select(ctx, name)
	})
}

func (m Model) download() tea.Cmd {
	return func() tea.Msg {
		var url string
		err := m.withTimeout(m.cfg.Timeout, func(ctx context.Context) error {
			var err error
			url, err = m.viewer.Download(ctx, m.opener)
			return err
		})
		return downloadMsg{url: url, err: err}
	}
}

func (m Model) checkStorage() tea.Cmd {
	return func() tea.Msg {
		var status *model.StorageStatus
		err := m.withTimeout(m.cfg.Timeout, func(ctx context.Context) error {
			var err error
			status, err = m.ingestor.StorageStatus(ctx)
			return err
		})
		return storageStatusMsg{status: status, err: err}
	}
}

// startUpload submits a validated attempt in the background. Progress and
// the final outcome are delivered through a channel that waitForUpload drains.
func (m Model) startUpload(a *upload.Attempt, kind model.UploadKind) tea.Cmd {
	events := make(chan tea.Msg, 16)
	in := m.ingestor

	return func() tea.Msg {
		go func() {
			defer close(events)

			ctx, cancel := m.operationContext(m.cfg.UploadTimeout)
			defer cancel()

			began := time.Now()
			progress := func(sent, total int64) {
				select {
				case events <- uploadProgressMsg{sent: sent, total: total, events: events}:
				default:
				}
			}

			done := uploadDoneMsg{kind: kind}
			switch kind {
			case model.UploadDealSummary:
				done.deal, done.err = in.ProcessDealSummary(ctx, a, progress)
			case model.UploadRawFile:
				done.stored, done.err = in.UploadRawFile(ctx, a, progress)
			default:
				done.stored, done.err = in.AnalyzeSpreadsheet(ctx, a, progress)
			}
			done.elapsed = time.Since(began)
			events <- done
		}()

		return <-events
	}
}

func waitForUpload(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}
