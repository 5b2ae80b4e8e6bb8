package tui

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/showroom/internal/common"
	"github.com/Veraticus/showroom/internal/config"
	"github.com/Veraticus/showroom/internal/dashboard"
	"github.com/Veraticus/showroom/internal/mastersheet"
	"github.com/Veraticus/showroom/internal/model"
	"github.com/Veraticus/showroom/internal/session"
	"github.com/Veraticus/showroom/internal/tui/themes"
	"github.com/Veraticus/showroom/internal/tui/viewmodel"
	"github.com/Veraticus/showroom/internal/upload"
)

// Model holds the application state.
type Model struct {
	ctx          context.Context
	auth         session.Authenticator
	opener       mastersheet.Opener
	store        *session.Store
	dash         *dashboard.Controller
	ingestor     *upload.Ingestor
	viewer       *mastersheet.Viewer
	logger       *slog.Logger
	attempt      *upload.Attempt
	storage      *model.StorageStatus
	lastDeal     *model.DealSummaryUploadResult
	lastStored   *model.StorageUploadResult
	theme        themes.Theme
	help         help.Model
	keymap       KeyMap
	cfg          Config
	username     textinput.Model
	password     textinput.Model
	path         textinput.Model
	user         string
	loginErr     string
	notice       string
	kind         model.UploadKind
	sent         int64
	total        int64
	elapsed      time.Duration
	screen       viewmodel.Screen
	noticeStatus viewmodel.Status
	width        int
	height       int
	cardCursor   int
	dashOffset   int
	rowOffset    int
	loggingIn    bool
	uploading    bool
	checking     bool
	customizing  bool
	dashStarted  bool
	quitting     bool
}

// New builds the application model. A persisted session skips the sign-in page.
func New(ctx context.Context, opts ...Option) (Model, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return Model{}, err
	}

	h := help.New()
	h.ShowAll = cfg.ShowHelp
	h.Width = cfg.Width

	m := Model{
		ctx:      ctx,
		cfg:      cfg,
		auth:     cfg.Auth,
		opener:   cfg.Opener,
		store:    cfg.Session,
		dash:     cfg.Dashboard,
		ingestor: cfg.Ingestor,
		viewer:   cfg.Viewer,
		logger:   cfg.Logger,
		theme:    cfg.Theme,
		keymap:   DefaultKeyMap(),
		help:     h,
		width:    cfg.Width,
		height:   cfg.Height,
		kind:     model.UploadDealSummary,
		username: newInput("Username", textinput.EchoNormal),
		password: newInput("Password", textinput.EchoPassword),
		path:     newInput("/path/to/deal-summary.xlsx", textinput.EchoNormal),
	}

	sess, err := m.store.Current(ctx)
	switch {
	case err == nil:
		m.user = sess.Username
		m.screen = viewmodel.ScreenDashboard
		m.dashStarted = true
	case errors.Is(err, common.ErrNotAuthenticated):
		m.screen = viewmodel.ScreenLogin
		m.username.Focus()
	default:
		return Model{}, err
	}
	return m, nil
}

func newInput(placeholder string, echo textinput.EchoMode) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.EchoMode = echo
	ti.Prompt = ""
	ti.CharLimit = 1024
	ti.Width = 40
	_ = ti.Cursor.SetMode(cursor.CursorStatic)
	return ti
}

// Init starts loading the dashboard when already signed in.
func (m Model) Init() tea.Cmd {
	if m.screen == viewmodel.ScreenLogin {
		return nil
	}
	return m.dashboardCmd(m.dash.Start)
}

// Screen returns the page currently showing.
func (m Model) Screen() viewmodel.Screen {
	return m.screen
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case loginResultMsg:
		return m.handleLogin(msg)

	case loggedOutMsg:
		return m.signedOut(msg.reason), nil

	case dashboardLoadedMsg:
		if m.unauthorized(msg.err) {
			return m.signedOut(session.ReasonUnauthorized), nil
		}
		m.dashOffset = 0
		return m, nil

	case sheetLoadedMsg:
		if m.unauthorized(msg.err) {
			return m.signedOut(session.ReasonUnauthorized), nil
		}
		m.rowOffset = 0
		if msg.jump {
			view := m.viewer.View()
			table := viewmodel.NewSheetTable(view.Snapshot, view.Highlighted)
			m.rowOffset = max(0, table.FirstHighlighted())
		}
		return m, nil

	case storageStatusMsg:
		m.checking = false
		if m.unauthorized(msg.err) {
			return m.signedOut(session.ReasonUnauthorized), nil
		}
		if msg.err != nil {
			m.storage = &model.StorageStatus{Message: common.Message(msg.err, "Could not check storage status")}
			return m, nil
		}
		m.storage = msg.status
		return m, nil

	case downloadMsg:
		return m.handleDownload(msg)

	case uploadProgressMsg:
		m.sent, m.total = msg.sent, msg.total
		return m, waitForUpload(msg.events)

	case uploadDoneMsg:
		return m.handleUploadDone(msg)
	}
	return m, nil
}

func (m Model) unauthorized(err error) bool {
	return errors.Is(err, common.ErrUnauthorized)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keymap.ForceQuit) {
		m.quitting = true
		return m, tea.Quit
	}

	if m.screen == viewmodel.ScreenLogin {
		return m.handleLoginKey(msg)
	}

	switch {
	case key.Matches(msg, m.keymap.Logout):
		return m, m.logout()
	case key.Matches(msg, m.keymap.NextScreen):
		return m.enter(m.screen.Next())
	case key.Matches(msg, m.keymap.PrevScreen):
		return m.enter(m.screen.Prev())
	}

	switch m.screen {
	case viewmodel.ScreenDashboard:
		return m.handleDashboardKey(msg)
	case viewmodel.ScreenUpload:
		return m.handleUploadKey(msg)
	case viewmodel.ScreenMasterSheet:
		return m.handleSheetKey(msg)
	}
	return m, nil
}

// enter switches page and starts whatever the page loads on arrival.
func (m Model) enter(screen viewmodel.Screen) (Model, tea.Cmd) {
	m.screen = screen
	m.notice = ""
	m.customizing = false
	m.path.Blur()

	switch screen {
	case viewmodel.ScreenDashboard:
		if !m.dashStarted {
			cmd := m.startDashboard()
			return m, cmd
		}
	case viewmodel.ScreenUpload:
		m.path.Focus()
		m.checking = true
		return m, m.checkStorage()
	case viewmodel.ScreenMasterSheet:
		return m, m.sheetCmd(false, m.viewer.Refresh)
	}
	return m, nil
}

func (m *Model) startDashboard() tea.Cmd {
	m.dashStarted = true
	return m.dashboardCmd(m.dash.Start)
}

// signedOut returns to the sign-in page and forgets everything tied to the
// previous user.
func (m Model) signedOut(reason session.LogoutReason) Model {
	m.screen = viewmodel.ScreenLogin
	m.user = ""
	m.loggingIn = false
	m.dashStarted = false
	m.customizing = false
	m.notice = ""
	m.lastDeal = nil
	m.lastStored = nil
	m.storage = nil
	if !m.uploading {
		m.attempt = nil
	}
	m.loginErr = ""
	if reason == session.ReasonUnauthorized {
		m.loginErr = common.Message(common.ErrUnauthorized, session.LoginFailedMessage)
	}

	m.password.Reset()
	m.path.Blur()
	m.password.Blur()
	m.username.Focus()
	return m
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.NextScreen), key.Matches(msg, m.keymap.PrevScreen):
		m.toggleLoginField()
		return m, nil
	case key.Matches(msg, m.keymap.Submit):
		if m.username.Focused() {
			m.toggleLoginField()
			return m, nil
		}
		if m.loggingIn {
			return m, nil
		}
		m.loggingIn = true
		m.loginErr = ""
		return m, m.login(strings.TrimSpace(m.username.Value()), m.password.Value())
	}

	var cmd tea.Cmd
	if m.username.Focused() {
		m.username, cmd = m.username.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m *Model) toggleLoginField() {
	if m.username.Focused() {
		m.username.Blur()
		m.password.Focus()
		return
	}
	m.password.Blur()
	m.username.Focus()
}

func (m Model) handleLogin(msg loginResultMsg) (tea.Model, tea.Cmd) {
	m.loggingIn = false
	m.password.Reset()
	if msg.err != nil {
		m.loginErr = common.Message(msg.err, session.LoginFailedMessage)
		m.username.Blur()
		m.password.Focus()
		return m, nil
	}

	m.loginErr = ""
	m.user = msg.session.Username
	m.username.Blur()
	m.password.Blur()
	m.screen = viewmodel.ScreenDashboard
	cmd := m.startDashboard()
	return m, cmd
}

func (m Model) handleDashboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.customizing {
		return m.handleCustomizeKey(msg)
	}

	view := m.dash.View()
	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keymap.ToggleHelp):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keymap.Left), key.Matches(msg, m.keymap.Right):
		delta := 1
		if key.Matches(msg, m.keymap.Left) {
			delta = -1
		}
		if month, ok := step(view.Months, view.Month, delta); ok {
			return m, m.dashboardCmd(func(ctx context.Context) error {
				return m.dash.SelectMonth(ctx, month)
			})
		}
	case key.Matches(msg, m.keymap.PrevYear), key.Matches(msg, m.keymap.NextYear):
		delta := 1
		if key.Matches(msg, m.keymap.PrevYear) {
			delta = -1
		}
		if year, ok := step(view.Years, view.Year, delta); ok {
			return m, m.dashboardCmd(func(ctx context.Context) error {
				return m.dash.SelectYear(ctx, year)
			})
		}
	case key.Matches(msg, m.keymap.CycleMetric):
		metrics := dashboard.RankingMetrics
		i := indexOf(metrics, m.dash.RankingMetric())
		_ = m.dash.SetRankingMetric(metrics[(i+1)%len(metrics)])
	case key.Matches(msg, m.keymap.Customize):
		m.customizing = true
		m.cardCursor = 0
	case key.Matches(msg, m.keymap.Refresh):
		return m, m.dashboardCmd(m.dash.Retry)
	case key.Matches(msg, m.keymap.Down):
		m.dashOffset++
	case key.Matches(msg, m.keymap.Up):
		m.dashOffset = max(0, m.dashOffset-1)
	case key.Matches(msg, m.keymap.Home):
		m.dashOffset = 0
	}
	return m, nil
}

func (m Model) handleCustomizeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Customize), key.Matches(msg, m.keymap.Back):
		m.customizing = false
	case key.Matches(msg, m.keymap.Up):
		m.cardCursor = max(0, m.cardCursor-1)
	case key.Matches(msg, m.keymap.Down):
		m.cardCursor = min(len(dashboard.AllKPIs)-1, m.cardCursor+1)
	case key.Matches(msg, m.keymap.ToggleCard):
		_ = m.dash.ToggleKPI(dashboard.AllKPIs[m.cardCursor])
	}
	return m, nil
}

func (m Model) handleUploadKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Submit):
		return m.submitUpload()
	case key.Matches(msg, m.keymap.CycleKind):
		if m.uploading {
			return m, nil
		}
		m.kind = viewmodel.NextKind(m.kind)
		m.clearUpload()
		return m, nil
	case key.Matches(msg, m.keymap.ResetUpload):
		if m.uploading {
			return m, nil
		}
		m.clearUpload()
		m.path.Reset()
		return m, nil
	case key.Matches(msg, m.keymap.ViewDeal):
		if m.lastDeal == nil || !m.lastDeal.Success || m.lastDeal.MonthSheet == "" {
			return m, nil
		}
		month := m.lastDeal.MonthSheet
		m.screen = viewmodel.ScreenMasterSheet
		m.path.Blur()
		return m, m.showSheet(month)
	}

	var cmd tea.Cmd
	m.path, cmd = m.path.Update(msg)
	return m, cmd
}

func (m *Model) clearUpload() {
	if m.attempt != nil {
		_ = m.attempt.Reset()
	}
	m.attempt = nil
	m.lastDeal = nil
	m.lastStored = nil
	m.notice = ""
	m.sent, m.total = 0, 0
}

// submitUpload validates the typed path and starts the upload. A failed
// attempt for the same file is resubmitted as is.
func (m Model) submitUpload() (tea.Model, tea.Cmd) {
	if m.uploading {
		return m, nil
	}

	path := config.ExpandPath(strings.TrimSpace(m.path.Value()))
	policy, err := upload.PolicyFor(m.kind)
	if err != nil {
		m.setNotice(err.Error(), viewmodel.StatusError)
		return m, nil
	}

	a := m.attempt
	resubmit := a != nil && a.Phase() == upload.PhaseFailed && a.Candidate() != nil && a.Candidate().Path == path
	if !resubmit {
		m.lastDeal, m.lastStored = nil, nil
		if path == "" {
			m.attempt = nil
			m.setNotice("Please select a file", viewmodel.StatusError)
			return m, nil
		}
		a, err = upload.Prepare(path, policy)
		m.attempt = a
		if a == nil {
			m.setNotice(common.Message(err, "Could not read file"), viewmodel.StatusError)
			return m, nil
		}
		if err != nil {
			m.notice = ""
			return m, nil
		}
	}

	view := viewmodel.UploadView{Kind: m.kind, Storage: m.storage}
	if view.StorageBlocked() {
		m.setNotice("File storage is not configured on the server", viewmodel.StatusWarning)
		return m, nil
	}

	m.notice = ""
	m.uploading = true
	m.sent = 0
	m.total = a.Candidate().Size
	return m, m.startUpload(a, m.kind)
}

func (m Model) handleUploadDone(msg uploadDoneMsg) (tea.Model, tea.Cmd) {
	m.uploading = false
	m.elapsed = msg.elapsed
	if m.unauthorized(msg.err) {
		return m.signedOut(session.ReasonUnauthorized), nil
	}
	if msg.err != nil {
		m.logger.Debug("Upload failed", "kind", string(msg.kind), "error", msg.err)
		if m.attempt != nil && m.attempt.Phase() != upload.PhaseFailed {
			m.setNotice(common.Message(msg.err, upload.FailedMessage), viewmodel.StatusError)
		}
		return m, nil
	}

	m.sent = m.total
	m.lastDeal = msg.deal
	m.lastStored = msg.stored
	if msg.deal != nil && msg.deal.KPIsUpdated && m.dashStarted {
		return m, m.dashboardCmd(m.dash.Retry)
	}
	return m, nil
}

func (m Model) handleSheetKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	view := m.viewer.View()
	page := max(1, m.tableHeight())
	rows := 0
	if view.Snapshot != nil {
		rows = len(view.Snapshot.Rows)
	}

	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keymap.ToggleHelp):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keymap.Left), key.Matches(msg, m.keymap.Right):
		delta := 1
		if key.Matches(msg, m.keymap.Left) {
			delta = -1
		}
		if sheet, ok := step(view.Sheets, view.Selected, delta); ok {
			return m, m.sheetCmd(false, func(ctx context.Context) error {
				return m.viewer.Select(ctx, sheet)
			})
		}
	case key.Matches(msg, m.keymap.Refresh):
		m.notice = ""
		return m, m.sheetCmd(false, m.viewer.Refresh)
	case key.Matches(msg, m.keymap.Download):
		m.setNotice("Requesting download link...", viewmodel.StatusInfo)
		return m, m.download()
	case key.Matches(msg, m.keymap.JumpToNew):
		table := viewmodel.NewSheetTable(view.Snapshot, view.Highlighted)
		if i := table.FirstHighlighted(); i >= 0 {
			m.rowOffset = i
		} else {
			m.setNotice("No newly added deal on this sheet", viewmodel.StatusInfo)
		}
	case key.Matches(msg, m.keymap.Down):
		m.rowOffset = min(max(0, rows-1), m.rowOffset+1)
	case key.Matches(msg, m.keymap.Up):
		m.rowOffset = max(0, m.rowOffset-1)
	case key.Matches(msg, m.keymap.PageDown):
		m.rowOffset = min(max(0, rows-1), m.rowOffset+page)
	case key.Matches(msg, m.keymap.PageUp):
		m.rowOffset = max(0, m.rowOffset-page)
	case key.Matches(msg, m.keymap.Home):
		m.rowOffset = 0
	case key.Matches(msg, m.keymap.End):
		m.rowOffset = max(0, rows-page)
	}
	return m, nil
}

func (m Model) handleDownload(msg downloadMsg) (tea.Model, tea.Cmd) {
	switch {
	case m.unauthorized(msg.err):
		return m.signedOut(session.ReasonUnauthorized), nil
	case msg.err != nil && msg.url != "":
		m.setNotice("Open this link to download: "+msg.url, viewmodel.StatusWarning)
	case msg.err != nil:
		m.setNotice(common.Message(msg.err, mastersheet.DownloadFailedMessage), viewmodel.StatusError)
	default:
		m.setNotice("Download link opened: "+msg.url, viewmodel.StatusSuccess)
	}
	return m, nil
}

func (m *Model) setNotice(text string, status viewmodel.Status) {
	m.notice = text
	m.noticeStatus = status
}

// step returns the neighbor of current in items, if there is one.
func step[T comparable](items []T, current T, delta int) (T, bool) {
	var zero T
	i := indexOf(items, current)
	if i < 0 {
		return zero, false
	}
	j := i + delta
	if j < 0 || j >= len(items) {
		return zero, false
	}
	return items[j], true
}

func indexOf[T comparable](items []T, v T) int {
	for i, item := range items {
		if item == v {
			return i
		}
	}
	return -1
}
