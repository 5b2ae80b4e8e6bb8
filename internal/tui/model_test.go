package tui

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/showroom/internal/api"
	"github.com/Veraticus/showroom/internal/apitest"
	"github.com/Veraticus/showroom/internal/common"
	"github.com/Veraticus/showroom/internal/dashboard"
	"github.com/Veraticus/showroom/internal/mastersheet"
	"github.com/Veraticus/showroom/internal/model"
	"github.com/Veraticus/showroom/internal/session"
	"github.com/Veraticus/showroom/internal/storage"
	tuitest "github.com/Veraticus/showroom/internal/tui/testing"
	"github.com/Veraticus/showroom/internal/tui/viewmodel"
	"github.com/Veraticus/showroom/internal/upload"
)

const (
	testUser     = "manager"
	testPassword = "s3cret-pass"
)

type app struct {
	server   *apitest.Server
	store    *session.Store
	client   *api.Client
	dash     *dashboard.Controller
	viewer   *mastersheet.Viewer
	ingestor *upload.Ingestor
	db       *storage.SQLiteStorage
	renderer *tuitest.TestRenderer
	opened   []string
}

func newApp(t *testing.T, serverOpts ...apitest.Option) *app {
	t.Helper()
	ctx := context.Background()

	srv := apitest.New(append([]apitest.Option{apitest.WithUser(testUser, testPassword)}, serverOpts...)...)
	srv.SetKPIs(2025, "january", model.KPISnapshot{
		TotalUnitsSold: 27,
		TopSalespeople: []model.Salesperson{{Name: "Ana Ruiz", Units: 9, AvgGross: 2100}},
		TopModels:      []model.ModelUnits{{Model: "CR-V", Units: 8}},
	})
	srv.SetKPIs(2025, "february", model.KPISnapshot{TotalUnitsSold: 31})
	srv.SetKPIs(2024, "november", model.KPISnapshot{TotalUnitsSold: 33})
	srv.SetSheet("Oct", apitest.DefaultLedgerColumns, []model.Row{{"Deal #": "0990"}})
	srv.SetSheet("Nov", apitest.DefaultLedgerColumns, []model.Row{{"Deal #": "1001", "Customer": "Lee"}})
	url := apitest.Start(t, srv)

	db, err := storage.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	a := &app{server: srv, db: db, store: session.New(db), renderer: tuitest.NewTestRenderer()}
	a.client = api.New(url, a.store)
	a.dash = dashboard.NewController(a.client, nil)
	a.viewer = mastersheet.NewViewer(a.client, db)
	a.ingestor = upload.NewIngestor(a.client, db, upload.WithHistory(db))
	return a
}

func (a *app) login(t *testing.T) {
	t.Helper()
	_, err := a.store.Login(context.Background(), a.client, testUser, testPassword)
	require.NoError(t, err)
}

// start builds the model and runs its Init command.
func (a *app) start(t *testing.T, opts ...Option) Model {
	t.Helper()
	m, err := New(context.Background(), append([]Option{
		WithSession(a.store, a.client),
		WithDashboard(a.dash),
		WithViewer(a.viewer),
		WithIngestor(a.ingestor),
		WithOpener(mastersheet.OpenerFunc(func(_ context.Context, url string) error {
			a.opened = append(a.opened, url)
			return nil
		})),
		WithSize(140, 80),
	}, opts...)...)
	require.NoError(t, err)
	return a.renderer.Drive(m, m.Init()).(Model)
}

func (a *app) send(m Model, msgs ...tea.Msg) Model {
	var out tea.Model = m
	for _, msg := range msgs {
		out = a.renderer.Send(out, msg)
	}
	return out.(Model)
}

func (a *app) typeText(m Model, text string) Model {
	return tuitest.Send(m, a.renderer, tuitest.Type(text)...).(Model)
}

func (a *app) output(m Model) string {
	return tuitest.StripANSI(a.renderer.Render(m))
}

func writeDealSummary(t *testing.T, dealNumber, date string) string {
	t.Helper()
	wb := excelize.NewFile()
	defer func() { _ = wb.Close() }()
	sheet := wb.GetSheetName(wb.GetActiveSheetIndex())
	require.NoError(t, wb.SetSheetRow(sheet, "A1", &[]any{"Deal #", dealNumber}))
	require.NoError(t, wb.SetSheetRow(sheet, "A2", &[]any{"Date", date}))
	require.NoError(t, wb.SetSheetRow(sheet, "A3", &[]any{"Customer", "Jordan Blake"}))

	path := filepath.Join(t.TempDir(), "deal-"+dealNumber+".xlsx")
	require.NoError(t, wb.SaveAs(path))
	return path
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(context.Background())
	require.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestLoginFlow(t *testing.T) {
	a := newApp(t)
	m := a.start(t)

	assert.Equal(t, viewmodel.ScreenLogin, m.Screen())
	assert.Contains(t, a.output(m), "Sign in to continue")

	m = a.send(m, tuitest.SignIn(testUser, testPassword)...)

	require.Equal(t, viewmodel.ScreenDashboard, m.Screen())
	assert.True(t, a.store.IsAuthenticated(context.Background()))

	out := a.output(m)
	assert.Contains(t, out, "signed in as "+testUser)
	assert.Contains(t, out, "KPI Dashboard · January 2025")
	assert.Contains(t, out, "Total Units Sold")
	assert.Contains(t, out, "27")
	assert.Contains(t, out, "Ana Ruiz")
	assert.Contains(t, out, "Top Models")
}

func TestLoginRejected(t *testing.T) {
	a := newApp(t)
	m := a.start(t)

	m = a.typeText(m, testUser)
	m = a.send(m, tuitest.KeyTab())
	m = a.typeText(m, "wrong")
	m = a.send(m, tuitest.KeyEnter())

	assert.Equal(t, viewmodel.ScreenLogin, m.Screen())
	assert.Contains(t, a.output(m), session.LoginFailedMessage)
	assert.Empty(t, m.password.Value(), "password is cleared after a failed attempt")
	assert.False(t, a.store.IsAuthenticated(context.Background()))
}

func TestPersistedSessionSkipsLogin(t *testing.T) {
	a := newApp(t)
	a.login(t)
	m := a.start(t)

	assert.Equal(t, viewmodel.ScreenDashboard, m.Screen())
	assert.Equal(t, dashboard.StateReady, a.dash.State())
}

func TestDashboardNavigation(t *testing.T) {
	a := newApp(t)
	a.login(t)
	m := a.start(t)

	m = a.send(m, tuitest.KeyRight())
	view := a.dash.View()
	assert.Equal(t, "february", view.Month)
	assert.Contains(t, a.output(m), "February 2025")

	m = a.send(m, tuitest.KeyRight())
	assert.Equal(t, "february", a.dash.View().Month, "no month after the last one")

	m = a.send(m, tuitest.KeyPress("["))
	view = a.dash.View()
	assert.Equal(t, 2024, view.Year)
	assert.Equal(t, "november", view.Month)
	assert.Contains(t, a.output(m), "November 2024")

	m = a.send(m, tuitest.KeyPress("m"))
	assert.Equal(t, dashboard.RankByAvgGross, a.dash.RankingMetric())
	for range dashboard.RankingMetrics[1:] {
		m = a.send(m, tuitest.KeyPress("m"))
	}
	assert.Equal(t, dashboard.RankByUnits, a.dash.RankingMetric(), "metric wraps around")
}

func TestCustomizeCards(t *testing.T) {
	a := newApp(t)
	a.login(t)
	m := a.start(t)

	m = a.send(m, tuitest.KeyPress("c"))
	out := a.output(m)
	assert.Contains(t, out, "Choose the cards to show")
	assert.Contains(t, out, "[x] Total Units Sold")

	m = a.send(m, tuitest.KeyPress(" "))
	assert.False(t, a.dash.IsVisible(dashboard.KPITotalUnits))
	assert.Contains(t, a.output(m), "[ ] Total Units Sold")

	m = a.send(m, tuitest.KeyDown(), tuitest.KeyPress(" "), tuitest.KeyEsc())
	assert.False(t, a.dash.IsVisible(dashboard.KPIUnitsPerSalesperson))

	out = a.output(m)
	assert.NotContains(t, out, "Total Units Sold")
	assert.NotContains(t, out, "Avg Units Per Salesperson")
	assert.Contains(t, out, "Avg Gross Per Unit")
}

func TestUploadDealSummaryThenViewInMasterSheet(t *testing.T) {
	a := newApp(t)
	a.login(t)
	m := a.start(t)
	path := writeDealSummary(t, "2002", "2025-11-20")

	m = a.send(m, tuitest.KeyTab())
	require.Equal(t, viewmodel.ScreenUpload, m.Screen())
	assert.Contains(t, a.output(m), "Upload · Deal Summary")

	m = a.typeText(m, path)
	m = a.send(m, tuitest.KeyEnter())

	out := a.output(m)
	assert.Contains(t, out, "Deal 2002 added to Nov")
	assert.Contains(t, out, "ctrl+g")

	assert.Nil(t, a.viewer.View().Snapshot, "sheet not fetched until asked")

	m = a.send(m, tuitest.KeyCtrl("g"))
	require.Equal(t, viewmodel.ScreenMasterSheet, m.Screen())

	view := a.viewer.View()
	assert.Equal(t, "Nov", view.Selected)
	assert.Equal(t, []int{1}, view.Highlighted)
	assert.Equal(t, 1, m.rowOffset, "scrolled to the new deal")

	out = a.output(m)
	assert.Contains(t, out, "Latest deal 2002")
	assert.Contains(t, tuitest.LineWith(out, "Jordan Blake"), "★")
	assert.NotContains(t, tuitest.LineWith(out, "Lee"), "★")
}

// slowUploader holds deal summaries back for delay before passing them on.
type slowUploader struct {
	upload.Uploader
	delay       time.Duration
	hadDeadline bool
}

func (s *slowUploader) ProcessDealSummary(ctx context.Context, file api.FileUpload) (*model.DealSummaryUploadResult, error) {
	_, s.hadDeadline = ctx.Deadline()
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.Uploader.ProcessDealSummary(ctx, file)
}

func TestSlowUploadHasNoDeadlineByDefault(t *testing.T) {
	a := newApp(t)
	a.login(t)
	slow := &slowUploader{Uploader: a.client, delay: 200 * time.Millisecond}
	a.ingestor = upload.NewIngestor(slow, a.db)
	m := a.start(t)

	m = a.send(m, tuitest.KeyTab())
	m = a.typeText(m, writeDealSummary(t, "2003", "2025-11-21"))
	m = a.send(m, tuitest.KeyEnter())

	assert.False(t, slow.hadDeadline, "uploads run until done unless a deadline is configured")
	assert.Contains(t, a.output(m), "Deal 2003 added to Nov")
	assert.Equal(t, upload.PhaseSucceeded, m.attempt.Phase())
}

func TestUploadDeadlineIsOptIn(t *testing.T) {
	a := newApp(t)
	a.login(t)
	slow := &slowUploader{Uploader: a.client, delay: 2 * time.Second}
	a.ingestor = upload.NewIngestor(slow, a.db)
	m := a.start(t, WithTimeouts(0, 20*time.Millisecond))

	m = a.send(m, tuitest.KeyTab())
	m = a.typeText(m, writeDealSummary(t, "2004", "2025-11-22"))
	m = a.send(m, tuitest.KeyEnter())

	assert.True(t, slow.hadDeadline)
	assert.Equal(t, upload.PhaseFailed, m.attempt.Phase())
	for _, req := range a.server.Requests() {
		assert.NotEqual(t, "/api/deal-summary/process", req.Path)
	}
}

func TestUploadRejectedLocally(t *testing.T) {
	a := newApp(t)
	a.login(t)
	m := a.start(t)

	path := filepath.Join(t.TempDir(), "deal.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))

	m = a.send(m, tuitest.KeyTab())
	m = a.typeText(m, path)
	m = a.send(m, tuitest.KeyEnter())

	assert.Contains(t, a.output(m), upload.DealSummaryPolicy.ExtensionMessage)
	for _, req := range a.server.Requests() {
		assert.NotEqual(t, "/api/deal-summary/process", req.Path)
	}
}

func TestRawUploadNeedsStorage(t *testing.T) {
	a := newApp(t, apitest.WithStorageConfigured(false))
	a.login(t)
	m := a.start(t)

	path := filepath.Join(t.TempDir(), "inventory.csv")
	require.NoError(t, os.WriteFile(path, []byte("vin,model\n1,CR-V\n"), 0o600))

	m = a.send(m, tuitest.KeyTab(), tuitest.KeyCtrl("t"))
	out := a.output(m)
	assert.Contains(t, out, "Upload · Raw File to Storage")
	assert.Contains(t, out, "Storage not configured")

	m = a.typeText(m, path)
	m = a.send(m, tuitest.KeyEnter())
	assert.Contains(t, a.output(m), "File storage is not configured on the server")
	assert.Empty(t, a.server.Objects())

	a.server.SetStorageConfigured(true)
	m = a.send(m, tuitest.KeyShiftTab(), tuitest.KeyTab())
	m = a.send(m, tuitest.KeyEnter())
	assert.Len(t, a.server.Objects(), 1)
	assert.Contains(t, a.output(m), "Stored as uploads/")
}

func TestRevokedTokenReturnsToLogin(t *testing.T) {
	a := newApp(t)
	a.login(t)
	m := a.start(t)

	token, err := a.store.Token(context.Background())
	require.NoError(t, err)
	require.NoError(t, a.server.RevokeToken(token))

	m = a.send(m, tuitest.KeyTab())

	assert.Equal(t, viewmodel.ScreenLogin, m.Screen())
	assert.Contains(t, a.output(m), "Your session has expired. Please sign in again.")
	assert.False(t, a.store.IsAuthenticated(context.Background()))
}

func TestLogout(t *testing.T) {
	a := newApp(t)
	a.login(t)
	m := a.start(t)

	m = a.send(m, tuitest.KeyCtrl("o"))

	assert.Equal(t, viewmodel.ScreenLogin, m.Screen())
	assert.False(t, a.store.IsAuthenticated(context.Background()))
	assert.NotContains(t, a.output(m), "expired")
}

func TestLoggedOutElsewhere(t *testing.T) {
	a := newApp(t)
	a.login(t)
	m := a.start(t)

	m = a.send(m, loggedOutMsg{reason: session.ReasonUnauthorized})

	assert.Equal(t, viewmodel.ScreenLogin, m.Screen())
	assert.True(t, m.username.Focused())
	assert.Contains(t, a.output(m), "Please sign in again")
}

func TestMasterSheetTabsAndDownload(t *testing.T) {
	a := newApp(t)
	a.login(t)
	m := a.start(t)

	m = a.send(m, tuitest.KeyShiftTab())
	require.Equal(t, viewmodel.ScreenMasterSheet, m.Screen())
	assert.Equal(t, "Nov", a.viewer.View().Selected)
	assert.Contains(t, a.output(m), "Lee")

	m = a.send(m, tuitest.KeyLeft())
	assert.Equal(t, "Oct", a.viewer.View().Selected)
	assert.Contains(t, a.output(m), "0990")

	m = a.send(m, tuitest.KeyPress("n"))
	assert.Contains(t, a.output(m), "No newly added deal on this sheet")

	m = a.send(m, tuitest.KeyPress("d"))
	require.Len(t, a.opened, 1)
	assert.Contains(t, a.opened[0], "/downloads/")
	assert.Contains(t, a.output(m), "Download link opened: "+a.opened[0])
}

func TestSheetFailureShowsServerMessage(t *testing.T) {
	a := newApp(t)
	a.login(t)
	m := a.start(t)

	a.server.FailWith("/api/master-sheet/data", 500, "Master sheet not found in S3")
	m = a.send(m, tuitest.KeyShiftTab())

	out := a.output(m)
	assert.Contains(t, out, "Master sheet not found in S3")
	assert.Contains(t, out, "Press r to retry.")

	a.server.ClearFailures()
	m = a.send(m, tuitest.KeyPress("r"))
	assert.Contains(t, a.output(m), "Lee")
}

func TestQuit(t *testing.T) {
	a := newApp(t)
	a.login(t)
	m := a.start(t)

	m = a.send(m, tuitest.KeyPress("q"))
	assert.True(t, a.renderer.Quit)
	assert.Empty(t, m.View())
}
