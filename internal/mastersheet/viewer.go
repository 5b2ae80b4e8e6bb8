// Package mastersheet is the master-sheet viewer: sheet selection, the
// loaded snapshot and the latest-deal row highlight.
package mastersheet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/Veraticus/showroom/internal/common"
	"github.com/Veraticus/showroom/internal/model"
	"github.com/Veraticus/showroom/internal/service"
)

// DefaultSheet is selected on load when the server offers it.
const DefaultSheet = "Nov"

// User-facing failure messages.
const (
	LoadFailedMessage     = "Failed to fetch master sheet data"
	SheetsFailedMessage   = "Failed to fetch sheets"
	DownloadFailedMessage = "Failed to generate download link"
)

// Viewer errors.
var (
	ErrUnknownSheet = errors.New("sheet not available")
	ErrNoSheets     = errors.New("no sheets available")
)

// SheetSource is the subset of the API client the viewer reads from.
type SheetSource interface {
	ListMasterSheets(ctx context.Context) ([]string, error)
	GetMasterSheet(ctx context.Context, sheet string) (*model.MasterSheetSnapshot, error)
	MasterSheetDownloadURL(ctx context.Context) (string, error)
}

// State is the viewer load state.
type State int

// Viewer states.
const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
	StateLoggedOut
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateLoading:
		return "Loading"
	case StateReady:
		return "Ready"
	case StateFailed:
		return "Failed"
	case StateLoggedOut:
		return "LoggedOut"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// View is a consistent copy of the viewer state for rendering.
type View struct {
	Snapshot    *model.MasterSheetSnapshot
	Latest      *model.LatestDeal
	Selected    string
	Error       string
	DownloadURL string
	Sheets      []string
	Highlighted []int
	State       State
}

// Option configures a Viewer.
type Option func(*Viewer)

// WithDefaultSheet changes the sheet selected on load.
func WithDefaultSheet(name string) Option {
	return func(v *Viewer) {
		if name != "" {
			v.defaultSheet = name
		}
	}
}

// WithLogger sets the viewer's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Viewer) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// Viewer drives the master-sheet screen. Only the most recently started
// fetch may change state.
type Viewer struct {
	source       SheetSource
	deals        service.LatestDealStore
	logger       *slog.Logger
	snapshot     *model.MasterSheetSnapshot
	latest       *model.LatestDeal
	defaultSheet string
	selected     string
	errMsg       string
	downloadURL  string
	sheets       []string
	generation   uint64
	state        State
	mu           sync.Mutex
}

// NewViewer creates a viewer. deals may be nil, in which case no row is
// ever highlighted.
func NewViewer(source SheetSource, deals service.LatestDealStore, opts ...Option) *Viewer {
	v := &Viewer{
		source:       source,
		deals:        deals,
		logger:       slog.Default(),
		defaultSheet: DefaultSheet,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Load fetches the sheet list, picks the default sheet (or the first one)
// and fetches it.
func (v *Viewer) Load(ctx context.Context) error {
	gen := v.begin()

	sheets, err := v.source.ListMasterSheets(ctx)
	if err != nil {
		return v.fail(gen, err, SheetsFailedMessage)
	}
	if len(sheets) == 0 {
		return v.fail(gen, ErrNoSheets, "No sheets available")
	}

	selected := sheets[0]
	if slices.Contains(sheets, v.defaultSheet) {
		selected = v.defaultSheet
	}

	if !v.apply(gen, func() {
		v.sheets = slices.Clone(sheets)
		v.selected = selected
	}) {
		return nil
	}
	return v.fetch(ctx, gen, selected)
}

// Select switches to another sheet and fetches it.
func (v *Viewer) Select(ctx context.Context, name string) error {
	v.mu.Lock()
	known := len(v.sheets) == 0 || slices.Contains(v.sheets, name)
	v.mu.Unlock()

	if strings.TrimSpace(name) == "" || !known {
		return fmt.Errorf("%w: %q", ErrUnknownSheet, name)
	}

	gen := v.begin()
	v.apply(gen, func() { v.selected = name })
	return v.fetch(ctx, gen, name)
}

// Refresh re-fetches the selected sheet and re-reads the latest-deal pointer.
func (v *Viewer) Refresh(ctx context.Context) error {
	v.mu.Lock()
	selected := v.selected
	v.mu.Unlock()

	if selected == "" {
		return v.Load(ctx)
	}

	gen := v.begin()
	return v.fetch(ctx, gen, selected)
}

func (v *Viewer) fetch(ctx context.Context, gen uint64, sheet string) error {
	snap, err := v.source.GetMasterSheet(ctx, sheet)
	if err != nil {
		return v.fail(gen, err, LoadFailedMessage)
	}

	latest := v.readLatest(ctx)
	v.apply(gen, func() {
		v.snapshot = snap
		v.latest = latest
		v.state = StateReady
	})
	return nil
}

func (v *Viewer) readLatest(ctx context.Context) *model.LatestDeal {
	if v.deals == nil {
		return nil
	}
	latest, err := v.deals.LatestDeal(ctx)
	if err != nil {
		v.logger.Warn("Could not read latest deal", "error", err)
		return nil
	}
	return latest
}

func (v *Viewer) begin() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.generation++
	v.state = StateLoading
	v.errMsg = ""
	return v.generation
}

func (v *Viewer) apply(gen uint64, fn func()) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if gen != v.generation {
		v.logger.Debug("Discarding stale master sheet response", "generation", gen, "current", v.generation)
		return false
	}
	fn()
	return true
}

func (v *Viewer) fail(gen uint64, err error, fallback string) error {
	v.apply(gen, func() {
		v.snapshot = nil
		if errors.Is(err, common.ErrUnauthorized) {
			v.state = StateLoggedOut
			v.errMsg = common.Message(err, fallback)
			return
		}
		v.state = StateFailed
		v.errMsg = common.Message(err, fallback)
	})
	return err
}

// Download requests a single-use export link and hands it to opener.
func (v *Viewer) Download(ctx context.Context, opener Opener) (string, error) {
	url, err := v.source.MasterSheetDownloadURL(ctx)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			v.mu.Lock()
			v.state = StateLoggedOut
			v.errMsg = common.Message(err, DownloadFailedMessage)
			v.mu.Unlock()
		}
		return "", common.NewUserError(DownloadFailedMessage, err)
	}

	v.mu.Lock()
	v.downloadURL = url
	v.mu.Unlock()

	if opener != nil {
		if err := opener.Open(ctx, url); err != nil {
			return url, fmt.Errorf("failed to open download link: %w", err)
		}
	}
	return url, nil
}

// IsNewlyAdded reports whether row i of the displayed sheet is the latest deal.
func (v *Viewer) IsNewlyAdded(i int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return IsNewlyAdded(v.snapshot, v.latest, i)
}

// View returns a copy of the current state.
func (v *Viewer) View() View {
	v.mu.Lock()
	defer v.mu.Unlock()

	return View{
		State:       v.state,
		Error:       v.errMsg,
		Sheets:      slices.Clone(v.sheets),
		Selected:    v.selected,
		Snapshot:    v.snapshot,
		Latest:      v.latest,
		DownloadURL: v.downloadURL,
		Highlighted: HighlightedRows(v.snapshot, v.latest),
	}
}

// IsNewlyAdded reports whether row i of snap is the row latest points at.
func IsNewlyAdded(snap *model.MasterSheetSnapshot, latest *model.LatestDeal, i int) bool {
	return slices.Contains(HighlightedRows(snap, latest), i)
}

// HighlightedRows returns the row latest points at, as a slice of at most
// one index. The pointer must name the displayed sheet. The row at
// latest.RowIndex wins when its deal number matches (or nothing can be
// compared). If the sheet was re-sorted and that row holds another deal,
// the last row with the pointer's deal number is used instead. A deal
// number repeated elsewhere in the sheet is never flagged alongside it.
func HighlightedRows(snap *model.MasterSheetSnapshot, latest *model.LatestDeal) []int {
	if snap == nil || latest == nil {
		return nil
	}
	if name := snap.Name(); name == "" || latest.Month != name {
		return nil
	}

	inRange := latest.RowIndex >= 0 && latest.RowIndex < len(snap.Rows)
	col, hasCol := snap.DealNumberColumn()
	want := dealKey(latest.DealNumber)
	if !hasCol || want == "" {
		if inRange {
			return []int{latest.RowIndex}
		}
		return nil
	}

	matches := func(i int) bool { return dealKey(snap.Rows[i].Value(col)) == want }
	if inRange && matches(latest.RowIndex) {
		return []int{latest.RowIndex}
	}
	for i := len(snap.Rows) - 1; i >= 0; i-- {
		if matches(i) {
			return []int{i}
		}
	}
	return nil
}

// dealKey normalizes a deal number cell so 1042, 1042.0 and " 1042 " compare equal.
func dealKey(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.ToUpper(strings.TrimSpace(val))
	case float64:
		if val == math.Trunc(val) && !math.IsInf(val, 0) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return strings.ToUpper(strings.TrimSpace(fmt.Sprint(val)))
	}
}
