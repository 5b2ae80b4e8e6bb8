// Package dashboard holds the KPI dashboard state: year and month
// selection, the loaded snapshot, visible cards and the salesperson ranking.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/Veraticus/showroom/internal/common"
	"github.com/Veraticus/showroom/internal/model"
)

// LoadFailedMessage is shown whenever a KPI fetch fails.
const LoadFailedMessage = "Failed to load KPI data. Please make sure the backend is running."

// Dashboard errors.
var (
	ErrUnknownKPI    = errors.New("unknown KPI")
	ErrUnknownMetric = errors.New("unknown ranking metric")
	ErrUnknownMonth  = errors.New("month not available for the selected year")
	ErrInvalidYear   = errors.New("year must be positive")
)

// KPISource is the subset of the API client the dashboard reads from.
type KPISource interface {
	ListYears(ctx context.Context) ([]int, error)
	ListMonths(ctx context.Context, year int) ([]string, error)
	GetKPIs(ctx context.Context, year int, month string) (*model.KPISnapshot, error)
}

// State is the dashboard load state.
type State int

// Dashboard states.
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

// View is a consistent copy of the controller state for rendering.
type View struct {
	Snapshot *model.KPISnapshot
	Error    string
	Month    string
	Years    []int
	Months   []string
	Year     int
	State    State
}

// Controller drives the dashboard. Its methods may be called from several
// goroutines; only the most recently started load may change state.
type Controller struct {
	source     KPISource
	logger     *slog.Logger
	hidden     map[KPIID]bool
	snapshot   *model.KPISnapshot
	ranking    RankingMetric
	month      string
	errMsg     string
	years      []int
	months     []string
	year       int
	generation uint64
	state      State
	mu         sync.Mutex
}

// NewController creates an idle controller reading from source.
func NewController(source KPISource, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		source:  source,
		logger:  logger,
		hidden:  make(map[KPIID]bool),
		ranking: RankByUnits,
	}
}

// Start loads the year list, selects the most recent year and its first
// month, and loads that snapshot.
func (c *Controller) Start(ctx context.Context) error {
	gen := c.begin(func() {
		c.years = nil
		c.months = nil
		c.year = 0
		c.month = ""
	})

	years, err := c.source.ListYears(ctx)
	if err != nil {
		return c.fail(gen, err)
	}

	latest := 0
	for _, y := range years {
		latest = max(latest, y)
	}

	if !c.apply(gen, func() {
		c.years = slices.Clone(years)
		c.year = latest
	}) {
		return nil
	}

	if latest == 0 {
		c.finish(gen, nil)
		return nil
	}
	return c.loadMonths(ctx, gen, latest)
}

// SelectYear switches year, reloads its months and resets the month to the
// first one available.
func (c *Controller) SelectYear(ctx context.Context, year int) error {
	if year <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}

	gen := c.begin(func() {
		c.year = year
		c.months = nil
		c.month = ""
	})
	return c.loadMonths(ctx, gen, year)
}

// SelectMonth loads the snapshot for month in the current year.
func (c *Controller) SelectMonth(ctx context.Context, month string) error {
	c.mu.Lock()
	known := slices.Contains(c.months, month)
	year := c.year
	c.mu.Unlock()

	if !known {
		return fmt.Errorf("%w: %q", ErrUnknownMonth, month)
	}

	gen := c.begin(func() {
		c.month = month
	})
	return c.loadSnapshot(ctx, gen, year, month)
}

// Retry repeats whichever load last failed for the current selection.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	year, month, hasMonths := c.year, c.month, c.months != nil
	c.mu.Unlock()

	switch {
	case year == 0:
		return c.Start(ctx)
	case !hasMonths || month == "":
		return c.SelectYear(ctx, year)
	default:
		gen := c.begin(func() {})
		return c.loadSnapshot(ctx, gen, year, month)
	}
}

func (c *Controller) loadMonths(ctx context.Context, gen uint64, year int) error {
	months, err := c.source.ListMonths(ctx, year)
	if err != nil {
		return c.fail(gen, err)
	}

	first := ""
	if len(months) > 0 {
		first = months[0]
	}
	if !c.apply(gen, func() {
		c.months = slices.Clone(months)
		c.month = first
	}) {
		return nil
	}

	if first == "" {
		c.finish(gen, nil)
		return nil
	}
	return c.loadSnapshot(ctx, gen, year, first)
}

func (c *Controller) loadSnapshot(ctx context.Context, gen uint64, year int, month string) error {
	snap, err := c.source.GetKPIs(ctx, year, month)
	if err != nil {
		return c.fail(gen, err)
	}
	c.finish(gen, snap)
	return nil
}

// begin starts a new load generation and moves to Loading.
func (c *Controller) begin(reset func()) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.state = StateLoading
	c.errMsg = ""
	c.snapshot = nil
	reset()
	return c.generation
}

// apply runs fn only if gen is still current.
func (c *Controller) apply(gen uint64, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		c.logger.Debug("Discarding stale dashboard response", "generation", gen, "current", c.generation)
		return false
	}
	fn()
	return true
}

func (c *Controller) finish(gen uint64, snap *model.KPISnapshot) {
	c.apply(gen, func() {
		c.snapshot = snap
		c.state = StateReady
	})
}

func (c *Controller) fail(gen uint64, err error) error {
	c.apply(gen, func() {
		if errors.Is(err, common.ErrUnauthorized) {
			c.state = StateLoggedOut
			c.errMsg = common.Message(err, "")
			return
		}
		c.state = StateFailed
		c.errMsg = LoadFailedMessage
	})
	if !errors.Is(err, common.ErrUnauthorized) {
		c.logger.Warn("Failed to load KPI data", "error", err)
	}
	return err
}

// View returns a copy of the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	return View{
		State:    c.state,
		Error:    c.errMsg,
		Years:    slices.Clone(c.years),
		Months:   slices.Clone(c.months),
		Year:     c.year,
		Month:    c.month,
		Snapshot: c.snapshot,
	}
}

// State returns the current load state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ToggleKPI flips the visibility of one card.
func (c *Controller) ToggleKPI(id KPIID) error {
	if _, err := ParseKPIID(string(id)); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.hidden[id] = !c.hidden[id]
	return nil
}

// SetVisible shows or hides one card.
func (c *Controller) SetVisible(id KPIID, visible bool) error {
	if _, err := ParseKPIID(string(id)); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.hidden[id] = !visible
	return nil
}

// IsVisible reports whether a card is shown.
func (c *Controller) IsVisible(id KPIID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.hidden[id]
}

// VisibleKPIs lists the shown cards in display order.
func (c *Controller) VisibleKPIs() []KPIID {
	c.mu.Lock()
	defer c.mu.Unlock()

	visible := make([]KPIID, 0, len(AllKPIs))
	for _, id := range AllKPIs {
		if !c.hidden[id] {
			visible = append(visible, id)
		}
	}
	return visible
}

// SetRankingMetric chooses the figure that orders the ranking.
func (c *Controller) SetRankingMetric(metric RankingMetric) error {
	if _, err := ParseRankingMetric(string(metric)); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.ranking = metric
	return nil
}

// RankingMetric returns the current ranking metric.
func (c *Controller) RankingMetric() RankingMetric {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ranking
}

// Ranking orders the loaded snapshot's salespeople by the current metric.
func (c *Controller) Ranking() []RankedSalesperson {
	c.mu.Lock()
	snap, metric := c.snapshot, c.ranking
	c.mu.Unlock()

	if snap == nil {
		return nil
	}
	return Rank(snap.TopSalespeople, metric)
}

// Cards returns the visible cards for the loaded snapshot.
func (c *Controller) Cards() []Card {
	c.mu.Lock()
	snap := c.snapshot
	c.mu.Unlock()

	return FilterCards(BuildCards(snap), c.IsVisible)
}
