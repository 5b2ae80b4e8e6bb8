package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/showroom/internal/dashboard"
	"github.com/Veraticus/showroom/internal/format"
	"github.com/Veraticus/showroom/internal/mastersheet"
	"github.com/Veraticus/showroom/internal/model"
	"github.com/Veraticus/showroom/internal/tui/viewmodel"
	"github.com/Veraticus/showroom/internal/upload"
)

const (
	appTitle      = "Dealership Analytics"
	barWidth      = 24
	labelWidth    = 16
	maxCellWidth  = 18
	rankingLimit  = 10
	chromeHeight  = 6
	cardMinWidth  = 30
	newRowMarker  = "★ "
	rowMarkerNone = "  "
)

// View renders the current page.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.screen == viewmodel.ScreenLogin {
		return m.renderLogin()
	}

	body := ""
	switch m.screen {
	case viewmodel.ScreenDashboard:
		body = m.renderDashboard()
	case viewmodel.ScreenUpload:
		body = m.renderUpload()
	case viewmodel.ScreenMasterSheet:
		body = m.renderMasterSheet()
	}

	parts := []string{m.renderHeader(), body}
	if m.notice != "" {
		parts = append(parts, "", m.statusStyle(m.noticeStatus).Render(m.notice))
	}
	parts = append(parts, "", m.renderHelp())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderLogin() string {
	field := func(label string, value string, focused bool) string {
		style := m.theme.Subtitle
		if focused {
			style = m.theme.Bold
		}
		return style.Render(fmt.Sprintf("%-10s", label)) + " " + value
	}

	lines := []string{
		m.theme.Title.Render(appTitle),
		m.theme.Subtitle.Render("Sign in to continue"),
		"",
		field("Username", m.username.View(), m.username.Focused()),
		field("Password", m.password.View(), m.password.Focused()),
		"",
	}
	switch {
	case m.loggingIn:
		lines = append(lines, m.theme.StatusPending.Render("Signing in..."))
	case m.loginErr != "":
		lines = append(lines, m.theme.StatusError.Render(m.loginErr))
	}
	lines = append(lines, "", m.help.ShortHelpView(m.keymap.ShortHelp(viewmodel.ScreenLogin)))

	box := m.theme.RoundedBox.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) renderHeader() string {
	tabs := make([]string, 0, len(viewmodel.Screens))
	for _, s := range viewmodel.Screens {
		style := m.theme.Tab
		if s == m.screen {
			style = m.theme.TabActive
		}
		tabs = append(tabs, style.Render(s.String()))
	}

	title := m.theme.Bold.Render(appTitle)
	user := ""
	if m.user != "" {
		user = m.theme.Subtitle.Render("  signed in as " + m.user)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		title+user,
		lipgloss.JoinHorizontal(lipgloss.Top, tabs...),
		"",
	)
}

func (m Model) renderHelp() string {
	if m.help.ShowAll {
		return m.help.FullHelpView(m.keymap.FullHelp(m.screen))
	}
	return m.help.ShortHelpView(m.keymap.ShortHelp(m.screen))
}

func (m Model) statusStyle(status viewmodel.Status) lipgloss.Style {
	switch status {
	case viewmodel.StatusSuccess:
		return m.theme.StatusSuccess
	case viewmodel.StatusWarning:
		return m.theme.StatusWarning
	case viewmodel.StatusError:
		return m.theme.StatusError
	case viewmodel.StatusInfo:
		return m.theme.StatusInfo
	default:
		return m.theme.Normal
	}
}

// bodyHeight is the number of lines left for page content.
func (m Model) bodyHeight() int {
	return max(5, m.height-chromeHeight)
}

func (m Model) tableHeight() int {
	return max(1, m.bodyHeight()-6)
}

// clip shows height lines of content starting at offset.
func clip(content string, offset, height int) string {
	lines := strings.Split(content, "\n")
	offset = max(0, min(offset, len(lines)-1))
	end := min(len(lines), offset+height)
	return strings.Join(lines[offset:end], "\n")
}

func (m Model) renderDashboard() string {
	view := viewmodel.NewDashboardView(m.dash.View(), m.dash.Cards(), m.dash.Ranking(), m.dash.RankingMetric())

	var b strings.Builder
	b.WriteString(m.renderPeriodPicker(view))
	b.WriteString("\n\n")

	switch {
	case m.customizing:
		b.WriteString(m.renderCustomize())
		return b.String()
	case view.IsLoading():
		b.WriteString(m.theme.StatusPending.Render("Loading KPI data..."))
		return b.String()
	case view.State == dashboard.StateFailed || view.State == dashboard.StateLoggedOut:
		b.WriteString(m.theme.StatusError.Render(view.Error))
		b.WriteString("\n")
		b.WriteString(m.theme.Subtitle.Render("Press r to retry."))
		return b.String()
	case view.IsEmpty():
		b.WriteString(m.theme.Subtitle.Render("No KPI data available yet. Upload a deal summary to get started."))
		return b.String()
	case !view.HasSnapshot:
		return b.String()
	}

	for _, section := range view.Sections {
		b.WriteString(m.theme.Bold.Render(section.Title))
		b.WriteString("\n")
		b.WriteString(m.renderCards(section.Cards))
		b.WriteString("\n")
	}

	b.WriteString(m.renderRanking(view))
	b.WriteString(m.renderBars("Units by Vehicle Type", view.VehicleTypes))
	b.WriteString(m.renderBars("Top Models", view.TopModels))

	if view.Insights != "" {
		b.WriteString(m.theme.Bold.Render("Insights"))
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Width(max(20, m.width-4)).Render(view.Insights))
		b.WriteString("\n")
	}

	return clip(strings.TrimRight(b.String(), "\n"), m.dashOffset, m.bodyHeight())
}

func (m Model) renderPeriodPicker(view viewmodel.DashboardView) string {
	years := make([]string, len(view.Years))
	for i, y := range view.Years {
		label := strconv.Itoa(y)
		if y == view.Year {
			label = m.theme.Selected.Render(" " + label + " ")
		}
		years[i] = label
	}

	months := make([]string, len(view.Months))
	for i, mo := range view.Months {
		label := format.Month(mo)
		if len(label) > 3 {
			label = label[:3]
		}
		if mo == view.Month {
			label = m.theme.Selected.Render(" " + label + " ")
		}
		months[i] = label
	}

	period := view.Period
	if period == "" {
		period = "No period selected"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.theme.Title.Render("KPI Dashboard · "+period),
		m.theme.Subtitle.Render("Year   ")+strings.Join(years, " "),
		m.theme.Subtitle.Render("Month  ")+strings.Join(months, " "),
	)
}

func (m Model) renderCards(cards []dashboard.Card) string {
	perRow := max(1, m.width/cardMinWidth)
	var rows []string
	for start := 0; start < len(cards); start += perRow {
		end := min(len(cards), start+perRow)
		tiles := make([]string, 0, end-start)
		for _, c := range cards[start:end] {
			tiles = append(tiles, m.theme.Card.Render(lipgloss.JoinVertical(lipgloss.Left,
				m.theme.Subtitle.Render(c.Title),
				m.theme.CardValue.Render(c.Value),
				lipgloss.NewStyle().Foreground(m.theme.Muted).Render(c.Subtitle),
			)))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, tiles...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) renderRanking(view viewmodel.DashboardView) string {
	if len(view.Ranking) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.theme.Bold.Render("Top Salespeople"))
	b.WriteString(m.theme.Subtitle.Render("  by " + view.MetricLabel))
	b.WriteString("\n")
	b.WriteString(m.theme.TableHeader.Render(fmt.Sprintf("%-4s %-24s %12s", "#", "Name", view.MetricLabel)))
	b.WriteString("\n")
	for _, r := range view.Ranking[:min(rankingLimit, len(view.Ranking))] {
		b.WriteString(fmt.Sprintf("%-4d %-24s %12s\n",
			r.Rank, viewmodel.TruncateString(r.Salesperson.Name, 24), r.Display))
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderBars(title string, rows []viewmodel.BarRow) string {
	if len(rows) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.theme.Bold.Render(title))
	b.WriteString("\n")
	for _, r := range rows {
		filled := min(barWidth, max(0, int(r.Fraction*barWidth)))
		bar := viewmodel.Bar(r.Fraction, barWidth)
		b.WriteString(fmt.Sprintf("%-*s ", labelWidth, viewmodel.TruncateString(r.Label, labelWidth)))
		b.WriteString(m.theme.ProgressFull.Render(string([]rune(bar)[:filled])))
		b.WriteString(m.theme.ProgressEmpty.Render(string([]rune(bar)[filled:])))
		b.WriteString(" " + r.Value + "\n")
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderCustomize() string {
	cards := dashboard.BuildCards(&model.KPISnapshot{})
	lines := []string{
		m.theme.Bold.Render("Choose the cards to show"),
		"",
	}
	for i, c := range cards {
		check := "[ ]"
		if m.dash.IsVisible(c.ID) {
			check = "[x]"
		}
		line := fmt.Sprintf("%s %s", check, c.Title)
		if i == m.cardCursor {
			line = m.theme.Selected.Render(line)
		}
		lines = append(lines, line)
	}
	lines = append(lines, "", m.theme.Subtitle.Render("space toggles, esc closes"))
	return strings.Join(lines, "\n")
}

func (m Model) renderUpload() string {
	policy, _ := upload.PolicyFor(m.kind)
	view := viewmodel.NewUploadView(m.kind, m.attempt, policy)
	view.Storage = m.storage
	view.Checking = m.checking
	view.Sent, view.Elapsed = m.sent, viewmodel.FormatDuration(m.elapsed)
	if m.total > 0 {
		view.Total = m.total
	}
	if m.uploading {
		view.Phase = upload.PhaseUploading
	}

	kinds := make([]string, len(viewmodel.UploadKinds))
	for i, k := range viewmodel.UploadKinds {
		style := m.theme.Tab
		if k == m.kind {
			style = m.theme.TabActive
		}
		kinds[i] = style.Render(viewmodel.KindTitle(k))
	}

	lines := []string{
		m.theme.Title.Render("Upload · " + view.Title),
		lipgloss.JoinHorizontal(lipgloss.Top, kinds...),
		"",
		m.theme.Subtitle.Render("Accepts " + view.Hint),
	}

	if view.Kind == model.UploadRawFile {
		lines = append(lines, m.renderStorage(view))
	}

	lines = append(lines, "", m.theme.Bold.Render("File  ")+m.path.View(), "")

	switch {
	case view.Busy():
		pct := int(view.Progress() * 100)
		lines = append(lines,
			m.theme.StatusInfo.Render("Uploading "+view.File+"..."),
			fmt.Sprintf("%s %3d%% (%s of %s)",
				m.theme.ProgressFull.Render(viewmodel.Bar(view.Progress(), 30)),
				pct, viewmodel.FormatBytes(view.Sent), viewmodel.FormatBytes(view.Total)),
		)
	case view.Message != "":
		lines = append(lines, m.statusStyle(view.Status()).Render(view.Message))
		if view.Phase == upload.PhaseFailed {
			lines = append(lines, m.theme.Subtitle.Render("Press enter to try again."))
		}
	}

	if deal := m.lastDeal; deal != nil && !m.uploading {
		lines = append(lines, m.renderDealResult(deal, view.Elapsed)...)
	}
	if stored := m.lastStored; stored != nil && !m.uploading && stored.S3Key != "" {
		lines = append(lines, m.theme.Subtitle.Render("Stored as "+stored.S3Key))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderStorage(view viewmodel.UploadView) string {
	switch {
	case view.Checking:
		return m.theme.StatusPending.Render("Checking storage...")
	case view.Storage == nil:
		return ""
	case view.StorageBlocked():
		return m.theme.StatusWarning.Render("Storage not configured: " + view.Storage.Message)
	default:
		return m.theme.StatusSuccess.Render("✓ " + view.Storage.Message)
	}
}

func (m Model) renderDealResult(deal *model.DealSummaryUploadResult, elapsed string) []string {
	if !deal.Success {
		return nil
	}

	var lines []string
	if deal.DuplicateWarning {
		lines = append(lines, m.theme.StatusWarning.Render("Deal "+deal.DealNumber+" is already in the master sheet."))
	} else if deal.MonthSheet != "" {
		lines = append(lines, m.theme.Normal.Render(fmt.Sprintf("Deal %s added to %s in %s.", deal.DealNumber, deal.MonthSheet, elapsed)))
	}
	if deal.KPIsUpdated {
		lines = append(lines, m.theme.Subtitle.Render("KPIs updated."))
	}
	if deal.MonthSheet != "" {
		lines = append(lines, m.theme.StatusInfo.Render("Press ctrl+g to view it in the master sheet."))
	}
	return lines
}

func (m Model) renderMasterSheet() string {
	view := m.viewer.View()

	tabs := make([]string, len(view.Sheets))
	for i, s := range view.Sheets {
		style := m.theme.Tab
		if s == view.Selected {
			style = m.theme.TabActive
		}
		tabs[i] = style.Render(s)
	}

	lines := []string{
		m.theme.Title.Render("Master Sheet"),
		lipgloss.JoinHorizontal(lipgloss.Top, tabs...),
		"",
	}

	switch view.State {
	case mastersheet.StateIdle, mastersheet.StateLoading:
		lines = append(lines, m.theme.StatusPending.Render("Loading master sheet..."))
		return strings.Join(lines, "\n")
	case mastersheet.StateFailed, mastersheet.StateLoggedOut:
		lines = append(lines, m.theme.StatusError.Render(view.Error), m.theme.Subtitle.Render("Press r to retry."))
		return strings.Join(lines, "\n")
	}

	table := viewmodel.NewSheetTable(view.Snapshot, view.Highlighted)
	summary := fmt.Sprintf("%s · %d rows · %d unique deals", table.Title, table.TotalRows, table.UniqueDeals)
	if table.Location != "" {
		summary += " · " + table.Location
	}
	lines = append(lines, m.theme.Subtitle.Render(summary))
	if latest := view.Latest; latest != nil && len(view.Highlighted) > 0 {
		lines = append(lines, m.theme.StatusSuccess.Render(
			fmt.Sprintf("%sLatest deal %s added %s", newRowMarker, latest.DealNumber, latest.Timestamp.Local().Format("Jan 2 15:04"))))
	}
	lines = append(lines, "")

	if len(table.Rows) == 0 {
		lines = append(lines, m.theme.Subtitle.Render("This sheet has no deals yet."))
		return strings.Join(lines, "\n")
	}

	widths := table.ColumnWidths(maxCellWidth)
	fit := lipgloss.NewStyle().MaxWidth(max(20, m.width))

	lines = append(lines, fit.Render(m.theme.TableHeader.Render(rowMarkerNone+joinCells(table.Columns, widths))))
	for _, row := range table.Window(m.rowOffset, m.tableHeight()) {
		text := joinCells(row.Cells, widths)
		if row.Highlighted {
			lines = append(lines, fit.Render(m.theme.NewRow.Render(newRowMarker+text)))
			continue
		}
		lines = append(lines, fit.Render(rowMarkerNone+text))
	}

	shown := min(len(table.Rows), m.rowOffset+m.tableHeight())
	lines = append(lines, m.theme.Subtitle.Render(fmt.Sprintf("rows %d-%d of %d", min(m.rowOffset+1, shown), shown, len(table.Rows))))
	if view.DownloadURL != "" {
		lines = append(lines, m.theme.Subtitle.Render("Last download link: "+view.DownloadURL))
	}
	return strings.Join(lines, "\n")
}

func joinCells(cells []string, widths []int) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		w := widths[i]
		parts[i] = fmt.Sprintf("%-*s", w, viewmodel.TruncateString(cell, w))
	}
	return strings.Join(parts, "  ")
}
