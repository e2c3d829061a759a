package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/planweave/planweave/internal/plan"
)

var (
	styleTitle    = lipgloss.NewStyle().Bold(true)
	styleHeader   = lipgloss.NewStyle().Faint(true)
	styleGrid     = lipgloss.NewStyle().Faint(true)
	styleBar      = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	styleViolated = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	styleSelected = lipgloss.NewStyle().Bold(true)
	styleStatus   = lipgloss.NewStyle().Faint(true)
)

func (m *ganttModel) View() string {
	var b strings.Builder

	title := "planweave"
	if m.file != nil && m.file.Project != nil && m.file.Project.Name != "" {
		title += " — " + m.file.Project.Name
	}
	dirty := ""
	if m.dirty {
		dirty = " *"
	}
	b.WriteString(styleTitle.Render(fmt.Sprintf("%s  [%s]%s", title, m.zoom, dirty)))
	b.WriteString("\n")

	if m.showHelp {
		writeHelp(&b)
		return b.String()
	}

	if m.loadErr != nil {
		b.WriteString("\nError loading plan file:\n")
		b.WriteString("  " + m.loadErr.Error() + "\n\n")
		b.WriteString(styleStatus.Render("r to retry | q to quit"))
		return b.String()
	}
	if m.file == nil {
		b.WriteString("\nLoading...\n")
		return b.String()
	}

	chartWidth := m.chartWidth()
	b.WriteString(m.renderDateHeader(chartWidth))
	b.WriteString("\n")
	b.WriteString(m.renderTickRow(chartWidth))
	b.WriteString("\n")

	for i := range m.file.Tasks {
		b.WriteString(m.renderRow(i, chartWidth))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderDetail())
	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(m.status)
		b.WriteString("\n")
	}
	b.WriteString(styleStatus.Render("drag bars with the mouse | a auto-schedule | L link | s save | ? help | q quit"))
	return b.String()
}

func (m *ganttModel) chartWidth() int {
	w := m.width - labelWidth
	if w < 10 {
		w = 60
	}
	return w
}

// renderDateHeader prints a month-day label at every week boundary of
// the visible window.
func (m *ganttModel) renderDateHeader(chartWidth int) string {
	cells := make([]rune, chartWidth)
	for i := range cells {
		cells[i] = ' '
	}
	week := 7 * m.scale.DayWidth
	for off := firstMultipleAtLeast(m.scrollX, week); off < m.scrollX+chartWidth; off += week {
		label := m.scale.OffsetToDate(off).String()[5:] // "MM-DD"
		pos := off - m.scrollX
		for j, r := range label {
			if pos+j >= chartWidth {
				break
			}
			cells[pos+j] = r
		}
	}
	return strings.Repeat(" ", labelWidth) + styleHeader.Render(string(cells))
}

// renderTickRow prints the grid line under the date labels.
func (m *ganttModel) renderTickRow(chartWidth int) string {
	return strings.Repeat(" ", labelWidth) + m.gridCells(m.scrollX, chartWidth)
}

func (m *ganttModel) renderRow(i, chartWidth int) string {
	t := &m.file.Tasks[i]

	marker := " "
	if m.violations[t.ID] {
		marker = "!"
	}
	label := fmt.Sprintf("%s %s %s", marker, t.ID, t.Name)
	if len(label) > labelWidth-1 {
		label = label[:labelWidth-1]
	}
	label = fmt.Sprintf("%-*s", labelWidth, label)

	labelStyle := lipgloss.NewStyle()
	if m.violations[t.ID] {
		labelStyle = styleViolated
	}
	if i == m.selected {
		labelStyle = labelStyle.Bold(true)
	}

	return labelStyle.Render(label) + m.renderBar(t, i == m.selected, chartWidth)
}

// renderBar draws one task's bar clipped to the visible window.
func (m *ganttModel) renderBar(t *plan.Task, selected bool, chartWidth int) string {
	barStart := m.scale.DateToOffset(t.Start)
	barEnd := m.scale.DateToOffset(t.End) + m.scale.DayWidth - 1

	winStart := m.scrollX
	winEnd := m.scrollX + chartWidth - 1

	// Clip to the window.
	segStart := barStart
	if segStart < winStart {
		segStart = winStart
	}
	segEnd := barEnd
	if segEnd > winEnd {
		segEnd = winEnd
	}

	if segStart > winEnd || segEnd < winStart {
		return m.gridCells(winStart, chartWidth)
	}

	before := m.gridCells(winStart, segStart-winStart)
	after := m.gridCells(segEnd+1, winEnd-segEnd)

	bar := strings.Repeat("█", segEnd-segStart+1)
	style := styleBar
	if t.Color != "" {
		style = lipgloss.NewStyle().Foreground(lipgloss.Color(t.Color))
	}
	if m.violations[t.ID] {
		style = styleViolated
	}
	if selected {
		style = style.Bold(true)
	}
	if m.session != nil && m.session.Active() && m.session.TaskID() == t.ID {
		style = style.Reverse(true)
	}

	return before + style.Render(bar) + after
}

// gridCells renders n background cells starting at absolute offset abs.
func (m *ganttModel) gridCells(abs, n int) string {
	if n <= 0 {
		return ""
	}
	cells := make([]rune, n)
	week := 7 * m.scale.DayWidth
	for i := range cells {
		a := abs + i
		switch {
		case a%week == 0:
			cells[i] = '|'
		case a%m.scale.DayWidth == 0 && m.scale.DayWidth > 1:
			cells[i] = '.'
		default:
			cells[i] = ' '
		}
	}
	return styleGrid.Render(string(cells))
}

func (m *ganttModel) renderDetail() string {
	if m.file == nil || m.selected < 0 || m.selected >= len(m.file.Tasks) {
		return ""
	}
	t := &m.file.Tasks[m.selected]
	detail := fmt.Sprintf("%s  %s .. %s (%dd)", t.ID, t.Start, t.End, t.Days())
	if len(t.Deps) > 0 {
		detail += "  after: " + strings.Join(t.Deps, ", ")
	}
	if m.violations[t.ID] {
		detail += "  " + styleViolated.Render("starts before a predecessor ends")
	}
	return detail
}

func writeHelp(b *strings.Builder) {
	b.WriteString("\nKeyboard & Mouse\n\n")
	b.WriteString("  drag bar body      Move task\n")
	b.WriteString("  drag bar edge      Resize start/end\n")
	b.WriteString("  j/k, up/down       Select task\n")
	b.WriteString("  h/l, left/right    Scroll timeline\n")
	b.WriteString("  +/-                Zoom in/out\n")
	b.WriteString("  a                  Auto-schedule\n")
	b.WriteString("  L                  Link mode (toggle a dependency)\n")
	b.WriteString("  s                  Save plan\n")
	b.WriteString("  r                  Reload plan\n")
	b.WriteString("  ?                  Toggle this help\n")
	b.WriteString("  q, ctrl+c          Quit\n")
}

// firstMultipleAtLeast returns the smallest multiple of step >= v.
func firstMultipleAtLeast(v, step int) int {
	if step <= 0 {
		return v
	}
	r := v % step
	if r == 0 {
		return v
	}
	return v + step - r
}
