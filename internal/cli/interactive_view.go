package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"audio-batch-converter/internal/model"
)

func (m interactiveModel) View() string {
	if m.fatalErr != nil {
		return interactiveErrorStyle.Render("fatal: " + m.fatalErr.Error())
	}
	if m.width <= 0 {
		m.width = 100
	}
	if m.height <= 0 {
		m.height = 30
	}

	switch m.mode {
	case interactiveModeConvert:
		return m.viewConvert()
	case interactiveModeSummary:
		return m.viewSummary()
	default:
		return m.viewForm()
	}
}

func (m interactiveModel) viewForm() string {
	if m.form == nil {
		return ""
	}
	header := interactiveTitleStyle.Render(m.form.Title)
	hints := interactiveMutedStyle.Render("tab/shift+tab or up/down: move | left/right/space: toggle | y/n: set yes/no | enter: next/start | ctrl+s: start | esc: quit")

	lines := make([]string, 0, len(m.form.Fields)+6)
	for i, f := range m.form.Fields {
		prefix := "  "
		if i == m.form.Index {
			prefix = "> "
		}
		display := strings.TrimSpace(f.Value)
		if f.Kind == interactiveFieldBool {
			v, _ := parseBool(display)
			display = yesNo(v)
		}
		if display == "" {
			display = interactiveMutedStyle.Render("(empty)")
		}
		if f.Kind == interactiveFieldSelect {
			display = "[" + display + "]"
		}
		line := fmt.Sprintf("%s%s: %s", prefix, f.Label, display)
		lines = append(lines, wrapOrTrim(line, maxInt(m.width-6, 20)))
	}

	curr := m.form.currentField()
	inputLabel := fmt.Sprintf("\n%s\n", curr.Label)
	inputHelp := ""
	if strings.TrimSpace(curr.Help) != "" {
		inputHelp = interactiveMutedStyle.Render(curr.Help) + "\n"
	}
	input := m.form.Input.View()
	status := ""
	if m.form.Busy {
		status = interactiveMutedStyle.Render("\nScanning inputs...")
	}
	if strings.TrimSpace(m.form.Error) != "" {
		status = "\n" + interactiveErrorStyle.Render(m.form.Error)
	}

	panel := interactivePanelStyle.Width(maxInt(m.width, 40)).Render(strings.Join(lines, "\n") + inputLabel + inputHelp + input + status)
	return lipgloss.JoinVertical(lipgloss.Left, header, hints, panel)
}

func (m interactiveModel) viewConvert() string {
	header := interactiveTitleStyle.Render("Converting "+fmt.Sprintf("%d file(s)", len(m.rows))) + "\n" +
		interactiveMutedStyle.Render("q or esc: stop the batch")

	barW := clampInt(m.width/4, 10, 30)
	maxRows := clampInt(m.height-12, 4, 24)
	anchor := 0
	for i, r := range m.rows {
		if r.status == model.StatusRunning || r.status == model.StatusPending {
			anchor = i
			break
		}
	}
	start, end := listWindow(len(m.rows), anchor, maxRows)

	lines := make([]string, 0, maxRows+2)
	if start > 0 {
		lines = append(lines, interactiveMutedStyle.Render("..."))
	}
	for i := start; i < end; i++ {
		lines = append(lines, wrapOrTrim(m.renderJobRow(i, barW), maxInt(m.width-6, 20)))
	}
	if end < len(m.rows) {
		lines = append(lines, interactiveMutedStyle.Render("..."))
	}
	panel := interactivePanelStyle.Width(maxInt(m.width, 40)).Render(strings.Join(lines, "\n"))

	done, failed, skipped := m.rowCounts()
	overall := fmt.Sprintf("overall %s %5.1f%%  done %d/%d", renderBar(barW, m.overall), m.overall, done, len(m.rows))
	if failed > 0 {
		overall += interactiveErrorStyle.Render(fmt.Sprintf("  failed %d", failed))
	}
	if skipped > 0 {
		overall += interactiveMutedStyle.Render(fmt.Sprintf("  skipped %d", skipped))
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, panel, overall, m.renderStatusLine())
}

func (m interactiveModel) renderJobRow(i, barW int) string {
	r := m.rows[i]
	name := truncateRunes(m.names[i], 32)
	label := fmt.Sprintf("[%d/%d] %-32s", i+1, len(m.rows), name)

	switch r.status {
	case model.StatusPending:
		return label + " " + interactiveMutedStyle.Render("waiting")
	case model.StatusSkipped:
		return label + " " + interactiveMutedStyle.Render("skipped, output exists")
	case model.StatusCompleted:
		return fmt.Sprintf("%s %s %s", label, renderBar(barW, 100), interactiveOKStyle.Render("completed"))
	case model.StatusFailed:
		reason := defaultIfEmpty(r.info, "conversion failed")
		return fmt.Sprintf("%s %s", label, interactiveErrorStyle.Render("failed: "+reason))
	default:
		info := defaultIfEmpty(r.info, "starting encoder")
		return fmt.Sprintf("%s %s %5.1f%%  %s", label, renderBar(barW, r.percent), r.percent, info)
	}
}

func (m interactiveModel) viewSummary() string {
	title := "Conversion Finished"
	if m.result.Stopped {
		title = "Conversion Stopped"
	}
	header := interactiveTitleStyle.Render(title)
	hints := interactiveMutedStyle.Render("n: new run | q/enter: quit")

	lines := []string{
		fmt.Sprintf("converted: %d", m.result.Counts.Completed),
		fmt.Sprintf("skipped: %d", m.result.Counts.Skipped),
		fmt.Sprintf("failed: %d", m.result.Counts.Failed),
		fmt.Sprintf("output folder: %s", m.plan.Cfg.OutputDir),
	}
	if m.result.Stopped {
		remaining := m.result.Counts.Total - m.result.Counts.Completed - m.result.Counts.Failed - m.result.Counts.Skipped
		lines = append(lines, fmt.Sprintf("not converted: %d", remaining))
	}
	if len(m.result.Failed) > 0 {
		lines = append(lines, "", interactiveErrorStyle.Render("failed files:"))
		shown := m.result.Failed
		if len(shown) > 8 {
			shown = shown[:8]
		}
		for _, f := range shown {
			lines = append(lines, "  "+wrapOrTrim(f, maxInt(m.width-10, 20)))
		}
		if len(m.result.Failed) > len(shown) {
			lines = append(lines, interactiveMutedStyle.Render(fmt.Sprintf("  ...and %d more", len(m.result.Failed)-len(shown))))
		}
	}

	boxW := clampInt(m.width-8, 40, 90)
	panel := interactivePanelStyle.Width(boxW).Render(strings.Join(lines, "\n"))
	body := lipgloss.JoinVertical(lipgloss.Left, header, hints, panel, m.renderStatusLine())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, body)
}

func (m interactiveModel) renderStatusLine() string {
	msg := strings.TrimSpace(m.statusMessage)
	if msg == "" {
		return ""
	}
	style := interactiveMutedStyle
	if strings.HasPrefix(strings.ToLower(msg), "error:") {
		style = interactiveErrorStyle
	}
	return style.Width(m.width).Render(truncateRunes(msg, maxInt(m.width-2, 10)))
}
