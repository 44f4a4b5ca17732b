package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"audio-batch-converter/internal/convert"
	"audio-batch-converter/internal/discovery"
	"audio-batch-converter/internal/model"
	"audio-batch-converter/internal/runlog"
)

type interactiveMode int

const (
	interactiveModeForm interactiveMode = iota
	interactiveModeConvert
	interactiveModeSummary
)

type interactivePreparedMsg struct {
	inputs  []string
	ignored int
	invalid int
	err     error
}

type interactiveStatusMsg struct {
	index  int
	status string
}

type interactiveProgressMsg struct {
	index   int
	percent float64
}

type interactiveInfoMsg struct {
	index int
	text  string
}

type interactiveJobErrorMsg struct {
	index   int
	message string
}

type interactiveOverallMsg struct {
	percent float64
}

type interactiveDoneMsg struct {
	result convert.Result
	err    error
}

type interactiveRecordMsg struct {
	err error
}

type interactiveJobRow struct {
	status  string
	percent float64
	info    string
}

var (
	interactiveTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	interactiveMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	interactiveErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	interactiveOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	interactivePanelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type interactiveModel struct {
	settingsPath string
	settings     discovery.Settings
	width        int
	height       int
	mode         interactiveMode
	form         *interactiveForm

	plan    interactiveRunPlan
	inputs  []string
	names   []string
	rows    []interactiveJobRow
	overall float64

	session  *convert.Session
	events   chan tea.Msg
	stopping bool

	result        convert.Result
	statusMessage string
	fatalErr      error
}

func runInteractive(args []string) error {
	fs := flag.NewFlagSet("interactive", flag.ContinueOnError)
	settingsPath := fs.String("settings", discovery.DefaultSettingsPath, "settings file path")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !stdinIsTTY() {
		return errors.New("interactive requires an interactive terminal (TTY)")
	}

	settings, _, err := discovery.EnsureSettings(*settingsPath)
	if err != nil {
		return err
	}
	m := interactiveModel{
		settingsPath: strings.TrimSpace(*settingsPath),
		settings:     settings,
		mode:         interactiveModeForm,
		form:         newInteractiveForm(settings, fs.Args(), 0),
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "tty") {
			return errors.New("interactive requires an interactive terminal (TTY)")
		}
		return err
	}
	if fm, ok := finalModel.(interactiveModel); ok {
		return fm.fatalErr
	}
	return nil
}

func (m interactiveModel) Init() tea.Cmd {
	return nil
}

func (m interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.form != nil {
			m.form = resizeFormInput(m.form, m.width)
		}
		return m, nil
	case interactivePreparedMsg:
		return m.handlePrepared(msg)
	case interactiveStatusMsg:
		if msg.index >= 0 && msg.index < len(m.rows) {
			m.rows[msg.index].status = msg.status
		}
		return m, waitForConversionEvent(m.events)
	case interactiveProgressMsg:
		if msg.index >= 0 && msg.index < len(m.rows) {
			m.rows[msg.index].percent = msg.percent
		}
		return m, waitForConversionEvent(m.events)
	case interactiveInfoMsg:
		if msg.index >= 0 && msg.index < len(m.rows) {
			m.rows[msg.index].info = msg.text
		}
		return m, waitForConversionEvent(m.events)
	case interactiveJobErrorMsg:
		if msg.index >= 0 && msg.index < len(m.rows) {
			m.rows[msg.index].info = lastLine(msg.message)
		}
		return m, waitForConversionEvent(m.events)
	case interactiveOverallMsg:
		m.overall = msg.percent
		return m, waitForConversionEvent(m.events)
	case interactiveDoneMsg:
		return m.handleDone(msg)
	case interactiveRecordMsg:
		if msg.err != nil {
			m.statusMessage = "error: run record not written: " + msg.err.Error()
		}
		return m, nil
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch m.mode {
	case interactiveModeForm:
		return m.updateFormKeys(keyMsg)
	case interactiveModeConvert:
		return m.updateConvertKeys(keyMsg)
	case interactiveModeSummary:
		return m.updateSummaryKeys(keyMsg)
	default:
		return m, nil
	}
}

func (m interactiveModel) updateFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.form == nil {
		return m, tea.Quit
	}
	if m.form.Busy {
		return m, nil
	}

	key := strings.ToLower(msg.String())
	switch key {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "shift+tab":
		m.form.commitInput()
		if m.form.Index > 0 {
			m.form.Index--
		}
		m.form.loadFieldIntoInput()
		return m, nil
	case "down", "tab":
		m.form.commitInput()
		if m.form.Index < len(m.form.Fields)-1 {
			m.form.Index++
		}
		m.form.loadFieldIntoInput()
		return m, nil
	case " ", "space":
		kind := m.form.currentField().Kind
		if kind == interactiveFieldBool {
			m.form.toggleBoolField()
			return m, nil
		}
		if kind == interactiveFieldSelect {
			m.form.nextSelectOption()
			return m, nil
		}
	case "left", "h":
		kind := m.form.currentField().Kind
		if kind == interactiveFieldBool {
			m.form.toggleBoolField()
			return m, nil
		}
		if kind == interactiveFieldSelect {
			m.form.prevSelectOption()
			return m, nil
		}
	case "right", "l":
		kind := m.form.currentField().Kind
		if kind == interactiveFieldBool {
			m.form.toggleBoolField()
			return m, nil
		}
		if kind == interactiveFieldSelect {
			m.form.nextSelectOption()
			return m, nil
		}
	case "y":
		if m.form.currentField().Kind == interactiveFieldBool {
			m.form.setBoolField(true)
			return m, nil
		}
	case "n":
		if m.form.currentField().Kind == interactiveFieldBool {
			m.form.setBoolField(false)
			return m, nil
		}
	case "enter", "ctrl+s":
		m.form.commitInput()
		if m.form.Index < len(m.form.Fields)-1 && key != "ctrl+s" {
			m.form.Index++
			m.form.loadFieldIntoInput()
			return m, nil
		}
		plan, err := m.form.toRunPlan(m.settings)
		if err != nil {
			m.form.Error = err.Error()
			return m, nil
		}
		m.form.Error = ""
		m.form.Busy = true
		m.plan = plan
		return m, prepareRunCmd(plan)
	}

	kind := m.form.currentField().Kind
	if kind == interactiveFieldBool || kind == interactiveFieldSelect {
		return m, nil
	}
	var cmd tea.Cmd
	m.form.Input, cmd = m.form.Input.Update(msg)
	m.form.Fields[m.form.Index].Value = m.form.Input.Value()
	return m, cmd
}

func (m interactiveModel) updateConvertKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		if m.session != nil && !m.stopping {
			m.stopping = true
			m.statusMessage = "stopping, waiting for active jobs to exit"
			m.session.Stop()
		}
		return m, nil
	}
	return m, nil
}

func (m interactiveModel) updateSummaryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc", "enter":
		return m, tea.Quit
	case "n":
		seed := m.settings
		seed.OutputDir = m.plan.Cfg.OutputDir
		seed.Format = m.plan.Cfg.Format
		seed.Bitrate = m.plan.Cfg.Bitrate
		seed.Workers = m.plan.Cfg.Workers
		seed.Overwrite = m.plan.Cfg.Overwrite
		m.form = newInteractiveForm(seed, m.plan.Paths, m.width)
		m.mode = interactiveModeForm
		m.statusMessage = ""
		return m, nil
	}
	return m, nil
}

func (m interactiveModel) handlePrepared(msg interactivePreparedMsg) (tea.Model, tea.Cmd) {
	if m.form != nil {
		m.form.Busy = false
	}
	if msg.err != nil {
		if m.form != nil {
			m.form.Error = msg.err.Error()
		}
		return m, nil
	}

	events := make(chan tea.Msg, 512)
	session, err := convert.New(convert.Options{
		Inputs:    msg.inputs,
		OutputDir: m.plan.Cfg.OutputDir,
		Format:    m.plan.Cfg.Format,
		Bitrate:   m.plan.Cfg.Bitrate,
		Overwrite: m.plan.Cfg.Overwrite,
		Workers:   m.plan.Cfg.Workers,
		Callbacks: conversionCallbacks(events),
	})
	if err != nil {
		if m.form != nil {
			m.form.Error = err.Error()
		}
		return m, nil
	}

	m.session = session
	m.events = events
	m.inputs = msg.inputs
	m.names = make([]string, len(msg.inputs))
	for i, input := range msg.inputs {
		m.names[i] = filepath.Base(input)
	}
	m.rows = make([]interactiveJobRow, len(msg.inputs))
	for i := range m.rows {
		m.rows[i].status = model.StatusPending
	}
	m.overall = 0
	m.stopping = false
	m.statusMessage = ""
	if msg.ignored > 0 || msg.invalid > 0 {
		m.statusMessage = fmt.Sprintf("dropped %d unsupported and %d invalid file(s)", msg.ignored, msg.invalid)
	}
	m.mode = interactiveModeConvert
	return m, tea.Batch(runSessionCmd(session, events), waitForConversionEvent(events))
}

func (m interactiveModel) handleDone(msg interactiveDoneMsg) (tea.Model, tea.Cmd) {
	m.session = nil
	m.result = msg.result
	m.mode = interactiveModeSummary
	if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
		m.fatalErr = msg.err
		return m, tea.Quit
	}
	if msg.result.Finished {
		return m, appendRecordCmd(m.plan.Cfg.LogPath, m.inputs, m.plan.Cfg.OutputDir, m.plan.Cfg.Format)
	}
	return m, nil
}

func (m interactiveModel) rowCounts() (done, failed, skipped int) {
	for _, r := range m.rows {
		switch r.status {
		case model.StatusCompleted:
			done++
		case model.StatusFailed:
			done++
			failed++
		case model.StatusSkipped:
			done++
			skipped++
		}
	}
	return done, failed, skipped
}

func prepareRunCmd(plan interactiveRunPlan) tea.Cmd {
	return func() tea.Msg {
		collected, err := discovery.CollectInputs(discovery.CollectOptions{
			Paths:     plan.Paths,
			Recursive: plan.Recursive,
			Probe:     plan.Probe,
		})
		if err != nil {
			return interactivePreparedMsg{err: err}
		}
		if len(collected.Inputs) == 0 {
			return interactivePreparedMsg{err: errors.New("no convertible input files found")}
		}
		if err := runlog.Mkdir(plan.Cfg.OutputDir); err != nil {
			return interactivePreparedMsg{err: err}
		}
		return interactivePreparedMsg{
			inputs:  collected.Inputs,
			ignored: len(collected.Ignored),
			invalid: len(collected.Invalid),
		}
	}
}

// conversionCallbacks bridges session callbacks onto the program's message
// channel. The session invokes them from its coordinating goroutine; the
// channel keeps delivery ordered.
func conversionCallbacks(events chan<- tea.Msg) convert.Callbacks {
	return convert.Callbacks{
		StatusChanged: func(index int, status string) {
			events <- interactiveStatusMsg{index: index, status: status}
		},
		ProgressChanged: func(index int, percent float64) {
			events <- interactiveProgressMsg{index: index, percent: percent}
		},
		InfoChanged: func(index int, text string) {
			events <- interactiveInfoMsg{index: index, text: text}
		},
		ErrorOccurred: func(index int, message string) {
			events <- interactiveJobErrorMsg{index: index, message: message}
		},
		OverallProgressChanged: func(percent float64) {
			events <- interactiveOverallMsg{percent: percent}
		},
	}
}

// runSessionCmd runs the session to completion and funnels the result
// through the same channel as the callbacks, so it is delivered after
// every event the session emitted.
func runSessionCmd(session *convert.Session, events chan<- tea.Msg) tea.Cmd {
	return func() tea.Msg {
		res, err := session.Run(context.Background())
		events <- interactiveDoneMsg{result: res, err: err}
		return nil
	}
}

func waitForConversionEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

func appendRecordCmd(logPath string, inputs []string, outputDir, format string) tea.Cmd {
	return func() tea.Msg {
		entry := runlog.NewEntry(inputs, outputDir, format)
		return interactiveRecordMsg{err: runlog.Append(logPath, entry)}
	}
}
