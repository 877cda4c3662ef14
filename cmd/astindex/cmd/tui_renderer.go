package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/weftcode/astindex/internal/astoutput"
	"github.com/weftcode/astindex/internal/pipeline"
)

// Lime-green palette, grounded on the teacher's internal/ui/styles.go.
const (
	colorLime     = "154"
	colorLimeDim  = "106"
	colorGray     = "245"
	colorDarkGray = "238"
	colorRed      = "196"
	colorYellow   = "220"
)

type tuiStyles struct {
	header, success, warning, errorS, dim, active, label, speed lipgloss.Style
}

func defaultTUIStyles() tuiStyles {
	return tuiStyles{
		header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorLime)),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color(colorLime)),
		warning: lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)),
		errorS:  lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed)),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(colorDarkGray)),
		active:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorLime)),
		label:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),
		speed:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),
	}
}

// tuiRenderer is a bubbletea dashboard for one or more pipeline runs,
// grounded on the teacher's internal/ui.TUIRenderer/indexingModel: a
// long-lived tea.Program fed progress via Send, used by watch for its
// continuous-run display instead of a line-per-batch log.
type tuiRenderer struct {
	program *tea.Program
	done    chan struct{}
}

func newTUIRenderer(out *os.File) *tuiRenderer {
	model := newPipelineModel()
	program := tea.NewProgram(model, tea.WithOutput(out), tea.WithAltScreen())
	return &tuiRenderer{program: program, done: make(chan struct{})}
}

func (r *tuiRenderer) Start() error {
	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
	return nil
}

func (r *tuiRenderer) Report(p pipeline.Progress)     { r.program.Send(progressMsg(p)) }
func (r *tuiRenderer) ReportError(e astoutput.ErrorEvent) { r.program.Send(tuiErrorMsg(e)) }
func (r *tuiRenderer) Complete(s astoutput.Summary)   { r.program.Send(tuiCompleteMsg(s)) }

func (r *tuiRenderer) Stop() error {
	r.program.Quit()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
	}
	return nil
}

var _ astoutput.Renderer = (*tuiRenderer)(nil)

// newWatchRenderer picks the bubbletea dashboard for an interactive
// terminal and falls back to the plain renderer otherwise (out is not
// an *os.File, or ShouldUsePlain reports plain), mirroring astoutput.ShouldUsePlain's
// decision for watch's long-lived session instead of a one-shot batch.
func newWatchRenderer(out io.Writer) astoutput.Renderer {
	cfg := astoutput.NewConfig(out)
	if f, ok := out.(*os.File); ok && !astoutput.ShouldUsePlain(cfg) {
		return newTUIRenderer(f)
	}
	return astoutput.NewRenderer(cfg)
}

type progressMsg pipeline.Progress
type tuiErrorMsg astoutput.ErrorEvent
type tuiCompleteMsg astoutput.Summary
type tuiTickMsg time.Time

type pipelineModel struct {
	width, height int
	styles        tuiStyles
	spinner       spinner.Model
	bar           progress.Model

	phase        pipeline.Phase
	completed    int
	total        int
	currentFile  string
	errorCount   int
	warnCount    int
	done         bool
	summary      astoutput.Summary
	quitting     bool
}

func newPipelineModel() *pipelineModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(colorLime))

	bar := progress.New(
		progress.WithSolidFill(colorLime),
		progress.WithWidth(50),
		progress.WithoutPercentage(),
	)

	return &pipelineModel{
		styles:  defaultTUIStyles(),
		spinner: s,
		bar:     bar,
		width:   80,
		height:  24,
	}
}

func (m *pipelineModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tuiTickCmd())
}

func tuiTickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tuiTickMsg(t) })
}

func (m *pipelineModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.bar.Width = msg.Width - 20
		if m.bar.Width < 20 {
			m.bar.Width = 20
		}

	case progressMsg:
		m.phase = msg.Phase
		m.total = msg.Total
		m.completed = msg.Completed
		m.currentFile = msg.CurrentFile
		m.errorCount = msg.ErrorCount
		return m, nil

	case tuiErrorMsg:
		m.errorCount++
		if msg.IsWarn {
			m.warnCount++
		}
		return m, nil

	case tuiCompleteMsg:
		m.done = true
		m.summary = astoutput.Summary(msg)
		return m, nil

	case tuiTickMsg:
		return m, tuiTickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *pipelineModel) View() string {
	if m.quitting {
		return "Cancelled.\n"
	}

	width := m.width - 4
	if width < 40 {
		width = 40
	}

	var sections []string
	sections = append(sections, m.renderPhase())
	sections = append(sections, m.renderProgress())
	if m.currentFile != "" {
		sections = append(sections, m.styles.dim.Render(truncatePath(m.currentFile, width-2)))
	}
	if m.done {
		sections = append(sections, "", m.renderSummary())
	}

	content := strings.Join(sections, "\n")
	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(colorDarkGray)).
		Padding(0, 1).
		Width(width)

	title := m.styles.header.Render("astindex watch")
	return title + "\n" + panel.Render(content) + "\n" + m.renderStatusBar()
}

func (m *pipelineModel) renderPhase() string {
	name := string(m.phase)
	if name == "" {
		name = "idle"
	}
	return m.spinner.View() + " " + m.styles.active.Render(name)
}

func (m *pipelineModel) renderProgress() string {
	if m.total <= 0 {
		return m.styles.dim.Render("Preparing...")
	}
	percent := float64(m.completed) / float64(m.total)
	bar := m.bar.ViewAs(percent)
	pct := m.styles.active.Render(fmt.Sprintf("%3.0f%%", percent*100))
	count := m.styles.label.Render(fmt.Sprintf("%d / %d", m.completed, m.total))
	return fmt.Sprintf("%s  %s\n%s", bar, pct, count)
}

func (m *pipelineModel) renderStatusBar() string {
	var parts []string
	if m.warnCount > 0 {
		parts = append(parts, m.styles.warning.Render(fmt.Sprintf("%d warnings", m.warnCount)))
	}
	if m.errorCount > 0 {
		parts = append(parts, m.styles.errorS.Render(fmt.Sprintf("%d errors", m.errorCount)))
	}
	if len(parts) == 0 {
		return m.styles.dim.Render("q to quit")
	}
	return strings.Join(parts, m.styles.dim.Render("  |  ")) + m.styles.dim.Render("  |  q to quit")
}

func (m *pipelineModel) renderSummary() string {
	s := m.summary
	return m.styles.success.Render(fmt.Sprintf("done: %d files (%d skipped), %d nodes in %s",
		s.FilesProcessed, s.FilesSkipped, s.NodesIndexed, s.Duration.Round(100*time.Millisecond)))
}

func truncatePath(path string, maxLen int) string {
	if maxLen <= 0 || len(path) <= maxLen {
		return path
	}
	if maxLen < 4 {
		return "..."
	}
	return "..." + path[len(path)-maxLen+3:]
}
