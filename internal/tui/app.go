package tui

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mabhi256/jshim/utils"
)

const maxBarWidth = 60

func initialModel(title string, cancel context.CancelFunc) *Model {
	return &Model{
		title:  title,
		cancel: cancel,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(maxBarWidth)),
		help:   help.New(),
		keys:   DefaultKeyMap(),
	}
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(max(msg.Width-4, 10), maxBarWidth)

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Cancel) {
			m.canceled = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}

	case ClassDoneMsg:
		m.done = msg.Done
		m.total = msg.Total

	case FinishedMsg:
		m.finished = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) Percent() float64 {
	if m.total == 0 {
		return 0
	}
	return float64(m.done) / float64(m.total)
}

func (m *Model) View() string {
	status := utils.MutedStyle.Render(fmt.Sprintf("%d/%d classes", m.done, m.total))
	switch {
	case m.canceled:
		status = utils.WarningStyle.Render("Canceling...")
	case m.finished:
		status = utils.GoodStyle.Render(fmt.Sprintf("%d/%d classes", m.done, m.total))
	}

	lines := []string{
		utils.TitleStyle.Render(m.title),
		"  " + m.bar.ViewAs(m.Percent()),
		"  " + status,
	}
	if !m.finished && !m.canceled {
		lines = append(lines, "  "+m.help.View(m.keys))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...) + "\n"
}

// Progress renders a live progress bar while work runs. Canceling from the
// keyboard cancels the context handed to work.
type Progress struct {
	program *tea.Program
	model   *Model
	ctx     context.Context
}

func NewProgress(ctx context.Context, out io.Writer, title string) *Progress {
	ctx, cancel := context.WithCancel(ctx)
	model := initialModel(title, cancel)
	return &Progress{
		program: tea.NewProgram(model, tea.WithOutput(out), tea.WithContext(ctx)),
		model:   model,
		ctx:     ctx,
	}
}

// Report is safe to call from any goroutine while Run is active
func (p *Progress) Report(done, total int) {
	p.program.Send(ClassDoneMsg{Done: done, Total: total})
}

// Run starts the view, runs work and waits for both to finish
func (p *Progress) Run(work func(ctx context.Context) error) error {
	result := make(chan error, 1)
	go func() {
		err := work(p.ctx)
		p.program.Send(FinishedMsg{})
		result <- err
	}()

	if _, err := p.program.Run(); err != nil && !p.model.canceled && !p.model.finished {
		p.model.cancel()
		<-result
		return fmt.Errorf("progress view: %w", err)
	}
	return <-result
}
