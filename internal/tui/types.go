package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
)

// Model is the progress view shown while a transform rewrites classes
type Model struct {
	title string
	done  int
	total int
	width int

	finished bool
	canceled bool
	cancel   context.CancelFunc

	bar  progress.Model
	help help.Model
	keys KeyMap
}

// ClassDoneMsg reports that done of total classes have been rewritten
type ClassDoneMsg struct {
	Done  int
	Total int
}

// FinishedMsg ends the view once the work returns
type FinishedMsg struct{}

type KeyMap struct {
	Cancel key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Cancel: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q", "cancel"),
		),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Cancel}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
