// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package tui provides an interactive review step for orphan re-linking:
// since candidate validation is heuristic, an operator can deselect
// false positives before anything is written to disk.
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fatxforensics/fatxtk/internal/orphan"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#5F5FD7")).
			Padding(0, 1)
	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	keptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00AF00"))
)

type candidateItem struct {
	c    orphan.Candidate
	keep bool
}

func (i candidateItem) Title() string {
	mark := "[ ]"
	if i.keep {
		mark = "[x]"
	}
	return fmt.Sprintf("%s %s", mark, i.c.Dirent.Name)
}

func (i candidateItem) Description() string {
	return fmt.Sprintf("cluster=%#x slot=%d size=%d", i.c.Cluster, i.c.Slot, i.c.Dirent.FileSize)
}

func (i candidateItem) FilterValue() string { return i.c.Dirent.Name }

type reviewModel struct {
	list      list.Model
	confirmed bool
}

func newReviewModel(candidates []orphan.Candidate) reviewModel {
	items := make([]list.Item, len(candidates))
	for i, c := range candidates {
		items[i] = candidateItem{c: c, keep: true}
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Orphan candidates — space to toggle, enter to confirm"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)

	return reviewModel{list: l}
}

func (m reviewModel) Init() tea.Cmd { return nil }

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-4)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "enter":
			m.confirmed = true
			return m, tea.Quit
		case " ":
			idx := m.list.Index()
			if item, ok := m.list.SelectedItem().(candidateItem); ok {
				item.keep = !item.keep
				m.list.SetItem(idx, item)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m reviewModel) View() string {
	return titleStyle.Render(" orphan review ") + "\n" + m.list.View() + "\n" + helpStyle.Render("space: toggle keep  •  enter: confirm  •  q: cancel")
}

// ReviewCandidates runs an interactive full-screen review of candidates
// and returns the subset the operator kept. If the operator cancels
// (q/ctrl+c) without confirming, it returns the original slice unchanged
// so callers can fall back to the non-interactive behavior.
func ReviewCandidates(candidates []orphan.Candidate) ([]orphan.Candidate, error) {
	if len(candidates) == 0 {
		return candidates, nil
	}

	m := newReviewModel(candidates)
	p := tea.NewProgram(m, tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return nil, err
	}

	final := result.(reviewModel)
	if !final.confirmed {
		return candidates, nil
	}

	kept := make([]orphan.Candidate, 0, len(candidates))
	for _, item := range final.list.Items() {
		ci := item.(candidateItem)
		if ci.keep {
			kept = append(kept, ci.c)
		}
	}
	return kept, nil
}
