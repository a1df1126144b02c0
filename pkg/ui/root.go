//    Copyright 2024 The BlinkRunner authors
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	humanize "github.com/dustin/go-humanize"

	"github.com/ledworks/BlinkRunner/pkg/model"
	"github.com/ledworks/BlinkRunner/pkg/service"
)

// StateMsg carries an LED transition into the UI.
type StateMsg service.LedState

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	lampOnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	lampOffStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	helpStyle    = lipgloss.NewStyle().Faint(true)
)

// Root is the lamp monitor shown when blinking through the
// virtual bridge.
type Root struct {
	config model.BlinkConfig
	svc    service.Service
	stop   func()

	width  int
	height int
	on     bool
	cycle  uint64
}

var _ tea.Model = Root{}

// New creates the lamp monitor for the given run.
// The stop callback is invoked when the user quits the monitor.
func New(config model.BlinkConfig, svc service.Service, stop func()) Root {
	return Root{
		config: config,
		svc:    svc,
		stop:   stop,
	}
}

// Init is the first function that will be called. It returns an optional
// initial command. To not perform an initial command return nil.
func (r Root) Init() tea.Cmd {
	return nil
}

// Update is called when a message is received. Use it to inspect messages
// and, in response, update the model and/or send a command.
func (r Root) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StateMsg:
		r.on = msg.On
		r.cycle = msg.Cycle
	case tea.WindowSizeMsg:
		r.height = msg.Height
		r.width = msg.Width
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if r.stop != nil {
				r.stop()
			}
			return r, tea.Quit
		}
	}
	return r, nil
}

// View renders the lamp, the run configuration and the current cycle.
func (r Root) View() string {
	lamp := lampOffStyle.Render("○ off")
	if r.on {
		lamp = lampOnStyle.Render("● ON")
	}
	header := titleStyle.Render("LED lamp monitor")
	config := fmt.Sprintf("pin %d, interval on %s / off %s, cycles %s",
		r.config.Pin, r.config.OnDuration, r.config.OffDuration, r.config.Repeat)
	status := fmt.Sprintf("%s   cycle %s   state %s",
		lamp, humanize.Comma(int64(r.cycle)), r.svc.State())
	help := helpStyle.Render("q: stop blinking and quit")
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		config,
		"",
		status,
		"",
		help,
	)
}
