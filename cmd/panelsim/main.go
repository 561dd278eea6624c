package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Akashic-Trance-Machines/pico-303/internal/hwio"
	"github.com/Akashic-Trance-Machines/pico-303/internal/panel"
)

// panelsim runs the real panel pipeline (decoder, debouncer, state machine,
// LCD renderer) against the in-process GPIO simulator, with the terminal
// standing in for the encoder and the OLED. Useful for trying out the UI feel
// and the parameter table without a soldering iron.
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sim := hwio.NewSim()
	table := panel.DefaultTable()
	move := &panel.Movement{}
	dec := panel.NewDecoder(sim, move)
	btn := panel.NewButton(sim)

	now := time.Now()
	dec.Prime(now)
	btn.Prime(now)

	// Same split as the daemon: edges are decoded on the watcher goroutine,
	// everything else happens on the UI loop.
	go sim.Watch(ctx, dec.Edge)

	m := newModel(sim, panel.New(table, move, btn))
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
