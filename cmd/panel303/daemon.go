package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Akashic-Trance-Machines/pico-303/internal/display"
	"github.com/Akashic-Trance-Machines/pico-303/internal/midilink"
	"github.com/Akashic-Trance-Machines/pico-303/internal/panel"
)

// ============================================================================
// Central Daemon Loop - The "Daemon Brain"
// ============================================================================
// runDaemon is the central orchestrator that:
//   - Polls the panel state machine on a fixed cadence
//   - Drains mirror writes from MIDI and IPC between polls
//   - Answers state queries from the IPC and websocket servers
//   - Repaints the display and broadcasts state when something changed
//
// Only this goroutine touches the panel and its parameter table. The encoder
// ISR-equivalent (the GPIO watcher) communicates through the movement
// accumulator, everything else through the requests channel, so no locks are
// needed around the table.
// ============================================================================

// runDaemon is the main daemon loop. It exits with nil when ctx is canceled.
func runDaemon(
	ctx context.Context,
	requests <-chan Request,
	mirrors <-chan midilink.Mirror,
	pnl *panel.Panel,
	screen *display.Renderer,
	hub *Hub,
	updateHz int,
	logger *slog.Logger,
) error {
	updateInterval := time.Second / time.Duration(updateHz)
	ticker := time.NewTicker(updateInterval)
	defer ticker.Stop()

	// Paint the startup screen before the first tick.
	publishState(pnl, screen, hub, logger)

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping (context canceled)")
			return nil

		case req := <-requests:
			if handleRequest(req, pnl, logger) {
				publishState(pnl, screen, hub, logger)
			}

		case m := <-mirrors:
			// MIDI CC from the sequencer: mirror into the table without
			// notifying, so it never echoes back out.
			pnl.Table().SetByControlID(m.ControlID, m.Value)
			if pnl.Current().ControlID == m.ControlID {
				publishState(pnl, screen, hub, logger)
			}

		case <-ticker.C:
			if pnl.Update(time.Now()) {
				publishState(pnl, screen, hub, logger)
			}
		}
	}
}

// handleRequest processes one Request against the panel. It returns true when
// the request changed something a display or websocket client can see.
func handleRequest(req Request, pnl *panel.Panel, logger *slog.Logger) bool {
	switch r := req.(type) {
	case MirrorParam:
		pnl.Table().SetByControlID(r.ControlID, r.Value)
		return pnl.Current().ControlID == r.ControlID

	case QueryParam:
		if r.Reply == nil {
			return false
		}
		if ps, ok := lookupParam(pnl.Table(), r.ControlID); ok {
			r.Reply <- ps
		} else {
			// Closing without sending signals "no such parameter".
			close(r.Reply)
		}
		return false

	case QueryState:
		if r.Reply != nil {
			r.Reply <- snapshotOf(pnl)
		}
		return false

	case QueryParams:
		if r.Reply != nil {
			r.Reply <- listParams(pnl.Table())
		}
		return false

	default:
		logger.Warn("unknown request type", "type", fmt.Sprintf("%T", req))
		return false
	}
}

// publishState repaints the hardware display and broadcasts a state frame to
// websocket clients. Either sink may be absent.
func publishState(pnl *panel.Panel, screen *display.Renderer, hub *Hub, logger *slog.Logger) {
	if screen != nil {
		if err := screen.Render(pnl.Mode(), pnl.Index(), pnl.Table().Count(), pnl.Current()); err != nil {
			logger.Warn("display render failed", "error", err)
		}
	}
	if hub != nil {
		hub.BroadcastState("state", snapshotOf(pnl))
	}
}

// snapshotOf builds the external view of the panel UI state.
func snapshotOf(pnl *panel.Panel) StateSnapshot {
	return StateSnapshot{
		Mode:  pnl.Mode().String(),
		Index: pnl.Index(),
		Count: pnl.Table().Count(),
		Param: paramState(pnl.Index(), pnl.Current()),
	}
}

func paramState(index int, prm panel.Parameter) ParamState {
	return ParamState{
		Index:     index,
		Name:      prm.Name,
		ControlID: prm.ControlID,
		Value:     prm.Value,
		Min:       prm.Min,
		Max:       prm.Max,
	}
}

// lookupParam finds the first table entry carrying the given CC number.
func lookupParam(t *panel.Table, controlID uint8) (ParamState, bool) {
	for i := 0; i < t.Count(); i++ {
		prm := t.Get(i)
		if prm.ControlID == controlID {
			return paramState(i, prm), true
		}
	}
	return ParamState{}, false
}

func listParams(t *panel.Table) []ParamState {
	out := make([]ParamState, 0, t.Count())
	for i := 0; i < t.Count(); i++ {
		out = append(out, paramState(i, t.Get(i)))
	}
	return out
}
