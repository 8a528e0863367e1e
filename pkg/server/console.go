package server

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/skylane-game/skylane/pkg/log"
)

// runConsoleCommand parses and executes one operator command line.
func (s *Server) runConsoleCommand(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	cmd := fields[0]
	rest := strings.TrimSpace(strings.TrimPrefix(line, cmd))

	switch cmd {
	case "status":
		return s.consoleStatus()
	case "players":
		return s.consolePlayers()
	case "kick":
		if rest == "" {
			return "Usage: kick <player_name>"
		}
		if s.registry.ByName(rest) == nil {
			return fmt.Sprintf("Player %q not found", rest)
		}
		s.enqueueOp(opKick{name: rest})
		return fmt.Sprintf("Kicking player: %s", rest)
	case "say":
		if rest == "" {
			return "Usage: say <message>"
		}
		s.enqueueOp(opSay{text: rest})
		return fmt.Sprintf("[broadcast] %s", rest)
	case "help":
		return consoleHelp()
	case "shutdown", "stop", "quit", "exit":
		s.enqueueOp(opStop{})
		return "Shutting down server..."
	default:
		return fmt.Sprintf("Unknown command: %s (type 'help' for list)", cmd)
	}
}

func (s *Server) enqueueOp(op interface{}) {
	if err := s.opQueue.Enqueue(op); err != nil {
		log.Warn("Dropping console command: %v", err)
	}
}

func (s *Server) consoleStatus() string {
	stats := s.Statistics()
	var b strings.Builder
	b.WriteString("\n=== Server Status ===\n")
	fmt.Fprintf(&b, "Running: %v\n", stats.Running)
	fmt.Fprintf(&b, "Players: %d / %d\n", stats.ConnectedPlayers, stats.MaxPlayers)
	fmt.Fprintf(&b, "Game Tick: %d\n", stats.GameTick)
	fmt.Fprintf(&b, "Simulation: %.1f Hz (target: %d Hz)\n", stats.ActualSimulationHz, s.config.SimulationHz)
	fmt.Fprintf(&b, "Broadcast: %.1f Hz (target: %d Hz)\n", stats.ActualBroadcastHz, s.config.BroadcastHz)
	fmt.Fprintf(&b, "Avg Tick Time: %.3f ms\n", stats.AverageTickTimeMs)
	fmt.Fprintf(&b, "Total Ticks: %d\n", stats.TotalTicks)
	fmt.Fprintf(&b, "Total Broadcasts: %d\n", stats.TotalBroadcasts)
	fmt.Fprintf(&b, "Commands Processed: %d\n", stats.CommandsProcessed)
	fmt.Fprintf(&b, "Commands Rejected: %d\n", stats.CommandsRejected)
	fmt.Fprintf(&b, "Snapshots: %d (%d KB)\n", stats.SnapshotCount, stats.SnapshotMemory/1024)
	return b.String()
}

func (s *Server) consolePlayers() string {
	all := s.registry.All()
	sort.Slice(all, func(i, j int) bool {
		return all[i].Name < all[j].Name
	})

	var b strings.Builder
	b.WriteString("\n=== Connected Players ===\n")
	fmt.Fprintf(&b, "Total: %d\n", len(all))
	for _, player := range all {
		fmt.Fprintf(&b, "  %s  %s  ships=%d  connected=%s\n",
			player.Name, player.ID, player.ShipCount(),
			player.ConnectedAt.Format("15:04:05"))
	}
	return b.String()
}

func consoleHelp() string {
	return `
=== Server Console Commands ===
  status        - Show server statistics
  players       - List connected players
  kick <player> - Kick a player
  say <msg>     - Broadcast a message
  shutdown      - Stop the server
  help          - Show this help
`
}

// RunConsole reads newline-delimited operator commands until EOF or
// shutdown. It is intended to run on its own goroutine with in as stdin.
func (s *Server) RunConsole(in io.Reader, out io.Writer) {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}

	scanner := bufio.NewScanner(in)
	for s.IsRunning() {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		output := s.ExecuteConsoleCommand(line)
		if output != "" {
			fmt.Fprintln(out, output)
		}

		switch line {
		case "shutdown", "stop", "quit", "exit":
			return
		}
	}
}
