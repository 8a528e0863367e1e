// Command client is a headless demo client: it connects to a server,
// flies the ship in lazy circles while firing now and then, and logs
// connection statistics. Useful for smoke-testing a server without a
// renderer attached.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skylane-game/skylane/pkg/client"
	"github.com/skylane-game/skylane/pkg/command"
	"github.com/skylane-game/skylane/pkg/log"
	"github.com/skylane-game/skylane/pkg/transport"
	"github.com/skylane-game/skylane/pkg/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	host := flag.String("host", "localhost", "Server host")
	port := flag.Int("port", 31337, "Server port")
	useWebSocket := flag.Bool("websocket", false, "Connect over WebSocket instead of UDP")
	logLevel := flag.String("log-level", "info", "Log level (error, warn, info, debug, trace)")
	flag.Parse()

	parsedLevel, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level: %v\n", err)
		return 1
	}
	log.SetDefaultLogger(log.New(os.Stdout, "", log.DefaultLoggerFlag, parsedLevel))

	log.Info("Skylane demo client %s", version.Get())

	var tr transport.Transport
	if *useWebSocket {
		tr = transport.NewWebSocketTransport()
	} else {
		tr = transport.NewUDPTransport()
	}

	c := client.NewClient(tr)
	c.SetMessageHandler(func(text string) {
		log.Info("[server] %s", text)
	})

	if err := c.Connect(*host, *port); err != nil {
		log.Error("Failed to connect: %v", err)
		return 1
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	frame := time.NewTicker(time.Second / 60)
	defer frame.Stop()
	stats := time.NewTicker(5 * time.Second)
	defer stats.Stop()

	frameCount := 0
	for {
		select {
		case <-signals:
			log.Info("Interrupted, disconnecting")
			c.Disconnect()
			return 0

		case <-frame.C:
			c.Update()
			if c.State() == client.StateDisconnected {
				log.Info("Session ended")
				return 0
			}
			if c.World() == nil {
				continue
			}

			frameCount++
			if frameCount%3 != 0 {
				// Send input at 20 Hz; holding controls between commands
				// keeps the ship moving on the in-between ticks.
				continue
			}

			controls := command.ControlThrust
			if frameCount%600 < 300 {
				controls |= command.ControlTurnLeft
			}
			if frameCount%450 == 0 {
				controls |= command.ControlFirePrimary
			}
			if err := c.SendCommand(controls, nil); err != nil {
				log.Debug("Failed to send command: %v", err)
			}

		case <-stats.C:
			s := c.Statistics()
			ship := c.PlayerShip()
			where := "?"
			if ship != nil {
				where = fmt.Sprintf("(%.0f, %.0f)", ship.Position.X, ship.Position.Y)
			}
			log.Info("state=%s ping=%dms loss=%.1f%% sent=%d updates=%d mispredicts=%d pos=%s",
				s.ConnectionState, s.Ping, s.PacketLoss, s.CommandsSent,
				s.StateUpdatesReceived, s.PredictionErrors, where)
		}
	}
}
