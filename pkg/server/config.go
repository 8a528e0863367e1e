package server

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ServerConfig is the full server configuration surface: network, timing,
// identity, gameplay, performance and debugging knobs. Values come from a
// line-oriented "key = value" file and are overridden by CLI flags.
type ServerConfig struct {
	Port             int
	MaxPlayers       int
	MaxConnsPerIP    int
	SimulationHz     int
	BroadcastHz      int
	ServerName       string
	MOTD             string
	Password         string
	StartingCredits  int64
	StartingSystem   string
	StartingPlanet   string
	EnablePvP        bool
	SnapshotHistory  int
	CommandBuffer    int
	VerboseLogging   bool
	EnableConsole    bool
	EnableAdminAPI   bool
	AdminAPIPort     int
}

// DefaultConfig returns the configuration used when no file or flags
// override it.
func DefaultConfig() ServerConfig {
	return ServerConfig{
		Port:            31337,
		MaxPlayers:      32,
		MaxConnsPerIP:   4,
		SimulationHz:    60,
		BroadcastHz:     20,
		ServerName:      "Skylane Server",
		MOTD:            "Welcome aboard.",
		StartingCredits: 50000,
		StartingSystem:  "Rutilicus",
		StartingPlanet:  "New Boston",
		EnablePvP:       true,
		SnapshotHistory: 120,
		CommandBuffer:   10000,
		EnableConsole:   true,
		AdminAPIPort:    8080,
	}
}

// Load reads a config file into c. Blank lines and "#" comments are
// ignored; unknown keys are skipped so old servers tolerate new files.
func (c *ServerConfig) Load(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "port":
			c.Port = parseInt(value, c.Port)
		case "max_players":
			c.MaxPlayers = parseInt(value, c.MaxPlayers)
		case "max_connections_per_ip":
			c.MaxConnsPerIP = parseInt(value, c.MaxConnsPerIP)
		case "simulation_hz":
			c.SimulationHz = parseInt(value, c.SimulationHz)
		case "broadcast_hz":
			c.BroadcastHz = parseInt(value, c.BroadcastHz)
		case "server_name":
			c.ServerName = value
		case "motd":
			c.MOTD = value
		case "password":
			c.Password = value
		case "starting_credits":
			if v, err := strconv.ParseInt(value, 10, 64); err == nil {
				c.StartingCredits = v
			}
		case "starting_system":
			c.StartingSystem = value
		case "starting_planet":
			c.StartingPlanet = value
		case "enable_pvp":
			c.EnablePvP = parseBool(value)
		case "snapshot_history_size":
			c.SnapshotHistory = parseInt(value, c.SnapshotHistory)
		case "command_buffer_size":
			c.CommandBuffer = parseInt(value, c.CommandBuffer)
		case "verbose_logging":
			c.VerboseLogging = parseBool(value)
		case "enable_console":
			c.EnableConsole = parseBool(value)
		case "enable_admin_api":
			c.EnableAdminAPI = parseBool(value)
		case "admin_api_port":
			c.AdminAPIPort = parseInt(value, c.AdminAPIPort)
		}
	}

	return scanner.Err()
}

// Write saves the configuration back out in the same commented format.
func (c *ServerConfig) Write(path string) error {
	var b strings.Builder
	b.WriteString("# Skylane Dedicated Server Configuration\n\n")

	b.WriteString("# Network Settings\n")
	fmt.Fprintf(&b, "port = %d\n", c.Port)
	fmt.Fprintf(&b, "max_players = %d\n", c.MaxPlayers)
	fmt.Fprintf(&b, "max_connections_per_ip = %d\n\n", c.MaxConnsPerIP)

	b.WriteString("# Simulation Timing\n")
	fmt.Fprintf(&b, "simulation_hz = %d\n", c.SimulationHz)
	fmt.Fprintf(&b, "broadcast_hz = %d\n\n", c.BroadcastHz)

	b.WriteString("# Server Identity\n")
	fmt.Fprintf(&b, "server_name = %s\n", c.ServerName)
	fmt.Fprintf(&b, "motd = %s\n", c.MOTD)
	fmt.Fprintf(&b, "password = %s\n\n", c.Password)

	b.WriteString("# Gameplay Settings\n")
	fmt.Fprintf(&b, "starting_credits = %d\n", c.StartingCredits)
	fmt.Fprintf(&b, "starting_system = %s\n", c.StartingSystem)
	fmt.Fprintf(&b, "starting_planet = %s\n", c.StartingPlanet)
	fmt.Fprintf(&b, "enable_pvp = %s\n\n", formatBool(c.EnablePvP))

	b.WriteString("# Performance Tuning\n")
	fmt.Fprintf(&b, "snapshot_history_size = %d\n", c.SnapshotHistory)
	fmt.Fprintf(&b, "command_buffer_size = %d\n\n", c.CommandBuffer)

	b.WriteString("# Logging and Debugging\n")
	fmt.Fprintf(&b, "verbose_logging = %s\n", formatBool(c.VerboseLogging))
	fmt.Fprintf(&b, "enable_console = %s\n", formatBool(c.EnableConsole))
	fmt.Fprintf(&b, "enable_admin_api = %s\n", formatBool(c.EnableAdminAPI))
	fmt.Fprintf(&b, "admin_api_port = %d\n", c.AdminAPIPort)

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration before startup. NewServer refuses a
// config that fails validation.
func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.MaxPlayers <= 0 || c.MaxPlayers > 1000 {
		return fmt.Errorf("max_players %d out of range (1..1000)", c.MaxPlayers)
	}
	if c.SimulationHz < 10 || c.SimulationHz > 120 {
		return fmt.Errorf("simulation_hz %d out of range (10..120)", c.SimulationHz)
	}
	if c.BroadcastHz <= 0 || c.BroadcastHz > c.SimulationHz {
		return fmt.Errorf("broadcast_hz %d must be in 1..simulation_hz", c.BroadcastHz)
	}
	if c.SnapshotHistory <= 0 || c.SnapshotHistory > 1000 {
		return fmt.Errorf("snapshot_history_size %d out of range (1..1000)", c.SnapshotHistory)
	}
	if c.CommandBuffer < 100 {
		return fmt.Errorf("command_buffer_size %d too small (min 100)", c.CommandBuffer)
	}
	if c.StartingSystem == "" {
		return fmt.Errorf("starting_system must not be empty")
	}
	if c.StartingPlanet == "" {
		return fmt.Errorf("starting_planet must not be empty")
	}
	return nil
}

func parseInt(value string, fallback int) int {
	v, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return v
}

// parseBool accepts "true" and "1" as true; anything else is false.
func parseBool(value string) bool {
	return value == "true" || value == "1"
}

func formatBool(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
