package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gookit/color"
	"golang.org/x/term"

	"github.com/amalg/go-quadris/internal/discovery"
	"github.com/amalg/go-quadris/internal/game"
	"github.com/amalg/go-quadris/internal/i18n"
	"github.com/amalg/go-quadris/internal/network"
	"github.com/amalg/go-quadris/internal/ui"
)

var (
	bannerStyle = color.Style{color.FgYellow, color.OpBold}
	addrStyle   = color.Style{color.FgCyan}
	subtleStyle = color.Style{color.FgGray}
)

func main() {
	level := flag.Int("level", 0, "Starting level")
	seed := flag.Int64("seed", 0, "Bag seed (0 seeds from the clock)")
	lang := flag.String("lang", i18n.FromEnv(), "UI language (en, pt_BR)")
	logFile := flag.String("log", "", "Log file path (default: discard logs)")
	port := flag.Int("serve", 0, "Stream the game to spectators on this port (0 disables)")
	room := flag.String("room", "", "Room name advertised to spectators (default: your name)")
	name := flag.String("name", "Host", "Your player name")
	reference := flag.Bool("reference-rotation", false, "Use the mean-pivot rotation system")
	overflow := flag.Int("overflow", 4, "Hidden rows above the visible field")
	attempts := flag.Int("spawn-attempts", 5, "Downward retries before a spawn fails")
	flag.Parse()

	config := game.DefaultConfig()
	config.StartLevel = *level
	config.Seed = *seed
	config.OverflowRows = *overflow
	config.SpawnAttempts = *attempts
	if *reference {
		config.Rotation = game.RotationReference
	}
	if err := config.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid options: %v\n", err)
		os.Exit(2)
	}

	if err := i18n.Load(*lang); err != nil {
		fmt.Fprintf(os.Stderr, "%v, using English\n", err)
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "quadris needs an interactive terminal")
		os.Exit(1)
	}

	// Redirect log output before anything starts logging. Stray stderr
	// output corrupts Bubbletea's rendering.
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		log.SetOutput(f)
	} else {
		log.SetOutput(io.Discard)
	}

	engine := game.NewEngine(config)

	var (
		server      *network.Server
		broadcaster *discovery.Broadcaster
	)
	if *port > 0 {
		roomName := *room
		if roomName == "" {
			roomName = *name
		}

		server = network.NewServer(fmt.Sprintf("0.0.0.0:%d", *port), roomName, config)
		broadcaster = discovery.NewBroadcaster(discovery.RoomInfo{
			RoomName: roomName,
			HostName: *name,
			Level:    config.StartLevel,
			GameAddr: fmt.Sprintf("%s:%d", outboundIP(), *port),
		})
		server.OnSpectatorsChanged(broadcaster.UpdateSpectators)
		engine.OnTick(func(state game.GameState) {
			server.Publish(state)
			broadcaster.UpdateLevel(state.Level)
		})

		if err := server.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
			os.Exit(1)
		}
		if err := broadcaster.Start(); err != nil {
			// Spectators can still connect with --addr.
			log.Printf("[DISCOVERY] Broadcast disabled: %v", err)
		}

		bannerStyle.Printf("QUADRIS room %q on port %d\n", roomName, *port)
		printLocalAddrs(*port)
		time.Sleep(500 * time.Millisecond)
	}

	shutdown := func() {
		if broadcaster != nil {
			broadcaster.Stop()
		}
		if server != nil {
			server.Stop()
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		shutdown()
		os.Exit(0)
	}()

	p := tea.NewProgram(ui.NewModel(engine), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		shutdown()
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}

	shutdown()
}

// printLocalAddrs prints the addresses spectators can connect to.
func printLocalAddrs(port int) {
	fmt.Println(i18n.T("Spectators can connect using:"))
	addrStyle.Printf("  127.0.0.1:%d ", port)
	subtleStyle.Println(i18n.T("(this machine)"))

	for _, a := range network.LocalAddrs(strconv.Itoa(port)) {
		addrStyle.Printf("  %s\n", a)
	}
}

// outboundIP returns the address other machines on the LAN should dial.
func outboundIP() string {
	conn, err := net.Dial("udp4", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}
