package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gookit/color"

	"github.com/amalg/go-quadris/internal/discovery"
	"github.com/amalg/go-quadris/internal/i18n"
	"github.com/amalg/go-quadris/internal/network"
	"github.com/amalg/go-quadris/internal/ui"
)

var (
	roomStyle   = color.Style{color.FgGreen, color.OpBold}
	subtleStyle = color.Style{color.FgGray}
)

func main() {
	addr := flag.String("addr", "", "Host address (e.g., 192.168.1.5:9999); empty searches the LAN")
	name := flag.String("name", "Spectator", "Your name")
	room := flag.String("room", "", "Room to join when searching (empty joins the first found)")
	wait := flag.Duration("wait", 5*time.Second, "How long to search the LAN for rooms")
	lang := flag.String("lang", i18n.FromEnv(), "UI language (en, pt_BR)")
	logFile := flag.String("log", "", "Log file path (default: discard logs)")
	flag.Parse()

	if err := i18n.Load(*lang); err != nil {
		fmt.Fprintf(os.Stderr, "%v, using English\n", err)
	}

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

	target := *addr
	if target == "" {
		info, err := findRoom(*room, *wait)
		if err != nil {
			fmt.Fprintf(os.Stderr, "No room found: %v\n", err)
			fmt.Fprintln(os.Stderr, "Usage: spectate [--addr <host:port>] [--room <name>] [--name <name>]")
			os.Exit(1)
		}
		target = info.GameAddr
	}

	fmt.Printf("Connecting to %s as %s...\n", target, *name)

	client, err := network.NewClient(target, *name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	fmt.Printf("Connected! Spectator ID: %s\n", client.SpectatorID())
	time.Sleep(300 * time.Millisecond)

	p := tea.NewProgram(ui.NewSpectateModel(client, client.Room()), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}

// findRoom listens for room broadcasts. With an empty name it returns the
// first room heard.
func findRoom(name string, wait time.Duration) (discovery.RoomInfo, error) {
	l := discovery.NewListener()
	if err := l.Start(); err != nil {
		return discovery.RoomInfo{}, err
	}
	defer l.Stop()

	fmt.Println("Searching the LAN for rooms...")

	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()

	room, err := l.WaitForRoom(ctx, name)
	if err != nil {
		return discovery.RoomInfo{}, err
	}
	for _, r := range l.Rooms() {
		roomStyle.Printf("  %s ", r.RoomName)
		subtleStyle.Printf("%s  %d watching  level %d\n", r.GameAddr, r.Spectators, r.Level)
	}
	return room, nil
}
