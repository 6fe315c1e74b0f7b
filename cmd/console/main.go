package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/callpulse/hub/internal/console"
	"github.com/callpulse/hub/internal/logging"
	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	wsURL := flag.String("url", "ws://127.0.0.1:8000/ws/supervisor", "Supervisor WebSocket URL of the hub")
	token := flag.String("token", "", "Auth token (if the hub requires it)")
	logFile := flag.String("log", "", "Write debug logs to this file")
	idleTimeout := flag.Duration("idle-timeout", console.DefaultIdleTimeout,
		"Redial after this long without a frame or ping; keep above the hub's ping interval, 0 disables")
	flag.Parse()

	// The terminal belongs to the UI; logs go to a file or nowhere.
	if *logFile != "" {
		f, err := tea.LogToFile(*logFile, "console")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logging.InitLoggerTo(f, "debug", "text")
	} else {
		logging.InitLoggerTo(io.Discard, "error", "text")
	}

	ws := console.NewWSClient(*wsURL, *token, *idleTimeout)
	m := console.New(ws)
	p := tea.NewProgram(m, tea.WithAltScreen())

	_, err := p.Run()
	ws.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
