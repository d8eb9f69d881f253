package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jaminalder/perfect-tic-tac-toe/internal/app"
	"github.com/jaminalder/perfect-tic-tac-toe/internal/domain"
	"github.com/jaminalder/perfect-tic-tac-toe/internal/engine"
	"github.com/jaminalder/perfect-tic-tac-toe/internal/logger"
	"github.com/jaminalder/perfect-tic-tac-toe/internal/tui"
)

func main() {
	modeFlag := flag.String("mode", "engine", "engine or two-player")
	markFlag := flag.String("mark", "X", "your mark against the engine (X opens)")
	logFile := flag.String("log", "", "write debug logs to this file")
	flag.Parse()

	if err := run(*modeFlag, *markFlag, *logFile); err != nil {
		fmt.Fprintln(os.Stderr, "play:", err)
		os.Exit(1)
	}
}

func run(modeArg, markArg, logPath string) error {
	// The terminal belongs to the UI, so logs go to a file or nowhere.
	var w io.Writer = io.Discard
	level := slog.LevelInfo
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
		level = slog.LevelDebug
	}
	log := logger.NewWithWriter(w, level)

	mode, err := app.ParseMode(modeArg)
	if err != nil {
		return err
	}
	eng := engine.New(log.Logger)

	var match app.Match
	switch mode {
	case app.ModeEngine:
		human, err := domain.ParseCell(markArg)
		if err != nil {
			return err
		}
		if match, err = app.NewEngineMatch(human, eng); err != nil {
			return err
		}
	default:
		match = app.NewTwoPlayerMatch(app.RandomStarter())
	}

	p := tea.NewProgram(tui.InitialModel(match, eng, app.RandomStarter), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
