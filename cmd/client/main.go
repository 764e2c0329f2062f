package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"mentor_chat/internal/api"
	"mentor_chat/internal/config"
	"mentor_chat/internal/domain"
	"mentor_chat/internal/reconcile"
	"mentor_chat/internal/service"
	"mentor_chat/internal/subscription"
	"mentor_chat/internal/transport"
	"mentor_chat/internal/tui"
	"mentor_chat/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Log.Level)

	if cfg.Client.Token == "" {
		log.Fatal("CHAT_TOKEN must be set (use the dev server's /auth/dev-token)")
	}

	session, err := service.NewSession(cfg.Client.Token)
	if err != nil {
		appLogger.Fatal("Invalid session token", "error", err)
	}

	sel, err := parseSelection(os.Args[1:])
	if err != nil {
		appLogger.Fatal("Invalid conversation argument", "error", err)
	}

	apiClient := api.NewClient(cfg.Client.APIBaseURL, session.Token)
	socket := transport.NewSocket(cfg.Client.SocketURL, session.Token, appLogger)
	if err := socket.Dial(context.Background()); err != nil {
		appLogger.Fatal("Failed to connect push transport", "error", err)
	}
	defer socket.Close()

	engine := reconcile.NewEngine(appLogger, reconcile.WithCorrelationWindow(cfg.Client.CorrelationWindow))
	subs := subscription.NewManager(socket, appLogger)

	// set after the program exists; SDK callbacks repaint through it
	var program *tea.Program
	notify := func() {
		if program != nil {
			program.Send(tui.RefreshMsg{})
		}
	}

	chat := service.NewChatService(apiClient, subs, engine, session, notify, appLogger)

	page, openCmd := tui.NewChatPage(chat, session.UserID(), sel)
	program = tea.NewProgram(page)
	go func() {
		if msg := openCmd(); msg != nil {
			program.Send(msg)
		}
	}()

	if _, err := program.Run(); err != nil {
		appLogger.Fatal("TUI exited with error", "error", err)
	}
}

// parseSelection turns "group:cohort-7" or "peer:<user-id>" into a
// conversation selection.
func parseSelection(args []string) (domain.Selection, error) {
	if len(args) != 1 {
		return domain.Selection{}, fmt.Errorf("usage: client group:<group-id> | peer:<user-id>")
	}
	if groupID, ok := strings.CutPrefix(args[0], "group:"); ok {
		return domain.Selection{Kind: domain.KindGroup, GroupID: groupID}, nil
	}
	if peerID, ok := strings.CutPrefix(args[0], "peer:"); ok {
		return domain.Selection{Kind: domain.KindIndividual, PeerID: peerID}, nil
	}
	return domain.Selection{}, fmt.Errorf("unknown conversation %q", args[0])
}
