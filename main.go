// rigchat TUI - A terminal client for streaming chat sessions.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/rigchat-tui/internal/api"
	"github.com/jeranaias/rigchat-tui/internal/config"
	"github.com/jeranaias/rigchat-tui/internal/history"
	"github.com/jeranaias/rigchat-tui/internal/model"
	"github.com/jeranaias/rigchat-tui/internal/session"
	"github.com/jeranaias/rigchat-tui/internal/store"
	"github.com/jeranaias/rigchat-tui/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	var (
		plainMode  = flag.Bool("plain", false, "plain REPL mode (no TUI)")
		configPath = flag.String("config", "", "path to config file")
		serverURL  = flag.String("server", "", "chat server base URL (overrides config)")
		modelID    = flag.String("model", "", "model ID for new chats (overrides config)")
		chatID     = flag.String("chat", "", "resume an existing chat by ID")
		search     = flag.String("search", "", "search local transcript history and exit")
		version    = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *version {
		fmt.Printf("rigchat %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	cfg, cfgPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *serverURL != "" {
		cfg.Server.BaseURL = *serverURL
	}
	if *modelID != "" {
		cfg.Server.DefaultModel = *modelID
	}

	// Search is a local-only operation, no server needed.
	if *search != "" {
		if err := runSearch(cfg, *search); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if cfg.Server.BaseURL == "" {
		fmt.Fprintln(os.Stderr, "Error: no server configured (set server.base_url or RIGCHAT_SERVER)")
		os.Exit(1)
	}

	if err := run(cfg, cfgPath, *chatID, *plainMode); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads the config and reports which file path it came from, so
// the hot-reload watcher can follow the same file.
func loadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			cfg := config.Default()
			cfg.ApplyEnvOverrides()
			return cfg, "", nil
		}
		path = p
	}
	cfg, err := config.LoadFromPath(path)
	return cfg, path, err
}

func run(cfg *config.Config, cfgPath, chatID string, plain bool) error {
	client := api.NewClient(cfg.Server.BaseURL).
		WithMaxRetries(cfg.Server.MaxRetries).
		WithQueueSize(cfg.Stream.QueueSize)

	st := store.NewSessionStore()
	defer st.Close()

	opts := []session.Option{session.WithThrottle(cfg.Throttle())}

	var recorder *history.Store
	if cfg.History.Enabled {
		path, err := cfg.HistoryPath()
		if err == nil {
			recorder, err = history.Open(path)
		}
		if err != nil {
			log.Printf("history disabled: %v", err)
		} else {
			defer recorder.Close()
			opts = append(opts, session.WithRecorder(recorder))
		}
	}

	controller := session.NewController(st, client, opts...)

	// Hot reload of tunable streaming settings: a config edit adjusts the
	// publication throttle for subsequently opened streams.
	if cfgPath != "" {
		watcher, err := config.Watch(cfgPath, func(next *config.Config) {
			controller.SetThrottle(next.Throttle())
			log.Printf("config reloaded: stream throttle %s", next.Throttle())
		})
		if err != nil {
			log.Printf("config watch disabled: %v", err)
		} else {
			defer watcher.Close()
		}
	}

	ctx := context.Background()
	if chatID == "" {
		created, err := client.CreateChat(ctx, cfg.Server.DefaultModel)
		if err != nil {
			return fmt.Errorf("failed to create chat: %w", err)
		}
		chatID = created.ID
		st.PutChat(model.NewChat(created.ID, cfg.Server.DefaultModel))
	} else {
		if err := loadExistingChat(ctx, client, st, chatID, cfg.Server.DefaultModel); err != nil {
			return err
		}
	}

	if plain {
		return runPlain(cfg, controller, st, chatID)
	}

	m := chat.New(chatID, controller, st, chat.Options{
		Markdown: cfg.UI.Markdown,
		Compact:  cfg.UI.CompactMode,
		Theme:    cfg.UI.Theme,
	})
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// loadExistingChat fetches a chat's current transcript into the store.
func loadExistingChat(ctx context.Context, client *api.Client, st *store.SessionStore, chatID, defaultModel string) error {
	resp, err := client.FetchChat(ctx, chatID)
	if err != nil {
		return fmt.Errorf("failed to load chat %s: %w", chatID, err)
	}

	c := model.NewChat(resp.Chat.ID, resp.Chat.ModelID)
	if c.ModelID == "" {
		c.ModelID = defaultModel
	}
	if resp.Chat.Title != "" {
		c.Title = resp.Chat.Title
	}
	st.PutChat(c)

	for i := range resp.Messages {
		wire := &resp.Messages[i]
		st.AppendMessage(&model.Message{
			ID:        model.ServerID(wire.ID),
			ChatID:    chatID,
			Role:      model.Role(wire.Role),
			Content:   wire.Content,
			ModelID:   wire.ModelID,
			CreatedAt: wire.CreatedAt,
		})
	}
	return nil
}

func runSearch(cfg *config.Config, query string) error {
	path, err := cfg.HistoryPath()
	if err != nil {
		return err
	}
	h, err := history.Open(path)
	if err != nil {
		return err
	}
	defer h.Close()

	results, err := h.Search(query, 50)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No matches.")
		return nil
	}
	for _, r := range results {
		title := r.ChatTitle
		if title == "" {
			title = r.ChatID
		}
		fmt.Printf("[%s] %s (%s): %s\n",
			r.CreatedAt.Format("2006-01-02 15:04"), title, r.Role, r.Snippet)
	}
	return nil
}
