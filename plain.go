// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/peterh/liner"
	"golang.org/x/term"

	"github.com/jeranaias/rigchat-tui/internal/config"
	"github.com/jeranaias/rigchat-tui/internal/model"
	"github.com/jeranaias/rigchat-tui/internal/session"
	"github.com/jeranaias/rigchat-tui/internal/store"
)

// runPlain runs a line-oriented REPL against the session engine, for
// terminals where the full TUI is unwanted (dumb terminals, scripting,
// accessibility tooling).
func runPlain(cfg *config.Config, controller *session.Controller, st *store.SessionStore, chatID string) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyFile := ""
	if dir, err := config.ConfigDir(); err == nil {
		historyFile = filepath.Join(dir, "repl_history")
		if f, err := os.Open(historyFile); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}
	defer func() {
		if historyFile == "" {
			return
		}
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 20 {
		width = w
	}

	fmt.Printf("rigchat %s - /quit to exit, /retry to regenerate\n\n", Version)

	for {
		input, err := line.Prompt("> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		switch input {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/retry":
			if err := plainRetry(controller, st, chatID, width); err != nil {
				fmt.Fprintf(os.Stderr, "retry: %v\n", err)
			}
			continue
		}

		line.AppendHistory(input)
		if err := plainSend(controller, st, chatID, input, width); err != nil {
			fmt.Fprintf(os.Stderr, "send: %v\n", err)
		}
	}
}

// plainSend sends one message, echoing streaming progress as dots and the
// final assistant content once the exchange settles.
func plainSend(controller *session.Controller, st *store.SessionStore, chatID, content string, width int) error {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	err := controller.Send(context.Background(), chatID, content, nil)
	close(done)
	wg.Wait()
	fmt.Println()

	if err != nil {
		return err
	}
	printLastAssistant(st, chatID, width)
	return nil
}

func plainRetry(controller *session.Controller, st *store.SessionStore, chatID string, width int) error {
	msgs := st.Messages(chatID)
	if len(msgs) == 0 {
		return errors.New("nothing to retry")
	}
	if err := controller.Retry(context.Background(), chatID, msgs[len(msgs)-1].ID); err != nil {
		return err
	}
	printLastAssistant(st, chatID, width)
	return nil
}

func printLastAssistant(st *store.SessionStore, chatID string, width int) {
	msgs := st.Messages(chatID)
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == model.RoleAssistant {
			fmt.Println(wrapPlain(msgs[i].Content, width))
			fmt.Println()
			return
		}
	}
}

// wrapPlain wraps text at word boundaries for plain terminal output.
func wrapPlain(s string, width int) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if len(line) <= width {
			out = append(out, line)
			continue
		}
		var cur strings.Builder
		for _, word := range strings.Fields(line) {
			if cur.Len() > 0 && cur.Len()+1+len(word) > width {
				out = append(out, cur.String())
				cur.Reset()
			}
			if cur.Len() > 0 {
				cur.WriteByte(' ')
			}
			cur.WriteString(word)
		}
		if cur.Len() > 0 {
			out = append(out, cur.String())
		}
	}
	return strings.Join(out, "\n")
}
