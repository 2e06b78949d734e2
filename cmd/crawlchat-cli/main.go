// Command crawlchat-cli runs the agent as an interactive terminal chat
// instead of an HTTP server. Type a message and press enter; quit, exit or
// bye ends the session.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/crawlchat/crawlchat/agent"
	"github.com/crawlchat/crawlchat/config"
	"github.com/crawlchat/crawlchat/logging"
)

// toolEchoLimit caps tool output echoed to the terminal.
const toolEchoLimit = 500

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	logger, err := logging.New(&logging.Config{
		Level:    logging.ParseLevel(cfg.LogLevel),
		Format:   cfg.LogFormat,
		FilePath: cfg.LogFile,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager := agent.NewManager(cfg, func(o *agent.Options) {
		o.Logger = logger
	})

	fmt.Println("Starting agent...")
	if err := manager.Initialize(ctx); err != nil {
		return err
	}
	defer manager.Cleanup()

	processor := agent.NewProcessor(manager, logger)

	fmt.Printf("Ready. %d tools available: %s\n", manager.ToolCount(), strings.Join(manager.ToolNames(), ", "))
	fmt.Println("Type your message, or quit to exit.")

	var history []agent.HistoryMessage
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nYou: ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		switch strings.ToLower(input) {
		case "quit", "exit", "bye":
			fmt.Println("Goodbye!")
			return nil
		}

		result := processor.Process(ctx, input, history)

		for _, call := range result.ToolCalls {
			fmt.Printf("\n[tool] %s\n", call.Name)
		}
		for _, output := range result.ToolOutputs {
			fmt.Printf("[tool output] %s\n", truncateForEcho(output.FullContent))
		}

		fmt.Printf("\nAgent: %s\n", result.AIMessage)

		if result.Success {
			history = append(history,
				agent.HistoryMessage{Type: "user", Content: input},
				agent.HistoryMessage{Type: "bot", Content: result.AIMessage},
			)
		}
	}
	return scanner.Err()
}

func truncateForEcho(s string) string {
	runes := []rune(s)
	if len(runes) <= toolEchoLimit {
		return s
	}
	return string(runes[:toolEchoLimit]) + "..."
}
