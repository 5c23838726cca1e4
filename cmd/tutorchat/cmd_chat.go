package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/tutorchat-dev/tutorchat"
	"github.com/tutorchat-dev/tutorchat/pkg/chat"
	"github.com/tutorchat-dev/tutorchat/pkg/config"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive tutoring conversation",
	RunE:  runChat,
}

func loadEngine(cmd *cobra.Command) (*tutorchat.Engine, error) {
	path, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}
	return tutorchat.New(cfg)
}

func runChat(cmd *cobra.Command, _ []string) error {
	engine, err := loadEngine(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := engine.Start(ctx); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = engine.Shutdown(shutdownCtx)
	}()

	orch := engine.Orchestrator()

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Println("TutorChat. Type /help for commands, /quit to exit.")

	for {
		input, err := line.Prompt("you> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Println()
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if quit := runCommand(ctx, engine, input); quit {
				return nil
			}
			continue
		}

		res, err := orch.Send(ctx, input)
		if err != nil {
			printSendError(err)
			continue
		}
		fmt.Printf("tutor> %s\n", res.AssistantMessage.Content)
	}
}

// runCommand handles a slash command and reports whether to quit.
func runCommand(ctx context.Context, engine *tutorchat.Engine, input string) bool {
	orch := engine.Orchestrator()
	fields := strings.Fields(input)

	switch fields[0] {
	case "/quit", "/exit":
		return true

	case "/help":
		fmt.Println(`Commands:
  /sessions              list stored conversations
  /switch <id>           switch to a conversation
  /new                   start a fresh draft conversation
  /delete <id>           delete a conversation
  /context <module> [content-id ...]  bind study context
  /quit                  exit`)

	case "/sessions":
		printSessions(ctx, engine)

	case "/switch":
		if len(fields) < 2 {
			fmt.Println("usage: /switch <session-id>")
			break
		}
		view, err := orch.Activate(ctx, fields[1], "", nil)
		if err != nil {
			fmt.Printf("switch failed: %v\n", err)
			break
		}
		if view.State == tutorchat.StateDraft {
			fmt.Println("session not found, starting a new conversation")
			break
		}
		fmt.Printf("switched to %q (%d messages)\n", view.SessionID, len(view.Messages))
		for _, m := range view.Messages {
			printMessage(m)
		}

	case "/new":
		orch.NewConversation()
		fmt.Println("new conversation")

	case "/delete":
		if len(fields) < 2 {
			fmt.Println("usage: /delete <session-id>")
			break
		}
		if err := orch.DeleteConversation(ctx, fields[1]); err != nil {
			fmt.Printf("delete failed: %v\n", err)
			break
		}
		fmt.Println("deleted")

	case "/context":
		if len(fields) < 2 {
			fmt.Println("usage: /context <module> [content-id ...]")
			break
		}
		view := orch.RebindContext(ctx, fields[1], fields[2:])
		fmt.Printf("context: %s", view.ModuleLabel)
		for _, item := range view.Context {
			marker := ""
			if item.Orphaned {
				marker = " (orphaned)"
			}
			fmt.Printf(", %s%s", item.Title, marker)
		}
		fmt.Println()

	default:
		fmt.Printf("unknown command %s, try /help\n", fields[0])
	}
	return false
}

func printMessage(m chat.Message) {
	who := "you"
	if m.Role == chat.RoleAssistant {
		who = "tutor"
	}
	fmt.Printf("%s> %s\n", who, m.Content)
}

func printSendError(err error) {
	switch {
	case chat.IsValidation(err):
		fmt.Printf("message rejected: %v\n", err)
	case errors.Is(err, chat.ErrRateLimited):
		fmt.Println("sending too fast, wait a moment")
	case errors.Is(err, chat.ErrSendInFlight):
		fmt.Println("still waiting for the previous reply")
	case errors.Is(err, tutorchat.ErrNoContext):
		fmt.Println("bind a module or content first: /context <module>")
	default:
		fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
	}
}
