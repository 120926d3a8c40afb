// Command bob is an interactive console for the agent. Type a message,
// get the rendered reply; slash commands inspect the conversation.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	_ "github.com/joho/godotenv/autoload"
	"github.com/k0kubun/pp/v3"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"

	"github.com/HuyNguyen260398/bob"
	"github.com/HuyNguyen260398/bob/messages"
	"github.com/HuyNguyen260398/bob/pkg/slogx"
	"github.com/HuyNguyen260398/bob/tool/builtin"
)

var log zerolog.Logger

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
	log = zerolog.New(output).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: slog.LevelInfo}),
	))
}

var glam *glamour.TermRenderer

func main() {
	var err error
	glam, err = glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		slog.Error("failed to create renderer", slogx.Error(err))
		os.Exit(1)
	}

	cfg, err := bob.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", slogx.Error(err))
		os.Exit(1)
	}

	agent, err := bob.New(cfg, bob.WithNotes(builtin.DirNotes{Dir: "notes"}))
	if err != nil {
		slog.Error("failed to create agent", slogx.Error(err))
		os.Exit(1)
	}

	ctx := context.Background()
	threadID := "console"

	fmt.Printf("%s ready. Type a message, %s for commands, %s to leave.\n",
		color.MagentaString(cfg.Name), color.YellowString("/help"), color.YellowString("quit"))

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Split(bufio.ScanLines)

	for {
		fmt.Printf("%s: ", color.CyanString("You"))
		if !scanner.Scan() {
			fmt.Println("Exiting...")
			return
		}

		input := strings.TrimSpace(scanner.Text())
		switch {
		case input == "":
			continue
		case strings.EqualFold(input, "quit"), strings.EqualFold(input, "exit"):
			return
		case input == "/help":
			fmt.Println("/history   show the conversation so far")
			fmt.Println("/summary   ask the model to summarize the thread")
			fmt.Println("/analysis  show conversation metadata")
			fmt.Println("/state     dump the thread checkpoints")
			fmt.Println("quit      leave")
			continue
		case input == "/history":
			printHistory(ctx, agent, threadID)
			continue
		case input == "/summary":
			summary, err := agent.Summary(ctx, threadID)
			if err != nil {
				slog.Error("summary failed", slogx.Error(err))
				continue
			}
			render(summary)
			continue
		case input == "/analysis":
			pp.Println(agent.Analysis(ctx, threadID))
			continue
		case input == "/state":
			pp.Println(agent.Checkpoints(ctx, threadID))
			continue
		}

		reply, err := agent.Chat(ctx, input, threadID)
		if err != nil {
			slog.Error("chat failed", slogx.Error(err), slogx.Thread(threadID))
			continue
		}

		fmt.Printf("%s:", color.MagentaString(cfg.Name))
		render(reply.Content)
		if reply.Truncated {
			fmt.Println(color.YellowString("(response truncated by iteration limit)"))
		}
	}
}

func render(content string) {
	out, err := glam.Render(content)
	if err != nil {
		fmt.Println(content)
		return
	}
	fmt.Print(out)
}

func printHistory(ctx context.Context, agent *bob.Agent, threadID string) {
	history := agent.History(ctx, threadID)
	if len(history) == 0 {
		fmt.Println("(empty)")
		return
	}
	for _, m := range history {
		role := m.Payload.Role()
		switch payload := m.Payload.(type) {
		case messages.UserMessage:
			fmt.Printf("%s: %s\n", color.CyanString(role), payload.Content)
		case messages.AssistantMessage:
			fmt.Printf("%s: %s\n", color.MagentaString(role), payload.Content)
		case messages.ToolCallMessage:
			for _, tc := range payload.ToolCalls {
				fmt.Printf("%s: %s%s\n", color.YellowString(role), tc.Name, tc.Arguments)
			}
		case messages.ToolResponse:
			fmt.Printf("%s: %s -> %s\n", color.YellowString(role), payload.ToolName, payload.Content)
		}
	}
}
