// Package bob implements a conversational agent: a tool-using chat
// workflow over an LLM completion API, with persistent threads and
// streamed progress events.
package bob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/fogfish/opts"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/openai/openai-go/option"

	"github.com/HuyNguyen260398/bob/events"
	"github.com/HuyNguyen260398/bob/internal/broker"
	"github.com/HuyNguyen260398/bob/internal/threadstore"
	"github.com/HuyNguyen260398/bob/messages"
	"github.com/HuyNguyen260398/bob/pkg/slogx"
	"github.com/HuyNguyen260398/bob/pkg/uuidx"
	"github.com/HuyNguyen260398/bob/provider"
	"github.com/HuyNguyen260398/bob/provider/openai"
	"github.com/HuyNguyen260398/bob/tool"
	"github.com/HuyNguyen260398/bob/tool/builtin"
	"github.com/HuyNguyen260398/bob/workflow"
)

// Reply is the outcome of one chat invocation.
type Reply struct {
	// Content is the final assistant text. It may be empty when the run
	// was truncated before the model produced prose.
	Content string

	// Truncated reports that the iteration cap cut the run short and
	// Content is best-effort.
	Truncated bool

	// Usage is the token consumption of this invocation.
	Usage provider.Usage
}

// Agent is the conversational facade. It is safe for concurrent use;
// runs on the same thread are serialized by the store.
type Agent struct {
	cfg      Config
	provider provider.Provider
	registry *tool.Registry
	engine   *workflow.Engine
	store    threadstore.Store
	broker   broker.Broker
}

// New builds an agent from the configuration. Collaborators not
// supplied through options get production defaults: the OpenAI
// provider wrapped with retry, the builtin tool set, an in-memory
// thread store and an in-process broker.
func New(cfg Config, options ...Option) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("bob: %w", err)
	}

	var s Settings
	if err := opts.Apply(&s, options); err != nil {
		return nil, fmt.Errorf("bob: %w", err)
	}

	if s.Notes == nil {
		s.Notes = builtin.NewMemoryNotes()
	}
	if s.Tools == nil {
		s.Tools = builtin.Defaults(s.Notes)
	}
	registry, err := tool.NewRegistry(s.Tools...)
	if err != nil {
		return nil, fmt.Errorf("bob: %w", err)
	}

	if s.Provider == nil {
		reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
		if cfg.BaseURL != "" {
			reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
		}
		s.Provider = openai.New(reqOpts...)
	}
	retrying := provider.Retrying(s.Provider, provider.RetryPolicy{
		MaxAttempts: uint64(cfg.MaxRetries),
		BaseDelay:   cfg.RetryBase,
		MaxDelay:    cfg.RetryMax,
	})

	if s.Store == nil {
		s.Store = threadstore.NewInMemory()
	}
	if s.Broker == nil {
		s.Broker = broker.Local()
	}

	engine, err := workflow.NewEngine(workflow.EngineParams{
		Provider:      retrying,
		Registry:      registry,
		Instructions:  cfg.Instructions,
		Model:         cfg.Model,
		MaxTokens:     cfg.MaxTokens,
		Temperature:   cfg.Temperature,
		MaxIterations: cfg.MaxIterations,
		HistoryLimit:  cfg.MaxConversationHistory,
	})
	if err != nil {
		return nil, fmt.Errorf("bob: %w", err)
	}

	return &Agent{
		cfg:      cfg,
		provider: retrying,
		registry: registry,
		engine:   engine,
		store:    s.Store,
		broker:   s.Broker,
	}, nil
}

// Chat runs one conversational turn on the given thread and blocks
// until the final reply. The thread is created on first use.
func (a *Agent) Chat(ctx context.Context, message, threadID string) (Reply, error) {
	return a.runWithID(ctx, uuidx.New(), message, threadID, nil)
}

// StreamChat runs one conversational turn and streams progress: one
// Update event per completed workflow node, terminated by exactly one
// Response or Error event. The returned channel closes after the
// terminal event.
func (a *Agent) StreamChat(ctx context.Context, message, threadID string) (<-chan events.Event, error) {
	runID := uuidx.New()
	topic := a.broker.Topic(ctx, runID.String())
	ch, sub, err := topic.Subscribe(ctx)
	if err != nil {
		return nil, fmt.Errorf("bob: %w", err)
	}

	go func() {
		defer sub.Unsubscribe()

		publish := func(ev events.Event) {
			if perr := topic.Publish(ctx, ev); perr != nil {
				slog.Warn("failed to publish run event", slogx.Error(perr))
			}
		}

		reply, err := a.runWithID(ctx, runID, message, threadID, func(node string, state *workflow.State, appended workflow.History) {
			publish(events.Update{
				RunID:     runID,
				ThreadID:  threadID,
				Node:      node,
				Iteration: state.IterationCount(),
				Messages:  appended,
				Timestamp: strfmt.DateTime(time.Now()),
			})
		})
		if err != nil {
			publish(events.Error{
				RunID:     runID,
				ThreadID:  threadID,
				Err:       err,
				Timestamp: strfmt.DateTime(time.Now()),
			})
			return
		}
		publish(events.Response{
			RunID:     runID,
			ThreadID:  threadID,
			Content:   reply.Content,
			Truncated: reply.Truncated,
			Usage:     reply.Usage,
			Timestamp: strfmt.DateTime(time.Now()),
		})
	}()

	return ch, nil
}

type runObserver func(node string, state *workflow.State, appended workflow.History)

func (a *Agent) runWithID(ctx context.Context, runID uuid.UUID, message, threadID string, observe runObserver) (Reply, error) {
	if message == "" {
		return Reply{}, errors.New("bob: empty message")
	}

	var reply Reply
	err := a.store.Update(ctx, threadID, func(th *threadstore.Thread) error {
		fork := th.State.Fork()
		fork.SetUserInput(message)
		baseUsage := fork.Usage()
		prevLen := fork.Len()

		var nodeObserver workflow.Observer
		if observe != nil {
			nodeObserver = func(node string, state *workflow.State) {
				appended := state.Messages()[prevLen:]
				prevLen = state.Len()
				observe(node, state, appended)
			}
		}

		runErr := a.engine.Run(ctx, runID, fork, nodeObserver)
		if runErr != nil && !errors.Is(runErr, workflow.ErrIterationLimit) {
			// The turn did not complete; the thread keeps its pre-run
			// state untouched.
			return runErr
		}

		th.State.Join(fork)
		th.State.TruncateHistory(a.cfg.MaxConversationHistory)
		th.Checkpoints = append(th.Checkpoints, th.State.Checkpoint())

		usage := th.State.Usage()
		usage.PromptTokens -= baseUsage.PromptTokens
		usage.CompletionTokens -= baseUsage.CompletionTokens
		usage.TotalTokens -= baseUsage.TotalTokens

		reply = Reply{
			Content:   th.State.AgentResponse(),
			Truncated: fork.Truncated() || errors.Is(runErr, workflow.ErrIterationLimit),
			Usage:     usage,
		}
		return nil
	})
	if err != nil {
		return Reply{}, fmt.Errorf("bob: chat on thread %q: %w", threadID, err)
	}

	slog.Info("chat turn completed",
		slogx.Thread(threadID),
		slog.String("run_id", runID.String()),
		slog.Bool("truncated", reply.Truncated),
		slog.Int64("total_tokens", reply.Usage.TotalTokens),
	)
	return reply, nil
}

// History returns the thread's conversation history in order. Unknown
// threads yield an empty history.
func (a *Agent) History(ctx context.Context, threadID string) workflow.History {
	thread, ok := a.store.Get(ctx, threadID)
	if !ok {
		return workflow.History{}
	}
	return thread.State.Messages()
}

// Checkpoints returns the snapshots recorded after each completed run
// on the thread.
func (a *Agent) Checkpoints(ctx context.Context, threadID string) []workflow.Checkpoint {
	thread, ok := a.store.Get(ctx, threadID)
	if !ok {
		return nil
	}
	return thread.Checkpoints
}

// Analysis describes a conversation thread at a glance: message counts
// by kind, the conversation stage, and the latest user topics.
type Analysis struct {
	TotalMessages     int            `json:"total_messages"`
	UserMessages      int            `json:"user_messages"`
	AssistantMessages int            `json:"assistant_messages"`
	ToolCalls         int            `json:"tool_calls"`
	ToolResults       int            `json:"tool_results"`
	Stage             string         `json:"conversation_stage"`
	RecentTopics      []string       `json:"recent_topics,omitempty"`
	Iterations        int            `json:"iterations"`
	Runs              int            `json:"runs"`
	Usage             provider.Usage `json:"usage"`
	NeedsSummary      bool           `json:"needs_summary"`
}

// Analysis computes conversation metadata for the thread without
// calling the model. An unknown thread analyzes as a beginning-stage
// conversation with zero counts.
func (a *Agent) Analysis(ctx context.Context, threadID string) Analysis {
	an := Analysis{Stage: "beginning"}

	thread, ok := a.store.Get(ctx, threadID)
	if !ok {
		return an
	}

	history := thread.State.Messages()
	an.TotalMessages = len(history)
	an.Iterations = thread.State.IterationCount()
	an.Runs = len(thread.Checkpoints)
	an.Usage = thread.State.Usage()
	an.NeedsSummary = an.TotalMessages > 20

	for i, m := range history {
		switch payload := m.Payload.(type) {
		case messages.UserMessage:
			an.UserMessages++
			if len(history)-i <= 6 {
				an.RecentTopics = append(an.RecentTopics, payload.Content)
			}
		case messages.AssistantMessage:
			an.AssistantMessages++
		case messages.ToolCallMessage:
			an.ToolCalls += len(payload.ToolCalls)
		case messages.ToolResponse:
			an.ToolResults++
		}
	}

	switch {
	case an.TotalMessages == 0:
		an.Stage = "beginning"
	case an.TotalMessages < 6:
		an.Stage = "early"
	case an.TotalMessages < 15:
		an.Stage = "middle"
	default:
		an.Stage = "extended"
	}
	return an
}

// Summary asks the model for a short summary of the conversation so
// far. An empty thread summarizes to an empty string without calling
// the model.
func (a *Agent) Summary(ctx context.Context, threadID string) (string, error) {
	history := a.History(ctx, threadID)
	if len(history) == 0 {
		return "", nil
	}

	completion, err := a.provider.Completion(ctx, provider.CompletionParams{
		RunID:        uuidx.New(),
		Instructions: "Summarize the conversation below in two or three sentences. Mention what the user wanted and what was concluded.",
		Messages:     slices.Values(history),
		Model:        a.cfg.Model,
		MaxTokens:    a.cfg.MaxTokens,
		Temperature:  a.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("bob: summarize thread %q: %w", threadID, err)
	}
	return completion.Content, nil
}

// DeleteThread forgets the thread. Deleting an unknown thread is not an
// error.
func (a *Agent) DeleteThread(ctx context.Context, threadID string) error {
	return a.store.Delete(ctx, threadID)
}
