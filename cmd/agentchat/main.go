// Command agentchat runs two-party conversations from the command line.
//
// Usage:
//
//	agentchat chat -message "How much is 100 USD in EUR?"   # user initiates a chat with an assistant
//	agentchat talk -a Alice -b Bob                          # two agents introduce themselves
//	agentchat show -id <conversation-id>                    # print a stored transcript
//	agentchat version
//
// All commands accept -config <file>. Settings are layered from defaults, the
// YAML file and AGENTCHAT_* environment variables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/agentchat"
	"github.com/hupe1980/agentchat/agent"
	"github.com/hupe1980/agentchat/config"
	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/model/provider"
)

// Version is injected at build time.
var Version = "dev"

// DefaultTerminationMarker ends a chat when the user side sees it.
const DefaultTerminationMarker = "TERMINATE"

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "chat":
		err = runChat(ctx, os.Args[2:], os.Stdout)
	case "talk":
		err = runTalk(ctx, os.Args[2:], os.Stdout)
	case "show":
		err = runShow(ctx, os.Args[2:], os.Stdout)
	case "version":
		fmt.Fprintf(os.Stdout, "agentchat %s\n", Version)
	case "help", "-h", "--help":
		printUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage(os.Stderr)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: agentchat <command> [flags]

Commands:
  chat     a user agent initiates a chat with an assistant
  talk     two agents talk to each other starting from an empty history
  show     print a stored transcript
  version  print the version
`)
}

// app bundles what every conversation command needs.
type app struct {
	cfg     *config.Config
	chat    *agentchat.AgentChat
	metrics *http.Server
}

func setup(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.NewLoader().WithPath(configPath).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ac, err := agentchat.FromConfig(ctx, cfg, reg)
	if err != nil {
		return nil, err
	}

	rt := &app{cfg: cfg, chat: ac}

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		rt.metrics = &http.Server{
			Addr:              cfg.Metrics.Listen,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			ac.Logger().Info("metrics.listen", "addr", cfg.Metrics.Listen)
			if err := rt.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				ac.Logger().Error("metrics.error", "error", err.Error())
			}
		}()
	}

	return rt, nil
}

func (rt *app) close() {
	if rt.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = rt.metrics.Shutdown(ctx)
	}
	if err := rt.chat.Close(); err != nil {
		rt.chat.Logger().Warn("store.close.error", "error", err.Error())
	}
}

func (rt *app) newAgent(ctx context.Context, name, instruction string, optFns ...func(o *agent.ModelAgentOptions)) (*agent.ModelAgent, error) {
	m, err := provider.New(ctx, rt.cfg.Model)
	if err != nil {
		return nil, err
	}

	if instruction != "" {
		optFns = append([]func(o *agent.ModelAgentOptions){agent.WithInstruction(instruction)}, optFns...)
	}

	return rt.chat.NewModelAgent(name, m, optFns...), nil
}

func runChat(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	user := fs.String("user", "User", "Name of the initiating agent")
	assistant := fs.String("assistant", "Assistant", "Name of the responding agent")
	system := fs.String("system", "You are {{.Name}}, a helpful assistant talking to {{.Counterpart}}. Reply TERMINATE when the task is done.", "Assistant instruction template")
	message := fs.String("message", "", "Opening message")
	marker := fs.String("terminate-on", DefaultTerminationMarker, "Text that ends the chat")
	id := fs.String("id", "", "Conversation id (generated when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *message == "" {
		return errors.New("-message is required")
	}

	rt, err := setup(ctx, *configPath)
	if err != nil {
		return err
	}
	defer rt.close()

	userAgent, err := rt.newAgent(ctx, *user, "You are {{.Name}}. Continue the conversation with {{.Counterpart}}.",
		agent.WithHook(agent.TerminateOnText(*marker)))
	if err != nil {
		return err
	}

	assistantAgent, err := rt.newAgent(ctx, *assistant, *system)
	if err != nil {
		return err
	}

	conv, err := rt.chat.InitiateChat(ctx, userAgent, assistantAgent, core.Text(*message), withID(*id))
	printConversation(out, conv)

	return err
}

func runTalk(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("talk", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	a := fs.String("a", "Alice", "Name of the first speaker")
	b := fs.String("b", "Bob", "Name of the second speaker")
	messages := fs.Int("messages", 4, "Stop once the history holds this many messages")
	id := fs.String("id", "", "Conversation id (generated when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rt, err := setup(ctx, *configPath)
	if err != nil {
		return err
	}
	defer rt.close()

	const introduce = "You are {{.Name}} meeting {{.Counterpart}} for the first time. Introduce yourself briefly."
	hook := agent.WithHook(agent.TerminateAfterMessages(*messages))

	first, err := rt.newAgent(ctx, *a, introduce, hook)
	if err != nil {
		return err
	}

	second, err := rt.newAgent(ctx, *b, introduce, hook)
	if err != nil {
		return err
	}

	conv, err := rt.chat.TalkTo(ctx, first, second, withID(*id))
	printConversation(out, conv)

	return err
}

func runShow(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	id := fs.String("id", "", "Conversation id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("-id is required")
	}

	rt, err := setup(ctx, *configPath)
	if err != nil {
		return err
	}
	defer rt.close()

	store := rt.chat.Store()
	if store == nil {
		return agentchat.ErrNoStore
	}

	msgs, err := store.Load(ctx, *id)
	if err != nil {
		return err
	}

	terminated, err := store.Terminated(ctx, *id)
	if err != nil {
		return err
	}

	for _, msg := range msgs {
		fmt.Fprint(out, msg.String())
	}
	fmt.Fprintf(out, "-- %d messages, terminated: %t\n", len(msgs), terminated)

	return nil
}

func withID(id string) func(o *agent.ChatOptions) {
	return func(o *agent.ChatOptions) {
		if id != "" {
			o.ConversationID = id
		}
	}
}

func printConversation(out io.Writer, conv *core.Conversation) {
	if conv == nil {
		return
	}
	for _, msg := range conv.History() {
		fmt.Fprint(out, msg.String())
	}
	fmt.Fprintf(out, "-- conversation %s, %d messages, terminated: %t\n", conv.ID(), conv.Len(), conv.HasTerminated())
}
