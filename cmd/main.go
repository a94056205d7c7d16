package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kagent-dev/kagent/go-chat/pkg/chat"
	"github.com/kagent-dev/kagent/go-chat/pkg/client"
	"github.com/kagent-dev/kagent/go-chat/pkg/config"
	"github.com/kagent-dev/kagent/go-chat/pkg/transcript"
	"github.com/kagent-dev/kagent/go-chat/pkg/version"
)

func newLogger(verbose bool) logr.Logger {
	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	zapLog, err := zapConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return zapr.NewLogger(zapLog)
}

// stderrNotifier surfaces stream-level problems without polluting the
// transcript output on stdout.
type stderrNotifier struct{}

func (stderrNotifier) Notify(message string) {
	fmt.Fprintf(os.Stderr, "! %s\n", message)
}

func main() {
	var (
		serverURL string
		appName   string
		userID    string
		sessionID string
		verbose   bool
	)

	root := &cobra.Command{
		Use:          "go-chat",
		Short:        "Terminal client for ADK-style agent servers",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&serverURL, "server", "", "agent server base URL")
	root.PersistentFlags().StringVar(&appName, "app", "", "agent app name")
	root.PersistentFlags().StringVar(&userID, "user", "", "user id")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(serverURL, appName, userID)
			if err != nil {
				return err
			}
			if cfg.AppName == "" {
				return fmt.Errorf("no app name configured; pass --app or set app_name in the config file")
			}
			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			return runChat(cmd.Context(), cfg, sessionID, newLogger(verbose || cfg.Verbose))
		},
	}
	chatCmd.Flags().StringVar(&sessionID, "session", "", "session id (defaults to a new session)")
	root.AddCommand(chatCmd)

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the client version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.Version)
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(serverURL, appName, userID string) (*config.Config, error) {
	if err := config.Init(); err != nil {
		return nil, err
	}
	cfg, err := config.Get()
	if err != nil {
		return nil, err
	}
	if serverURL != "" {
		cfg.ServerURL = serverURL
	}
	if appName != "" {
		cfg.AppName = appName
	}
	if userID != "" {
		cfg.UserID = userID
	}
	return cfg, nil
}

func runChat(ctx context.Context, cfg *config.Config, sessionID string, logger logr.Logger) error {
	c := client.New(cfg.ServerURL)
	session := chat.NewSession(chat.Config{
		Client:    c,
		AppName:   cfg.AppName,
		UserID:    cfg.UserID,
		SessionID: sessionID,
		Notifier:  stderrNotifier{},
		Logger:    logger,
	})

	if _, err := c.CreateSession(ctx, cfg.UserID, cfg.AppName, sessionID); err != nil {
		// The session may already exist; replay its history instead.
		if hydrateErr := session.Hydrate(ctx); hydrateErr != nil {
			return fmt.Errorf("failed to open session %s: %w", sessionID, err)
		}
	}

	rendered := render(session, 0)

	fmt.Printf("Connected to %s (app %s, session %s). Empty line or Ctrl-D to quit.\n",
		cfg.ServerURL, cfg.AppName, sessionID)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			break
		}
		if err := session.Send(ctx, line, nil); err != nil {
			fmt.Fprintf(os.Stderr, "! turn failed: %v\n", err)
		}
		session.WaitArtifacts()
		rendered = render(session, rendered)
	}
	session.Cancel()
	return nil
}

// render prints messages appended since the last call and returns the new
// high-water mark.
func render(session *chat.Session, from int) int {
	messages := session.Transcript().Messages()
	if from > len(messages) {
		from = len(messages)
	}
	for _, m := range messages[from:] {
		printMessage(m)
	}
	return len(messages)
}

func printMessage(m *transcript.Message) {
	prefix := "agent"
	if m.Role == transcript.RoleUser {
		prefix = "you"
	}
	switch {
	case m.IsLoading:
	case m.Thought:
		fmt.Printf("[%s thinking] %s\n", prefix, m.Text)
	case m.FunctionCall != nil:
		fmt.Printf("[tool call] %s\n", m.FunctionCall.Name)
	case m.FunctionResponse != nil:
		fmt.Printf("[tool result] %s\n", m.FunctionResponse.Name)
	case m.ExecutableCode != nil:
		fmt.Printf("[code %s]\n%s\n", m.ExecutableCode.Language, m.ExecutableCode.Code)
	case m.CodeExecutionResult != nil:
		fmt.Printf("[code result %s] %s\n", m.CodeExecutionResult.Outcome, m.CodeExecutionResult.Output)
	case m.InlineData != nil:
		name := m.InlineData.DisplayName
		if name == "" {
			name = m.InlineData.Name
		}
		fmt.Printf("[%s %s] %s\n", m.InlineData.MediaType, m.InlineData.MIMEType, name)
	case m.Text != "":
		fmt.Printf("%s: %s\n", prefix, m.Text)
	}
}
