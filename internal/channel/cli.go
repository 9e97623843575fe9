package channel

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"memchat/internal/agent"
)

const prompt = "You> "

// CLI is the interactive terminal front-end of one conversation.
type CLI struct {
	conv    *agent.Conversation
	logger  *slog.Logger
	in      io.Reader
	out     io.Writer
	spinner bool

	thinkMu   sync.Mutex
	thinking  bool
	thinkStop chan struct{}
	thinkDone sync.WaitGroup
}

type CLIConfig struct {
	Conversation *agent.Conversation
	Logger       *slog.Logger
	In           io.Reader
	Out          io.Writer
	Spinner      bool // animate while waiting for the model
}

func NewCLI(cfg CLIConfig) *CLI {
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &CLI{
		conv:    cfg.Conversation,
		logger:  cfg.Logger,
		in:      cfg.In,
		out:     cfg.Out,
		spinner: cfg.Spinner,
	}
}

func (c *CLI) Name() string { return "cli" }

// Start runs the REPL until EOF, /quit, or context cancellation.
func (c *CLI) Start(ctx context.Context) error {
	_, _ = fmt.Fprintf(c.out, "memchat (%s) user %s, session %s. Type /help for commands, /quit to exit.\n",
		c.conv.Variant(), c.conv.UserID(), c.conv.SessionID())
	c.printTranscript()
	_, _ = fmt.Fprint(c.out, prompt)

	// Lines are read whole, whatever their length.
	reader := bufio.NewReader(c.in)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		raw, readErr := reader.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return readErr
		}
		if errors.Is(readErr, io.EOF) && raw == "" {
			_, _ = fmt.Fprintln(c.out)
			return nil
		}

		line := strings.TrimSpace(raw)
		if line == "" {
			_, _ = fmt.Fprint(c.out, prompt)
			continue
		}
		if line == "/quit" || line == "/exit" || line == "/q" {
			c.logger.Info("user requested quit")
			return nil
		}

		if cmd := agent.ParseCommand(line); cmd != nil {
			if res := c.conv.HandleCommand(ctx, cmd); res.Handled {
				if res.Err != nil {
					c.logger.Warn("command failed", "command", cmd.Name, "err", res.Err)
				}
				_, _ = fmt.Fprintln(c.out, res.Response)
				if cmd.Name == "load" && res.Err == nil {
					c.printTranscript()
				}
				_, _ = fmt.Fprint(c.out, prompt)
				continue
			}
		}

		c.startThinking()
		answer, err := c.conv.Send(ctx, line)
		c.stopThinking()

		switch {
		case err == nil:
			_, _ = fmt.Fprintln(c.out, "--- assistant ---")
			_, _ = fmt.Fprintln(c.out, answer)
			_, _ = fmt.Fprintln(c.out, "-----------------")
		case errors.Is(err, context.Canceled):
			return nil
		default:
			_, _ = fmt.Fprintf(c.out, "Error: %v\n", err)
		}
		_, _ = fmt.Fprint(c.out, prompt)
	}
}

func (c *CLI) printTranscript() {
	for _, m := range c.conv.Transcript() {
		_, _ = fmt.Fprintf(c.out, "[%s] %s\n", m.Role, m.Content)
	}
}

func (c *CLI) startThinking() {
	if !c.spinner {
		return
	}
	c.thinkMu.Lock()
	defer c.thinkMu.Unlock()
	if c.thinking {
		return
	}
	c.thinking = true
	c.thinkStop = make(chan struct{})
	c.thinkDone.Add(1)
	go func(stop <-chan struct{}) {
		defer c.thinkDone.Done()
		frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
		i := 0
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				_, _ = fmt.Fprint(c.out, "\r\033[K") // clear spinner line
				return
			case <-ticker.C:
				_, _ = fmt.Fprintf(c.out, "\r%s Thinking...", frames[i%len(frames)])
				i++
			}
		}
	}(c.thinkStop)
}

func (c *CLI) stopThinking() {
	c.thinkMu.Lock()
	if !c.thinking {
		c.thinkMu.Unlock()
		return
	}
	c.thinking = false
	close(c.thinkStop)
	c.thinkMu.Unlock()
	c.thinkDone.Wait()
}
