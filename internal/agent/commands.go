package agent

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"memchat/internal/config"
)

// ChatCommand represents a parsed chat command.
type ChatCommand struct {
	Name string   // command name without "/"
	Args []string // arguments after the command
	Raw  string   // original full text
}

// ArgText returns everything after the command name, with inner spacing kept.
func (c *ChatCommand) ArgText() string {
	fields := strings.Fields(c.Raw)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(c.Raw, fields[0]))
}

// CommandResult holds the response for a handled command.
type CommandResult struct {
	Response string // text response to show
	Handled  bool   // true if the command was handled (don't send to the model)
	Err      error  // set when the command ran and failed
}

// startTime records when the process started for /status.
var startTime = time.Now()

// ParseCommand checks if a message starts with "/" and parses it into a ChatCommand.
// Returns nil if the message is not a command.
func ParseCommand(text string) *ChatCommand {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return nil
	}

	parts := strings.Fields(text)
	if len(parts) == 0 {
		return nil
	}

	name := strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	if name == "" {
		return nil
	}

	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}

	return &ChatCommand{
		Name: name,
		Args: args,
		Raw:  text,
	}
}

// HandleCommand runs a chat command against the conversation.
// Unknown commands return Handled=false so the text can be sent as a
// normal message.
func (c *Conversation) HandleCommand(ctx context.Context, cmd *ChatCommand) CommandResult {
	switch cmd.Name {
	case "help":
		return CommandResult{Response: helpText(), Handled: true}

	case "new", "clear":
		id := c.NewSession()
		return CommandResult{Response: fmt.Sprintf("Started new session %s.", id), Handled: true}

	case "save":
		if err := c.Save(ctx); err != nil {
			return CommandResult{Response: fmt.Sprintf("Save failed: %v", err), Handled: true, Err: err}
		}
		return CommandResult{Response: fmt.Sprintf("Session %s saved.", c.SessionID()), Handled: true}

	case "load":
		id := cmd.ArgText()
		if id == "" {
			return CommandResult{Response: "Usage: /load <session-id> (see /sessions)", Handled: true}
		}
		if err := c.Load(ctx, id); err != nil {
			return CommandResult{Response: fmt.Sprintf("Load failed: %v", err), Handled: true, Err: err}
		}
		return CommandResult{
			Response: fmt.Sprintf("Loaded session %s (%d messages).", id, len(c.Transcript())),
			Handled:  true,
		}

	case "sessions":
		ids, err := c.Sessions(ctx)
		if err != nil {
			return CommandResult{Response: fmt.Sprintf("Listing sessions failed: %v", err), Handled: true, Err: err}
		}
		return CommandResult{Response: c.sessionsText(ids), Handled: true}

	case "memory":
		return CommandResult{Response: c.memoryText(), Handled: true}

	case "topic":
		return CommandResult{Response: c.topicText(), Handled: true}

	case "status":
		return CommandResult{Response: c.statusText(), Handled: true}

	case "version":
		return CommandResult{Response: fmt.Sprintf("memchat v%s (%s/%s, Go %s)", version, runtime.GOOS, runtime.GOARCH, runtime.Version()), Handled: true}

	default:
		return CommandResult{Handled: false}
	}
}

// version is set by the build system. Default fallback.
var version = "0.1.0"

// SetVersion sets the version string used by commands.
func SetVersion(v string) {
	version = v
}

// Version returns the version string.
func Version() string { return version }

func helpText() string {
	return `Commands

/help             Show this help message
/new              Start a new session (memories are kept)
/clear            Same as /new
/save             Save the current session
/load <id>        Load a saved session
/sessions         List saved sessions, newest first
/memory           Show what has been remembered about you
/topic            Show the current conversation topic
/status           Show conversation status
/version          Show version info
/quit             Leave the chat`
}

func (c *Conversation) sessionsText(ids []string) string {
	if len(ids) == 0 {
		return "No saved sessions."
	}
	current := c.SessionID()
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Saved sessions (%d)\n", len(ids)))
	for _, id := range ids {
		marker := "  "
		if id == current {
			marker = "* "
		}
		sb.WriteString(marker + id + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (c *Conversation) memoryText() string {
	entries := c.Memories()
	if len(entries) == 0 {
		return "No memories yet."
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Memories (%d)\n", len(entries)))
	for i, e := range entries {
		sb.WriteString(fmt.Sprintf("\n[%d] %s\n", i+1, e))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (c *Conversation) topicText() string {
	if c.variant != config.VariantTelecom {
		return "Topic tracking is only available in the telecom variant."
	}
	current, ok, previous := c.Topic()
	if !ok {
		return "No topic yet."
	}
	text := fmt.Sprintf("Current topic: %s", current)
	if len(previous) > 0 {
		names := make([]string, len(previous))
		for i, t := range previous {
			names[i] = string(t)
		}
		text += "\nPrevious topics: " + strings.Join(names, ", ")
	}
	return text
}

func (c *Conversation) statusText() string {
	uptime := time.Since(startTime).Round(time.Second)
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("memchat v%s\n\n", version))
	sb.WriteString(fmt.Sprintf("User: %s\n", c.userID))
	sb.WriteString(fmt.Sprintf("Session: %s (%d messages)\n", c.SessionID(), len(c.Transcript())))
	sb.WriteString(fmt.Sprintf("Variant: %s\n", c.variant))
	sb.WriteString(fmt.Sprintf("Provider: %s\n", c.provider.Name()))
	sb.WriteString(fmt.Sprintf("State: %s\n", c.State()))
	if err := c.LastError(); err != nil {
		sb.WriteString(fmt.Sprintf("Last error: %v\n", err))
	}
	sb.WriteString(fmt.Sprintf("Uptime: %s", uptime))
	return sb.String()
}
