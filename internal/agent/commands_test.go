package agent

import (
	"context"
	"strings"
	"testing"

	"memchat/internal/config"
)

func TestParseCommand(t *testing.T) {
	cmd := ParseCommand("  /Load 2024-01-02_03-04-05 ")
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if cmd.Name != "load" || len(cmd.Args) != 1 || cmd.Args[0] != "2024-01-02_03-04-05" {
		t.Fatalf("unexpected command: %+v", cmd)
	}

	if ParseCommand("hello /save") != nil {
		t.Fatal("plain text should not parse as a command")
	}
	if ParseCommand("/") != nil {
		t.Fatal("bare slash should not parse as a command")
	}
}

func TestHandleCommand_UnknownPassesThrough(t *testing.T) {
	f := newFixture(t)
	c := f.conversation(t, "alice", config.VariantGeneral)

	if res := c.HandleCommand(context.Background(), ParseCommand("/frobnicate")); res.Handled {
		t.Fatal("unknown command should not be handled")
	}
}

func TestHandleCommand_SaveSessionsLoad(t *testing.T) {
	f := newFixture(t)
	c := f.conversation(t, "alice", config.VariantGeneral)
	ctx := context.Background()

	if _, err := c.Send(ctx, "hi"); err != nil {
		t.Fatal(err)
	}
	id := c.SessionID()

	res := c.HandleCommand(ctx, ParseCommand("/save"))
	if !res.Handled || res.Err != nil || !strings.Contains(res.Response, id) {
		t.Fatalf("unexpected /save result: %+v", res)
	}

	res = c.HandleCommand(ctx, ParseCommand("/clear"))
	if !res.Handled || len(c.Transcript()) != 0 {
		t.Fatalf("/clear should reset the transcript: %+v", res)
	}

	res = c.HandleCommand(ctx, ParseCommand("/sessions"))
	if !strings.Contains(res.Response, id) {
		t.Fatalf("expected %q in /sessions output: %q", id, res.Response)
	}

	res = c.HandleCommand(ctx, ParseCommand("/load "+id))
	if res.Err != nil || len(c.Transcript()) != 2 {
		t.Fatalf("unexpected /load result: %+v", res)
	}

	res = c.HandleCommand(ctx, ParseCommand("/load"))
	if !strings.HasPrefix(res.Response, "Usage:") {
		t.Fatalf("expected usage text, got %q", res.Response)
	}
}

func TestHandleCommand_MemoryAndTopic(t *testing.T) {
	f := newFixture(t)
	c := f.conversation(t, "alice", config.VariantTelecom)
	ctx := context.Background()

	if res := c.HandleCommand(ctx, ParseCommand("/memory")); res.Response != "No memories yet." {
		t.Fatalf("unexpected /memory output: %q", res.Response)
	}
	if _, err := c.Send(ctx, "what is my current bill amount"); err != nil {
		t.Fatal(err)
	}

	if res := c.HandleCommand(ctx, ParseCommand("/memory")); !strings.Contains(res.Response, "Q: what is my current bill amount") {
		t.Fatalf("unexpected /memory output: %q", res.Response)
	}
	if res := c.HandleCommand(ctx, ParseCommand("/topic")); res.Response != "Current topic: billing" {
		t.Fatalf("unexpected /topic output: %q", res.Response)
	}
}

func TestHandleCommand_Status(t *testing.T) {
	f := newFixture(t)
	c := f.conversation(t, "alice", config.VariantGeneral)

	res := c.HandleCommand(context.Background(), ParseCommand("/status"))
	for _, want := range []string{"User: alice", "Variant: general", "Provider: mock", "State: idle"} {
		if !strings.Contains(res.Response, want) {
			t.Fatalf("expected %q in status:\n%s", want, res.Response)
		}
	}
}

func TestHandleCommand_LoadLabelWithSpaces(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.conversation(t, "alice", config.VariantGeneral)

	if err := c.Load(ctx, "my  label"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Send(ctx, "hi"); err != nil {
		t.Fatal(err)
	}
	if err := c.Save(ctx); err != nil {
		t.Fatal(err)
	}
	c.NewSession()

	res := c.HandleCommand(ctx, ParseCommand("/load my  label"))
	if res.Err != nil || c.SessionID() != "my  label" || len(c.Transcript()) != 2 {
		t.Fatalf("expected labelled session restored, got %+v in %q with %d messages", res, c.SessionID(), len(c.Transcript()))
	}
}

func TestChatCommand_ArgText(t *testing.T) {
	if got := ParseCommand("/load   a  b ").ArgText(); got != "a  b" {
		t.Fatalf("expected inner spacing kept, got %q", got)
	}
	if got := ParseCommand("/load").ArgText(); got != "" {
		t.Fatalf("expected no argument, got %q", got)
	}
}
