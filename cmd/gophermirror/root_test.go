package main

import (
	"testing"
)

// TestNewRootCmd tests root command construction.
func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	t.Run("creates root command with expected properties", func(t *testing.T) {
		t.Parallel()

		cmd := NewRootCmd()
		if cmd == nil {
			t.Fatal("NewRootCmd returned nil")
		}
		if cmd.Use != "gophermirror" {
			t.Errorf("expected Use to be 'gophermirror', got %q", cmd.Use)
		}
		if cmd.Short == "" {
			t.Error("expected non-empty Short description")
		}
		if cmd.Long == "" {
			t.Error("expected non-empty Long description")
		}
		if cmd.Version != getVersion() {
			t.Errorf("expected Version %q, got %q", getVersion(), cmd.Version)
		}
		if !cmd.SilenceUsage {
			t.Error("expected SilenceUsage to be true")
		}
		if !cmd.SilenceErrors {
			t.Error("expected SilenceErrors to be true")
		}
	})

	t.Run("has verbose persistent flag", func(t *testing.T) {
		t.Parallel()

		cmd := NewRootCmd()
		flag := cmd.PersistentFlags().Lookup("verbose")
		if flag == nil {
			t.Fatal("expected verbose persistent flag")
		}
		if flag.Shorthand != "v" {
			t.Errorf("expected shorthand 'v', got %q", flag.Shorthand)
		}
		if flag.DefValue != "false" {
			t.Errorf("expected default 'false', got %q", flag.DefValue)
		}
	})

	t.Run("registers all subcommands", func(t *testing.T) {
		t.Parallel()

		cmd := NewRootCmd()
		want := map[string]bool{
			"mirror":  false,
			"history": false,
			"version": false,
		}
		for _, sub := range cmd.Commands() {
			if _, ok := want[sub.Name()]; ok {
				want[sub.Name()] = true
			}
		}
		for name, found := range want {
			if !found {
				t.Errorf("expected subcommand %q to be registered", name)
			}
		}
	})
}
