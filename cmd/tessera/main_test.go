package main

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/Gaurav-Gosain/tessera/internal/config"
	"github.com/Gaurav-Gosain/tessera/internal/workspace"
)

func TestNvimConfig(t *testing.T) {
	tests := []struct {
		name     string
		command  []string
		address  string
		flag     string
		wantCmd  string
		wantArgs []string
		wantAddr string
	}{
		{"defaults", nil, "", "", "nvim", []string{"--embed", "--headless"}, ""},
		{"custom command", []string{"/opt/nvim/bin/nvim", "--embed", "--clean"}, "", "", "/opt/nvim/bin/nvim", []string{"--embed", "--clean"}, ""},
		{"configured address", nil, "/tmp/nvim.sock", "", "nvim", []string{"--embed", "--headless"}, "/tmp/nvim.sock"},
		{"flag wins", nil, "/tmp/nvim.sock", "127.0.0.1:6666", "nvim", []string{"--embed", "--headless"}, "127.0.0.1:6666"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nvimAddress = tt.flag
			defer func() { nvimAddress = "" }()

			cfg := config.DefaultConfig()
			cfg.Engine.Command = tt.command
			cfg.Engine.Address = tt.address

			got := nvimConfig(cfg)
			if got.Command != tt.wantCmd || !slices.Equal(got.Args, tt.wantArgs) || got.Address != tt.wantAddr {
				t.Errorf("nvimConfig = %+v", got)
			}
		})
	}
}

func TestGroupOr(t *testing.T) {
	if got := groupOr("  ", "notes"); got != "notes" {
		t.Errorf("blank group = %q, want fallback", got)
	}
	if got := groupOr("ideas", "notes"); got != "ideas" {
		t.Errorf("group = %q, want ideas", got)
	}
	if got := dirOr("", "/data"); got != "/data" {
		t.Errorf("dirOr = %q", got)
	}
}

func TestPrintWorkspaceTree_ReportsDroppedLinks(t *testing.T) {
	dir := t.TempDir()

	ws, err := workspace.Open(dir, "notes")
	if err != nil {
		t.Fatal(err)
	}
	state, err := ws.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"notes/1.md", "notes/2.md"} {
		if err := os.WriteFile(filepath.Join(dir, key), []byte("x\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	state.Records = []workspace.Record{
		{Key: "notes/1.md", ManualScale: 1},
		{Key: "notes/2.md", ManualScale: 1, Parent: "notes/9.md", Side: "down"},
	}
	if err := ws.Save(context.Background(), state); err != nil {
		t.Fatal(err)
	}

	dropped, err := printWorkspaceTree(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(dropped) != 1 || dropped[0].Key != "notes/2.md" {
		t.Errorf("dropped = %v, want the link to the missing parent", dropped)
	}
}
