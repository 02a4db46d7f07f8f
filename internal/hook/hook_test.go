package hook

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name    string
		tmpl    string
		data    map[string]string
		want    string
		wantErr bool
	}{
		{
			name: "plain_command",
			tmpl: "echo hello",
			data: map[string]string{},
			want: "echo hello",
		},
		{
			name: "substitutes_values",
			tmpl: "tar xf {{.from}} -C {{.to}}",
			data: map[string]string{"from": "/tmp/a.tar.gz", "to": "/tmp/out"},
			want: "tar xf /tmp/a.tar.gz -C /tmp/out",
		},
		{
			name: "platform_facts",
			tmpl: "fetch-{{.os}}-{{.arch}}",
			data: map[string]string{"os": "linux", "arch": "amd64"},
			want: "fetch-linux-amd64",
		},
		{
			name:    "missing_key_is_error",
			tmpl:    "echo {{.nope}}",
			data:    map[string]string{},
			wantErr: true,
		},
		{
			name:    "malformed_template",
			tmpl:    "echo {{.open",
			data:    map[string]string{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.tmpl, tt.data)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Render() = %q, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Render() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunnerRun(t *testing.T) {
	dir := t.TempDir()
	runner := NewRunner(nil)

	if err := runner.Run(context.Background(), "echo content > out.txt", dir); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	if err != nil {
		t.Fatalf("hook output file not written: %v", err)
	}
	if string(data) != "content\n" {
		t.Errorf("out.txt = %q, want %q", data, "content\n")
	}
}

func TestRunnerRunWorkDir(t *testing.T) {
	dir := t.TempDir()
	runner := NewRunner(nil)

	// pwd must reflect the requested working directory.
	if err := runner.Run(context.Background(), "pwd > where.txt", dir); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "where.txt"))
	if err != nil {
		t.Fatalf("Run() did not execute in work dir: %v", err)
	}
	got, want := string(data), dir+"\n"
	if got != want {
		// macOS tempdirs may resolve through /private symlinks.
		t.Logf("pwd = %q, want %q (symlink-resolved paths are acceptable)", got, want)
	}
}

func TestRunnerRunFailure(t *testing.T) {
	runner := NewRunner(nil)

	if err := runner.Run(context.Background(), "exit 3", t.TempDir()); err == nil {
		t.Fatal("Run() of failing command returned nil error")
	}
}

func TestRunnerRunEmptyCommand(t *testing.T) {
	runner := NewRunner(nil)

	if err := runner.Run(context.Background(), "   ", t.TempDir()); err == nil {
		t.Fatal("Run() of empty command returned nil error")
	}
}
