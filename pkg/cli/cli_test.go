package cli_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"

	"github.com/flowshot-io/zipdir/pkg/archiver"
	"github.com/flowshot-io/zipdir/pkg/cli"
	"github.com/flowshot-io/zipdir/pkg/logger"
)

func execute(t *testing.T, fs afero.Fs, args ...string) (int, string) {
	t.Helper()

	var stderr bytes.Buffer
	code := cli.Execute(context.Background(), args, &cli.Options{
		Fs:     fs,
		Logger: logger.NoOp(),
		Stdout: &bytes.Buffer{},
		Stderr: &stderr,
	})

	return code, stderr.String()
}

func TestExecute(t *testing.T) {
	t.Run("Writes Named Archive", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "dist")
		if err := os.MkdirAll(filepath.Join(src, "js"), 0o755); err != nil {
			t.Fatalf("Failed to create source: %v", err)
		}
		if err := os.WriteFile(filepath.Join(src, "js", "app.js"), []byte("console.log(1)"), 0o644); err != nil {
			t.Fatalf("Failed to write file: %v", err)
		}

		name := filepath.Join(dir, "release")
		code, stderr := execute(t, nil, src, name, "1.0.0")
		if code != cli.ExitOK {
			t.Fatalf("Expected exit 0, got %d: %s", code, stderr)
		}

		entries, err := archiver.New(&archiver.Options{Logger: logger.NoOp()}).List(name + ".zip")
		if err != nil {
			t.Fatalf("Failed to list archive: %v", err)
		}

		var names []string
		for _, entry := range entries {
			names = append(names, entry.Name)
		}

		if diff := cmp.Diff([]string{"js/app.js"}, names); diff != "" {
			t.Errorf("Entry names mismatch (-want +got):\n%s", diff)
		}

		if _, err := os.Stat(filepath.Join(dir, "release1.0.0.zip")); !os.IsNotExist(err) {
			t.Errorf("Version must not change the output name")
		}
	})

	t.Run("Missing Source", func(t *testing.T) {
		fs := afero.NewMemMapFs()

		code, stderr := execute(t, fs, "/nope", "/out")
		if code != cli.ExitFailure {
			t.Fatalf("Expected exit %d, got %d", cli.ExitFailure, code)
		}

		if !strings.Contains(stderr, "source not found") || !strings.Contains(stderr, "/nope") {
			t.Errorf("Expected kind and path on stderr, got %q", stderr)
		}

		if exists, _ := afero.Exists(fs, "/out.zip"); exists {
			t.Errorf("Expected no output file")
		}
	})

	t.Run("Usage Errors", func(t *testing.T) {
		tests := map[string][]string{
			"no arguments":   {},
			"one argument":   {"dist"},
			"four arguments": {"a", "b", "c", "d"},
			"empty name":     {"dist", ""},
			"unknown flag":   {"--level=9", "dist", "out"},
		}

		for name, args := range tests {
			t.Run(name, func(t *testing.T) {
				code, stderr := execute(t, afero.NewMemMapFs(), args...)
				if code != cli.ExitUsage {
					t.Errorf("Expected exit %d, got %d", cli.ExitUsage, code)
				}

				if !strings.Contains(stderr, "error:") {
					t.Errorf("Expected error on stderr, got %q", stderr)
				}
			})
		}
	})
}

func TestDefaultLogger(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "dist")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatalf("Failed to create source: %v", err)
	}
	for _, name := range []string{"a.txt", "b.txt"} {
		if err := os.WriteFile(filepath.Join(src, name), []byte(name), 0o644); err != nil {
			t.Fatalf("Failed to write file: %v", err)
		}
	}

	t.Run("No Per Entry Lines", func(t *testing.T) {
		var stderr bytes.Buffer
		code := cli.Execute(context.Background(), []string{src, filepath.Join(dir, "out")}, &cli.Options{
			Stdout: &bytes.Buffer{},
			Stderr: &stderr,
		})
		if code != cli.ExitOK {
			t.Fatalf("Expected exit 0, got %d: %s", code, stderr.String())
		}

		if strings.Contains(stderr.String(), "Added entry") || strings.Contains(stderr.String(), "Archiving directory") {
			t.Errorf("Expected debug lines to be filtered, got %q", stderr.String())
		}

		if !strings.Contains(stderr.String(), "Archive written") {
			t.Errorf("Expected completion line, got %q", stderr.String())
		}
	})

	t.Run("Error Reported Once", func(t *testing.T) {
		var stderr bytes.Buffer
		missing := filepath.Join(dir, "missing")
		code := cli.Execute(context.Background(), []string{missing, filepath.Join(dir, "out2")}, &cli.Options{
			Stdout: &bytes.Buffer{},
			Stderr: &stderr,
		})
		if code != cli.ExitFailure {
			t.Fatalf("Expected exit %d, got %d", cli.ExitFailure, code)
		}

		if n := strings.Count(stderr.String(), "source not found"); n != 1 {
			t.Errorf("Expected the error once, found %d times in %q", n, stderr.String())
		}
	})
}
