// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/extforge/extforge/internal/issue"
	"github.com/extforge/extforge/internal/testutil"
	"github.com/extforge/extforge/pkg/cueutil"
)

// isolated returns options that never touch the real user config.
func isolated(t *testing.T) LoadOptions {
	t.Helper()
	return LoadOptions{
		ConfigDirPath: t.TempDir(),
		ProjectDir:    t.TempDir(),
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Build.OutDir != "dist" {
		t.Errorf("OutDir = %q, want dist", cfg.Build.OutDir)
	}
	if cfg.Build.Minify || cfg.Build.Sourcemap {
		t.Error("minify and sourcemap should default to false")
	}
	if cfg.Build.Target != "esnext" {
		t.Errorf("Target = %q, want esnext", cfg.Build.Target)
	}
	if cfg.Watch.Debounce != 300*time.Millisecond {
		t.Errorf("Debounce = %v, want 300ms", cfg.Watch.Debounce)
	}
	if cfg.UI.Verbose {
		t.Error("verbose should default to false")
	}
}

func TestLoad_DefaultsWithoutFiles(t *testing.T) {
	t.Parallel()

	cfg, err := NewProvider().Load(context.Background(), isolated(t))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	want := DefaultConfig()
	if cfg.Build.OutDir != want.Build.OutDir || cfg.Build.Target != want.Build.Target {
		t.Errorf("build = %+v, want %+v", cfg.Build, want.Build)
	}
	if cfg.Watch.Debounce != want.Watch.Debounce {
		t.Errorf("Debounce = %v, want %v", cfg.Watch.Debounce, want.Watch.Debounce)
	}
	if len(cfg.Sources) != 0 {
		t.Errorf("Sources = %v, want none", cfg.Sources)
	}
}

func TestLoad_ProjectOverridesUser(t *testing.T) {
	t.Parallel()

	opts := isolated(t)
	userPath := filepath.Join(opts.ConfigDirPath, UserFileName)
	projectPath := filepath.Join(opts.ProjectDir, ProjectFileName)
	testutil.MustWriteFile(t, userPath, `
build: {
	minify: true
	target: "es2020"
}
ui: verbose: true
`)
	testutil.MustWriteFile(t, projectPath, `
build: target: "es2017"
watch: {
	debounce: "1.5s"
	ignore: ["tmp/**"]
}
`)

	cfg, err := NewProvider().Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.Build.Minify {
		t.Error("minify from the user file was lost")
	}
	if cfg.Build.Target != "es2017" {
		t.Errorf("Target = %q, want project value es2017", cfg.Build.Target)
	}
	if !cfg.UI.Verbose {
		t.Error("ui.verbose from the user file was lost")
	}
	if cfg.Watch.Debounce != 1500*time.Millisecond {
		t.Errorf("Debounce = %v, want 1.5s", cfg.Watch.Debounce)
	}
	if !slices.Equal(cfg.Watch.Ignore, []string{"tmp/**"}) {
		t.Errorf("Ignore = %v", cfg.Watch.Ignore)
	}
	if cfg.Build.OutDir != DefaultOutDir {
		t.Errorf("OutDir = %q, want default", cfg.Build.OutDir)
	}
	if want := []string{userPath, projectPath}; !slices.Equal(cfg.Sources, want) {
		t.Errorf("Sources = %v, want %v", cfg.Sources, want)
	}
}

func TestLoad_CustomPathIsExclusive(t *testing.T) {
	t.Parallel()

	opts := isolated(t)
	testutil.MustWriteFile(t, filepath.Join(opts.ProjectDir, ProjectFileName), `build: minify: true`)
	custom := filepath.Join(t.TempDir(), "ci.cue")
	testutil.MustWriteFile(t, custom, `build: {out_dir: "build", sync_ignore: ["**/*.map"]}`)
	opts.ConfigFilePath = custom

	cfg, err := NewProvider().Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Build.Minify {
		t.Error("project file was read despite an explicit config path")
	}
	if cfg.Build.OutDir != "build" {
		t.Errorf("OutDir = %q, want build", cfg.Build.OutDir)
	}
	if !slices.Equal(cfg.Build.SyncIgnore, []string{"**/*.map"}) {
		t.Errorf("SyncIgnore = %v", cfg.Build.SyncIgnore)
	}
	if !slices.Equal(cfg.Sources, []string{custom}) {
		t.Errorf("Sources = %v", cfg.Sources)
	}
}

func TestLoad_CustomPathNotFound(t *testing.T) {
	t.Parallel()

	opts := isolated(t)
	opts.ConfigFilePath = filepath.Join(t.TempDir(), "missing.cue")

	_, err := NewProvider().Load(context.Background(), opts)
	if err == nil {
		t.Fatal("Load() succeeded for a missing file")
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("error is %T, want *issue.ActionableError", err)
	}
	if ae.Resource != opts.ConfigFilePath {
		t.Errorf("Resource = %q", ae.Resource)
	}
	if ae.IssueID != issue.ConfigLoadFailedId {
		t.Errorf("IssueID = %v", ae.IssueID)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Error("error should wrap fs.ErrNotExist")
	}
}

func TestLoad_SchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"syntax error", `build: {`},
		{"unknown section", `deploy: true`},
		{"unknown build field", `build: mode: "production"`},
		{"bad target", `build: target: "es5"`},
		{"bad debounce", `watch: debounce: "soon"`},
		{"empty out dir", `build: out_dir: ""`},
		{"parent out dir", `build: out_dir: ".."`},
		{"wrong type", `ui: verbose: "yes"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts := isolated(t)
			testutil.MustWriteFile(t, filepath.Join(opts.ProjectDir, ProjectFileName), tt.content)

			_, err := NewProvider().Load(context.Background(), opts)
			if err == nil {
				t.Fatal("Load() accepted an invalid file")
			}
			if !errors.Is(err, cueutil.ErrSchema) {
				t.Errorf("error should wrap cueutil.ErrSchema, got: %v", err)
			}
			if !strings.Contains(err.Error(), ProjectFileName) {
				t.Errorf("error should name the file: %v", err)
			}
		})
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	opts := isolated(t)
	testutil.MustWriteFile(t, filepath.Join(opts.ProjectDir, ProjectFileName), `build: minify: false`)
	t.Setenv("EXTFORGE_BUILD_MINIFY", "true")
	t.Setenv("EXTFORGE_WATCH_DEBOUNCE", "2s")
	t.Setenv("EXTFORGE_BUILD_OUT_DIR", "out")

	cfg, err := NewProvider().Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.Build.Minify {
		t.Error("EXTFORGE_BUILD_MINIFY did not override the file")
	}
	if cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("Debounce = %v, want 2s", cfg.Watch.Debounce)
	}
	if cfg.Build.OutDir != "out" {
		t.Errorf("OutDir = %q, want out", cfg.Build.OutDir)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProvider().Load(ctx, isolated(t)); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestGenerateCUERoundTrip(t *testing.T) {
	t.Parallel()

	want := DefaultConfig()
	want.Build.Minify = true
	want.Build.Target = "es2019"
	want.Build.SyncIgnore = []string{"**/*.psd"}
	want.Watch.Debounce = 750 * time.Millisecond
	want.Watch.Ignore = []string{"fixtures/**"}
	want.UI.Verbose = true

	opts := isolated(t)
	opts.ConfigFilePath = filepath.Join(t.TempDir(), "generated.cue")
	testutil.MustWriteFile(t, opts.ConfigFilePath, GenerateCUE(want))

	got, err := NewProvider().Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("generated CUE does not load: %v\n%s", err, GenerateCUE(want))
	}
	if got.Build.Minify != want.Build.Minify || got.Build.Target != want.Build.Target ||
		!slices.Equal(got.Build.SyncIgnore, want.Build.SyncIgnore) {
		t.Errorf("build = %+v, want %+v", got.Build, want.Build)
	}
	if got.Watch.Debounce != want.Watch.Debounce || !slices.Equal(got.Watch.Ignore, want.Watch.Ignore) {
		t.Errorf("watch = %+v, want %+v", got.Watch, want.Watch)
	}
	if !got.UI.Verbose {
		t.Error("ui.verbose lost")
	}
}

func TestStaticProvider(t *testing.T) {
	t.Parallel()

	cfg, err := StaticProvider{}.Load(context.Background(), LoadOptions{})
	if err != nil || cfg.Build.OutDir != DefaultOutDir {
		t.Errorf("zero StaticProvider = %+v, %v", cfg, err)
	}

	boom := errors.New("boom")
	if _, err := (StaticProvider{Err: boom}).Load(context.Background(), LoadOptions{}); !errors.Is(err, boom) {
		t.Errorf("Load() error = %v, want boom", err)
	}
}
