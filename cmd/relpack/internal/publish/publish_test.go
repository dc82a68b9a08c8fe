package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/albertocavalcante/relpack/cmd/relpack/internal/gitrunner"
	"github.com/albertocavalcante/relpack/pkg/archive"
	"github.com/albertocavalcante/relpack/pkg/registry"
	"github.com/albertocavalcante/relpack/pkg/version"
)

const registryFile = `package("hku_utils")
    set_homepage("https://hikyuu.org/")

    add_urls("https://gitee.com/fasiondog/hikyuu_extern_libs/releases/download/1.0.0/hku_utils-$(version).zip")
    add_versions("1.0.1", "aaaa")
    add_versions("1.0.0", "bbbb")
package_end()
`

// fakeVCS records calls and materialises a registry checkout on Clone.
type fakeVCS struct {
	calls    []string
	clean    bool
	cloneErr error
	tagErr   error
	content  string
}

func (f *fakeVCS) Clone(url, dir string) error {
	f.calls = append(f.calls, "clone "+url)
	if f.cloneErr != nil {
		return f.cloneErr
	}
	file := filepath.Join(dir, "packages", "h", "hku_utils", "xmake.lua")
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return err
	}
	return os.WriteFile(file, []byte(f.content), 0o644)
}

func (f *fakeVCS) IsClean(dir string) (bool, error) {
	f.calls = append(f.calls, "status")
	return f.clean, nil
}

func (f *fakeVCS) Tag(dir, name string) error {
	f.calls = append(f.calls, "tag "+name)
	return f.tagErr
}

func (f *fakeVCS) CommitAndPush(dir, path, message string) error {
	f.calls = append(f.calls, fmt.Sprintf("push %s %q", path, message))
	return nil
}

type fakeRecorder struct {
	recorded []*archive.Artifact
}

func (r *fakeRecorder) Record(_ context.Context, art *archive.Artifact) error {
	r.recorded = append(r.recorded, art)
	return nil
}

type lines []string

func (l *lines) Step(format string, args ...any) {
	*l = append(*l, fmt.Sprintf(format, args...))
}

func setupProject(t *testing.T, versionLine string) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"xmake.lua":                    "set_project(\"hku_utils\")\n" + versionLine + "\n",
		"hikyuu/utilities/Log.h":       "#pragma once\n",
		"hikyuu/utilities/Log.cpp":     "int x;\n",
		".git/HEAD":                    "ref: refs/heads/master\n",
		"publish.py":                   "print('old')\n",
		".vscode/settings.json":        "{}\n",
		"hikyuu/utilities/.xmake/tmpf": "x",
	}
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func newPublisher(t *testing.T, dir string, vcs VCS, opts ...Option) *Publisher {
	t.Helper()
	b, err := archive.NewBuilder(archive.Options{SourceDir: dir, Product: "hku_utils"})
	if err != nil {
		t.Fatal(err)
	}
	return New(b, vcs, opts...)
}

func registryOptions() RegistryOptions {
	return RegistryOptions{
		Enabled:       true,
		URL:           "https://example.com/hikyuu_extern_libs.git",
		CheckoutDir:   "build/hikyuu_extern_libs",
		Path:          "packages/h/hku_utils/xmake.lua",
		CommitMessage: "update hku_utils",
	}
}

func baseOptions() Options {
	return Options{VersionFile: "xmake.lua"}
}

func TestRun_ArchiveOnlyByDefault(t *testing.T) {
	dir := setupProject(t, `set_version("1.1.0", {build = "20240101"})`)
	vcs := &fakeVCS{content: registryFile}
	rec := &fakeRecorder{}
	var progress lines

	res, err := newPublisher(t, dir, vcs, WithRecorder(rec), WithReporter(&progress)).Run(context.Background(), baseOptions())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Version != "1.1.0" {
		t.Errorf("version = %q", res.Version)
	}
	want := filepath.Join(dir, "build", "hku_utils-1.1.0.zip")
	if res.Artifact.Path != want {
		t.Errorf("artifact path = %q, want %q", res.Artifact.Path, want)
	}
	sum, err := archive.HashFile(want)
	if err != nil {
		t.Fatal(err)
	}
	if res.Artifact.SHA256 != sum {
		t.Errorf("artifact hash = %q, file hash = %q", res.Artifact.SHA256, sum)
	}
	if res.Registry != nil {
		t.Error("registry must not be touched unless enabled")
	}
	if len(vcs.calls) != 0 {
		t.Errorf("unexpected git calls: %v", vcs.calls)
	}
	if len(rec.recorded) != 1 || rec.recorded[0] != res.Artifact {
		t.Errorf("artifact not recorded: %v", rec.recorded)
	}
	if len(progress) == 0 || progress[0] != "version 1.1.0" {
		t.Errorf("progress = %v", progress)
	}
}

func TestRun_RegistryInsert(t *testing.T) {
	dir := setupProject(t, `set_version("1.1.0")`)
	vcs := &fakeVCS{content: registryFile}
	opts := baseOptions()
	opts.Registry = registryOptions()

	res, err := newPublisher(t, dir, vcs).Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Registry == nil || !res.Registry.Written {
		t.Fatalf("registry result = %+v", res.Registry)
	}
	if res.Registry.Change.Action != registry.ActionInserted {
		t.Errorf("action = %v, want inserted", res.Registry.Change.Action)
	}

	data, err := os.ReadFile(filepath.Join(dir, "build", "hikyuu_extern_libs", "packages", "h", "hku_utils", "xmake.lua"))
	if err != nil {
		t.Fatal(err)
	}
	want := `    add_versions("1.1.0", "` + res.Artifact.SHA256 + `")` + "\n" + `    add_versions("1.0.1", "aaaa")`
	if !strings.Contains(string(data), want) {
		t.Errorf("registry file missing new entry above 1.0.1:\n%s", data)
	}
	if res.Pushed {
		t.Error("push is opt-in")
	}
}

func TestRun_RegistryReplaceAndPush(t *testing.T) {
	dir := setupProject(t, `set_version("1.0.1")`)
	vcs := &fakeVCS{content: registryFile}
	opts := baseOptions()
	opts.Registry = registryOptions()
	opts.Registry.Push = true

	res, err := newPublisher(t, dir, vcs).Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Registry.Change.Action != registry.ActionReplaced {
		t.Errorf("action = %v, want replaced", res.Registry.Change.Action)
	}
	if res.Registry.Change.Old != `    add_versions("1.0.1", "aaaa")`+"\n" {
		t.Errorf("old line = %q", res.Registry.Change.Old)
	}
	if !res.Pushed {
		t.Error("expected push")
	}
	last := vcs.calls[len(vcs.calls)-1]
	if last != `push packages/h/hku_utils/xmake.lua "update hku_utils"` {
		t.Errorf("last call = %q", last)
	}
}

func TestRun_DryRun(t *testing.T) {
	dir := setupProject(t, `set_version("1.1.0")`)
	vcs := &fakeVCS{content: registryFile}
	opts := baseOptions()
	opts.Registry = registryOptions()
	opts.Registry.Push = true
	opts.Tag = true
	opts.DryRun = true

	res, err := newPublisher(t, dir, vcs).Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Registry.Written || res.Pushed || res.Tagged {
		t.Errorf("dry run wrote something: %+v", res)
	}
	if string(res.Registry.Before) != registryFile {
		t.Error("before content mismatch")
	}
	for _, c := range vcs.calls {
		if strings.HasPrefix(c, "push") || strings.HasPrefix(c, "tag") {
			t.Errorf("dry run issued %q", c)
		}
	}
}

func TestRun_NoMarkerInRegistry(t *testing.T) {
	dir := setupProject(t, `set_version("1.1.0")`)
	content := "package(\"hku_utils\")\npackage_end()\n"
	vcs := &fakeVCS{content: content}
	opts := baseOptions()
	opts.Registry = registryOptions()

	res, err := newPublisher(t, dir, vcs).Run(context.Background(), opts)
	if !errors.Is(err, registry.ErrRegistryFormat) {
		t.Fatalf("Run() error = %v, want ErrRegistryFormat", err)
	}
	if res == nil || res.Artifact == nil {
		t.Fatal("artifact should be reported even when the registry step fails")
	}
	if _, statErr := os.Stat(res.Artifact.Path); statErr != nil {
		t.Errorf("archive should stay on disk: %v", statErr)
	}
}

func TestRun_CloneFailure(t *testing.T) {
	dir := setupProject(t, `set_version("1.1.0")`)
	vcs := &fakeVCS{cloneErr: fmt.Errorf("exit 128: %w", gitrunner.ErrSourceUnavailable)}
	opts := baseOptions()
	opts.Registry = registryOptions()

	_, err := newPublisher(t, dir, vcs).Run(context.Background(), opts)
	if !errors.Is(err, gitrunner.ErrSourceUnavailable) {
		t.Errorf("Run() error = %v, want ErrSourceUnavailable", err)
	}
}

func TestRun_MissingVersion(t *testing.T) {
	dir := setupProject(t, `set_project_version_elsewhere()`)
	_, err := newPublisher(t, dir, &fakeVCS{}).Run(context.Background(), baseOptions())
	if !errors.Is(err, version.ErrConfigParse) {
		t.Errorf("Run() error = %v, want ErrConfigParse", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "build")); !os.IsNotExist(statErr) {
		t.Error("nothing should be built without a version")
	}
}

func TestRun_RequireClean(t *testing.T) {
	dir := setupProject(t, `set_version("1.1.0")`)
	opts := baseOptions()
	opts.RequireClean = true

	_, err := newPublisher(t, dir, &fakeVCS{clean: false}).Run(context.Background(), opts)
	if !errors.Is(err, ErrDirtyTree) {
		t.Errorf("Run() error = %v, want ErrDirtyTree", err)
	}

	if _, err := newPublisher(t, dir, &fakeVCS{clean: true}).Run(context.Background(), opts); err != nil {
		t.Errorf("clean tree: Run() error = %v", err)
	}
}

func TestRun_Tag(t *testing.T) {
	dir := setupProject(t, `set_version("1.1.0")`)
	vcs := &fakeVCS{}
	opts := baseOptions()
	opts.Tag = true

	res, err := newPublisher(t, dir, vcs).Run(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Tagged || len(vcs.calls) != 1 || vcs.calls[0] != "tag 1.1.0" {
		t.Errorf("tagged = %v, calls = %v", res.Tagged, vcs.calls)
	}

	vcs = &fakeVCS{tagErr: errors.New("exists")}
	if _, err := newPublisher(t, dir, vcs).Run(context.Background(), opts); err == nil {
		t.Error("expected tag error")
	}
}

func TestRun_ArchiveExcludes(t *testing.T) {
	dir := setupProject(t, `set_version("2.0.0")`)
	res, err := newPublisher(t, dir, &fakeVCS{}).Run(context.Background(), baseOptions())
	if err != nil {
		t.Fatal(err)
	}
	staged := filepath.Join(dir, "build", "cpp_package", "hku_utils-2.0.0")
	for _, gone := range []string{".git", "publish.py", ".vscode", "hikyuu/utilities/.xmake", "build"} {
		if _, err := os.Stat(filepath.Join(staged, filepath.FromSlash(gone))); !os.IsNotExist(err) {
			t.Errorf("%s should be excluded", gone)
		}
	}
	if _, err := os.Stat(filepath.Join(staged, "hikyuu", "utilities", "Log.h")); err != nil {
		t.Errorf("Log.h missing: %v", err)
	}
	if res.Artifact.Files != 3 {
		t.Errorf("files = %d, want 3", res.Artifact.Files)
	}
}

func TestCurrentVersion(t *testing.T) {
	dir := setupProject(t, `set_version("3.4.5")`)
	p := newPublisher(t, dir, &fakeVCS{})
	v, err := p.CurrentVersion(baseOptions())
	if err != nil || v != "3.4.5" {
		t.Errorf("CurrentVersion() = %q, %v", v, err)
	}
}
