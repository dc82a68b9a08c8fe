package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/albertocavalcante/relpack/cmd/relpack/internal/manifest"
	"github.com/albertocavalcante/relpack/pkg/archive"
	"github.com/albertocavalcante/relpack/pkg/registry"
)

var testArtifact = &archive.Artifact{
	Path:    "build/hku_utils-1.2.3.zip",
	Version: "1.2.3",
	SHA256:  "abcd",
	Files:   4,
}

func TestArtifact_Text(t *testing.T) {
	var buf bytes.Buffer
	p := New(Config{Writer: &buf})

	if err := p.Artifact(Descriptor{Artifact: testArtifact}); err != nil {
		t.Fatal(err)
	}
	want := `("build/hku_utils-1.2.3.zip", "1.2.3", "abcd")` + "\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestArtifact_JSON(t *testing.T) {
	var buf bytes.Buffer
	p := New(Config{Writer: &buf, Format: FormatJSON})

	change := &registry.Change{Action: registry.ActionInserted, Index: 6, New: "x\n"}
	if err := p.Artifact(Descriptor{Artifact: testArtifact, Registry: change}); err != nil {
		t.Fatal(err)
	}

	var got struct {
		Artifact struct {
			Path    string `json:"path"`
			Version string `json:"version"`
			SHA256  string `json:"sha256"`
		} `json:"artifact"`
		Registry struct {
			Action string `json:"action"`
			Line   int    `json:"line"`
		} `json:"registry"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if got.Artifact.SHA256 != "abcd" || got.Registry.Action != "inserted" || got.Registry.Line != 6 {
		t.Errorf("decoded = %+v", got)
	}
}

func TestArtifact_YAML(t *testing.T) {
	var buf bytes.Buffer
	p := New(Config{Writer: &buf, Format: FormatYAML})

	if err := p.Artifact(Descriptor{Artifact: testArtifact}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"artifact:", "version: 1.2.3", "sha256: abcd"} {
		if !strings.Contains(out, want) {
			t.Errorf("YAML output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "registry:") {
		t.Errorf("registry should be omitted when nil:\n%s", out)
	}
}

func TestStep_SuppressedForMachineFormats(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Writer: &buf, Format: FormatJSON}).Step("staging %s", "x")
	if buf.Len() != 0 {
		t.Errorf("Step wrote %q in JSON mode", buf.String())
	}

	buf.Reset()
	New(Config{Writer: &buf}).Step("staging %s", "x")
	if buf.String() != "relpack: staging x\n" {
		t.Errorf("Step = %q", buf.String())
	}
}

func TestNoColorWithoutTTY(t *testing.T) {
	var buf bytes.Buffer
	p := New(Config{Writer: &buf})
	p.Failure(errors.New("boom"))
	if strings.Contains(buf.String(), "\033[") {
		t.Errorf("ANSI codes written to non-terminal: %q", buf.String())
	}
}

func TestRegistryChange(t *testing.T) {
	var buf bytes.Buffer
	p := New(Config{Writer: &buf})

	p.RegistryChange(&registry.Result{
		Path:   "libs/xmake.lua",
		Change: registry.Change{Action: registry.ActionReplaced, Index: 9},
	})
	if !strings.Contains(buf.String(), "would be replaced at line 10 of libs/xmake.lua") {
		t.Errorf("got %q", buf.String())
	}
}

func TestStatus(t *testing.T) {
	var buf bytes.Buffer
	p := New(Config{Writer: &buf})

	st := &manifest.Status{
		Last: &manifest.Release{Version: "1.0.0", SHA256: "h", CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		Changes: &manifest.ChangeSet{
			Added:    []string{"new.cpp"},
			Modified: []string{"src/a.cpp"},
			Deleted:  []string{},
		},
	}
	if err := p.Status(st, "1.1.0"); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{"last release 1.0.0", "current version 1.1.0", "+ new.cpp", "~ src/a.cpp", "2 file(s) changed in ., src"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestEntries(t *testing.T) {
	var buf bytes.Buffer
	p := New(Config{Writer: &buf})
	if err := p.Entries([]registry.Entry{{Version: "2", Hash: "b"}, {Version: "1", Hash: "a"}}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "2\tb\n1\ta\n" {
		t.Errorf("Entries = %q", buf.String())
	}
}

func TestValidFormat(t *testing.T) {
	for _, f := range []string{"text", "json", "yaml"} {
		if !ValidFormat(f) {
			t.Errorf("ValidFormat(%q) = false", f)
		}
	}
	if ValidFormat("toml") {
		t.Error("ValidFormat(toml) = true")
	}
}
