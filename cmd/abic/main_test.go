package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sigs = `
[target]
triple = "x86_64-linux-gnu"

[[record]]
name = "pair"
[[record.field]]
name = "a"
type = "float"
[[record.field]]
name = "b"
type = "float"

[[signature]]
name = "f"
params = ["int32", "pair"]

[[signature]]
name = "vsum"
result = "double"
params = ["int32"]
variadic = true
va_reads = ["double"]
`

func writeSigs(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sigs.toml")
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestClassify(t *testing.T) {
	out, _, err := run(t, "classify", "--color", "off", writeSigs(t, sigs))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	for _, want := range []string{"target x86_64-linux-gnu", "f  void (int32 a0, struct pair a1)", "Coerce(double)", "vsum"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("--color off still colored:\n%s", out)
	}
}

func TestLowerEmitsIR(t *testing.T) {
	out, _, err := run(t, "lower", "--emit-ir", "-", writeSigs(t, sigs))
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	for _, want := range []string{"define void @f.wrap(", "call double (i32, ...) @vsum(", "define void @vsum.va(ptr %ap, ptr %out0)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in\n%s", want, out)
		}
	}
	if strings.Contains(out, "target x86_64-linux-gnu (") {
		t.Fatalf("report must be suppressed when IR goes to stdout:\n%s", out)
	}

	irPath := filepath.Join(t.TempDir(), "out.ll")
	out, _, err = run(t, "lower", "--emit-ir", irPath, writeSigs(t, sigs))
	if err != nil {
		t.Fatalf("lower to file: %v", err)
	}
	data, err := os.ReadFile(irPath)
	if err != nil || !strings.Contains(string(data), "@f.wrap") {
		t.Fatalf("module file: %v\n%s", err, data)
	}
	if !strings.Contains(out, "double") {
		t.Fatalf("physical column missing:\n%s", out)
	}
}

func TestTargetFromEnvironment(t *testing.T) {
	t.Setenv("ABIC_TARGET", "i386-linux-gnu")
	out, _, err := run(t, "classify", "--format", "json", "--timings", writeSigs(t, sigs))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	var doc struct {
		Target string `json:"target"`
		Timing *struct {
			Phases []struct{ Name string } `json:"phases"`
		} `json:"timing"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("json: %v\n%s", err, out)
	}
	if doc.Target != "i386-linux-gnu" || doc.Timing == nil || len(doc.Timing.Phases) == 0 {
		t.Fatalf("doc %+v", doc)
	}

	// The flag wins over the environment.
	out, _, err = run(t, "classify", "--format", "json", "--target", "arm-linux-gnueabi", writeSigs(t, sigs))
	if err != nil || !strings.Contains(out, `"target": "arm-linux-gnueabi"`) {
		t.Fatalf("flag override: %v\n%s", err, out)
	}
}

func TestFailedSignatureExitsNonZero(t *testing.T) {
	src := sigs + `
[[record]]
name = "loop"
[[record.field]]
name = "self"
type = "loop"

[[signature]]
name = "bad"
params = ["loop"]
`
	out, _, err := run(t, "classify", writeSigs(t, src))
	if err == nil || !strings.Contains(err.Error(), "1 of 3 signatures failed") {
		t.Fatalf("expected failure summary, got %v", err)
	}
	if !strings.Contains(out, "error: bad:") {
		t.Fatalf("report should show the failure:\n%s", out)
	}
}

func TestTraceToStderr(t *testing.T) {
	_, errOut, err := run(t, "classify", "--trace", "-", "--trace-level", "detail", writeSigs(t, sigs))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	for _, want := range []string{"driver.lower_all", "driver.lower", "abic.load"} {
		if !strings.Contains(errOut, want) {
			t.Fatalf("trace missing %q:\n%s", want, errOut)
		}
	}
}

func TestProfiles(t *testing.T) {
	dir := t.TempDir()
	cpu := filepath.Join(dir, "cpu.pprof")
	heap := filepath.Join(dir, "heap.pprof")
	if _, _, err := run(t, "classify", "--cpu-profile", cpu, "--mem-profile", heap, writeSigs(t, sigs)); err != nil {
		t.Fatalf("classify: %v", err)
	}
	for _, path := range []string{cpu, heap} {
		if info, err := os.Stat(path); err != nil || info.Size() == 0 {
			t.Fatalf("%s: %v", path, err)
		}
	}
}

func TestBadFlags(t *testing.T) {
	path := writeSigs(t, sigs)
	for _, args := range [][]string{
		{"classify", "--color", "sometimes", path},
		{"classify", "--format", "yaml", path},
		{"classify", "--ui", "fancy", path},
		{"classify", "--trace-level", "loud", path},
		{"classify", filepath.Join(t.TempDir(), "missing.toml")},
		{"version", "--format", "xml"},
	} {
		if _, _, err := run(t, args...); err == nil {
			t.Fatalf("%v should fail", args)
		}
	}
}

func TestVersionJSON(t *testing.T) {
	out, _, err := run(t, "version", "--format", "json", "--full")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var p versionPayload
	if err := json.Unmarshal([]byte(out), &p); err != nil || p.Tool != "abic" || p.GitCommit != "unknown" {
		t.Fatalf("payload %+v, err %v", p, err)
	}
}
