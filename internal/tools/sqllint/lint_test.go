package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeGo(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("package q\n\n"+body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLintMarkers(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "ok.go", "const QOk = `--sql 11111111-2222-4333-8444-555555555555\nSELECT 1`\n")
	writeGo(t, dir, "missing.go", "const QMissing = `SELECT id FROM generations`\n")
	writeGo(t, dir, "bad.go", "const QBad = \"--sql not-a-uuid\\nUPDATE generations SET status = 'error'\"\n")
	writeGo(t, dir, "dup.go", "const QDup = `--sql 11111111-2222-4333-8444-555555555555\nDELETE FROM resources`\n")
	writeGo(t, dir, "plain.go", "const Greeting = \"hello\"\n")
	writeGo(t, dir, "ignored_test.go", "const QTest = `SELECT 2`\n")

	l := newLinter()
	if err := l.lintPath(dir); err != nil {
		t.Fatalf("lintPath: %v", err)
	}
	got := map[string]string{}
	for _, v := range l.sorted() {
		got[v.name] = v.message
	}
	if len(got) != 3 {
		t.Fatalf("violations = %v", got)
	}
	if !strings.Contains(got["QMissing"], "missing") || !strings.Contains(got["QBad"], "invalid") {
		t.Fatalf("violations = %v", got)
	}
	// Files are walked in lexical order, so dup.go is seen before ok.go.
	if !strings.Contains(got["QOk"]+got["QDup"], "duplicate marker 11111111-2222-4333-8444-555555555555") {
		t.Fatalf("duplicate not reported: %v", got)
	}
}

func TestLintRepositoryQueries(t *testing.T) {
	l := newLinter()
	if err := l.lintPath("../../sqlinline"); err != nil {
		t.Fatalf("lintPath: %v", err)
	}
	for _, v := range l.sorted() {
		t.Errorf("%s", v)
	}
}
