// Copyright (c) 2025 BVK Chaitanya

package envfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	data := `
# telegram alerts
TELEGRAM_TOKEN="123:abc"
export TELEGRAM_CHAT_ID = 42
EMPTY=
QUOTED='a b'
`
	vars, err := Parse(strings.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	want := [][2]string{
		{"TELEGRAM_TOKEN", "123:abc"},
		{"TELEGRAM_CHAT_ID", "42"},
		{"EMPTY", ""},
		{"QUOTED", "a b"},
	}
	if len(vars) != len(want) {
		t.Fatalf("wanted %d variables, got %v", len(want), vars)
	}
	for i := range want {
		if vars[i] != want[i] {
			t.Fatalf("wanted %v, got %v", want[i], vars[i])
		}
	}

	if _, err := Parse(strings.NewReader("NOVALUE\n")); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("wanted ErrInvalid for a line without assignment, got %v", err)
	}
	if _, err := Parse(strings.NewReader("1BAD=x\n")); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("wanted ErrInvalid for a bad name, got %v", err)
	}
}

func TestUpdateEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".test.env"), []byte("PORT=10200\nHOST=example\n"), 0600); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(sub, 0700); err != nil {
		t.Fatal(err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(sub); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(cwd) })

	t.Setenv("ENVTEST_PORT", "")
	t.Setenv("ENVTEST_HOST", "localhost")

	if err := UpdateEnv(".test.env", SearchCurrentDir(false), VariableNamePrefix("ENVTEST_")); err != nil {
		t.Fatal(err)
	}
	if v := os.Getenv("ENVTEST_PORT"); v != "" {
		t.Fatalf("wanted no update without parent search, got %q", v)
	}

	if err := UpdateEnv(".test.env", SearchCurrentDir(true), VariableNamePrefix("ENVTEST_")); err != nil {
		t.Fatal(err)
	}
	if v := os.Getenv("ENVTEST_PORT"); v != "10200" {
		t.Fatalf("wanted 10200, got %q", v)
	}
	if v := os.Getenv("ENVTEST_HOST"); v != "localhost" {
		t.Fatalf("wanted existing value to be kept, got %q", v)
	}

	if err := UpdateEnv(".test.env", SearchCurrentDir(true), VariableNamePrefix("ENVTEST_"), OverwriteIfExists(true)); err != nil {
		t.Fatal(err)
	}
	if v := os.Getenv("ENVTEST_HOST"); v != "example" {
		t.Fatalf("wanted overwritten value, got %q", v)
	}

	if err := UpdateEnv("a/b.env"); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("wanted ErrInvalid for a path, got %v", err)
	}
}
