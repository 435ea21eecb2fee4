package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aleksaelezovic/hexastore/internal/config"
)

const sampleData = `<http://example.org/bob> <http://xmlns.com/foaf/0.1/knows> <http://example.org/alice> .
<http://example.org/alice> <http://xmlns.com/foaf/0.1/knows> <http://example.org/bob> .
<http://example.org/bob> <http://example.org/likes> "Pizza" .
<http://example.org/bob> <http://xmlns.com/foaf/0.1/knows> <http://example.org/alice> .
`

const sampleQueries = `PREFIX foaf: <http://xmlns.com/foaf/0.1/>
PREFIX ex: <http://example.org/>
SELECT ?h WHERE { ?h foaf:knows ex:alice ; ex:likes "Pizza" . }
SELECT ?h WHERE { ?x foaf:knows ?h . }
`

// writeFixtures writes the sample data and queries into a temp dir
func writeFixtures(t *testing.T) (data, queries string) {
	t.Helper()
	dir := t.TempDir()
	data = filepath.Join(dir, "data.nt")
	queries = filepath.Join(dir, "sample.queryset")
	if err := os.WriteFile(data, []byte(sampleData), 0644); err != nil {
		t.Fatalf("Failed to write data: %v", err)
	}
	if err := os.WriteFile(queries, []byte(sampleQueries), 0644); err != nil {
		t.Fatalf("Failed to write queries: %v", err)
	}
	return data, queries
}

// execute runs the root command against the given config file
func execute(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", configPath, "--no-color"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

// run executes the root command with a config path that does not exist, so
// only defaults and flags apply
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return execute(t, filepath.Join(t.TempDir(), "none.yaml"), args...)
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("hexastore %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func expectOutput(t *testing.T, out string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("output does not contain %q:\n%s", w, out)
		}
	}
}

func expectError(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error containing %q", want)
	}
	if !strings.Contains(err.Error(), want) {
		t.Errorf("error %q does not contain %q", err, want)
	}
}

func TestNewRootCmd(t *testing.T) {
	cmd := newRootCmd()
	if cmd.Use != "hexastore" {
		t.Errorf("Use = %q", cmd.Use)
	}

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"load", "match", "query", "compare", "demo", "config"} {
		if !names[want] {
			t.Errorf("missing subcommand %s", want)
		}
	}
	for _, flag := range []string{"config", "store", "single-bound", "verbose", "no-color"} {
		if cmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing --%s", flag)
		}
	}
}

func TestLoad(t *testing.T) {
	data, _ := writeFixtures(t)

	for _, kind := range []string{"hexa", "linear", "badger"} {
		t.Run(kind, func(t *testing.T) {
			out := mustRun(t, "--store", kind, "load", "--dump", data)
			expectOutput(t, out,
				"4 triples read, 3 distinct in the "+kind+" store",
				`<http://example.org/bob> <http://example.org/likes> "Pizza" .`)
		})
	}
}

func TestMatch(t *testing.T) {
	data, _ := writeFixtures(t)

	out := mustRun(t, "match", data, "<http://example.org/bob>", "<http://xmlns.com/foaf/0.1/knows>", "?y")
	expectOutput(t, out, "?y", "<http://example.org/alice>", "_1 rows_")

	_, err := run(t, "match", data, "<bob", "?p", "?o")
	expectError(t, err, "invalid term")
}

func TestQuery(t *testing.T) {
	data, queries := writeFixtures(t)

	out := mustRun(t, "--single-bound", "query", data, queries)
	expectOutput(t, out, "=== Query: q1 ===", "=== Query: q2 ===", "_2 rows_")

	_, err := run(t, "--store", "linear", "query", data, queries)
	expectError(t, err, "cannot evaluate star queries")
}

func TestCompare(t *testing.T) {
	data, queries := writeFixtures(t)

	for _, kind := range []string{"hexa", "badger"} {
		t.Run(kind, func(t *testing.T) {
			out := mustRun(t, "--store", kind, "compare", data, queries)
			expectOutput(t, out, "PASS 2 identical, 0 differing, 0 failed")
		})
	}

	out, err := run(t, "--store", "linear", "compare", data, queries)
	if err == nil {
		t.Fatal("compare on the linear store should fail")
	}
	expectOutput(t, out, "FAIL 0 identical, 0 differing, 2 failed")
}

func TestDemo(t *testing.T) {
	out := mustRun(t, "demo")
	expectOutput(t, out, "Total triples stored: 3", "already present", "<http://example.org/bob>")

	out = mustRun(t, "--store", "linear", "demo")
	expectOutput(t, out, "does not evaluate star queries")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "hexastore.yaml")

	out, err := execute(t, path, "--store", "badger", "config", "init")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	expectOutput(t, out, "Wrote "+path)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := config.Default()
	want.Store = config.StoreBadger
	want.Output.Color = false
	if *cfg != *want {
		t.Errorf("written config = %+v, want %+v", *cfg, *want)
	}

	_, err = execute(t, path, "config", "init")
	expectError(t, err, "already exists")

	if _, err := execute(t, path, "--store", "linear", "config", "init", "--force"); err != nil {
		t.Fatalf("config init --force: %v", err)
	}
	if cfg, err = config.Load(path); err != nil || cfg.Store != config.StoreLinear {
		t.Errorf("after --force: store %v, err %v", cfg, err)
	}

	// the written file drives later runs
	data, _ := writeFixtures(t)
	out, err = execute(t, path, "load", data)
	if err != nil {
		t.Fatalf("load with written config: %v", err)
	}
	expectOutput(t, out, "in the linear store")
}

func TestInvalidConfiguration(t *testing.T) {
	_, err := run(t, "--store", "giant", "demo")
	expectError(t, err, "invalid configuration")

	path := filepath.Join(t.TempDir(), "hexastore.yaml")
	if err := os.WriteFile(path, []byte("store: linear\nsingle_bound_index: true\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	_, err = execute(t, path, "demo")
	expectError(t, err, "single_bound_index")
}
