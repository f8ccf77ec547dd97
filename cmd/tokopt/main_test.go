package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pario-ai/tokopt/pkg/models"
)

const referenceUsage = `{"gpt-4":{"inputTokens":500000,"outputTokens":200000},` +
	`"gpt-3.5-turbo":{"inputTokens":1000000,"outputTokens":800000},` +
	`"claude-3-opus":{"inputTokens":200000,"outputTokens":100000}}`

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.Execute()
	return out.String(), err
}

func TestReadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.json")
	if err := os.WriteFile(path, []byte(referenceUsage), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		arg   string
		stdin string
		want  string
	}{
		{"file", path, "", referenceUsage},
		{"inline object", `  {"a":1}`, "", `{"a":1}`},
		{"inline array", `[{"model":"x"}]`, "", `[{"model":"x"}]`},
		{"stdin", "-", `{"b":2}`, `{"b":2}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readInput(tt.arg, strings.NewReader(tt.stdin))
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != tt.want {
				t.Errorf("readInput = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := readInput(filepath.Join(t.TempDir(), "missing.json"), nil); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestInputName(t *testing.T) {
	for arg, want := range map[string]string{
		"-":          "stdin",
		`{"a":1}`:    "inline",
		"usage.json": "usage.json",
	} {
		if got := inputName(arg); got != want {
			t.Errorf("inputName(%q) = %q, want %q", arg, got, want)
		}
	}
}

func TestResolveFormat(t *testing.T) {
	var buf bytes.Buffer
	for in, want := range map[string]string{
		"":         formatJSON,
		"auto":     formatJSON,
		"JSON":     formatJSON,
		"text":     formatText,
		"markdown": formatMarkdown,
	} {
		got, err := resolveFormat(in, &buf)
		if err != nil {
			t.Fatalf("resolveFormat(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("resolveFormat(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := resolveFormat("yaml", &buf); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestParseRequests(t *testing.T) {
	reqs, batch, err := parseRequests([]byte(`{"model":"gpt-4","prompt":"hi"}`))
	if err != nil || batch || len(reqs) != 1 {
		t.Fatalf("single: reqs=%v batch=%v err=%v", reqs, batch, err)
	}

	reqs, batch, err = parseRequests([]byte(` [{"model":"a","prompt":"x"},{"model":"b","prompt":"y"}]`))
	if err != nil || !batch || len(reqs) != 2 {
		t.Fatalf("batch: reqs=%v batch=%v err=%v", reqs, batch, err)
	}

	for _, in := range []string{"", "[]"} {
		if _, _, err := parseRequests([]byte(in)); !errors.Is(err, models.ErrInvalidInput) {
			t.Errorf("parseRequests(%q) err = %v, want ErrInvalidInput", in, err)
		}
	}
	if _, _, err := parseRequests([]byte(`{"model":`)); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestAnalyzeCommandJSON(t *testing.T) {
	out, err := run(t, "", "analyze", referenceUsage, "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	var a models.Analysis
	if err := json.Unmarshal([]byte(out), &a); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if math.Abs(a.Cost.CurrentCost-54.5) > 1e-9 {
		t.Errorf("cost = %v, want 54.5", a.Cost.CurrentCost)
	}
	if len(a.Recommendations) != 0 {
		t.Errorf("unexpected recommendations: %+v", a.Recommendations)
	}
	if len(a.Strategies) != 4 {
		t.Errorf("got %d strategies, want 4", len(a.Strategies))
	}
}

func TestAnalyzeCommandText(t *testing.T) {
	out, err := run(t, referenceUsage, "analyze", "-", "--format", "text", "--avg-prompt-length", "5000")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"TOTAL", "1,700,000", "[high] "} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAnalyzeCommandMalformed(t *testing.T) {
	if _, err := run(t, "", "analyze", `{"gpt-4":`); err == nil {
		t.Error("expected error for malformed JSON")
	}
	if _, err := run(t, "", "analyze", `{"gpt-4":{"inputTokens":1}}`); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestOptimizeCommand(t *testing.T) {
	out, err := run(t, "", "optimize", `{"model":"gpt-4","prompt":"a  b","complexity":0.5}`, "-o", "json")
	if err != nil {
		t.Fatal(err)
	}
	var res models.RequestOptimization
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if res.RecommendedModel != "gpt-3.5-turbo" || res.Prompt.Content != "a b" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestOptimizeCommandBatchError(t *testing.T) {
	_, err := run(t, "", "optimize", `[{"model":"gpt-4","prompt":"ok"},{"model":"gpt-4"}]`, "-o", "json")
	if err == nil || !strings.Contains(err.Error(), "request 1") {
		t.Errorf("err = %v, want error naming request 1", err)
	}
}

func TestPricingCommand(t *testing.T) {
	out, err := run(t, "", "pricing", "--format", "text")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "gemini-flash") {
		t.Errorf("pricing output missing gemini-flash:\n%s", out)
	}
}

func TestRecordAndListHistory(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "tokopt.yaml")
	cfg := "db_path: " + filepath.Join(dir, "history.db") + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := run(t, "", "analyze", referenceUsage, "-c", cfgPath, "--record", "-o", "json"); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "", "history", "list", "-c", cfgPath, "-o", "json")
	if err != nil {
		t.Fatal(err)
	}
	var records []models.AnalysisRecord
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if len(records) != 1 || records[0].Source != "inline" {
		t.Fatalf("unexpected records %+v", records)
	}

	out, err = run(t, "", "history", "prune", "-c", cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Pruned 0 analyses") {
		t.Errorf("unexpected prune output: %s", out)
	}
}
