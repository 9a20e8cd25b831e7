package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"videotable/internal/catalog"
	"videotable/internal/config"
	"videotable/internal/pipeline"
	"videotable/internal/pixfmt"
	"videotable/internal/table"
	"videotable/internal/tensor"
	"videotable/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	engine     *testsupport.MemoryEngine
	tablePath  string
	rulesPath  string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	opts = append([]testsupport.ConfigOption{testsupport.WithCodec(pixfmt.CertifiedCodec, 8)}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Logging.Level = "error"

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	engine := testsupport.NewMemoryEngine()
	previous := engineFactory
	engineFactory = func(*config.Config, *slog.Logger) pixfmt.Engine { return engine }
	t.Cleanup(func() { engineFactory = previous })

	names := make([]string, 12)
	cols := make([]table.Column, len(names))
	for c := range names {
		names[c] = fmt.Sprintf("px%02d", c)
		cols[c] = table.Column{Name: names[c], Kind: tensor.Int, Values: []float64{float64(c * 20), float64(255 - c)}}
	}
	tablePath := testsupport.WriteTable(t, base, "source.db", cols...)

	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = fmt.Sprintf("%q", name)
	}
	rules := fmt.Sprintf("[arrays.rgb]\ncolumns = [%s]\nshape = [2, 2, 2, 3]\nbit_depth = 8\n\n[arrays.rgb.codec_params]\n\"c:v\" = \"ffv1\"\n", strings.Join(quoted, ", "))
	rulesPath := testsupport.WriteRules(t, base, rules)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		engine:     engine,
		tablePath:  tablePath,
		rulesPath:  rulesPath,
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	payload, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCLIEncodeDecodeStatus(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"encode", "--table", env.tablePath, "--rules", env.rulesPath, "--batch", "b1"}, env.configPath)
	if err != nil {
		t.Fatalf("encode: %v\n%s", err, out)
	}
	if !strings.Contains(out, "rgb") || !strings.Contains(out, "Succeeded") || !strings.Contains(out, "rgb.mkv") {
		t.Fatalf("unexpected encode output:\n%s", out)
	}
	batchDir := filepath.Join(env.cfg.Paths.OutputDir, "b1")
	if _, err := os.Stat(filepath.Join(batchDir, "rgb", "rgb.manifest.json")); err != nil {
		t.Fatalf("expected sidecar manifest: %v", err)
	}

	out, _, err = runCLI(t, []string{"decode", "--batch", "b1", "--name", "rgb"}, env.configPath)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := filepath.Join(batchDir, "rgb", pipeline.ReconstructedFileName("rgb"))
	if !strings.Contains(out, want) {
		t.Fatalf("decode output %q missing %s", out, want)
	}
	source := testsupport.ReadTable(t, env.tablePath)
	restored := testsupport.ReadTable(t, want)
	if restored.Rows() != source.Rows() || len(restored.Columns) != len(source.Columns) {
		t.Fatalf("reconstructed table has %d rows × %d columns", restored.Rows(), len(restored.Columns))
	}
	for c, col := range source.Columns {
		for r, v := range col.Values {
			if got := restored.Columns[c].Values[r]; got != v {
				t.Fatalf("column %s row %d = %v, want %v", col.Name, r, got, v)
			}
		}
	}

	out, _, err = runCLI(t, []string{"status", "--batch", "b1", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var entries []statusEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode status json: %v\n%s", err, out)
	}
	if len(entries) != 2 {
		t.Fatalf("expected encode and decode entries, got %+v", entries)
	}
	for _, e := range entries {
		if e.Array != "rgb" || e.Status != catalog.StatusSucceeded {
			t.Fatalf("unexpected entry %+v", e)
		}
	}

	out, _, err = runCLI(t, []string{"status", "--batch", "b1"}, env.configPath)
	if err != nil {
		t.Fatalf("status table: %v", err)
	}
	if !strings.Contains(out, "encode") || !strings.Contains(out, "decode") {
		t.Fatalf("status table missing operations:\n%s", out)
	}
}

func TestCLIEncodeJSONReportsSkippedJobs(t *testing.T) {
	env := setupCLITestEnv(t)
	env.engine.FailEncode["rgb.mkv"] = true

	out, _, err := runCLI(t, []string{"encode", "--table", env.tablePath, "--rules", env.rulesPath, "--batch", "b2", "--on-error", "skip", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("encode with skip policy: %v", err)
	}
	var result encodeResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if result.BatchID != "b2" || len(result.Jobs) != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Jobs[0].Status != catalog.StatusSkipped || result.Jobs[0].ErrorLabel == "" {
		t.Fatalf("expected skipped job with error label, got %+v", result.Jobs[0])
	}
}

func TestCLIEncodeRaiseReturnsError(t *testing.T) {
	env := setupCLITestEnv(t)
	env.engine.FailEncode["rgb.mkv"] = true

	out, _, err := runCLI(t, []string{"encode", "--table", env.tablePath, "--rules", env.rulesPath, "--batch", "b3"}, env.configPath)
	if err == nil {
		t.Fatal("expected encode failure under raise policy")
	}
	if !strings.Contains(err.Error(), "rgb") {
		t.Fatalf("error %q does not name the array", err)
	}
	if !strings.Contains(out, "Failed") {
		t.Fatalf("expected stats table with failed job:\n%s", out)
	}
}

func TestCLIEncodeRejectsUnknownPolicy(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"encode", "--table", env.tablePath, "--rules", env.rulesPath, "--on-error", "retry"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "--on-error") {
		t.Fatalf("expected --on-error validation error, got %v", err)
	}
}

func TestCLIDecodeMissingArray(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"decode", "--batch", "none", "--name", "rgb"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "rgb") {
		t.Fatalf("expected missing manifest error, got %v", err)
	}
}

func TestCLIStatusUnknownBatch(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"status", "--batch", "missing"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "no catalog") {
		t.Fatalf("expected missing catalog error, got %v", err)
	}
}

func TestCLICheckReportsEngineFailure(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries())

	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err == nil {
		t.Fatal("expected check to fail against stub binaries")
	}
	if !strings.Contains(out, "Output directory") || !strings.Contains(out, "[OK]") || !strings.Contains(out, "[ERROR]") {
		t.Fatalf("unexpected check output:\n%s", out)
	}
	if !strings.Contains(out, env.configPath) {
		t.Fatalf("check output should name config path:\n%s", out)
	}
}
