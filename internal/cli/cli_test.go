package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/cutplan/internal/config"
	"github.com/piwi3910/cutplan/internal/errors"
	"github.com/piwi3910/cutplan/internal/model"
)

// run executes the root command with a config file in a temp dir and
// returns the command output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := New(io.Discard, LogInfo)
	var out bytes.Buffer
	c.SetOutput(&out)

	root := c.RootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	cfgPath := filepath.Join(t.TempDir(), "config.json")
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseSheet(t *testing.T) {
	tests := []struct {
		in      string
		want    model.Sheet
		wantErr bool
	}{
		{"2000x1000", model.Sheet{Width: 2000, Height: 1000}, false},
		{"2440X1220", model.Sheet{Width: 2440, Height: 1220}, false},
		{" 600.5*300 ", model.Sheet{Width: 600.5, Height: 300}, false},
		{"2000", model.Sheet{}, true},
		{"axb", model.Sheet{}, true},
		{"1x2x3", model.Sheet{}, true},
	}
	for _, tt := range tests {
		got, err := parseSheet(tt.in)
		if tt.wantErr {
			require.Error(t, err, tt.in)
			assert.True(t, errors.Is(err, errors.ErrCodeInvalidDimensions))
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestPack_CSV(t *testing.T) {
	parts := writeFile(t, "parts.csv", "Label,Width,Height,Qty\nShelf,500,300,4\n")
	dir := t.TempDir()
	out := filepath.Join(dir, "plan.json")
	pdf := filepath.Join(dir, "plan.pdf")
	xlsx := filepath.Join(dir, "plan.xlsx")
	dxfPath := filepath.Join(dir, "plan.dxf")
	labels := filepath.Join(dir, "labels.pdf")

	stdout, err := run(t, "pack", "--sheet", "2000x1000", "--parts", parts,
		"--out", out, "--pdf", pdf, "--xlsx", xlsx, "--dxf", dxfPath, "--labels", labels)
	require.NoError(t, err, stdout)
	assert.Contains(t, stdout, "Efficiency")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var plan model.CutPlan
	require.NoError(t, json.Unmarshal(data, &plan))
	assert.Len(t, plan.Placements, 4)
	assert.Equal(t, 600000.0, plan.UsedArea())

	for _, p := range []string{pdf, xlsx, dxfPath, labels} {
		info, err := os.Stat(p)
		require.NoError(t, err, p)
		assert.Positive(t, info.Size(), p)
	}
}

func TestPack_JSONRequest(t *testing.T) {
	req := writeFile(t, "req.json", `{"sheetWidth":100,"sheetHeight":100,
		"elements":[{"id":"big","width":200,"height":200},{"width":50,"height":50}],
		"options":{"ordering":"area-desc"}}`)

	stdout, err := run(t, "pack", "--parts", req, "--out", "-")
	require.NoError(t, err)
	assert.Contains(t, stdout, "did not fit")
	assert.Contains(t, stdout, `"unplaced": [`)
	assert.Contains(t, stdout, `"ordering": "area-desc"`)
}

func TestPack_Errors(t *testing.T) {
	parts := writeFile(t, "parts.csv", "Label,Width,Height\nShelf,500,300\n")

	_, err := run(t, "pack", "--parts", parts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidDimensions))

	_, err = run(t, "pack", "--sheet", "100x100")
	assert.Error(t, err)

	_, err = run(t, "pack", "--sheet", "100x100", "--parts", parts, "--heuristic", "magic")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeUnsupported))

	bad := writeFile(t, "bad.csv", "Label,Width,Height\nShelf,wide,300\n")
	_, err = run(t, "pack", "--sheet", "100x100", "--parts", bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestCompare(t *testing.T) {
	parts := writeFile(t, "parts.csv", "Width,Height\n50,50\n100,50\n")
	stdout, err := run(t, "compare", "--sheet", "100x100", "--parts", parts, "--no-rotate")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Current Settings")
	assert.Contains(t, stdout, iconBest)
	assert.NotContains(t, stdout, "No Rotation")
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cutplan.toml")

	_, err := run(t, "config", "init", path)
	require.NoError(t, err)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Server.Addr, cfg.Server.Addr)

	_, err = run(t, "config", "init", path)
	assert.Error(t, err)

	stdout, err := run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"addr": ":8080"`)
}

func TestInvalidConfig(t *testing.T) {
	c := New(io.Discard, LogInfo)
	c.SetOutput(io.Discard)
	root := c.RootCommand()
	path := writeFile(t, "config.json", `{"cache":{"backend":"memcached"}}`)
	root.SetArgs([]string{"--config", path, "config", "show"})
	assert.Error(t, root.Execute())
}

func TestSetVersion(t *testing.T) {
	SetVersion("v1.2.3", "abc123", "2026-01-01")
	assert.Equal(t, "v1.2.3", version)
	assert.Equal(t, "abc123", commit)

	SetVersion("", "", "")
	assert.Equal(t, "v1.2.3", version)
}
