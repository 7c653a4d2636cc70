package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"resolve", "suggest", "rank", "serve"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "nearby", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRankCommand_Flags(t *testing.T) {
	for _, name := range []string{"input", "street", "city", "state", "zip", "lat", "lon", "top", "sort", "filter", "geojson"} {
		assert.NotNil(t, rankCmd.Flags().Lookup(name), "rank should have --%s flag", name)
	}
	assert.Equal(t, "i", rankCmd.Flags().Lookup("input").Shorthand)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

// fakeNominatim answers any query mentioning a known city.
type fakeNominatim struct {
	mu      sync.Mutex
	queries []string
}

func (f *fakeNominatim) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	text := strings.Join([]string{q.Get("q"), q.Get("street"), q.Get("city"), q.Get("state")}, " ")
	f.mu.Lock()
	f.queries = append(f.queries, text)
	f.mu.Unlock()

	var out []map[string]string
	switch {
	case strings.Contains(text, "Chicago"):
		out = append(out, map[string]string{"lat": "41.8781", "lon": "-87.6298", "display_name": "Chicago, Illinois, USA"})
	case strings.Contains(text, "Springfield"):
		out = append(out, map[string]string{"lat": "39.7817", "lon": "-89.6501", "display_name": "Springfield, Illinois, USA"})
	default:
		out = []map[string]string{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// execute runs the root command with fresh flag values and the fake
// geocoder configured through the environment.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	srv := httptest.NewServer(&fakeNominatim{})
	t.Cleanup(srv.Close)

	t.Setenv("NEARBY_GEOCODE_BASE_URL", srv.URL)
	t.Setenv("NEARBY_PACING_DELAY_MS", "0")
	t.Setenv("NEARBY_SUGGEST_DEBOUNCE_MS", "0")
	t.Setenv("NEARBY_LOG_LEVEL", "error")

	for _, c := range rootCmd.Commands() {
		resetFlags(c)
	}

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func resetFlags(c *cobra.Command) {
	c.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
}

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stores.csv")
	data := "name,street,city,state,zip\n" +
		"Lakefront,1 Lake Shore Dr,Chicago,IL,60601\n" +
		"Capitol,2 Capitol Ave,Springfield,IL,62701\n" +
		"Lost,9 Nowhere Ln,Atlantis,ZZ,\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func TestRank_EndToEnd(t *testing.T) {
	path := writeCSV(t)
	geo := filepath.Join(t.TempDir(), "out.geojson")

	stdout, stderr, err := execute(t, "rank", "--input", path, "--city", "Springfield", "--state", "Illinois",
		"--geojson", geo)
	require.NoError(t, err)

	capitol := strings.Index(stdout, "Capitol")
	lake := strings.Index(stdout, "Lakefront")
	lost := strings.Index(stdout, "Lost")
	require.True(t, capitol >= 0 && lake >= 0 && lost >= 0, stdout)
	assert.Less(t, capitol, lake)
	assert.Less(t, lake, lost)
	assert.Contains(t, stdout, "0.0 mi")
	assert.Contains(t, stdout, "Nearest 2:")
	assert.Contains(t, stderr, "Resolved 2 of 3")

	raw, err := os.ReadFile(geo)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"FeatureCollection"`)
	assert.Contains(t, string(raw), `"origin"`)
}

func TestRank_TopOnlyWithCoordinate(t *testing.T) {
	path := writeCSV(t)

	stdout, _, err := execute(t, "rank", "-i", path, "--lat", "41.88", "--lon", "-87.63", "--top", "1")
	require.NoError(t, err)

	_, nearest, found := strings.Cut(stdout, "Nearest 1:")
	require.True(t, found, stdout)
	assert.Contains(t, nearest, "#1")
	assert.Contains(t, nearest, "Lakefront")
	assert.NotContains(t, nearest, "Capitol")
}

func TestRank_Errors(t *testing.T) {
	path := writeCSV(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing input", []string{"rank", "--city", "Springfield"}, "--input is required"},
		{"missing origin", []string{"rank", "-i", path}, "give an origin"},
		{"half coordinate", []string{"rank", "-i", path, "--lat", "1"}, "together"},
		{"bad sort", []string{"rank", "-i", path, "--city", "Springfield", "--sort", "sideways"}, "unknown sort"},
		{"unresolved origin", []string{"rank", "-i", path, "--city", "Atlantis"}, "could not be resolved"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestResolve(t *testing.T) {
	stdout, _, err := execute(t, "resolve", "2 Capitol Ave, Springfield, IL 62701")
	require.NoError(t, err)
	assert.Equal(t, "39.781700,-89.650100\n", stdout)

	stdout, _, err = execute(t, "resolve", "--city", "Chicago", "--state", "IL")
	require.NoError(t, err)
	assert.Equal(t, "41.878100,-87.629800\n", stdout)

	_, _, err = execute(t, "resolve", "Atlantis")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no match")

	_, _, err = execute(t, "resolve")
	require.Error(t, err)
}

func TestSuggest(t *testing.T) {
	stdout, _, err := execute(t, "suggest", "Springfield", "IL")
	require.NoError(t, err)
	assert.Contains(t, stdout, "LABEL")
	assert.Contains(t, stdout, "Springfield, Illinois, USA")
}
