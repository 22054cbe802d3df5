package main

import (
	"bytes"
	"errors"
	"flag"
	"reflect"
	"strings"
	"testing"
)

type mockApp struct {
	opts   AppOptions
	called map[string]bool
	sArg   string
	err    error
}

func newMockApp() *mockApp {
	return &mockApp{
		called: make(map[string]bool),
	}
}

func (m *mockApp) ApplyOptions(opts AppOptions) { m.opts = opts }
func (m *mockApp) RunReconstruct() error        { m.called["RunReconstruct"] = true; return m.err }
func (m *mockApp) RunPlanes() error             { m.called["RunPlanes"] = true; return m.err }
func (m *mockApp) RunRender() error             { m.called["RunRender"] = true; return m.err }
func (m *mockApp) RunFetch(s string) error      { m.called["RunFetch"] = true; m.sArg = s; return m.err }
func (m *mockApp) RunService() error            { m.called["RunService"] = true; return m.err }

func TestRun_Flags(t *testing.T) {
	tests := []struct {
		name           string
		args           []string
		expectedCalled string
		verifyOpts     func(*testing.T, AppOptions)
	}{
		{
			name:           "Reconstruct",
			args:           []string{"--reconstruct", "--data-dir", "/tmp/data", "--mode", "cutoff", "--clean", "--seed", "7"},
			expectedCalled: "RunReconstruct",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if opts.DataDir != "/tmp/data" {
					t.Errorf("expected DataDir /tmp/data, got %s", opts.DataDir)
				}
				if opts.Mode != "cutoff" || !opts.Clean || opts.Seed != 7 {
					t.Errorf("unexpected options: %+v", opts)
				}
				if len(opts.Files) != 0 {
					t.Errorf("expected no files, got %v", opts.Files)
				}
			},
		},
		{
			name:           "ReconstructFiles",
			args:           []string{"--reconstruct", "--format", "obj,geojson", "--two-sided", "a.xyz", "b.las"},
			expectedCalled: "RunReconstruct",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if !reflect.DeepEqual(opts.Files, []string{"a.xyz", "b.las"}) {
					t.Errorf("expected positional files, got %v", opts.Files)
				}
				if opts.Formats != "obj,geojson" || !opts.TwoSided {
					t.Errorf("unexpected output options: %+v", opts)
				}
			},
		},
		{
			name:           "Planes",
			args:           []string{"--planes", "--finder", "hough"},
			expectedCalled: "RunPlanes",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if opts.Finder != "hough" {
					t.Errorf("expected Finder hough, got %s", opts.Finder)
				}
			},
		},
		{
			name:           "Render",
			args:           []string{"--render", "--output", "drawings"},
			expectedCalled: "RunRender",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if opts.OutputDir != "drawings" {
					t.Errorf("expected OutputDir drawings, got %s", opts.OutputDir)
				}
			},
		},
		{
			name:           "Fetch",
			args:           []string{"--fetch", "town-hall", "--base-url", "https://example.org/tiles"},
			expectedCalled: "RunFetch",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if opts.BaseURL != "https://example.org/tiles" {
					t.Errorf("expected BaseURL, got %s", opts.BaseURL)
				}
			},
		},
		{
			name:           "MqttMode",
			args:           []string{"--mqtt", "--http-port", "9090", "--log-level", "debug"},
			expectedCalled: "RunService",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if !opts.MqttMode {
					t.Error("expected MqttMode true")
				}
				if opts.HttpPort != 9090 {
					t.Errorf("expected HttpPort 9090, got %d", opts.HttpPort)
				}
				if opts.LogLevel != "debug" {
					t.Errorf("expected LogLevel debug, got %s", opts.LogLevel)
				}
			},
		},
		{
			name:           "HttpMode",
			args:           []string{"--http", "--workers", "3"},
			expectedCalled: "RunService",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if !opts.HttpMode || opts.Workers != 3 {
					t.Errorf("unexpected options: %+v", opts)
				}
				if opts.ConfigFile != "config.yaml" {
					t.Errorf("expected default config file, got %s", opts.ConfigFile)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newMockApp()
			var out bytes.Buffer
			err := run(tt.args, &out, app)
			if err != nil {
				t.Fatalf("run failed: %v", err)
			}

			if !app.called[tt.expectedCalled] {
				t.Errorf("expected %s to be called", tt.expectedCalled)
			}
			if len(app.called) != 1 {
				t.Errorf("expected exactly one mode, got %v", app.called)
			}

			if tt.verifyOpts != nil {
				tt.verifyOpts(t, app.opts)
			}
		})
	}
}

func TestRun_FetchArgument(t *testing.T) {
	app := newMockApp()
	if err := run([]string{"--fetch", "chapel"}, &bytes.Buffer{}, app); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if app.sArg != "chapel" {
		t.Errorf("expected building chapel, got %q", app.sArg)
	}
}

func TestRun_ModeError(t *testing.T) {
	app := newMockApp()
	app.err = errors.New("boom")
	err := run([]string{"--reconstruct"}, &bytes.Buffer{}, app)
	if err == nil || err.Error() != "boom" {
		t.Errorf("expected mode error to be returned, got %v", err)
	}
}

func TestRun_Help(t *testing.T) {
	app := newMockApp()
	var out bytes.Buffer
	err := run([]string{"--help"}, &out, app)
	if !errors.Is(err, flag.ErrHelp) {
		t.Errorf("expected flag.ErrHelp, got %v", err)
	}
	if !strings.Contains(out.String(), "Usage of roofmesh") {
		t.Errorf("expected usage info in output, got: %s", out.String())
	}
}

func TestRun_UnknownFlag(t *testing.T) {
	err := run([]string{"--voxels"}, &bytes.Buffer{}, newMockApp())
	if err == nil {
		t.Error("expected error for unknown flag")
	}
}

func TestRun_Default(t *testing.T) {
	app := newMockApp()
	var out bytes.Buffer
	err := run([]string{}, &out, app)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	expectedPrefix := "roofmesh version: " + Version
	if !strings.Contains(out.String(), expectedPrefix) {
		t.Errorf("expected output to contain version, got: %s", out.String())
	}
	if !strings.Contains(out.String(), "Nothing to do") {
		t.Errorf("expected mode overview, got: %s", out.String())
	}
	if len(app.called) != 0 {
		t.Errorf("expected no mode to run, got %v", app.called)
	}
}
