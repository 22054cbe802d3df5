package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/golang/geo/r3"
	"github.com/kwv/roofmesh/internal/logger"
	"github.com/kwv/roofmesh/mesh"
	"go.uber.org/zap"
)

const defaultConfigFile = "config.yaml"

// pointExtensions are tried in order when a building is requested by name.
var pointExtensions = []string{".xyz", ".points", ".las"}

// App encapsulates the application state and dependencies
type App struct {
	Config     *mesh.Config
	Store      *mesh.ResultStore
	MQTTClient *mesh.MQTTClient
	Publisher  *mesh.Publisher
	Log        *zap.Logger

	opts AppOptions
	out  io.Writer
}

// NewApp creates a new App instance
func NewApp() *App {
	return &App{
		Store: mesh.NewResultStore(),
		Log:   zap.NewNop(),
		out:   os.Stdout,
	}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.opts = opts
}

// setup loads the configuration, applies the command line overrides and
// starts logging. A missing config.yaml at the default location falls back
// to the built-in defaults.
func (a *App) setup() error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if err := applyOverrides(cfg, a.opts); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.Config = cfg

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	a.Log = logger.Named("roofmesh")
	return nil
}

func (a *App) loadConfig() (*mesh.Config, error) {
	path := a.opts.ConfigFile
	if path == "" {
		path = defaultConfigFile
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && path == defaultConfigFile {
		return mesh.DefaultConfig(), nil
	}
	cfg, err := mesh.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	return cfg, nil
}

// applyOverrides copies every command line setting that was given onto cfg.
func applyOverrides(cfg *mesh.Config, opts AppOptions) error {
	if opts.DataDir != "" {
		cfg.Input.DataDir = opts.DataDir
	}
	if opts.OutputDir != "" {
		cfg.Output.Dir = opts.OutputDir
	}
	if opts.Finder != "" {
		f, err := mesh.ParseFinder(opts.Finder)
		if err != nil {
			return err
		}
		cfg.Reconstruction.Finder = f
	}
	if opts.Mode != "" {
		m, err := mesh.ParseMode(opts.Mode)
		if err != nil {
			return err
		}
		cfg.Reconstruction.Mode = m
	}
	if opts.Clean {
		cfg.Reconstruction.Clean = true
	}
	if opts.Formats != "" {
		cfg.Output.Formats = nil
		for _, f := range strings.Split(opts.Formats, ",") {
			if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
				cfg.Output.Formats = append(cfg.Output.Formats, f)
			}
		}
	}
	if opts.TwoSided {
		cfg.Output.TwoSided = true
	}
	if opts.Workers > 0 {
		cfg.Workers = opts.Workers
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if opts.LogFile != "" {
		cfg.Logging.File = opts.LogFile
	}
	if opts.BaseURL != "" {
		cfg.Input.BaseURL = opts.BaseURL
	}
	return nil
}

// reconstructionOptions returns the mesh options for one run.
func (a *App) reconstructionOptions() mesh.Options {
	opts := a.Config.Reconstruction
	opts.Logger = logger.Named("mesh")
	if a.opts.Seed != 0 {
		opts.RNG = rand.New(rand.NewSource(a.opts.Seed))
	}
	return opts
}

// inputPaths returns the files named on the command line, or every file in
// the data directory matching the input pattern.
func (a *App) inputPaths() ([]string, error) {
	if len(a.opts.Files) > 0 {
		return a.opts.Files, nil
	}
	pattern := a.Config.Input.Pattern
	if pattern == "" {
		pattern = "*.xyz"
	}
	glob := filepath.Join(a.Config.Input.DataDir, pattern)
	paths, err := filepath.Glob(glob)
	if err != nil {
		return nil, fmt.Errorf("bad input pattern %q: %w", glob, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no buildings match %s", glob)
	}
	return paths, nil
}

// RunReconstruct reconstructs every input building and writes the configured
// output formats plus an index.json of summaries.
func (a *App) RunReconstruct() error {
	if err := a.setup(); err != nil {
		return err
	}
	defer logger.Sync()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.reconstructAll(ctx)
}

// RunRender is RunReconstruct restricted to the SVG and PNG drawings.
func (a *App) RunRender() error {
	if err := a.setup(); err != nil {
		return err
	}
	defer logger.Sync()
	a.Config.Output.Formats = []string{mesh.FormatSVG, mesh.FormatPNG}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.reconstructAll(ctx)
}

func (a *App) reconstructAll(ctx context.Context) error {
	paths, err := a.inputPaths()
	if err != nil {
		return err
	}
	a.Log.Info("reconstructing", zap.Int("buildings", len(paths)),
		zap.String("mode", string(a.Config.Reconstruction.Mode)),
		zap.String("finder", string(a.Config.Reconstruction.Finder)))

	start := time.Now()
	items := mesh.RunBatch(ctx, paths, a.reconstructionOptions(), a.Config.Workers)
	failed := 0
	for _, item := range items {
		if item.Err != nil {
			failed++
			fmt.Fprintf(a.out, "%s: FAILED: %v\n", item.Path, item.Err)
			continue
		}
		r := item.Result
		a.Store.Put(r)
		if err := a.writeOutputs(r); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s: %s, %d triangles, %d planes, %d attachments, score %.1f, area %.1f m², %v\n",
			r.Name, r.Mode, len(r.Triangles), len(r.UsedPlanes), r.Attachments, r.Score, r.Area(),
			r.Duration.Round(time.Millisecond))
	}

	index := filepath.Join(a.Config.Output.Dir, "index.json")
	if err := a.Store.SaveSummaries(index); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "\n%d of %d buildings reconstructed in %v, index written to %s\n",
		len(items)-failed, len(items), time.Since(start).Round(time.Millisecond), index)
	if failed == len(items) {
		return fmt.Errorf("all %d buildings failed", failed)
	}
	return nil
}

// writeOutputs writes one file per configured format into the output
// directory.
func (a *App) writeOutputs(r *mesh.Result) error {
	dir := a.Config.Output.Dir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	for _, format := range a.Config.Output.Formats {
		path := filepath.Join(dir, r.Name+"."+format)
		if err := writeFile(path, func(w io.Writer) error {
			return writeResult(w, format, r, a.Config.Output.TwoSided)
		}); err != nil {
			return err
		}
		a.Log.Debug("wrote output", zap.String("path", path))
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// writeResult encodes r in one of the output formats.
func writeResult(w io.Writer, format string, r *mesh.Result, twoSided bool) error {
	switch format {
	case mesh.FormatOBJ:
		var offset r3.Vector
		if r.Cloud != nil {
			offset = r.Cloud.Offset
		}
		return mesh.WriteOBJ(w, r.Name, mesh.NewIndexedMesh(r.Triangles, twoSided), offset)
	case mesh.FormatGeoJSON:
		if r.Cloud == nil {
			return fmt.Errorf("%s: no point cloud for GeoJSON", r.Name)
		}
		data, err := mesh.FacetsGeoJSON(r.Cloud, r.Triangles, r.Outline).MarshalJSON()
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case mesh.FormatSVG:
		return mesh.NewRoofRenderer(r).RenderSVG(w)
	case mesh.FormatPNG:
		return mesh.NewRoofRenderer(r).RenderPNG(w)
	}
	return fmt.Errorf("unsupported format %q", format)
}

// RunPlanes prints the ranked roof planes of every input building.
func (a *App) RunPlanes() error {
	if err := a.setup(); err != nil {
		return err
	}
	defer logger.Sync()
	paths, err := a.inputPaths()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := a.reconstructionOptions()
	for _, path := range paths {
		pc, err := mesh.LoadBuilding(path)
		if err != nil {
			fmt.Fprintf(a.out, "%s: FAILED: %v\n", path, err)
			continue
		}
		if err := pc.DetectPlanes(ctx, opts); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s: %d points, %d roof planes (%s)\n", pc.Name, pc.Len(), len(pc.Planes), opts.Finder)
		for i, sp := range pc.Planes {
			n := sp.Plane.Normal
			fmt.Fprintf(a.out, "  %2d  score %8.1f  tilt %5.1f°  normal (%6.3f, %6.3f, %6.3f)  d %8.3f\n",
				i, sp.Score, sp.Plane.Tilt().Degrees(), n.X, n.Y, n.Z, sp.Plane.D)
		}
	}
	return nil
}

// RunFetch downloads one building from the configured base URL.
func (a *App) RunFetch(name string) error {
	if err := a.setup(); err != nil {
		return err
	}
	defer logger.Sync()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	path, err := mesh.FetchBuilding(ctx, a.Config.Input.BaseURL, name, a.Config.Input.DataDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Downloaded %s to %s\n", name, path)
	return nil
}

// Rebuild reconstructs a single building by name, downloading it first when
// it is not in the data directory and a base URL is configured. The result
// is stored and published.
func (a *App) Rebuild(ctx context.Context, name string) (*mesh.Result, error) {
	path, err := a.locate(ctx, name)
	if err != nil {
		return nil, err
	}
	pc, err := mesh.LoadBuilding(path)
	if err != nil {
		return nil, err
	}
	r, err := mesh.Reconstruct(ctx, pc, a.reconstructionOptions())
	if err != nil {
		return nil, err
	}
	a.Store.Put(r)
	a.publish(r)
	return r, nil
}

func (a *App) locate(ctx context.Context, name string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid building name %q", name)
	}
	for _, ext := range pointExtensions {
		path := filepath.Join(a.Config.Input.DataDir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	if a.Config.Input.BaseURL == "" {
		return "", fmt.Errorf("building %q: %w", name, os.ErrNotExist)
	}
	a.Log.Info("downloading building", zap.String("building", name), zap.String("from", a.Config.Input.BaseURL))
	return mesh.FetchBuilding(ctx, a.Config.Input.BaseURL, name, a.Config.Input.DataDir)
}

func (a *App) publish(r *mesh.Result) {
	if a.Publisher == nil {
		return
	}
	if err := a.Publisher.PublishResult(r); err != nil {
		a.Log.Warn("publish failed", zap.String("building", r.Name), zap.Error(err))
	}
}

// requestHandler runs MQTT reconstruction requests off the client's
// callback goroutine.
func (a *App) requestHandler(ctx context.Context) mesh.RequestHandler {
	return func(building string) {
		go func() {
			if _, err := a.Rebuild(ctx, building); err != nil {
				a.Log.Warn("requested reconstruction failed", zap.String("building", building), zap.Error(err))
			}
		}()
	}
}

// preload reconstructs every building already in the data directory.
func (a *App) preload(ctx context.Context) {
	paths, err := a.inputPaths()
	if err != nil {
		a.Log.Info("nothing to preload", zap.Error(err))
		return
	}
	for _, item := range mesh.RunBatch(ctx, paths, a.reconstructionOptions(), a.Config.Workers) {
		if item.Err != nil {
			a.Log.Warn("preload failed", zap.String("path", item.Path), zap.Error(item.Err))
			continue
		}
		a.Store.Put(item.Result)
		a.publish(item.Result)
	}
	a.Log.Info("preload finished", zap.Int("buildings", a.Store.Len()))
}

// RunService starts the combined MQTT and/or HTTP service
func (a *App) RunService() error {
	if err := a.setup(); err != nil {
		return err
	}
	defer logger.Sync()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.opts.MqttMode {
		client, err := mesh.InitMQTT(a.Config, a.requestHandler(ctx), logger.Named("mqtt"))
		if err != nil {
			return fmt.Errorf("initializing MQTT: %w", err)
		}
		if client == nil {
			return fmt.Errorf("MQTT broker not configured")
		}
		a.MQTTClient = client
		a.Publisher = mesh.NewPublisher(client.GetClient(), a.Config, logger.Named("publisher"))
		defer client.Disconnect()
		fmt.Fprintf(a.out, "MQTT: requests on %s, results on %s\n", client.RequestTopic(), a.Publisher.Topic("{name}"))
	}

	var srv *http.Server
	if a.opts.HttpMode {
		srv = &http.Server{
			Addr:              fmt.Sprintf("0.0.0.0:%d", a.opts.HttpPort),
			Handler:           newHTTPServer(a.Store, a.Rebuild, a.Config.Output.TwoSided, logger.Named("http")),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			a.Log.Info("HTTP server starting", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.Log.Error("HTTP server error", zap.Error(err))
				stop()
			}
		}()
		fmt.Fprintf(a.out, "HTTP endpoints (port %d):\n", a.opts.HttpPort)
		fmt.Fprintln(a.out, "  GET  /health                  - Health check")
		fmt.Fprintln(a.out, "  GET  /buildings               - Summaries of all reconstructed buildings")
		fmt.Fprintln(a.out, "  GET  /buildings/{name}.{ext}  - Result as "+strings.Join(mesh.OutputFormats, ", "))
		fmt.Fprintln(a.out, "  POST /buildings/{name}        - Reconstruct a building now")
	}

	go a.preload(ctx)

	fmt.Fprintln(a.out, "Press Ctrl+C to stop")
	<-ctx.Done()

	a.Log.Info("shutting down")
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.Log.Warn("HTTP shutdown", zap.Error(err))
		}
	}
	return nil
}

// summaryJSON writes v as indented JSON.
func summaryJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
