package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kwv/roofmesh/mesh"
)

// Version is set at build time via -ldflags
var Version = "dev"

// AppOptions holds the command line settings. Zero values leave the
// configuration file in charge.
type AppOptions struct {
	ConfigFile string
	DataDir    string
	OutputDir  string
	Files      []string

	Finder   string
	Mode     string
	Clean    bool
	Formats  string
	TwoSided bool
	Workers  int
	Seed     int64

	LogLevel string
	LogFile  string

	BaseURL  string
	HttpPort int

	Reconstruct bool
	Planes      bool
	Render      bool
	Fetch       string
	MqttMode    bool
	HttpMode    bool
}

// Runner is implemented by App; tests substitute a recorder.
type Runner interface {
	ApplyOptions(opts AppOptions)
	RunReconstruct() error
	RunPlanes() error
	RunRender() error
	RunFetch(name string) error
	RunService() error
}

func main() {
	if err := run(os.Args[1:], os.Stdout, NewApp()); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "roofmesh: %v\n", err)
		os.Exit(1)
	}
}

// run parses args and dispatches to the selected mode.
func run(args []string, out io.Writer, app Runner) error {
	fs := flag.NewFlagSet("roofmesh", flag.ContinueOnError)
	fs.SetOutput(out)

	var opts AppOptions
	fs.StringVar(&opts.ConfigFile, "config", "config.yaml", "Path to configuration file")
	fs.StringVar(&opts.DataDir, "data-dir", "", "Directory with building point clouds (overrides input.dataDir)")
	fs.StringVar(&opts.OutputDir, "output", "", "Output directory (overrides output.dir)")
	fs.StringVar(&opts.Finder, "finder", "", "Plane finder: ransac or hough")
	fs.StringVar(&opts.Mode, "mode", "", "Mesh strategy: cutoff, attachments, permutations, layout or frompoints")
	fs.BoolVar(&opts.Clean, "clean", false, "Resample the mesh after building it")
	fs.StringVar(&opts.Formats, "format", "", "Comma separated output formats: obj, geojson, svg, png")
	fs.BoolVar(&opts.TwoSided, "two-sided", false, "Export back faces as well")
	fs.IntVar(&opts.Workers, "workers", 0, "Buildings reconstructed concurrently")
	fs.Int64Var(&opts.Seed, "seed", 0, "Random seed for plane detection (0 = time based)")
	fs.StringVar(&opts.LogLevel, "log-level", "", "Log level: debug, info, warn or error")
	fs.StringVar(&opts.LogFile, "log-file", "", "Also write logs to this rotating file")
	fs.StringVar(&opts.BaseURL, "base-url", "", "Remote directory to download buildings from")
	fs.IntVar(&opts.HttpPort, "http-port", 8080, "HTTP server port")

	fs.BoolVar(&opts.Reconstruct, "reconstruct", false, "Reconstruct every building and write the outputs")
	fs.BoolVar(&opts.Planes, "planes", false, "Print the ranked roof planes of every building")
	fs.BoolVar(&opts.Render, "render", false, "Reconstruct and write SVG and PNG drawings only")
	fs.StringVar(&opts.Fetch, "fetch", "", "Download the named building into the data directory")
	fs.BoolVar(&opts.MqttMode, "mqtt", false, "Publish results and accept reconstruction requests over MQTT")
	fs.BoolVar(&opts.HttpMode, "http", false, "Serve results over HTTP")

	if err := fs.Parse(args); err != nil {
		return err
	}
	opts.Files = fs.Args()

	fmt.Fprintf(out, "roofmesh version: %s\n", Version)
	app.ApplyOptions(opts)

	switch {
	case opts.Fetch != "":
		return app.RunFetch(opts.Fetch)
	case opts.Planes:
		return app.RunPlanes()
	case opts.Render:
		return app.RunRender()
	case opts.Reconstruct:
		return app.RunReconstruct()
	case opts.MqttMode || opts.HttpMode:
		return app.RunService()
	}

	fmt.Fprintln(out, "Nothing to do. Choose a mode:")
	fmt.Fprintln(out, "  --reconstruct [files...]  reconstruct buildings and write "+strings.Join(mesh.OutputFormats, "/"))
	fmt.Fprintln(out, "  --planes [files...]       print the detected roof planes")
	fmt.Fprintln(out, "  --render [files...]       write SVG and PNG drawings")
	fmt.Fprintln(out, "  --fetch NAME              download a building from --base-url")
	fmt.Fprintln(out, "  --http and/or --mqtt      run the service")
	return nil
}
