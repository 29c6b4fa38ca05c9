// Package startup wires the mod together when the shared library is loaded.
package startup

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog"

	"github.com/mcbegamerxx954/BuildLimitChanger/internal/config"
	"github.com/mcbegamerxx954/BuildLimitChanger/internal/dimension"
	"github.com/mcbegamerxx954/BuildLimitChanger/internal/hook"
	"github.com/mcbegamerxx954/BuildLimitChanger/internal/logging"
	"github.com/mcbegamerxx954/BuildLimitChanger/internal/pipeline"
	"github.com/mcbegamerxx954/BuildLimitChanger/internal/platform"
	"github.com/mcbegamerxx954/BuildLimitChanger/internal/region"
	"github.com/mcbegamerxx954/BuildLimitChanger/internal/scan"
	"github.com/mcbegamerxx954/BuildLimitChanger/internal/scancache"
)

// Mod is the loaded mod.
type Mod struct {
	Settings config.Settings
	Sink     *logging.Sink
	Logger   zerolog.Logger
	Host     platform.Host
	// Dir holds the log, the override file and the scan cache.
	Dir   string
	Store *config.Store

	Cell   hook.Cell
	shim   *dimension.Shim
	Result pipeline.Result
}

// Run sets the mod up and hooks the game. Failures are logged; the game keeps
// running unmodified when the hook cannot be installed.
func Run() *Mod {
	settings, serr := config.LoadSettings()
	m := Setup(settings, logging.NewSink())
	if serr != nil {
		m.Logger.Warn().Err(serr).Msg("Ignoring invalid settings")
	}

	scanner, err := scan.Default()
	if err != nil {
		m.Logger.Error().Err(err).Msg("Cannot scan on this platform")
		return m
	}
	if err := m.Hook(region.NewLocator(), scanner); err != nil {
		m.Logger.Error().Err(err).Msg("Dimension hook not installed")
	}
	return m
}

// Setup starts logging, finds the data directory and loads the overrides.
func Setup(settings config.Settings, sink *logging.Sink) *Mod {
	m := &Mod{Settings: settings, Sink: sink}
	m.Logger = sink.Logger(settings.LogLevel)
	m.Logger.Info().Str("os", runtime.GOOS).Str("arch", runtime.GOARCH).Msg("Starting BuildLimitChanger")

	host, err := platform.DetectHost()
	if err != nil {
		m.Logger.Warn().Err(err).Msg("Cannot inspect host process")
	}
	m.Host = host
	if host.Levi {
		sink.SetTag(logging.TagLevi)
	}
	m.Logger.Debug().Int32("pid", host.PID).Str("name", host.Name).Str("package", host.Package).Bool("levi", host.Levi).Msg("Host process")

	dir, err := platform.DataDir(settings.Dir, host)
	if err != nil {
		dir = filepath.Join(os.TempDir(), platform.DirName)
		m.Logger.Warn().Err(err).Str("fallback", dir).Msg("No writable data directory")
	}
	m.Dir = dir

	if path, err := sink.OpenFile(dir); err != nil {
		m.Logger.Warn().Err(err).Msg("Cannot open log file")
	} else {
		m.Logger.Info().Str("path", path).Msg("Log file")
		if n := sink.File.Dropped(); n > 0 {
			m.Logger.Warn().Int("dropped", n).Msg("Early log messages were lost")
		}
	}

	m.Store = config.NewStore(dir, m.Logger)
	if _, err := m.Store.Load(); err != nil {
		m.Logger.Warn().Err(err).Msg("Using default dimensions without saving them")
	}
	m.Logger.Info().Str("path", m.Store.Path()).Msg("Dimension config")
	return m
}

// Hook finds the dimension constructor in the game module and redirects it
// to the override shim.
func (m *Mod) Hook(locator region.Locator, scanner scan.Scanner) error {
	module := m.Settings.Module
	if module == "" {
		module = platform.DefaultModule(runtime.GOOS)
	}

	m.shim = dimension.NewShim(
		dimension.NewRewriter(m.Store, m.Logger.With().Str("component", "dimension").Logger()),
		&m.Cell,
		m.Logger,
	)

	var cache *scancache.Cache
	if m.Settings.ScanCache {
		cache = scancache.Open(m.Dir, m.Logger)
	}

	p := &pipeline.Pipeline{
		Locator: locator,
		Scanner: scanner,
		Cache:   cache,
		Install: m.install,
		GOARCH:  runtime.GOARCH,
		Logger:  m.Logger.With().Str("component", "pipeline").Logger(),
	}
	res, err := p.Run(module)
	m.Result = res
	return err
}

// Close releases the log file. The hook stays in place: the game may still
// call through it.
func (m *Mod) Close() error {
	m.Logger.Info().Msg("Closing log file")
	return m.Sink.Close()
}

func (m *Mod) install(target uintptr) (*hook.Hook, error) {
	replacement, err := m.shim.Callback()
	if err != nil {
		return nil, err
	}
	return m.Cell.Install(target, replacement)
}
