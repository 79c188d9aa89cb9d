package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/crypto-power/tipwizard/libtipper/chains"
	"github.com/crypto-power/tipwizard/libtipper/ext"
	"github.com/crypto-power/tipwizard/libtipper/utils"
	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "tipper.conf"
	defaultLogDirname     = "logs"
	defaultListen         = "127.0.0.1:7373"
	defaultMaxLogZips     = 8
)

var (
	defaultHomeDir    = dcrutil.AppDataDir("tipwizard", false)
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)
)

type config struct {
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile  string `short:"C" long:"configfile" description:"Path to configuration file"`
	HomeDir     string `long:"appdata" description:"Directory where the app configuration file and tipper data is stored"`
	LogDir      string `long:"logdir" description:"Directory to log output."`
	DebugLevel  string `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical} or SUBSYS=level,... pairs"`
	MaxLogZips  int    `long:"maxlogzips" description:"The number of zipped log files created by the log rotator to be retained. Setting to 0 will keep all."`
	Profile     int    `long:"profile" description:"Runs local web server for profiling"`

	Chain      string  `long:"chain" description:"Relay chain to tip on {KSM, DOT}. Defaults to the last chain used"`
	DBDriver   string  `long:"dbdriver" description:"Database driver for the wizard state {bdb, badger}"`
	Listen     string  `long:"listen" description:"Interface and port the JSON API listens on"`
	RateSource string  `long:"ratesource" description:"Currency rate source {kraken, none, fixed}"`
	FixedRate  float64 `long:"fixedrate" description:"USD rate served by the fixed rate source"`

	DevChain    bool `long:"devchain" description:"Submit to an in-memory development chain instead of the live network"`
	NoNotify    bool `long:"nonotify" description:"Disable desktop notifications"`
	DummySigner bool `long:"dummysigner" description:"Fund and select the development account on the development chain"`
}

func defaultConfig() config {
	return config{
		ConfigFile: defaultConfigFile,
		HomeDir:    defaultHomeDir,
		LogDir:     defaultLogDir,
		MaxLogZips: defaultMaxLogZips,
		Listen:     defaultListen,
	}
}

// loadConfig initializes and parses the config using a config file and
// command line options. The config file is parsed first so options given
// on the command line take precedence.
func loadConfig() (*config, error) {
	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.
	preCfg := defaultConfig()
	preParser := flags.NewParser(&preCfg, flags.HelpFlag)
	_, err := preParser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			os.Exit(0)
		}
		return nil, err
	}

	if preCfg.ShowVersion {
		fmt.Printf("%s version %s\n", filepath.Base(os.Args[0]), Version)
		os.Exit(0)
	}

	cfg := defaultConfig()
	if preCfg.HomeDir != defaultHomeDir {
		cfg.HomeDir = cleanAndExpandPath(preCfg.HomeDir)
		cfg.ConfigFile = filepath.Join(cfg.HomeDir, defaultConfigFilename)
		cfg.LogDir = filepath.Join(cfg.HomeDir, defaultLogDirname)
	}
	if preCfg.ConfigFile != defaultConfigFile {
		cfg.ConfigFile = cleanAndExpandPath(preCfg.ConfigFile)
	}

	parser := flags.NewParser(&cfg, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(cfg.ConfigFile)
	if err != nil {
		if _, ok := err.(*os.PathError); !ok {
			return nil, fmt.Errorf("error parsing config file: %v", err)
		}
	}

	// Parse command line options again to ensure they take precedence.
	if _, err = parser.Parse(); err != nil {
		return nil, err
	}

	cfg.HomeDir = cleanAndExpandPath(cfg.HomeDir)
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)

	if cfg.Chain != "" {
		if _, err := chains.ParseChain(cfg.Chain); err != nil {
			return nil, fmt.Errorf("invalid chain %q: supported chains are %v", cfg.Chain, chains.Supported())
		}
	}

	switch cfg.DBDriver {
	case "", utils.BDBDriver, utils.BadgerDriver:
	default:
		return nil, fmt.Errorf("invalid dbdriver %q: use %s or %s", cfg.DBDriver, utils.BDBDriver, utils.BadgerDriver)
	}

	switch cfg.RateSource {
	case "", ext.Kraken, ext.None:
	case ext.Fixed:
		if cfg.FixedRate <= 0 {
			return nil, fmt.Errorf("the fixed rate source needs a positive --fixedrate")
		}
	default:
		return nil, fmt.Errorf("invalid ratesource %q", cfg.RateSource)
	}

	if cfg.DummySigner && !cfg.DevChain {
		return nil, fmt.Errorf("--dummysigner requires --devchain")
	}

	return &cfg, nil
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(defaultHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but they variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}
