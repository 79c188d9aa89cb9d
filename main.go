package main

import (
	"fmt"
	golog "log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/crypto-power/tipwizard/libtipper"
	"github.com/crypto-power/tipwizard/libtipper/chains"
	"github.com/crypto-power/tipwizard/libtipper/devchain"
	"github.com/crypto-power/tipwizard/libtipper/referenda"
	"github.com/crypto-power/tipwizard/libtipper/utils"
	"github.com/crypto-power/tipwizard/logger"
	"github.com/crypto-power/tipwizard/ui/api"
	"github.com/crypto-power/tipwizard/ui/load"
	"github.com/crypto-power/tipwizard/ui/notification"
)

// Version is the application version. It is set using the -ldflags
var Version = "0.1.0"

// devAccountFunds is the balance, in whole tokens, of the development
// account on the development chain.
const devAccountFunds = 10000

// devchainBackends connects every chain to its own in-memory development
// chain.
func devchainBackends(fundDummySigner bool) libtipper.BackendFactory {
	return func(params *chains.Params) (*libtipper.Backend, error) {
		var opts []devchain.Option
		if fundDummySigner {
			opts = append(opts, devchain.WithBalance(referenda.DummySigner, params.ToPlanck(devAccountFunds)))
		}
		c := devchain.New(params, opts...)
		log.Infof("Using the %s development chain", params.Name)
		return &libtipper.Backend{
			Client:       c,
			Gov:          c,
			Signer:       c,
			SelectSigner: c.SetSigner,
		}, nil
	}
}

func liveBackends(params *chains.Params) (*libtipper.Backend, error) {
	return nil, fmt.Errorf("no %s node client is available in this build, run with --devchain", params.Name)
}

func main() {
	if err := run(); err != nil {
		fmt.Printf("Error: %s\n", err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.Profile > 0 {
		go func() {
			golog.Printf("Starting profiling server on port %d\n", cfg.Profile)
			golog.Println(http.ListenAndServe(fmt.Sprintf("127.0.0.1:%d", cfg.Profile), nil))
		}()
	}

	initLogRotator(cfg.LogDir, cfg.MaxLogZips)
	defer logRotator.Close()
	if cfg.DebugLevel == "" {
		logger.SetLogLevels(utils.DefaultLogLevel)
	} else if err := logger.ParseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		return err
	}

	// The database driver must be known before the tipper database opens,
	// so it lives in its own file. The selected chain is kept in the database.
	appCfg, err := load.AppConfigFromFile(filepath.Join(cfg.HomeDir, "config.json"))
	if err != nil {
		return err
	}
	if cfg.DBDriver == "" {
		cfg.DBDriver = appCfg.Values().DBDriver
	}
	var chain chains.ChainType
	if cfg.Chain != "" {
		if chain, err = chains.ParseChain(cfg.Chain); err != nil {
			return err
		}
	}

	backends := liveBackends
	if cfg.DevChain {
		backends = devchainBackends(cfg.DummySigner)
	}

	mgr, err := libtipper.NewTipManager(&libtipper.Config{
		RootDir:    cfg.HomeDir,
		DBDriver:   cfg.DBDriver,
		Chain:      chain,
		RateSource: cfg.RateSource,
		FixedRate:  cfg.FixedRate,
		Backends:   backends,
	})
	if err != nil {
		log.Errorf("init tip manager error: %v", err)
		return err
	}
	defer mgr.Shutdown()

	// if debuglevel is passed at commandLine persist the option.
	if cfg.DebugLevel != "" {
		if err := mgr.SetLogLevels(cfg.DebugLevel); err != nil {
			return err
		}
	} else if err := logger.ParseAndSetDebugLevels(mgr.GetLogLevels()); err != nil {
		log.Warnf("Ignoring stored log level: %v", err)
	}

	if err := mgr.Start(); err != nil {
		return err
	}

	if cfg.DummySigner {
		if err := mgr.SetAccount(referenda.DummySigner); err != nil {
			return err
		}
	}

	if !cfg.NoNotify {
		notifier := notification.NewSystemNotification("")
		if err := notifier.Start(mgr); err != nil {
			return err
		}
		defer notifier.Stop()
	}

	srv, err := api.New(mgr)
	if err != nil {
		return err
	}
	srv.SetLogFile(filepath.Join(cfg.LogDir, utils.LogFileName))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(cfg.Listen)
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-interrupt:
		log.Infof("Received signal (%s). Shutting down...", sig)
	case err = <-errCh:
		log.Errorf("API server stopped: %v", err)
	}

	if err := srv.Shutdown(); err != nil {
		log.Errorf("Error shutting down the API: %v", err)
	}

	updateErr := appCfg.Update(func(v *load.AppConfigValues) {
		v.DBDriver = cfg.DBDriver
	})
	if updateErr != nil {
		log.Errorf("Unable to save app config: %v", updateErr)
	}
	return err
}
