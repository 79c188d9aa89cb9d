package load

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"decred.org/dcrwallet/v2/errors"
	"github.com/crypto-power/tipwizard/libtipper/utils"
)

// AppConfigValues are the settings read before the tipper database is
// opened. Everything else is stored in the database itself.
type AppConfigValues struct {
	DBDriver string `json:"dbDriver"`
}

func (v *AppConfigValues) validate() error {
	switch v.DBDriver {
	case utils.BDBDriver, utils.BadgerDriver:
		return nil
	}
	return errors.E(errors.Invalid, utils.ErrUnknownDriver)
}

// AppConfig keeps AppConfigValues in a JSON file.
type AppConfig struct {
	mtx    sync.RWMutex
	path   string
	values AppConfigValues
}

// AppConfigFromFile reads the values stored at path. A missing file yields
// the defaults; the file is only created by the first Update.
func AppConfigFromFile(path string) (*AppConfig, error) {
	const op errors.Op = "load.AppConfigFromFile"

	cfg := &AppConfig{
		path:   path,
		values: AppConfigValues{DBDriver: utils.BDBDriver},
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, errors.E(op, errors.IO, err)
	}

	if err := json.Unmarshal(data, &cfg.values); err != nil {
		return nil, errors.E(op, errors.Encoding, err)
	}
	if cfg.values.DBDriver == "" {
		cfg.values.DBDriver = utils.BDBDriver
	}
	if err := cfg.values.validate(); err != nil {
		return nil, errors.E(op, err)
	}
	return cfg, nil
}

// Values returns a copy of the current values.
func (cfg *AppConfig) Values() AppConfigValues {
	cfg.mtx.RLock()
	defer cfg.mtx.RUnlock()
	return cfg.values
}

// Update applies fn to a copy of the values and keeps the result only once
// it is valid and written to disk.
func (cfg *AppConfig) Update(fn func(*AppConfigValues)) error {
	const op errors.Op = "load.AppConfig.Update"

	cfg.mtx.Lock()
	defer cfg.mtx.Unlock()

	values := cfg.values
	fn(&values)
	if err := values.validate(); err != nil {
		return errors.E(op, err)
	}

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return errors.E(op, errors.Encoding, err)
	}

	// Write beside the file and rename so a crash never leaves it truncated.
	tmp, err := os.CreateTemp(filepath.Dir(cfg.path), filepath.Base(cfg.path)+".*")
	if err != nil {
		return errors.E(op, errors.IO, err)
	}
	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tmp.Name(), utils.UserFilePerm)
	}
	if err == nil {
		err = os.Rename(tmp.Name(), cfg.path)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return errors.E(op, errors.IO, err)
	}

	cfg.values = values
	return nil
}
