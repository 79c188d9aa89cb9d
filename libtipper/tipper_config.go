package libtipper

import (
	"github.com/asdine/storm"
	"github.com/crypto-power/tipwizard/libtipper/chains"
	"github.com/crypto-power/tipwizard/libtipper/utils"
	"github.com/crypto-power/tipwizard/logger"
)

const (
	userConfigBucketName = "user_config"

	LogLevelConfigKey        = "log_level"
	SelectedChainConfigKey   = "selected_chain"
	selectedAccountKeyPrefix = "selected_account_"
	RateSourceConfigKey      = "rate_source"
)

func accountConfigKey(chain chains.ChainType) string {
	return selectedAccountKeyPrefix + string(chain)
}

// SaveUserConfigValue persists value under key. Failures are logged only.
func (mgr *TipManager) SaveUserConfigValue(key string, value interface{}) {
	if err := mgr.db.Set(userConfigBucketName, key, value); err != nil {
		log.Errorf("error setting config value for key: %s, error: %v", key, err)
	}
}

// ReadUserConfigValue reads key into valueOut.
func (mgr *TipManager) ReadUserConfigValue(key string, valueOut interface{}) error {
	err := mgr.db.Get(userConfigBucketName, key, valueOut)
	if err != nil && err != storm.ErrNotFound {
		log.Errorf("error reading config value for key: %s, error: %v", key, err)
	}
	return err
}

// DeleteUserConfigValueForKey removes key.
func (mgr *TipManager) DeleteUserConfigValueForKey(key string) {
	if err := mgr.db.Delete(userConfigBucketName, key); err != nil && err != storm.ErrNotFound {
		log.Errorf("error deleting config value for key: %s, error: %v", key, err)
	}
}

func (mgr *TipManager) ReadStringConfigValueForKey(key string) string {
	var value string
	_ = mgr.ReadUserConfigValue(key, &value)
	return value
}

// SelectedChain returns the chain stored by the last SetChain, the default
// chain if none was stored.
func (mgr *TipManager) SelectedChain() chains.ChainType {
	chain, err := chains.ParseChain(mgr.ReadStringConfigValueForKey(SelectedChainConfigKey))
	if err != nil {
		return chains.DefaultChain
	}
	return chain
}

// SetLogLevels applies and persists debugLevel, a single level or a
// SUBSYS=level list.
func (mgr *TipManager) SetLogLevels(debugLevel string) error {
	if err := logger.ParseAndSetDebugLevels(debugLevel); err != nil {
		return err
	}
	mgr.SaveUserConfigValue(LogLevelConfigKey, debugLevel)
	return nil
}

// GetLogLevels returns the persisted log level, the default if unset.
func (mgr *TipManager) GetLogLevels() string {
	logLevel := mgr.ReadStringConfigValueForKey(LogLevelConfigKey)
	if logLevel == "" {
		return utils.DefaultLogLevel
	}
	return logLevel
}

// GetRateSource returns the persisted rate source.
func (mgr *TipManager) GetRateSource() string {
	return mgr.ReadStringConfigValueForKey(RateSourceConfigKey)
}

// SetRateSource switches and persists the rate source.
func (mgr *TipManager) SetRateSource(source string) error {
	if err := mgr.RateSource.ToggleSource(source); err != nil {
		return err
	}
	mgr.SaveUserConfigValue(RateSourceConfigKey, source)
	return nil
}
