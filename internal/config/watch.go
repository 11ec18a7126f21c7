package config

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Watch reloads the user config file whenever it changes on disk and
// invokes onChange with the freshly parsed Config. Reload failures are
// reported through onError and leave the previous config in effect.
// It returns immediately; watching happens on viper's internal goroutine.
func Watch(onChange func(*Config), onError func(error)) error {
	path := GetUserConfigPath()

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config for watch: %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		cfg := &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			if onError != nil {
				onError(fmt.Errorf("reloading config after %s: %w", e.Name, err))
			}
			return
		}
		cfg.applyEnvironment()
		if err := cfg.Validate(); err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}
