package config

import (
	"strconv"
	"strings"
)

// ApplyKVOverrides applies free-form -c key=value overrides. Unknown keys
// and unparsable values are skipped.
func ApplyKVOverrides(cfg Config, overrides []string) Config {
	for _, raw := range overrides {
		parts := strings.SplitN(raw, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		switch key {
		case "name":
			cfg.Name = val
		case "title":
			cfg.Title = val
		case "user":
			cfg.User = val
		case "locale":
			cfg.Locale = val
		case "timezone":
			cfg.Timezone = val
		case "key_suffix":
			cfg.KeySuffix = val
		case "log_level":
			cfg.LogLevel = val
		case "store.backend":
			cfg.Store.Backend = val
		case "store.path":
			cfg.Store.Path = val
		case "store.capacity":
			if n, err := strconv.Atoi(val); err == nil {
				cfg.Store.Capacity = n
			}
		case "relay.url":
			cfg.Relay.URL = val
		case "relay.listen":
			cfg.Relay.Listen = val
		}
	}
	return cfg
}
