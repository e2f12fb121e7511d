package config

import (
	"sort"
	"strings"

	logx "github.com/EduardaSRBastos/astro-alert/pkg/logx"
)

// SummarizeChange lists the sections that differ between two configs
// plus log attributes that are safe to emit (never the token).
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 5)
	attrs := make([]logx.Field, 0, 12)

	if (strings.TrimSpace(oldCfg.Telegram.Token) != "") != (strings.TrimSpace(newCfg.Telegram.Token) != "") ||
		oldCfg.Telegram.Channel != newCfg.Telegram.Channel ||
		oldCfg.Telegram.PollTimeout != newCfg.Telegram.PollTimeout {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.Bool("telegram.token_set", strings.TrimSpace(newCfg.Telegram.Token) != ""),
			logx.String("telegram.channel", newCfg.Telegram.Channel),
		)
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file", newCfg.Logging.File.Enabled),
			logx.Bool("logging.telegram", newCfg.Logging.Telegram.Enabled),
		)
	}

	if oldCfg.Cycle != newCfg.Cycle {
		changed = append(changed, "cycle")
		attrs = append(attrs,
			logx.Bool("cycle.enabled", newCfg.Cycle.Enabled),
			logx.String("cycle.daily_at", newCfg.Cycle.DailyAt),
			logx.String("cycle.interval", newCfg.Cycle.Interval),
		)
	}

	if oldCfg.State != newCfg.State {
		changed = append(changed, "state")
		attrs = append(attrs,
			logx.String("state.driver", newCfg.State.Driver),
			logx.Bool("state.path_set", strings.TrimSpace(newCfg.State.Path) != ""),
		)
	}

	if oldCfg.Geolocate != newCfg.Geolocate {
		changed = append(changed, "geolocate")
		attrs = append(attrs,
			logx.Bool("geolocate.endpoint_set", strings.TrimSpace(newCfg.Geolocate.Endpoint) != ""),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}
