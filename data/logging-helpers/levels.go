package logginghelpers

import "log/slog"

const (
	// Level Debug -4
	// every store round trip made on behalf of a request
	LevelReportIO slog.Level = -2
	// Level Info 0
	// Level Warn 4
	// Level Error 8
	// the process can not keep serving e.i. the store is gone at startup
	LevelBrokenProcess slog.Level = 12
)

var levelNames = map[slog.Level]string{
	LevelReportIO:      "IO",
	LevelBrokenProcess: "BROKEN",
}

// ParseLevel understands the custom levels on top of the slog ones
func ParseLevel(s string) (slog.Level, error) {
	for level, name := range levelNames {
		if name == s {
			return level, nil
		}
	}
	var level slog.Level
	err := level.UnmarshalText([]byte(s))
	return level, err
}

// renames the custom levels in handler output
func replaceLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	level, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}
	if name, ok := levelNames[level]; ok {
		a.Value = slog.StringValue(name)
	}
	return a
}
