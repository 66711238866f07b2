package observability

import "log/slog"

// LevelTrace sits below slog.LevelDebug for per-symbol records.
const LevelTrace = slog.Level(-8)
