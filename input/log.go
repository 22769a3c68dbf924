package input

import "github.com/btcsuite/btclog"

// log is the package-level logger used by input. It is disabled by default;
// callers wire in a real backend via UseLogger.
var log btclog.Logger

func init() {
	UseLogger(btclog.Disabled)
}

// UseLogger sets the package-wide logger used by the input package.
func UseLogger(logger btclog.Logger) {
	log = logger
}
