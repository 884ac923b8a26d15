//go:build unix

package sys

import (
	"os"
	"os/signal"
)

func notifySignals(sigs []os.Signal) chan os.Signal {
	sigCh := make(chan os.Signal, sigsChanBufferSize)
	signal.Notify(sigCh, sigs...)
	return sigCh
}
