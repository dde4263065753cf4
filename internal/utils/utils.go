package utils

import (
	"log"
	"os"

	metrics "github.com/rcrowley/go-metrics"
)

// NewCounter creates and registers an internal counter
func NewCounter(name string) metrics.Counter {
	return metrics.GetOrRegisterCounter(name, metrics.DefaultRegistry)
}

var Logger = log.New(os.Stdout, "[ALPHALOOP] ", 0)
var Debug = os.Getenv("ALPHALOOP_DEBUG") == "true"
