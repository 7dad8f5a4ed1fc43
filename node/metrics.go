package node

import (
	"github.com/prometheus/client_golang/prometheus"
)

// writeMetrics dumps the default registry in the text exposition format, for
// the node exporter textfile collector to pick up.
func writeMetrics(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
