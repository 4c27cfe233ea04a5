package store

import (
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var dbSizeGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "hiretalk_db_size_bytes",
	Help: "Approximate on-disk size of the Pebble database directory.",
})

// UpdateDBSizeMetric walks the database directory and updates the size
// gauge. Errors during the walk are ignored; the gauge is best effort.
func UpdateDBSizeMetric(path string) {
	if path == "" {
		return
	}
	var total int64
	_ = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		total += info.Size()
		return nil
	})
	dbSizeGauge.Set(float64(total))
}
