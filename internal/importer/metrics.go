// 导入流水线指标
package importer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	importRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "testtrack",
			Name:      "import_runs_total",
			Help:      "Total import batch runs by outcome",
		},
		[]string{"status"},
	)

	importCasesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "testtrack",
			Name:      "import_cases_created_total",
			Help:      "Total test cases created by import batches",
		},
	)

	importFilesUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "testtrack",
			Name:      "import_files_uploaded_total",
			Help:      "Total files uploaded by import batches",
		},
	)
)
