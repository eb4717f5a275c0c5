package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Application metrics, exposed at /metrics next to the HTTP metrics
var (
	CronJobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhub_cron_job_runs_total",
			Help: "Maintenance job runs by job and outcome",
		},
		[]string{"job", "status"},
	)

	CronJobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studyhub_cron_job_duration_seconds",
			Help:    "Maintenance job duration in seconds",
			Buckets: []float64{.01, .1, .5, 1, 5, 15, 60, 300},
		},
		[]string{"job"},
	)

	DocumentUploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhub_document_uploads_total",
			Help: "Stored document uploads by file type",
		},
		[]string{"file_type"},
	)

	UploadedBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "studyhub_uploaded_bytes_total",
			Help: "Bytes written to file storage by document uploads",
		},
	)
)

func init() {
	prometheus.MustRegister(CronJobRuns)
	prometheus.MustRegister(CronJobDuration)
	prometheus.MustRegister(DocumentUploads)
	prometheus.MustRegister(UploadedBytes)
}
