// Package websocket - websocket/metrics.go
// file: websocket/metrics.go

package websocket

import (
	"os"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"

	"fme-portal/logger"
)

// Namespace for all portal metrics
var metricsNamespace = "DutyPortal"

// Reuse a single CloudWatch client for all metrics calls
var cwClient = cloudwatch.New(session.Must(session.NewSession()))

// metricsEnabled gates publishing; off unless METRICS_ENABLED=true so local
// runs and tests never touch AWS.
func metricsEnabled() bool {
	return os.Getenv("METRICS_ENABLED") == "true"
}

// PublishHubConnections pushes the current hub connection count
func PublishHubConnections(count int) {
	putMetric("HubConnections", float64(count), "Count")
}

// PublishReportSubmitted counts one submitted duty report
func PublishReportSubmitted() {
	putMetric("ReportsSubmitted", 1, "Count")
}

// PublishAutosaveWrite counts one persisted draft autosave
func PublishAutosaveWrite() {
	putMetric("AutosaveWrites", 1, "Count")
}

// -----------------------------------------------------------
// internal helper function to package up CloudWatch calls
// -----------------------------------------------------------
func putMetric(metricName string, value float64, unit string) {
	if !metricsEnabled() {
		return
	}
	_, err := cwClient.PutMetricData(&cloudwatch.PutMetricDataInput{
		Namespace: aws.String(metricsNamespace),
		MetricData: []*cloudwatch.MetricDatum{
			{
				MetricName: aws.String(metricName),
				Timestamp:  aws.Time(time.Now()),
				Value:      aws.Float64(value),
				Unit:       aws.String(unit),
			},
		},
	})

	if err != nil {
		logger.Error.Printf("[putMetric] CloudWatch metric failed (%s): %v", metricName, err)
	}
}
