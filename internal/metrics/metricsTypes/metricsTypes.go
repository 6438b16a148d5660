package metricsTypes

import "time"

type IMetricsClient interface {
	Incr(name string, labels []MetricsLabel, value float64) error
	Gauge(name string, value float64, labels []MetricsLabel) error
	Timing(name string, value time.Duration, labels []MetricsLabel) error
}

type MetricsLabel struct {
	Name  string
	Value string
}

type MetricsType string

var (
	MetricsType_Incr   MetricsType = "incr"
	MetricsType_Gauge  MetricsType = "gauge"
	MetricsType_Timing MetricsType = "timing"
)

type MetricsTypeConfig struct {
	Name   string
	Labels []string
}

var (
	Metric_Incr_RpcRetry          = "rpc.retry"
	Metric_Incr_SourceScanned     = "scanner.sourceScanned"
	Metric_Incr_SourceDropped     = "scanner.sourceDropped"
	Metric_Incr_RewardFound       = "scanner.rewardFound"
	Metric_Incr_ProposalSubmitted = "proposal.submitted"
	Metric_Incr_ProposalMismatch  = "proposal.hashMismatch"

	Metric_Gauge_RewardsTotalUsd = "rewards.totalUsd"

	Metric_Timing_ScanDuration     = "scanner.scanDuration"
	Metric_Timing_ProposalDuration = "proposal.duration"
)

var MetricTypes = map[MetricsType][]MetricsTypeConfig{
	MetricsType_Incr: {
		MetricsTypeConfig{
			Name:   Metric_Incr_RpcRetry,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_SourceScanned,
			Labels: []string{"sourceKind"},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_SourceDropped,
			Labels: []string{"sourceKind"},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_RewardFound,
			Labels: []string{"sourceKind"},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_ProposalSubmitted,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_ProposalMismatch,
			Labels: []string{},
		},
	},
	MetricsType_Gauge: {
		MetricsTypeConfig{
			Name:   Metric_Gauge_RewardsTotalUsd,
			Labels: []string{},
		},
	},
	MetricsType_Timing: {
		MetricsTypeConfig{
			Name:   Metric_Timing_ScanDuration,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name:   Metric_Timing_ProposalDuration,
			Labels: []string{},
		},
	},
}
