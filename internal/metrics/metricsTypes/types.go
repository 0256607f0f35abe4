package metricsTypes

type MetricsType string

const (
	MetricsType_Incr   MetricsType = "incr"
	MetricsType_Gauge  MetricsType = "gauge"
	MetricsType_Timing MetricsType = "timing"
)

type MetricsTypeConfig struct {
	Name   string
	Labels []string
}

type MetricsLabel struct {
	Name  string
	Value string
}

// Metric names emitted by the library.
const (
	Metric_Incr_TransactionOutcome = "ethbind_transaction_outcomes_total"
	Metric_Incr_ContractCalls      = "ethbind_contract_calls_total"
	Metric_Timing_Confirmation     = "ethbind_confirmation_wait_ms"
)

// DefaultMetricTypes returns the metric registry layout the library
// reports into.
func DefaultMetricTypes() map[MetricsType][]MetricsTypeConfig {
	return map[MetricsType][]MetricsTypeConfig{
		MetricsType_Incr: {
			{Name: Metric_Incr_TransactionOutcome, Labels: []string{"outcome"}},
			{Name: Metric_Incr_ContractCalls, Labels: []string{"status"}},
		},
		MetricsType_Timing: {
			{Name: Metric_Timing_Confirmation, Labels: []string{"outcome"}},
		},
	}
}
