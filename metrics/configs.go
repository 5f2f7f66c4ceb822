package metrics

// Default addresses for metrics servers if none is specified.
const (
	DefaultSystemMetricsAddress      = ":9090"
	DefaultApplicationMetricsAddress = ":9091"
	DefaultNamespace                 = "apmbridge"
)

// Config defines the Prometheus endpoints of the bridge.
//
// Two endpoints are served:
//  1. System metrics (default :9090): Go runtime, process and build info
//  2. Application metrics (default :9091): conversion and rule table metrics
type Config struct {
	// SystemMetricsAddress is the listen address of the system endpoint. nil uses the
	// default; a pointer to "" disables the endpoint.
	SystemMetricsAddress *string `yaml:"system_metrics_address" envconfig:"METRICS_SYSTEM_ADDRESS"`

	// ApplicationMetricsAddress is the listen address of the application endpoint.
	// nil uses the default; a pointer to "" disables the endpoint. Metrics are still
	// collected in ApplicationRegistry when the endpoint is disabled.
	ApplicationMetricsAddress *string `yaml:"application_metrics_address" envconfig:"METRICS_APPLICATION_ADDRESS"`

	// ServiceName is added as a constant "service" label to every metric.
	ServiceName string `yaml:"service_name" envconfig:"METRICS_SERVICE_NAME"`

	// Namespace prefixes every application metric name. Defaults to "apmbridge".
	Namespace string `yaml:"namespace" envconfig:"METRICS_NAMESPACE"`
}

// Ptr returns a pointer to s. Ptr("") disables an endpoint.
func Ptr(s string) *string {
	return &s
}
