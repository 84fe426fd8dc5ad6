package instrumentation

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Exporters.
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

// Label values shared by the recorders.
const (
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusUnknown  = "unknown"
	StatusRejected = "rejected"
	StatusReview   = "review"

	ServiceCalendar = "calendar"
)

const (
	// DefaultServiceName names the telemetry resource.
	DefaultServiceName = "inboxagent"
	// DefaultMetricInterval is the push interval of the otlp and stdout
	// metric exporters.
	DefaultMetricInterval = 10 * time.Second
	// DefaultSampleRatio is the share of root spans kept.
	DefaultSampleRatio = 0.1

	// envPrefix matches the assistant's configuration prefix.
	envPrefix = "INBOXAGENT_"
)

// Config configures metrics, tracing and audit logging for the assistant.
type Config struct {
	ServiceName    string
	ServiceVersion string
	// InstanceID identifies the process. The hostname when empty.
	InstanceID string
	// Attributes are added to the telemetry resource, e.g. the calendar
	// backend or the iteration cap of the running assistant.
	Attributes map[string]string

	// Enabled switches metrics and tracing. Audit logging follows Audit.
	Enabled bool
	Metrics MetricsConfig
	Tracing TracingConfig
	OTLP    OTLPConfig
	Audit   AuditLoggingConfig
}

// MetricsConfig selects the metric exporter.
type MetricsConfig struct {
	// Exporter is prometheus, otlp or stdout.
	Exporter string
	// Interval is the push interval of the otlp and stdout exporters.
	Interval time.Duration
	// DetailedLabels adds the sender domain to classification metrics.
	// Keep it off where senders are many.
	DetailedLabels bool
}

// TracingConfig selects the span exporter.
type TracingConfig struct {
	// Exporter is otlp, stdout or none.
	Exporter string
	// SampleRatio is the share of root spans kept, between 0 and 1.
	SampleRatio float64
}

// OTLPConfig points the otlp exporters at a collector.
type OTLPConfig struct {
	// Endpoint is host:port, without scheme.
	Endpoint string
	// Insecure disables TLS. Local collectors only: spans carry tool names
	// and session IDs.
	Insecure bool
}

// AuditLoggingConfig holds configuration for audit logging.
type AuditLoggingConfig struct {
	// Enabled determines if audit logging is active (default: true)
	Enabled bool

	// IncludePII logs full sender addresses instead of hashes.
	IncludePII bool

	// LogLevel sets the slog level for audit records: debug, info, warn or error.
	LogLevel string
}

// DefaultConfig returns the built-in defaults: prometheus metrics, no
// tracing, audit logging without sender addresses.
func DefaultConfig() Config {
	return Config{
		ServiceName:    DefaultServiceName,
		ServiceVersion: "unknown",
		Enabled:        true,
		Metrics: MetricsConfig{
			Exporter: ExporterPrometheus,
			Interval: DefaultMetricInterval,
		},
		Tracing: TracingConfig{
			Exporter:    ExporterNone,
			SampleRatio: DefaultSampleRatio,
		},
		Audit: AuditLoggingConfig{
			Enabled:  true,
			LogLevel: "info",
		},
	}
}

// LoadConfig applies environment overrides to DefaultConfig. The standard
// OTEL_SERVICE_NAME, OTEL_SERVICE_INSTANCE_ID, OTEL_RESOURCE_ATTRIBUTES,
// OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE and
// OTEL_TRACES_SAMPLER_ARG are honoured; everything else is read from
// INBOXAGENT_-prefixed variables:
//
//	INBOXAGENT_INSTRUMENTATION            true|false
//	INBOXAGENT_METRICS_EXPORTER           prometheus|otlp|stdout
//	INBOXAGENT_METRICS_INTERVAL           duration, e.g. 30s
//	INBOXAGENT_METRICS_DETAILED_LABELS    true|false
//	INBOXAGENT_TRACING_EXPORTER           otlp|stdout|none
//	INBOXAGENT_AUDIT                      true|false
//	INBOXAGENT_AUDIT_INCLUDE_PII          true|false
//	INBOXAGENT_AUDIT_LEVEL                debug|info|warn|error
//
// lookup is os.LookupEnv when nil. Unparseable values are errors.
func LoadConfig(lookup func(string) (string, bool)) (Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	env := envReader{lookup: lookup}
	c := DefaultConfig()

	env.str("OTEL_SERVICE_NAME", &c.ServiceName)
	env.str("OTEL_SERVICE_INSTANCE_ID", &c.InstanceID)
	env.attributes("OTEL_RESOURCE_ATTRIBUTES", &c.Attributes)
	env.str("OTEL_EXPORTER_OTLP_ENDPOINT", &c.OTLP.Endpoint)
	env.boolean("OTEL_EXPORTER_OTLP_INSECURE", &c.OTLP.Insecure)
	env.float("OTEL_TRACES_SAMPLER_ARG", &c.Tracing.SampleRatio)

	env.boolean(envPrefix+"INSTRUMENTATION", &c.Enabled)
	env.str(envPrefix+"METRICS_EXPORTER", &c.Metrics.Exporter)
	env.duration(envPrefix+"METRICS_INTERVAL", &c.Metrics.Interval)
	env.boolean(envPrefix+"METRICS_DETAILED_LABELS", &c.Metrics.DetailedLabels)
	env.str(envPrefix+"TRACING_EXPORTER", &c.Tracing.Exporter)
	env.boolean(envPrefix+"AUDIT", &c.Audit.Enabled)
	env.boolean(envPrefix+"AUDIT_INCLUDE_PII", &c.Audit.IncludePII)
	env.str(envPrefix+"AUDIT_LEVEL", &c.Audit.LogLevel)

	if env.err != nil {
		return Config{}, env.err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// WithAttributes returns a copy of c whose resource carries attrs on top of
// the configured ones. Configured keys win, so OTEL_RESOURCE_ATTRIBUTES can
// override what the assistant reports about itself.
func (c Config) WithAttributes(attrs map[string]string) Config {
	merged := make(map[string]string, len(attrs)+len(c.Attributes))
	for k, v := range attrs {
		merged[k] = v
	}
	for k, v := range c.Attributes {
		merged[k] = v
	}
	c.Attributes = merged
	return c
}

// Validate checks exporter names, the sample ratio and that an otlp
// exporter has somewhere to send to.
func (c Config) Validate() error {
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("trace sample ratio must be between 0 and 1, got %g", c.Tracing.SampleRatio)
	}
	switch c.Metrics.Exporter {
	case ExporterPrometheus, ExporterOTLP, ExporterStdout:
	default:
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.Metrics.Exporter)
	}
	switch c.Tracing.Exporter {
	case ExporterOTLP, ExporterStdout, ExporterNone:
	default:
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.Tracing.Exporter)
	}
	if c.Metrics.Interval < 0 {
		return fmt.Errorf("metrics interval must not be negative, got %s", c.Metrics.Interval)
	}
	if c.OTLP.Endpoint == "" && (c.Metrics.Exporter == ExporterOTLP || c.Tracing.Exporter == ExporterOTLP) {
		return fmt.Errorf("the otlp exporter needs OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	return nil
}

// envReader collects the first parse error so LoadConfig reads like a list.
type envReader struct {
	lookup func(string) (string, bool)
	err    error
}

func (r *envReader) get(key string) (string, bool) {
	if r.err != nil {
		return "", false
	}
	v, ok := r.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (r *envReader) fail(key, value string, err error) {
	r.err = fmt.Errorf("%s=%q: %w", key, value, err)
}

func (r *envReader) str(key string, dst *string) {
	if v, ok := r.get(key); ok {
		*dst = v
	}
}

func (r *envReader) boolean(key string, dst *bool) {
	if v, ok := r.get(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			r.fail(key, v, err)
			return
		}
		*dst = b
	}
}

func (r *envReader) float(key string, dst *float64) {
	if v, ok := r.get(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			r.fail(key, v, err)
			return
		}
		*dst = f
	}
}

func (r *envReader) duration(key string, dst *time.Duration) {
	if v, ok := r.get(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			r.fail(key, v, err)
			return
		}
		*dst = d
	}
}

// attributes parses the OTEL_RESOURCE_ATTRIBUTES form key=value,key=value.
func (r *envReader) attributes(key string, dst *map[string]string) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	attrs := make(map[string]string)
	for _, pair := range strings.Split(v, ",") {
		k, val, found := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !found || k == "" {
			r.fail(key, v, fmt.Errorf("expected key=value, got %q", pair))
			return
		}
		attrs[k] = strings.TrimSpace(val)
	}
	*dst = attrs
}
