package calassoc

import (
	"time"

	"github.com/fitsarchive/calassoc/pkg/utils/retry"
)

// Config of calassoc binaries.
//
// to get `Config` instance, use `ConfigMarshall.TrySeal()` .
type Config struct {
	database *DatabaseConfig
	server   *ServerConfig
	worker   *WorkerConfig
	hotCache *HotCacheConfig
	tracing  *TracingConfig
}

func (c *Config) Database() *DatabaseConfig {
	return c.database
}

func (c *Config) Server() *ServerConfig {
	return c.server
}

func (c *Config) Worker() *WorkerConfig {
	return c.worker
}

// HotCache is nil when no redis is configured.
func (c *Config) HotCache() *HotCacheConfig {
	return c.hotCache
}

// Tracing is nil when traces are not exported.
func (c *Config) Tracing() *TracingConfig {
	return c.tracing
}

type DatabaseConfig struct {
	url          string
	queryTimeout time.Duration
}

// Connection string for database.
func (d *DatabaseConfig) URL() string {
	return d.url
}

// QueryTimeout bounds each calibration lookup. default = 30s
func (d *DatabaseConfig) QueryTimeout() time.Duration {
	return d.queryTimeout
}

type ServerConfig struct {
	port int32
}

// default = 8080
func (s *ServerConfig) Port() int32 {
	return s.port
}

type WorkerConfig struct {
	concurrency int
	policy      string
	lease       time.Duration
	taskTimeout time.Duration
	retry       *RetryConfig
}

// number of refresh workers. default = 4
func (w *WorkerConfig) Concurrency() int {
	return w.concurrency
}

// loop policy, "forever[:COOLDOWN]" or "backlog". default = "forever:5s"
func (w *WorkerConfig) Policy() string {
	return w.policy
}

// Lease is how long an item can be in progress until housekeeping gives it
// back to the queue. default = 10m
func (w *WorkerConfig) Lease() time.Duration {
	return w.lease
}

// TaskTimeout bounds a refresh of one target. default = 5m
func (w *WorkerConfig) TaskTimeout() time.Duration {
	return w.taskTimeout
}

func (w *WorkerConfig) Retry() *RetryConfig {
	return w.retry
}

// Backoff of transient failures.
type RetryConfig struct {
	initial     time.Duration
	max         time.Duration
	maxAttempts int
}

// default = 1s
func (r *RetryConfig) Initial() time.Duration {
	return r.initial
}

// default = 5m
func (r *RetryConfig) Max() time.Duration {
	return r.max
}

// items failed transiently this many times are marked failed. default = 8
func (r *RetryConfig) MaxAttempts() int {
	return r.maxAttempts
}

// Backoff is the delay before the attempt-th retry.
func (r *RetryConfig) Backoff(attempt int) time.Duration {
	return retry.Exponential(r.initial, 2, r.max)(attempt)
}

type HotCacheConfig struct {
	address  string
	password string
	database int
	prefix   string
	ttl      time.Duration
	timeout  time.Duration
}

func (h *HotCacheConfig) Address() string {
	return h.address
}

func (h *HotCacheConfig) Password() string {
	return h.password
}

func (h *HotCacheConfig) Database() int {
	return h.database
}

// default = "calassoc:"
func (h *HotCacheConfig) Prefix() string {
	return h.prefix
}

// default = 24h
func (h *HotCacheConfig) TTL() time.Duration {
	return h.ttl
}

// default = 2s
func (h *HotCacheConfig) Timeout() time.Duration {
	return h.timeout
}

type TracingConfig struct {
	endpoint      string
	serviceName   string
	insecure      bool
	samplingRatio float64
}

// OTLP gRPC endpoint, like "otel-collector:4317"
func (t *TracingConfig) Endpoint() string {
	return t.endpoint
}

// default = "calassoc"
func (t *TracingConfig) ServiceName() string {
	return t.serviceName
}

func (t *TracingConfig) Insecure() bool {
	return t.insecure
}

// default = 1.0
func (t *TracingConfig) SamplingRatio() float64 {
	return t.samplingRatio
}
