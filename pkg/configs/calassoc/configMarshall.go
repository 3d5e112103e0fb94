package calassoc

import (
	"fmt"
	"time"
)

type Marshalled[S any] interface {
	trySeal(string) S
}

// seal marshalled object.
//
// this function CAN CAUSE PANIC if misconfiguration is found.
//
// All types named `pkg/configs/calassoc.XxxMarshall` are `Marshalled[*Xxx]` .
func TrySeal[S any](conf Marshalled[S]) S {
	return conf.trySeal("(root)")
}

// Configuration of calassoc.
//
// This type is marshalling value and mutable.
// Consider to use immutable version, `Config`.
type ConfigMarshall struct {
	Database *DatabaseConfigMarshall `yaml:"database"`
	Server   *ServerConfigMarshall   `yaml:"server,omitempty"`
	Worker   *WorkerConfigMarshall   `yaml:"worker,omitempty"`
	HotCache *HotCacheConfigMarshall `yaml:"hotCache,omitempty"`
	Tracing  *TracingConfigMarshall  `yaml:"tracing,omitempty"`
}

var _ Marshalled[*Config] = &ConfigMarshall{}

// verify configuration value and create "readonly" version of this.
//
// IT WILL PANIC if any misconfiguration is found.
func (cm *ConfigMarshall) TrySeal() *Config {
	return cm.trySeal("(root)")
}

func (cm *ConfigMarshall) trySeal(path string) *Config {
	conf := &Config{
		database: nonnil(cm.Database, path+".database").trySeal(path + ".database"),
		server:   orZero(cm.Server).trySeal(path + ".server"),
		worker:   orZero(cm.Worker).trySeal(path + ".worker"),
	}
	if cm.HotCache != nil {
		conf.hotCache = cm.HotCache.trySeal(path + ".hotCache")
	}
	if cm.Tracing != nil {
		conf.tracing = cm.Tracing.trySeal(path + ".tracing")
	}
	return conf
}

type DatabaseConfigMarshall struct {
	URL          string        `yaml:"url"`
	QueryTimeout time.Duration `yaml:"queryTimeout,omitempty"`
}

func (dm *DatabaseConfigMarshall) trySeal(path string) *DatabaseConfig {
	return &DatabaseConfig{
		url:          required(dm.URL, path+".url"),
		queryTimeout: positive(withDefault(dm.QueryTimeout, 30*time.Second), path+".queryTimeout"),
	}
}

type ServerConfigMarshall struct {
	Port int32 `yaml:"port,omitempty"`
}

func (sm *ServerConfigMarshall) trySeal(path string) *ServerConfig {
	return &ServerConfig{
		port: positive(withDefault(sm.Port, 8080), path+".port"),
	}
}

type WorkerConfigMarshall struct {
	Concurrency int                  `yaml:"concurrency,omitempty"`
	Policy      string               `yaml:"policy,omitempty"`
	Lease       time.Duration        `yaml:"lease,omitempty"`
	TaskTimeout time.Duration        `yaml:"taskTimeout,omitempty"`
	Retry       *RetryConfigMarshall `yaml:"retry,omitempty"`
}

func (wm *WorkerConfigMarshall) trySeal(path string) *WorkerConfig {
	wc := &WorkerConfig{
		concurrency: positive(withDefault(wm.Concurrency, 4), path+".concurrency"),
		policy:      withDefault(wm.Policy, "forever:5s"),
		lease:       positive(withDefault(wm.Lease, 10*time.Minute), path+".lease"),
		taskTimeout: positive(withDefault(wm.TaskTimeout, 5*time.Minute), path+".taskTimeout"),
		retry:       orZero(wm.Retry).trySeal(path + ".retry"),
	}
	if wc.lease <= wc.taskTimeout {
		panic(fmt.Sprintf("%s.lease should be longer than %s.taskTimeout", path, path))
	}
	return wc
}

type RetryConfigMarshall struct {
	Initial     time.Duration `yaml:"initial,omitempty"`
	Max         time.Duration `yaml:"max,omitempty"`
	MaxAttempts int           `yaml:"maxAttempts,omitempty"`
}

func (rm *RetryConfigMarshall) trySeal(path string) *RetryConfig {
	rc := &RetryConfig{
		initial:     positive(withDefault(rm.Initial, time.Second), path+".initial"),
		max:         positive(withDefault(rm.Max, 5*time.Minute), path+".max"),
		maxAttempts: positive(withDefault(rm.MaxAttempts, 8), path+".maxAttempts"),
	}
	if rc.max < rc.initial {
		panic(fmt.Sprintf("%s.max should not be shorter than %s.initial", path, path))
	}
	return rc
}

type HotCacheConfigMarshall struct {
	Address  string        `yaml:"address"`
	Password string        `yaml:"password,omitempty"`
	Database int           `yaml:"db,omitempty"`
	Prefix   string        `yaml:"prefix,omitempty"`
	TTL      time.Duration `yaml:"ttl,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
}

func (hm *HotCacheConfigMarshall) trySeal(path string) *HotCacheConfig {
	return &HotCacheConfig{
		address:  required(hm.Address, path+".address"),
		password: hm.Password,
		database: hm.Database,
		prefix:   withDefault(hm.Prefix, "calassoc:"),
		ttl:      positive(withDefault(hm.TTL, 24*time.Hour), path+".ttl"),
		timeout:  positive(withDefault(hm.Timeout, 2*time.Second), path+".timeout"),
	}
}

type TracingConfigMarshall struct {
	Endpoint      string  `yaml:"endpoint"`
	ServiceName   string  `yaml:"serviceName,omitempty"`
	Insecure      bool    `yaml:"insecure,omitempty"`
	SamplingRatio float64 `yaml:"samplingRatio,omitempty"`
}

func (tm *TracingConfigMarshall) trySeal(path string) *TracingConfig {
	ratio := withDefault(tm.SamplingRatio, 1.0)
	if ratio < 0 || 1 < ratio {
		panic(path + ".samplingRatio should be in [0, 1]")
	}
	return &TracingConfig{
		endpoint:      required(tm.Endpoint, path+".endpoint"),
		serviceName:   withDefault(tm.ServiceName, "calassoc"),
		insecure:      tm.Insecure,
		samplingRatio: ratio,
	}
}

func nonnil[T any](v *T, path string) *T {
	if v == nil {
		panic(path + " is required")
	}
	return v
}

func orZero[T any](v *T) *T {
	if v == nil {
		return new(T)
	}
	return v
}

func required[T comparable](v T, path string) T {
	if v == *new(T) {
		panic(path + " is required")
	}
	return v
}

func withDefault[T comparable](v T, def T) T {
	if v == *new(T) {
		return def
	}
	return v
}

func positive[T int | int32 | float64 | time.Duration](v T, path string) T {
	if v <= 0 {
		panic(path + " should be positive")
	}
	return v
}
