package config

import (
	"strconv"
	"strings"
)

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Addr:                ":8000",
		ModelRepository:     "~/models",
		MaxQueueDepth:       32,
		MaxWaitSeconds:      30,
		DrainTimeoutSeconds: 30,
		MaxBodyBytes:        8 << 20,
		LogLevel:            "info",
		LogFormat:           "auto",
	}
}

// EnvPrefix prefixes every environment variable read by FromEnv.
const EnvPrefix = "MODELHOST_"

// FromEnv reads MODELHOST_* variables through getenv. Unset or unparsable
// values are left zero so Merge skips them.
func FromEnv(getenv func(string) string) Config {
	get := func(k string) string { return strings.TrimSpace(getenv(EnvPrefix + k)) }
	atoi := func(k string) int {
		n, _ := strconv.Atoi(get(k))
		return n
	}
	atoi64 := func(k string) int64 {
		n, _ := strconv.ParseInt(get(k), 10, 64)
		return n
	}
	cors, _ := strconv.ParseBool(get("CORS_ENABLED"))
	return Config{
		Addr:                get("ADDR"),
		ModelRepository:     get("MODEL_REPOSITORY"),
		LoadModels:          SplitList(get("LOAD_MODELS")),
		MaxQueueDepth:       atoi("MAX_QUEUE_DEPTH"),
		MaxWaitSeconds:      atoi("MAX_WAIT_SECONDS"),
		DrainTimeoutSeconds: atoi("DRAIN_TIMEOUT_SECONDS"),
		InferTimeoutSeconds: atoi64("INFER_TIMEOUT_SECONDS"),
		MaxBodyBytes:        atoi64("MAX_BODY_BYTES"),
		LogLevel:            get("LOG_LEVEL"),
		LogFormat:           get("LOG_FORMAT"),
		CORSEnabled:         cors,
		CORSAllowedOrigins:  SplitList(get("CORS_ALLOWED_ORIGINS")),
		CORSAllowedMethods:  SplitList(get("CORS_ALLOWED_METHODS")),
		CORSAllowedHeaders:  SplitList(get("CORS_ALLOWED_HEADERS")),
	}
}

// Merge copies every non-zero field of o over c.
func (c *Config) Merge(o Config) {
	if o.Addr != "" {
		c.Addr = o.Addr
	}
	if o.ModelRepository != "" {
		c.ModelRepository = o.ModelRepository
	}
	if len(o.LoadModels) > 0 {
		c.LoadModels = o.LoadModels
	}
	if o.MaxQueueDepth > 0 {
		c.MaxQueueDepth = o.MaxQueueDepth
	}
	if o.MaxWaitSeconds > 0 {
		c.MaxWaitSeconds = o.MaxWaitSeconds
	}
	if o.DrainTimeoutSeconds > 0 {
		c.DrainTimeoutSeconds = o.DrainTimeoutSeconds
	}
	if o.InferTimeoutSeconds > 0 {
		c.InferTimeoutSeconds = o.InferTimeoutSeconds
	}
	if o.MaxBodyBytes > 0 {
		c.MaxBodyBytes = o.MaxBodyBytes
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.LogFormat != "" {
		c.LogFormat = o.LogFormat
	}
	if o.CORSEnabled {
		c.CORSEnabled = true
	}
	if len(o.CORSAllowedOrigins) > 0 {
		c.CORSAllowedOrigins = o.CORSAllowedOrigins
	}
	if len(o.CORSAllowedMethods) > 0 {
		c.CORSAllowedMethods = o.CORSAllowedMethods
	}
	if len(o.CORSAllowedHeaders) > 0 {
		c.CORSAllowedHeaders = o.CORSAllowedHeaders
	}
}

// SplitList splits a comma-separated value, trimming blanks.
func SplitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
