// Package telemetry exports backup traces and metrics over OTLP/HTTP.
//
// A one-shot `siteback run` lives for seconds, so nothing is exported on a
// timer that matters: the shutdown function flushes both providers and must
// be called before the process exits.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/zerowrap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const flushTimeout = 5 * time.Second

// Config holds telemetry configuration.
type Config struct {
	Enabled         bool    `mapstructure:"enabled"`
	Endpoint        string  `mapstructure:"endpoint"`   // collector base URL, e.g. "http://localhost:4318"
	AuthToken       string  `mapstructure:"auth_token"` // base64 user:pass sent as Basic auth
	Traces          bool    `mapstructure:"traces"`
	Metrics         bool    `mapstructure:"metrics"`
	TraceSampleRate float64 `mapstructure:"trace_sample_rate"`
}

// Provider holds the SDK providers that were started. Both are nil when
// telemetry is disabled and the global noop providers stay in place.
type Provider struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
}

type collector struct {
	base    string
	headers map[string]string
}

func (c collector) signalURL(signal string) string {
	return c.base + "/v1/" + signal
}

// NewProvider starts the providers selected by cfg and installs them as the
// otel globals. The returned function flushes and stops them.
func NewProvider(ctx context.Context, cfg Config, serviceName, version string) (*Provider, func(context.Context), error) {
	p := &Provider{}
	if !cfg.Enabled || cfg.Endpoint == "" {
		return p, func(context.Context) {}, nil
	}

	col, err := parseEndpoint(cfg)
	if err != nil {
		return nil, func(context.Context) {}, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
		resource.WithHost(),
		resource.WithProcessPID(),
	)
	if err != nil {
		return nil, func(context.Context) {}, fmt.Errorf("create resource: %w", err)
	}

	if cfg.Traces {
		exp, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpointURL(col.signalURL("traces")),
			otlptracehttp.WithHeaders(col.headers),
		)
		if err != nil {
			return nil, func(context.Context) {}, fmt.Errorf("create trace exporter: %w", err)
		}
		p.TracerProvider = trace.NewTracerProvider(
			trace.WithBatcher(exp),
			trace.WithResource(res),
			trace.WithSampler(sampler(cfg.TraceSampleRate)),
		)
		otel.SetTracerProvider(p.TracerProvider)
	}

	if cfg.Metrics {
		exp, err := otlpmetrichttp.New(ctx,
			otlpmetrichttp.WithEndpointURL(col.signalURL("metrics")),
			otlpmetrichttp.WithHeaders(col.headers),
		)
		if err != nil {
			p.shutdown(ctx)
			return nil, func(context.Context) {}, fmt.Errorf("create metric exporter: %w", err)
		}
		p.MeterProvider = metric.NewMeterProvider(
			metric.WithReader(metric.NewPeriodicReader(exp)),
			metric.WithResource(res),
		)
		otel.SetMeterProvider(p.MeterProvider)
	}

	return p, p.shutdown, nil
}

func (p *Provider) shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	defer cancel()

	var errs []error
	if p.MeterProvider != nil {
		errs = append(errs, p.MeterProvider.Shutdown(ctx))
	}
	if p.TracerProvider != nil {
		errs = append(errs, p.TracerProvider.Shutdown(ctx))
	}
	if err := errors.Join(errs...); err != nil {
		log := zerowrap.FromCtx(ctx)
		log.Warn().Err(err).Msg("telemetry flush failed")
	}
}

// sampler maps the configured rate: 0 disables tracing, values in (0,1)
// sample by trace id, anything else samples everything.
func sampler(rate float64) trace.Sampler {
	switch {
	case rate <= 0:
		return trace.NeverSample()
	case rate < 1:
		return trace.ParentBased(trace.TraceIDRatioBased(rate))
	default:
		return trace.AlwaysSample()
	}
}

func parseEndpoint(cfg Config) (collector, error) {
	u, err := url.Parse(strings.TrimSpace(cfg.Endpoint))
	if err != nil {
		return collector{}, fmt.Errorf("parse telemetry endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return collector{}, fmt.Errorf("telemetry endpoint must be an http or https URL, got %q", cfg.Endpoint)
	}
	if u.Host == "" {
		return collector{}, fmt.Errorf("telemetry endpoint has no host: %q", cfg.Endpoint)
	}

	headers := map[string]string{}
	if cfg.AuthToken != "" {
		headers["Authorization"] = "Basic " + cfg.AuthToken
	}

	return collector{
		base:    u.Scheme + "://" + u.Host + strings.TrimSuffix(u.Path, "/"),
		headers: headers,
	}, nil
}
