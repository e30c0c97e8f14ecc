// Package health aggregates component health for the translation service.
// Checkers report per-component status; the Monitor polls them and exposes
// an aggregate suitable for readiness probes.
package health

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Error message sanitization patterns. Health output may be scraped by
// external systems, so connection strings and credentials are redacted.
var (
	httpURLRegex    = regexp.MustCompile(`https?://[^\s]+`)
	natsURLRegex    = regexp.MustCompile(`nats://[^\s]+`)
	unixPathRegex   = regexp.MustCompile(`/[a-zA-Z0-9/_.-]+`)
	ipAddrRegex     = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	portRegex       = regexp.MustCompile(`:\d{2,5}\b`)
	credentialRegex = regexp.MustCompile(`(?i)(password|token|key|secret|credential)[^a-zA-Z]*[:=][^,\s}]+`)
)

// Level is a component health state.
type Level string

const (
	LevelHealthy   Level = "healthy"
	LevelDegraded  Level = "degraded"
	LevelUnhealthy Level = "unhealthy"
)

// Status is the health of one component or the aggregated system.
type Status struct {
	Component   string    `json:"component"`
	Level       Level     `json:"level"`
	Message     string    `json:"message,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	SubStatuses []Status  `json:"subStatuses,omitempty"`
}

// Healthy reports whether the status is fully healthy.
func (s Status) Healthy() bool {
	return s.Level == LevelHealthy
}

// Healthy builds a healthy status.
func Healthy(component, message string) Status {
	return Status{Component: component, Level: LevelHealthy, Message: message, Timestamp: time.Now()}
}

// Degraded builds a degraded status.
func Degraded(component, message string) Status {
	return Status{Component: component, Level: LevelDegraded, Message: sanitize(message), Timestamp: time.Now()}
}

// Unhealthy builds an unhealthy status.
func Unhealthy(component, message string) Status {
	return Status{Component: component, Level: LevelUnhealthy, Message: sanitize(message), Timestamp: time.Now()}
}

// Aggregate folds component statuses into one system status. The worst
// component level wins.
func Aggregate(system string, statuses []Status) Status {
	out := Status{
		Component:   system,
		Level:       LevelHealthy,
		Timestamp:   time.Now(),
		SubStatuses: statuses,
	}

	unhealthy, degraded := 0, 0
	for _, s := range statuses {
		switch s.Level {
		case LevelUnhealthy:
			unhealthy++
		case LevelDegraded:
			degraded++
		}
	}

	switch {
	case unhealthy > 0:
		out.Level = LevelUnhealthy
		out.Message = pluralize(unhealthy, "component") + " unhealthy"
	case degraded > 0:
		out.Level = LevelDegraded
		out.Message = pluralize(degraded, "component") + " degraded"
	}
	return out
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}

// sanitize strips URLs, paths, addresses, and credential fragments from a
// message before it leaves the process.
func sanitize(msg string) string {
	if msg == "" {
		return ""
	}

	out := httpURLRegex.ReplaceAllString(msg, "[URL]")
	out = natsURLRegex.ReplaceAllString(out, "[URL]")
	out = unixPathRegex.ReplaceAllString(out, "[PATH]")
	out = ipAddrRegex.ReplaceAllString(out, "[IP]")
	out = portRegex.ReplaceAllString(out, "[PORT]")

	lower := strings.ToLower(out)
	if strings.Contains(lower, "password") || strings.Contains(lower, "token") ||
		strings.Contains(lower, "key") || strings.Contains(lower, "secret") ||
		strings.Contains(lower, "credential") {
		out = credentialRegex.ReplaceAllString(out, "[REDACTED]")
	}
	return out
}
