package sentry_ext

import (
	"errors"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
)

type Params struct {
	// DSN is the Data Source Name for the sentry client.
	//
	// If empty, the client is effectively disabled and will not send
	// any errors to sentry.
	DSN string

	// Release is the version of the application.
	Release string

	// Environment is the environment the application is running in.
	Environment string

	// LRUSize is the size of the recent-error cache.
	LRUSize int
}

type Client struct {
	// recent caches errors sent to sentry to avoid sending the same
	// error multiple times.
	recent *cache
}

// New initializes the sentry client.
//
// If we can't create the cache, we log an error and return nil. A nil
// client is safe to use and captures nothing.
func New(params Params) *Client {
	if err := sentry.Init(
		sentry.ClientOptions{
			Dsn:         params.DSN,
			Release:     params.Release,
			Environment: params.Environment,
		}); err != nil {
		slog.Error("sentry_ext: New: failed to initialize sentry", "err", err)
	}

	recent, err := newCache(params.LRUSize)
	if err != nil {
		slog.Error("sentry_ext: New: failed to create cache", "err", err)
		return nil
	}

	return &Client{recent: recent}
}

// SetUser sets the user information for the sentry client.
func (s *Client) SetUser(id, name string) {
	if s == nil {
		return
	}
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetUser(sentry.User{ID: id, Name: name})
	})
}

// CaptureException sends an error to sentry as an error-level event
// enriched with the given tags.
func (s *Client) CaptureException(err error, tags map[string]string) {
	if s == nil || !s.recent.shouldCapture(err) {
		return
	}

	localHub := sentry.CurrentHub().Clone()
	localHub.ConfigureScope(
		func(scope *sentry.Scope) {
			scope.SetTags(tags)
		},
	)
	localHub.CaptureException(err)
}

// CaptureMessage sends a non-error message to sentry as an info-level
// event enriched with the given tags.
func (s *Client) CaptureMessage(msg string, tags map[string]string) {
	if s == nil || !s.recent.shouldCapture(errors.New(msg)) {
		return
	}

	localHub := sentry.CurrentHub().Clone()
	localHub.ConfigureScope(
		func(scope *sentry.Scope) {
			scope.SetTags(tags)
		},
	)
	localHub.CaptureMessage(msg)
}

// Flush waits for buffered events to be sent.
func (s *Client) Flush(timeout time.Duration) bool {
	if s == nil {
		return true
	}
	return sentry.CurrentHub().Flush(timeout)
}
