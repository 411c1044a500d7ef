package options

import (
	"context"
	"log/slog"
	"net/http"
	"runtime"
)

type Options struct {
	Logger         *slog.Logger
	HTTPClient     *http.Client
	Context        context.Context
	DeviceName     string
	DevicePlatform string
	Username       string
	PreferencesDir string
}

type Option func(*Options)

func WithLogger(logger *slog.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(opts *Options) {
		opts.HTTPClient = client
	}
}

func WithContext(ctx context.Context) Option {
	return func(opts *Options) {
		opts.Context = ctx
	}
}

// WithDeviceName overrides the human-readable device name sent during
// enrollment. Defaults to the host name.
func WithDeviceName(name string) Option {
	return func(opts *Options) {
		opts.DeviceName = name
	}
}

func WithDevicePlatform(platform string) Option {
	return func(opts *Options) {
		opts.DevicePlatform = platform
	}
}

// WithUsername scopes device-bound keys to a single user, so several users
// can hold independent credentials on one device.
func WithUsername(username string) Option {
	return func(opts *Options) {
		opts.Username = username
	}
}

// WithPreferencesDir sets the directory used for small local preference
// files (passkey credential ids, generated device id, encrypted PINs).
func WithPreferencesDir(dir string) Option {
	return func(opts *Options) {
		opts.PreferencesDir = dir
	}
}

func NewOptions(opts ...Option) *Options {
	oo := &Options{
		Logger:         slog.Default(),
		HTTPClient:     http.DefaultClient,
		Context:        context.Background(),
		DevicePlatform: runtime.GOOS,
	}

	for _, opt := range opts {
		opt(oo)
	}

	return oo
}
