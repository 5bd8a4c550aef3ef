// Package config loads client settings from the environment and builds a
// ready-to-use client from them.
package config

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/tendant/cmis-client/pkg/cmisclient"
	"github.com/tendant/cmis-client/pkg/cmisclient/binding/browser"
	"github.com/tendant/cmis-client/pkg/cmisclient/binding/soap"
	"github.com/tendant/cmis-client/pkg/cmisclient/repo/memory"
)

// Binding selector values.
const (
	BindingBrowser    = "browser"
	BindingWebService = "webservice"
	BindingMemory     = "memory"
)

// Config holds the connection settings of one repository.
type Config struct {
	Binding        string `env:"CMIS_BINDING" env-default:"browser"`
	BaseURL        string `env:"CMIS_BASE_URL"`
	Username       string `env:"CMIS_USERNAME"`
	Password       string `env:"CMIS_PASSWORD"`
	BaseFolderName string `env:"CMIS_BASE_FOLDER" env-default:"DRC"`
	VendorPrefixes bool   `env:"CMIS_VENDOR_PREFIXES" env-default:"false"`
	TimeoutSec     int    `env:"CMIS_TIMEOUT_SEC" env-default:"30"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for completeness. The memory binding
// needs no URL; the wire bindings do.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Binding,
			validation.Required,
			validation.In(BindingBrowser, BindingWebService, BindingMemory)),
		validation.Field(&c.BaseURL,
			validation.When(c.Binding != BindingMemory, validation.Required, is.URL)),
		validation.Field(&c.TimeoutSec,
			validation.Min(1)),
	)
}

// BuildBinding constructs the wire strategy the configuration selects.
func (c *Config) BuildBinding(logger *slog.Logger) (cmisclient.Binding, error) {
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := &http.Client{Timeout: time.Duration(c.TimeoutSec) * time.Second}
	switch c.Binding {
	case BindingBrowser:
		return browser.New(c.BaseURL,
			browser.WithHTTPClient(httpClient),
			browser.WithBasicAuth(c.Username, c.Password),
			browser.WithLogger(logger),
		), nil
	case BindingWebService:
		return soap.New(c.BaseURL,
			soap.WithHTTPClient(httpClient),
			soap.WithUsernameToken(c.Username, c.Password),
			soap.WithLogger(logger),
		), nil
	case BindingMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("%w: unknown binding %q", cmisclient.ErrInvalidArgument, c.Binding)
	}
}

// BuildClient constructs a client from the configuration. Extra options are
// applied after the configured ones, so callers can override them.
func (c *Config) BuildClient(logger *slog.Logger, opts ...cmisclient.Option) (*cmisclient.Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	bind, err := c.BuildBinding(logger)
	if err != nil {
		return nil, err
	}
	all := append([]cmisclient.Option{
		cmisclient.WithBinding(bind),
		cmisclient.WithLogger(logger),
		cmisclient.WithBaseFolderName(c.BaseFolderName),
		cmisclient.WithVendorPrefixes(c.VendorPrefixes),
	}, opts...)
	return cmisclient.New(all...)
}
