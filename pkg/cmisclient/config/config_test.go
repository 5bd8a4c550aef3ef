package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/cmis-client/pkg/cmisclient"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CMIS_BINDING", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BindingMemory, cfg.Binding)
	assert.Equal(t, "DRC", cfg.BaseFolderName)
	assert.Equal(t, 30, cfg.TimeoutSec)
	assert.False(t, cfg.VendorPrefixes)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CMIS_BINDING", "webservice")
	t.Setenv("CMIS_BASE_URL", "https://alfresco.example.com/cmisws")
	t.Setenv("CMIS_USERNAME", "admin")
	t.Setenv("CMIS_PASSWORD", "secret")
	t.Setenv("CMIS_BASE_FOLDER", "OtherFolder")
	t.Setenv("CMIS_VENDOR_PREFIXES", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BindingWebService, cfg.Binding)
	assert.Equal(t, "https://alfresco.example.com/cmisws", cfg.BaseURL)
	assert.Equal(t, "admin", cfg.Username)
	assert.Equal(t, "OtherFolder", cfg.BaseFolderName)
	assert.True(t, cfg.VendorPrefixes)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "browser with url",
			cfg:  Config{Binding: BindingBrowser, BaseURL: "https://repo.example.com/browser", TimeoutSec: 30},
		},
		{
			name: "memory without url",
			cfg:  Config{Binding: BindingMemory, TimeoutSec: 30},
		},
		{
			name:    "browser without url",
			cfg:     Config{Binding: BindingBrowser, TimeoutSec: 30},
			wantErr: true,
		},
		{
			name:    "unknown binding",
			cfg:     Config{Binding: "atom", BaseURL: "https://repo.example.com", TimeoutSec: 30},
			wantErr: true,
		},
		{
			name:    "missing binding",
			cfg:     Config{TimeoutSec: 30},
			wantErr: true,
		},
		{
			name:    "negative timeout",
			cfg:     Config{Binding: BindingMemory, TimeoutSec: -5},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuildClientMemory(t *testing.T) {
	cfg := Config{Binding: BindingMemory, BaseFolderName: "DRC", TimeoutSec: 30}

	client, err := cfg.BuildClient(nil)
	require.NoError(t, err)

	info, err := client.RepositoryInfo(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, info.RootFolderID)
}

func TestBuildBindingUnknown(t *testing.T) {
	cfg := Config{Binding: "atom"}
	_, err := cfg.BuildBinding(nil)
	assert.ErrorIs(t, err, cmisclient.ErrInvalidArgument)
}
