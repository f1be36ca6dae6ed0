package configbinder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type poolSettings struct {
	MaxOpenConns int `mapstructure:"max_open_conns" yaml:"max_open_conns"`
}

type connectionSettings struct {
	Type string       `mapstructure:"type" yaml:"type"`
	Port int          `mapstructure:"port" yaml:"port"`
	Pool poolSettings `mapstructure:"pool" yaml:"pool"`
}

func TestBindProperties_WeaklyTyped(t *testing.T) {
	var got connectionSettings
	err := BindProperties(map[string]interface{}{
		"type": "postgres",
		"port": "5432",
		"pool": map[string]interface{}{"max_open_conns": 4},
	}, &got, "")
	require.NoError(t, err)
	assert.Equal(t, connectionSettings{Type: "postgres", Port: 5432, Pool: poolSettings{MaxOpenConns: 4}}, got)
}

func TestBindProperties_YAMLTag(t *testing.T) {
	var got poolSettings
	require.NoError(t, BindProperties(map[string]string{"max_open_conns": "8"}, &got, "yaml"))
	assert.Equal(t, 8, got.MaxOpenConns)
}

func TestBindProperties_InvalidValue(t *testing.T) {
	var got connectionSettings
	err := BindProperties(map[string]interface{}{"port": "not-a-port"}, &got, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connectionSettings")
}
