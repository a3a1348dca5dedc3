package config

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/miner")
	t.Setenv("RULECART_TEST_DIR", "/srv/data")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "memory", in: ":memory:", want: ":memory:"},
		{name: "home", in: "~", want: "/home/miner"},
		{name: "home relative", in: "~/db/rules.db", want: "/home/miner/db/rules.db"},
		{name: "env", in: "$RULECART_TEST_DIR/rules.db", want: "/srv/data/rules.db"},
		{name: "tilde inside", in: "/tmp/~x", want: "/tmp/~x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}

func TestDatabasePath(t *testing.T) {
	t.Setenv("HOME", "/home/miner")

	t.Run("configured", func(t *testing.T) {
		v := viper.New()
		v.Set("database.path", "~/custom.db")
		assert.Equal(t, "/home/miner/custom.db", DatabasePath(v))
	})

	t.Run("xdg default", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", "/xdg")
		assert.Equal(t, filepath.Join("/xdg", "rulecart", DatabaseFile), DatabasePath(viper.New()))
	})

	t.Run("home default", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", "")
		assert.Equal(t, "/home/miner/.local/share/rulecart/rulecart.db", DatabasePath(viper.New()))
	})
}
