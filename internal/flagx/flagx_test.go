package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "separate value kept",
			args:    []string{"-c", "conf.json", "-a", "localhost"},
			allowed: []string{"-c", "--config"},
			want:    []string{"-c", "conf.json"},
		},
		{
			name:    "combined form kept",
			args:    []string{"--config=alt.json", "-a", "localhost"},
			allowed: []string{"-c", "--config"},
			want:    []string{"--config=alt.json"},
		},
		{
			name:    "unknown flags dropped",
			args:    []string{"-x", "1", "--y=2", "positional"},
			allowed: []string{"-c"},
			want:    []string{},
		},
		{
			name:    "flag followed by another flag keeps no value",
			args:    []string{"-c", "-v"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
		{
			name:    "trailing flag without value",
			args:    []string{"-c"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestConfigFileFlag(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()

	os.Args = []string{"runmate", "-c", "runmate.json", "-b", "https://example.com"}
	assert.Equal(t, "runmate.json", ConfigFileFlag())

	os.Args = []string{"runmate", "-b", "https://example.com"}
	assert.Equal(t, "", ConfigFileFlag())
}
