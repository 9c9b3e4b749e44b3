package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/salesim-lab/salesim"
)

func TestResolveModel(t *testing.T) {
	tests := []struct {
		name         string
		flagValue    string
		useAnthropic bool
		want         string
	}{
		{
			name: "openai default",
			want: salesim.DefaultModel,
		},
		{
			name:         "anthropic default",
			useAnthropic: true,
			want:         string(salesim.DefaultAnthropicModel),
		},
		{
			name:      "explicit flag wins for openai",
			flagValue: "gpt-4o",
			want:      "gpt-4o",
		},
		{
			name:         "explicit flag wins for anthropic",
			flagValue:    "claude-3-haiku-20240307",
			useAnthropic: true,
			want:         "claude-3-haiku-20240307",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveModel(tt.flagValue, tt.useAnthropic))
		})
	}
}
