package compat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsJoinable(t *testing.T) {
	p := NewPolicy("1.0.0")

	tests := []struct {
		version string
		want    bool
	}{
		{"", true},
		{"1.0.0", true},
		{"1.0.1", false},
		{"1.0", false},
		{"1.0.0 ", false},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			assert.Equal(t, tt.want, p.IsJoinable(tt.version))
		})
	}
}

func TestClassify(t *testing.T) {
	p := NewPolicy("1.0.0")

	assert.Equal(t, Unknown, p.Classify(""))
	assert.Equal(t, Compatible, p.Classify("1.0.0"))
	assert.Equal(t, Incompatible, p.Classify("0.9.9"))
	assert.Equal(t, "incompatible", Incompatible.String())
}

func TestNewPolicyDefaultsToBuildVersion(t *testing.T) {
	p := NewPolicy("")
	assert.Equal(t, Version, p.Local)
	assert.True(t, p.Compatible(Version))
	assert.False(t, p.Compatible(""))
}
