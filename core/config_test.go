package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAcademyConfig_PackageSize(t *testing.T) {
	tests := []struct {
		configured int
		want       int
	}{
		{configured: 0, want: 6},
		{configured: -1, want: 6},
		{configured: 6, want: 6},
		{configured: 8, want: 8},
	}
	for _, tt := range tests {
		ac := AcademyConfig{SessionsPerPackage: tt.configured}
		assert.Equal(t, tt.want, ac.PackageSize(), "configured %d", tt.configured)
	}
}
