package app

import (
	"testing"

	"lms_backend/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestShouldMigrate(t *testing.T) {
	tests := []struct {
		name         string
		mode         string
		forceMigrate bool
		want         bool
	}{
		{"debug迁移", "debug", false, true},
		{"test迁移", "test", false, true},
		{"release默认跳过", "release", false, false},
		{"release强制迁移", "release", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{ForceMigrate: tt.forceMigrate}
			cfg.Server.Mode = tt.mode
			assert.Equal(t, tt.want, shouldMigrate(cfg))
		})
	}
}

func TestGinMode(t *testing.T) {
	assert.Equal(t, gin.ReleaseMode, ginMode("release"))
	assert.Equal(t, gin.TestMode, ginMode("test"))
	assert.Equal(t, gin.DebugMode, ginMode("debug"))
	assert.Equal(t, gin.DebugMode, ginMode(""))
}
