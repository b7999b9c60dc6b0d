package service

import (
	"math"
	"path/filepath"
	"strings"
	"time"

	"lms_backend/internal/config"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"

	"go.uber.org/zap"
)

// VideoProbe resolves an optional duration for a video URL. It fails
// closed: any URL it cannot probe yields nil and the duration resolver
// falls back to the manual/default path.
type VideoProbe interface {
	Probe(videoURL string) *int
}

// FFProbeVideoProbe probes self-hosted uploads with ffprobe. Only videos
// served from local storage have a file on disk to probe; everything
// else (object storage, external platforms) returns nil.
type FFProbeVideoProbe struct {
	Config *config.Config
}

func NewFFProbeVideoProbe(cfg *config.Config) *FFProbeVideoProbe {
	return &FFProbeVideoProbe{Config: cfg}
}

func (p *FFProbeVideoProbe) Probe(videoURL string) *int {
	if videoURL == "" || IsExternalPlatformURL(videoURL) {
		return nil
	}
	if p.Config.Storage.Type != util.StorageLocal {
		return nil
	}

	rel, ok := strings.CutPrefix(videoURL, "/uploads/")
	if !ok {
		return nil
	}

	timeout := time.Duration(p.Config.Video.ProbeTimeoutSeconds) * time.Second
	info, err := util.GetVideoInfo(filepath.Join(p.Config.Storage.LocalPath, rel), timeout)
	if err != nil {
		logger.Log.Warn("video probe failed, falling back to manual/default duration",
			zap.String("url", videoURL), zap.Error(err))
		return nil
	}
	if info.Duration <= 0 {
		return nil
	}

	minutes := int(math.Ceil(info.Duration / 60))
	if minutes < 1 {
		minutes = 1
	}
	return &minutes
}
