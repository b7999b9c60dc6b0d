package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"lms_backend/internal/config"
	"lms_backend/internal/util"
)

// MediaService stores lesson media (self-hosted videos and documents)
// behind the configured storage provider and returns the URL a lesson
// references in its videoUrl/documentUrl fields.
type MediaService struct {
	Storage *StorageService
	Config  *config.Config
}

func NewMediaService(storage *StorageService, cfg *config.Config) *MediaService {
	return &MediaService{Storage: storage, Config: cfg}
}

// UploadLessonMedia validates and stores one uploaded file. Videos must
// carry a known video extension and video MIME content; documents must
// be PDFs.
func (s *MediaService) UploadLessonMedia(ctx context.Context, file *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))

	var allowedTypes []string
	switch {
	case isVideoExt(ext):
		allowedTypes = []string{util.MimeVideo, util.MimeOctetStream}
	case ext == ".pdf":
		allowedTypes = []string{util.MimePDF}
	default:
		return "", fmt.Errorf("不支持的文件类型: %s", ext)
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	// 深度验证 MIME 类型
	if _, err := util.ValidateMimeType(src, allowedTypes); err != nil {
		return "", fmt.Errorf("非法的文件内容: %v", err)
	}
	// 重置读取指针
	if seeker, ok := src.(io.Seeker); ok {
		seeker.Seek(0, io.SeekStart)
	}

	filename := "lessons/" + time.Now().Format("20060102150405") + "_" + util.GenerateRandomString(6) + ext

	return s.Storage.Upload(ctx, filename, src, file.Size, file.Header.Get("Content-Type"))
}

func isVideoExt(ext string) bool {
	for _, allowed := range util.AllowedVideoExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
