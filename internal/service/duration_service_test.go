package service

import (
	"strings"
	"testing"

	"lms_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestResolveDuration(t *testing.T) {
	tests := []struct {
		name    string
		in      DurationInput
		want    int
		portion string // 非空表示期望 DurationRequiredError
	}{
		{
			name: "self-hosted video with probe result",
			in:   DurationInput{HasVideo: true, ProbedMinutes: intPtr(42)},
			want: 42,
		},
		{
			name: "self-hosted video, probe failed, manual supplied",
			in:   DurationInput{HasVideo: true, ManualMinutes: intPtr(25)},
			want: 25,
		},
		{
			name: "self-hosted video, probe failed, no manual falls to default",
			in:   DurationInput{HasVideo: true, DefaultMinutes: 30},
			want: 30,
		},
		{
			name: "probe wins over manual for self-hosted video",
			in:   DurationInput{HasVideo: true, ProbedMinutes: intPtr(17), ManualMinutes: intPtr(99)},
			want: 17,
		},
		{
			name:    "external platform video requires manual",
			in:      DurationInput{HasVideo: true, ExternalPlatform: true},
			portion: "video",
		},
		{
			name: "external platform video with manual",
			in:   DurationInput{HasVideo: true, ExternalPlatform: true, ManualMinutes: intPtr(12)},
			want: 12,
		},
		{
			name:    "video plus document requires manual for document portion",
			in:      DurationInput{HasVideo: true, HasDocument: true, ProbedMinutes: intPtr(20)},
			portion: "document",
		},
		{
			name: "video plus document sums probe and manual",
			in:   DurationInput{HasVideo: true, HasDocument: true, ProbedMinutes: intPtr(20), ManualMinutes: intPtr(15)},
			want: 35,
		},
		{
			name: "unprobeable video plus text uses default for the video portion",
			in:   DurationInput{HasVideo: true, HasSubstantialText: true, ManualMinutes: intPtr(10), DefaultMinutes: 30},
			want: 40,
		},
		{
			name:    "video plus text without manual names the content portion",
			in:      DurationInput{HasVideo: true, HasSubstantialText: true},
			portion: "content",
		},
		{
			name:    "document only requires manual",
			in:      DurationInput{HasDocument: true},
			portion: "document",
		},
		{
			name: "document only with manual",
			in:   DurationInput{HasDocument: true, ManualMinutes: intPtr(18)},
			want: 18,
		},
		{
			name:    "text only requires manual",
			in:      DurationInput{HasSubstantialText: true},
			portion: "content",
		},
		{
			name: "text only with manual",
			in:   DurationInput{HasSubstantialText: true, ManualMinutes: intPtr(8)},
			want: 8,
		},
		{
			name:    "empty lesson requires manual",
			in:      DurationInput{},
			portion: "lesson",
		},
		{
			name: "empty lesson with manual",
			in:   DurationInput{ManualMinutes: intPtr(5)},
			want: 5,
		},
		{
			name:    "zero manual counts as absent",
			in:      DurationInput{HasVideo: true, ExternalPlatform: true, ManualMinutes: intPtr(0)},
			portion: "video",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveDuration(tt.in)
			if tt.portion != "" {
				dr, ok := util.IsDurationRequired(err)
				require.True(t, ok, "expected DurationRequiredError, got %v", err)
				assert.Equal(t, tt.portion, dr.Portion)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Greater(t, got, 0, "resolved duration must be positive")
		})
	}
}

func TestIsExternalPlatformURL(t *testing.T) {
	assert.True(t, IsExternalPlatformURL("https://www.youtube.com/watch?v=abc"))
	assert.True(t, IsExternalPlatformURL("https://youtu.be/abc"))
	assert.True(t, IsExternalPlatformURL("https://vimeo.com/12345"))
	assert.True(t, IsExternalPlatformURL("https://www.bilibili.com/video/BV1xx"))
	assert.True(t, IsExternalPlatformURL("https://b23.tv/abc"))

	assert.False(t, IsExternalPlatformURL(""))
	assert.False(t, IsExternalPlatformURL("/uploads/lesson1.mp4"))
	assert.False(t, IsExternalPlatformURL("https://cdn.example.com/lesson1.mp4"))
}

func TestHasSubstantialText(t *testing.T) {
	assert.False(t, HasSubstantialText(""))
	assert.False(t, HasSubstantialText("short note"))
	assert.False(t, HasSubstantialText(strings.Repeat(" ", 200)))
	assert.True(t, HasSubstantialText(strings.Repeat("a", SubstantialTextThreshold+1)))
}
