package service

import (
	"net/url"
	"strings"

	"lms_backend/internal/util"
)

// DurationInput describes a lesson's content composition for duration
// resolution. ProbedMinutes is nil when the video probe failed or never
// ran; ManualMinutes is nil when the author supplied no manual value.
type DurationInput struct {
	HasVideo           bool
	HasDocument        bool
	HasSubstantialText bool
	ExternalPlatform   bool
	ProbedMinutes      *int
	ManualMinutes      *int
	DefaultMinutes     int
}

func (in DurationInput) hasManual() bool {
	return in.ManualMinutes != nil && *in.ManualMinutes > 0
}

func (in DurationInput) hasProbe() bool {
	return in.ProbedMinutes != nil && *in.ProbedMinutes > 0
}

func (in DurationInput) videoOnly() bool {
	return in.HasVideo && !in.HasDocument && !in.HasSubstantialText
}

// videoMinutes resolves the video portion alone: probed value when
// available, otherwise the fixed default. External platform videos can
// never be probed, so they always land on the default here; whether a
// manual value is required instead is decided by the rule that matched.
func (in DurationInput) videoMinutes() int {
	if in.hasProbe() {
		return *in.ProbedMinutes
	}
	return in.DefaultMinutes
}

type durationRule struct {
	name    string
	match   func(DurationInput) bool
	resolve func(DurationInput) (int, error)
}

// durationRules is the ordered decision table over content composition;
// the first matching rule wins.
var durationRules = []durationRule{
	{
		name: "video-only/probed",
		match: func(in DurationInput) bool {
			return in.videoOnly() && !in.ExternalPlatform && in.hasProbe()
		},
		resolve: func(in DurationInput) (int, error) {
			return *in.ProbedMinutes, nil
		},
	},
	{
		name: "video-only/probe-unavailable",
		match: func(in DurationInput) bool {
			return in.videoOnly() && !in.ExternalPlatform
		},
		resolve: func(in DurationInput) (int, error) {
			if in.hasManual() {
				return *in.ManualMinutes, nil
			}
			return in.DefaultMinutes, nil
		},
	},
	{
		name: "video-only/external",
		match: func(in DurationInput) bool {
			return in.videoOnly() && in.ExternalPlatform
		},
		resolve: func(in DurationInput) (int, error) {
			if !in.hasManual() {
				return 0, &util.DurationRequiredError{Portion: "video"}
			}
			return *in.ManualMinutes, nil
		},
	},
	{
		name: "video-plus-content",
		match: func(in DurationInput) bool {
			return in.HasVideo && (in.HasDocument || in.HasSubstantialText)
		},
		resolve: func(in DurationInput) (int, error) {
			if !in.hasManual() {
				portion := "content"
				if in.HasDocument {
					portion = "document"
				}
				return 0, &util.DurationRequiredError{Portion: portion}
			}
			return in.videoMinutes() + *in.ManualMinutes, nil
		},
	},
	{
		name: "content-only",
		match: func(in DurationInput) bool {
			return !in.HasVideo && (in.HasDocument || in.HasSubstantialText)
		},
		resolve: func(in DurationInput) (int, error) {
			if !in.hasManual() {
				portion := "content"
				if in.HasDocument {
					portion = "document"
				}
				return 0, &util.DurationRequiredError{Portion: portion}
			}
			return *in.ManualMinutes, nil
		},
	},
	{
		name: "empty",
		match: func(in DurationInput) bool {
			return true
		},
		resolve: func(in DurationInput) (int, error) {
			if !in.hasManual() {
				return 0, &util.DurationRequiredError{Portion: "lesson"}
			}
			return *in.ManualMinutes, nil
		},
	},
}

// ResolveDuration walks the decision table and returns the lesson's
// canonical duration in minutes.
func ResolveDuration(in DurationInput) (int, error) {
	if in.DefaultMinutes <= 0 {
		in.DefaultMinutes = DefaultVideoMinutes
	}
	for _, rule := range durationRules {
		if rule.match(in) {
			return rule.resolve(in)
		}
	}
	// unreachable: the last rule matches everything
	return 0, &util.DurationRequiredError{Portion: "lesson"}
}

// DefaultVideoMinutes is the fallback duration when a self-hosted video
// cannot be probed and no manual duration was supplied.
const DefaultVideoMinutes = 30

// SubstantialTextThreshold is the text length above which lesson text
// counts as a content portion of its own.
const SubstantialTextThreshold = 50

// 无法程序化探测时长的外部视频平台
var externalVideoHosts = map[string]bool{
	"youtube.com":      true,
	"www.youtube.com":  true,
	"youtu.be":         true,
	"vimeo.com":        true,
	"www.vimeo.com":    true,
	"bilibili.com":     true,
	"www.bilibili.com": true,
	"b23.tv":           true,
}

// IsExternalPlatformURL reports whether the video URL points at a
// third-party platform whose duration cannot be probed.
func IsExternalPlatformURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return externalVideoHosts[strings.ToLower(u.Host)]
}

// HasSubstantialText reports whether lesson text is long enough to count
// as its own content portion.
func HasSubstantialText(content string) bool {
	return len(strings.TrimSpace(content)) > SubstantialTextThreshold
}
