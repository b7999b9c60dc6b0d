package util

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound     = errors.New("用户不存在")
	ErrEmailRegistered  = errors.New("该邮箱已被注册")
	ErrPermissionDenied = errors.New("permission denied")
	ErrCourseNotFound   = errors.New("course not found")
	ErrLessonNotFound   = errors.New("lesson not found")
	ErrQuizNotFound     = errors.New("quiz not found")
	ErrQuizNotPublished = errors.New("quiz not published or not accessible")
	ErrCourseIncomplete = errors.New("course is not complete yet")
)

// DurationRequiredError rejects a lesson save whose content composition
// needs a manual duration that was not supplied. Portion names which part
// of the content is missing input.
type DurationRequiredError struct {
	Portion string // "video", "document", "content", "lesson"
}

func (e *DurationRequiredError) Error() string {
	return fmt.Sprintf("manual duration is required for the %s portion of this lesson", e.Portion)
}

// IsDurationRequired reports whether err is a DurationRequiredError.
func IsDurationRequired(err error) (*DurationRequiredError, bool) {
	var dr *DurationRequiredError
	if errors.As(err, &dr) {
		return dr, true
	}
	return nil, false
}
