package task

import (
	"errors"
	"strings"
)

var (
	ErrTaskNotFound = errors.New("task not found")
)

// FailureKind is the user-facing category of a fetch failure.
type FailureKind string

const (
	FailurePrivate       FailureKind = "private"
	FailureUnavailable   FailureKind = "unavailable"
	FailureAgeRestricted FailureKind = "age_restricted"
	FailureRegionLocked  FailureKind = "region_locked"
	FailureMissingCodec  FailureKind = "missing_codec_tool"
	FailurePermission    FailureKind = "permission_denied"
	FailureStorage       FailureKind = "insufficient_storage"
	FailureGeneric       FailureKind = "generic"
)

// Classify pattern-matches a fetch failure against known phrases and returns
// the category plus the message shown to the user. Unmatched failures fall
// back to the raw collaborator text. Match order matters: a permission error
// mentioning a video should not be misread as a video restriction.
func Classify(err error) (FailureKind, string) {
	raw := err.Error()
	msg := strings.ToLower(raw)
	switch {
	case strings.Contains(msg, "permission"), strings.Contains(msg, "access"):
		return FailurePermission, "Permission denied: Check download folder permissions"
	case strings.Contains(msg, "space"), strings.Contains(msg, "disk"):
		return FailureStorage, "Not enough storage space"
	case strings.Contains(msg, "private"):
		return FailurePrivate, "This video is private"
	case strings.Contains(msg, "unavailable"), strings.Contains(msg, "deleted"):
		return FailureUnavailable, "This video is no longer available"
	case strings.Contains(msg, "age"):
		return FailureAgeRestricted, "Video requires age verification"
	case strings.Contains(msg, "region"), strings.Contains(msg, "country"):
		return FailureRegionLocked, "This video is not available in your region"
	case strings.Contains(msg, "ffmpeg"):
		return FailureMissingCodec, "FFmpeg not installed (required for MP3 downloads)"
	default:
		return FailureGeneric, raw
	}
}
