package binding

import (
	"fmt"

	"github.com/yhkl-dev/tunecli/domain"
)

// NoticeKind classifies a user-visible playback problem
type NoticeKind int

const (
	// LoadFailed means the source could not be fetched or decoded
	LoadFailed NoticeKind = iota
	// PlaybackRejected means the handle refused to start
	PlaybackRejected
	// PlaybackError means the handle failed mid-track
	PlaybackError
)

func (k NoticeKind) String() string {
	switch k {
	case LoadFailed:
		return "load failed"
	case PlaybackRejected:
		return "playback rejected"
	case PlaybackError:
		return "playback error"
	default:
		return "unknown"
	}
}

// Notice is shown to the user and then discarded
type Notice struct {
	Kind  NoticeKind
	Track domain.Track
	Err   error
}

func (n Notice) String() string {
	title := n.Track.Title
	if title == "" {
		title = n.Track.ID
	}
	if n.Err == nil {
		return fmt.Sprintf("%s: %s", n.Kind, title)
	}
	return fmt.Sprintf("%s: %s (%v)", n.Kind, title, n.Err)
}

// Notifier receives notices; it must not block
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }
