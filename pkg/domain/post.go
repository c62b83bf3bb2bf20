package domain

import (
	"errors"
	"time"
)

// ErrPermission marks delivery failures caused by missing rights in the channel
var ErrPermission = errors.New("permission denied")

// ErrDuplicate is returned when every generated draft collides with recent posts
var ErrDuplicate = errors.New("duplicate content")

// SourceTopic is the seed source name for topic-only seeds
const SourceTopic = "topic"

// Seed is a content seed for a single post, news item or bare topic
type Seed struct {
	ID          string // stable fingerprint
	Title       string
	Description string
	Content     string // extracted article text, optional
	URL         string
	Source      string
	Published   time.Time
}

// Image is a reference to a generated image, either remote or local
type Image struct {
	URL  string
	Path string
}

// Empty reports whether the image points nowhere
func (i *Image) Empty() bool {
	return i == nil || (i.URL == "" && i.Path == "")
}

// PostPackage is a ready to publish post
type PostPackage struct {
	Text  string
	Image *Image
	Seed  Seed
	Hash  string
}
