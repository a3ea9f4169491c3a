package media

import (
	"fmt"

	"github.com/google/uuid"
)

// Kind is the closed photo/video variant
type Kind int

const (
	KindPhoto Kind = iota
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindPhoto:
		return "photo"
	case KindVideo:
		return "video"
	}
	return "unknown"
}

// Rotation is a fixed 90-degree multiple, photos only. Applied as a
// coordinate permutation, never a rotation matrix.
type Rotation int

const (
	Rotate0   Rotation = 0
	Rotate90  Rotation = 90
	Rotate180 Rotation = 180
	Rotate270 Rotation = 270
)

// ParseRotation normalizes an arbitrary degree count to a valid Rotation
func ParseRotation(deg int) (Rotation, error) {
	deg = ((deg % 360) + 360) % 360
	switch deg {
	case 0, 90, 180, 270:
		return Rotation(deg), nil
	}
	return Rotate0, fmt.Errorf("rotation must be a multiple of 90, got %d", deg)
}

// Source identifies where an item's bytes come from. Exactly one of the
// fields is set.
type Source struct {
	Path      string // local file handle
	LibraryID string // platform library handle, resolved by the caller
}

func (s Source) String() string {
	if s.Path != "" {
		return s.Path
	}
	return "library:" + s.LibraryID
}

// Item is one slideshow entry as imported. Immutable; referenced by ID
// everywhere downstream.
type Item struct {
	ID       uuid.UUID
	Kind     Kind
	Source   Source
	Rotation Rotation
}

// NewPhoto creates a photo item from a local file
func NewPhoto(path string, rot Rotation) Item {
	return Item{
		ID:       uuid.New(),
		Kind:     KindPhoto,
		Source:   Source{Path: path},
		Rotation: rot,
	}
}

// NewVideo creates a video item from a local file
func NewVideo(path string) Item {
	return Item{
		ID:       uuid.New(),
		Kind:     KindVideo,
		Source:   Source{Path: path},
	}
}

// NewLibraryItem creates an item backed by a resolved library handle
func NewLibraryItem(kind Kind, libraryID string, rot Rotation) Item {
	return Item{
		ID:       uuid.New(),
		Kind:     kind,
		Source:   Source{LibraryID: libraryID},
		Rotation: rot,
	}
}
