package annotation

import (
	"fmt"
	"time"
)

// ProjectKind represents the media type a project annotates.
type ProjectKind string

const (
	ProjectKindImages  ProjectKind = "images"
	ProjectKindVideos  ProjectKind = "videos"
	ProjectKindVolumes ProjectKind = "volumes"
)

// Valid reports whether the kind is one of the supported project kinds.
func (k ProjectKind) Valid() bool {
	switch k {
	case ProjectKindImages, ProjectKindVideos, ProjectKindVolumes:
		return true
	}
	return false
}

// GeometryKind represents the shape class of a label.
type GeometryKind string

const (
	GeometryBBox     GeometryKind = "bbox"
	GeometryPolygon  GeometryKind = "polygon"
	GeometryPolyline GeometryKind = "polyline"
	GeometryPoint    GeometryKind = "point"

	// GeometryBitmap is recognized in downloaded annotations but cannot be
	// uploaded through the unified layer.
	GeometryBitmap GeometryKind = "bitmap"
)

// Uploadable reports whether labels of this geometry can be sent to a backend.
func (g GeometryKind) Uploadable() bool {
	switch g {
	case GeometryBBox, GeometryPolygon, GeometryPolyline, GeometryPoint:
		return true
	}
	return false
}

// RGB is a label class display color.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Hex returns the color in "#rrggbb" form, the encoding most backend APIs use.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ProjectInfo describes a project on an external annotation backend.
type ProjectInfo struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Kind        ProjectKind    `json:"kind"`
	Meta        map[string]any `json:"meta,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// DatasetInfo describes a dataset (a grouping of images inside a project).
// Backends without a native dataset concept emulate one and mark it in Meta
// with "emulated": true.
type DatasetInfo struct {
	ID          int64          `json:"id"`
	ProjectID   int64          `json:"project_id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Meta        map[string]any `json:"meta,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ImageInfo describes an uploaded image.
type ImageInfo struct {
	ID        int64          `json:"id"`
	DatasetID int64          `json:"dataset_id"`
	Name      string         `json:"name"`
	URL       string         `json:"url,omitempty"`
	Width     int            `json:"width"`
	Height    int            `json:"height"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// LabelClassInfo describes an annotatable object class within a project.
type LabelClassInfo struct {
	ID       int64          `json:"id,omitempty"`
	Name     string         `json:"name"`
	Color    RGB            `json:"color"`
	Geometry GeometryKind   `json:"geometry"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// LabelInfo is a single annotated region on an image.
type LabelInfo struct {
	ID       int64          `json:"id,omitempty"`
	ClassID  int64          `json:"class_id,omitempty"`
	Class    string         `json:"class,omitempty"`
	Text     string         `json:"text,omitempty"`
	Geometry GeometryKind   `json:"geometry"`
	Points   []Point        `json:"points"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// AnnotationInfo is the full set of labels attached to one image.
type AnnotationInfo struct {
	ID        int64          `json:"id,omitempty"`
	ImageID   int64          `json:"image_id"`
	Labels    []LabelInfo    `json:"labels"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// AnnotatorInfo describes the authenticated account on a backend.
type AnnotatorInfo struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name,omitempty"`
	Email     string         `json:"email,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
