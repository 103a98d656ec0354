package annotation

import "errors"

var (
	// ErrNoImageSource is returned when an upload request carries neither a
	// path, a link, nor raw bytes.
	ErrNoImageSource = errors.New("one of path, link or data must be provided")

	// ErrAmbiguousImageSource is returned when more than one source is set.
	ErrAmbiguousImageSource = errors.New("only one of path, link or data may be provided")
)

// ImageSource identifies where an image's bytes come from. Exactly one field
// must be set; precedence when resolving is Path, then Link, then Data.
type ImageSource struct {
	// Path is a local filesystem path.
	Path string `json:"path,omitempty"`

	// Link is a publicly reachable URL the backend ingests server-side.
	Link string `json:"link,omitempty"`

	// Data is the raw encoded image (jpeg/png/gif).
	Data []byte `json:"-"`
}

// Validate checks that exactly one source is set.
func (s ImageSource) Validate() error {
	n := 0
	if s.Path != "" {
		n++
	}
	if s.Link != "" {
		n++
	}
	if len(s.Data) > 0 {
		n++
	}
	switch {
	case n == 0:
		return ErrNoImageSource
	case n > 1:
		return ErrAmbiguousImageSource
	}
	return nil
}

// CreateProjectRequest creates a project, optionally seeded with label
// classes and initial images. When Images are given they land in the
// project's default dataset.
type CreateProjectRequest struct {
	Name        string               `json:"name" validate:"required,min=1,max=255"`
	Description string               `json:"description,omitempty"`
	Kind        ProjectKind          `json:"kind,omitempty"`
	Classes     []LabelClassInfo     `json:"classes,omitempty" validate:"dive"`
	Images      []UploadImageRequest `json:"images,omitempty"`
}

// UpdateProjectRequest updates project metadata. Zero-valued fields are left
// untouched on the backend.
type UpdateProjectRequest struct {
	ProjectID   int64            `json:"project_id" validate:"required"`
	Name        string           `json:"name,omitempty" validate:"omitempty,max=255"`
	Description string           `json:"description,omitempty"`
	Classes     []LabelClassInfo `json:"classes,omitempty" validate:"dive"`
}

// CreateDatasetRequest creates a dataset inside a project.
type CreateDatasetRequest struct {
	ProjectID   int64  `json:"project_id" validate:"required"`
	Name        string `json:"name" validate:"required,min=1,max=255"`
	Description string `json:"description,omitempty"`
}

// UpdateDatasetRequest updates dataset metadata.
type UpdateDatasetRequest struct {
	DatasetID   int64  `json:"dataset_id" validate:"required"`
	Name        string `json:"name,omitempty" validate:"omitempty,max=255"`
	Description string `json:"description,omitempty"`
}

// UploadImageRequest uploads a single image into a dataset.
type UploadImageRequest struct {
	DatasetID int64       `json:"dataset_id"`
	Name      string      `json:"name,omitempty"`
	Source    ImageSource `json:"source"`
}

// UploadImagesRequest uploads a batch of images into one dataset.
type UploadImagesRequest struct {
	DatasetID int64                `json:"dataset_id" validate:"required"`
	Images    []UploadImageRequest `json:"images" validate:"required,min=1"`
}

// UploadAnnotationRequest attaches labels to an uploaded image.
type UploadAnnotationRequest struct {
	ImageID int64       `json:"image_id" validate:"required"`
	Labels  []LabelInfo `json:"labels" validate:"required,min=1,dive"`
}

// DownloadAnnotationsRequest fetches all annotations in a dataset.
type DownloadAnnotationsRequest struct {
	ProjectID int64 `json:"project_id" validate:"required"`
	DatasetID int64 `json:"dataset_id" validate:"required"`
}
