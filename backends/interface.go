package backends

import (
	"context"
	"time"

	"github.com/openlabel/openlabel/annotation"
)

// Backend represents a unified annotation service client
type Backend interface {
	// Name returns the backend name (e.g., "supervisely", "roboflow", "labelstudio")
	Name() string

	// Capabilities describes what the backend natively supports
	Capabilities() Capabilities

	// IsAvailable checks if the backend is currently reachable with valid credentials
	IsAvailable(ctx context.Context) bool

	// CurrentAnnotator returns the authenticated account
	CurrentAnnotator(ctx context.Context) (*annotation.AnnotatorInfo, error)

	// CreateProject creates a new project
	CreateProject(ctx context.Context, req *annotation.CreateProjectRequest) (*annotation.ProjectInfo, error)

	// GetProject retrieves a project by ID
	GetProject(ctx context.Context, projectID int64) (*annotation.ProjectInfo, error)

	// UpdateProject updates project metadata and classes
	UpdateProject(ctx context.Context, req *annotation.UpdateProjectRequest) (*annotation.ProjectInfo, error)

	// ListProjects lists all projects visible to the account
	ListProjects(ctx context.Context) ([]annotation.ProjectInfo, error)

	// DeleteProject removes a project
	DeleteProject(ctx context.Context, projectID int64) error

	// CreateDataset creates a dataset inside a project
	CreateDataset(ctx context.Context, req *annotation.CreateDatasetRequest) (*annotation.DatasetInfo, error)

	// GetDataset retrieves a dataset by ID
	GetDataset(ctx context.Context, datasetID int64) (*annotation.DatasetInfo, error)

	// UpdateDataset updates dataset metadata
	UpdateDataset(ctx context.Context, req *annotation.UpdateDatasetRequest) (*annotation.DatasetInfo, error)

	// ListDatasets lists datasets in a project
	ListDatasets(ctx context.Context, projectID int64) ([]annotation.DatasetInfo, error)

	// ListAllDatasets lists datasets across all projects
	ListAllDatasets(ctx context.Context) ([]annotation.DatasetInfo, error)

	// DeleteDataset removes a dataset
	DeleteDataset(ctx context.Context, datasetID int64) error

	// UploadImage uploads one image into a dataset
	UploadImage(ctx context.Context, req *annotation.UploadImageRequest) (*annotation.ImageInfo, error)

	// UploadImages uploads a batch of images into one dataset
	UploadImages(ctx context.Context, req *annotation.UploadImagesRequest) ([]annotation.ImageInfo, error)

	// CreateClasses registers label classes on a project
	CreateClasses(ctx context.Context, projectID int64, classes []annotation.LabelClassInfo) error

	// UploadAnnotation attaches labels to an image
	UploadAnnotation(ctx context.Context, req *annotation.UploadAnnotationRequest) (*annotation.AnnotationInfo, error)

	// UploadAnnotations attaches labels to many images
	UploadAnnotations(ctx context.Context, reqs []annotation.UploadAnnotationRequest) ([]annotation.AnnotationInfo, error)

	// DownloadAnnotation fetches the annotation for one image
	DownloadAnnotation(ctx context.Context, imageID int64) (*annotation.AnnotationInfo, error)

	// DownloadAnnotations fetches all annotations in a dataset
	DownloadAnnotations(ctx context.Context, req *annotation.DownloadAnnotationsRequest) ([]annotation.AnnotationInfo, error)
}

// Capabilities describes backend feature support so callers can fail fast
// instead of round-tripping a request the backend cannot serve.
type Capabilities struct {
	// NativeDatasets is false when datasets are emulated (batch or project scoped)
	NativeDatasets bool

	// VideoProjects indicates support for video project kinds
	VideoProjects bool

	// VolumeProjects indicates support for volumetric project kinds
	VolumeProjects bool

	// LinkUpload indicates the backend can ingest images by URL server-side
	LinkUpload bool
}

// Config holds connection settings shared by all backend adapters.
type Config struct {
	// APIKey authenticates requests. Its transport differs per backend
	// (header, query parameter, or token exchange).
	APIKey string

	// BaseURL overrides the backend's default API endpoint
	BaseURL string

	// Workspace scopes requests for backends that require one
	Workspace string

	// Timeout for individual HTTP requests
	Timeout time.Duration

	// MaxRetries for retryable failures
	MaxRetries int

	// RetryDelay is the base delay between retries
	RetryDelay time.Duration

	// Headers are extra headers attached to every request
	Headers map[string]string
}

// DefaultConfig returns the default backend configuration
func DefaultConfig() Config {
	return Config{
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		RetryDelay: 1 * time.Second,
		Headers:    make(map[string]string),
	}
}
