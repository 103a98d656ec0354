// Package annotator is the unified entry point: one client that maps the
// project, dataset, image and annotation operations onto whichever backend
// the caller names, validating requests before any network call and writing
// downloaded annotations through to the local cache.
package annotator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/openlabel/openlabel/annotation"
	"github.com/openlabel/openlabel/backends"
	"github.com/openlabel/openlabel/store"
	"github.com/openlabel/openlabel/utils"
)

// Annotator dispatches unified annotation operations to registered backends
type Annotator struct {
	registry *backends.Registry
	cache    *store.Store
	logger   *zap.Logger
}

// New creates a new Annotator. The cache may be nil, in which case downloads
// are not persisted locally.
func New(registry *backends.Registry, cache *store.Store, logger *zap.Logger) *Annotator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Annotator{
		registry: registry,
		cache:    cache,
		logger:   logger,
	}
}

// Backends returns the names of all registered backends
func (a *Annotator) Backends() []string {
	return a.registry.List()
}

// Backend returns the named backend
func (a *Annotator) Backend(name string) (backends.Backend, error) {
	b, err := a.registry.Get(name)
	if err != nil {
		return nil, fmt.Errorf("backend %q: %w", name, err)
	}
	return b, nil
}

// Ping checks whether the named backend is reachable with valid credentials
func (a *Annotator) Ping(ctx context.Context, backend string) (bool, error) {
	b, err := a.Backend(backend)
	if err != nil {
		return false, err
	}
	return b.IsAvailable(ctx), nil
}

// CurrentAnnotator returns the authenticated account on the named backend
func (a *Annotator) CurrentAnnotator(ctx context.Context, backend string) (*annotation.AnnotatorInfo, error) {
	b, err := a.Backend(backend)
	if err != nil {
		return nil, err
	}
	return b.CurrentAnnotator(ctx)
}

// CreateProject creates a project on the named backend
func (a *Annotator) CreateProject(ctx context.Context, backend string, req *annotation.CreateProjectRequest) (*annotation.ProjectInfo, error) {
	b, err := a.Backend(backend)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	kind := req.Kind
	if kind == "" {
		kind = annotation.ProjectKindImages
	}
	if !kind.Valid() {
		return nil, backends.NewBackendError(backend, backends.CodeValidation,
			fmt.Sprintf("unknown project kind %q", kind), 0, false, nil)
	}
	caps := b.Capabilities()
	if kind == annotation.ProjectKindVideos && !caps.VideoProjects {
		return nil, backends.NewBackendError(backend, backends.CodeNotSupported,
			fmt.Sprintf("%s does not support video projects", backend), 0, false, nil)
	}
	if kind == annotation.ProjectKindVolumes && !caps.VolumeProjects {
		return nil, backends.NewBackendError(backend, backends.CodeNotSupported,
			fmt.Sprintf("%s does not support volume projects", backend), 0, false, nil)
	}
	for i := range req.Images {
		if err := req.Images[i].Source.Validate(); err != nil {
			return nil, backends.NewBackendError(backend, backends.CodeValidation,
				fmt.Sprintf("initial image %d: %s", i, err), 0, false, err)
		}
	}

	info, err := b.CreateProject(ctx, req)
	if err != nil {
		return nil, err
	}

	a.logger.Info("created project",
		zap.String("backend", backend),
		zap.Int64("project_id", info.ID),
		zap.String("name", info.Name))
	return info, nil
}

// GetProject retrieves a project from the named backend
func (a *Annotator) GetProject(ctx context.Context, backend string, projectID int64) (*annotation.ProjectInfo, error) {
	b, err := a.Backend(backend)
	if err != nil {
		return nil, err
	}
	return b.GetProject(ctx, projectID)
}

// UpdateProject updates a project on the named backend
func (a *Annotator) UpdateProject(ctx context.Context, backend string, req *annotation.UpdateProjectRequest) (*annotation.ProjectInfo, error) {
	b, err := a.Backend(backend)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	info, err := b.UpdateProject(ctx, req)
	if err != nil {
		return nil, err
	}
	a.logger.Info("updated project",
		zap.String("backend", backend),
		zap.Int64("project_id", req.ProjectID))
	return info, nil
}

// ListProjects lists all projects on the named backend
func (a *Annotator) ListProjects(ctx context.Context, backend string) ([]annotation.ProjectInfo, error) {
	b, err := a.Backend(backend)
	if err != nil {
		return nil, err
	}
	return b.ListProjects(ctx)
}

// DeleteProject removes a project from the named backend
func (a *Annotator) DeleteProject(ctx context.Context, backend string, projectID int64) error {
	b, err := a.Backend(backend)
	if err != nil {
		return err
	}
	if err := b.DeleteProject(ctx, projectID); err != nil {
		return err
	}
	a.logger.Info("deleted project",
		zap.String("backend", backend),
		zap.Int64("project_id", projectID))
	return nil
}

// CreateDataset creates a dataset on the named backend
func (a *Annotator) CreateDataset(ctx context.Context, backend string, req *annotation.CreateDatasetRequest) (*annotation.DatasetInfo, error) {
	b, err := a.Backend(backend)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	info, err := b.CreateDataset(ctx, req)
	if err != nil {
		return nil, err
	}
	a.logger.Info("created dataset",
		zap.String("backend", backend),
		zap.Int64("project_id", req.ProjectID),
		zap.Int64("dataset_id", info.ID),
		zap.String("name", info.Name))
	return info, nil
}

// GetDataset retrieves a dataset from the named backend
func (a *Annotator) GetDataset(ctx context.Context, backend string, datasetID int64) (*annotation.DatasetInfo, error) {
	b, err := a.Backend(backend)
	if err != nil {
		return nil, err
	}
	return b.GetDataset(ctx, datasetID)
}

// UpdateDataset updates a dataset on the named backend
func (a *Annotator) UpdateDataset(ctx context.Context, backend string, req *annotation.UpdateDatasetRequest) (*annotation.DatasetInfo, error) {
	b, err := a.Backend(backend)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	return b.UpdateDataset(ctx, req)
}

// ListDatasets lists a project's datasets on the named backend
func (a *Annotator) ListDatasets(ctx context.Context, backend string, projectID int64) ([]annotation.DatasetInfo, error) {
	b, err := a.Backend(backend)
	if err != nil {
		return nil, err
	}
	return b.ListDatasets(ctx, projectID)
}

// ListAllDatasets lists all datasets on the named backend
func (a *Annotator) ListAllDatasets(ctx context.Context, backend string) ([]annotation.DatasetInfo, error) {
	b, err := a.Backend(backend)
	if err != nil {
		return nil, err
	}
	return b.ListAllDatasets(ctx)
}

// DeleteDataset removes a dataset from the named backend
func (a *Annotator) DeleteDataset(ctx context.Context, backend string, datasetID int64) error {
	b, err := a.Backend(backend)
	if err != nil {
		return err
	}
	if err := b.DeleteDataset(ctx, datasetID); err != nil {
		return err
	}
	a.logger.Info("deleted dataset",
		zap.String("backend", backend),
		zap.Int64("dataset_id", datasetID))
	return nil
}

// UploadImage uploads one image through the named backend
func (a *Annotator) UploadImage(ctx context.Context, backend string, req *annotation.UploadImageRequest) (*annotation.ImageInfo, error) {
	b, err := a.Backend(backend)
	if err != nil {
		return nil, err
	}
	if err := req.Source.Validate(); err != nil {
		return nil, backends.NewBackendError(backend, backends.CodeValidation, err.Error(), 0, false, err)
	}
	if req.Source.Link != "" && !b.Capabilities().LinkUpload {
		return nil, backends.NewBackendError(backend, backends.CodeNotSupported,
			fmt.Sprintf("%s cannot ingest images by link", backend), 0, false, nil)
	}

	info, err := b.UploadImage(ctx, req)
	if err != nil {
		return nil, err
	}
	a.logger.Info("uploaded image",
		zap.String("backend", backend),
		zap.Int64("dataset_id", req.DatasetID),
		zap.Int64("image_id", info.ID),
		zap.String("name", info.Name))
	return info, nil
}

// UploadImages uploads a batch of images through the named backend
func (a *Annotator) UploadImages(ctx context.Context, backend string, req *annotation.UploadImagesRequest) ([]annotation.ImageInfo, error) {
	b, err := a.Backend(backend)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	for i := range req.Images {
		if err := req.Images[i].Source.Validate(); err != nil {
			return nil, backends.NewBackendError(backend, backends.CodeValidation,
				fmt.Sprintf("image %d: %s", i, err), 0, false, err)
		}
	}

	infos, err := b.UploadImages(ctx, req)
	if err != nil {
		return infos, err
	}
	a.logger.Info("uploaded images",
		zap.String("backend", backend),
		zap.Int64("dataset_id", req.DatasetID),
		zap.Int("count", len(infos)))
	return infos, nil
}

// CreateClasses registers label classes on a project
func (a *Annotator) CreateClasses(ctx context.Context, backend string, projectID int64, classes []annotation.LabelClassInfo) error {
	b, err := a.Backend(backend)
	if err != nil {
		return err
	}
	for _, c := range classes {
		if c.Name == "" {
			return backends.NewBackendError(backend, backends.CodeValidation,
				"label class name is required", 0, false, nil)
		}
	}
	return b.CreateClasses(ctx, projectID, classes)
}

// UploadAnnotation attaches labels to an image on the named backend
func (a *Annotator) UploadAnnotation(ctx context.Context, backend string, req *annotation.UploadAnnotationRequest) (*annotation.AnnotationInfo, error) {
	b, err := a.Backend(backend)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	for _, l := range req.Labels {
		if !l.Geometry.Uploadable() {
			return nil, backends.NewBackendError(backend, backends.CodeValidation,
				fmt.Sprintf("geometry %q cannot be uploaded", l.Geometry), 0, false, nil)
		}
	}
	return b.UploadAnnotation(ctx, req)
}

// UploadAnnotations attaches labels to many images on the named backend
func (a *Annotator) UploadAnnotations(ctx context.Context, backend string, reqs []annotation.UploadAnnotationRequest) ([]annotation.AnnotationInfo, error) {
	b, err := a.Backend(backend)
	if err != nil {
		return nil, err
	}
	for i := range reqs {
		if err := utils.ValidateStruct(&reqs[i]); err != nil {
			return nil, fmt.Errorf("annotation %d: %w", i, err)
		}
	}
	return b.UploadAnnotations(ctx, reqs)
}

// DownloadAnnotation fetches one image's annotation from the named backend
func (a *Annotator) DownloadAnnotation(ctx context.Context, backend string, imageID int64) (*annotation.AnnotationInfo, error) {
	b, err := a.Backend(backend)
	if err != nil {
		return nil, err
	}
	return b.DownloadAnnotation(ctx, imageID)
}

// DownloadAnnotations fetches a dataset's annotations from the named backend
// and writes them through to the local cache when one is configured.
func (a *Annotator) DownloadAnnotations(ctx context.Context, backend string, req *annotation.DownloadAnnotationsRequest) ([]annotation.AnnotationInfo, error) {
	b, err := a.Backend(backend)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	infos, err := b.DownloadAnnotations(ctx, req)
	if err != nil {
		return nil, err
	}

	a.logger.Info("downloaded annotations",
		zap.String("backend", backend),
		zap.Int64("project_id", req.ProjectID),
		zap.Int64("dataset_id", req.DatasetID),
		zap.Int("count", len(infos)))

	if a.cache != nil {
		if err := a.cache.PutAll(ctx, backend, req.ProjectID, req.DatasetID, infos); err != nil {
			// The download succeeded; a cache failure must not discard it.
			a.logger.Warn("failed to cache downloaded annotations",
				zap.String("backend", backend),
				zap.Int64("dataset_id", req.DatasetID),
				zap.Error(err))
		}
	}
	return infos, nil
}

// CachedAnnotations returns the locally cached annotations for a dataset
func (a *Annotator) CachedAnnotations(ctx context.Context, backend string, projectID, datasetID int64) ([]store.Entry, error) {
	if a.cache == nil {
		return nil, fmt.Errorf("no annotation cache configured")
	}
	return a.cache.List(ctx, backend, projectID, datasetID)
}
