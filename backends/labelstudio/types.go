package labelstudio

import (
	"time"

	"github.com/openlabel/openlabel/annotation"
)

type lsProject struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	LabelConfig string `json:"label_config"`
	TaskNumber  int    `json:"task_number"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type lsProjectList struct {
	Count   int         `json:"count"`
	Results []lsProject `json:"results"`
}

type lsUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
}

type lsImportResponse struct {
	TaskCount       int     `json:"task_count"`
	AnnotationCount int     `json:"annotation_count"`
	TaskIDs         []int64 `json:"task_ids"`
}

type lsAnnotation struct {
	ID        int64          `json:"id"`
	Task      int64          `json:"task"`
	Result    []lsResultItem `json:"result"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
}

// lsExportTask is one entry of the project JSON export.
type lsExportTask struct {
	ID          int64          `json:"id"`
	Data        map[string]any `json:"data"`
	Annotations []lsAnnotation `json:"annotations"`
}

type lsResultItem struct {
	ID             string  `json:"id,omitempty"`
	FromName       string  `json:"from_name"`
	ToName         string  `json:"to_name"`
	Type           string  `json:"type"`
	OriginalWidth  float64 `json:"original_width,omitempty"`
	OriginalHeight float64 `json:"original_height,omitempty"`
	Value          lsValue `json:"value"`
}

type lsValue struct {
	// Rectangle and keypoint coordinates, percent of image size
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`

	// Polygon vertices, percent of image size
	Points [][]float64 `json:"points,omitempty"`

	RectangleLabels []string `json:"rectanglelabels,omitempty"`
	PolygonLabels   []string `json:"polygonlabels,omitempty"`
	KeyPointLabels  []string `json:"keypointlabels,omitempty"`
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (p lsProject) toInfo() *annotation.ProjectInfo {
	return &annotation.ProjectInfo{
		ID:          p.ID,
		Name:        p.Title,
		Description: p.Description,
		Kind:        annotation.ProjectKindImages,
		Meta: map[string]any{
			"label_config": p.LabelConfig,
			"task_count":   p.TaskNumber,
		},
		CreatedAt: parseTime(p.CreatedAt),
		UpdatedAt: parseTime(p.UpdatedAt),
	}
}

// toDatasetInfo presents the project as its single implicit dataset.
func (p lsProject) toDatasetInfo() *annotation.DatasetInfo {
	return &annotation.DatasetInfo{
		ID:          p.ID,
		ProjectID:   p.ID,
		Name:        p.Title,
		Description: p.Description,
		Meta:        map[string]any{"emulated": true},
		CreatedAt:   parseTime(p.CreatedAt),
		UpdatedAt:   parseTime(p.UpdatedAt),
	}
}

// labelName pulls the class name out of whichever label list the result uses.
func (r lsResultItem) labelName() string {
	for _, labels := range [][]string{r.Value.RectangleLabels, r.Value.PolygonLabels, r.Value.KeyPointLabels} {
		if len(labels) > 0 {
			return labels[0]
		}
	}
	return ""
}

// toLabel converts a Label Studio result item back to pixel space using the
// original image dimensions recorded on the item.
func (r lsResultItem) toLabel() (annotation.LabelInfo, bool) {
	w, h := r.OriginalWidth, r.OriginalHeight
	if w == 0 || h == 0 {
		// Percent coordinates without dimensions cannot be mapped back.
		return annotation.LabelInfo{}, false
	}

	label := annotation.LabelInfo{
		Class: r.labelName(),
		Meta:  map[string]any{"result_id": r.ID},
	}

	switch r.Type {
	case "rectanglelabels":
		label.Geometry = annotation.GeometryBBox
		x := r.Value.X * w / 100
		y := r.Value.Y * h / 100
		label.Points = []annotation.Point{
			{X: x, Y: y},
			{X: x + r.Value.Width*w/100, Y: y + r.Value.Height*h/100},
		}
	case "polygonlabels":
		label.Geometry = annotation.GeometryPolygon
		for _, p := range r.Value.Points {
			if len(p) == 2 {
				label.Points = append(label.Points, annotation.Point{X: p[0] * w / 100, Y: p[1] * h / 100})
			}
		}
	case "keypointlabels":
		label.Geometry = annotation.GeometryPoint
		label.Points = []annotation.Point{{X: r.Value.X * w / 100, Y: r.Value.Y * h / 100}}
	default:
		return annotation.LabelInfo{}, false
	}
	return label, true
}

func (a lsAnnotation) toInfo() *annotation.AnnotationInfo {
	labels := make([]annotation.LabelInfo, 0, len(a.Result))
	for _, r := range a.Result {
		if label, ok := r.toLabel(); ok {
			labels = append(labels, label)
		}
	}
	return &annotation.AnnotationInfo{
		ID:        a.ID,
		ImageID:   a.Task,
		Labels:    labels,
		CreatedAt: parseTime(a.CreatedAt),
		UpdatedAt: parseTime(a.UpdatedAt),
	}
}
