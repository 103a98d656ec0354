package labelstudio

import (
	"fmt"
	"strings"

	"github.com/openlabel/openlabel/annotation"
)

// buildLabelConfig renders the labeling interface XML from unified label
// classes, one control group per geometry kind present.
func buildLabelConfig(classes []annotation.LabelClassInfo) string {
	groups := map[annotation.GeometryKind][]annotation.LabelClassInfo{}
	for _, c := range classes {
		geom := c.Geometry
		if !geom.Uploadable() {
			geom = annotation.GeometryBBox
		}
		groups[geom] = append(groups[geom], c)
	}

	var b strings.Builder
	b.WriteString("<View>\n")
	b.WriteString("  <Image name=\"image\" value=\"$image\"/>\n")

	writeGroup := func(tag, name string, classes []annotation.LabelClassInfo) {
		if len(classes) == 0 {
			return
		}
		fmt.Fprintf(&b, "  <%s name=%q toName=\"image\">\n", tag, name)
		for _, c := range classes {
			fmt.Fprintf(&b, "    <Label value=%q background=%q/>\n", c.Name, c.Color.Hex())
		}
		fmt.Fprintf(&b, "  </%s>\n", tag)
	}

	writeGroup("RectangleLabels", "bbox", groups[annotation.GeometryBBox])
	// Polylines ride the polygon control; Label Studio has no open-chain tag.
	writeGroup("PolygonLabels", "polygon", append(groups[annotation.GeometryPolygon], groups[annotation.GeometryPolyline]...))
	writeGroup("KeyPointLabels", "point", groups[annotation.GeometryPoint])

	b.WriteString("</View>")
	return b.String()
}
