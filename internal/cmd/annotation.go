package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openlabel/openlabel/annotation"
)

func newAnnotationCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annotation",
		Short: "Upload and download annotations",
	}

	upload := &cobra.Command{
		Use:   "upload <image-id>",
		Short: "Attach labels to an image from a JSON file of labels",
		Args:  cobra.ExactArgs(1),
		Run:   app.handleAnnotationUpload,
	}
	upload.Flags().String("labels", "", "path to a JSON file containing an array of labels")
	_ = upload.MarkFlagRequired("labels")

	download := &cobra.Command{
		Use:   "download <project-id> <dataset-id>",
		Short: "Download all annotations in a dataset, caching them locally",
		Args:  cobra.ExactArgs(2),
		Run:   app.handleAnnotationDownload,
	}

	downloadOne := &cobra.Command{
		Use:   "get <image-id>",
		Short: "Download one image's annotation",
		Args:  cobra.ExactArgs(1),
		Run:   app.handleAnnotationGet,
	}

	export := &cobra.Command{
		Use:   "export <project-id> <dataset-id>",
		Short: "Write a dataset's cached annotations as a JSON document",
		Args:  cobra.ExactArgs(2),
		Run:   app.handleAnnotationExport,
	}
	export.Flags().String("out", "", "output file (default stdout)")

	cmd.AddCommand(upload, download, downloadOne, export)
	return cmd
}

func (a *App) handleAnnotationUpload(cmd *cobra.Command, args []string) {
	if err := a.init(); err != nil {
		a.fail("%v", err)
	}
	backend, err := a.requireBackend()
	if err != nil {
		a.fail("%v", err)
	}
	imageID, err := parseID(args[0])
	if err != nil {
		a.fail("%v", err)
	}

	labelsPath, _ := cmd.Flags().GetString("labels")
	raw, err := os.ReadFile(labelsPath)
	if err != nil {
		a.fail("read labels: %v", err)
	}
	var labels []annotation.LabelInfo
	if err := json.Unmarshal(raw, &labels); err != nil {
		a.fail("parse labels: %v", err)
	}

	info, err := a.annotate.UploadAnnotation(cmd.Context(), backend, &annotation.UploadAnnotationRequest{
		ImageID: imageID,
		Labels:  labels,
	})
	if err != nil {
		a.fail("%v", err)
	}
	if a.jsonOut {
		a.print(info)
		return
	}
	fmt.Printf("Uploaded %d labels to image %d on %s\n", len(labels), imageID, backend)
}

func (a *App) handleAnnotationDownload(cmd *cobra.Command, args []string) {
	if err := a.init(); err != nil {
		a.fail("%v", err)
	}
	backend, err := a.requireBackend()
	if err != nil {
		a.fail("%v", err)
	}
	projectID, err := parseID(args[0])
	if err != nil {
		a.fail("%v", err)
	}
	datasetID, err := parseID(args[1])
	if err != nil {
		a.fail("%v", err)
	}

	infos, err := a.annotate.DownloadAnnotations(cmd.Context(), backend, &annotation.DownloadAnnotationsRequest{
		ProjectID: projectID,
		DatasetID: datasetID,
	})
	if err != nil {
		a.fail("%v", err)
	}
	if a.jsonOut {
		a.print(infos)
		return
	}
	fmt.Printf("Downloaded %d annotations from dataset %d on %s\n", len(infos), datasetID, backend)
}

func (a *App) handleAnnotationGet(cmd *cobra.Command, args []string) {
	if err := a.init(); err != nil {
		a.fail("%v", err)
	}
	backend, err := a.requireBackend()
	if err != nil {
		a.fail("%v", err)
	}
	imageID, err := parseID(args[0])
	if err != nil {
		a.fail("%v", err)
	}

	info, err := a.annotate.DownloadAnnotation(cmd.Context(), backend, imageID)
	if err != nil {
		a.fail("%v", err)
	}
	a.print(info)
}

func (a *App) handleAnnotationExport(cmd *cobra.Command, args []string) {
	if err := a.init(); err != nil {
		a.fail("%v", err)
	}
	backend, err := a.requireBackend()
	if err != nil {
		a.fail("%v", err)
	}
	if a.cache == nil {
		a.fail("the annotation cache is disabled; set CACHE_ENABLED=true")
	}
	projectID, err := parseID(args[0])
	if err != nil {
		a.fail("%v", err)
	}
	datasetID, err := parseID(args[1])
	if err != nil {
		a.fail("%v", err)
	}

	out := os.Stdout
	if outPath, _ := cmd.Flags().GetString("out"); outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			a.fail("create output: %v", err)
		}
		defer f.Close()
		out = f
	}

	if err := a.cache.Export(cmd.Context(), out, backend, projectID, datasetID); err != nil {
		a.fail("%v", err)
	}
}
