package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openlabel/openlabel/annotation"
)

func newImageCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image",
		Short: "Upload images into datasets",
	}

	upload := &cobra.Command{
		Use:   "upload <dataset-id>",
		Short: "Upload one or more images by path or link",
		Args:  cobra.ExactArgs(1),
		Run:   app.handleImageUpload,
	}
	upload.Flags().StringArray("path", nil, "local image file to upload, repeatable")
	upload.Flags().StringArray("link", nil, "image URL the backend ingests server-side, repeatable")
	upload.Flags().String("name", "", "image name, only valid with a single source")

	cmd.AddCommand(upload)
	return cmd
}

func (a *App) handleImageUpload(cmd *cobra.Command, args []string) {
	if err := a.init(); err != nil {
		a.fail("%v", err)
	}
	backend, err := a.requireBackend()
	if err != nil {
		a.fail("%v", err)
	}
	datasetID, err := parseID(args[0])
	if err != nil {
		a.fail("%v", err)
	}

	paths, _ := cmd.Flags().GetStringArray("path")
	links, _ := cmd.Flags().GetStringArray("link")
	name, _ := cmd.Flags().GetString("name")

	var uploads []annotation.UploadImageRequest
	for _, p := range paths {
		uploads = append(uploads, annotation.UploadImageRequest{
			DatasetID: datasetID,
			Source:    annotation.ImageSource{Path: p},
		})
	}
	for _, l := range links {
		uploads = append(uploads, annotation.UploadImageRequest{
			DatasetID: datasetID,
			Source:    annotation.ImageSource{Link: l},
		})
	}
	if len(uploads) == 0 {
		a.fail("pass at least one --path or --link")
	}

	if len(uploads) == 1 {
		uploads[0].Name = name
		info, err := a.annotate.UploadImage(cmd.Context(), backend, &uploads[0])
		if err != nil {
			a.fail("%v", err)
		}
		if a.jsonOut {
			a.print(info)
			return
		}
		fmt.Printf("Uploaded %q (id %d) into dataset %d on %s\n", info.Name, info.ID, datasetID, backend)
		return
	}

	if name != "" {
		a.fail("--name is only valid with a single image")
	}
	infos, err := a.annotate.UploadImages(cmd.Context(), backend, &annotation.UploadImagesRequest{
		DatasetID: datasetID,
		Images:    uploads,
	})
	if err != nil {
		a.fail("%v", err)
	}
	if a.jsonOut {
		a.print(infos)
		return
	}
	fmt.Printf("Uploaded %d images into dataset %d on %s\n", len(infos), datasetID, backend)
}
