package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openlabel/openlabel/annotation"
)

func newDatasetCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Manage datasets inside annotation projects",
	}

	create := &cobra.Command{
		Use:   "create <project-id> <name>",
		Short: "Create a dataset in a project",
		Args:  cobra.ExactArgs(2),
		Run:   app.handleDatasetCreate,
	}
	create.Flags().String("description", "", "dataset description")

	list := &cobra.Command{
		Use:   "list [project-id]",
		Short: "List datasets in a project, or across all projects with --all",
		Args:  cobra.MaximumNArgs(1),
		Run:   app.handleDatasetList,
	}
	list.Flags().Bool("all", false, "list datasets across every project")

	update := &cobra.Command{
		Use:   "update <dataset-id>",
		Short: "Update a dataset's name or description",
		Args:  cobra.ExactArgs(1),
		Run:   app.handleDatasetUpdate,
	}
	update.Flags().String("name", "", "new dataset name")
	update.Flags().String("description", "", "new dataset description")

	cmd.AddCommand(
		create,
		&cobra.Command{
			Use:   "get <dataset-id>",
			Short: "Show a dataset",
			Args:  cobra.ExactArgs(1),
			Run:   app.handleDatasetGet,
		},
		list,
		update,
		&cobra.Command{
			Use:   "delete <dataset-id>",
			Short: "Delete a dataset",
			Args:  cobra.ExactArgs(1),
			Run:   app.handleDatasetDelete,
		},
	)
	return cmd
}

func (a *App) handleDatasetCreate(cmd *cobra.Command, args []string) {
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
	description, _ := cmd.Flags().GetString("description")

	info, err := a.annotate.CreateDataset(cmd.Context(), backend, &annotation.CreateDatasetRequest{
		ProjectID:   projectID,
		Name:        args[1],
		Description: description,
	})
	if err != nil {
		a.fail("%v", err)
	}
	if a.jsonOut {
		a.print(info)
		return
	}
	fmt.Printf("Created dataset %q (id %d) in project %d on %s\n", info.Name, info.ID, projectID, backend)
}

func (a *App) handleDatasetGet(cmd *cobra.Command, args []string) {
	if err := a.init(); err != nil {
		a.fail("%v", err)
	}
	backend, err := a.requireBackend()
	if err != nil {
		a.fail("%v", err)
	}
	id, err := parseID(args[0])
	if err != nil {
		a.fail("%v", err)
	}

	info, err := a.annotate.GetDataset(cmd.Context(), backend, id)
	if err != nil {
		a.fail("%v", err)
	}
	a.print(info)
}

func (a *App) handleDatasetList(cmd *cobra.Command, args []string) {
	if err := a.init(); err != nil {
		a.fail("%v", err)
	}
	backend, err := a.requireBackend()
	if err != nil {
		a.fail("%v", err)
	}
	all, _ := cmd.Flags().GetBool("all")

	var infos []annotation.DatasetInfo
	switch {
	case all:
		infos, err = a.annotate.ListAllDatasets(cmd.Context(), backend)
	case len(args) == 1:
		var projectID int64
		projectID, err = parseID(args[0])
		if err != nil {
			a.fail("%v", err)
		}
		infos, err = a.annotate.ListDatasets(cmd.Context(), backend, projectID)
	default:
		a.fail("pass a project id or --all")
	}
	if err != nil {
		a.fail("%v", err)
	}

	if a.jsonOut {
		a.print(infos)
		return
	}
	fmt.Println("ID\tProject\tName")
	for _, d := range infos {
		fmt.Printf("%d\t%d\t%s\n", d.ID, d.ProjectID, d.Name)
	}
}

func (a *App) handleDatasetUpdate(cmd *cobra.Command, args []string) {
	if err := a.init(); err != nil {
		a.fail("%v", err)
	}
	backend, err := a.requireBackend()
	if err != nil {
		a.fail("%v", err)
	}
	id, err := parseID(args[0])
	if err != nil {
		a.fail("%v", err)
	}

	name, _ := cmd.Flags().GetString("name")
	description, _ := cmd.Flags().GetString("description")

	info, err := a.annotate.UpdateDataset(cmd.Context(), backend, &annotation.UpdateDatasetRequest{
		DatasetID:   id,
		Name:        name,
		Description: description,
	})
	if err != nil {
		a.fail("%v", err)
	}
	if a.jsonOut {
		a.print(info)
		return
	}
	fmt.Printf("Updated dataset %d on %s\n", id, backend)
}

func (a *App) handleDatasetDelete(cmd *cobra.Command, args []string) {
	if err := a.init(); err != nil {
		a.fail("%v", err)
	}
	backend, err := a.requireBackend()
	if err != nil {
		a.fail("%v", err)
	}
	id, err := parseID(args[0])
	if err != nil {
		a.fail("%v", err)
	}

	if err := a.annotate.DeleteDataset(cmd.Context(), backend, id); err != nil {
		a.fail("%v", err)
	}
	fmt.Printf("Deleted dataset %d on %s\n", id, backend)
}
