package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openlabel/openlabel/annotation"
)

func newProjectCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage annotation projects",
	}

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project. Classes are given as name:geometry[:#hexcolor], e.g. car:bbox:#ff0000",
		Args:  cobra.ExactArgs(1),
		Run:   app.handleProjectCreate,
	}
	create.Flags().String("description", "", "project description")
	create.Flags().String("kind", "images", "project kind (images, videos, volumes)")
	create.Flags().StringArray("class", nil, "label class to seed, repeatable")

	update := &cobra.Command{
		Use:   "update <project-id>",
		Short: "Update a project's name or description",
		Args:  cobra.ExactArgs(1),
		Run:   app.handleProjectUpdate,
	}
	update.Flags().String("name", "", "new project name")
	update.Flags().String("description", "", "new project description")

	cmd.AddCommand(
		create,
		&cobra.Command{
			Use:   "get <project-id>",
			Short: "Show a project",
			Args:  cobra.ExactArgs(1),
			Run:   app.handleProjectGet,
		},
		&cobra.Command{
			Use:   "list",
			Short: "List projects on the selected backend",
			Args:  cobra.NoArgs,
			Run:   app.handleProjectList,
		},
		update,
		&cobra.Command{
			Use:   "delete <project-id>",
			Short: "Delete a project",
			Args:  cobra.ExactArgs(1),
			Run:   app.handleProjectDelete,
		},
	)
	return cmd
}

func (a *App) handleProjectCreate(cmd *cobra.Command, args []string) {
	if err := a.init(); err != nil {
		a.fail("%v", err)
	}
	backend, err := a.requireBackend()
	if err != nil {
		a.fail("%v", err)
	}

	description, _ := cmd.Flags().GetString("description")
	kind, _ := cmd.Flags().GetString("kind")
	classSpecs, _ := cmd.Flags().GetStringArray("class")

	classes, err := parseClassSpecs(classSpecs)
	if err != nil {
		a.fail("%v", err)
	}

	info, err := a.annotate.CreateProject(cmd.Context(), backend, &annotation.CreateProjectRequest{
		Name:        args[0],
		Description: description,
		Kind:        annotation.ProjectKind(kind),
		Classes:     classes,
	})
	if err != nil {
		a.fail("%v", err)
	}
	if a.jsonOut {
		a.print(info)
		return
	}
	fmt.Printf("Created project %q (id %d) on %s\n", info.Name, info.ID, backend)
}

func (a *App) handleProjectGet(cmd *cobra.Command, args []string) {
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

	info, err := a.annotate.GetProject(cmd.Context(), backend, id)
	if err != nil {
		a.fail("%v", err)
	}
	a.print(info)
}

func (a *App) handleProjectList(cmd *cobra.Command, args []string) {
	if err := a.init(); err != nil {
		a.fail("%v", err)
	}
	backend, err := a.requireBackend()
	if err != nil {
		a.fail("%v", err)
	}

	infos, err := a.annotate.ListProjects(cmd.Context(), backend)
	if err != nil {
		a.fail("%v", err)
	}
	if a.jsonOut {
		a.print(infos)
		return
	}
	fmt.Println("ID\tName\tKind\tDescription")
	for _, p := range infos {
		fmt.Printf("%d\t%s\t%s\t%s\n", p.ID, p.Name, p.Kind, p.Description)
	}
}

func (a *App) handleProjectUpdate(cmd *cobra.Command, args []string) {
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

	info, err := a.annotate.UpdateProject(cmd.Context(), backend, &annotation.UpdateProjectRequest{
		ProjectID:   id,
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
	fmt.Printf("Updated project %d on %s\n", id, backend)
}

func (a *App) handleProjectDelete(cmd *cobra.Command, args []string) {
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

	if err := a.annotate.DeleteProject(cmd.Context(), backend, id); err != nil {
		a.fail("%v", err)
	}
	fmt.Printf("Deleted project %d on %s\n", id, backend)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// parseClassSpecs turns name:geometry[:#hexcolor] strings into label classes.
func parseClassSpecs(specs []string) ([]annotation.LabelClassInfo, error) {
	classes := make([]annotation.LabelClassInfo, 0, len(specs))
	for _, spec := range specs {
		parts := strings.Split(spec, ":")
		if len(parts) < 2 || parts[0] == "" {
			return nil, fmt.Errorf("invalid class %q, expected name:geometry[:#hexcolor]", spec)
		}
		kind := annotation.GeometryKind(parts[1])
		if !kind.Uploadable() && kind != annotation.GeometryBitmap {
			return nil, fmt.Errorf("invalid class %q: unknown geometry %q", spec, parts[1])
		}
		class := annotation.LabelClassInfo{Name: parts[0], Geometry: kind}
		if len(parts) > 2 {
			color, err := parseHexColor(parts[2])
			if err != nil {
				return nil, fmt.Errorf("invalid class %q: %w", spec, err)
			}
			class.Color = color
		}
		classes = append(classes, class)
	}
	return classes, nil
}

func parseHexColor(s string) (annotation.RGB, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return annotation.RGB{}, fmt.Errorf("color must be 6 hex digits, got %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return annotation.RGB{}, fmt.Errorf("color must be 6 hex digits, got %q", s)
	}
	return annotation.RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}
