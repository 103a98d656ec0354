package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openlabel/openlabel/backends"
)

func newBackendsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backends",
		Short: "Inspect configured annotation backends",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List configured backends and their capabilities",
			Args:  cobra.NoArgs,
			Run:   app.handleBackendsList,
		},
		&cobra.Command{
			Use:   "ping",
			Short: "Check that the selected backend is reachable with valid credentials",
			Args:  cobra.NoArgs,
			Run:   app.handleBackendsPing,
		},
		&cobra.Command{
			Use:   "whoami",
			Short: "Show the account the selected backend authenticates as",
			Args:  cobra.NoArgs,
			Run:   app.handleBackendsWhoami,
		},
	)
	return cmd
}

func (a *App) handleBackendsList(cmd *cobra.Command, args []string) {
	if err := a.init(); err != nil {
		a.fail("%v", err)
	}

	names := a.annotate.Backends()
	if a.jsonOut {
		type entry struct {
			Name         string                `json:"name"`
			Capabilities backends.Capabilities `json:"capabilities"`
		}
		entries := make([]entry, 0, len(names))
		for _, name := range names {
			b, err := a.annotate.Backend(name)
			if err != nil {
				a.fail("%v", err)
			}
			entries = append(entries, entry{Name: name, Capabilities: b.Capabilities()})
		}
		a.print(entries)
		return
	}

	if len(names) == 0 {
		fmt.Println("No backends configured. Set SUPERVISELY_API_KEY, ROBOFLOW_API_KEY or LABELSTUDIO_API_KEY.")
		return
	}
	for _, name := range names {
		b, err := a.annotate.Backend(name)
		if err != nil {
			a.fail("%v", err)
		}
		caps := b.Capabilities()
		fmt.Printf("%s\tdatasets=%v\tvideos=%v\tvolumes=%v\tlink-upload=%v\n",
			name, caps.NativeDatasets, caps.VideoProjects, caps.VolumeProjects, caps.LinkUpload)
	}
}

func (a *App) handleBackendsPing(cmd *cobra.Command, args []string) {
	if err := a.init(); err != nil {
		a.fail("%v", err)
	}
	backend, err := a.requireBackend()
	if err != nil {
		a.fail("%v", err)
	}

	ok, err := a.annotate.Ping(cmd.Context(), backend)
	if err != nil {
		a.fail("%v", err)
	}
	if !ok {
		a.fail("%s is not available", backend)
	}
	fmt.Printf("%s is available\n", backend)
}

func (a *App) handleBackendsWhoami(cmd *cobra.Command, args []string) {
	if err := a.init(); err != nil {
		a.fail("%v", err)
	}
	backend, err := a.requireBackend()
	if err != nil {
		a.fail("%v", err)
	}

	info, err := a.annotate.CurrentAnnotator(cmd.Context(), backend)
	if err != nil {
		a.fail("%v", err)
	}
	if a.jsonOut {
		a.print(info)
		return
	}
	fmt.Printf("%s (id %d, email %q)\n", info.Name, info.ID, info.Email)
}
