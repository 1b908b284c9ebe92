package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dmx-platform/backend/internal/app"
	"dmx-platform/backend/internal/model"
	dmxerrors "dmx-platform/backend/pkg/errors"
)

func newBootstrapCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the core sentinel types if the store is empty",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				uris, err := a.Service.TypeURIs(ctx)
				if err != nil {
					return err
				}
				success(cmd.OutOrStdout(), "store bootstrapped (%d types)", len(uris))
				return nil
			})
		},
	}
}

func newApplyCmd(open opener) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "apply -f <schema.yaml>",
		Short: "Install the types declared in a YAML schema file",
		Long: `Creates the types of the file that do not exist yet, children first.
Types that already exist get the comp defs they are missing appended.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				res, err := a.ApplySchemaFile(ctx, file)
				if res != nil {
					out := cmd.OutOrStdout()
					for _, uri := range res.Created {
						success(out, "created  %s", uri)
					}
					for _, uri := range res.Extended {
						success(out, "extended %s", uri)
					}
					for _, uri := range res.Unchanged {
						info(out, "unchanged %s", uri)
					}
				}
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "schema file to apply")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newTypeCmd(open opener) *cobra.Command {
	typeCmd := &cobra.Command{
		Use:   "type",
		Short: "Inspect types",
	}

	typeCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all topic and association types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				topicTypes, err := a.Service.GetAllTopicTypes(ctx)
				if err != nil {
					return err
				}
				assocTypes, err := a.Service.GetAllAssocTypes(ctx)
				if err != nil {
					return err
				}
				t := newTable(cmd.OutOrStdout(), "KIND", "URI", "NAME", "DATA TYPE", "COMP DEFS")
				for _, typ := range append(topicTypes, assocTypes...) {
					kind := "topic"
					if typ.IsAssocType() {
						kind = "assoc"
					}
					t.addRow(kind, typ.URI, typ.Name(), shortURI(typ.DataTypeURI), fmt.Sprint(len(typ.CompDefs)))
				}
				t.render()
				return nil
			})
		},
	})

	typeCmd.AddCommand(&cobra.Command{
		Use:   "show <uri>",
		Short: "Show a type with its comp defs in sequence order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				typ, err := a.Service.GetTopicType(ctx, args[0])
				if dmxerrors.IsNotFound(err) {
					typ, err = a.Service.GetAssocType(ctx, args[0])
				}
				if err != nil {
					return err
				}
				printType(cmd, typ)
				return nil
			})
		},
	})

	return typeCmd
}

func newSequenceCmd(open opener) *cobra.Command {
	sequenceCmd := &cobra.Command{
		Use:   "sequence",
		Short: "Check or repair comp def sequences",
	}

	sequenceCmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Walk the comp def sequence of every type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				reports, err := a.Service.CheckSequences(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				broken := 0
				for _, r := range reports {
					if r.OK() {
						continue
					}
					broken++
					failure(out, "%s: %s", r.TypeURI, r.Error)
				}
				if broken > 0 {
					return fmt.Errorf("%d of %d sequences are broken; run 'dmxctl sequence repair <uri>'", broken, len(reports))
				}
				success(out, "all %d sequences intact", len(reports))
				return nil
			})
		},
	})

	sequenceCmd.AddCommand(&cobra.Command{
		Use:   "repair <uri>",
		Short: "Rebuild a broken comp def sequence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				typ, _, err := a.Service.RepairSequence(ctx, args[0])
				if err != nil {
					return err
				}
				success(cmd.OutOrStdout(), "repaired %s: %s", typ.URI, strings.Join(typ.CompDefURIs(), ", "))
				return nil
			})
		},
	})

	return sequenceCmd
}

func printType(cmd *cobra.Command, typ *model.TypeModel) {
	out := cmd.OutOrStdout()
	header(out, "%s (%s)", typ.Name(), typ.URI)
	fmt.Fprintf(out, "  kind:        %s\n", shortURI(typ.TypeURI))
	fmt.Fprintf(out, "  data type:   %s\n", shortURI(typ.DataTypeURI))
	if len(typ.IndexModes) > 0 {
		modes := make([]string, len(typ.IndexModes))
		for i, m := range typ.IndexModes {
			modes[i] = shortURI(string(m))
		}
		fmt.Fprintf(out, "  index modes: %s\n", strings.Join(modes, ", "))
	}
	if !typ.ViewConfig.IsEmpty() {
		fmt.Fprintf(out, "  view config: %d settings\n", len(typ.ViewConfig.Settings))
	}
	if len(typ.CompDefs) == 0 {
		return
	}
	fmt.Fprintln(out)

	t := newTable(out, "#", "COMP DEF", "KIND", "CARDINALITY")
	for i, cd := range typ.CompDefs {
		kind := "composition"
		if !cd.IsComposition() {
			kind = "aggregation"
		}
		t.addRow(fmt.Sprint(i+1), cd.URI(), kind, shortURI(cd.ChildCardinalityURI))
	}
	t.render()
}

// shortURI drops the dmx.core. prefix
func shortURI(uri string) string {
	return strings.TrimPrefix(uri, "dmx.core.")
}
