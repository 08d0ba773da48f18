package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reoring/niidg/catalog"
)

func (a *app) schemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect the built-in schema catalogs",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list [DOMAIN]",
		Short: "List domains, or the entity kinds of one domain",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 {
				for _, d := range catalog.Domains() {
					fmt.Fprintln(a.stdout, d)
				}
				return nil
			}
			s, err := catalog.Load(args[0])
			if err != nil {
				return &exitError{code: exitInvalid, err: err}
			}
			for _, d := range s.Entities() {
				fmt.Fprintf(a.stdout, "%s\t%s\n", d.Name, d.Description)
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "export DOMAIN KIND",
		Short: "Print the JSON Schema of one entity kind",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			s, err := catalog.JSONSchema(args[0], args[1])
			if err != nil {
				return &exitError{code: exitInvalid, err: err}
			}
			b, err := indentJSON(s)
			if err != nil {
				return systemError(err)
			}
			_, err = a.stdout.Write(b)
			return err
		},
	})
	return cmd
}
