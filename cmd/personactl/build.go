package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/personabot/internal/parser"
	"github.com/dgallion1/personabot/internal/persona"
)

func newBuildCommand() *cobra.Command {
	var (
		name   string
		author string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "build [export-file]",
		Short: "Build a persona profile from a chat export",
		Long: `build parses a chat export (txt, md, csv, html, pdf, docx or json), keeps the
messages of --author (all messages when empty) and mines a persona profile.
The profile is written to --out, or printed as YAML.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parser.ForFileWithOptions(args[0], parser.Options{PDFFallbackPdftotext: true})
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open export: %w", err)
			}
			defer f.Close()

			c, err := p.Parse(f, args[0])
			if err != nil {
				return fmt.Errorf("failed to parse export: %w", err)
			}
			if name == "" {
				name = author
			}
			if name == "" {
				name = c.Source
			}

			profile, err := persona.Build(name, c.Texts(author), persona.DefaultBuildOptions())
			if err != nil {
				return err
			}

			if out != "" {
				if err := persona.Save(out, profile); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d messages)\n", out, len(c.Texts(author)))
				return nil
			}
			data, err := persona.Encode(profile, "yaml")
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Persona name (defaults to the author, then the file name)")
	cmd.Flags().StringVarP(&author, "author", "a", "", "Only use messages by this author")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the profile to this file (.yaml or .json)")
	return cmd
}
