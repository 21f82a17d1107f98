package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/personabot/internal/ending"
	"github.com/dgallion1/personabot/internal/intent"
	"github.com/dgallion1/personabot/internal/persona"
	"github.com/dgallion1/personabot/internal/segment"
	"github.com/dgallion1/personabot/internal/synth"
)

func newReplyCommand() *cobra.Command {
	var (
		profilePath    string
		candidates     []string
		candidatesFile string
		mode           string
		endingMode     string
		asJSON         bool
	)

	cmd := &cobra.Command{
		Use:   "reply [query]",
		Short: "Synthesize a persona reply from candidate messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := persona.Load(profilePath)
			if err != nil {
				return err
			}
			if candidatesFile != "" {
				lines, err := readLines(candidatesFile)
				if err != nil {
					return err
				}
				candidates = append(candidates, lines...)
			}
			m, err := synth.ParseMode(mode)
			if err != nil {
				return err
			}

			asm := synth.New(synth.WithSelector(ending.ForName(endingMode)))
			res, err := asm.Compose(synth.Request{
				Query:      args[0],
				Candidates: candidates,
				Profile:    p,
				Mode:       m,
			})
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"reply":  res.Reply,
					"intent": res.Intent.String(),
					"mode":   string(res.Mode),
					"parts":  res.Parts,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Reply)
			return nil
		},
	}

	cmd.Flags().StringVarP(&profilePath, "persona", "p", "", "Persona profile file (.yaml or .json)")
	cmd.Flags().StringArrayVarP(&candidates, "candidate", "c", nil, "Candidate message (repeatable, in rank order)")
	cmd.Flags().StringVar(&candidatesFile, "candidates-file", "", "File with one candidate per line")
	cmd.Flags().StringVarP(&mode, "mode", "m", "auto", "Composition mode: auto, casual, detailed")
	cmd.Flags().StringVar(&endingMode, "ending", "random", "Ending selection: random, first")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the reply with its intent and mode as JSON")
	_ = cmd.MarkFlagRequired("persona")
	return cmd
}

func newClassifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "classify [query]",
		Short: "Print the intent class of a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), intent.Classify(args[0]))
			return nil
		},
	}
}

func newSegmentCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "segment [text]",
		Short: "Split text into sentences, one per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, s := range segment.Split(args[0]) {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			out = append(out, line)
		}
	}
	return out, scanner.Err()
}
