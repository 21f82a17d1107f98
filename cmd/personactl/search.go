package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/personabot/internal/chat"
	"github.com/dgallion1/personabot/internal/pipeline"
	"github.com/dgallion1/personabot/internal/retrieval"
	"github.com/dgallion1/personabot/internal/store"
)

func newSearchCommand() *cobra.Command {
	var (
		dbPath         string
		name           string
		embeddingsPath string
		topK           int
		embedProvider  string
		embedURL       string
		embedModel     string
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "List the stored messages most similar to a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			var emb retrieval.Embedder
			if embedProvider != "" && embedProvider != retrieval.ProviderNone {
				e, err := retrieval.NewHTTPEmbedder(embedProvider, embedURL, embedModel, os.Getenv("EMBED_API_KEY"))
				if err != nil {
					return err
				}
				defer e.Close()
				emb = e
			}

			var s retrieval.Searcher
			switch {
			case embeddingsPath != "":
				idx, err := retrieval.LoadEmbeddingsFile(embeddingsPath)
				if err != nil {
					return err
				}
				if emb != nil {
					s = retrieval.NewVectorRetriever(emb, idx)
				} else {
					s = retrieval.NewLexicalRetriever(idx.Texts())
				}
			default:
				st, err := store.Open(dbPath)
				if err != nil {
					return err
				}
				defer st.Close()
				records, err := st.Messages(ctx, name)
				if err != nil {
					return err
				}
				s = pipeline.Knowledge(emb, records)
			}
			if s == nil {
				fmt.Fprintln(cmd.OutOrStdout(), chat.NoKnowledgeReply)
				return nil
			}

			matches, err := s.Search(ctx, args[0], topK)
			if err != nil {
				return err
			}
			if len(matches) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no similar messages")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), chat.FormatSimilar(retrieval.Texts(matches)))
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "data/personabot.db", "personabot SQLite database")
	cmd.Flags().StringVarP(&name, "persona", "p", "", "Persona whose knowledge to search")
	cmd.Flags().StringVar(&embeddingsPath, "embeddings", "", "Search an embeddings.json file instead of the database")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 3, "Number of messages to list")
	cmd.Flags().StringVar(&embedProvider, "embed-provider", retrieval.ProviderNone, "Query embedder: none, ollama, openai")
	cmd.Flags().StringVar(&embedURL, "embed-url", "", "Embedding endpoint base URL")
	cmd.Flags().StringVar(&embedModel, "embed-model", "", "Embedding model")
	return cmd
}

func newExportCommand() *cobra.Command {
	var (
		dbPath string
		name   string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a persona's embedded messages as an embeddings.json file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			st, err := store.Open(dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			records, err := st.Messages(ctx, name)
			if err != nil {
				return err
			}
			idx := retrieval.NewIndex(nil)
			for _, r := range records {
				idx.Add(retrieval.Record{Text: r.Text, Embedding: r.Embedding})
			}
			if idx.Len() == 0 {
				return fmt.Errorf("persona %q has no embedded messages", name)
			}
			if err := idx.Save(out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d records)\n", out, idx.Len())
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "data/personabot.db", "personabot SQLite database")
	cmd.Flags().StringVarP(&name, "persona", "p", "", "Persona to export")
	cmd.Flags().StringVarP(&out, "out", "o", "embeddings.json", "Output file")
	_ = cmd.MarkFlagRequired("persona")
	return cmd
}
