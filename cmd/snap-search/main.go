// Package main provides the Snap Search CLI.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/snapsearch/snap-search/internal/client"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "snap-search",
		Short: "Snap Search - natural language photo search",
		Long: `Snap Search finds photos using plain English queries.

Run 'snap-search search "beach photos from last summer"' against a
running snap-search-server, or 'snap-search --help' for all commands.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringP("server", "s", "http://localhost:8080", "server URL")
	rootCmd.PersistentFlags().String("api-key", "", "API key for authenticated servers")
	rootCmd.PersistentFlags().String("format", "text", "output format (text, json)")

	rootCmd.AddCommand(
		searchCmd(),
		parseCmd(),
		examplesCmd(),
		ingestCmd(),
		getCmd(),
		deleteCmd(),
		healthCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func clientFromFlags(cmd *cobra.Command) *client.Client {
	serverURL, _ := cmd.Flags().GetString("server")
	apiKey, _ := cmd.Flags().GetString("api-key")

	cfg := client.DefaultConfig()
	cfg.BaseURL = serverURL
	cfg.APIKey = apiKey

	return client.New(cfg)
}

func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <phrase>",
		Short: "Search photos with a natural language phrase",
		Long: `Search photos using plain English.

Examples:
  snap-search search "beach photos from last summer"
  snap-search search "happy moments with dogs" --limit 5
  snap-search search "sunset pictures from december 2023" --show-parse`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			showParse, _ := cmd.Flags().GetBool("show-parse")
			format, _ := cmd.Flags().GetString("format")

			c := clientFromFlags(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			resp, err := c.Search(ctx, client.SearchRequest{
				Query: strings.Join(args, " "),
				Limit: limit,
			})
			if err != nil {
				return err
			}

			if format == "json" {
				return outputJSON(resp)
			}

			if showParse && resp.Parsed != nil {
				printParsed(resp.Parsed)
				fmt.Println()
			}

			if resp.Total == 0 {
				fmt.Println("No photos matched.")
				return nil
			}

			fmt.Printf("%d photo(s) in %dms:\n\n", resp.Total, resp.Metadata.TotalTimeMs)
			for i, r := range resp.Results {
				fmt.Printf("%2d. %s  (score %.1f)\n", i+1, r.Name, r.RelevanceScore)
				if r.Title != "" {
					fmt.Printf("    %s\n", r.Title)
				}
				if len(r.TagNames) > 0 {
					fmt.Printf("    tags: %s\n", strings.Join(r.TagNames, ", "))
				}
				if r.TakenAt != "" {
					fmt.Printf("    taken: %s\n", r.TakenAt)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntP("limit", "l", 0, "maximum results (0 = server default)")
	cmd.Flags().Bool("show-parse", false, "show how the phrase was interpreted")

	return cmd
}

func parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <phrase>",
		Short: "Show how a phrase is interpreted without searching",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")

			c := clientFromFlags(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			parsed, err := c.Parse(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}

			if format == "json" {
				return outputJSON(parsed)
			}

			printParsed(parsed)
			return nil
		},
	}
}

func printParsed(p *client.ParsedQuery) {
	fmt.Printf("confidence: %.2f\n", p.Confidence)
	if len(p.Keywords) > 0 {
		fmt.Printf("keywords:   %s\n", strings.Join(p.Keywords, ", "))
	}
	if len(p.Scenes) > 0 {
		fmt.Printf("scenes:     %s\n", strings.Join(p.Scenes, ", "))
	}
	if len(p.Objects) > 0 {
		fmt.Printf("objects:    %s\n", strings.Join(p.Objects, ", "))
	}
	if len(p.Emotions) > 0 {
		fmt.Printf("emotions:   %s\n", strings.Join(p.Emotions, ", "))
	}
	if len(p.Locations) > 0 {
		fmt.Printf("locations:  %s\n", strings.Join(p.Locations, ", "))
	}
	if p.DateRange != nil {
		fmt.Printf("dates:      %s .. %s\n", p.DateRange.Start, p.DateRange.End)
	}
}

func examplesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "examples",
		Short: "List example phrases the server understands",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := clientFromFlags(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			examples, err := c.Examples(ctx)
			if err != nil {
				return err
			}

			for _, ex := range examples {
				fmt.Printf("  %s\n", ex)
			}
			return nil
		},
	}
}

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <name>",
		Short: "Register a photo for indexing and analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title, _ := cmd.Flags().GetString("title")
			description, _ := cmd.Flags().GetString("description")
			url, _ := cmd.Flags().GetString("url")
			tags, _ := cmd.Flags().GetStringSlice("tag")
			takenAt, _ := cmd.Flags().GetString("taken-at")
			format, _ := cmd.Flags().GetString("format")

			c := clientFromFlags(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			photo, err := c.IngestPhoto(ctx, client.IngestRequest{
				Name:        args[0],
				Title:       title,
				Description: description,
				URL:         url,
				Tags:        tags,
				TakenAt:     takenAt,
			})
			if err != nil {
				return err
			}

			if format == "json" {
				return outputJSON(photo)
			}

			fmt.Printf("Ingested %s\n", photo.Name)
			fmt.Printf("  id:       %s\n", photo.ID)
			fmt.Printf("  analysis: %s\n", photo.AnalysisStatus)
			return nil
		},
	}

	cmd.Flags().String("title", "", "photo title")
	cmd.Flags().String("description", "", "photo description")
	cmd.Flags().String("url", "", "photo source URL")
	cmd.Flags().StringSlice("tag", nil, "tag (repeatable)")
	cmd.Flags().String("taken-at", "", "capture time (RFC3339)")

	return cmd
}

func getCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a photo record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			showAnalysis, _ := cmd.Flags().GetBool("analysis")
			format, _ := cmd.Flags().GetString("format")

			c := clientFromFlags(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if showAnalysis {
				status, err := c.GetAnalysis(ctx, args[0])
				if err != nil {
					return err
				}
				if format == "json" {
					return outputJSON(status)
				}
				fmt.Printf("photo:    %s\n", status.PhotoID)
				fmt.Printf("status:   %s\n", status.Status)
				if len(status.Scenes) > 0 {
					fmt.Printf("scenes:   %s\n", strings.Join(status.Scenes, ", "))
				}
				if len(status.Objects) > 0 {
					fmt.Printf("objects:  %s\n", strings.Join(status.Objects, ", "))
				}
				if len(status.Emotions) > 0 {
					fmt.Printf("emotions: %s\n", strings.Join(status.Emotions, ", "))
				}
				return nil
			}

			photo, err := c.GetPhoto(ctx, args[0])
			if err != nil {
				return err
			}

			if format == "json" {
				return outputJSON(photo)
			}

			fmt.Printf("id:       %s\n", photo.ID)
			fmt.Printf("name:     %s\n", photo.Name)
			if photo.Title != "" {
				fmt.Printf("title:    %s\n", photo.Title)
			}
			if len(photo.TagNames) > 0 {
				fmt.Printf("tags:     %s\n", strings.Join(photo.TagNames, ", "))
			}
			fmt.Printf("analysis: %s\n", photo.AnalysisStatus)
			if photo.TakenAt != "" {
				fmt.Printf("taken:    %s\n", photo.TakenAt)
			}
			return nil
		},
	}

	cmd.Flags().Bool("analysis", false, "show AI analysis state instead of the record")

	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a photo record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := clientFromFlags(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := c.DeletePhoto(ctx, args[0]); err != nil {
				return err
			}

			fmt.Printf("Deleted %s\n", args[0])
			return nil
		},
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := clientFromFlags(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			resp, err := c.Health(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("status:  %s\n", resp.Status)
			if resp.Version != "" {
				fmt.Printf("version: %s\n", resp.Version)
			}
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("snap-search %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}
}
