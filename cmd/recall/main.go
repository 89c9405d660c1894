// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/recall"
	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "recall",
		Usage: "Temporal-semantic search over a personal note archive",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Search the archive, optionally within a time window",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: append(databaseFlags(),
					&cli.StringFlag{
						Name:    "when",
						Aliases: []string{"w"},
						Usage:   "Natural-language time window (e.g. \"last week\")",
					},
					&cli.StringFlag{
						Name:  "type",
						Usage: "Restrict to a note granularity (hour, day)",
					},
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results",
						Value:   10,
					},
				),
			},
			{
				Name:      "timeline",
				Usage:     "Two-stage day/hour search for a time-window question",
				ArgsUsage: "<query>",
				Action:    timelineCommand,
				Flags: append(databaseFlags(),
					&cli.StringFlag{
						Name:    "when",
						Aliases: []string{"w"},
						Usage:   "Natural-language time window",
					},
					&cli.IntFlag{
						Name:  "days",
						Usage: "Maximum number of days",
						Value: 5,
					},
					&cli.IntFlag{
						Name:  "hours",
						Usage: "Maximum hourly notes per day",
						Value: 3,
					},
				),
			},
			{
				Name:      "day",
				Usage:     "Show everything archived for one calendar day",
				ArgsUsage: "<YYYY-MM-DD>",
				Action:    dayCommand,
				Flags:     databaseFlags(),
			},
			{
				Name:      "parse",
				Usage:     "Resolve a time expression without searching",
				ArgsUsage: "<expression>",
				Action:    parseCommand,
			},
			{
				Name:   "reindex",
				Usage:  "Rebuild the keyword index from the note store",
				Action: reindexCommand,
				Flags:  databaseFlags(),
			},
			{
				Name:   "stats",
				Usage:  "Show archive and index statistics",
				Action: statsCommand,
				Flags:  databaseFlags(),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func databaseFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to the archive database directory",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

func openDatabase(c *cli.Context) (*recall.Database, error) {
	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}
	return recall.NewDatabase(c.String("db"), recall.WithAIConfig(aiConfig))
}

func queryArg(c *cli.Context) (string, error) {
	query := strings.Join(c.Args().Slice(), " ")
	if query == "" {
		return "", fmt.Errorf("a query is required")
	}
	return query, nil
}

// resolveWhen parses the --when flag into a time filter. An ambiguous
// expression resolves to its primary interpretation with a printed notice.
func resolveWhen(db *recall.Database, c *cli.Context) *core.TimeRange {
	expr := c.String("when")
	if expr == "" {
		return nil
	}
	result := db.ParseTimeWithAmbiguity(expr)
	if result == nil || result.Range == nil {
		fmt.Fprintf(os.Stderr, "could not interpret %q, searching the whole archive\n", expr)
		return nil
	}
	if result.Ambiguous {
		fmt.Fprintf(os.Stderr, "%q is ambiguous (%s), assuming %s\n",
			expr, strings.Join(result.ClarificationOptions, " / "), result.Range.Description)
	}
	return result.Range
}

func noteTypeFlag(c *cli.Context) (core.NoteType, error) {
	switch strings.ToLower(c.String("type")) {
	case "":
		return 0, nil
	case "hour":
		return core.NoteTypeHour, nil
	case "day":
		return core.NoteTypeDay, nil
	default:
		return 0, fmt.Errorf("invalid note type %q: must be hour or day", c.String("type"))
	}
}

func searchCommand(c *cli.Context) error {
	query, err := queryArg(c)
	if err != nil {
		return err
	}
	noteType, err := noteTypeFlag(c)
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	filter := resolveWhen(db, c)
	result, err := db.HybridSearch(context.Background(), query, filter, noteType, c.Int("limit"))
	if err != nil {
		return err
	}

	if !result.EmbeddingComputed {
		fmt.Fprintln(os.Stderr, "embedding service unavailable, keyword results only")
	}
	fmt.Printf("Found %d hits (%d searched)\n", len(result.Matches), result.TotalSearched)
	for i, match := range result.Matches {
		printMatch(i, &match)
	}
	return nil
}

func timelineCommand(c *cli.Context) error {
	query, err := queryArg(c)
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	filter := resolveWhen(db, c)
	result, err := db.HierarchicalSearch(context.Background(), query, filter, c.Int("days"), c.Int("hours"))
	if err != nil {
		return err
	}

	if len(result.Days) == 0 {
		fmt.Println("No matching days")
		return nil
	}
	for _, day := range result.Days {
		fmt.Printf("%s [%0.3f]\n", day.Date.Format("2006-01-02"), day.RelevanceScore)
		if day.DailyNote != nil {
			fmt.Printf("  %s\n", day.DailyNote.Note.Payload.Summary)
		}
		for _, hour := range day.HourlyNotes {
			fmt.Printf("  %s  %s [%0.3f]\n",
				hour.Note.Start.Format("15:04"), hour.Note.Payload.Summary, hour.Score)
		}
	}
	return nil
}

func dayCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("a date in YYYY-MM-DD form is required")
	}
	date, err := time.Parse("2006-01-02", c.Args().First())
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", c.Args().First(), err)
	}

	db, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	day, err := db.GetDayContext(context.Background(), date)
	if err != nil {
		return err
	}
	if day == nil {
		fmt.Printf("Nothing archived for %s\n", date.Format("2006-01-02"))
		return nil
	}

	if day.DailyNote != nil {
		fmt.Printf("%s: %s\n", day.Date.Format("2006-01-02"), day.DailyNote.Note.Payload.Summary)
	} else {
		fmt.Printf("%s (no daily summary)\n", day.Date.Format("2006-01-02"))
	}
	for _, hour := range day.HourlyNotes {
		fmt.Printf("  %s  %s\n", hour.Note.Start.Format("15:04"), hour.Note.Payload.Summary)
	}
	return nil
}

func parseCommand(c *cli.Context) error {
	expr, err := queryArg(c)
	if err != nil {
		return err
	}

	db, err := recall.NewDatabase("", recall.WithInMemory())
	if err != nil {
		return err
	}
	defer db.Close()

	result := db.ParseTimeWithAmbiguity(expr)
	if result == nil || result.Range == nil {
		fmt.Printf("%q: not recognized\n", expr)
		return nil
	}

	fmt.Printf("%q -> %s .. %s (%s, confidence %0.2f)\n",
		expr,
		result.Range.Start.Format(time.RFC3339),
		result.Range.End.Format(time.RFC3339),
		result.Range.Description,
		result.Confidence)
	if result.Ambiguous {
		fmt.Printf("ambiguous: %s\n", strings.Join(result.ClarificationOptions, " / "))
	}
	return nil
}

func reindexCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	count, err := db.Reindex(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Indexed %d notes\n", count)
	return nil
}

func statsCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	total, err := db.NoteRepository().CountNotes(ctx, 0)
	if err != nil {
		return err
	}
	days, err := db.NoteRepository().CountNotes(ctx, core.NoteTypeDay)
	if err != nil {
		return err
	}

	fmt.Printf("Notes: %d (%d daily, %d hourly)\n", total, days, total-days)
	if idx := db.LexicalIndex(); idx != nil {
		stats, err := idx.Stats(ctx, db.NoteRepository())
		if err != nil {
			return err
		}
		fmt.Printf("Keyword index: %d entries (%.0f%% coverage)\n", stats.Entries, stats.Coverage*100)
	} else {
		fmt.Println("Keyword index: unavailable")
	}
	return nil
}

func printMatch(i int, match *core.NoteMatch) {
	fmt.Printf("%d: %s %s  %s [%0.3f]\n",
		i,
		match.Note.Type,
		match.Note.Start.Format("2006-01-02 15:04"),
		match.Note.Payload.Summary,
		match.Score)
}
