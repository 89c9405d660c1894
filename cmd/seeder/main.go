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


// Seeder populates an archive with a few weeks of plausible notes so the
// search commands have something to chew on.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/poiesic/recall"
	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
)

var (
	dbPath = flag.String("db", "./recall_db", "path to the archive database directory")
	days   = flag.Int("days", 21, "number of days to seed, counting back from today")
	seed   = flag.Int64("seed", 42, "random seed")
)

type activity struct {
	summary    string
	categories []string
	entities   []string
	activities []string
}

var activities = []activity{
	{"Debugged the payment gateway timeout with Dana", []string{"work"}, []string{"Dana", "payment gateway"}, []string{"debugging"}},
	{"Sprint planning for the retrieval project", []string{"work", "meetings"}, []string{"retrieval project"}, []string{"planning"}},
	{"Reviewed Maya's pull request on the indexer", []string{"work"}, []string{"Maya", "indexer"}, []string{"code review"}},
	{"Long run along the river trail", []string{"health"}, nil, []string{"running"}},
	{"Read two chapters of the distributed systems book", []string{"learning"}, nil, []string{"reading"}},
	{"One on one with Dana about the roadmap", []string{"work", "meetings"}, []string{"Dana"}, []string{"meeting"}},
	{"Wrote the incident postmortem for the outage", []string{"work"}, []string{"outage"}, []string{"writing"}},
	{"Groceries and meal prep for the week", []string{"home"}, nil, []string{"cooking"}},
	{"Experimented with embedding models on the laptop", []string{"learning"}, []string{"embedding models"}, []string{"experimenting"}},
	{"Coffee with Maya, talked about the conference", []string{"social"}, []string{"Maya"}, []string{"socializing"}},
	{"Fixed the flaky integration test in CI", []string{"work"}, []string{"CI"}, []string{"debugging"}},
	{"Quarterly budget review with the team", []string{"work", "meetings"}, nil, []string{"meeting"}},
	{"Evening walk and podcast about urban planning", []string{"health"}, nil, []string{"walking"}},
	{"Migrated the billing database to the new schema", []string{"work"}, []string{"billing database"}, []string{"migration"}},
	{"Sketched ideas for the garden layout", []string{"home"}, nil, []string{"planning"}},
}

var entityTypes = map[string]string{
	"Dana":              "person",
	"Maya":              "person",
	"payment gateway":   "project",
	"retrieval project": "project",
	"indexer":           "project",
	"outage":            "event",
	"embedding models":  "topic",
	"CI":                "project",
	"billing database":  "project",
}

func main() {
	flag.Parse()

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))

	db, err := recall.NewDatabase(*dbPath)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	ctx := context.Background()
	rng := rand.New(rand.NewSource(*seed))

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	seeded := 0
	for d := *days; d >= 1; d-- {
		date := today.AddDate(0, 0, -d)
		notes := buildDay(ctx, db, rng, date)
		if err := embedNotes(ctx, db, notes); err != nil {
			slog.Warn("embedding unavailable, seeding without vectors", "err", err)
		}
		if _, err := db.NoteRepository().AddNotes(ctx, notes...); err != nil {
			panic(err)
		}
		seeded += len(notes)
	}

	indexed, err := db.Reindex(ctx)
	if err != nil {
		slog.Warn("keyword index unavailable", "err", err)
	}

	fmt.Printf("Seeded %d notes over %d days (%d indexed)\n", seeded, *days, indexed)
}

// buildDay produces three to five hour notes plus a daily summary.
func buildDay(ctx context.Context, db *recall.Database, rng *rand.Rand, date time.Time) []*core.NoteRecord {
	count := 3 + rng.Intn(3)
	hours := rng.Perm(9)[:count] // offsets from 09:00

	notes := make([]*core.NoteRecord, 0, count+1)
	summaries := make([]string, 0, count)
	for _, h := range hours {
		act := activities[rng.Intn(len(activities))]
		start := date.Add(time.Duration(9+h) * time.Hour)
		note := &core.NoteRecord{
			Type:  core.NoteTypeHour,
			Start: start,
			End:   start.Add(time.Hour - time.Nanosecond),
			Payload: core.NotePayload{
				Summary:    act.summary,
				Categories: act.categories,
				Entities:   act.entities,
				Activities: act.activities,
			},
			Entities: entityRefs(ctx, db, rng, act.entities),
		}
		note.Payload.Normalize()
		notes = append(notes, note)
		summaries = append(summaries, act.summary)
	}

	daily := &core.NoteRecord{
		Type:  core.NoteTypeDay,
		Start: date,
		End:   date.Add(24*time.Hour - time.Nanosecond),
		Payload: core.NotePayload{
			Summary: strings.Join(summaries, ". "),
		},
	}
	daily.Payload.Normalize()
	return append(notes, daily)
}

// entityRefs resolves entity names to stored entities with random-ish
// association strengths.
func entityRefs(ctx context.Context, db *recall.Database, rng *rand.Rand, names []string) []core.EntityRef {
	refs := make([]core.EntityRef, 0, len(names))
	for _, name := range names {
		entityType, ok := entityTypes[name]
		if !ok {
			continue
		}
		entity, err := db.EntityRepository().GetOrCreateEntity(ctx, name, entityType)
		if err != nil {
			slog.Warn("failed to create entity", "name", name, "err", err)
			continue
		}
		refs = append(refs, core.EntityRef{
			EntityId: entity.Id,
			Strength: 0.5 + rng.Float32()*0.5,
		})
	}
	return refs
}

// embedNotes fills in each note's vector from its summary.
func embedNotes(ctx context.Context, db *recall.Database, notes []*core.NoteRecord) error {
	texts := make([]string, len(notes))
	for i, note := range notes {
		texts[i] = note.Payload.Summary
	}
	var vectors [][]float32
	err := ai.RetryWithBackoff(ctx, func() error {
		var embedErr error
		vectors, embedErr = db.Embedder().EmbedTexts(ctx, texts)
		return embedErr
	}, 3, time.Second)
	if err != nil {
		return err
	}
	for i, note := range notes {
		if i < len(vectors) {
			note.Vector = vectors[i]
		}
	}
	return nil
}
