// Command seed provisions a sample schedule with generated seat
// layouts for local development.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/cinereserve/booking-engine/internal/config"
	"github.com/cinereserve/booking-engine/internal/database"
	"github.com/cinereserve/booking-engine/internal/model"
	"github.com/cinereserve/booking-engine/internal/repository"
)

func main() {
	movieID := flag.Uint64("movie", 1, "movie id for the seeded schedule")
	startsIn := flag.Duration("starts-in", 24*time.Hour, "lead time until the seeded show starts")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	ctx := context.Background()
	if err := database.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	startsAt := time.Now().UTC().Add(*startsIn).Truncate(time.Minute)
	schedule := &model.Schedule{
		MovieID:  *movieID,
		StartsAt: startsAt,
		EndsAt:   startsAt.Add(3 * time.Hour),
		Categories: []model.SeatCategory{
			{Label: "prime", Price: 250, Rows: 5, Cols: 10},
			{Label: "classic", Price: 150, Rows: 10, Cols: 12},
		},
	}
	if err := repository.NewScheduleRepo(db).CreateSchedule(ctx, schedule); err != nil {
		log.Fatalf("create schedule: %v", err)
	}

	log.Printf("seeded schedule %d for movie %d starting %s", schedule.ID, schedule.MovieID, startsAt.Format(time.RFC3339))
	for _, cat := range schedule.Categories {
		log.Printf("  category %s: %d seats at %.2f", cat.Label, cat.TotalSeats, cat.Price)
	}
}
