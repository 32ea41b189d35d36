package main

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/nicktill/tinyslice/pkg/client"
	"github.com/nicktill/tinyslice/pkg/config"
	"github.com/nicktill/tinyslice/pkg/ingest"
	"github.com/nicktill/tinyslice/pkg/storage"
)

var (
	seedServer string
	seedHours  int
	seedEvery  time.Duration
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Send synthetic traffic to a running server",
	Long: `Generate clicks and revenue points labelled by country and device, one
per combination and step, covering the last --hours hours.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringVar(&seedServer, "server", "http://localhost:"+config.DefaultPort, "Server base URL")
	seedCmd.Flags().IntVar(&seedHours, "hours", 24, "How many hours of history to generate")
	seedCmd.Flags().DurationVar(&seedEvery, "step", 5*time.Minute, "Time between generated points")
}

var (
	seedCountries = []string{"US", "FR", "DE", "JP", "BR"}
	seedDevices   = []string{"ios", "android", "web"}
)

// syntheticPoints generates a deterministic traffic pattern: busier in the
// afternoon, US heaviest, web ahead of mobile.
func syntheticPoints(end time.Time, hours int, step time.Duration, rng *rand.Rand) []storage.Point {
	start := end.Add(-time.Duration(hours) * time.Hour).Truncate(step)

	var points []storage.Point
	for ts := start; ts.Before(end); ts = ts.Add(step) {
		load := 1 + float64(ts.Hour()%12)/4
		for ci, country := range seedCountries {
			for di, device := range seedDevices {
				labels := map[string]string{"country": country, "device": device}
				clicks := float64(int(load*float64(len(seedCountries)-ci)*float64(di+1)) + rng.Intn(5))
				points = append(points,
					storage.Point{Name: "clicks", Value: clicks, Labels: labels, Timestamp: ts},
					storage.Point{Name: "revenue", Value: float64(int(clicks*rng.Float64()*100)) / 100, Labels: labels, Timestamp: ts},
				)
			}
		}
	}
	return points
}

func runSeed(cmd *cobra.Command, args []string) error {
	points := syntheticPoints(time.Now().UTC(), seedHours, seedEvery, rand.New(rand.NewSource(1)))
	log.Printf("🚦 Sending %d points to %s...", len(points), seedServer)

	b := client.NewBatcher(client.New(seedServer), client.BatchConfig{
		MaxBatchSize: ingest.MaxPointsPerRequest,
		FlushEvery:   time.Second,
	})
	b.Start(context.Background())
	for _, p := range points {
		b.Add(p)
	}
	b.Stop()

	log.Printf("✅ Seeded %d points (%d failed)", b.Sent(), b.Failed())
	return nil
}
