package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"time"

	"github.com/joho/godotenv"

	"tweestoelen/internal/app"
	"tweestoelen/internal/config"
	"tweestoelen/internal/domain/photo"
	"tweestoelen/internal/logger"
)

type sample struct {
	name     string
	location string
	lat, lng float64
	date     string
	tint     color.RGBA
}

var samples = []sample{
	{"strand.png", "Scheveningen", 52.1107, 4.2754, "2024-06-21", color.RGBA{236, 214, 160, 255}},
	{"bos.png", "Veluwe", 52.1326, 5.8036, "2024-09-02", color.RGBA{64, 112, 58, 255}},
	{"gracht.png", "Amsterdam", 52.3676, 4.9041, "2025-01-11", color.RGBA{58, 88, 130, 255}},
}

// seed fills a development backend with a few generated photos.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.IsProdLike() {
		log.Fatal("seed is not allowed in production")
	}
	l := logger.Init(cfg.AppEnv)

	backend, err := app.Connect(cfg, l, nil)
	if err != nil {
		log.Fatalf("connect failed: %v", err)
	}
	svc := backend.Service

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := svc.EnsureBucket(ctx); err != nil {
		log.Fatalf("bucket: %v", err)
	}

	for i, s := range samples {
		data, err := render(s.tint, i)
		if err != nil {
			log.Fatalf("render %s: %v", s.name, err)
		}
		p, err := svc.Upload(ctx, s.name, data)
		if err != nil {
			log.Fatalf("upload %s: %v", s.name, err)
		}
		date, err := photo.ParsePhotoDate(s.date)
		if err != nil {
			log.Fatalf("date %s: %v", s.name, err)
		}
		if _, err := svc.UpdateLocationDate(ctx, p.ID, s.location, date); err != nil {
			log.Fatalf("date %s: %v", s.name, err)
		}
		// coordinates last, UpdateLocationDate clears them
		if _, err := svc.UpdateLocation(ctx, p.ID, s.lat, s.lng, s.location); err != nil {
			log.Fatalf("location %s: %v", s.name, err)
		}
		if _, err := svc.UpdateDescription(ctx, p.ID, fmt.Sprintf("Voorbeeldfoto %d", i+1)); err != nil {
			log.Fatalf("description %s: %v", s.name, err)
		}
		log.Printf("seeded photo id=%d url=%s", p.ID, p.ImageURL)
	}
	log.Printf("seed completed: %d photos", len(samples))
}

func render(tint color.RGBA, stripe int) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			c := tint
			if (x/8)%3 == stripe%3 {
				c = color.RGBA{255, 255, 255, 255}
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
