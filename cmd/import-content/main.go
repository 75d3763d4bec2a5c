// Package main provides a CLI tool that seeds the catalog tables from
// YAML content definitions.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/metagrid-dev/metagrid/internal/config"
	"github.com/metagrid-dev/metagrid/internal/content"
	"github.com/metagrid-dev/metagrid/internal/game/space"
	"github.com/metagrid-dev/metagrid/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	contentPath := flag.String("content", "", "path to catalog YAML file (required)")
	flag.Parse()

	if *contentPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cat, err := content.Load(*contentPath)
	if err != nil {
		log.Fatalf("loading content: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("connecting to database: %v", err)
	}
	defer pool.Close()

	catalog := postgres.NewCatalogRepository(pool.DB())

	for _, a := range cat.Avatars {
		if _, err := catalog.CreateAvatar(ctx, a.Name, a.ImageURL); err != nil {
			log.Fatalf("creating avatar %q: %v", a.Name, err)
		}
	}

	elementIDs := make(map[string]string, len(cat.Elements))
	for _, e := range cat.Elements {
		id, err := catalog.CreateElement(ctx, postgres.Element{
			ImageURL: e.ImageURL,
			Width:    e.Width,
			Height:   e.Height,
			Static:   e.Static,
		})
		if err != nil {
			log.Fatalf("creating element %q: %v", e.Key, err)
		}
		elementIDs[e.Key] = id
	}

	for _, m := range cat.Maps {
		dim, err := space.ParseDimensions(m.Dimensions)
		if err != nil {
			log.Fatalf("map %q: %v", m.Name, err)
		}
		placements := make([]postgres.MapElement, 0, len(m.Elements))
		for _, p := range m.Elements {
			placements = append(placements, postgres.MapElement{
				ElementID: elementIDs[p.Element],
				X:         p.X,
				Y:         p.Y,
			})
		}
		_, err = catalog.CreateMap(ctx, postgres.MapTemplate{
			Name:      m.Name,
			Thumbnail: m.Thumbnail,
			Width:     dim.Width,
			Height:    dim.Height,
		}, placements)
		if err != nil {
			log.Fatalf("creating map %q: %v", m.Name, err)
		}
	}

	fmt.Printf("imported %d avatars, %d elements, %d maps in %s\n",
		len(cat.Avatars), len(cat.Elements), len(cat.Maps),
		time.Since(start).Round(time.Millisecond))
}
