// Package dataset loads the building and trip datasets.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"corner-ranker/internal/city"
)

// ErrNoSource is returned when a source has no location configured.
var ErrNoSource = errors.New("no dataset source configured")

// Source provides the two raw datasets.
type Source interface {
	Buildings(ctx context.Context) ([]city.Building, error)
	Trips(ctx context.Context) ([]city.AgentTrip, error)
}

// Load fetches buildings and trips concurrently. Both must succeed.
func Load(ctx context.Context, src Source) (*city.Dataset, error) {
	ds := &city.Dataset{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := src.Buildings(ctx)
		if err != nil {
			return fmt.Errorf("load buildings: %w", err)
		}
		ds.Buildings = b
		return nil
	})
	g.Go(func() error {
		t, err := src.Trips(ctx)
		if err != nil {
			return fmt.Errorf("load trips: %w", err)
		}
		ds.Trips = t
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ds, nil
}

// URISource reads local files or http(s) URLs. Buildings fall back to
// FallbackBuildingsURI when the primary cannot be fetched or decoded.
type URISource struct {
	BuildingsURI         string
	FallbackBuildingsURI string
	TripsURI             string
	Client               *http.Client
}

func (s URISource) Buildings(ctx context.Context) ([]city.Building, error) {
	var errs []error
	for _, uri := range []string{s.BuildingsURI, s.FallbackBuildingsURI} {
		if uri == "" {
			continue
		}
		data, err := s.fetch(ctx, uri)
		if err == nil {
			var b []city.Building
			if b, err = DecodeBuildings(data); err == nil {
				log.Printf("buildings loaded from %s: %d", uri, len(b))
				return b, nil
			}
		}
		log.Printf("buildings from %s failed: %v", uri, err)
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, ErrNoSource
	}
	return nil, errors.Join(errs...)
}

func (s URISource) Trips(ctx context.Context) ([]city.AgentTrip, error) {
	if s.TripsURI == "" {
		return nil, ErrNoSource
	}
	data, err := s.fetch(ctx, s.TripsURI)
	if err != nil {
		return nil, err
	}
	t, err := DecodeTrips(data)
	if err != nil {
		return nil, err
	}
	log.Printf("trips loaded from %s: %d", s.TripsURI, len(t))
	return t, nil
}

func (s URISource) fetch(ctx context.Context, uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return os.ReadFile(strings.TrimPrefix(uri, "file://"))
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", uri, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: status %d", uri, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
