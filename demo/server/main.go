// Command server exposes the datasets in a workspace directory over
// HTTP as GeoJSON. With -seed it first writes an example FlatGeobuf
// dataset into the directory, so it can be run against an empty
// folder:
//
//	go run ./demo/server -dir /tmp/jeo -seed
//	curl 'http://localhost:8080/datasets'
//	curl 'http://localhost:8080/datasets/cities?bbox=-10,35,30,60'
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/hjanetzek/jeo/data"
	"github.com/hjanetzek/jeo/feature"
	"github.com/hjanetzek/jeo/fgb"
	"github.com/hjanetzek/jeo/geojson"
	"github.com/hjanetzek/jeo/proj"
	"github.com/hjanetzek/jeo/workspace"
)

var cities = []struct {
	name       string
	country    string
	lon, lat   float64
	population int64
	capital    bool
}{
	{"Amsterdam", "Netherlands", 4.9041, 52.3676, 821752, true},
	{"Bogotá", "Colombia", -74.0721, 4.7110, 7181469, true},
	{"Cape Town", "South Africa", 18.4241, -33.9249, 433688, false},
	{"Helsinki", "Finland", 24.9384, 60.1699, 631695, true},
	{"Lagos", "Nigeria", 3.3792, 6.5244, 14862000, false},
	{"Lima", "Peru", -77.0428, -12.0464, 9751717, true},
	{"Melbourne", "Australia", 144.9631, -37.8136, 5078193, false},
	{"Osaka", "Japan", 135.5023, 34.6937, 2691185, false},
	{"Vancouver", "Canada", -123.1207, 49.2827, 662248, false},
	{"Vienna", "Austria", 16.3738, 48.2082, 1897491, true},
}

func main() {
	var (
		dir  = flag.String("dir", ".", "workspace directory")
		addr = flag.String("addr", ":8080", "listen address")
		seed = flag.Bool("seed", false, "write an example cities.fgb into the workspace")
	)
	flag.Parse()

	log, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if *seed {
		path := filepath.Join(*dir, "cities.fgb")
		if err := seedCities(path); err != nil {
			log.Fatal("seed workspace", zap.Error(err))
		}
		log.Info("wrote example dataset", zap.String("path", path))
	}

	ws, err := workspace.OpenDir(*dir, workspace.WithLogger(log))
	if err != nil {
		log.Fatal("open workspace", zap.Error(err))
	}
	defer ws.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := ws.Watch(ctx); err != nil {
		log.Fatal("watch workspace", zap.Error(err))
	}

	http.HandleFunc("/datasets", func(w http.ResponseWriter, r *http.Request) {
		names, err := ws.Names()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(names)
	})
	http.HandleFunc("/datasets/", func(w http.ResponseWriter, r *http.Request) {
		serveDataset(ws, log, w, r)
	})

	server := &http.Server{Addr: *addr}
	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()

	log.Info("serving datasets", zap.String("dir", *dir), zap.String("addr", *addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server", zap.Error(err))
	}
}

// seedCities writes a small spatially indexed FlatGeobuf dataset.
func seedCities(path string) error {
	schema, err := feature.BuildSchema("cities").
		CRS(proj.WGS84()).
		Field("geometry", feature.TypeGeometry).
		Field("name", feature.TypeString).
		Field("country", feature.TypeString).
		Field("population", feature.TypeInt).
		Field("capital", feature.TypeBool).
		Schema()
	if err != nil {
		return err
	}
	fs := make([]*feature.Feature, 0, len(cities))
	for _, c := range cities {
		fs = append(fs, feature.FromList("", []any{
			orb.Point{c.lon, c.lat}, c.name, c.country, c.population, c.capital,
		}, schema))
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return fgb.Write(f, schema, data.Slice(fs), nil)
}

// serveDataset streams one dataset as GeoJSON. An optional
// bbox=minx,miny,maxx,maxy parameter windows the features.
func serveDataset(ws *workspace.Dir, log *zap.Logger, w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/datasets/")
	name = strings.TrimSuffix(name, ".json")
	ds, err := ws.Get(name)
	if errors.Is(err, workspace.ErrUnknownDataset) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	vds, ok := ds.(data.VectorDataset)
	if !ok {
		http.Error(w, "not a vector dataset", http.StatusUnsupportedMediaType)
		return
	}

	q := data.NewQuery()
	if bbox := r.URL.Query().Get("bbox"); bbox != "" {
		b, err := parseBBox(bbox)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		q = q.Within(b)
	}
	c, err := vds.Cursor(r.Context(), q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if err := geojson.Write(w, c); err != nil {
		log.Warn("write dataset", zap.String("name", name), zap.Error(err))
	}
}

func parseBBox(s string) (orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("bbox wants minx,miny,maxx,maxy, got %q", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("bbox value %q: %w", p, err)
		}
		v[i] = f
	}
	return orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}, nil
}
