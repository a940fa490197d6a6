// sceneconv moves YAML scene files in and out of the PostgreSQL scene store
// and checks scene and render layout files offline.
//
// Usage:
//
//	go run ./cmd/sceneconv <command> [flags]
//
// Commands: import, export, list, history, check, layouts
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/acidgo/acid/internal/config"
	"github.com/acidgo/acid/internal/data"
	"github.com/acidgo/acid/internal/persist"
	"github.com/acidgo/acid/internal/renderer"
	"github.com/acidgo/acid/internal/scenes"
)

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: sceneconv <command> [flags]

Commands:
  import   -in <file|dir>           store every scene file
  export   -name <scene> -out <file> write a stored scene to YAML
  list                               list stored scenes
  history  -name <scene> [-limit n]  list saved revisions
  check    -in <file|dir>           decode scene files without storing
  layouts  -in <renderpasses.yaml>  compile every render layout headless

Database commands read [database] from $ACID_CONFIG (default config/engine.toml).`)
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		printUsage()
		return
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	in := fs.String("in", filepath.Join("data", "scenes"), "scene file or directory")
	name := fs.String("name", "", "scene name")
	out := fs.String("out", "", "output file")
	limit := fs.Int("limit", 10, "maximum revisions to list")
	_ = fs.Parse(os.Args[2:])

	var err error
	switch cmd {
	case "check":
		err = checkScenes(*in)
	case "layouts":
		err = checkLayouts(*in)
	case "import", "export", "list", "history":
		err = withStore(func(ctx context.Context, repo *persist.SceneRepo, store *persist.SceneStore) error {
			switch cmd {
			case "import":
				return importScenes(ctx, store, *in)
			case "export":
				return exportScene(ctx, store, *name, *out)
			case "list":
				return listScenes(ctx, repo)
			default:
				return sceneHistory(ctx, repo, *name, *limit)
			}
		})
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func withStore(fn func(context.Context, *persist.SceneRepo, *persist.SceneStore) error) error {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	log := zap.NewNop()
	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()
	if _, err := persist.RunMigrations(ctx, db.Pool, log); err != nil {
		return err
	}
	repo := persist.NewSceneRepo(db)
	return fn(ctx, repo, persist.NewSceneStore(repo, nil, log))
}

// sceneFiles expands path to the YAML files it names, sorted.
func sceneFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		files = append(files, filepath.Join(path, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// sceneSummary is what check reports per file.
type sceneSummary struct {
	File     string
	Name     string
	Entities int
}

func decodeScenes(path string) ([]sceneSummary, error) {
	files, err := sceneFiles(path)
	if err != nil {
		return nil, err
	}
	out := make([]sceneSummary, 0, len(files))
	for _, f := range files {
		s, err := scenes.LoadFile(f, nil, zap.NewNop())
		if err != nil {
			return out, err
		}
		out = append(out, sceneSummary{File: f, Name: s.Name(), Entities: s.Len()})
		_ = s.Close()
	}
	return out, nil
}

func checkScenes(path string) error {
	summaries, err := decodeScenes(path)
	for _, s := range summaries {
		fmt.Printf("  ok  %-32s %-20s %d entities\n", s.File, s.Name, s.Entities)
	}
	return err
}

func importScenes(ctx context.Context, store *persist.SceneStore, path string) error {
	files, err := sceneFiles(path)
	if err != nil {
		return err
	}
	for _, f := range files {
		s, err := scenes.LoadFile(f, nil, zap.NewNop())
		if err != nil {
			return err
		}
		rev, err := store.SaveScene(ctx, s)
		_ = s.Close()
		if err != nil {
			return err
		}
		fmt.Printf("Imported %s as %q revision %d\n", f, s.Name(), rev)
	}
	fmt.Printf("Done! %d scenes\n", len(files))
	return nil
}

func exportScene(ctx context.Context, store *persist.SceneStore, name, out string) error {
	if name == "" {
		return fmt.Errorf("export needs -name")
	}
	if out == "" {
		out = name + ".yaml"
	}
	s, err := store.LoadScene(ctx, name)
	if err != nil {
		return err
	}
	if s == nil {
		return fmt.Errorf("scene %q is not stored", name)
	}
	defer s.Close()
	if err := s.SaveFile(out); err != nil {
		return err
	}
	fmt.Printf("Exported %q (%d entities) to %s\n", name, s.Len(), out)
	return nil
}

func listScenes(ctx context.Context, repo *persist.SceneRepo) error {
	rows, err := repo.List(ctx)
	if err != nil {
		return err
	}
	for _, r := range rows {
		fmt.Printf("  %-24s rev %-4d %5d entities  %s\n", r.Name, r.Revision, r.Entities, r.UpdatedAt.Format(time.RFC3339))
	}
	fmt.Printf("%d scenes\n", len(rows))
	return nil
}

func sceneHistory(ctx context.Context, repo *persist.SceneRepo, name string, limit int) error {
	if name == "" {
		return fmt.Errorf("history needs -name")
	}
	revs, err := repo.History(ctx, name, limit)
	if err != nil {
		return err
	}
	for _, r := range revs {
		fmt.Printf("  rev %-4d %s  %d bytes\n", r.Revision, r.SavedAt.Format(time.RFC3339), len(r.Document))
	}
	return nil
}

// compileLayouts builds every layout of a render layout file against a
// headless backend and returns the number of passes per layout.
func compileLayouts(path string, surface renderer.Surface) (map[string]int, error) {
	table, err := data.LoadLayoutTable(path)
	if err != nil {
		return nil, err
	}
	result := make(map[string]int, table.Count())
	for _, name := range table.Names() {
		layout := table.Get(name)
		creates, err := layout.Creates()
		if err != nil {
			return result, err
		}
		pipelines, err := layout.PipelineCreates()
		if err != nil {
			return result, err
		}
		r := renderer.New(renderer.NewHeadlessBackend(), surface, zap.NewNop())
		if err := r.SetManager(staticManager(creates)); err != nil {
			return result, fmt.Errorf("layout %q: %w", name, err)
		}
		for _, p := range pipelines {
			if _, err := r.AddPipeline(p); err != nil {
				_ = r.Close()
				return result, fmt.Errorf("layout %q pipeline %q: %w", name, p.Name, err)
			}
		}
		result[name] = r.RenderpassCount()
		_ = r.Close()
	}
	return result, nil
}

type staticManager []renderer.RenderpassCreate

func (m staticManager) RenderpassCreates() []renderer.RenderpassCreate { return m }
func (m staticManager) Start(*renderer.Renderer) error                 { return nil }
func (m staticManager) Update(time.Duration) error                     { return nil }

func checkLayouts(path string) error {
	if path == filepath.Join("data", "scenes") {
		path = filepath.Join("data", "yaml", "renderpasses.yaml")
	}
	counts, err := compileLayouts(path, renderer.Surface{
		Extent:        renderer.Extent{Width: 1080, Height: 720},
		SurfaceFormat: renderer.FormatB8G8R8A8Unorm,
		DepthFormat:   renderer.FormatD32Sfloat,
		Samples:       1,
	})
	names := make([]string, 0, len(counts))
	for n := range counts {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Printf("  ok  %-20s %d render passes\n", n, counts[n])
	}
	return err
}
