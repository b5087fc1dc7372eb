// Package downloader turns project metadata into files on disk: plain
// manifests or full sb3 bundles with all referenced assets.
package downloader

import (
	"context"
	"errors"
	"fmt"

	"github.com/KidsLabDe/ScratchBackendCLI/pkg/config"
	"github.com/KidsLabDe/ScratchBackendCLI/pkg/logger"
	"github.com/KidsLabDe/ScratchBackendCLI/pkg/sb3"
	"github.com/KidsLabDe/ScratchBackendCLI/pkg/scratch"
	"github.com/KidsLabDe/ScratchBackendCLI/pkg/storage"
)

// Downloader orchestrates project downloads through a client and a
// storage manager.
type Downloader struct {
	client  *scratch.Client
	storage *storage.Manager
	cfg     *config.Config
	logger  logger.Logger
}

// New creates a downloader.
func New(client *scratch.Client, store *storage.Manager, cfg *config.Config, log logger.Logger) *Downloader {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Downloader{client: client, storage: store, cfg: cfg, logger: log}
}

// fetchManifest resolves metadata and the raw project.json for a
// project. The safe file base name is derived from the title. A
// metadata failure is not fatal: the manifest is still attempted with
// the session token and the file name falls back to project_<id>.
func (d *Downloader) fetchManifest(ctx context.Context, projectID int64) (*scratch.Project, []byte, error) {
	meta, err := d.client.ProjectMeta(ctx, projectID)
	if err != nil {
		d.logger.WarnWithFields("metadata unavailable, downloading without it", map[string]interface{}{
			"project_id": projectID,
			"error":      err.Error(),
		})
		meta = &scratch.Project{ID: projectID}
	}

	manifest, err := d.client.ProjectManifest(ctx, projectID, meta.ProjectToken)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching manifest for project %d: %w", projectID, err)
	}
	return meta, manifest, nil
}

// DownloadJSON saves only the project manifest as <title>_<id>.json and
// returns the output path.
func (d *Downloader) DownloadJSON(ctx context.Context, projectID int64) (string, error) {
	meta, manifest, err := d.fetchManifest(ctx, projectID)
	if err != nil {
		return "", err
	}

	name := scratch.SafeTitle(meta.Title, projectID) + ".json"
	if err := d.storage.SaveBytes(name, manifest); err != nil {
		return "", err
	}

	d.logger.InfoWithFields("saved project manifest", map[string]interface{}{
		"project_id": projectID,
		"file":       name,
		"size":       len(manifest),
	})
	return d.storage.Path(name), nil
}

// DownloadSB3 saves a full bundle as <title>_<id>.sb3 and returns the
// output path. Assets are fetched concurrently; assets the server no
// longer has are logged and left out of the bundle.
func (d *Downloader) DownloadSB3(ctx context.Context, projectID int64) (string, error) {
	meta, manifest, err := d.fetchManifest(ctx, projectID)
	if err != nil {
		return "", err
	}

	parsed, err := sb3.Parse(manifest)
	if err != nil {
		return "", fmt.Errorf("project %d: %w", projectID, err)
	}
	assetNames := parsed.AssetFiles()

	d.logger.InfoWithFields("downloading project", map[string]interface{}{
		"project_id": projectID,
		"title":      meta.Title,
		"assets":     len(assetNames),
	})

	assets, err := d.fetchAssets(ctx, assetNames)
	if err != nil {
		return "", fmt.Errorf("project %d: %w", projectID, err)
	}

	name := scratch.SafeTitle(meta.Title, projectID) + ".sb3"
	pf, err := d.storage.Create(name)
	if err != nil {
		return "", err
	}
	if err := sb3.WriteBundle(pf, manifest, assets); err != nil {
		pf.Abort()
		return "", fmt.Errorf("writing bundle for project %d: %w", projectID, err)
	}
	if err := pf.Commit(); err != nil {
		return "", err
	}

	d.logger.InfoWithFields("saved project bundle", map[string]interface{}{
		"project_id": projectID,
		"file":       name,
		"assets":     len(assets),
	})
	return d.storage.Path(name), nil
}

// fetchAssets downloads all named assets through the worker pool.
// Individual asset failures are warnings; the bundle simply ships
// without those entries.
func (d *Downloader) fetchAssets(ctx context.Context, names []string) (map[string][]byte, error) {
	assets := make(map[string][]byte, len(names))
	if len(names) == 0 {
		return assets, nil
	}

	pool := NewWorkerPool(ctx, d.cfg.Download.ConcurrentDownloads, d.client, d.logger)
	pool.Start()

	go func() {
		defer pool.Stop()
		for _, name := range names {
			if err := pool.Submit(AssetJob{Name: name}); err != nil {
				return
			}
		}
	}()

	for result := range pool.Results() {
		if result.Error != nil {
			d.logger.WarnWithFields("asset unavailable", map[string]interface{}{
				"asset": result.Job.Name,
				"error": result.Error.Error(),
			})
			continue
		}
		assets[result.Job.Name] = result.Data
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return assets, nil
}

// Result is the outcome of one project in a bulk download.
type Result struct {
	Project scratch.Project
	Path    string
	Skipped bool
	Err     error
}

// Summary aggregates a bulk download run.
type Summary struct {
	Results   []Result
	Succeeded int
	Skipped   int
	Failed    int
}

// DownloadAll downloads every project of the authenticated account.
// Existing files are skipped unless overwriting is enabled, and a
// failing project does not abort the rest of the run.
func (d *Downloader) DownloadAll(ctx context.Context, jsonOnly bool) (*Summary, error) {
	projects, err := d.client.ListProjects(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	summary := &Summary{}
	for _, p := range projects {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		result := Result{Project: p}
		if jsonOnly {
			result.Path, result.Err = d.DownloadJSON(ctx, p.ID)
		} else {
			result.Path, result.Err = d.DownloadSB3(ctx, p.ID)
		}

		switch {
		case errors.Is(result.Err, storage.ErrAlreadyExists):
			result.Skipped = true
			result.Err = nil
			summary.Skipped++
		case result.Err != nil:
			summary.Failed++
			d.logger.ErrorWithFields("project download failed", map[string]interface{}{
				"project_id": p.ID,
				"title":      p.Title,
				"error":      result.Err.Error(),
			})
		default:
			summary.Succeeded++
		}
		summary.Results = append(summary.Results, result)
	}
	return summary, nil
}
