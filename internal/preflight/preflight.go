package preflight

import (
	"previewcache/internal/config"
	"previewcache/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every readiness check for the given config: the transcoder
// binary, access to the cache root and log directory, and free space on the
// cache filesystem.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := make([]Result, 0, 4)
	for _, status := range deps.CheckBinaries([]deps.Requirement{
		{
			Name:        "Transcoder",
			Command:     cfg.Renderer.Binary,
			Description: "Required for rendering preview chunks",
		},
	}) {
		result := Result{Name: status.Name, Passed: status.Available, Detail: status.Detail}
		if status.Available {
			result.Detail = status.Command
		}
		results = append(results, result)
	}

	results = append(results, CheckDirectoryAccess("Cache root", cfg.Paths.CacheRoot))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	results = append(results, CheckFreeSpace("Cache free space", cfg.Paths.CacheRoot))
	return results
}
