package preflight

import (
	"context"

	"tunegrab/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the filesystem and binary checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir),
		CheckDirectoryAccess("Library directory", cfg.Paths.LibraryDir),
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckSameFilesystem(cfg.Paths.StagingDir, cfg.Paths.LibraryDir),
	}
	for _, status := range CheckSystemDeps(ctx, cfg) {
		detail := status.Command
		switch {
		case !status.Available:
			detail = status.Detail
		case status.Version != "":
			detail = status.Command + " (" + status.Version + ")"
		}
		results = append(results, Result{
			Name:   status.Name,
			Passed: status.Available || status.Optional,
			Detail: detail,
		})
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
