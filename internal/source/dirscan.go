package source

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/rotisserie/eris"
)

// ErrInsufficientHistory is returned when fewer than two artifacts exist.
var ErrInsufficientHistory = eris.New("source: insufficient history: fewer than two artifacts")

// isoMillis is the ISO-8601 instant the producer stamps onto artifact names
// after replacing ':' and '.' with '-', e.g. 2025-11-20T12-03-54-894Z.
const isoMillis = "2006-01-02T15:04:05.000Z"

// Artifact is one dated JSON export in a scan directory.
type Artifact struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

// ListArtifacts returns the artifacts in dir named
// <prefix>_<timestamp>.json, newest first. Directories and files that do
// not match the naming convention are ignored.
func ListArtifacts(dir, prefix string) ([]Artifact, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "source: read dir %s", dir)
	}

	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `_(\d{4}-\d{2}-\d{2})T(\d{2})-(\d{2})-(\d{2})-(\d{3})Z\.json$`)

	var artifacts []Artifact
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := pattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		ts, err := time.Parse(isoMillis, fmt.Sprintf("%sT%s:%s:%s.%sZ", m[1], m[2], m[3], m[4], m[5]))
		if err != nil {
			continue
		}
		artifacts = append(artifacts, Artifact{
			Name:      e.Name(),
			Path:      filepath.Join(dir, e.Name()),
			Timestamp: ts,
		})
	}

	sort.SliceStable(artifacts, func(i, j int) bool {
		return artifacts[i].Timestamp.After(artifacts[j].Timestamp)
	})
	return artifacts, nil
}

// LatestPair returns the two most recent artifacts in dir.
func LatestPair(dir, prefix string) (latest, previous Artifact, err error) {
	artifacts, err := ListArtifacts(dir, prefix)
	if err != nil {
		return Artifact{}, Artifact{}, err
	}
	if len(artifacts) < 2 {
		return Artifact{}, Artifact{}, eris.Wrapf(ErrInsufficientHistory, "found %d in %s", len(artifacts), dir)
	}
	return artifacts[0], artifacts[1], nil
}
