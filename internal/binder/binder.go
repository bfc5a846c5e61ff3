// Package binder scans a source tree and groups media files into units of
// master, optional sidecar, and optional paired live clip.
package binder

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"log/slog"

	"snapsort/internal/config"
	"snapsort/internal/logging"
)

// Unit is one bindable media group discovered during a scan. Master is
// always set; Sidecar and Clip are empty when nothing claimed the master.
type Unit struct {
	Master  string
	Sidecar string
	Clip    string
}

// ScanResult carries everything a single traversal produced.
type ScanResult struct {
	Units          []Unit
	OrphanSidecars []string
	Unrecognized   []string
}

// Binder classifies files by extension and resolves sidecar and live-clip
// claims. It never moves anything.
type Binder struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New constructs a Binder for the given configuration.
func New(cfg *config.Config, logger *slog.Logger) *Binder {
	return &Binder{cfg: cfg, logger: logging.NewComponentLogger(logger, "binder")}
}

// groupKey identifies a directory+stem pair, the unit of companionship.
type groupKey struct {
	dir  string
	stem string
}

// Scan walks root once and returns bound units plus the leftovers. Hidden
// entries and symlinks are skipped; per-entry stat errors drop only that
// entry.
func (b *Binder) Scan(root string) (*ScanResult, error) {
	mediaExts := b.cfg.MediaExtensions()
	sidecarExt := strings.ToLower(b.cfg.Extensions.Sidecar)
	clipExt := ""
	if b.cfg.LivePairing.Enabled {
		clipExt = strings.ToLower(b.cfg.LivePairing.ClipExt)
	}

	masters := make(map[groupKey][]string)
	clips := make(map[groupKey]string)
	var sidecars []string
	var unrecognized []string

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") {
			if d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		key := groupKey{dir: filepath.Dir(path), stem: stem(name)}
		switch ext := strings.ToLower(filepath.Ext(name)); {
		case ext == sidecarExt:
			sidecars = append(sidecars, path)
		case clipExt != "" && ext == clipExt:
			clips[key] = path
		default:
			if _, ok := mediaExts[ext]; ok {
				masters[key] = append(masters[key], path)
			} else {
				unrecognized = append(unrecognized, path)
			}
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	clipFor := b.bindClips(masters, clips)
	sidecarFor, orphans := b.bindSidecars(masters, sidecars)

	result := &ScanResult{
		OrphanSidecars: orphans,
		Unrecognized:   unrecognized,
	}
	keys := make([]groupKey, 0, len(masters))
	for key := range masters {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].dir != keys[j].dir {
			return keys[i].dir < keys[j].dir
		}
		return keys[i].stem < keys[j].stem
	})
	for _, key := range keys {
		for _, master := range masters[key] {
			result.Units = append(result.Units, Unit{
				Master:  master,
				Sidecar: sidecarFor[master],
				Clip:    clipFor[master],
			})
		}
	}

	if b.logger != nil {
		b.logger.Info("scan complete",
			logging.Int("units", len(result.Units)),
			logging.Int("orphan_sidecars", len(result.OrphanSidecars)),
			logging.Int("unrecognized", len(result.Unrecognized)))
	}
	return result, nil
}

// bindClips attaches each clip to the first master in its directory+stem
// group whose extension can carry a live companion. Clips with no qualifying
// master rejoin the master pool as ordinary videos.
func (b *Binder) bindClips(masters map[groupKey][]string, clips map[groupKey]string) map[string]string {
	clipFor := make(map[string]string)
	if !b.cfg.LivePairing.Enabled {
		return clipFor
	}
	pairable := b.cfg.PairableMasterExtensions()
	for key, clip := range clips {
		bound := false
		for _, master := range masters[key] {
			if _, ok := pairable[strings.ToLower(filepath.Ext(master))]; ok {
				clipFor[master] = clip
				bound = true
				break
			}
		}
		if !bound {
			masters[key] = append(masters[key], clip)
		}
	}
	return clipFor
}

// bindSidecars resolves each sidecar against the master pool for its
// directory+stem. Sidecars are visited in path order so multi-claim ties
// resolve the same way every run. A master keeps only its first sidecar.
func (b *Binder) bindSidecars(masters map[groupKey][]string, sidecars []string) (map[string]string, []string) {
	sort.Strings(sidecars)

	sidecarFor := make(map[string]string)
	var orphans []string
	for _, sidecar := range sidecars {
		key := groupKey{dir: filepath.Dir(sidecar), stem: stem(filepath.Base(sidecar))}
		candidates := masters[key]
		var master string
		switch len(candidates) {
		case 0:
			orphans = append(orphans, sidecar)
			continue
		case 1:
			master = candidates[0]
		default:
			master = b.chooseMaster(candidates)
		}
		if _, claimed := sidecarFor[master]; claimed {
			if b.logger != nil {
				b.logger.Warn("master already has a sidecar",
					logging.String("master", master),
					logging.String("dropped_sidecar", sidecar))
			}
			continue
		}
		sidecarFor[master] = sidecar
	}
	return sidecarFor, orphans
}

// chooseMaster picks the best sidecar owner among same-stem candidates:
// images rank before videos before raw formats, larger file wins ties.
func (b *Binder) chooseMaster(candidates []string) string {
	rank := b.extensionRanks()

	best := candidates[0]
	bestRank, bestSize := candidateKey(best, rank)
	for _, candidate := range candidates[1:] {
		r, size := candidateKey(candidate, rank)
		if r < bestRank || (r == bestRank && size > bestSize) {
			best, bestRank, bestSize = candidate, r, size
		}
	}
	return best
}

func (b *Binder) extensionRanks() map[string]int {
	rank := make(map[string]int)
	next := 0
	for _, group := range [][]string{b.cfg.Extensions.Images, b.cfg.Extensions.Videos, b.cfg.Extensions.Raw} {
		for _, ext := range group {
			ext = strings.ToLower(ext)
			if _, ok := rank[ext]; !ok {
				rank[ext] = next
				next++
			}
		}
	}
	return rank
}

func candidateKey(path string, rank map[string]int) (int, int64) {
	r, ok := rank[strings.ToLower(filepath.Ext(path))]
	if !ok {
		r = len(rank) + 1
	}
	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}
	return r, size
}

func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
