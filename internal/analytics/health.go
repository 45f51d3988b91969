package analytics

import (
	"time"

	"github.com/starford/memdash/internal/models"
)

const day = 24 * time.Hour

// StaleFile is a note that has not been modified within the stale window.
type StaleFile struct {
	Name            string `json:"name"`
	Path            string `json:"path"`
	DaysSinceUpdate int    `json:"days_since_update"`
}

// HealthReport summarizes corpus activity. It is computed from file
// metadata only.
type HealthReport struct {
	Heatmap           map[string]int64 `json:"heatmap"`
	StaleFiles        []StaleFile      `json:"stale_files"`
	CoverageGaps      []string         `json:"coverage_gaps"`
	MemoryMDSize      int64            `json:"memory_md_size"`
	DailyTotalSize    int64            `json:"daily_total_size"`
	DistillationRatio float64          `json:"distillation_ratio"`
	FileCount         int              `json:"file_count"`
}

// AnalyzeHealth builds the activity heatmap, stale list, coverage gaps, and
// distillation ratio as of now.
func (a *Analyzer) AnalyzeHealth(metas []models.NoteMetadata, now time.Time) HealthReport {
	r := HealthReport{
		Heatmap:    make(map[string]int64),
		StaleFiles: []StaleFile{},
		FileCount:  len(metas),
	}

	for _, m := range metas {
		if date, ok := models.DailyDate(a.dailyDir, m.Path); ok {
			r.Heatmap[date] = m.Size
		}
		if m.Path == a.longTermNote {
			r.MemoryMDSize = m.Size
		}
		if age := now.Sub(m.UpdatedAt); age > a.staleAfter {
			r.StaleFiles = append(r.StaleFiles, StaleFile{
				Name:            m.Name,
				Path:            m.Path,
				DaysSinceUpdate: int(age / day),
			})
		}
	}

	for _, size := range r.Heatmap {
		r.DailyTotalSize += size
	}
	if r.DailyTotalSize > 0 {
		r.DistillationRatio = float64(r.MemoryMDSize) / float64(r.DailyTotalSize)
	}

	r.CoverageGaps = coverageGaps(r.Heatmap, now, a.coverageDays)
	return r
}

// coverageGaps lists the UTC dates among the last n days, newest first,
// that have no daily note.
func coverageGaps(heatmap map[string]int64, now time.Time, n int) []string {
	gaps := []string{}
	for i := 0; i < n; i++ {
		ds := now.Add(-time.Duration(i) * day).UTC().Format(time.DateOnly)
		if _, ok := heatmap[ds]; !ok {
			gaps = append(gaps, ds)
		}
	}
	return gaps
}
