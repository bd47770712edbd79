package domain

import "time"

// ImageFile is a candidate image discovered during directory enumeration.
type ImageFile struct {
	Path    string
	ModTime time.Time
	Size    int64
}

// Hit is a single search result: an indexed image path and its similarity
// to the query. Score is the inner product of two unit vectors, so it lies
// in [-1, 1] with 1 meaning identical direction.
type Hit struct {
	Path  string  `json:"path"`
	Score float64 `json:"score"`
}

// BuildSummary reports the outcome of one index build.
// Indexed + Failed equals the number of candidate files enumerated.
type BuildSummary struct {
	Indexed int `json:"indexed"`
	Failed  int `json:"failed"`
}

// IndexStats describes the currently loaded index.
type IndexStats struct {
	Indexed   bool   `json:"indexed"`
	Count     int    `json:"count"`
	Dimension int    `json:"dimension"`
	Model     string `json:"model,omitempty"`
	BuildID   string `json:"build_id,omitempty"`
	BuiltAt   string `json:"built_at,omitempty"`
}
