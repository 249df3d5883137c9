package chunker

// Canonical sweep values for the ingestion grid.
var (
	DefaultChunkSizes      = []int{500, 1000, 1500}
	DefaultOverlapPercents = []int{10, 15}
	DefaultPercentiles     = []float64{50, 75, 90, 97.5}
)

// Grid crosses the recursive and semantic parameter axes into the full list
// of chunking configurations, recursive combinations first.
func Grid(sizes, overlaps []int, percentiles []float64, minChunkSize int) []Params {
	grid := make([]Params, 0, len(sizes)*len(overlaps)+len(percentiles))

	for _, size := range sizes {
		for _, overlap := range overlaps {
			grid = append(grid, Params{
				Method:         MethodRecursive,
				ChunkSize:      size,
				OverlapPercent: overlap,
			})
		}
	}
	for _, percentile := range percentiles {
		grid = append(grid, Params{
			Method:       MethodSemantic,
			Percentile:   percentile,
			MinChunkSize: minChunkSize,
		})
	}

	return grid
}

// DefaultGrid returns the canonical ingestion grid.
func DefaultGrid() []Params {
	return Grid(DefaultChunkSizes, DefaultOverlapPercents, DefaultPercentiles, DefaultMinChunkSize)
}
