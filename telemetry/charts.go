package telemetry

import "h2oclear/api/models"

// Series is one labelled data set for the client's charting library.
type Series struct {
	Labels []string `json:"labels"`
	Data   []int    `json:"data"`
}

// Charts backs the three dashboard widgets: line, bar and donut.
type Charts struct {
	TimeSeries       Series `json:"timeSeries"`
	SizeDistribution Series `json:"sizeDistribution"`
	MaterialTypes    Series `json:"materialTypes"`
}

var seriesLabels = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun"}

// BuildCharts combines the live series with the fixed distributions.
func BuildCharts(series []int) Charts {
	materials := make([]string, len(models.MaterialTypes))
	for i, m := range models.MaterialTypes {
		materials[i] = string(m)
	}
	return Charts{
		TimeSeries: Series{
			Labels: append([]string(nil), seriesLabels...),
			Data:   append([]int(nil), series...),
		},
		SizeDistribution: Series{
			Labels: []string{"10-25μm", "25-50μm", "50-75μm", "75-100μm"},
			Data:   []int{34, 45, 67, 23},
		},
		MaterialTypes: Series{
			Labels: materials,
			Data:   []int{127, 89, 234, 156, 98},
		},
	}
}
