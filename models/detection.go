package models

// MaterialType is a plastic polymer code.
type MaterialType string

const (
	MaterialPET MaterialType = "PET"
	MaterialPE  MaterialType = "PE"
	MaterialPP  MaterialType = "PP"
	MaterialPVC MaterialType = "PVC"
	MaterialPS  MaterialType = "PS"
)

// MaterialTypes lists every material in display order.
var MaterialTypes = []MaterialType{MaterialPET, MaterialPE, MaterialPP, MaterialPVC, MaterialPS}

// Detection is one simulated microplastic observation.
type Detection struct {
	Location string       `json:"location"`
	Date     string       `json:"date"` // YYYY-MM-DD
	Size     int          `json:"size"` // micrometers
	Type     MaterialType `json:"type"`
	Count    int          `json:"count"`
}

// DetectionFilter is bound from the dashboard filter query string.
type DetectionFilter struct {
	Location string `form:"location"`
	Size     string `form:"size"` // "25-50 μm"
	Date     string `form:"date"` // YYYY-MM-DD lower bound
}

type CountsQuery struct {
	Interval string `form:"interval"`
	Start    string `form:"start"`
	End      string `form:"end"`
	Type     string `form:"type"`
}
