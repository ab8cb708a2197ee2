package model

type Department struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type DepartmentSummary struct {
	Department
	OfficerCount int64 `json:"officer_count"`
	RequestCount int64 `json:"request_count"`
}
