package model

// FilterSet holds the structured filters derived from a question.
// Every field is optional and an empty set means no filter could be derived.
type FilterSet struct {
	WardNo         string   `json:"ward_no,omitempty"`
	WardName       string   `json:"ward_name,omitempty"`
	ProjectType    string   `json:"project_type,omitempty"`
	Status         string   `json:"status,omitempty"`
	CorporatorName string   `json:"corporator_name,omitempty"`
	ContractorName string   `json:"contractor_name,omitempty"`
	ProjectName    string   `json:"project_name,omitempty"`
	BodyText       string   `json:"body_text,omitempty"`
	Keywords       []string `json:"keywords,omitempty"`
}

// HasStructured reports whether any field other than Keywords is set
func (f FilterSet) HasStructured() bool {
	return f.WardNo != "" || f.WardName != "" || f.ProjectType != "" ||
		f.Status != "" || f.CorporatorName != "" || f.ContractorName != "" ||
		f.ProjectName != "" || f.BodyText != ""
}

// IsEmpty reports whether nothing at all was derived
func (f FilterSet) IsEmpty() bool {
	return !f.HasStructured() && len(f.Keywords) == 0
}

// Query converts the filter set into store predicates scoped to a city.
// ProjectName and BodyText are the keyword predicates of the structured
// step; Keywords stay out so that the question's own words cannot narrow a
// structured match. They drive ranking and the keyword steps instead.
func (f FilterSet) Query(cityID int64) ProjectQuery {
	return ProjectQuery{
		CityID:      cityID,
		WardNo:      f.WardNo,
		WardName:    f.WardName,
		ProjectType: f.ProjectType,
		Status:      f.Status,
		Corporator:  f.CorporatorName,
		Contractor:  f.ContractorName,
		ProjectName: f.ProjectName,
		BodyText:    f.BodyText,
	}
}

// Overrides are caller-supplied filters that win over anything inferred
type Overrides struct {
	WardNo         string `json:"ward_no"`
	WardName       string `json:"ward_name"`
	ProjectType    string `json:"project_type"`
	Status         string `json:"status"`
	CorporatorName string `json:"corporator_name"`
	ContractorName string `json:"contractor_name"`
}

// Apply copies every non-empty override onto f
func (o Overrides) Apply(f *FilterSet) {
	if o.WardNo != "" {
		f.WardNo = o.WardNo
	}
	if o.WardName != "" {
		f.WardName = o.WardName
	}
	if o.ProjectType != "" {
		f.ProjectType = o.ProjectType
	}
	if o.Status != "" {
		f.Status = o.Status
	}
	if o.CorporatorName != "" {
		f.CorporatorName = o.CorporatorName
	}
	if o.ContractorName != "" {
		f.ContractorName = o.ContractorName
	}
}
