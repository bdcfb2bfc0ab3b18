package types

// ExtractedFields is the entity-extraction result for one transcript.
// Every list field is always non-nil after normalization; field names are
// part of the stored record contract and must not change.
type ExtractedFields struct {
	AgentNames       []string `json:"agent_names"`
	PatientNames     []string `json:"patient_names"`
	TestCenters      []string `json:"test_centers"`
	TestsMentioned   []string `json:"tests_mentioned"`
	DoctorsMentioned []string `json:"doctors_mentioned"`
	ContactInfo      []string `json:"contact_info"`
	AppointmentDates []string `json:"appointment_dates"`
	Departments      []string `json:"departments"`
	Sentiment        string   `json:"sentiment"`
	Error            string   `json:"error,omitempty"`
}

// EmptyFields returns an ExtractedFields with every list present but empty,
// optionally carrying the error that forced the degraded result.
func EmptyFields(errMessage string) ExtractedFields {
	return ExtractedFields{
		AgentNames:       []string{},
		PatientNames:     []string{},
		TestCenters:      []string{},
		TestsMentioned:   []string{},
		DoctorsMentioned: []string{},
		ContactInfo:      []string{},
		AppointmentDates: []string{},
		Departments:      []string{},
		Error:            errMessage,
	}
}
