package records

// Seed is the initial content loaded into a Store.
type Seed struct {
	Patients     []Patient
	Appointments []Appointment
	Invoices     []Invoice
}

// DefaultSeed returns the demo office used by the console.
func DefaultSeed() Seed {
	return Seed{
		Patients: []Patient{
			{
				ID:                    "P001",
				Name:                  "John Doe",
				DOB:                   "1980-05-15",
				Gender:                GenderMale,
				Contact:               "555-0101",
				InsuranceProvider:     "HealthGuard",
				InsurancePolicyNumber: "HG-998877",
				MedicalHistory: []MedicalNote{
					{ID: "N1", Date: "2023-10-10", Type: NoteConsultation, Content: "Patient reported mild hypertension.", Doctor: "Dr. Smith"},
				},
			},
			{
				ID:                    "P002",
				Name:                  "Jane Smith",
				DOB:                   "1992-08-22",
				Gender:                GenderFemale,
				Contact:               "555-0202",
				InsuranceProvider:     "MediCare+",
				InsurancePolicyNumber: "MC-112233",
				MedicalHistory:        []MedicalNote{},
			},
		},
		Appointments: []Appointment{
			{ID: "A001", PatientID: "P001", PatientName: "John Doe", Date: "2023-10-25", Time: "10:00", Type: "Checkup", Doctor: "Dr. Smith", Status: AppointmentCompleted},
			{ID: "A002", PatientID: "P002", PatientName: "Jane Smith", Date: "2023-11-15", Time: "14:30", Type: "Consultation", Doctor: "Dr. Jones", Status: AppointmentScheduled},
		},
		Invoices: []Invoice{
			{ID: "I001", PatientID: "P001", PatientName: "John Doe", Amount: 150.00, Status: InvoicePaid, Description: "General Consultation", Date: "2023-10-25"},
			{ID: "I002", PatientID: "P002", PatientName: "Jane Smith", Amount: 200.00, Status: InvoicePending, Description: "Specialist Visit", Date: "2023-11-15"},
		},
	}
}

// PatientsOnly keeps the seed patients and drops appointments and invoices.
func (s Seed) PatientsOnly() Seed {
	return Seed{Patients: s.Patients}
}
