package records

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

type NoteType string

const (
	NoteConsultation NoteType = "Consultation"
	NoteLabResult    NoteType = "Lab Result"
	NoteSummary      NoteType = "Summary"
)

type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "Scheduled"
	AppointmentCompleted AppointmentStatus = "Completed"
	AppointmentCancelled AppointmentStatus = "Cancelled"
)

type InvoiceStatus string

const (
	InvoicePending InvoiceStatus = "Pending"
	InvoicePaid    InvoiceStatus = "Paid"
	InvoiceOverdue InvoiceStatus = "Overdue"
)

// AssistantAuthor is recorded as the doctor on notes written through the assistant.
const AssistantAuthor = "AI Assistant"

// InsurancePending fills insurance fields until registration is completed at the desk.
const InsurancePending = "Pending"

type Patient struct {
	ID                    string        `json:"id"`
	Name                  string        `json:"name"`
	DOB                   string        `json:"dob"`
	Gender                Gender        `json:"gender"`
	Contact               string        `json:"contact"`
	InsuranceProvider     string        `json:"insuranceProvider"`
	InsurancePolicyNumber string        `json:"insurancePolicyNumber"`
	MedicalHistory        []MedicalNote `json:"medicalHistory"`
}

// MedicalNote entries are kept in entry order, which is not necessarily visit order.
type MedicalNote struct {
	ID      string   `json:"id"`
	Date    string   `json:"date"`
	Type    NoteType `json:"type"`
	Content string   `json:"content"`
	Doctor  string   `json:"doctor"`
}

// Appointment.PatientName is captured at creation and never re-synced.
type Appointment struct {
	ID          string            `json:"id"`
	PatientID   string            `json:"patientId"`
	PatientName string            `json:"patientName"`
	Date        string            `json:"date"`
	Time        string            `json:"time"`
	Type        string            `json:"type"`
	Doctor      string            `json:"doctor"`
	Status      AppointmentStatus `json:"status"`
}

type Invoice struct {
	ID          string        `json:"id"`
	PatientID   string        `json:"patientId"`
	PatientName string        `json:"patientName"`
	Amount      float64       `json:"amount"`
	Status      InvoiceStatus `json:"status"`
	Description string        `json:"description"`
	Date        string        `json:"date"`
}

// PatientSummary is the reduced projection handed to the model.
type PatientSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	DOB  string `json:"dob"`
}

type NewPatient struct {
	Name    string
	DOB     string
	Gender  Gender
	Contact string
}

type NewAppointment struct {
	PatientID string
	Date      string
	Time      string
	Doctor    string
	Reason    string
}

type NewInvoice struct {
	PatientID   string
	Amount      float64
	Description string
}

type NewNote struct {
	Type    NoteType
	Content string
}

// Snapshot is a deep copy of the store, safe to hand to readers.
type Snapshot struct {
	Patients     []Patient     `json:"patients"`
	Appointments []Appointment `json:"appointments"`
	Invoices     []Invoice     `json:"invoices"`
}

func clonePatient(p Patient) Patient {
	out := p
	out.MedicalHistory = append([]MedicalNote(nil), p.MedicalHistory...)
	if out.MedicalHistory == nil {
		out.MedicalHistory = []MedicalNote{}
	}
	return out
}
