package records

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	patientPrefix     = "P"
	appointmentPrefix = "A"
	invoicePrefix     = "I"
	notePrefix        = "N"

	idTokenLength = 7
	dateLayout    = "2006-01-02"
)

// Store owns the patient, appointment and invoice collections for the lifetime
// of the process. Each mutating method is applied under one write lock, so a
// call is either fully visible or not at all.
type Store struct {
	mu sync.RWMutex

	patients     []*Patient
	appointments []Appointment
	invoices     []Invoice

	issued map[string]map[string]struct{} // prefix -> ids ever handed out
	epoch  string

	now     func() time.Time
	idToken func() string
}

// Option customizes Store.
type Option func(*Store)

func WithSeed(seed Seed) Option {
	return func(s *Store) {
		for _, p := range seed.Patients {
			cp := clonePatient(p)
			s.patients = append(s.patients, &cp)
			s.markIssued(patientPrefix, cp.ID)
			for _, n := range cp.MedicalHistory {
				s.markIssued(notePrefix, n.ID)
			}
		}
		for _, a := range seed.Appointments {
			s.appointments = append(s.appointments, a)
			s.markIssued(appointmentPrefix, a.ID)
		}
		for _, inv := range seed.Invoices {
			s.invoices = append(s.invoices, inv)
			s.markIssued(invoicePrefix, inv.ID)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDSource replaces the random token used after each id prefix.
func WithIDSource(next func() string) Option {
	return func(s *Store) {
		if next != nil {
			s.idToken = next
		}
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		issued: map[string]map[string]struct{}{
			patientPrefix:     {},
			appointmentPrefix: {},
			invoicePrefix:     {},
			notePrefix:        {},
		},
		epoch:   uuid.NewString(),
		now:     time.Now,
		idToken: randomToken,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// WithEpoch fixes the store generation id, mostly for tests.
func WithEpoch(epoch string) Option {
	return func(s *Store) {
		if epoch = strings.TrimSpace(epoch); epoch != "" {
			s.epoch = epoch
		}
	}
}

// Epoch identifies this store generation. Ids issued by the store mean nothing
// outside it, so anything that outlives the process must be keyed by it.
func (s *Store) Epoch() string {
	return s.epoch
}

func randomToken() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:idTokenLength])
}

func (s *Store) markIssued(prefix, id string) {
	set, ok := s.issued[prefix]
	if !ok {
		set = map[string]struct{}{}
		s.issued[prefix] = set
	}
	set[id] = struct{}{}
}

// nextID must be called with the write lock held.
func (s *Store) nextID(prefix string) string {
	for {
		id := prefix + s.idToken()
		if _, taken := s.issued[prefix][id]; taken {
			continue
		}
		s.markIssued(prefix, id)
		return id
	}
}

func (s *Store) today() string {
	return s.now().Format(dateLayout)
}

// findPatient must be called with a lock held.
func (s *Store) findPatient(id string) *Patient {
	for _, p := range s.patients {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Patients:     make([]Patient, 0, len(s.patients)),
		Appointments: append(make([]Appointment, 0, len(s.appointments)), s.appointments...),
		Invoices:     append(make([]Invoice, 0, len(s.invoices)), s.invoices...),
	}
	for _, p := range s.patients {
		snap.Patients = append(snap.Patients, clonePatient(*p))
	}
	return snap
}

func (s *Store) PatientSummaries() []PatientSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]PatientSummary, 0, len(s.patients))
	for _, p := range s.patients {
		out = append(out, PatientSummary{ID: p.ID, Name: p.Name, DOB: p.DOB})
	}
	return out
}

func (s *Store) FindPatient(id string) (Patient, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := s.findPatient(id)
	if p == nil {
		return Patient{}, false
	}
	return clonePatient(*p), true
}

func (s *Store) RegisterPatient(in NewPatient) (Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &Patient{
		ID:                    s.nextID(patientPrefix),
		Name:                  in.Name,
		DOB:                   in.DOB,
		Gender:                in.Gender,
		Contact:               in.Contact,
		InsuranceProvider:     InsurancePending,
		InsurancePolicyNumber: InsurancePending,
		MedicalHistory:        []MedicalNote{},
	}
	s.patients = append(s.patients, p)
	return clonePatient(*p), nil
}

// ScheduleAppointment checks for a (doctor, date, time) conflict before it
// resolves the patient, so a conflict is reported even for an unknown patient.
func (s *Store) ScheduleAppointment(in NewAppointment) (Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.appointments {
		if a.Doctor == in.Doctor && a.Date == in.Date && a.Time == in.Time {
			return Appointment{}, fmt.Errorf("%w: doctor=%s date=%s time=%s", ErrDoubleBooked, in.Doctor, in.Date, in.Time)
		}
	}

	p := s.findPatient(in.PatientID)
	if p == nil {
		return Appointment{}, fmt.Errorf("%w: id=%s", ErrPatientNotFound, in.PatientID)
	}

	appt := Appointment{
		ID:          s.nextID(appointmentPrefix),
		PatientID:   p.ID,
		PatientName: p.Name,
		Date:        in.Date,
		Time:        in.Time,
		Type:        in.Reason,
		Doctor:      in.Doctor,
		Status:      AppointmentScheduled,
	}
	s.appointments = append(s.appointments, appt)
	return appt, nil
}

func (s *Store) CreateInvoice(in NewInvoice) (Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.findPatient(in.PatientID)
	if p == nil {
		return Invoice{}, fmt.Errorf("%w: id=%s", ErrPatientNotFound, in.PatientID)
	}
	if in.Amount < 0 || math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0) {
		return Invoice{}, fmt.Errorf("%w: amount=%v", ErrNegativeAmount, in.Amount)
	}

	inv := Invoice{
		ID:          s.nextID(invoicePrefix),
		PatientID:   p.ID,
		PatientName: p.Name,
		Amount:      in.Amount,
		Status:      InvoicePending,
		Description: in.Description,
		Date:        s.today(),
	}
	s.invoices = append(s.invoices, inv)
	return inv, nil
}

// AddMedicalNote appends to the existing patient's history in place.
func (s *Store) AddMedicalNote(patientID string, in NewNote) (MedicalNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.findPatient(patientID)
	if p == nil {
		return MedicalNote{}, fmt.Errorf("%w: id=%s", ErrPatientNotFound, patientID)
	}

	note := MedicalNote{
		ID:      s.nextID(notePrefix),
		Date:    s.today(),
		Type:    in.Type,
		Content: in.Content,
		Doctor:  AssistantAuthor,
	}
	p.MedicalHistory = append(p.MedicalHistory, note)
	return note, nil
}
