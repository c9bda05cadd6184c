package tool

import (
	"context"
	"errors"
	"reflect"
	"testing"

	auditx "github.com/tanpawarit/clinic-admin-console/agent/audit"
	contractx "github.com/tanpawarit/clinic-admin-console/agent/contract"
	recordsx "github.com/tanpawarit/clinic-admin-console/agent/records"
)

type fakeViews struct {
	views []contractx.View
}

func (f *fakeViews) SetActiveView(v contractx.View) {
	f.views = append(f.views, v)
}

func newTestExecutor(seed recordsx.Seed) (Executor, *recordsx.Store, *fakeViews, *auditx.Memory) {
	store := recordsx.NewStore(recordsx.WithSeed(seed))
	views := &fakeViews{}
	trail := &auditx.Memory{}
	return NewExecutor(store, views, WithRecorder(trail)), store, views, trail
}

func TestExecutorUnknownTool(t *testing.T) {
	t.Parallel()

	executor, store, views, trail := newTestExecutor(recordsx.DefaultSeed())
	out, err := executor(context.Background(), "deletePatient", map[string]any{"patientId": "P001"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Error != UnknownToolMessage {
		t.Fatalf("unexpected outcome: %#v", out)
	}
	if got := out.Response(); !reflect.DeepEqual(got, map[string]any{"error": "Unknown tool"}) {
		t.Fatalf("unexpected response: %#v", got)
	}
	if len(store.Snapshot().Patients) != 2 || len(views.views) != 0 {
		t.Fatal("unknown tool must not mutate state or navigate")
	}
	if len(trail.Entries) != 1 || trail.Entries[0].Status != contractx.StatusError {
		t.Fatalf("unexpected audit trail: %#v", trail.Entries)
	}
}

func TestExecutorFallbackError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("fallback unavailable")
	trail := &auditx.Memory{}
	executor := NewExecutor(recordsx.NewStore(), &fakeViews{},
		WithRecorder(trail),
		WithFallback(func(context.Context, string, map[string]any) (contractx.ToolResult, error) {
			return contractx.ToolResult{}, wantErr
		}),
	)

	if _, err := executor(context.Background(), "deletePatient", nil); !errors.Is(err, wantErr) {
		t.Fatalf("expected fallback error, got %v", err)
	}
	if len(trail.Entries) != 0 {
		t.Fatalf("failed fallback must not be recorded: %#v", trail.Entries)
	}
}

func TestExecutorGetPatientsIdempotent(t *testing.T) {
	t.Parallel()

	executor, _, views, _ := newTestExecutor(recordsx.DefaultSeed())
	first, err := executor(context.Background(), ToolGetPatients, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := executor(context.Background(), ToolGetPatients, map[string]any{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("projections differ: %#v vs %#v", first, second)
	}

	patients, ok := first.Payload["patients"].([]recordsx.PatientSummary)
	if !ok {
		t.Fatalf("unexpected payload type: %T", first.Payload["patients"])
	}
	if len(patients) != 2 || patients[0] != (recordsx.PatientSummary{ID: "P001", Name: "John Doe", DOB: "1980-05-15"}) {
		t.Fatalf("unexpected projection: %#v", patients)
	}
	if len(views.views) != 0 {
		t.Fatalf("getPatients must not navigate, got %v", views.views)
	}
}

func TestExecutorRegisterPatient(t *testing.T) {
	t.Parallel()

	executor, store, views, _ := newTestExecutor(recordsx.Seed{})
	out, err := executor(context.Background(), ToolRegisterPatient, map[string]any{
		"name":    "Ada Lovelace",
		"dob":     "1815-12-10",
		"gender":  "female",
		"contact": "ada@example.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.OK() || out.Message != MsgPatientRegistered {
		t.Fatalf("unexpected outcome: %#v", out)
	}
	id, _ := out.Payload["patientId"].(string)
	p, ok := store.FindPatient(id)
	if !ok {
		t.Fatalf("patient %s not stored", id)
	}
	if p.Gender != recordsx.GenderFemale {
		t.Fatalf("unexpected gender: %s", p.Gender)
	}
	if !reflect.DeepEqual(views.views, []contractx.View{contractx.ViewRegistration}) {
		t.Fatalf("unexpected views: %v", views.views)
	}
}

func TestExecutorScheduleDoubleBooking(t *testing.T) {
	t.Parallel()

	executor, store, views, _ := newTestExecutor(recordsx.DefaultSeed().PatientsOnly())
	args := func(patientID string) map[string]any {
		return map[string]any{
			"patientId": patientID,
			"date":      "2024-01-10",
			"time":      "09:00",
			"doctor":    "Dr. Smith",
			"reason":    "Checkup",
		}
	}

	first, err := executor(context.Background(), ToolScheduleAppointment, args("P001"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.OK() || first.Payload["appointmentId"] == "" {
		t.Fatalf("unexpected first outcome: %#v", first)
	}

	second, err := executor(context.Background(), ToolScheduleAppointment, args("P002"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]any{"status": "error", "message": "Doctor is already booked at this time."}
	if got := second.Response(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected response: %#v", got)
	}
	if n := len(store.Snapshot().Appointments); n != 1 {
		t.Fatalf("expected 1 appointment, got %d", n)
	}
	if !reflect.DeepEqual(views.views, []contractx.View{contractx.ViewScheduling}) {
		t.Fatalf("failed call must not navigate: %v", views.views)
	}
}

func TestExecutorUnknownPatient(t *testing.T) {
	t.Parallel()

	cases := []struct {
		tool string
		args map[string]any
	}{
		{ToolScheduleAppointment, map[string]any{"patientId": "P999", "date": "2024-01-10", "time": "09:00", "doctor": "Dr. Smith", "reason": "Checkup"}},
		{ToolCreateInvoice, map[string]any{"patientId": "P999", "amount": 50.0, "description": "x"}},
		{ToolAddMedicalNote, map[string]any{"patientId": "P999", "noteContent": "x", "type": "Summary"}},
	}

	for _, tc := range cases {
		executor, store, views, _ := newTestExecutor(recordsx.Seed{})
		out, err := executor(context.Background(), tc.tool, tc.args)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.tool, err)
		}
		want := map[string]any{"status": "error", "message": "Patient ID not found."}
		if got := out.Response(); !reflect.DeepEqual(got, want) {
			t.Fatalf("%s: unexpected response: %#v", tc.tool, got)
		}
		snap := store.Snapshot()
		if len(snap.Patients)+len(snap.Appointments)+len(snap.Invoices) != 0 {
			t.Fatalf("%s: collections mutated: %#v", tc.tool, snap)
		}
		if len(views.views) != 0 {
			t.Fatalf("%s: unexpected navigation: %v", tc.tool, views.views)
		}
	}
}

func TestExecutorCreateInvoiceAndNote(t *testing.T) {
	t.Parallel()

	executor, store, views, _ := newTestExecutor(recordsx.DefaultSeed().PatientsOnly())

	inv, err := executor(context.Background(), ToolCreateInvoice, map[string]any{"patientId": "P002", "amount": 80.0, "description": "Lab panel"})
	if err != nil || !inv.OK() {
		t.Fatalf("createInvoice: %#v %v", inv, err)
	}
	note, err := executor(context.Background(), ToolAddMedicalNote, map[string]any{"patientId": "P002", "noteContent": "Bloods normal.", "type": "Lab Result"})
	if err != nil || !note.OK() {
		t.Fatalf("addMedicalNote: %#v %v", note, err)
	}

	snap := store.Snapshot()
	if len(snap.Invoices) != 1 || snap.Invoices[0].Amount != 80 {
		t.Fatalf("unexpected invoices: %#v", snap.Invoices)
	}
	history := snap.Patients[1].MedicalHistory
	if len(history) != 1 || history[0].Type != recordsx.NoteLabResult || history[0].ID != note.Payload["noteId"] {
		t.Fatalf("unexpected history: %#v", history)
	}
	if len(snap.Patients[0].MedicalHistory) != 1 {
		t.Fatalf("P001 history must be untouched: %#v", snap.Patients[0].MedicalHistory)
	}
	if !reflect.DeepEqual(views.views, []contractx.View{contractx.ViewBilling, contractx.ViewRecords}) {
		t.Fatalf("unexpected views: %v", views.views)
	}
}

func TestExecutorInvalidArgsDoNotDispatch(t *testing.T) {
	t.Parallel()

	executor, store, _, _ := newTestExecutor(recordsx.DefaultSeed().PatientsOnly())
	out, err := executor(context.Background(), ToolCreateInvoice, map[string]any{"patientId": "P001", "amount": "lots"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.OK() || out.Message != "amount must be a number" {
		t.Fatalf("unexpected outcome: %#v", out)
	}
	if len(store.Snapshot().Invoices) != 0 {
		t.Fatal("invalid args must not reach the store")
	}
}

func TestExecutorStampsInvocationID(t *testing.T) {
	t.Parallel()

	executor, _, _, _ := newTestExecutor(recordsx.DefaultSeed())
	out, err := executor.Execute(context.Background(), contractx.ToolRequest{Tool: ToolGetPatients, InvocationID: "call_7"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.InvocationID != "call_7" || out.Tool != ToolGetPatients {
		t.Fatalf("unexpected result: %#v", out)
	}
}

func TestExecutorCancelledContext(t *testing.T) {
	t.Parallel()

	executor, store, _, _ := newTestExecutor(recordsx.Seed{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := executor(ctx, ToolRegisterPatient, map[string]any{"name": "A", "dob": "x", "gender": "Other", "contact": "x"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(store.Snapshot().Patients) != 0 {
		t.Fatal("cancelled call must not mutate")
	}
}
