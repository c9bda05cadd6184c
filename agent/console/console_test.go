package console

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	contractx "github.com/tanpawarit/clinic-admin-console/agent/contract"
	recordsx "github.com/tanpawarit/clinic-admin-console/agent/records"
)

type blockingHandler struct {
	started chan struct{}
	release chan struct{}
	calls   int
	mu      sync.Mutex
}

func (b *blockingHandler) HandleMessage(ctx context.Context, sessionID string, text string) (contractx.Reply, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	if b.started != nil {
		close(b.started)
	}
	if b.release != nil {
		<-b.release
	}
	return contractx.Reply{Outcome: contractx.OutcomeDone, Message: contractx.ChatMessage{Content: "done"}}, nil
}

func (b *blockingHandler) Transcript(ctx context.Context, sessionID string) ([]contractx.ChatMessage, error) {
	return []contractx.ChatMessage{{ID: "m1", Role: contractx.RoleUser, Content: "hi"}}, nil
}

func TestSubmitRejectsConcurrentTurn(t *testing.T) {
	t.Parallel()

	h := &blockingHandler{started: make(chan struct{}), release: make(chan struct{})}
	c := New(recordsx.NewStore())
	c.Bind(h)

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), "first")
		done <- err
	}()
	<-h.started

	if !c.IsThinking() {
		t.Fatal("console should be thinking while a turn runs")
	}
	if _, err := c.Submit(context.Background(), "second"); !errors.Is(err, contractx.ErrTurnInFlight) {
		t.Fatalf("expected ErrTurnInFlight, got %v", err)
	}

	close(h.release)
	if err := <-done; err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}
	if c.IsThinking() {
		t.Fatal("busy flag should clear after the turn")
	}
	if h.calls != 1 {
		t.Fatalf("expected a single handled turn, got %d", h.calls)
	}
}

func TestSubmitWithoutHandler(t *testing.T) {
	t.Parallel()

	c := New(recordsx.NewStore())
	if _, err := c.Submit(context.Background(), "hi"); !errors.Is(err, ErrNoHandler) {
		t.Fatalf("expected ErrNoHandler, got %v", err)
	}
}

func TestSetActiveView(t *testing.T) {
	t.Parallel()

	c := New(recordsx.NewStore())
	if c.ActiveView() != contractx.ViewDashboard {
		t.Fatalf("default view = %q", c.ActiveView())
	}
	c.SetActiveView(contractx.ViewBilling)
	c.SetActiveView(contractx.View("settings"))
	if c.ActiveView() != contractx.ViewBilling {
		t.Fatalf("unknown views must be ignored, got %q", c.ActiveView())
	}
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	c := New(recordsx.NewStore(recordsx.WithSeed(recordsx.DefaultSeed())), WithWarning(MissingKeyWarning))
	c.Bind(&blockingHandler{})

	snap, err := c.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(snap.Patients) != 2 || len(snap.Appointments) != 2 || len(snap.Invoices) != 2 {
		t.Fatalf("unexpected records: %#v", snap)
	}
	if len(snap.Messages) != 1 || snap.Warning != MissingKeyWarning || snap.IsThinking {
		t.Fatalf("unexpected snapshot: %#v", snap)
	}

	c.SetWarning("")
	snap, _ = c.Snapshot(context.Background())
	if snap.Warning != "" {
		t.Fatalf("warning should clear, got %q", snap.Warning)
	}
}

func TestComputeStats(t *testing.T) {
	t.Parallel()

	snap := recordsx.DefaultSeed()
	data := recordsx.Snapshot{
		Patients:     snap.Patients,
		Appointments: append(snap.Appointments, recordsx.Appointment{ID: "A003", Date: "2023-11-15", Status: recordsx.AppointmentCancelled}, recordsx.Appointment{ID: "A004", Date: "soon"}),
		Invoices:     append(snap.Invoices, recordsx.Invoice{ID: "I003", Amount: 0.1, Status: recordsx.InvoicePending}, recordsx.Invoice{ID: "I004", Amount: 0.2, Status: recordsx.InvoicePending}),
	}

	now := time.Date(2023, 11, 15, 18, 0, 0, 0, time.UTC)
	got := ComputeStats(data, now)

	if got.TotalPatients != 2 {
		t.Fatalf("TotalPatients = %d", got.TotalPatients)
	}
	if got.UpcomingVisits != 2 {
		t.Fatalf("UpcomingVisits = %d, want 2", got.UpcomingVisits)
	}
	if got.TotalRevenue != 350.3 || got.PendingRevenue != 200.3 {
		t.Fatalf("revenue = %v / %v", got.TotalRevenue, got.PendingRevenue)
	}

	want := map[recordsx.AppointmentStatus]int{
		recordsx.AppointmentCompleted: 1,
		recordsx.AppointmentScheduled: 1,
		recordsx.AppointmentCancelled: 1,
	}
	if len(got.StatusCounts) != 3 {
		t.Fatalf("unexpected status counts: %#v", got.StatusCounts)
	}
	for _, sc := range got.StatusCounts {
		if want[sc.Status] != sc.Count {
			t.Fatalf("status %s = %d, want %d", sc.Status, sc.Count, want[sc.Status])
		}
	}
}
