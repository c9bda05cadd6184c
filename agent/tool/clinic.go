package tool

import (
	"errors"

	contractx "github.com/tanpawarit/clinic-admin-console/agent/contract"
	recordsx "github.com/tanpawarit/clinic-admin-console/agent/records"
)

const (
	MsgPatientRegistered = "Patient registered successfully."
	MsgAppointmentBooked = "Appointment scheduled."
	MsgDoubleBooked      = "Doctor is already booked at this time."
	MsgPatientNotFound   = "Patient ID not found."
	MsgInvoiceGenerated  = "Invoice generated."
	MsgNegativeAmount    = "Amount must be a non-negative number."
	MsgNoteAdded         = "Clinical note added."
)

func clinicHandlers(store *recordsx.Store) map[string]handler {
	return map[string]handler{
		ToolGetPatients: func(Args) contractx.ToolResult {
			return contractx.ToolResult{
				Tool:    ToolGetPatients,
				Status:  contractx.StatusSuccess,
				Payload: map[string]any{"patients": store.PatientSummaries()},
			}
		},

		ToolRegisterPatient: func(args Args) contractx.ToolResult {
			p, err := store.RegisterPatient(recordsx.NewPatient{
				Name:    args.String("name"),
				DOB:     args.String("dob"),
				Gender:  recordsx.Gender(args.String("gender")),
				Contact: args.String("contact"),
			})
			if err != nil {
				return fromStoreError(ToolRegisterPatient, err)
			}
			return success(ToolRegisterPatient, MsgPatientRegistered, "patientId", p.ID)
		},

		ToolScheduleAppointment: func(args Args) contractx.ToolResult {
			appt, err := store.ScheduleAppointment(recordsx.NewAppointment{
				PatientID: args.String("patientId"),
				Date:      args.String("date"),
				Time:      args.String("time"),
				Doctor:    args.String("doctor"),
				Reason:    args.String("reason"),
			})
			if err != nil {
				return fromStoreError(ToolScheduleAppointment, err)
			}
			return success(ToolScheduleAppointment, MsgAppointmentBooked, "appointmentId", appt.ID)
		},

		ToolCreateInvoice: func(args Args) contractx.ToolResult {
			inv, err := store.CreateInvoice(recordsx.NewInvoice{
				PatientID:   args.String("patientId"),
				Amount:      args.Number("amount"),
				Description: args.String("description"),
			})
			if err != nil {
				return fromStoreError(ToolCreateInvoice, err)
			}
			return success(ToolCreateInvoice, MsgInvoiceGenerated, "invoiceId", inv.ID)
		},

		ToolAddMedicalNote: func(args Args) contractx.ToolResult {
			note, err := store.AddMedicalNote(args.String("patientId"), recordsx.NewNote{
				Type:    recordsx.NoteType(args.String("type")),
				Content: args.String("noteContent"),
			})
			if err != nil {
				return fromStoreError(ToolAddMedicalNote, err)
			}
			return success(ToolAddMedicalNote, MsgNoteAdded, "noteId", note.ID)
		},
	}
}

func success(tool, message, idKey, id string) contractx.ToolResult {
	return contractx.ToolResult{
		Tool:    tool,
		Status:  contractx.StatusSuccess,
		Message: message,
		Payload: map[string]any{idKey: id},
	}
}

func failure(tool, message string) contractx.ToolResult {
	return contractx.ToolResult{
		Tool:    tool,
		Status:  contractx.StatusError,
		Message: message,
	}
}

func fromStoreError(tool string, err error) contractx.ToolResult {
	switch {
	case errors.Is(err, recordsx.ErrDoubleBooked):
		return failure(tool, MsgDoubleBooked)
	case errors.Is(err, recordsx.ErrPatientNotFound):
		return failure(tool, MsgPatientNotFound)
	case errors.Is(err, recordsx.ErrNegativeAmount):
		return failure(tool, MsgNegativeAmount)
	default:
		return failure(tool, err.Error())
	}
}
