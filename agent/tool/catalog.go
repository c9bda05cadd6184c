package tool

import (
	"github.com/cloudwego/eino/schema"
)

const (
	ToolGetPatients         = "getPatients"
	ToolRegisterPatient     = "registerPatient"
	ToolScheduleAppointment = "scheduleAppointment"
	ToolCreateInvoice       = "createInvoice"
	ToolAddMedicalNote      = "addMedicalNote"
)

type Kind string

const (
	KindString Kind = "string"
	KindNumber Kind = "number"
)

type Param struct {
	Name        string
	Kind        Kind
	Description string
	Required    bool
	Enum        []string
}

// Definition declares one operation the model may request.
type Definition struct {
	Name        string
	Description string
	Params      []Param
}

func (d Definition) ToolInfo() *schema.ToolInfo {
	info := &schema.ToolInfo{
		Name: d.Name,
		Desc: d.Description,
	}
	if len(d.Params) == 0 {
		return info
	}

	params := make(map[string]*schema.ParameterInfo, len(d.Params))
	for _, p := range d.Params {
		dataType := schema.String
		if p.Kind == KindNumber {
			dataType = schema.Number
		}
		params[p.Name] = &schema.ParameterInfo{
			Type:     dataType,
			Desc:     p.Description,
			Required: p.Required,
			Enum:     p.Enum,
		}
	}
	info.ParamsOneOf = schema.NewParamsOneOfByParams(params)
	return info
}

var catalog = []Definition{
	{
		Name:        ToolGetPatients,
		Description: "Get a list of all registered patients to find IDs or check existence.",
	},
	{
		Name:        ToolRegisterPatient,
		Description: "Register a new patient into the system (Agent 3).",
		Params: []Param{
			{Name: "name", Kind: KindString, Description: "Full name of the patient", Required: true},
			{Name: "dob", Kind: KindString, Description: "Date of birth (YYYY-MM-DD)", Required: true},
			{Name: "gender", Kind: KindString, Description: "Male, Female, or Other", Required: true, Enum: []string{"Male", "Female", "Other"}},
			{Name: "contact", Kind: KindString, Description: "Phone number or email", Required: true},
		},
	},
	{
		Name:        ToolScheduleAppointment,
		Description: "Schedule a new appointment (Agent 4). Checks for conflicts automatically.",
		Params: []Param{
			{Name: "patientId", Kind: KindString, Description: "The ID of the patient", Required: true},
			{Name: "date", Kind: KindString, Description: "Date of appointment (YYYY-MM-DD)", Required: true},
			{Name: "time", Kind: KindString, Description: "Time of appointment (HH:MM)", Required: true},
			{Name: "doctor", Kind: KindString, Description: "Name of the doctor", Required: true},
			{Name: "reason", Kind: KindString, Description: "Reason for visit or appointment type", Required: true},
		},
	},
	{
		Name:        ToolCreateInvoice,
		Description: "Generate a billing invoice for a patient (Agent 2).",
		Params: []Param{
			{Name: "patientId", Kind: KindString, Description: "The ID of the patient", Required: true},
			{Name: "amount", Kind: KindNumber, Description: "Cost of the service", Required: true},
			{Name: "description", Kind: KindString, Description: "Description of the charge", Required: true},
		},
	},
	{
		Name:        ToolAddMedicalNote,
		Description: "Add a clinical note to a patient's record (Agent 1).",
		Params: []Param{
			{Name: "patientId", Kind: KindString, Description: "The ID of the patient", Required: true},
			{Name: "noteContent", Kind: KindString, Description: "The clinical observation or summary", Required: true},
			{Name: "type", Kind: KindString, Description: "Type of note: Consultation, Lab Result, or Summary", Required: true, Enum: []string{"Consultation", "Lab Result", "Summary"}},
		},
	},
}

// Catalog returns a copy of the fixed tool catalog.
func Catalog() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog)
	return out
}

func Lookup(name string) (Definition, bool) {
	for _, d := range catalog {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// Infos renders the catalog for binding to a chat model.
func Infos() []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(catalog))
	for _, d := range catalog {
		infos = append(infos, d.ToolInfo())
	}
	return infos
}
