package models

import "clinic-booking-server/internal/store"

// Appointments table columns.
const (
	ColPatientID   = "patient_id"
	ColEmployeeID  = "employee_id"
	ColDescription = "description"
	ColBlockStart  = "block_start"
	ColBlockEnd    = "block_end"
	ColDate        = "date"
)

// Appointments is the record store schema of the appointments table.
// Its unique keys keep one booking per provider and per patient in a slot.
var Appointments = &store.Table{
	Name: "appointments",
	Fields: []store.Field{
		{Name: ColPatientID, MaxLength: 10},
		{Name: ColEmployeeID, MaxLength: 10},
		{Name: ColDescription, MaxLength: 50},
		{Name: ColBlockStart, MaxLength: 4},
		{Name: ColBlockEnd, MaxLength: 4},
		{Name: ColDate, MaxLength: 11},
	},
	Unique: [][]string{
		{ColEmployeeID, ColDate, ColBlockStart, ColBlockEnd},
		{ColPatientID, ColDate, ColBlockStart, ColBlockEnd},
	},
}

// AppointmentRecord mirrors the appointments table for migrations.
type AppointmentRecord struct {
	PatientID   string `gorm:"column:patient_id;type:varchar(10);not null;uniqueIndex:uq_appointments_patient_slot,priority:1"`
	EmployeeID  string `gorm:"column:employee_id;type:varchar(10);not null;uniqueIndex:uq_appointments_employee_slot,priority:1"`
	Description string `gorm:"column:description;type:varchar(50);not null"`
	BlockStart  string `gorm:"column:block_start;type:varchar(4);not null;uniqueIndex:uq_appointments_employee_slot,priority:3;uniqueIndex:uq_appointments_patient_slot,priority:3"`
	BlockEnd    string `gorm:"column:block_end;type:varchar(4);not null;uniqueIndex:uq_appointments_employee_slot,priority:4;uniqueIndex:uq_appointments_patient_slot,priority:4"`
	Date        string `gorm:"column:date;type:varchar(11);not null;uniqueIndex:uq_appointments_employee_slot,priority:2;uniqueIndex:uq_appointments_patient_slot,priority:2"`
}

// TableName keeps GORM from pluralising the record type name.
func (AppointmentRecord) TableName() string { return Appointments.Name }

// Appointment is one booked slot.
type Appointment struct {
	PatientID   string `json:"patientId"`
	EmployeeID  string `json:"employeeId"`
	Description string `json:"description"`
	BlockStart  string `json:"blockStart"`
	BlockEnd    string `json:"blockEnd"`
	Date        string `json:"date"`
}

// AppointmentFromRow decodes an appointments row.
func AppointmentFromRow(r store.Row) Appointment {
	return Appointment{
		PatientID:   r.Get(ColPatientID),
		EmployeeID:  r.Get(ColEmployeeID),
		Description: r.Get(ColDescription),
		BlockStart:  r.Get(ColBlockStart),
		BlockEnd:    r.Get(ColBlockEnd),
		Date:        r.Get(ColDate),
	}
}

// Values encodes the appointment in Appointments column order.
func (a Appointment) Values() []string {
	return []string{a.PatientID, a.EmployeeID, a.Description, a.BlockStart, a.BlockEnd, a.Date}
}

// Row binds the appointment to the Appointments schema.
func (a Appointment) Row() store.Row {
	return store.NewRow(Appointments, a.Values())
}
