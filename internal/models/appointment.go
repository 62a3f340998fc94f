package models

import "time"

type Appointment struct {
	ID          int64     `json:"id"`
	ServiceType string    `json:"service_type"`
	DoctorID    int64     `json:"doctor_id"`
	DoctorName  string    `json:"doctor_name"`
	Date        time.Time `json:"date"`
	TimeSlot    string    `json:"time_slot"`
	PatientName string    `json:"patient_name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	City        string    `json:"city"`
	Reason      string    `json:"reason"`
	Status      string    `json:"status"` // pending, confirmed, cancelled, completed
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Version     int64     `json:"version"`
}

// AppointmentRequest is the body of POST /api/v1/appointments.
type AppointmentRequest struct {
	ServiceType     string `json:"service_type"`
	DoctorID        int64  `json:"doctor_id"`
	AppointmentDate string `json:"appointment_date"` // YYYY-MM-DD
	TimeSlot        string `json:"time_slot"`
	PatientName     string `json:"patient_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	City            string `json:"city"`
	Reason          string `json:"reason"`
}

type DiagnosticBooking struct {
	ID               int64     `json:"id"`
	TestIDs          []int64   `json:"test_ids"`
	PackageIDs       []int64   `json:"package_ids"`
	PatientName      string    `json:"patient_name"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	Address          string    `json:"address"`
	HomeCollection   bool      `json:"home_collection"`
	Date             time.Time `json:"date"`
	TimeSlot         string    `json:"time_slot"`
	TotalPrice       float64   `json:"total_price"`
	PaymentMethod    string    `json:"payment_method"`
	PaymentStatus    string    `json:"payment_status"`
	PaymentReference string    `json:"payment_reference"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

// DiagnosticBookingRequest is the body of POST /api/v1/diagnostics/bookings.
type DiagnosticBookingRequest struct {
	TestIDs        []int64 `json:"test_ids"`
	PackageIDs     []int64 `json:"package_ids"`
	PatientName    string  `json:"patient_name"`
	Email          string  `json:"email"`
	Phone          string  `json:"phone"`
	Address        string  `json:"address"`
	HomeCollection bool    `json:"home_collection"`
	CollectionDate string  `json:"collection_date"` // YYYY-MM-DD
	TimeSlot       string  `json:"time_slot"`
	PaymentMethod  string  `json:"payment_method"`
	CardNumber     string  `json:"card_number,omitempty"`
}

type ContactMessage struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// SubmitResult is the booking-creation response contract: {success, error?}.
type SubmitResult struct {
	StatusCode int    `json:"-"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	ID         int64  `json:"id,omitempty"`
	Reference  string `json:"reference,omitempty"`
}

// OK reports a 2xx transport status.
func (r SubmitResult) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
