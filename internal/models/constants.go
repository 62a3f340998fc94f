package models

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentDeclined = "declined"
	PaymentOnSite   = "pay_on_collection"
)

const (
	PaymentMethodCard = "card"
	PaymentMethodUPI  = "upi"
	PaymentMethodCash = "cash_on_collection"
)

const (
	FlowAppointment = "appointment"
	FlowDiagnostics = "diagnostics"
)

// CategoryAll disables the category predicate of a catalog filter.
const CategoryAll = "All"

const (
	ServiceConsultation = "consultation"
	ServiceFollowUp     = "follow_up"
	ServiceTelehealth   = "telehealth"
	ServiceEmergency    = "emergency"
)

// DefaultServiceTypes is used when booking.service_types is empty.
var DefaultServiceTypes = []string{
	ServiceConsultation,
	ServiceFollowUp,
	ServiceTelehealth,
	ServiceEmergency,
}

// DefaultTimeSlots is used when booking.time_slots is empty.
var DefaultTimeSlots = []string{
	"09:00 AM", "09:30 AM", "10:00 AM", "10:30 AM", "11:00 AM", "11:30 AM",
	"02:00 PM", "02:30 PM", "03:00 PM", "03:30 PM", "04:00 PM", "04:30 PM",
}

const (
	// DefaultSessionTTL время жизни незавершённой сессии мастера записи
	DefaultSessionTTL = 2 * 60 * 60 // 2 часа в секундах

	// DefaultMaxBookingDays насколько далеко вперёд можно записаться
	DefaultMaxBookingDays = 90

	// DefaultListingRoute куда отправлять пользователя после успешной записи
	DefaultListingRoute = "/appointments"

	// ContactRateLimitMessages количество обращений в окне
	ContactRateLimitMessages = 5

	// ContactRateLimitWindow окно ограничения обращений
	ContactRateLimitWindow = 10 * 60 // 10 минут в секундах

	// CatalogCacheTTL время жизни кэша каталога в клиенте
	CatalogCacheTTL = 10 * 60 // 10 минут в секундах

	// WorkerQueueSize размер очереди воркера
	WorkerQueueSize = 128
)

const (
	ParseModeMarkdown = "Markdown"
	ParseModeHTML     = "HTML"
)

// DateLayout is the ISO calendar-date format used on the wire.
const DateLayout = "2006-01-02"
