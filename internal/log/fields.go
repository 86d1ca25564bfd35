package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"

	FieldBillID        = "bill_id"
	FieldAccountID     = "account_id"
	FieldPeriodID      = "period_id"
	FieldSnapshotID    = "snapshot_id"
	FieldMonthYear     = "month_year"
	FieldCompanyName   = "company_name"
	FieldAmountCents   = "amount_cents"
	FieldDaysRemaining = "days_remaining"
	FieldWindowStart   = "window_start"
	FieldWindowEnd     = "window_end"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentDashboard = "dashboard"
	ComponentBilling   = "billing"
	ComponentSnapshot  = "snapshot"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentRecorder  = "recorder"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpSync     = "sync"
	OpRestore  = "restore"
	OpActivate = "activate"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)
