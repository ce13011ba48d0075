package enum

// ── State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "PENDING"
	OrderStatusCompleted = "COMPLETED"
)

const (
	PackingStatusPending = "PENDING"
	PackingStatusPacked  = "PACKED"
)

const (
	BatchStatusOpen   = "OPEN"
	BatchStatusClosed = "CLOSED"
)

// Manual override is deliberately three-valued. SCHEDULE means "defer to the
// configured window"; it is never collapsed into CLOSED.

const (
	OverrideOpen     = "OPEN"
	OverrideClosed   = "CLOSED"
	OverrideSchedule = "SCHEDULE"
)

const (
	BatchOriginManual    = "MANUAL"
	BatchOriginScheduled = "SCHEDULED"
)

// ── Labels (CHECK constrained in DB) ──

const (
	UserRoleAdmin = "ADMIN"
	UserRoleUser  = "USER"
)

const (
	PackingStageDryGoods   = "DRY_GOODS"
	PackingStageFreshGoods = "FRESH_GOODS"
)
