package pos

// Order state strings as the POS emits them. The platform has renamed
// states across API versions, so both Canadian and US spellings of the
// cancelled state appear in the wild.

const (
	StateOpen      = "OPEN"
	StateDraft     = "DRAFT"
	StateInReview  = "IN_REVIEW"
	StateApproved  = "APPROVED"
	StateCompleted = "COMPLETED"
	StateFulfilled = "FULFILLED"
	StateCanceled  = "CANCELED"
	StateCancelled = "CANCELLED"
	StateRefunded  = "REFUNDED"
)
