package port

// QueryValidator validates SQL statements before submission. A nil return
// admits the statement; a non-nil error carries the rejection reason.
type QueryValidator interface {
	Validate(sql string) error
}
