package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldOperation = "operation"
	FieldError     = "error"
	FieldErrorType = "error_type"
	FieldEntryID   = "entry_id"
	FieldDate      = "date"
	FieldCategory  = "category"
	FieldAmount    = "amount"
	FieldType      = "type"
	FieldRows      = "rows"
	FieldPath      = "path"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentLedger  = "ledger"
	ComponentStorage = "storage"
	ComponentExport  = "export"
	ComponentCLI     = "cli"
)

// Operations defines standard operation names
const (
	OpStage    = "stage"
	OpFlush    = "flush"
	OpInsert   = "insert"
	OpQuery    = "query"
	OpSummary  = "summary"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpExport   = "export"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeConflict      = "conflict_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithEntry adds entry fields
func (f LogFields) WithEntry(id int64, date, category, amount, typ string) LogFields {
	f[FieldEntryID] = id
	f[FieldDate] = date
	f[FieldCategory] = category
	f[FieldAmount] = amount
	f[FieldType] = typ
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
