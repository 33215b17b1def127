package logging

// Field names shared by every component so log output stays filterable.
const (
	FieldFile       = "file_path"
	FieldInputFile  = "input_file"
	FieldOutputFile = "output_file"
	FieldOperation  = "operation"
	FieldStatus     = "status"
	FieldError      = "error"
	FieldDuration   = "duration_ms"
	FieldCount      = "count"
	FieldDelimiter  = "delimiter"
	FieldReason     = "reason"

	FieldUserID      = "user_id"
	FieldBatchID     = "batch_id"
	FieldPage        = "page"
	FieldRow         = "row"
	FieldCategory    = "category"
	FieldCategoryID  = "category_id"
	FieldStrategy    = "strategy"
	FieldDescription = "description"
	FieldAmount      = "amount"
	FieldKind        = "document_kind"
)
