package archive

import "codeberg.org/mutker/fridgebench/internal/errors"

var (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidDBPath = errors.RegisterKind("archive_invalid_db_path", errors.ErrValidation)

	// Schema Errors
	ErrSchemaInitFailed       = errors.RegisterKind("archive_schema_init_failed", errors.ErrResource)
	ErrSchemaValidationFailed = errors.RegisterKind("archive_schema_validation_failed", errors.ErrResource)
	ErrSchemaMigrationFailed  = errors.RegisterKind("archive_schema_migration_failed", errors.ErrResource)
	ErrTransactionFailed      = errors.RegisterKind("archive_transaction_failed", errors.ErrResource)

	// Storage Errors
	ErrStorageAccess = errors.RegisterKind("archive_storage_access_failed", errors.ErrResource)
	ErrStorageInit   = errors.RegisterKind("archive_storage_init_failed", errors.ErrResource)
	ErrStorageClose  = errors.RegisterKind("archive_storage_close_failed", errors.ErrResource)
	ErrClosed        = errors.RegisterKind("archive_closed", errors.ErrResource)

	// Operation Errors
	ErrOperationTimeout = errors.ErrTimeout
)
