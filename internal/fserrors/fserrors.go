// Package fserrors defines the tagged result type used by internal/fsops
// and internal/path to surface
// recoverable file-system error conditions as a typed error instead of a
// bare sentinel or an overloaded return code.
package fserrors

import "fmt"

// Kind names one recoverable error condition.
type Kind string

const (
	CreateInvalidType          Kind = "ERROR_CREATE_INVALID_TYPE"
	CreateInodeNotAvailable    Kind = "ERROR_CREATE_INODE_NOT_AVAILABLE"
	CreateInvalidDir           Kind = "ERROR_CREATE_INVALID_DIR"
	CreateDataBlockNotAvail    Kind = "ERROR_CREATE_DATA_BLOCK_NOT_AVAILABLE"
	CreateAlreadyExists        Kind = "ERROR_CREATE_ALREADY_EXISTS"
	WriteNotFile               Kind = "ERROR_WRITE_NOT_FILE"
	WriteOffsetLargerThanSize  Kind = "ERROR_WRITE_OFFSET_LARGER_THAN_SIZE"
	WriteExceedsFileSize       Kind = "ERROR_WRITE_EXCEEDS_FILE_SIZE"
	ReadNotFile                Kind = "ERROR_READ_NOT_FILE"
	ReadOffsetLargerThanSize   Kind = "ERROR_READ_OFFSET_LARGER_THAN_SIZE"
	UnlinkInvalidDir           Kind = "ERROR_UNLINK_INVALID_DIR"
	UnlinkDoesNotExist         Kind = "ERROR_UNLINK_DOESNOT_EXIST"
	UnlinkNotFile              Kind = "ERROR_UNLINK_NOT_FILE"
	LinkTargetDoesNotExist     Kind = "ERROR_LINK_TARGET_DOESNOT_EXIST"
	LinkNotDirectory           Kind = "ERROR_LINK_NOT_DIRECTORY"
	LinkDataBlockNotAvail      Kind = "ERROR_LINK_DATA_BLOCK_NOT_AVAILABLE"
	LinkAlreadyExists          Kind = "ERROR_LINK_ALREADY_EXISTS"
	LinkTargetNotFile          Kind = "ERROR_LINK_TARGET_NOT_FILE"
	SymlinkTargetDoesNotExist  Kind = "ERROR_SYMLINK_TARGET_DOESNOT_EXIST"
	SymlinkNotDirectory        Kind = "ERROR_SYMLINK_NOT_DIRECTORY"
	SymlinkDataBlockNotAvail   Kind = "ERROR_SYMLINK_DATA_BLOCK_NOT_AVAILABLE"
	SymlinkAlreadyExists       Kind = "ERROR_SYMLINK_ALREADY_EXISTS"
	SymlinkInodeNotAvailable   Kind = "ERROR_SYMLINK_INODE_NOT_AVAILABLE"
	SymlinkTargetExceedsBlock  Kind = "ERROR_SYMLINK_TARGET_EXCEEDS_BLOCK_SIZE"
	SliceOffsetOutOfBounds     Kind = "ERROR_SLICE_OFFSET_OUT_BOUNDS"
	SliceCountOutOfBounds      Kind = "ERROR_SLICE_COUNT_OUT_BOUNDS"
)

// FSError is a recoverable file-system error tagged with the symbol the
// shell displays. It is distinct from a fatal error, which callers
// surface as a plain Go error and which terminates the process.
type FSError struct {
	Kind    Kind
	Context string
}

func (e *FSError) Error() string {
	if e.Context == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Context)
}

// New constructs an *FSError, optionally annotated with context (e.g. the
// offending path or inode number) for logging.
func New(kind Kind, context string) *FSError {
	return &FSError{Kind: kind, Context: context}
}

// Is reports whether err is an *FSError of the given kind, so callers can
// branch with errors.Is-style checks without a type assertion at every
// call site.
func Is(err error, kind Kind) bool {
	fsErr, ok := err.(*FSError)
	return ok && fsErr.Kind == kind
}
