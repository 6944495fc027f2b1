package utils

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error taxonomy for the journal boundary operations. Privileged mutations
// fail closed with one of these; best-effort bulk/derived writes log and
// continue instead.
var (
	ErrUnauthenticated  = errors.New("user must be authenticated")
	ErrPermissionDenied = errors.New("user is not authorized to perform this action")
	ErrReportNotFound   = errors.New("report not found")
	ErrSubscription     = errors.New("journal subscription failed")
	ErrWriteFailure     = errors.New("report write rejected by the store")
)

// MapStoreError folds Firestore gRPC status codes into the local taxonomy.
func MapStoreError(err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return ErrReportNotFound
	case codes.PermissionDenied:
		return ErrPermissionDenied
	case codes.Unauthenticated:
		return ErrUnauthenticated
	}
	return err
}
