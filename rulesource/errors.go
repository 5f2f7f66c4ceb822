package rulesource

import (
	"errors"
	"fmt"

	"github.com/minio/minio-go/v7"
	"gorm.io/gorm"
)

var (
	// ErrUnknownKind is returned for a Config.Kind that names no source.
	ErrUnknownKind = errors.New("unknown rule source kind")

	// ErrMissingLocation is returned when a source is configured without the path,
	// bucket, key or connection it reads from.
	ErrMissingLocation = errors.New("rule source location not configured")

	// ErrTableNotFound is returned when the source holds no rule table.
	ErrTableNotFound = errors.New("rule table not found")

	// ErrEmptyTable is returned when the source holds an empty document.
	ErrEmptyTable = errors.New("rule table is empty")

	// ErrAccessDenied is returned when the source rejects the credentials.
	ErrAccessDenied = errors.New("access to rule source denied")

	// ErrConnectionFailed is returned when the source cannot be reached.
	ErrConnectionFailed = errors.New("rule source connection failed")

	// ErrInvalidBrokerAuth is returned when the update topic's TLS or SASL settings
	// cannot be used.
	ErrInvalidBrokerAuth = errors.New("invalid broker authentication settings")
)

// translateObjectError maps MinIO error responses to the package errors.
func translateObjectError(err error) error {
	if err == nil {
		return nil
	}
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		switch resp.Code {
		case "NoSuchKey", "NoSuchBucket":
			return fmt.Errorf("%w: %s", ErrTableNotFound, resp.Message)
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
			return fmt.Errorf("%w: %s", ErrAccessDenied, resp.Message)
		}
	}
	return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
}

// translateDatabaseError maps gorm errors to the package errors.
func translateDatabaseError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrTableNotFound
	}
	return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
}
