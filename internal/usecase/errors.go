package usecase

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrListingNotFound = errors.New("listing not found")
	ErrSellerNotFound  = errors.New("seller not found")
	ErrForbidden       = errors.New("seller not authorized to perform this action")
	ErrQuotaExceeded   = errors.New("active listing limit reached")
)

// ValidationError carries every violated field of a draft, not just the first.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	return fmt.Sprintf("invalid listing draft: %s", strings.Join(names, ", "))
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = msg
}

// ImageFailure records a single image that could not be uploaded or linked.
type ImageFailure struct {
	FileName string `json:"file_name"`
	Reason   string `json:"reason"`
}

// IncompletePublishError is returned when a publish ends up with fewer than
// the minimum linked images. The listing row still exists but has been
// deactivated; Failures lists the images that did not make it.
type IncompletePublishError struct {
	ListingID string
	Linked    int
	Failures  []ImageFailure
}

func (e *IncompletePublishError) Error() string {
	return fmt.Sprintf("listing %s published with %d linked images (%d uploads failed); listing deactivated",
		e.ListingID, e.Linked, len(e.Failures))
}
