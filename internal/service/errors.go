package service

import (
	"errors"
	"fmt"
)

var (
	ErrListingNotFound = errors.New("listing not found")
	ErrRunInProgress   = errors.New("scrape run already in progress")
)

// Stage names the pipeline step a listing failed in.
type Stage string

const (
	StageLoad    Stage = "load"
	StageFetch   Stage = "fetch"
	StagePersist Stage = "persist"
)

type ListingError struct {
	ListingID int64
	Stage     Stage
	Err       error
}

func (e *ListingError) Error() string {
	return fmt.Sprintf("listing %d: %s: %v", e.ListingID, e.Stage, e.Err)
}

func (e *ListingError) Unwrap() error {
	return e.Err
}
