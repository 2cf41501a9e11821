package domain

import "context"

// Record is a stored document returned as-is, except that its _id is a string.
type Record map[string]any

// RecordPage is one page of records from a single collection.
type RecordPage struct {
	Records    []Record
	Pagination Pagination
}

// RecordService lists the documents of one collection, newest first.
type RecordService interface {
	ListRecords(ctx context.Context, req PageRequest) (*RecordPage, error)
}
