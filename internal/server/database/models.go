package database

import "time"

// Upload is one row of the uploads table.
type Upload struct {
	ID        int64
	Size      int64
	Hash      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Stats holds aggregate server statistics.
type Stats struct {
	TotalUploads int64
	TotalBytes   int64
	UniqueHashes int64
}
