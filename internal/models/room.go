package models

import "time"

// Room is a physical teaching space available to the scheduler.
type Room struct {
	ID        string    `db:"id" json:"id"`
	Capacity  int       `db:"capacity" json:"capacity"`
	Kind      string    `db:"kind" json:"kind"`
	SpaceType string    `db:"space_type" json:"space_type"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RoomFilter captures supported filters for listing rooms.
type RoomFilter struct {
	Kind      string
	SpaceType string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
