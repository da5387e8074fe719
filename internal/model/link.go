package model

import "time"

// DeviceLink is the durable record associating a parent principal with a
// child principal. Links are deactivated rather than deleted so history
// survives revocation; a child has at most one active link at a time.
type DeviceLink struct {
	LinkID   string    `db:"link_id" json:"linkId"`
	ParentID string    `db:"parent_id" json:"parentId"`
	ChildID  string    `db:"child_id" json:"childId"`
	LinkedAt time.Time `db:"linked_at" json:"linkedAt"`
	Active   bool      `db:"active" json:"active"`
}

type CreateDeviceLinkParams struct {
	LinkID   string
	ParentID string
	ChildID  string
}
