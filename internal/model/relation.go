package model

import "time"

type RelationStatus string

// RelationAccepted is the only status a relation can have.
const RelationAccepted RelationStatus = "ACCEPTED"

// Relation is an undirected link between two users. UserA is the user who
// added the relation.
type Relation struct {
	ID         int64
	UserA      int64
	UserB      int64
	UserAEmail string
	UserBEmail string
	Status     RelationStatus
	CreatedAt  time.Time
}

// Peer returns the email of the party that is not userID.
func (r *Relation) Peer(userID int64) string {
	if r.UserA == userID {
		return r.UserBEmail
	}
	return r.UserAEmail
}

// Connects reports whether the relation links the two users in either order.
func (r *Relation) Connects(id1, id2 int64) bool {
	return (r.UserA == id1 && r.UserB == id2) || (r.UserA == id2 && r.UserB == id1)
}
