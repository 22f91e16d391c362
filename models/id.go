package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// NewID returns a fresh 24 character hex object id.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// IsObjectID reports whether s has the shape of an object id.
func IsObjectID(s string) bool {
	return len(s) == 24 && primitive.IsValidObjectID(s)
}
