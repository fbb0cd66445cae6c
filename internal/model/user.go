package model

import "time"

// Admin is a staff account allowed to operate the booking desk.  Admins sign
// in with either their unique name or their email address.
//
// Fields:
//  ID           – primary key identifier of the admin.
//  Name         – unique login name.
//  Email        – optional unique email address.
//  PasswordHash – bcrypt hashed password.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type Admin struct {
	ID           uint64    // admins.id
	Name         string    // admins.name
	Email        *string   // admins.email (nullable)
	PasswordHash string    // admins.password_hash
	CreatedAt    time.Time // admins.created_at
	UpdatedAt    time.Time // admins.updated_at
}

// RoleAdmin is the only role issued in access tokens.
const RoleAdmin = "ADMIN"
