/*
Copyright (C) 2026 FreshNest

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// Role defines user permission level.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleCleaner Role = "cleaner"
)

// Employee is a staff member who can log in and be assigned to jobs.
type Employee struct {
	ID           string `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string `gorm:"type:varchar(255);not null" json:"name"`
	Email        string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Phone        string `gorm:"type:varchar(32)" json:"phone,omitempty"`
	PasswordHash string `gorm:"type:varchar(255);not null" json:"-"`
	Role         Role   `gorm:"type:varchar(32);not null;default:'cleaner'" json:"role"`
	HourlyRate   float64 `gorm:"default:0" json:"hourly_rate,omitempty"`
	Active       bool   `gorm:"not null;default:true" json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Employee) TableName() string {
	return "employees"
}

// Client is a customer whose properties get cleaned.
type Client struct {
	ID      string `gorm:"type:uuid;primaryKey" json:"id"`
	Name    string `gorm:"type:varchar(255);not null" json:"name"`
	Email   string `gorm:"type:varchar(255);index" json:"email,omitempty"`
	Phone   string `gorm:"type:varchar(32)" json:"phone,omitempty"`
	Address string `gorm:"type:text" json:"address,omitempty"`
	Notes   string `gorm:"type:text" json:"notes,omitempty"`
	Active  bool   `gorm:"not null;default:true" json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Client) TableName() string {
	return "clients"
}
