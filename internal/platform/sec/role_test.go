// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/tessera/internal/platform/sec"
)

/*
TestUserRole_AtLeast covers the role hierarchy comparisons.
*/
func TestUserRole_AtLeast(t *testing.T) {
	tests := []struct {
		name   string
		role   sec.UserRole
		target sec.UserRole
		want   bool
	}{
		{"superadmin_over_admin", sec.RoleSuperadmin, sec.RoleAdmin, true},
		{"admin_meets_admin", sec.RoleAdmin, sec.RoleAdmin, true},
		{"user_below_admin", sec.RoleUser, sec.RoleAdmin, false},
		{"guest_below_user", sec.RoleGuest, sec.RoleUser, false},
		{"guest_meets_guest", sec.RoleGuest, sec.RoleGuest, true},
		{"unknown_below_everything", sec.UserRole("intern"), sec.RoleGuest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.AtLeast(tt.target))
		})
	}
}

/*
TestUserRole_Valid separates known roles from arbitrary strings.
*/
func TestUserRole_Valid(t *testing.T) {
	assert.True(t, sec.RoleSuperadmin.Valid())
	assert.True(t, sec.RoleGuest.Valid())
	assert.False(t, sec.UserRole("").Valid())
	assert.False(t, sec.UserRole("root").Valid())
}
