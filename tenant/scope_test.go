package tenant

import (
	"testing"

	"legalflow/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func strPtr(s string) *string { return &s }

func TestResolve(t *testing.T) {
	t.Run("Anonymous", func(t *testing.T) {
		scope, err := Resolve(nil)
		assert.NoError(t, err)
		assert.True(t, scope.IsNone())
	})

	t.Run("Superuser", func(t *testing.T) {
		scope, err := Resolve(&models.User{IsSuperuser: true, OfficeID: strPtr("office-a")})
		assert.NoError(t, err)
		assert.True(t, scope.IsUnrestricted())
		assert.True(t, scope.Owns("office-b"))
	})

	t.Run("OfficeMember", func(t *testing.T) {
		scope, err := Resolve(&models.User{OfficeID: strPtr("office-a")})
		assert.NoError(t, err)
		id, ok := scope.OfficeID()
		assert.True(t, ok)
		assert.Equal(t, "office-a", id)
		assert.True(t, scope.Owns("office-a"))
		assert.False(t, scope.Owns("office-b"))
	})

	t.Run("NoOffice", func(t *testing.T) {
		_, err := Resolve(&models.User{})
		assert.ErrorIs(t, err, ErrNoOffice)
	})
}

func TestApply(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:mem_"+uuid.New().String()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Office{}, &models.Client{}))

	officeA := models.Office{Name: "A"}
	officeB := models.Office{Name: "B"}
	require.NoError(t, db.Create(&officeA).Error)
	require.NoError(t, db.Create(&officeB).Error)
	require.NoError(t, db.Create(&models.Client{OfficeID: officeA.ID, Name: "Ana"}).Error)
	require.NoError(t, db.Create(&models.Client{OfficeID: officeB.ID, Name: "Bruno"}).Error)

	count := func(scope Scope) int64 {
		var n int64
		require.NoError(t, scope.Apply(db.Model(&models.Client{})).Count(&n).Error)
		return n
	}

	assert.Equal(t, int64(2), count(Unrestricted()))
	assert.Equal(t, int64(1), count(ForOffice(officeA.ID)))
	assert.Equal(t, int64(0), count(None()))
	assert.Equal(t, int64(0), count(ForOffice("")))
}
