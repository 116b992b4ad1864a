package authroles

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domainauth "github.com/target/exam-portal/internal/domain/auth"
)

func TestStaticMapper_Allowed(t *testing.T) {
	m := StaticMapper{StudentGroup: "students", TeacherGroup: "faculty", AdminGroup: "it-admins"}

	assert.Equal(t, []domainauth.Role{domainauth.RoleStudent}, m.Allowed([]string{"students", "other"}))
	assert.Equal(t,
		[]domainauth.Role{domainauth.RoleTeacher, domainauth.RoleAdmin},
		m.Allowed([]string{"it-admins", "faculty"}),
	)
	assert.Empty(t, m.Allowed(nil))
	assert.Empty(t, m.Allowed([]string{""}), "unset proctor group never matches")
}
