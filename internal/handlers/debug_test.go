package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestDebugRoutesDisabled(t *testing.T) {
	router := setupRouter("alice", func(r *gin.Engine) { RegisterDebugRoutes(r, nil, false) })
	assert.Equal(t, http.StatusNotFound, perform(router, http.MethodGet, "/debug/audit-test", "").Code)
}

func TestDebugAuditTest(t *testing.T) {
	pub, emitter := auditFixture(t, "audit_test")
	router := setupRouter("alice", func(r *gin.Engine) { RegisterDebugRoutes(r, emitter, true) })

	assert.Equal(t, http.StatusOK, perform(router, http.MethodGet, "/debug/audit-test", "").Code)
	pub.AssertExpectations(t)
}
