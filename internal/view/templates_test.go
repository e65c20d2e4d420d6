package view

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderLoginPage(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	data := struct {
		Form   struct{ Username, Next string }
		Errors map[string]string
	}{}
	res := httptest.NewRecorder()
	err = engine.Render(res, "pages/login.html", TemplateData{Title: "Log in", CSRFToken: "tok", Data: data})
	require.NoError(t, err)
	require.Contains(t, res.Body.String(), "<form")
	require.Contains(t, res.Body.String(), `name="csrf_token"`)
	require.True(t, strings.HasPrefix(res.Header().Get("Content-Type"), "text/html"))
}
