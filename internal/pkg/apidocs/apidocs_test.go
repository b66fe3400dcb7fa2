package apidocs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func documentPath() string {
	return filepath.Join("..", "..", "..", DefaultPath)
}

func TestLoad_PublicDocumentIsValid(t *testing.T) {
	doc, err := Load(context.Background(), documentPath())
	require.NoError(t, err)
	assert.Equal(t, "Pets Santa API", doc.Info.Title)
	assert.NotNil(t, doc.Components.Schemas["GenerationTask"])
}

func TestRoutes_UsesFiberNotation(t *testing.T) {
	doc, err := Load(context.Background(), documentPath())
	require.NoError(t, err)

	routes := Routes(doc)
	assert.Contains(t, routes, Route{Method: "POST", Path: "/api/generation/retry/:taskId"})
	assert.Contains(t, routes, Route{Method: "GET", Path: "/api/generation/status"})
	assert.Contains(t, routes, Route{Method: "POST", Path: "/api/webhook"})
}

func TestLoad_RejectsBrokenDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yml")
	broken := `openapi: 3.0.3
info:
  title: broken
  version: 1.0.0
paths:
  /x:
    get:
      responses:
        '200':
          description: ok
          content:
            application/json:
              schema:
                $ref: '#/components/schemas/Missing'
`
	require.NoError(t, os.WriteFile(path, []byte(broken), 0o644))

	_, err := Load(context.Background(), path)
	assert.Error(t, err)
}

func TestFiberPath(t *testing.T) {
	assert.Equal(t, "/a/:id/b", fiberPath("/a/{id}/b"))
	assert.Equal(t, "/plain", fiberPath("/plain"))
}
