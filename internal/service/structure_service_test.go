package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-web-api/internal/models"
	appErrors "github.com/noah-isme/sma-web-api/pkg/errors"
	"github.com/noah-isme/sma-web-api/pkg/validation"
)

type mockStructureRepo struct {
	ContentRepository[models.StructureNode]
	nodes   map[string]models.StructureNode
	updates int
}

func (m *mockStructureRepo) FindByID(ctx context.Context, id string) (*models.StructureNode, error) {
	node, ok := m.nodes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &node, nil
}

func (m *mockStructureRepo) ListVisible(ctx context.Context, limit int) ([]models.StructureNode, error) {
	out := make([]models.StructureNode, 0, len(m.nodes))
	for _, node := range m.nodes {
		if node.IsActive {
			out = append(out, node)
		}
	}
	return out, nil
}

func (m *mockStructureRepo) Update(ctx context.Context, row *models.StructureNode) error {
	m.updates++
	m.nodes[row.ID] = *row
	return nil
}

func strPtr(s string) *string { return &s }

const (
	nodeA = "0b6f3c8e-1a2b-4c3d-8e4f-5a6b7c8d9e01"
	nodeB = "0b6f3c8e-1a2b-4c3d-8e4f-5a6b7c8d9e02"
	nodeC = "0b6f3c8e-1a2b-4c3d-8e4f-5a6b7c8d9e03"
)

func chainRepo() *mockStructureRepo {
	return &mockStructureRepo{nodes: map[string]models.StructureNode{
		nodeA: {Base: models.Base{ID: nodeA}, Name: "Kepala", Position: "Kepala Sekolah", IsActive: true},
		nodeB: {Base: models.Base{ID: nodeB}, Name: "Wakil", Position: "Wakasek", ParentID: strPtr(nodeA), IsActive: true},
		nodeC: {Base: models.Base{ID: nodeC}, Name: "Koordinator", Position: "Koordinator", ParentID: strPtr(nodeB), IsActive: true},
	}}
}

func TestStructureReparentCycleRejected(t *testing.T) {
	repo := chainRepo()
	svc := NewContentService[models.StructureNode](StructureResource(repo), repo, validation.New(), zap.NewNop(), ContentOptions{})

	_, err := svc.Update(context.Background(), nodeA, []byte(`{"parent_id":"`+nodeC+`"}`))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "Struktur tidak boleh melingkar", appErr.Message)
	assert.Zero(t, repo.updates)
}

func TestStructureSelfParentRejected(t *testing.T) {
	repo := chainRepo()
	svc := NewContentService[models.StructureNode](StructureResource(repo), repo, validation.New(), zap.NewNop(), ContentOptions{})

	_, err := svc.Update(context.Background(), nodeB, []byte(`{"parent_id":"`+nodeB+`"}`))
	require.Error(t, err)
	assert.Equal(t, "Struktur tidak boleh melingkar", appErrors.FromError(err).Message)
}

func TestStructureMissingParentRejected(t *testing.T) {
	repo := chainRepo()
	node := &models.StructureNode{Name: "Baru", Position: "Staf", ParentID: strPtr("ghost")}

	err := checkStructureParent(context.Background(), repo, node)
	require.Error(t, err)
	assert.Equal(t, "Atasan tidak ditemukan", appErrors.FromError(err).Message)
}

func TestStructureValidReparent(t *testing.T) {
	repo := chainRepo()
	svc := NewContentService[models.StructureNode](StructureResource(repo), repo, validation.New(), zap.NewNop(), ContentOptions{})

	node, err := svc.Update(context.Background(), nodeC, []byte(`{"parent_id":"`+nodeA+`"}`))
	require.NoError(t, err)
	require.NotNil(t, node.ParentID)
	assert.Equal(t, nodeA, *node.ParentID)
	assert.Equal(t, 1, repo.updates)
}

func TestBuildStructureTree(t *testing.T) {
	nodes := []models.StructureNode{
		{Base: models.Base{ID: "c"}, Name: "Kurikulum", ParentID: strPtr("a"), DisplayOrder: 2},
		{Base: models.Base{ID: "a"}, Name: "Kepala", DisplayOrder: 1},
		{Base: models.Base{ID: "b"}, Name: "Kesiswaan", ParentID: strPtr("a"), DisplayOrder: 1},
		{Base: models.Base{ID: "o"}, Name: "Yatim", ParentID: strPtr("inactive"), DisplayOrder: 5},
		{Base: models.Base{ID: "x"}, Name: "Lingkar X", ParentID: strPtr("y")},
		{Base: models.Base{ID: "y"}, Name: "Lingkar Y", ParentID: strPtr("x")},
	}

	tree := BuildStructureTree(nodes)
	ids := make([]string, 0, len(tree))
	for _, root := range tree {
		ids = append(ids, root.ID)
	}
	assert.Equal(t, []string{"x", "y", "a", "o"}, ids)

	kepala := tree[2]
	require.Len(t, kepala.Children, 2)
	assert.Equal(t, "b", kepala.Children[0].ID)
	assert.Equal(t, "c", kepala.Children[1].ID)
	assert.Empty(t, tree[0].Children)
}

func TestStructureTreeFallback(t *testing.T) {
	svc := NewStructureService(&mockStructureRepo{nodes: map[string]models.StructureNode{}}, nil, zap.NewNop())

	tree, fallback, err := svc.Tree(context.Background())
	require.NoError(t, err)
	assert.True(t, fallback)
	require.Len(t, tree, 1)
	assert.Len(t, tree[0].Children, 2)
}
