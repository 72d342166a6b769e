package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-web-api/internal/models"
	appErrors "github.com/noah-isme/sma-web-api/pkg/errors"
)

type structureRepository interface {
	FindByID(ctx context.Context, id string) (*models.StructureNode, error)
	ListVisible(ctx context.Context, limit int) ([]models.StructureNode, error)
}

// StructureResource describes organisational structure nodes. Saves verify the
// parent exists and that re-parenting keeps the structure a tree.
func StructureResource(repo structureRepository) Resource[models.StructureNode] {
	return Resource[models.StructureNode]{
		Name:            ResourceStructure,
		Label:           "struktur organisasi",
		RequiredFields:  []string{"name", "position"},
		RequiredMessage: "Nama dan jabatan harus diisi",
		Defaults: func() models.StructureNode {
			return models.StructureNode{IsActive: true}
		},
		Fallback: defaultStructure,
		BeforeSave: func(ctx context.Context, node *models.StructureNode) error {
			return checkStructureParent(ctx, repo, node)
		},
	}
}

// checkStructureParent walks the ancestors of node's new parent and fails when
// node itself appears among them.
func checkStructureParent(ctx context.Context, repo structureRepository, node *models.StructureNode) error {
	if node.ParentID == nil {
		return nil
	}
	seen := map[string]struct{}{}
	current := *node.ParentID
	for current != "" {
		if node.ID != "" && current == node.ID {
			return invalid(models.ErrStructureCycle, models.ErrStructureCycle.Error())
		}
		if _, ok := seen[current]; ok {
			return invalid(models.ErrStructureCycle, models.ErrStructureCycle.Error())
		}
		seen[current] = struct{}{}

		parent, err := repo.FindByID(ctx, current)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				if current == *node.ParentID {
					return appErrors.Clone(appErrors.ErrValidation, "Atasan tidak ditemukan")
				}
				return nil
			}
			return appErrors.Internal(err, "Gagal menyimpan struktur organisasi")
		}
		if parent.ParentID == nil {
			return nil
		}
		current = *parent.ParentID
	}
	return nil
}

// StructureService serves the public organisational chart.
type StructureService struct {
	repo   structureRepository
	cache  *CacheService
	logger *zap.Logger
	debug  bool
}

// NewStructureService constructs a StructureService.
func NewStructureService(repo structureRepository, cache *CacheService, logger *zap.Logger) *StructureService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StructureService{repo: repo, cache: cache, logger: logger}
}

// WithDebugErrors makes fallback warnings carry the underlying cause.
func (s *StructureService) WithDebugErrors(debug bool) *StructureService {
	s.debug = debug
	return s
}

// Tree returns active nodes nested under their parents. Nodes whose parent is
// missing or inactive are attached at the root.
func (s *StructureService) Tree(ctx context.Context) ([]*models.StructureTreeNode, bool, error) {
	key := PublicKey(ResourceStructure, "tree")
	var cached []*models.StructureTreeNode
	if s.cache.Get(ctx, key, &cached) {
		return cached, false, nil
	}

	nodes, err := s.repo.ListVisible(ctx, 0)
	if err != nil {
		s.logger.Warn("structure tree failed, serving defaults", causeField(s.debug, err))
		return BuildStructureTree(defaultStructure()), true, nil
	}
	if len(nodes) == 0 {
		return BuildStructureTree(defaultStructure()), true, nil
	}
	tree := BuildStructureTree(nodes)
	s.cache.Set(ctx, key, tree, 0)
	return tree, false, nil
}

// BuildStructureTree nests nodes by parent id, ordering siblings by display order then name.
func BuildStructureTree(nodes []models.StructureNode) []*models.StructureTreeNode {
	index := make(map[string]*models.StructureTreeNode, len(nodes))
	for i := range nodes {
		index[nodes[i].ID] = &models.StructureTreeNode{StructureNode: nodes[i], Children: []*models.StructureTreeNode{}}
	}

	roots := make([]*models.StructureTreeNode, 0)
	for i := range nodes {
		item := index[nodes[i].ID]
		if !reachesRoot(index, item) {
			roots = append(roots, item)
			continue
		}
		parent := index[*item.ParentID]
		parent.Children = append(parent.Children, item)
	}

	var order func([]*models.StructureTreeNode)
	order = func(list []*models.StructureTreeNode) {
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].DisplayOrder != list[j].DisplayOrder {
				return list[i].DisplayOrder < list[j].DisplayOrder
			}
			return list[i].Name < list[j].Name
		})
		for _, item := range list {
			order(item.Children)
		}
	}
	order(roots)
	return roots
}

// reachesRoot reports whether item has a parent whose ancestor chain ends at a
// root without looping.
func reachesRoot(index map[string]*models.StructureTreeNode, item *models.StructureTreeNode) bool {
	if item.ParentID == nil {
		return false
	}
	seen := map[string]struct{}{item.ID: {}}
	current := item
	for current.ParentID != nil {
		parent, ok := index[*current.ParentID]
		if !ok {
			return current != item
		}
		if _, loop := seen[parent.ID]; loop {
			return false
		}
		seen[parent.ID] = struct{}{}
		current = parent
	}
	return true
}
