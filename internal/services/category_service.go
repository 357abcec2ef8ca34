package services

import (
	"context"
	"fmt"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// CategoryInput carries the writable fields of a category
type CategoryInput struct {
	Name   string
	Budget core.Money
}

// CategoryPatch carries the fields of a partial update. Nil fields keep
// their stored value.
type CategoryPatch struct {
	Name   *string
	Budget *core.Money
}

type CategoryService struct {
	store  storage.CategoryStore
	logger *log.Logger
}

func NewCategoryService(store storage.CategoryStore, logger *log.Logger) *CategoryService {
	if logger == nil {
		logger = log.Discard()
	}
	return &CategoryService{
		store:  store,
		logger: logger.WithComponent(log.ComponentLedger),
	}
}

// List returns every category with the caller's expense totals
func (s *CategoryService) List(ctx context.Context, who core.Identity) ([]core.CategoryUsage, error) {
	usage, err := s.store.CategoryUsage(ctx, who.ID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return usage, nil
}

func requireAdmin(who core.Identity, action string) error {
	if !who.IsAdmin() {
		return fmt.Errorf("%s category: %w", action, core.ErrForbidden)
	}
	return nil
}

func (s *CategoryService) Create(ctx context.Context, who core.Identity, in CategoryInput) (core.Category, error) {
	if err := requireAdmin(who, "create"); err != nil {
		return core.Category{}, err
	}
	c := core.Category{Name: strings.TrimSpace(in.Name), Budget: in.Budget}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	if _, err := s.store.FindCategoryByName(ctx, c.Name); err == nil {
		return core.Category{}, core.ErrCategoryExists
	} else if !isNotFound(err) {
		return core.Category{}, fmt.Errorf("check category name: %w", err)
	}

	created, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, err
	}
	s.logger.InfoContext(ctx, "Category created",
		log.FieldCategoryID, created.ID,
		log.FieldUserID, who.ID)
	return created, nil
}

func (s *CategoryService) Update(ctx context.Context, who core.Identity, id int64, patch CategoryPatch) (core.Category, error) {
	if err := requireAdmin(who, "update"); err != nil {
		return core.Category{}, err
	}

	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, err
	}
	if patch.Name != nil {
		c.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Budget != nil {
		c.Budget = *patch.Budget
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	if patch.Name != nil {
		if other, err := s.store.FindCategoryByName(ctx, c.Name); err == nil && other.ID != id {
			return core.Category{}, core.ErrCategoryExists
		} else if err != nil && !isNotFound(err) {
			return core.Category{}, fmt.Errorf("check category name: %w", err)
		}
	}

	return s.store.UpdateCategory(ctx, c)
}

// Delete removes a category that no transaction references
func (s *CategoryService) Delete(ctx context.Context, who core.Identity, id int64) error {
	if err := requireAdmin(who, "delete"); err != nil {
		return err
	}
	if _, err := s.store.GetCategory(ctx, id); err != nil {
		return err
	}

	n, err := s.store.CountCategoryUsage(ctx, id)
	if err != nil {
		return fmt.Errorf("count category usage: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: Cannot delete category. It is being used by %d transaction(s).", core.ErrConflict, n)
	}

	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Category deleted",
		log.FieldCategoryID, id,
		log.FieldUserID, who.ID)
	return nil
}
