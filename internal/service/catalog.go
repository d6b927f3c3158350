package service

import (
	"context"

	"ministore/internal/apperror"
	"ministore/internal/domain"
	"ministore/internal/validation"
)

func (s *Service) GetItems(ctx context.Context, q domain.ItemQuery) (domain.ItemPage, error) {
	return s.repo.GetItems(ctx, q)
}

func (s *Service) GetItem(ctx context.Context, id int64) (*domain.Item, error) {
	if id < 1 {
		return nil, apperror.NewNotFound("item", id)
	}
	return s.repo.GetItemByID(ctx, id)
}

func (s *Service) GetItemByCode(ctx context.Context, code string) (*domain.Item, error) {
	return s.repo.GetItemByCode(ctx, code)
}

func (s *Service) SearchItems(ctx context.Context, query string) ([]domain.Item, error) {
	return s.repo.SearchItems(ctx, query)
}

func (s *Service) CreateItem(ctx context.Context, in domain.ItemInput) (*domain.Item, error) {
	if err := validation.Error(validation.ValidateItem(in)); err != nil {
		return nil, err
	}
	item, err := s.repo.CreateItem(ctx, in)
	if err != nil {
		return nil, err
	}
	s.invalidateDashboard(ctx)
	return item, nil
}

func (s *Service) UpdateItem(ctx context.Context, id int64, patch domain.ItemPatch) (*domain.Item, error) {
	if err := validation.Error(validation.ValidateItemPatch(patch)); err != nil {
		return nil, err
	}
	item, err := s.repo.UpdateItem(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.invalidateDashboard(ctx)
	return item, nil
}

// DeleteItem removes the item. Sale lines that reference it stay and read
// as Unknown afterwards.
func (s *Service) DeleteItem(ctx context.Context, id int64) (*domain.Item, error) {
	item, err := s.repo.DeleteItem(ctx, id)
	if err != nil {
		return nil, err
	}
	s.invalidateDashboard(ctx)
	return item, nil
}

func (s *Service) GetCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.GetCategories(ctx)
}

func (s *Service) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	return s.repo.GetCategoryByID(ctx, id)
}

func (s *Service) GetCategoryByName(ctx context.Context, name string) (*domain.Category, error) {
	return s.repo.GetCategoryByName(ctx, name)
}

func (s *Service) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	if err := validation.Error(validation.ValidateCategory(name)); err != nil {
		return nil, err
	}
	return s.repo.CreateCategory(ctx, name)
}

func (s *Service) UpdateCategory(ctx context.Context, id int64, name string) (*domain.Category, error) {
	if err := validation.Error(validation.ValidateCategory(name)); err != nil {
		return nil, err
	}
	return s.repo.UpdateCategory(ctx, id, name)
}

// DeleteCategory removes the category only; items keep their label.
func (s *Service) DeleteCategory(ctx context.Context, id int64) (*domain.Category, error) {
	return s.repo.DeleteCategory(ctx, id)
}
