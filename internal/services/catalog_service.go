package services

import (
	"context"

	"intihelp/internal/models"
	"intihelp/internal/repositories"
)

type CatalogService interface {
	TaskTypes(ctx context.Context) ([]models.TaskType, error)
	Careers(ctx context.Context) ([]models.Career, error)
	Universities(ctx context.Context) ([]models.University, error)
}

type catalogService struct {
	repo repositories.CatalogRepository
}

func NewCatalogService(repo repositories.CatalogRepository) CatalogService {
	return &catalogService{repo: repo}
}

func (s *catalogService) TaskTypes(ctx context.Context) ([]models.TaskType, error) {
	return s.repo.ListTaskTypes(ctx)
}

func (s *catalogService) Careers(ctx context.Context) ([]models.Career, error) {
	return s.repo.ListCareers(ctx)
}

func (s *catalogService) Universities(ctx context.Context) ([]models.University, error) {
	return s.repo.ListUniversities(ctx)
}
