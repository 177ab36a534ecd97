package sqlite_test

import (
	"testing"

	"github.com/topranks/homer/internal/domain"
	"github.com/topranks/homer/internal/domain/runrecordrepotest"
	"github.com/topranks/homer/internal/domain/runrepotest"
	"github.com/topranks/homer/internal/infrastructure/sqlite"
)

func TestRunRepo(t *testing.T) {
	runrepotest.Run(t, func(t *testing.T) domain.RunRepository {
		db := sqlite.OpenTestDB(t)
		return &sqlite.RunRepo{DB: db}
	})
}

func TestRunRecordRepo(t *testing.T) {
	runrecordrepotest.Run(t, func(t *testing.T) domain.RunRecordRepository {
		db := sqlite.OpenTestDB(t)
		return &sqlite.RunRecordRepo{DB: db}
	})
}
