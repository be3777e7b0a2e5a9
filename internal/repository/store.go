package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store hands out repositories bound to one database handle. Inside
// Transaction the handle is the transaction, so every repository obtained
// from the callback's Store takes part in it. Calling Transaction on a
// Store that is already transactional opens a savepoint.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store over db.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for migrations and tests.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Tenants() TenantRepository {
	return NewTenantRepository(s.db)
}

func (s *Store) Users() UserRepository {
	return NewUserRepository(s.db)
}

func (s *Store) Projects() ProjectRepository {
	return NewProjectRepository(s.db)
}

func (s *Store) Counters() ProjectCounterRepository {
	return NewProjectCounterRepository(s.db)
}

func (s *Store) Tasks() TaskRepository {
	return NewTaskRepository(s.db)
}

func (s *Store) History() TaskHistoryRepository {
	return NewTaskHistoryRepository(s.db)
}

func (s *Store) Notifications() NotificationRepository {
	return NewNotificationRepository(s.db)
}

// Transaction runs fn in a transaction, or in a savepoint when s is
// already transactional. Returning an error rolls back to where it started.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}
