package endpoints

import (
	"database/sql"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/spf13/afero"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cmformation/formation-portal/pkg/model"
	"github.com/cmformation/formation-portal/pkg/server"
)

// NewMockTestServer creates a server instance with a mocked database for unit testing
// Returns the server, the mock database, and any error
func NewMockTestServer() (*server.Server, *MockDB, error) {
	mockDB, err := NewMockDB()
	if err != nil {
		return nil, nil, err
	}

	s, err := NewTestServer(TestConfig(), mockDB.GormDB, afero.NewMemMapFs())
	if err != nil {
		_ = mockDB.Close()
		return nil, nil, err
	}
	return s, mockDB, nil
}

// MockDB wraps sqlmock for easier test setup
type MockDB struct {
	DB     *sql.DB
	Mock   sqlmock.Sqlmock
	GormDB *gorm.DB
}

// NewMockDB creates a new mock database connection
func NewMockDB() (*MockDB, error) {
	db, mock, err := sqlmock.New()
	if err != nil {
		return nil, err
	}

	gormDB, err := gorm.Open(
		postgres.New(postgres.Config{
			Conn:                 db,
			PreferSimpleProtocol: true,
		}),
		&gorm.Config{
			Logger:         logger.Default.LogMode(logger.Silent),
			TranslateError: true,
		},
	)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &MockDB{
		DB:     db,
		Mock:   mock,
		GormDB: gormDB,
	}, nil
}

// Close closes the mock database
func (m *MockDB) Close() error {
	return m.DB.Close()
}

// ExpectPing sets up expectation for the connectivity check
func (m *MockDB) ExpectPing() {
	m.Mock.ExpectExec(`SELECT 1`).WillReturnResult(sqlmock.NewResult(0, 1))
}

// ExpectPingFailure sets up expectation for a failing connectivity check
func (m *MockDB) ExpectPingFailure(err error) {
	m.Mock.ExpectExec(`SELECT 1`).WillReturnError(err)
}

// ExpectProfileLookup sets up expectation for loading profile by id
func (m *MockDB) ExpectProfileLookup(profile *model.Profile) {
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "email", "full_name", "role", "password_hash", "invited_at", "created_at", "updated_at"}).
		AddRow(profile.ID, profile.Email, profile.FullName, string(profile.Role), nil, nil, now, now)
	m.Mock.ExpectQuery(`SELECT .* FROM "profiles"`).WillReturnRows(rows)
}

// ExpectProfileQueryError sets up expectation for a failing profile lookup
func (m *MockDB) ExpectProfileQueryError(err error) {
	m.Mock.ExpectQuery(`SELECT .* FROM "profiles"`).WillReturnError(err)
}

// ExpectDocumentsQueryError sets up expectation for a failing document listing
func (m *MockDB) ExpectDocumentsQueryError(err error) {
	m.Mock.ExpectQuery(`SELECT .* FROM "documents"`).WillReturnError(err)
}

// VerifyExpectations checks that all expectations were met
func (m *MockDB) VerifyExpectations() error {
	return m.Mock.ExpectationsWereMet()
}
